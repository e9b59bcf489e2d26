package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"jurnalguru/internal/app"
	"jurnalguru/internal/cli"
	"jurnalguru/internal/config"
	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

var (
	application  *app.App
	configPath   string
	outputFormat string
	verbose      bool
)

// getApp opens the application on first use. Commands that never touch the
// database or Drive do not pay for it.
func getApp() (*app.App, error) {
	if application != nil {
		return application, nil
	}
	a, err := app.NewApp(config.GetConfig(), app.Options{})
	if err != nil {
		return nil, err
	}
	application = a
	return a, nil
}

func shutdownApp() {
	if application != nil {
		application.Shutdown()
		application = nil
	}
}

// printResult writes v in the selected --format, using text for the
// default human-readable output.
func printResult(v any, text func()) error {
	f, err := utils.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	if f == utils.FormatText {
		text()
		return nil
	}
	return utils.WriteStructured(os.Stdout, f, v)
}

func listClasses(ctx context.Context) ([]store.Class, error) {
	a, err := getApp()
	if err != nil {
		return nil, err
	}
	return a.Ops().ListClasses(ctx)
}

// completeClassArg and completeClassFlag offer class ids in shell completion.
var (
	completeClassArg  = cli.ClassCompletion(listClasses)
	completeClassFlag = cli.ClassFlagCompletion(listClasses)
)

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jurnalguru",
		Short: "Teaching journal with Google Drive backup",
		Long: `jurnalguru keeps a teacher's classes, students, attendance journal, grades
and student monitoring notes in a local database, and backs it up to a
single file in Google Drive shortly after every change.

Examples:
  jurnalguru class add "7A"
  jurnalguru attendance save --class 1 3=p 4=s 5=a
  jurnalguru auth login
  jurnalguru sync status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("config") {
				config.SetCustomConfigPath(configPath)
			}
			utils.SetVerboseMode(verbose || config.GetConfig().Log.Verbose)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file or directory (default $XDG_CONFIG_HOME/jurnalguru/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newClassCmd(),
		newStudentCmd(),
		newAttendanceCmd(),
		newSyllabusCmd(),
		newAssessmentCmd(),
		newIdeaCmd(),
		newMonitorCmd(),
		newSettingsCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newSyncCmd(),
		newAuthCmd(),
		newVacuumCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func main() {
	err := newRootCmd().Execute()
	shutdownApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
