package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jurnalguru/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, .env files and JURNALGURU_*
environment overrides are applied. The default format is yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *config.GetConfig()
			if cfg.Drive.ClientSecret != "" {
				cfg.Drive.ClientSecret = "********"
			}
			if outputFormat == "" || outputFormat == "text" {
				outputFormat = "yaml"
			}
			return printResult(cfg, func() {})
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", p)
			}
			if err := os.MkdirAll(filepath.Dir(p), config.CONFIG_DIR_PERM); err != nil {
				return err
			}
			if err := os.WriteFile(p, config.SampleConfig(), config.CONFIG_FILE_PERM); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %s\n", p)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}
