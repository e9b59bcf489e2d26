package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jurnalguru/internal/app"
	"jurnalguru/internal/config"
	jsync "jurnalguru/internal/sync"
	"jurnalguru/internal/tui"
	"jurnalguru/internal/utils"
)

// newSyncCmd creates the sync command with all subcommands
func newSyncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect and run the Google Drive auto sync",
		Long: `Every change to the journal is uploaded to a single file in Google Drive
once no further change has happened for the quiet period (sync.quiet_period).
A command that exits before the quiet period ends uploads its change on exit.

Examples:
  jurnalguru sync status     # Show sign-in and last sync
  jurnalguru sync now        # Upload immediately
  jurnalguru sync watch      # Keep syncing changes made by any jurnalguru process`,
	}
	syncCmd.AddCommand(newSyncStatusCmd(), newSyncNowCmd(), newSyncWatchCmd())
	return syncCmd
}

// newSyncStatusCmd creates the 'sync status' command
func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			st := a.Status()
			return printResult(st, func() { printStatus(a, st) })
		},
	}
}

func printStatus(a *app.App, st app.Status) {
	fmt.Println("\n=== Sync Status ===")
	if st.SignedIn {
		fmt.Printf("Google Drive: signed in (%s)\n", st.Source)
	} else {
		fmt.Println("Google Drive: signed out")
	}
	if !a.SyncEnabled() {
		fmt.Println("Auto sync: disabled in configuration")
	}
	fmt.Printf("Status: %s\n", tui.Pill(parseStatus(st.State)))
	if st.LastError != "" {
		fmt.Printf("Last error: %s\n", st.LastError)
	}
	if st.LastSync.IsZero() {
		fmt.Println("Last sync: Never")
	} else {
		fmt.Printf("Last sync: %s ago (%d total)\n", formatDuration(time.Since(st.LastSync)), st.SyncCount)
	}
	fmt.Printf("Scheduled backup: %s\n", st.Frequency)
	fmt.Printf("Device: %s\n\n", st.DeviceID)
}

func parseStatus(s string) jsync.Status {
	for _, st := range []jsync.Status{jsync.StatusSyncing, jsync.StatusSuccess, jsync.StatusError} {
		if st.String() == s {
			return st
		}
	}
	return jsync.StatusIdle
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Upload the journal immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			fmt.Println("Syncing...")
			file, err := a.SyncNow(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			fmt.Printf("✓ Synced to %s\n", file.Name)
			return nil
		},
	}
}

func newSyncWatchCmd() *cobra.Command {
	var plain bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep syncing until interrupted",
		Long: `Stay running and upload every change to Google Drive after the quiet
period, including changes made by other jurnalguru commands when
sync.watch_database is on. When backup.frequency is daily or weekly, a
scheduled sync also runs whenever the last one is older than that.

Sync messages go to a rotating log file (log.file). On a terminal a live
status view is shown; --plain only logs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--check-every must be positive")
			}
			cfg := config.GetConfig()
			if !cfg.Sync.Enabled {
				return utils.ErrSyncNotEnabled()
			}

			bg, err := utils.NewBackgroundLogger(utils.RotationOptions{
				Path:       cfg.Log.File,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
			})
			if err != nil {
				return err
			}
			defer bg.Close()
			utils.SetOutput(bg.Writer())
			defer utils.SetOutput(os.Stderr)

			a, err := app.NewApp(cfg, app.Options{
				SyncLogger: log.New(bg.Writer(), "[AutoSync] ", log.LstdFlags),
			})
			if err != nil {
				return err
			}
			application = a
			defer shutdownApp()
			if !a.IsSignedIn() {
				return utils.ErrNotSignedIn(fmt.Errorf("sync watch needs a Google Drive session"))
			}

			if cfg.Sync.WatchDatabase {
				w, err := jsync.NewDBWatcher(a.Store().Path(), a.Bus())
				if err != nil {
					return err
				}
				if err := w.Start(); err != nil {
					return err
				}
				defer w.Stop()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bg.Printf("Watching %s", a.Store().Path())
			schedule := func(ctx context.Context, now time.Time) (bool, error) {
				ran, err := a.SyncIfDue(ctx, now)
				if err != nil {
					bg.Printf("Scheduled sync failed: %v", err)
				} else if ran {
					bg.Printf("Scheduled sync completed")
				}
				return ran, err
			}

			if !plain && term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Watch(ctx, a.Trigger(), tui.WatchOptions{
					Header:   "jurnalguru auto sync: " + a.Store().Path(),
					Schedule: schedule,
					Interval: interval,
				})
			}

			fmt.Printf("Watching for changes; logging to %s\n", bg.GetLogPath())
			schedule(ctx, time.Now())
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case now := <-ticker.C:
					schedule(ctx, now)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "no status view, only log")
	cmd.Flags().DurationVar(&interval, "check-every", time.Hour, "how often to check for a due scheduled sync")
	return cmd
}
