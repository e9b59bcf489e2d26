package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"jurnalguru/backup"
	"jurnalguru/internal/utils"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the journal to a file or to Google Drive",
	}
	cmd.AddCommand(newBackupLocalCmd(), newBackupCloudCmd(), newBackupListCmd())
	return cmd
}

func newBackupLocalCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Write a backup file",
		Long: `Export every collection to a new backup-jurnal-lokal-<time>.json file.
The directory defaults to backup.directory from the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.Config().BackupDir()
			}
			path, err := a.Backup().WriteLocalBackup(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if err := a.SyncState().RecordLocalBackup(path); err != nil {
				utils.Warnf("Failed to record backup path: %v", err)
			}
			fmt.Printf("✓ Backup written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory")
	return cmd
}

func newBackupCloudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cloud",
		Short: "Upload the journal to Google Drive now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			file, err := a.SyncNow(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("✓ Uploaded %s (%s)\n", file.Name, file.ID)
			return nil
		},
	}
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List backups stored in Google Drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if !a.IsSignedIn() {
				return utils.ErrNotSignedIn(fmt.Errorf("cannot list cloud backups"))
			}
			files, err := a.Backup().ListAvailableBackups(cmd.Context())
			if err != nil {
				return err
			}
			sync, err := a.Backup().CheckCloudForSyncFile(cmd.Context())
			if err != nil {
				return err
			}
			if sync != nil {
				files = append(files, *sync)
			}
			sort.SliceStable(files, func(i, j int) bool {
				return files[i].ModifiedTime.After(files[j].ModifiedTime)
			})

			return printResult(files, func() {
				if len(files) == 0 {
					fmt.Println("No backups in Google Drive yet")
					return
				}
				for _, f := range files {
					fmt.Printf("%-34s  %s  %8d  %s\n", f.ID, f.ModifiedTime.Local().Format("2006-01-02 15:04"), f.Size, f.Name)
				}
			})
		},
	}
}

func printEnvelopeSummary(env *backup.Envelope) {
	if t := env.Time(); !t.IsZero() {
		fmt.Printf("Backup from %s", t.Local().Format(time.DateTime))
		if env.DeviceInfo != "" {
			fmt.Printf(" on %s", env.DeviceInfo)
		}
		fmt.Println()
	}
	records := env.Records()
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %d\n", name, records[name])
	}
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the journal from a backup",
	}
	cmd.AddCommand(newRestoreFileCmd(), newRestoreCloudCmd())
	return cmd
}

func newRestoreFileCmd() *cobra.Command {
	var replace, yes bool

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Restore from a backup file",
		Long: `Restore from a backup file.

By default records from the file are merged into the local journal and
nothing local is deleted. With --replace the local journal becomes an exact
copy of the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := backup.ReadBackupFile(args[0])
			if err != nil {
				return utils.ErrInvalidBackupFile(args[0], err)
			}
			mode := backup.Merge
			if replace {
				mode = backup.Replace
			}

			printEnvelopeSummary(env)
			if !yes && !utils.Confirm(fmt.Sprintf("Restore this backup (%s)?", mode)) {
				fmt.Println("Cancelled")
				return nil
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			if _, err := a.Backup().RestoreFromFile(cmd.Context(), args[0], mode); err != nil {
				return err
			}
			fmt.Printf("✓ Restored (%s)\n", mode)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace the local journal instead of merging")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func newRestoreCloudCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cloud [file-id]",
		Short: "Replace the local journal with a backup from Google Drive",
		Long: `Replace the local journal with a backup from Google Drive. Without a file
id the newest backup is used: the auto-sync file when present, otherwise the
newest older-style backup.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if !a.IsSignedIn() {
				return utils.ErrNotSignedIn(fmt.Errorf("cannot restore from Google Drive"))
			}
			ctx := cmd.Context()

			var fileID string
			if len(args) == 1 {
				fileID = args[0]
			} else {
				f, err := a.Backup().LastBackupMetadata(ctx)
				if err != nil {
					return err
				}
				if f == nil {
					fmt.Println("No backups in Google Drive yet")
					return nil
				}
				fileID = f.ID
				fmt.Printf("Newest backup: %s (%s)\n", f.Name, f.ModifiedTime.Local().Format(time.DateTime))
			}

			if !yes && !a.Backup().IsLocalDbEmpty(ctx) &&
				!utils.Confirm("This replaces everything stored on this device. Continue?") {
				fmt.Println("Cancelled")
				return nil
			}

			env, err := a.Backup().RestoreFromCloud(ctx, fileID)
			if err != nil {
				return err
			}
			printEnvelopeSummary(env)
			fmt.Println("✓ Restored from Google Drive")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}
