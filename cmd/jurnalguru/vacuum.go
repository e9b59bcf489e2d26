package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"jurnalguru/internal/operations"
	"jurnalguru/internal/utils"
)

func newVacuumCmd() *cobra.Command {
	var dryRun, compact bool

	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Remove records that point at deleted students or assessments",
		Long: `Remove attendance, grades, behavior logs and interventions whose student
no longer exists, and grades whose assessment no longer exists.

With --compact the database file is rebuilt afterwards to reclaim space.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			report, err := a.Ops().Vacuum(ctx, dryRun)
			if err != nil {
				return err
			}
			if err := printResult(report, func() { printVacuumReport(report, dryRun) }); err != nil {
				return err
			}
			if !compact || dryRun {
				return nil
			}

			before, err := a.Store().GetStats(ctx)
			if err != nil {
				return err
			}
			if err := a.Store().Compact(ctx); err != nil {
				return err
			}
			after, err := a.Store().GetStats(ctx)
			if err != nil {
				return err
			}
			utils.Infof("Database compacted: %d → %d bytes", before.DatabaseSize, after.DatabaseSize)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only count what would be removed")
	cmd.Flags().BoolVar(&compact, "compact", false, "rebuild the database file afterwards")
	return cmd
}

func printVacuumReport(report operations.VacuumReport, dryRun bool) {
	if report.Total() == 0 {
		fmt.Println("No orphaned records")
		return
	}
	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	names := make([]string, 0, len(report))
	for name := range report {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s %d from %s\n", verb, report[name], name)
	}
}
