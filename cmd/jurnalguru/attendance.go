package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jurnalguru/internal/operations"
	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

func newAttendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attendance",
		Aliases: []string{"absen"},
		Short:   "Record teaching sessions and attendance",
	}
	cmd.AddCommand(
		newAttendanceSaveCmd(),
		newAttendanceShowCmd(),
		newAttendanceHistoryCmd(),
		newAttendanceDeleteCmd(),
	)
	return cmd
}

func newAttendanceSaveCmd() *cobra.Command {
	var (
		classID    int64
		date       string
		topic      string
		syllabusID int64
		tags       string
		rest       string
	)

	cmd := &cobra.Command{
		Use:   "save [student-id=status]...",
		Short: "Save the journal and attendance of one session",
		Long: `Save the journal entry of a session and the attendance of its class.

Saving again for the same class and date replaces the earlier attendance.
Status is present, sick, excused, absent or truant; the first letter or the
code 1-5 also works. Students not listed get --rest (default present);
--rest none records only the listed students.

Examples:
  jurnalguru attendance save --class 1 --syllabus 4 12=s 15=a
  jurnalguru attendance save --class 1 --date 2026-03-10 --topic "Review" 12=t`,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := utils.ParseDateFlag(date)
			if err != nil {
				return err
			}
			entries, err := operations.ParseAttendanceLine(args)
			if err != nil {
				return err
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if rest != "none" {
				status, err := store.ParseAttendanceStatus(strings.ToLower(rest))
				if err != nil {
					return utils.ErrInvalidStatus(rest, []string{"present", "sick", "excused", "absent", "truant", "none"})
				}
				students, err := a.Ops().StudentsByClass(ctx, classID)
				if err != nil {
					return err
				}
				listed := make(map[int64]bool, len(entries))
				for _, e := range entries {
					listed[e.StudentID] = true
				}
				for _, s := range students {
					if !listed[s.ID] {
						entries = append(entries, operations.AttendanceEntry{StudentID: s.ID, Status: status})
					}
				}
			}

			in := operations.JournalInput{
				Date:        day,
				ClassID:     classID,
				CustomTopic: topic,
				Tags:        operations.SplitTags(tags),
			}
			if syllabusID > 0 {
				in.SyllabusID = &syllabusID
			}
			journalID, err := a.Ops().SaveAttendance(ctx, in, entries)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Saved journal %d for %s with %d attendance records\n", journalID, day, len(entries))
			return nil
		},
	}
	cmd.Flags().Int64VarP(&classID, "class", "c", 0, "class id (required)")
	cmd.RegisterFlagCompletionFunc("class", completeClassFlag)
	cmd.Flags().StringVarP(&date, "date", "d", "", "session date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&topic, "topic", "", "free-text topic when no syllabus entry fits")
	cmd.Flags().Int64Var(&syllabusID, "syllabus", 0, "syllabus topic id")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&rest, "rest", "present", "status for students not listed, or none")
	cmd.MarkFlagRequired("class")
	return cmd
}

func newAttendanceShowCmd() *cobra.Command {
	var classID int64
	var date string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the attendance recorded for a class on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := utils.ParseDateFlag(date)
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			records, err := a.Ops().ExistingAttendance(ctx, classID, day)
			if err != nil {
				return err
			}
			students, err := a.Ops().StudentsByClass(ctx, classID)
			if err != nil {
				return err
			}
			names := make(map[int64]string, len(students))
			for _, s := range students {
				names[s.ID] = s.Name
			}

			return printResult(records, func() {
				if len(records) == 0 {
					fmt.Printf("No attendance recorded on %s\n", day)
					return
				}
				for _, r := range records {
					name, ok := names[r.StudentID]
					if !ok {
						name = fmt.Sprintf("(deleted student %d)", r.StudentID)
					}
					fmt.Printf("%4d  %-30s  %s\n", r.StudentID, name, r.Status)
				}
			})
		},
	}
	cmd.Flags().Int64VarP(&classID, "class", "c", 0, "class id (required)")
	cmd.RegisterFlagCompletionFunc("class", completeClassFlag)
	cmd.Flags().StringVarP(&date, "date", "d", "", "session date YYYY-MM-DD (default today)")
	cmd.MarkFlagRequired("class")
	return cmd
}

func newAttendanceHistoryCmd() *cobra.Command {
	var classID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			entries, err := a.Ops().HistoryLog(cmd.Context(), classID)
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			return printResult(entries, func() {
				if len(entries) == 0 {
					fmt.Println("No sessions recorded")
					return
				}
				for _, e := range entries {
					fmt.Printf("%4d  %s  %-8s  %-40s  %s\n", e.ID, e.Date, e.ClassName, e.TopicName, formatCounts(e.Counts))
				}
			})
		},
	}
	cmd.Flags().Int64VarP(&classID, "class", "c", 0, "only this class")
	cmd.RegisterFlagCompletionFunc("class", completeClassFlag)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most n sessions, 0 for all")
	return cmd
}

func formatCounts(counts map[store.AttendanceStatus]int) string {
	var parts []string
	for s := store.StatusPresent; s <= store.StatusTruant; s++ {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%c:%d", strings.ToUpper(s.String())[0], n))
		}
	}
	return strings.Join(parts, " ")
}

func newAttendanceDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <journal-id>",
		Short: "Delete a session and its attendance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "journal")
			if err != nil {
				return err
			}
			if !force && !utils.Confirm(fmt.Sprintf("Delete journal %d and its attendance?", id)) {
				fmt.Println("Cancelled")
				return nil
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().DeleteAttendanceLog(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Journal %d deleted\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	return cmd
}
