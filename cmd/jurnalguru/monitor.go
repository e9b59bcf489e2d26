package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"jurnalguru/internal/operations"
	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

var riskColors = map[operations.RiskLevel]lipgloss.Color{
	operations.RiskGreen:  lipgloss.Color("42"),
	operations.RiskYellow: lipgloss.Color("214"),
	operations.RiskRed:    lipgloss.Color("196"),
}

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Track student behavior, interventions and risk",
	}
	cmd.AddCommand(
		newMonitorRiskCmd(),
		newMonitorBehaviorCmd(),
		newMonitorInterventionCmd(),
		newMonitorResolveCmd(),
		newMonitorHistoryCmd(),
	)
	return cmd
}

func newMonitorRiskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "risk <student-id>",
		Short: "Analyze a student's risk level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			report, err := a.Ops().AnalyzeRisk(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printResult(report, func() {
				badge := lipgloss.NewStyle().Bold(true).Foreground(riskColors[report.Level]).Render(string(report.Level))
				fmt.Printf("Risk: %s\n", badge)
				for _, f := range report.Factors {
					fmt.Printf("  • %s\n", f)
				}
				s := report.Stats
				fmt.Printf("Attendance: %d sick, %d excused, %d absent, %d truant\n", s.Sick, s.Excused, s.Absent, s.Truant)
				if report.HasActiveIntervention {
					fmt.Println("An intervention is in progress")
				}
			})
		},
	}
}

func newMonitorBehaviorCmd() *cobra.Command {
	var in operations.BehaviorInput
	var date, typ string

	cmd := &cobra.Command{
		Use:   "behavior <student-id> <description>",
		Short: "Log a positive or negative behavior",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student")
			if err != nil {
				return err
			}
			day, err := utils.ParseDateFlag(date)
			if err != nil {
				return err
			}
			in.StudentID = id
			in.Description = args[1]
			in.Date = day
			in.Type = store.BehaviorType(typ)

			a, err := getApp()
			if err != nil {
				return err
			}
			logID, err := a.Ops().AddBehaviorLog(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Behavior log %d saved\n", logID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "negative", "positive or negative")
	cmd.Flags().StringVar(&in.Category, "category", "", "category, e.g. Disiplin")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date YYYY-MM-DD (default today)")
	return cmd
}

func newMonitorInterventionCmd() *cobra.Command {
	var in operations.InterventionInput
	var date string

	cmd := &cobra.Command{
		Use:   "intervene <student-id> <problem>",
		Short: "Open an intervention case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student")
			if err != nil {
				return err
			}
			day, err := utils.ParseDateFlag(date)
			if err != nil {
				return err
			}
			in.StudentID = id
			in.ProblemSummary = args[1]
			in.StartDate = day

			a, err := getApp()
			if err != nil {
				return err
			}
			ivID, err := a.Ops().CreateIntervention(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Intervention %d opened\n", ivID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Trigger, "trigger", "", "what prompted the intervention")
	cmd.Flags().StringVar(&in.ActionPlan, "plan", "", "planned actions")
	cmd.Flags().StringVarP(&date, "date", "d", "", "start date YYYY-MM-DD (default today)")
	return cmd
}

func newMonitorResolveCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "resolve <intervention-id>",
		Short: "Close an intervention with its outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "intervention")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().ResolveIntervention(cmd.Context(), id, notes); err != nil {
				return err
			}
			fmt.Printf("✓ Intervention %d resolved\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "outcome notes")
	return cmd
}

func newMonitorHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <student-id>",
		Short: "Show a student's behavior and intervention timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			entries, err := a.Ops().StudentHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printResult(entries, func() {
				if len(entries) == 0 {
					fmt.Println("Nothing recorded for this student")
					return
				}
				for _, e := range entries {
					fmt.Printf("%s  %s\n", e.Date, describeTimeline(e))
				}
			})
		},
	}
}

func describeTimeline(e operations.TimelineEntry) string {
	switch {
	case e.Behavior != nil:
		b := e.Behavior
		parts := []string{strings.ToLower(string(b.Type))}
		if b.Category != "" {
			parts = append(parts, "["+b.Category+"]")
		}
		if b.Description != "" {
			parts = append(parts, b.Description)
		}
		return strings.Join(parts, " ")
	case e.Intervention != nil:
		iv := e.Intervention
		s := fmt.Sprintf("intervention #%d (%s) %s", iv.ID, strings.ToLower(iv.Status), iv.ProblemSummary)
		if iv.ResultNotes != "" {
			s += ": " + iv.ResultNotes
		}
		return s
	}
	return string(e.Kind)
}

func newIdeaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "idea",
		Short: "Keep teaching ideas",
	}

	var content, tags string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Save an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			id, err := a.Ops().AddIdea(cmd.Context(), operations.IdeaInput{
				Title:   args[0],
				Content: content,
				Tags:    operations.SplitTags(tags),
			})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Idea %d saved\n", id)
			return nil
		},
	}
	add.Flags().StringVar(&content, "content", "", "details")
	add.Flags().StringVar(&tags, "tags", "", "comma-separated tags")

	var all bool
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List ideas, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			ideas, err := a.Ops().ListIdeas(cmd.Context(), all)
			if err != nil {
				return err
			}
			return printResult(ideas, func() {
				for _, i := range ideas {
					archived := ""
					if i.IsArchived != 0 {
						archived = " (archived)"
					}
					fmt.Printf("%4d  %s%s", i.ID, i.Title, archived)
					if len(i.Tags) > 0 {
						fmt.Printf("  #%s", strings.Join(i.Tags, " #"))
					}
					fmt.Println()
				}
			})
		},
	}
	list.Flags().BoolVarP(&all, "all", "a", false, "include archived ideas")

	archive := &cobra.Command{
		Use:   "archive <idea-id>",
		Short: "Archive an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "idea")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().ArchiveIdea(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Idea %d archived\n", id)
			return nil
		},
	}

	cmd.AddCommand(add, list, archive)
	return cmd
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change stored settings",
		Long: `Settings live in the database and travel with backups.

Known keys: teacherName, schoolName, mySubjects (comma-separated).`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every setting",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			settings, err := a.Ops().ListSettings(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(settings, func() {
				for _, s := range settings {
					fmt.Printf("%-16s %v\n", s.Key, s.Value)
				}
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value any = args[1]
			if args[0] == operations.SettingSubjects {
				value = operations.SplitTags(args[1])
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().PutSetting(cmd.Context(), args[0], value); err != nil {
				return err
			}
			fmt.Printf("✓ %s updated\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, set)
	return cmd
}
