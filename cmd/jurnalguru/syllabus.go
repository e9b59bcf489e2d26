package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jurnalguru/internal/operations"
	"jurnalguru/internal/utils"
)

func newSyllabusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syllabus",
		Short: "Manage the teaching plan and its assessment templates",
	}
	cmd.AddCommand(
		newSyllabusAddCmd(),
		newSyllabusListCmd(),
		newSyllabusDeleteCmd(),
		newTemplateCmd(),
	)
	return cmd
}

func syllabusFlags(cmd *cobra.Command, in *operations.SyllabusInput) {
	cmd.Flags().StringVar(&in.Subject, "subject", "", "subject (required)")
	cmd.Flags().IntVar(&in.Level, "level", 0, "grade level 1-12 (required)")
	cmd.Flags().IntVar(&in.MeetingOrder, "meeting", 1, "meeting number within the plan")
	cmd.Flags().StringVar(&in.Objective, "objective", "", "learning objective")
	cmd.Flags().StringVar(&in.Link, "link", "", "reference URL")
}

func newSyllabusAddCmd() *cobra.Command {
	var in operations.SyllabusInput

	cmd := &cobra.Command{
		Use:   "add <topic>",
		Short: "Add a topic to the plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Topic = args[0]
			a, err := getApp()
			if err != nil {
				return err
			}
			id, err := a.Ops().AddSyllabus(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Topic %q added (id %d)\n", in.Topic, id)
			return nil
		},
	}
	syllabusFlags(cmd, &in)
	return cmd
}

func newSyllabusListCmd() *cobra.Command {
	var level int
	var subject string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the topics of a level and subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			items, err := a.Ops().SyllabusWithCounts(cmd.Context(), level, subject)
			if err != nil {
				return err
			}
			return printResult(items, func() {
				if len(items) == 0 {
					fmt.Printf("No topics for level %d %s\n", level, subject)
					return
				}
				for _, it := range items {
					fmt.Printf("%4d  %2d. %-40s  %d templates\n", it.ID, it.MeetingOrder, it.Topic, it.ExerciseCount)
				}
			})
		},
	}
	cmd.Flags().IntVar(&level, "level", 0, "grade level (required)")
	cmd.Flags().StringVar(&subject, "subject", "", "subject (required)")
	cmd.MarkFlagRequired("level")
	cmd.MarkFlagRequired("subject")
	return cmd
}

func newSyllabusDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <syllabus-id>",
		Short: "Delete a topic and its templates",
		Long: `Delete a topic and its assessment templates. Assessments already given
to a class are kept; journals pointing at the topic show it as deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "syllabus")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().DeleteSyllabus(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Topic %d deleted\n", id)
			return nil
		},
	}
}

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage reusable assessments of a topic",
	}

	var in operations.TemplateInput
	add := &cobra.Command{
		Use:   "add <syllabus-id> <name>",
		Short: "Add an assessment template to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "syllabus")
			if err != nil {
				return err
			}
			in.SyllabusID = id
			in.Name = args[1]
			a, err := getApp()
			if err != nil {
				return err
			}
			tplID, err := a.Ops().AddTemplate(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Template %q added (id %d)\n", in.Name, tplID)
			return nil
		},
	}
	add.Flags().StringVar(&in.Subject, "subject", "", "subject (required)")
	add.Flags().StringVar(&in.Type, "type", "", "assessment type, e.g. Tugas or UH (required)")
	add.Flags().StringVar(&in.Description, "description", "", "instructions")
	add.Flags().StringVar(&in.Link, "link", "", "reference URL")

	list := &cobra.Command{
		Use:   "list <syllabus-id>",
		Short: "List the templates of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "syllabus")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			tpls, err := a.Ops().TemplatesBySyllabus(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printResult(tpls, func() {
				for _, t := range tpls {
					fmt.Printf("%4d  %-30s  %-10s  %s\n", t.ID, t.Name, t.Type, t.Subject)
				}
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <template-id>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "template")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().DeleteTemplate(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Template %d deleted\n", id)
			return nil
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

type assessmentView struct {
	ID         int64  `json:"id" yaml:"id"`
	ClassID    int64  `json:"classId" yaml:"classId"`
	ClassName  string `json:"className" yaml:"className"`
	SyllabusID int64  `json:"syllabusId,omitempty" yaml:"syllabusId,omitempty"`
	Name       string `json:"name" yaml:"name"`
	Subject    string `json:"subject" yaml:"subject"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Date       string `json:"date" yaml:"date"`
}

func newAssessmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assessment",
		Aliases: []string{"nilai"},
		Short:   "Manage assessments and grades",
	}
	cmd.AddCommand(
		newAssessmentAddCmd(),
		newAssessmentListCmd(),
		newAssessmentDeleteCmd(),
		newGradesSetCmd(),
		newGradesShowCmd(),
	)
	return cmd
}

func newAssessmentAddCmd() *cobra.Command {
	var in operations.AssessmentInput
	var date string

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Give an assessment to a class",
		Long: `Create an assessment for a class, either from scratch or from a template
with --template, which copies its name, type and topic.

Examples:
  jurnalguru assessment add --class 1 --subject Matematika --type Kuis "Kuis Pecahan"
  jurnalguru assessment add --class 1 --subject Matematika --template 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := utils.ParseDateFlag(date)
			if err != nil {
				return err
			}
			in.Date = day
			if len(args) == 1 {
				in.Name = args[0]
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			id, err := a.Ops().AddAssessment(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Assessment %d created\n", id)
			return nil
		},
	}
	cmd.Flags().Int64VarP(&in.ClassID, "class", "c", 0, "class id (required)")
	cmd.RegisterFlagCompletionFunc("class", completeClassFlag)
	cmd.Flags().Int64Var(&in.TemplateID, "template", 0, "template id to copy")
	cmd.Flags().Int64Var(&in.SyllabusID, "syllabus", 0, "syllabus topic id")
	cmd.Flags().StringVar(&in.Subject, "subject", "", "subject (required)")
	cmd.Flags().StringVar(&in.Type, "type", "", "assessment type")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date YYYY-MM-DD (default today)")
	cmd.MarkFlagRequired("class")
	return cmd
}

func newAssessmentListCmd() *cobra.Command {
	var classID int64

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List assessments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			rows, err := a.Ops().ListAssessments(cmd.Context(), classID)
			if err != nil {
				return err
			}
			views := make([]assessmentView, 0, len(rows))
			for _, r := range rows {
				views = append(views, assessmentView{
					ID:         r.ID,
					ClassID:    r.ClassID,
					ClassName:  r.ClassName,
					SyllabusID: r.SyllabusID,
					Name:       r.Name,
					Subject:    r.Subject,
					Type:       r.Type,
					Date:       r.Date,
				})
			}
			return printResult(views, func() {
				for _, v := range views {
					fmt.Printf("%4d  %s  %-8s  %-30s  %s\n", v.ID, v.Date, v.ClassName, v.Name, v.Subject)
				}
			})
		},
	}
	cmd.Flags().Int64VarP(&classID, "class", "c", 0, "only this class")
	cmd.RegisterFlagCompletionFunc("class", completeClassFlag)
	return cmd
}

func newAssessmentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <assessment-id>",
		Short: "Delete an assessment and its grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "assessment")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().DeleteAssessment(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Assessment %d deleted\n", id)
			return nil
		},
	}
}

// parseGrades reads "studentID=score" pairs such as "12=87.5".
func parseGrades(pairs []string) ([]operations.GradeEntry, error) {
	entries := make([]operations.GradeEntry, 0, len(pairs))
	for _, p := range pairs {
		idStr, scoreStr, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid grade %q, expected <student-id>=<score>", p)
		}
		id, err := parseID(strings.TrimSpace(idStr), "student")
		if err != nil {
			return nil, err
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score %q for student %d", scoreStr, id)
		}
		entries = append(entries, operations.GradeEntry{StudentID: id, Score: score})
	}
	return entries, nil
}

func newGradesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grade <assessment-id> <student-id=score>...",
		Short: "Save the grades of an assessment",
		Long: `Save the grades of an assessment. The listed grades replace every grade
recorded for it before.

Example:
  jurnalguru assessment grade 3 12=87.5 15=90`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "assessment")
			if err != nil {
				return err
			}
			entries, err := parseGrades(args[1:])
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().SaveGrades(cmd.Context(), id, entries); err != nil {
				return err
			}
			fmt.Printf("✓ Saved %d grades\n", len(entries))
			return nil
		},
	}
}

func newGradesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grades <assessment-id>",
		Short: "Show the grades of an assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "assessment")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			grades, err := a.Ops().Grades(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printResult(grades, func() {
				if len(grades) == 0 {
					fmt.Println("No grades recorded")
					return
				}
				for _, g := range grades {
					fmt.Printf("%4d  %6.1f\n", g.StudentID, g.Score)
				}
			})
		},
	}
}
