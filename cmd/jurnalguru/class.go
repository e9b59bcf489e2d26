package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jurnalguru/internal/cli"
	"jurnalguru/internal/operations"
	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

func newClassCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage classes",
	}
	cmd.AddCommand(newClassAddCmd(), newClassListCmd(), newClassDeleteCmd())
	return cmd
}

func newClassAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			id, err := a.Ops().AddClass(cmd.Context(), operations.ClassInput{Name: args[0]})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Class %q created (id %d)\n", strings.TrimSpace(args[0]), id)
			return nil
		},
	}
}

func newClassListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List classes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			classes, err := a.Ops().ListClasses(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(classes, func() {
				if len(classes) == 0 {
					fmt.Println("No classes yet. Create one with 'jurnalguru class add <name>'")
					return
				}
				counts := make(map[int64]int, len(classes))
				for _, c := range classes {
					students, err := a.Ops().StudentsByClass(cmd.Context(), c.ID)
					if err != nil {
						utils.Warnf("Failed to count students of %s: %v", c.Name, err)
						continue
					}
					counts[c.ID] = len(students)
				}
				cli.ShowClasses(os.Stdout, classes, counts)
			})
		},
	}
}

func newClassDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:               "delete <class-id>",
		Short:             "Delete a class and its students",
		ValidArgsFunction: completeClassArg,
		Long: `Delete a class together with every student in it.

Attendance, grades and monitoring records of those students are kept until
'jurnalguru vacuum' removes them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "class")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			class, err := a.Ops().GetClass(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !force && !utils.Confirm(fmt.Sprintf("Delete class %q and all its students?", class.Name)) {
				fmt.Println("Cancelled")
				return nil
			}
			removed, err := a.Ops().DeleteClass(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Class %q deleted with %d students\n", class.Name, removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")
	return cmd
}

func newStudentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Manage students",
	}
	cmd.AddCommand(newStudentAddCmd(), newStudentListCmd(), newStudentUpdateCmd(), newStudentDeleteCmd())
	return cmd
}

// parseStudentArg reads "Name", "Name;NIS" or "Name;NIS;L|P".
func parseStudentArg(s string) operations.StudentInput {
	parts := strings.Split(s, ";")
	in := operations.StudentInput{Name: parts[0]}
	if len(parts) > 1 {
		in.NIS = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		in.Gender = strings.TrimSpace(parts[2])
	}
	return in
}

func newStudentAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "add <class-id> <student>...",
		Short:             "Add students to a class",
		ValidArgsFunction: completeClassArg,
		Long: `Add one or more students to a class in a single step.

Each student is "Name", "Name;NIS" or "Name;NIS;Gender" with gender L or P.
Names and NIS numbers must be unique within the class.

Examples:
  jurnalguru student add 1 "Ani Lestari;1001;P" "Budi Santoso;1002;L"
  jurnalguru student add 1 "Citra"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			classID, err := parseID(args[0], "class")
			if err != nil {
				return err
			}
			inputs := make([]operations.StudentInput, 0, len(args)-1)
			for _, arg := range args[1:] {
				inputs = append(inputs, parseStudentArg(arg))
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			ids, err := a.Ops().AddStudents(cmd.Context(), classID, inputs)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Added %d students\n", len(ids))
			return nil
		},
	}
}

func newStudentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "list <class-id>",
		Aliases:           []string{"ls"},
		Short:             "List the students of a class",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeClassArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			classID, err := parseID(args[0], "class")
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			if _, err := a.Ops().GetClass(cmd.Context(), classID); err != nil {
				return err
			}
			students, err := a.Ops().StudentsByClass(cmd.Context(), classID)
			if err != nil {
				return err
			}
			return printResult(students, func() { printStudents(students) })
		},
	}
}

func printStudents(students []store.Student) {
	if len(students) == 0 {
		fmt.Println("No students in this class")
		return
	}
	for _, s := range students {
		nis := string(s.NIS)
		if nis == "" {
			nis = "-"
		}
		fmt.Printf("%4d  %-30s  %-12s  %s\n", s.ID, s.Name, nis, s.Gender)
	}
}

func newStudentUpdateCmd() *cobra.Command {
	var name, nis, gender string
	var classID int64

	cmd := &cobra.Command{
		Use:   "update <student-id>",
		Short: "Change a student's details or move them to another class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student")
			if err != nil {
				return err
			}
			var ch operations.StudentChanges
			if cmd.Flags().Changed("name") {
				ch.Name = &name
			}
			if cmd.Flags().Changed("nis") {
				ch.NIS = &nis
			}
			if cmd.Flags().Changed("gender") {
				g := strings.ToUpper(gender)
				ch.Gender = &g
			}
			if cmd.Flags().Changed("class") {
				ch.ClassID = &classID
			}

			a, err := getApp()
			if err != nil {
				return err
			}
			if err := a.Ops().UpdateStudent(cmd.Context(), id, ch); err != nil {
				return err
			}
			fmt.Printf("✓ Student %d updated\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&nis, "nis", "", "new student number")
	cmd.Flags().StringVar(&gender, "gender", "", "L or P")
	cmd.Flags().Int64Var(&classID, "class", 0, "move to this class")
	cmd.RegisterFlagCompletionFunc("class", completeClassFlag)
	return cmd
}

func newStudentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <student-id>",
		Short: "Delete a student",
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
			if err := a.Ops().DeleteStudent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("✓ Student %d deleted\n", id)
			return nil
		},
	}
}
