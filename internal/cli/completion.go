package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jurnalguru/store"
)

// ClassLister loads the classes offered for completion.
type ClassLister func(ctx context.Context) ([]store.Class, error)

// ClassCompletion completes class ids, showing the class name as the
// description. Only the first positional argument is completed.
func ClassCompletion(list ClassLister) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return ClassFlagCompletion(list)(cmd, args, toComplete)
	}
}

// ClassFlagCompletion completes a class id flag. A prefix matches either
// the id or the class name.
func ClassFlagCompletion(list ClassLister) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		classes, err := list(ctx)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return MatchClasses(classes, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

// MatchClasses returns "id\tname" completions for classes whose id or
// name starts with prefix, ignoring case.
func MatchClasses(classes []store.Class, prefix string) []string {
	prefix = strings.ToLower(prefix)
	var completions []string
	for _, c := range classes {
		id := strconv.FormatInt(c.ID, 10)
		if strings.HasPrefix(id, prefix) || strings.HasPrefix(strings.ToLower(c.Name), prefix) {
			completions = append(completions, id+"\t"+c.Name)
		}
	}
	return completions
}
