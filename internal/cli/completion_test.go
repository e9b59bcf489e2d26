package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"jurnalguru/store"
)

var testClasses = []store.Class{
	{ID: 1, Name: "7A"},
	{ID: 2, Name: "7B"},
	{ID: 12, Name: "Kelas Tahfidz"},
}

func TestMatchClasses(t *testing.T) {
	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"1\t7A", "2\t7B", "12\tKelas Tahfidz"}},
		{"1", []string{"1\t7A", "12\tKelas Tahfidz"}},
		{"7", []string{"1\t7A", "2\t7B"}},
		{"kelas", []string{"12\tKelas Tahfidz"}},
		{"9", nil},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			got := MatchClasses(testClasses, tt.prefix)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("MatchClasses(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestClassCompletion(t *testing.T) {
	list := func(ctx context.Context) ([]store.Class, error) { return testClasses, nil }
	complete := ClassCompletion(list)
	cmd := &cobra.Command{}

	got, directive := complete(cmd, nil, "7")
	if len(got) != 2 {
		t.Errorf("Expected 2 completions, got %q", got)
	}
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("Unexpected directive %v", directive)
	}

	if got, _ := complete(cmd, []string{"1"}, ""); got != nil {
		t.Errorf("Only the first argument should complete, got %q", got)
	}
}

func TestClassCompletion_ListError(t *testing.T) {
	list := func(ctx context.Context) ([]store.Class, error) { return nil, errors.New("locked") }
	_, directive := ClassFlagCompletion(list)(&cobra.Command{}, nil, "")
	if directive != cobra.ShellCompDirectiveError {
		t.Errorf("Expected error directive, got %v", directive)
	}
}

func TestShowClasses(t *testing.T) {
	var buf bytes.Buffer
	ShowClasses(&buf, testClasses, map[int64]int{1: 30, 2: 1})
	out := buf.String()

	for _, want := range []string{"Classes", "7A", "(30 students)", "(1 student)", "Kelas Tahfidz"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "student") != 2 {
		t.Errorf("A class without students should show no count:\n%s", out)
	}
}
