package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"jurnalguru/store"
)

// GetTerminalWidth returns the current terminal width, defaulting to 80 if unable to detect
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return width
}

func boxWidth(termWidth int) int {
	w := termWidth - 2
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// ShowClasses writes a bordered list of classes with their student counts.
func ShowClasses(w io.Writer, classes []store.Class, studentCounts map[int64]int) {
	borderWidth := boxWidth(GetTerminalWidth())

	headerText := "─ Classes "
	headerPadding := borderWidth - len([]rune(headerText))
	if headerPadding < 0 {
		headerPadding = 0
	}
	fmt.Fprintf(w, "\n\033[1;36m┌%s%s┐\033[0m\n", headerText, strings.Repeat("─", headerPadding))

	const (
		nameColor  = "\033[1;37m"
		numColor   = "\033[36m"
		countColor = "\033[90m"
		reset      = "\033[0m"
	)
	for _, c := range classes {
		fmt.Fprintf(w, "  %s%4d%s  %s%-30s%s", numColor, c.ID, reset, nameColor, c.Name, reset)
		if n := studentCounts[c.ID]; n > 0 {
			fmt.Fprintf(w, " %s(%d student", countColor, n)
			if n != 1 {
				fmt.Fprint(w, "s")
			}
			fmt.Fprintf(w, ")%s", reset)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;36m└%s┘\033[0m\n", strings.Repeat("─", borderWidth))
}
