package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Confirm asks a yes/no question. On an interactive terminal it shows a huh
// confirm dialog; otherwise it reads a line from stdin.
func Confirm(question string) bool {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		var ok bool
		err := huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&ok).
			Run()
		if err != nil {
			Debugf("confirm dialog aborted: %v", err)
			return false
		}
		return ok
	}
	return PromptYesNo(os.Stdin, os.Stdout, question)
}

// PromptYesNo writes question to w and reads answers from r until one is y
// or n. End of input counts as no.
func PromptYesNo(r io.Reader, w io.Writer, question string) bool {
	reader := bufio.NewReader(r)
	for {
		fmt.Fprintf(w, "%s (y/n): ", question)
		response, err := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(response)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		if err != nil {
			return false
		}
		fmt.Fprintln(w, "Please enter y or n")
	}
}
