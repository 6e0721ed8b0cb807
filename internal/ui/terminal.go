// Package ui styles CLI output for terminals.
package ui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// ColorEnabled reports whether ANSI colors should be written to w.
// NO_COLOR (any value) wins over CLICOLOR_FORCE=1, which wins over
// CLICOLOR=0; otherwise w must be a terminal.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch os.Getenv("CLICOLOR_FORCE") {
	case "1", "true":
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ShouldUseColor reports whether ANSI colors should be written to stdout.
func ShouldUseColor() bool {
	return ColorEnabled(os.Stdout)
}
