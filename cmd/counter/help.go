package main

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/suicounter/internal/ui"
)

// helpFunc prints cobra's usage text, colored when the output supports it.
func helpFunc(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	if noColor || !ui.ColorEnabled(out) {
		_ = cmd.Usage()
		return
	}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	_ = cmd.Usage()
	cmd.SetOut(out)
	fmt.Fprint(out, colorizeHelpOutput(buf.String()))
}

func colorizeHelpOutput(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = colorizeHelpLine(line)
	}
	return strings.Join(lines, "\n")
}

// colorizeHelpLine styles one usage line: section headers ("Flags:"),
// command rows ("  increment   ..."), and flag rows ("  -j, --json ...").
func colorizeHelpLine(line string) string {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return line
	case line == trimmed && strings.HasSuffix(line, ":"):
		return ui.RenderAccent(line)
	case strings.HasPrefix(trimmed, "-"):
		return colorizeFlagLine(line)
	case strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "   "):
		name, rest, ok := strings.Cut(line[2:], "  ")
		if !ok || strings.ContainsRune(name, ' ') {
			return line
		}
		return "  " + ui.RenderCommand(name) + "  " + rest
	}
	return line
}

var flagTypes = []string{"string", "strings", "int", "duration", "float"}

func colorizeFlagLine(line string) string {
	// cobra pads the flag definition from its usage with at least three spaces.
	indent := len(line) - len(strings.TrimLeft(line, " "))
	def, usage, ok := strings.Cut(line[indent:], "   ")
	if !ok {
		return line
	}
	if i := strings.LastIndexByte(def, ' '); i >= 0 && slices.Contains(flagTypes, def[i+1:]) {
		def = def[:i+1] + ui.RenderMuted(def[i+1:])
	}
	if i := strings.LastIndex(usage, "(default "); i >= 0 && strings.HasSuffix(usage, ")") {
		usage = usage[:i] + ui.RenderMuted(usage[i:])
	}
	return line[:indent] + def + "   " + usage
}
