// Package termstyle styles CLI output when stdout is a terminal.
package termstyle

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var output = termenv.NewOutput(os.Stdout)

// enabled tracks whether styling is active. Defaults to true if stdout is
// a TTY.
var enabled = term.IsTerminal(int(os.Stdout.Fd()))

// SetEnabled overrides the auto-detected TTY check.
func SetEnabled(on bool) {
	enabled = on
}

// Enabled returns whether styling is currently active.
func Enabled() bool {
	return enabled
}

// Bold renders text in bold.
func Bold(s string) string {
	if !enabled || s == "" {
		return s
	}
	return output.String(s).Bold().String()
}

// Dim renders text in dim/faint.
func Dim(s string) string {
	if !enabled || s == "" {
		return s
	}
	return output.String(s).Faint().String()
}

// Green renders text in green.
func Green(s string) string {
	if !enabled || s == "" {
		return s
	}
	return output.String(s).Foreground(termenv.ANSIGreen).String()
}

// Cyan renders text in cyan.
func Cyan(s string) string {
	if !enabled || s == "" {
		return s
	}
	return output.String(s).Foreground(termenv.ANSICyan).String()
}

// Yellow renders text in yellow.
func Yellow(s string) string {
	if !enabled || s == "" {
		return s
	}
	return output.String(s).Foreground(termenv.ANSIYellow).String()
}

// GreenDot marks a focused window in listings.
func GreenDot() string { return Green("●") }

// DimDot marks an unfocused window in listings.
func DimDot() string { return Dim("○") }
