package format

import (
	"fmt"
	"io"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Console renders a human-readable report with file:line:column anchors and a
// closing summary line.
type Console struct {
	Color bool
}

func (c *Console) paint(color, s string) string {
	if !c.Color {
		return s
	}
	return color + s + ansiReset
}

func (c *Console) severityLabel(severity diagnosis.Severity) string {
	switch severity {
	case diagnosis.SeverityWarning:
		return c.paint(ansiYellow, "warning")
	case diagnosis.SeverityFailure:
		return c.paint(ansiRed, "failure")
	default:
		return c.paint(ansiRed, "error")
	}
}

func (c *Console) Format(w io.Writer, items []Item) error {
	var errors, warnings, failures int

	for _, item := range items {
		switch item.Severity {
		case diagnosis.SeverityWarning:
			warnings++
		case diagnosis.SeverityFailure:
			failures++
		default:
			errors++
		}

		anchor := fmt.Sprintf("%s:%d:%d", item.File, item.Line, item.Column)
		if _, err := fmt.Fprintf(w, "%s: %s %s %s\n",
			c.paint(ansiBold, anchor),
			c.severityLabel(item.Severity),
			c.paint(ansiCyan, item.Code),
			item.Msg,
		); err != nil {
			return err
		}
		if item.Fix != "" {
			if _, err := fmt.Fprintf(w, "  suggestion: %s\n", item.Fix); err != nil {
				return err
			}
		}
	}

	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No problems found.")
		return err
	}

	_, err := fmt.Fprintf(w, "\nFound %d problems (%d errors, %d warnings, %d failures)\n",
		len(items), errors, warnings, failures)
	return err
}
