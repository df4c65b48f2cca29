// Package format renders analysis reports for people and machines.
package format

import (
	"fmt"
	"io"

	"github.com/stevedore-dev/stevedore/internal/config"
	"github.com/stevedore-dev/stevedore/internal/diagnosis"
)

// Item is one diagnosis anchored to its source position. Line and Column are
// 1-based, the way editors and CI annotations count.
type Item struct {
	File   string
	Line   int
	Column int
	diagnosis.Diagnosis
}

// Formatter renders a full report to a writer.
type Formatter interface {
	Format(w io.Writer, items []Item) error
}

// New returns the formatter for the configured output format.
func New(cfg *config.Config, colorize bool) (Formatter, error) {
	switch cfg.Output.Format {
	case config.OutputConsole:
		return &Console{Color: colorize}, nil
	case config.OutputJSON:
		return &JSON{}, nil
	case config.OutputJUnit:
		return &JUnit{}, nil
	case config.OutputGitHub:
		return &GitHub{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}
}
