package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
)

// GitHub renders workflow-command annotations, one ::error/::warning line per
// finding, so findings show up inline on pull requests.
type GitHub struct{}

func (*GitHub) Format(w io.Writer, items []Item) error {
	for _, item := range items {
		command := "error"
		if item.Severity == diagnosis.SeverityWarning {
			command = "warning"
		}
		msg := item.Msg
		if item.Fix != "" {
			msg += fmt.Sprintf(" Suggested fix: %s", item.Fix)
		}
		if _, err := fmt.Fprintf(w, "::%s file=%s,line=%d,col=%d,title=%s::%s\n",
			command, item.File, item.Line, item.Column,
			escapeProperty(fmt.Sprintf("%s %s", item.Code, item.Summary)),
			escapeData(msg),
		); err != nil {
			return err
		}
	}
	return nil
}

// Workflow commands require percent-encoding of newlines and delimiters.
var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func escapeData(s string) string     { return dataEscaper.Replace(s) }
func escapeProperty(s string) string { return propertyEscaper.Replace(s) }
