package template

import (
	"fmt"
	"strings"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
	"github.com/stevedore-dev/stevedore/internal/reference"
)

// ReportSyntaxErrors walks the parsed document and reports a VAR001
// diagnosis for every syntax error. Runs of adjacent Unexpected siblings
// without a message are merged into a single diagnosis, since the parser
// creates one node per stray token and reporting each separately would bury
// the user. A node carrying its own message is reported standalone.
func ReportSyntaxErrors(node Node) []diagnosis.Diagnosis {
	var diagnoses []diagnosis.Diagnosis

	if unexpected, ok := node.(*Unexpected); ok {
		msg := fmt.Sprintf("Invalid syntax near '%s'", unexpected.Text)
		if unexpected.Msg != "" {
			msg += ": " + unexpected.Msg
		}
		diagnoses = append(diagnoses, diagnosis.Diagnosis{
			Code:    diagnosis.CodeSyntaxError,
			Loc:     diagnosis.Loc{},
			Summary: "Syntax error",
			Msg:     msg,
			Input:   unexpected.Text,
		})
	}

	children := node.Children()
	for i := 0; i < len(children); {
		// collect a run of consecutive message-less Unexpected nodes
		var run []*Unexpected
		for i < len(children) {
			unexpected, ok := children[i].(*Unexpected)
			if !ok || unexpected.Msg != "" {
				break
			}
			run = append(run, unexpected)
			i++
		}

		if len(run) > 0 {
			text := ""
			for _, node := range run {
				text += node.Text
			}
			diagnoses = append(diagnoses, diagnosis.Diagnosis{
				Code:    diagnosis.CodeSyntaxError,
				Loc:     diagnosis.Loc{},
				Summary: "Syntax error",
				Msg:     fmt.Sprintf("Invalid syntax near '%s'", text),
				Input:   text,
			})
			continue
		}

		diagnoses = append(diagnoses, ReportSyntaxErrors(children[i])...)
		i++
	}

	return diagnoses
}

// CheckValueReferences parses the value and reports tag syntax errors plus a
// VAR002 diagnosis for every reference that does not resolve against the
// given collection. When a near miss exists, the diagnosis carries the
// canonical form of the closest match as the suggested fix.
func CheckValueReferences(value string, refs *reference.Collection) []diagnosis.Diagnosis {
	doc := Parse(value)
	diagnoses := ReportSyntaxErrors(doc)

	for _, match := range doc.References() {
		if refs.Contains(match.Reference) {
			continue
		}
		closest := refs.FindClosest(match.Reference)
		diagnoses = append(diagnoses, diagnosis.Diagnosis{
			Code:    diagnosis.CodeInvalidReference,
			Loc:     diagnosis.Loc{},
			Summary: "Invalid reference",
			Msg:     fmt.Sprintf("The used reference '%s' is invalid.", strings.Join(match.Reference, ".")),
			Input:   match.Tag.String(),
			Fix:     FormatReference(closest),
			Ctx: map[string]any{
				"ref":     match.Reference,
				"closest": closest,
			},
		})
	}

	return diagnoses
}
