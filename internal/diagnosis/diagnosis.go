// Package diagnosis defines the structured findings reported by stevedore.
package diagnosis

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies how a diagnosis should be treated by consumers.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityFailure Severity = "failure" // internal errors of the analyzer itself
)

// Diagnosis codes owned by the template-tag core.
const (
	CodeSyntaxError      = "VAR001" // malformed template tag
	CodeInvalidReference = "VAR002" // reference does not resolve in the active context
)

// Diagnosis codes owned by the manifest analyzers.
const (
	CodeNotAManifest        = "M001" // input does not look like a manifest
	CodeUnsupportedKind     = "M002" // manifest kind is not supported
	CodeMalformedManifest   = "M003" // manifest does not match the expected schema
	CodeInternalError       = "F001" // analyzer failure
	CodeMalformedDocument   = "F002" // document is not valid YAML
	CodeUnknownEntrypoint   = "WF001"
	CodeDuplicateTemplate   = "WF002"
	CodeDuplicateInputParam = "TPL001"
	CodeDuplicateInputArt   = "TPL002"
	CodeUnknownStepTemplate = "STP001"
)

// Diagnosis is a single finding, anchored to a path into the manifest
// document. Loc is relative to the field being analyzed until the dispatcher
// prepends the absolute prefix.
type Diagnosis struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Loc      Loc            `json:"loc"`
	Summary  string         `json:"summary,omitempty"`
	Msg      string         `json:"msg"`
	Input    string         `json:"input,omitempty"`
	Fix      string         `json:"fix,omitempty"`
	Ctx      map[string]any `json:"ctx,omitempty"`
}

// Loc is a path of mapping keys (string) and sequence indices (int) into the
// parsed document.
type Loc []any

// WithPrefix returns a new Loc with the given segments prepended.
func (l Loc) WithPrefix(prefix ...any) Loc {
	out := make(Loc, 0, len(prefix)+len(l))
	out = append(out, prefix...)
	out = append(out, l...)
	return out
}

// String renders the path in dotted/indexed notation, e.g.
// "spec.templates[0].name".
func (l Loc) String() string {
	var b strings.Builder
	for _, seg := range l {
		switch v := seg.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			fmt.Fprintf(&b, "%v", v)
		}
	}
	return b.String()
}

// Compare orders two locations element-wise. Integers sort before strings at
// the same position so sibling list entries group together.
func (l Loc) Compare(other Loc) int {
	n := min(len(l), len(other))
	for i := 0; i < n; i++ {
		if c := compareSegment(l[i], other[i]); c != 0 {
			return c
		}
	}
	return len(l) - len(other)
}

func compareSegment(a, b any) int {
	ai, aInt := a.(int)
	bi, bInt := b.(int)
	switch {
	case aInt && bInt:
		return ai - bi
	case aInt:
		return -1
	case bInt:
		return 1
	}
	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

// Prepend applies a location prefix to every diagnosis in the slice and
// returns it for chaining.
func Prepend(prefix Loc, diagnoses []Diagnosis) []Diagnosis {
	for i := range diagnoses {
		diagnoses[i].Loc = diagnoses[i].Loc.WithPrefix(prefix...)
	}
	return diagnoses
}

// Normalize fills defaulted fields: missing severity becomes error, a missing
// summary is derived from the first sentence of the message.
func Normalize(d Diagnosis) Diagnosis {
	if d.Severity == "" {
		d.Severity = SeverityError
	}
	if d.Loc == nil {
		d.Loc = Loc{}
	}
	d.Msg = strings.TrimSpace(d.Msg)
	if d.Summary == "" && d.Msg != "" {
		first := d.Msg
		if idx := strings.IndexByte(first, '\n'); idx >= 0 {
			first = first[:idx]
		}
		if idx := strings.Index(first, ". "); idx >= 0 {
			first = first[:idx]
		}
		d.Summary = strings.TrimSpace(first)
	}
	return d
}

// Sort orders diagnoses by location, then code, keeping the report stable for
// a fixed input.
func Sort(diagnoses []Diagnosis) {
	sort.SliceStable(diagnoses, func(i, j int) bool {
		if c := diagnoses[i].Loc.Compare(diagnoses[j].Loc); c != 0 {
			return c < 0
		}
		return diagnoses[i].Code < diagnoses[j].Code
	})
}
