package engine

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
	"github.com/stevedore-dev/stevedore/internal/position"
)

// suppressed reports whether the diagnosis is silenced by a noqa comment on
// the line it points at. Both the value node and, for mapping entries, the
// key node are checked, so the comment can sit after either.
//
//	value: "{{ foo }}"  # noqa
//	value: "{{ foo }}"  # noqa: VAR002,WF001
func suppressed(root *yaml.Node, d diagnosis.Diagnosis) bool {
	if node, ok := position.NodeAt(root, d.Loc); ok {
		if noqaMatches(node.LineComment, d.Code) {
			return true
		}
	}
	if key, ok := position.KeyNodeAt(root, d.Loc); ok {
		if noqaMatches(key.LineComment, d.Code) {
			return true
		}
	}
	return false
}

// noqaMatches parses a trailing line comment. A bare "noqa" suppresses every
// code; "noqa: A,B" suppresses only the listed codes.
func noqaMatches(comment, code string) bool {
	comment = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), "#"))
	if !strings.HasPrefix(comment, "noqa") {
		return false
	}
	rest := strings.TrimPrefix(comment, "noqa")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return true
	}
	if !strings.HasPrefix(rest, ":") {
		return false
	}
	for _, listed := range strings.Split(rest[1:], ",") {
		if strings.TrimSpace(listed) == code {
			return true
		}
	}
	return false
}
