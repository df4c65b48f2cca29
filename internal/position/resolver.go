// Package position maps abstract document paths back to source positions.
// It consumes the position-annotated node tree produced by yaml.v3 and never
// constructs one itself.
package position

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
)

// Resolve walks the document tree along the path and returns a best-effort
// 0-based (line, column). It always returns a position: when navigation
// fails partway, the last successfully visited node's position is used. A
// degraded-but-present location is strictly better than none.
//
// When needle is non-empty and the resolved value is a scalar containing it,
// the position is refined to the needle's exact offset, with column math
// specific to the scalar style. Folded block scalars and plain scalars
// participating in an anchor/alias relationship join or relocate their
// lines, so refinement is skipped for those and the value position is
// returned instead.
func Resolve(root *yaml.Node, path diagnosis.Loc, needle string) (int, int) {
	walk := navigate(root, path)
	if !walk.complete {
		return walk.fallbackLine, walk.fallbackCol
	}

	node := walk.node

	// An alias reference shares content with its anchor but must be reported
	// where the alias is written. yaml.v3 places the alias node at the
	// `*name` usage itself, so its own position is the right one; the
	// anchored content cannot be searched meaningfully.
	if node.Kind == yaml.AliasNode {
		return node.Line - 1, node.Column - 1
	}

	if needle != "" && node.Kind == yaml.ScalarNode && !walk.viaAlias && node.Anchor == "" {
		if line, col, ok := refine(walk, needle); ok {
			return line, col
		}
	}

	return node.Line - 1, node.Column - 1
}

// NodeAt returns the node the path resolves to, when the full path can be
// navigated.
func NodeAt(root *yaml.Node, path diagnosis.Loc) (*yaml.Node, bool) {
	walk := navigate(root, path)
	if !walk.complete {
		return nil, false
	}
	return walk.node, true
}

// KeyNodeAt returns the mapping key node of the final path segment, when the
// path ends at a mapping entry.
func KeyNodeAt(root *yaml.Node, path diagnosis.Loc) (*yaml.Node, bool) {
	walk := navigate(root, path)
	if !walk.complete || walk.keyNode == nil {
		return nil, false
	}
	return walk.keyNode, true
}

// walkState is the result of navigating a path through the tree.
type walkState struct {
	node     *yaml.Node // resolved node (aliases not dereferenced)
	parent   *yaml.Node // parent container of node
	keyNode  *yaml.Node // mapping key node when parent is a mapping
	complete bool
	viaAlias bool // navigation passed through an alias

	indent       int // detected indent size, for literal block math
	fallbackLine int
	fallbackCol  int
}

func navigate(root *yaml.Node, path diagnosis.Loc) walkState {
	state := walkState{indent: 2}
	if root == nil {
		return state
	}

	current := root
	if current.Kind == yaml.DocumentNode && len(current.Content) > 0 {
		current = current.Content[0]
	}
	state.fallbackLine = current.Line - 1
	state.fallbackCol = current.Column - 1

	for _, segment := range path {
		container := current
		if container.Kind == yaml.AliasNode && container.Alias != nil {
			container = container.Alias
			state.viaAlias = true
		}

		var (
			child   *yaml.Node
			keyNode *yaml.Node
		)
		switch key := segment.(type) {
		case string:
			if container.Kind != yaml.MappingNode {
				return state
			}
			for i := 0; i+1 < len(container.Content); i += 2 {
				if container.Content[i].Value == key {
					keyNode = container.Content[i]
					child = container.Content[i+1]
					break
				}
			}
		case int:
			if container.Kind != yaml.SequenceNode || key < 0 || key >= len(container.Content) {
				return state
			}
			child = container.Content[key]
		default:
			return state
		}
		if child == nil {
			return state
		}

		state.parent = container
		state.keyNode = keyNode
		state.fallbackLine = child.Line - 1
		state.fallbackCol = child.Column - 1
		// Scalar values start wherever their content happens to sit, so only
		// container children reveal the document's indent unit.
		if child.Kind == yaml.MappingNode || child.Kind == yaml.SequenceNode {
			if delta := child.Column - container.Column; delta > 0 {
				state.indent = delta
			}
		}
		current = child
	}

	state.node = current
	state.complete = true
	return state
}

// refine locates the needle inside the resolved scalar and computes its
// position with style-specific column math.
func refine(walk walkState, needle string) (int, int, bool) {
	node := walk.node
	idx := strings.Index(node.Value, needle)
	if idx < 0 {
		return 0, 0, false
	}
	before := node.Value[:idx]

	switch node.Style {
	case yaml.LiteralStyle:
		// The node position points at the `|` indicator; content starts on
		// the following line.
		linesBefore := strings.Count(before, "\n")
		lineOffset := idx - strings.LastIndex(before, "\n") - 1
		line := (node.Line - 1) + 1 + linesBefore

		if walk.parent != nil && walk.parent.Kind == yaml.MappingNode && walk.keyNode != nil {
			return line, (walk.keyNode.Column - 1) + walk.indent + lineOffset, true
		}
		if walk.parent != nil && walk.parent.Kind == yaml.SequenceNode {
			return line, (node.Column - 1) + lineOffset, true
		}
		return 0, 0, false

	case yaml.FoldedStyle:
		// adjacent lines are joined; the position cannot be recovered
		return 0, 0, false

	case yaml.SingleQuotedStyle, yaml.DoubleQuotedStyle:
		if strings.Contains(before, "\n") {
			return 0, 0, false
		}
		// one extra column for the opening quote
		return node.Line - 1, (node.Column - 1) + 1 + idx, true

	default:
		if strings.Contains(before, "\n") {
			return 0, 0, false
		}
		return node.Line - 1, (node.Column - 1) + idx, true
	}
}
