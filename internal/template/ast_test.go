package template

import (
	"reflect"
	"testing"
)

func TestParse_PlainText(t *testing.T) {
	doc := Parse("just some text")

	if len(doc.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(doc.Nodes))
	}
	text, ok := doc.Nodes[0].(*PlainText)
	if !ok {
		t.Fatalf("node is %T, want *PlainText", doc.Nodes[0])
	}
	if text.Text != "just some text" {
		t.Errorf("Text = %q", text.Text)
	}
}

func TestParse_SimpleReference(t *testing.T) {
	doc := Parse("Hello, {{ inputs.parameters.name }}!")

	if len(doc.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(doc.Nodes))
	}
	tag, ok := doc.Nodes[1].(*SimpleReferenceTag)
	if !ok {
		t.Fatalf("node is %T, want *SimpleReferenceTag", doc.Nodes[1])
	}
	if tag.Raw != "{{ inputs.parameters.name }}" {
		t.Errorf("Raw = %q", tag.Raw)
	}
	want := []string{"inputs", "parameters", "name"}
	if !reflect.DeepEqual(tag.Reference, want) {
		t.Errorf("Reference = %v, want %v", tag.Reference, want)
	}
}

func TestParse_OddSpacing(t *testing.T) {
	// spacing is preserved in Raw but irrelevant to the extracted reference
	doc := Parse("{{workflow.name   }}")

	tag, ok := doc.Nodes[0].(*SimpleReferenceTag)
	if !ok {
		t.Fatalf("node is %T, want *SimpleReferenceTag", doc.Nodes[0])
	}
	if tag.Raw != "{{workflow.name   }}" {
		t.Errorf("Raw = %q", tag.Raw)
	}
	want := []string{"workflow", "name"}
	if !reflect.DeepEqual(tag.Reference, want) {
		t.Errorf("Reference = %v, want %v", tag.Reference, want)
	}
}

func TestParse_ExpressionTag(t *testing.T) {
	doc := Parse(`{{= inputs.parameters.a + 1 }}`)

	if len(doc.Nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(doc.Nodes))
	}
	tag, ok := doc.Nodes[0].(*ExpressionTag)
	if !ok {
		t.Fatalf("node is %T, want *ExpressionTag", doc.Nodes[0])
	}
	if tag.Literal != `{{= inputs.parameters.a + 1 }}` {
		t.Errorf("Literal = %q", tag.Literal)
	}
	if got := doc.References(); len(got) != 0 {
		t.Errorf("expression tags must not contribute references, got %v", got)
	}
}

func TestParse_UnterminatedTag(t *testing.T) {
	doc := Parse("Hello {{ foo")

	if len(doc.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(doc.Nodes))
	}
	unexpected, ok := doc.Nodes[1].(*Unexpected)
	if !ok {
		t.Fatalf("node is %T, want *Unexpected", doc.Nodes[1])
	}
	if unexpected.Text != "{{ foo" {
		t.Errorf("Text = %q", unexpected.Text)
	}
	if unexpected.Msg != "expect closing tag '}}'" {
		t.Errorf("Msg = %q", unexpected.Msg)
	}
}

func TestParse_StrayTokenInTag(t *testing.T) {
	// The tag body falls apart at '!': the consumed prefix and the stray
	// token become separate error nodes with no message, since the offending
	// token itself is visible right there.
	doc := Parse("Hello {{ foo !")

	if len(doc.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3: %#v", len(doc.Nodes), doc.Nodes)
	}
	first, ok := doc.Nodes[1].(*Unexpected)
	if !ok {
		t.Fatalf("node 1 is %T, want *Unexpected", doc.Nodes[1])
	}
	if first.Text != "{{ foo " || first.Msg != "" {
		t.Errorf("node 1 = {%q, %q}", first.Text, first.Msg)
	}
	second, ok := doc.Nodes[2].(*Unexpected)
	if !ok {
		t.Fatalf("node 2 is %T, want *Unexpected", doc.Nodes[2])
	}
	if second.Text != "!" || second.Msg != "" {
		t.Errorf("node 2 = {%q, %q}", second.Text, second.Msg)
	}
}

func TestParse_TrailingDot(t *testing.T) {
	// "{{ foo.}}": the dot is not followed by a name, so the tag cannot
	// close and the parser degrades to error nodes.
	doc := Parse("{{ foo.}}")

	for _, node := range doc.Nodes {
		if _, ok := node.(*SimpleReferenceTag); ok {
			t.Fatalf("trailing dot must not parse as a reference: %#v", node)
		}
	}
}

// Parsing is total: any input yields a document whose nodes reconstruct the
// input exactly.
func TestParse_Lossless(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"{{ a.b.c }}",
		"{{= whatever(1, 2) }}",
		"{{ broken",
		"{{= broken",
		"{{ a. }}",
		"{{ .a }}",
		"{{ }}",
		"{{}}",
		"Hello {{ foo !",
		"{{ foo }} and {{= bar }} and junk {{",
		"}} {{",
	}

	for _, input := range inputs {
		doc := ParseTokens(Tokenize(input))
		var rebuilt string
		for _, node := range doc.Nodes {
			switch n := node.(type) {
			case *PlainText:
				rebuilt += n.Text
			case *SimpleReferenceTag:
				rebuilt += n.Raw
			case *ExpressionTag:
				rebuilt += n.Literal
			case *Unexpected:
				rebuilt += n.Text
			default:
				t.Fatalf("unhandled node type %T", node)
			}
		}
		if rebuilt != input {
			t.Errorf("nodes of %q rebuild to %q", input, rebuilt)
		}
	}
}

func TestParse_Memoized(t *testing.T) {
	a := Parse("memo {{ x.y }}")
	b := Parse("memo {{ x.y }}")
	if a != b {
		t.Error("repeated Parse of the same input should return the cached document")
	}
}

func TestDocument_References(t *testing.T) {
	doc := Parse("{{ a.b }} mid {{ c }} {{= expr }}")

	refs := doc.References()
	if len(refs) != 2 {
		t.Fatalf("got %d references, want 2", len(refs))
	}
	if !reflect.DeepEqual(refs[0].Reference, []string{"a", "b"}) {
		t.Errorf("refs[0] = %v", refs[0].Reference)
	}
	if !reflect.DeepEqual(refs[1].Reference, []string{"c"}) {
		t.Errorf("refs[1] = %v", refs[1].Reference)
	}
}

func TestFormatReference(t *testing.T) {
	tests := []struct {
		ref  []string
		want string
	}{
		{[]string{"inputs", "parameters", "message"}, "{{ inputs.parameters.message }}"},
		{[]string{"item"}, "{{ item }}"},
		{nil, ""},
		{[]string{}, ""},
	}
	for _, tt := range tests {
		if got := FormatReference(tt.ref); got != tt.want {
			t.Errorf("FormatReference(%v) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
