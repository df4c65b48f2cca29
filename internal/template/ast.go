package template

import (
	"strings"

	"github.com/stevedore-dev/stevedore/internal/lru"
)

// Node is one element of a parsed tag document. Nodes are immutable once
// constructed.
type Node interface {
	// Children returns nested nodes; only Document carries any.
	Children() []Node
}

// Document is the root node: the ordered children reconstruct the source
// text exactly.
type Document struct {
	Nodes []Node
}

func (d *Document) Children() []Node { return d.Nodes }

// PlainText is a run of text outside any tag.
type PlainText struct {
	Text string
}

func (*PlainText) Children() []Node { return nil }

// SimpleReferenceTag is a well-formed {{ a.b.c }} tag.
type SimpleReferenceTag struct {
	// Raw is the tag text exactly as written, including whitespace.
	Raw string
	// Reference is the dotted path split into segments.
	Reference []string
}

func (*SimpleReferenceTag) Children() []Node { return nil }

func (t *SimpleReferenceTag) String() string { return t.Raw }

// ExpressionTag is a {{= ... }} tag. The expression language is not
// evaluated; the tag is kept as an opaque literal.
type ExpressionTag struct {
	Literal string
}

func (*ExpressionTag) Children() []Node { return nil }

// Unexpected represents unparsable tokens or a syntax error. Msg is set only
// when the parser can say something more specific than the offending text.
type Unexpected struct {
	Pos  int
	Text string
	Msg  string
}

func (*Unexpected) Children() []Node { return nil }

// FormatReference renders a reference in the canonical simple-tag form,
// "{{ a.b.c }}". Returns "" for an empty reference.
func FormatReference(reference []string) string {
	if len(reference) == 0 {
		return ""
	}
	return "{{ " + strings.Join(reference, ".") + " }}"
}

// ReferenceMatch pairs a reference tag with its extracted path.
type ReferenceMatch struct {
	Tag       *SimpleReferenceTag
	Reference []string
}

// References collects every simple reference tag in document order. The
// result is re-derived from the children on each call.
func (d *Document) References() []ReferenceMatch {
	var matches []ReferenceMatch
	for _, child := range d.Nodes {
		if tag, ok := child.(*SimpleReferenceTag); ok {
			matches = append(matches, ReferenceMatch{Tag: tag, Reference: tag.Reference})
		}
	}
	return matches
}

var parseCache = lru.New[string, *Document](64)

// Parse tokenizes and parses the text. Results are memoized for repeated
// identical input; the returned document is immutable and must not be
// modified.
func Parse(text string) *Document {
	if doc, ok := parseCache.Get(text); ok {
		return doc
	}
	doc := ParseTokens(Tokenize(text))
	parseCache.Put(text, doc)
	return doc
}

// ParseTokens parses a token stream into a document. Parsing never fails:
// each loop iteration tries the node kinds in fixed priority order, and the
// fallback consumes exactly one token, so the loop always terminates with
// every token accounted for.
func ParseTokens(tokens []Token) *Document {
	cur := &cursor{tokens: tokens}

	var nodes []Node
	for !cur.done() {
		if node := parsePlainText(cur); node != nil {
			nodes = append(nodes, node)
			continue
		}
		if node := parseSimpleReferenceTag(cur); node != nil {
			nodes = append(nodes, node)
			continue
		}
		if node := parseExpressionTag(cur); node != nil {
			nodes = append(nodes, node)
			continue
		}
		nodes = append(nodes, parseUnexpected(cur))
	}
	return &Document{Nodes: nodes}
}

// cursor is an index into an immutable token slice. Parse functions either
// consume a prefix and return a node, or decline without consuming.
type cursor struct {
	tokens []Token
	pos    int
}

func (c *cursor) done() bool {
	return c.pos >= len(c.tokens)
}

// is reports whether the token at the given lookahead matches kind, and text
// when text is non-empty.
func (c *cursor) is(shift int, kind TokenKind, text string) bool {
	idx := c.pos + shift
	if idx >= len(c.tokens) {
		return false
	}
	tok := c.tokens[idx]
	if tok.Kind != kind {
		return false
	}
	return text == "" || tok.Text == text
}

func (c *cursor) next() Token {
	tok := c.tokens[c.pos]
	c.pos++
	return tok
}

// consumeWhitespace pops leading whitespace tokens into the component buffer.
func (c *cursor) consumeWhitespace(components []Token) []Token {
	for c.is(0, TokenWhitespace, "") {
		components = append(components, c.next())
	}
	return components
}

func parsePlainText(c *cursor) Node {
	var b strings.Builder
	matched := false
	for c.is(0, TokenText, "") {
		b.WriteString(c.next().Text)
		matched = true
	}
	if !matched {
		return nil
	}
	return &PlainText{Text: b.String()}
}

func parseSimpleReferenceTag(c *cursor) Node {
	if !c.is(0, TokenPunctuation, "{{") {
		return nil
	}

	components := []Token{c.next()}
	components = c.consumeWhitespace(components)

	var reference []string
	if c.is(0, TokenName, "") {
		tok := c.next()
		components = append(components, tok)
		reference = append(reference, tok.Text)

		// a dot is only consumed when a name follows it
		for c.is(0, TokenPunctuation, ".") && c.is(1, TokenName, "") {
			components = append(components, c.next())
			tok := c.next()
			components = append(components, tok)
			reference = append(reference, tok.Text)
		}
	}

	components = c.consumeWhitespace(components)

	if !c.is(0, TokenPunctuation, "}}") {
		return unexpectedFrom(components, c)
	}
	components = append(components, c.next())

	return &SimpleReferenceTag{
		Raw:       joinTokens(components),
		Reference: reference,
	}
}

func parseExpressionTag(c *cursor) Node {
	if !c.is(0, TokenPunctuation, "{{=") {
		return nil
	}

	components := []Token{c.next()}
	components = c.consumeWhitespace(components)

	for !c.done() && !c.is(0, TokenText, "") && !c.is(0, TokenPunctuation, "}}") {
		components = append(components, c.next())
	}

	if !c.is(0, TokenPunctuation, "}}") {
		return unexpectedFrom(components, c)
	}
	components = append(components, c.next())

	return &ExpressionTag{Literal: joinTokens(components)}
}

// parseUnexpected always consumes exactly one token.
func parseUnexpected(c *cursor) Node {
	tok := c.next()
	return &Unexpected{Pos: tok.Offset, Text: tok.Text}
}

// unexpectedFrom turns the consumed components into an error node. Hitting
// the end of input, or falling back out of the tag into plain text, means
// the tag was never closed; anything else is an unrelated token that the
// fallback will report on its own.
func unexpectedFrom(components []Token, c *cursor) *Unexpected {
	node := &Unexpected{
		Pos:  components[0].Offset,
		Text: joinTokens(components),
	}
	if c.done() || c.is(0, TokenText, "") {
		node.Msg = "expect closing tag '}}'"
	}
	return node
}

func joinTokens(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(tok.Text)
	}
	return b.String()
}
