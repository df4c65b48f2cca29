// Package template parses the tag mini-language embedded in manifest string
// fields: simple reference tags ({{ inputs.parameters.x }}) and opaque
// expression tags ({{= ... }}). Parsing is tolerant: malformed input yields
// error nodes inline with valid siblings, never a failure.
package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexed token.
type TokenKind int

const (
	// TokenText is a run of plain text outside any tag.
	TokenText TokenKind = iota
	// TokenWhitespace is a whitespace run inside a simple reference tag.
	TokenWhitespace
	// TokenPunctuation is a structural token: "{{", "{{=", "}}", or ".".
	TokenPunctuation
	// TokenName is a reference segment inside a simple reference tag.
	TokenName
	// TokenOther is opaque expression content or a character the lexer could
	// not classify in its current mode.
	TokenOther
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "Text"
	case TokenWhitespace:
		return "Whitespace"
	case TokenPunctuation:
		return "Punctuation"
	case TokenName:
		return "Name"
	case TokenOther:
		return "Other"
	}
	return "Unknown"
}

// Token is one lexed unit with its byte offset in the source text.
type Token struct {
	Offset int
	Kind   TokenKind
	Text   string
}

// Lexer modes. Tags do not nest, so a single mode variable replaces the
// original mode stack.
type lexMode int

const (
	modeRoot lexMode = iota
	modeSimpleReference
	modeExpression
)

// Tokenize scans the text into a flat token stream. It is a pure function of
// its input: total over arbitrary strings and restartable by re-invocation.
// An unterminated tag simply ends the stream mid-mode; the parser detects
// this and reports it.
func Tokenize(text string) []Token {
	var (
		tokens []Token
		mode   = modeRoot
		i      = 0
	)

	for i < len(text) {
		switch mode {
		case modeRoot:
			if strings.HasPrefix(text[i:], "{{=") {
				tokens = append(tokens, Token{Offset: i, Kind: TokenPunctuation, Text: "{{="})
				i += 3
				mode = modeExpression
				continue
			}
			if strings.HasPrefix(text[i:], "{{") {
				tokens = append(tokens, Token{Offset: i, Kind: TokenPunctuation, Text: "{{"})
				i += 2
				mode = modeSimpleReference
				continue
			}
			start := i
			for i < len(text) && !strings.HasPrefix(text[i:], "{{") {
				i++
			}
			tokens = append(tokens, Token{Offset: start, Kind: TokenText, Text: text[start:i]})

		case modeSimpleReference:
			if strings.HasPrefix(text[i:], "}}") {
				tokens = append(tokens, Token{Offset: i, Kind: TokenPunctuation, Text: "}}"})
				i += 2
				mode = modeRoot
				continue
			}
			r, size := utf8.DecodeRuneInString(text[i:])
			switch {
			case unicode.IsSpace(r):
				start := i
				for i < len(text) {
					r, size := utf8.DecodeRuneInString(text[i:])
					if !unicode.IsSpace(r) {
						break
					}
					i += size
				}
				tokens = append(tokens, Token{Offset: start, Kind: TokenWhitespace, Text: text[start:i]})
			case r == '.':
				tokens = append(tokens, Token{Offset: i, Kind: TokenPunctuation, Text: "."})
				i += size
			case isNameRune(r):
				start := i
				for i < len(text) {
					r, size := utf8.DecodeRuneInString(text[i:])
					if !isNameRune(r) {
						break
					}
					i += size
				}
				tokens = append(tokens, Token{Offset: start, Kind: TokenName, Text: text[start:i]})
			default:
				// unclassifiable inside a tag; emit one rune and keep going
				tokens = append(tokens, Token{Offset: i, Kind: TokenOther, Text: text[i : i+size]})
				i += size
			}

		case modeExpression:
			if strings.HasPrefix(text[i:], "}}") {
				tokens = append(tokens, Token{Offset: i, Kind: TokenPunctuation, Text: "}}"})
				i += 2
				mode = modeRoot
				continue
			}
			start := i
			for i < len(text) && text[i] != '}' {
				i++
			}
			if i == start {
				// a lone '}' not starting a closing tag
				i++
			}
			tokens = append(tokens, Token{Offset: start, Kind: TokenOther, Text: text[start:i]})
		}
	}

	return tokens
}

// isNameRune reports whether r may appear in a reference segment.
func isNameRune(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
