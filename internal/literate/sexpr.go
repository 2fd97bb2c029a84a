// Package literate extracts compiler test scenarios from literate
// Markdown fixtures, the way sexy/testcase.go extracted Zong test
// cases from Markdown code fences via goldmark's AST walker — kept in
// its own package rather than sexy's original name since it now
// drives compiler scenarios, not S-expression-shaped interpreter
// assertions.
package literate

import (
	"fmt"
	"strings"
	"unicode"
)

// Node is a parsed `diagnostics` fence datum: either a quoted string
// atom or a parenthesized list of Nodes. sexy/sexpr.go's Node type
// covers maps, sets, arrays, labels, and ellipses for asserting
// against arbitrary interpreter values; a diagnostics fence only ever
// needs an ordered list of expected message strings, so this is
// trimmed to just that.
type Node struct {
	IsList bool
	Text   string  // set when !IsList
	Items  []*Node // set when IsList
}

func (n *Node) String() string {
	if !n.IsList {
		return fmt.Sprintf("%q", n.Text)
	}
	parts := make([]string, len(n.Items))
	for i, item := range n.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Strings returns the text of every atom in a top-level list, in
// order. Parse always returns a list for a well-formed diagnostics
// fence, so callers use this directly.
func (n *Node) Strings() []string {
	if !n.IsList {
		return []string{n.Text}
	}
	out := make([]string, 0, len(n.Items))
	for _, item := range n.Items {
		out = append(out, item.Text)
	}
	return out
}

// Parse reads a parenthesized list of double-quoted strings, e.g.
// `("Undefined name 'x'" "Unused expression")`.
func Parse(input string) (*Node, error) {
	p := &parser{input: input}
	p.skipSpace()
	node, err := p.parseDatum()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input at byte %d", p.pos)
	}
	return node, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) parseDatum() (*Node, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch p.input[p.pos] {
	case '(':
		return p.parseList()
	case '"':
		return p.parseString()
	default:
		return nil, fmt.Errorf("unexpected character %q at byte %d", p.input[p.pos], p.pos)
	}
}

func (p *parser) parseList() (*Node, error) {
	p.pos++ // consume '('
	var items []*Node
	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated list")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			return &Node{IsList: true, Items: items}, nil
		}
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (p *parser) parseString() (*Node, error) {
	p.pos++ // consume opening quote
	var b strings.Builder
	for p.pos < len(p.input) && p.input[p.pos] != '"' {
		if p.input[p.pos] == '\\' && p.pos+1 < len(p.input) {
			p.pos++
			switch p.input[p.pos] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				return nil, fmt.Errorf("invalid escape sequence: \\%c", p.input[p.pos])
			}
			p.pos++
			continue
		}
		b.WriteByte(p.input[p.pos])
		p.pos++
	}
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unterminated string")
	}
	p.pos++ // consume closing quote
	return &Node{Text: b.String()}, nil
}
