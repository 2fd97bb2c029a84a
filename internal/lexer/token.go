// Package lexer turns source text into a token stream, per spec.md §4.1.
package lexer

import "github.com/kementzetzidis/fractal/internal/source"

// Kind is a token's type tag. Following the teacher's TokenType string-enum
// style (strager/zong's main.go) but as a small int for cheaper comparisons
// across the much larger keyword set this language needs.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF

	IDENT
	INT_LITERAL
	FLOAT_LITERAL
	STRING_LITERAL
	CHAR_LITERAL

	// Grouping
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET

	// Arithmetic
	PLUS
	MINUS
	STAR
	SLASH
	CARET
	PERCENT

	// Logic
	AMP
	TILDE
	PIPE
	BANG

	// Comparison
	GREATER
	LESS
	GREATER_EQUAL
	LESS_EQUAL
	EQUAL_EQUAL
	BANG_EQUAL

	// Misc
	DOT
	COMMA
	SEMICOLON
	COLON

	// Assignment
	EQUAL
	PLUS_EQUAL
	MINUS_EQUAL
	STAR_EQUAL
	SLASH_EQUAL

	ARROW        // ->
	DOUBLE_ARROW // =>

	// Keywords
	LET
	CONST
	AND
	OR
	TRUE
	FALSE
	IF
	ELSE
	WHILE
	LOOP
	FOR
	RETURN
	FUNCTION
	DO
	BREAK
	CONTINUE
	CLASS
	PRIVATE
	PUBLIC
	THIS
	ENUM
	EXTERNAL
	INTERNAL
	GLOBAL
	MATCH
	KEY_I8
	KEY_I16
	KEY_I32
	KEY_I64
	KEY_F32
	KEY_F64
	KEY_BOOL
	KEY_NULL
)

var keywords = map[string]Kind{
	"let": LET, "const": CONST, "and": AND, "or": OR,
	"true": TRUE, "false": FALSE, "if": IF, "else": ELSE,
	"while": WHILE, "loop": LOOP, "for": FOR, "return": RETURN,
	"fn": FUNCTION, "do": DO, "break": BREAK, "continue": CONTINUE,
	"class": CLASS, "private": PRIVATE, "public": PUBLIC, "this": THIS,
	"enum": ENUM, "external": EXTERNAL, "internal": INTERNAL, "global": GLOBAL,
	"match": MATCH,
	"i8":    KEY_I8, "i16": KEY_I16, "i32": KEY_I32, "i64": KEY_I64,
	"f32": KEY_F32, "f64": KEY_F64, "bool": KEY_BOOL, "null": KEY_NULL,
}

// IsTypeKeyword reports whether k is one of the primitive-type keywords.
func IsTypeKeyword(k Kind) bool {
	switch k {
	case KEY_I8, KEY_I16, KEY_I32, KEY_I64, KEY_F32, KEY_F64, KEY_BOOL, KEY_NULL:
		return true
	}
	return false
}

// Token pairs a Kind with its lexeme and source Position, per spec.md §3.
type Token struct {
	Kind     Kind
	Lexeme   string
	Position source.Position
}
