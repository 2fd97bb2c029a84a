package lexer

import (
	"strings"

	"github.com/kementzetzidis/fractal/internal/diag"
	"github.com/kementzetzidis/fractal/internal/source"
)

// Lexer scans a source.File into a token stream. Unlike the reference
// implementation's package-level globals (and the teacher's own
// Init/NextToken package-level state), position bookkeeping lives on this
// struct so that a compilation never leaks state into the next one — the
// "explicit context, not a process-wide static" redesign spec.md §9 calls
// for, kept local to the one counter (mangling, label indices) that
// legitimately needs to survive beyond this package and therefore lives
// on sema/codegen's own context types instead.
type Lexer struct {
	file *source.File

	index int // current byte index into file.Text; -1 before first advance
	ch    byte
	line  int
	lineStart int

	sink *diag.Sink
}

// New creates a Lexer over file, reporting lexical errors into sink.
func New(file *source.File, sink *diag.Sink) *Lexer {
	l := &Lexer{file: file, index: -1, line: 1, lineStart: 0, sink: sink}
	l.advance()
	return l
}

func (l *Lexer) advance() {
	l.index++
	if l.index < len(l.file.Text) {
		l.ch = l.file.Text[l.index]
	} else {
		l.ch = 0
	}
}

func (l *Lexer) peek(depth int) byte {
	i := l.index + depth
	if i < len(l.file.Text) {
		return l.file.Text[i]
	}
	return 0
}

func (l *Lexer) match(c byte) bool {
	if l.peek(1) == c {
		l.advance()
		return true
	}
	return false
}

func (l *Lexer) pos() source.Position {
	return source.Position{File: l.file, StartByte: l.index, EndByte: l.index + 1, Line: l.line, LineStartByte: l.lineStart}
}

func (l *Lexer) handleNewline() {
	l.line++
	l.lineStart = l.index + 1
	l.advance()
}

// handleWhitespace skips spaces, tabs, newlines, `//` line comments and
// `/* */` block comments, mirroring Lexer.cpp's handleWhitespace.
// Unlike the reference, an unterminated block comment reaching EOF is
// reported, per spec.md §9's recommendation.
func (l *Lexer) handleWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			l.handleNewline()
		case '/':
			if l.peek(1) == '/' {
				for l.ch != '\n' && l.ch != 0 {
					l.advance()
				}
				if l.ch == 0 {
					return
				}
				l.handleNewline()
				continue
			} else if l.peek(1) == '*' {
				start := l.pos()
				l.advance()
				l.advance()
				for {
					if l.ch == 0 {
						l.sink.Error("Unterminated block comment", start)
						return
					}
					if l.ch == '*' && l.peek(1) == '/' {
						l.advance()
						l.advance()
						break
					}
					if l.ch == '\n' {
						l.handleNewline()
					} else {
						l.advance()
					}
				}
				continue
			}
			return
		default:
			return
		}
	}
}

// Tokenize scans the entire file into a token list. It stops (returning
// the tokens produced so far) at the first lexical error, since error
// presence is the sole signal the driver uses to skip later phases
// (spec.md §4.2's recovery policy, applied symmetrically to the lexer).
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == EOF || tok.Kind == ILLEGAL || l.sink.HasErrors() {
			break
		}
	}
	return tokens
}

// Next scans and returns the next token.
func (l *Lexer) Next() Token {
	l.handleWhitespace()

	if isDigit(l.ch) {
		return l.number()
	}
	if isLetter(l.ch) {
		return l.name()
	}

	pos := l.pos()
	nextPos := pos
	nextPos.EndByte++

	switch l.ch {
	case 0:
		return Token{Kind: EOF, Lexeme: "EOF", Position: pos}
	case '(':
		return l.single(LPAREN, pos)
	case ')':
		return l.single(RPAREN, pos)
	case '{':
		return l.single(LBRACE, pos)
	case '}':
		return l.single(RBRACE, pos)
	case '[':
		return l.single(LBRACKET, pos)
	case ']':
		return l.single(RBRACKET, pos)
	case ';':
		return l.single(SEMICOLON, pos)
	case ',':
		return l.single(COMMA, pos)
	case '.':
		return l.single(DOT, pos)
	case '^':
		return l.single(CARET, pos)
	case '&':
		return l.single(AMP, pos)
	case '~':
		return l.single(TILDE, pos)
	case '|':
		return l.single(PIPE, pos)
	case '%':
		return l.single(PERCENT, pos)
	case ':':
		return l.single(COLON, pos)
	case '+':
		return l.doubleOrSingle(PLUS, '=', PLUS_EQUAL, "+=", pos, nextPos)
	case '*':
		return l.doubleOrSingle(STAR, '=', STAR_EQUAL, "*=", pos, nextPos)
	case '!':
		return l.doubleOrSingle(BANG, '=', BANG_EQUAL, "!=", pos, nextPos)
	case '<':
		return l.doubleOrSingle(LESS, '=', LESS_EQUAL, "<=", pos, nextPos)
	case '>':
		return l.doubleOrSingle(GREATER, '=', GREATER_EQUAL, ">=", pos, nextPos)
	case '/':
		return l.doubleOrSingle(SLASH, '=', SLASH_EQUAL, "/=", pos, nextPos)
	case '=':
		if l.peek(1) == '>' {
			l.advance()
			l.advance()
			return Token{Kind: DOUBLE_ARROW, Lexeme: "=>", Position: nextPos}
		}
		if l.match('=') {
			l.advance()
			return Token{Kind: EQUAL_EQUAL, Lexeme: "==", Position: nextPos}
		}
		l.advance()
		return Token{Kind: EQUAL, Lexeme: "=", Position: pos}
	case '-':
		if l.peek(1) == '>' {
			l.advance()
			l.advance()
			return Token{Kind: ARROW, Lexeme: "->", Position: nextPos}
		}
		if l.match('=') {
			l.advance()
			return Token{Kind: MINUS_EQUAL, Lexeme: "-=", Position: nextPos}
		}
		l.advance()
		return Token{Kind: MINUS, Lexeme: "-", Position: pos}
	case '\'', '"':
		return l.stringOrChar(l.ch)
	}

	l.sink.Error("Unknown Character '"+string(l.ch)+"'", pos)
	l.advance()
	return Token{Kind: ILLEGAL, Lexeme: "", Position: pos}
}

func (l *Lexer) single(kind Kind, pos source.Position) Token {
	lexeme := string(l.ch)
	l.advance()
	return Token{Kind: kind, Lexeme: lexeme, Position: pos}
}

func (l *Lexer) doubleOrSingle(single Kind, second byte, double Kind, doubleStr string, pos, nextPos source.Position) Token {
	if l.match(second) {
		l.advance()
		return Token{Kind: double, Lexeme: doubleStr, Position: nextPos}
	}
	lexeme := string(l.ch)
	l.advance()
	return Token{Kind: single, Lexeme: lexeme, Position: pos}
}

// number scans an integer or float literal. A second '.' is reported at
// the point it occurs and the token becomes ILLEGAL, per spec.md §4.1.
func (l *Lexer) number() Token {
	pos := l.pos()
	var b strings.Builder
	isFloat := false
	for isDigit(l.ch) || l.ch == '.' {
		if l.ch == '.' {
			if isFloat {
				dotPos := l.pos()
				l.sink.Error("Unexpected '.'", dotPos)
				return Token{Kind: ILLEGAL, Lexeme: "Unexpected '.'", Position: dotPos}
			}
			isFloat = true
		}
		b.WriteByte(l.ch)
		l.advance()
	}
	pos.EndByte = l.index
	if isFloat {
		return Token{Kind: FLOAT_LITERAL, Lexeme: b.String(), Position: pos}
	}
	return Token{Kind: INT_LITERAL, Lexeme: b.String(), Position: pos}
}

// name scans an identifier or keyword.
func (l *Lexer) name() Token {
	pos := l.pos()
	var b strings.Builder
	for isAlphanumeric(l.ch) {
		b.WriteByte(l.ch)
		l.advance()
	}
	pos.EndByte = l.index
	text := b.String()
	if kind, ok := keywords[text]; ok {
		return Token{Kind: kind, Lexeme: text, Position: pos}
	}
	return Token{Kind: IDENT, Lexeme: text, Position: pos}
}

// stringOrChar scans a string ("...") or character ('...') literal,
// opened and closed by the same quote on the same line, mirroring
// Lexer.cpp's makeStringToken.
func (l *Lexer) stringOrChar(quote byte) Token {
	pos := l.pos()
	lastPos := pos
	l.advance()
	var b strings.Builder
	for l.ch != quote && l.ch != 0 && l.ch != '\n' {
		lastPos = l.pos()
		b.WriteByte(l.ch)
		l.advance()
	}
	if l.ch != quote {
		l.sink.Error("Unterminated string or character literal", lastPos)
	}
	pos.EndByte = l.index
	l.advance()
	if quote == '"' {
		return Token{Kind: STRING_LITERAL, Lexeme: b.String(), Position: pos}
	}
	return Token{Kind: CHAR_LITERAL, Lexeme: b.String(), Position: pos}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
func isAlphanumeric(c byte) bool { return isDigit(c) || isLetter(c) }
