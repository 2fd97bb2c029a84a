// Package parser implements the Pratt expression parser and
// recursive-descent statement/definition parser described in spec.md §4.2.
package parser

import (
	"strconv"

	"github.com/kementzetzidis/fractal/internal/ast"
	"github.com/kementzetzidis/fractal/internal/diag"
	"github.com/kementzetzidis/fractal/internal/lexer"
	"github.com/kementzetzidis/fractal/internal/types"
)

// BindingPower is the Pratt parser's precedence unit; higher binds tighter.
type BindingPower int

const (
	bpNone       BindingPower = 0
	bpAssignment BindingPower = 20
	bpOr         BindingPower = 30
	bpAnd        BindingPower = 40
	bpEquality   BindingPower = 50
	bpRelational BindingPower = 60
	bpAdditive   BindingPower = 70
	bpMultiplicative BindingPower = 80
	bpUnary      BindingPower = 100
	bpMember     BindingPower = 110
)

func tokenBindingPower(kind lexer.Kind) BindingPower {
	switch kind {
	case lexer.DOT, lexer.ARROW:
		return bpMember
	case lexer.STAR, lexer.SLASH:
		return bpMultiplicative
	case lexer.PLUS, lexer.MINUS:
		return bpAdditive
	case lexer.LESS, lexer.LESS_EQUAL, lexer.GREATER, lexer.GREATER_EQUAL:
		return bpRelational
	case lexer.EQUAL_EQUAL, lexer.BANG_EQUAL:
		return bpEquality
	case lexer.AND:
		return bpAnd
	case lexer.OR:
		return bpOr
	case lexer.EQUAL, lexer.PLUS_EQUAL, lexer.MINUS_EQUAL, lexer.STAR_EQUAL, lexer.SLASH_EQUAL:
		return bpAssignment
	}
	return bpNone
}

func isAssignOp(kind lexer.Kind) bool {
	switch kind {
	case lexer.EQUAL, lexer.PLUS_EQUAL, lexer.MINUS_EQUAL, lexer.STAR_EQUAL, lexer.SLASH_EQUAL:
		return true
	}
	return false
}

// Parser turns a token stream into a Program. It follows the reference
// compiler's currentToken/advance/consume shape (Parser.cpp) kept on a
// struct rather than the teacher's package-level globals, same
// explicit-context redesign as the lexer.
type Parser struct {
	tokens []lexer.Token
	index  int
	sink   *diag.Sink
}

// New creates a Parser over tokens, reporting syntax errors into sink.
func New(tokens []lexer.Token, sink *diag.Sink) *Parser {
	if len(tokens) == 0 {
		tokens = []lexer.Token{{Kind: lexer.EOF, Lexeme: "EOF"}}
	}
	return &Parser{tokens: tokens, index: 0, sink: sink}
}

func (p *Parser) current() lexer.Token {
	if p.index < len(p.tokens) {
		return p.tokens[p.index]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) peek(depth int) lexer.Token {
	i := p.index + depth
	if i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.index < len(p.tokens)-1 {
		p.index++
	}
	return tok
}

func (p *Parser) match(kind lexer.Kind) bool {
	if p.current().Kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) consume(kind lexer.Kind, message string) bool {
	if p.current().Kind == kind {
		p.advance()
		return true
	}
	p.sink.Error(message, p.current().Position)
	return false
}

func (p *Parser) atEnd() bool { return p.current().Kind == lexer.EOF }

// Parse parses the whole token stream into a Program. It returns false
// (alongside whatever partial program was built) if any syntax error was
// reported, matching spec.md §4.2's "error presence is the sole signal"
// recovery policy.
func Parse(tokens []lexer.Token, sink *diag.Sink) (*ast.Program, bool) {
	p := New(tokens, sink)
	program := &ast.Program{}

	for !p.atEnd() {
		if p.atRegionOpen() {
			p.advance()
			p.advance()
			p.advance() // consume '<' 'define' '>'
			for !p.atEnd() && !p.atRegionClose() {
				def := p.parseDefinition()
				if def != nil {
					program.Definitions = append(program.Definitions, def)
				}
				if p.sink.HasErrors() {
					break
				}
			}
			if p.atRegionClose() {
				p.advance()
				p.advance()
				p.advance()
				p.advance() // consume '<' '!' 'define' '>' -- see atRegionClose
			}
		} else {
			stmt := p.parseStatement()
			if stmt != nil {
				program.Statements = append(program.Statements, stmt)
			}
		}
		if p.sink.HasErrors() {
			break
		}
	}

	return program, !p.sink.HasErrors()
}

// atRegionOpen reports whether the parser is looking at `<define>`,
// lexed as three tokens: LESS, IDENT("define"), GREATER.
func (p *Parser) atRegionOpen() bool {
	return p.current().Kind == lexer.LESS &&
		p.peek(1).Kind == lexer.IDENT && p.peek(1).Lexeme == "define" &&
		p.peek(2).Kind == lexer.GREATER
}

// atRegionClose reports whether the parser is looking at `<!define>`,
// lexed as four tokens: LESS, BANG, IDENT("define"), GREATER.
func (p *Parser) atRegionClose() bool {
	return p.current().Kind == lexer.LESS &&
		p.peek(1).Kind == lexer.BANG &&
		p.peek(2).Kind == lexer.IDENT && p.peek(2).Lexeme == "define" &&
		p.peek(3).Kind == lexer.GREATER
}

// -- Types --

// parseType parses a primitive type keyword, a pointer `(TYPE)`, an
// array `[TYPE]`, or a user-defined type name, per spec.md §4.2.
func (p *Parser) parseType() *types.Type {
	switch {
	case lexer.IsTypeKeyword(p.current().Kind):
		kw := p.advance()
		fund, ok := types.FromKeyword(kw.Lexeme)
		if !ok {
			p.sink.Error("Unknown primitive type '"+kw.Lexeme+"'", kw.Position)
			return types.Empty
		}
		return types.Fund(fund)
	case p.current().Kind == lexer.LPAREN:
		p.advance()
		elem := p.parseType()
		p.consume(lexer.RPAREN, "Expected ')'")
		return types.Ptr(elem)
	case p.current().Kind == lexer.LBRACKET:
		p.advance()
		elem := p.parseType()
		p.consume(lexer.RBRACKET, "Expected ']'")
		return types.Arr(elem)
	case p.current().Kind == lexer.IDENT:
		name := p.advance()
		return types.User(name.Lexeme)
	default:
		p.sink.Error("Expected type", p.current().Position)
		return types.Empty
	}
}

// -- Expressions --

// ParseExpression parses one expression, re-entering at the given
// binding power for right-operand parsing (left-associative, per
// spec.md §4.2).
func (p *Parser) ParseExpression(bindingPower BindingPower) ast.Expr {
	tok := p.advance()
	left := p.nud(tok)
	for tokenBindingPower(p.current().Kind) > bindingPower {
		opTok := p.advance()
		left = p.led(opTok, left)
	}
	return left
}

func (p *Parser) nud(tok lexer.Token) ast.Expr {
	switch tok.Kind {
	case lexer.INT_LITERAL:
		v, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		return &ast.IntegerLiteral{Value: v, Position: tok.Position}
	case lexer.FLOAT_LITERAL:
		v, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.FloatLiteral{Value: v, Position: tok.Position}
	case lexer.STRING_LITERAL:
		return &ast.StringLiteral{Value: tok.Lexeme, Position: tok.Position}
	case lexer.CHAR_LITERAL:
		return &ast.CharacterLiteral{Value: tok.Lexeme, Position: tok.Position}
	case lexer.MINUS, lexer.BANG, lexer.TILDE:
		expr := p.ParseExpression(bpUnary)
		return &ast.UnaryOp{Op: tok, Expression: expr}
	case lexer.LPAREN:
		expr := p.ParseExpression(bpNone)
		p.consume(lexer.RPAREN, "Expected ')'")
		return expr
	case lexer.IDENT:
		if p.current().Kind == lexer.LPAREN {
			return p.finishCall(tok)
		}
		return &ast.Identifier{NameToken: tok}
	case lexer.LBRACKET:
		return p.finishArray(tok)
	default:
		p.sink.Error("Expected expression", tok.Position)
		return &ast.IntegerLiteral{Value: 0, Position: tok.Position}
	}
}

func (p *Parser) led(tok lexer.Token, left ast.Expr) ast.Expr {
	switch tok.Kind {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH,
		lexer.LESS, lexer.LESS_EQUAL, lexer.GREATER, lexer.GREATER_EQUAL,
		lexer.EQUAL_EQUAL, lexer.BANG_EQUAL, lexer.AND, lexer.OR:
		right := p.ParseExpression(tokenBindingPower(tok.Kind))
		return &ast.BinaryOp{Left: left, Op: tok, Right: right}
	case lexer.EQUAL, lexer.PLUS_EQUAL, lexer.MINUS_EQUAL, lexer.STAR_EQUAL, lexer.SLASH_EQUAL:
		right := p.ParseExpression(tokenBindingPower(tok.Kind))
		return &ast.Assignment{Lvalue: left, Op: tok, Rvalue: right}
	case lexer.DOT, lexer.ARROW:
		member := p.advance()
		return &ast.MemberAccess{Base: left, Op: tok, Member: member}
	default:
		p.sink.Error("Unexpected token in expression", tok.Position)
		return left
	}
}

func (p *Parser) finishCall(nameTok lexer.Token) ast.Expr {
	p.consume(lexer.LPAREN, "Expected '('")
	var args []ast.Expr
	for p.current().Kind != lexer.RPAREN && p.current().Kind != lexer.EOF {
		args = append(args, p.ParseExpression(bpAssignment))
		if p.current().Kind == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	p.consume(lexer.RPAREN, "Expected ')'")
	return &ast.Call{FuncToken: nameTok, Args: args}
}

func (p *Parser) finishArray(openTok lexer.Token) ast.Expr {
	var elems []ast.Expr
	for p.current().Kind != lexer.RBRACKET && p.current().Kind != lexer.EOF {
		elems = append(elems, p.ParseExpression(bpAssignment))
		if p.current().Kind == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	p.consume(lexer.RBRACKET, "Expected ']'")
	return &ast.ArrayList{Elements: elems, Position: openTok.Position}
}

// -- Statements --

func (p *Parser) parseStatement() ast.Stmt {
	switch p.current().Kind {
	case lexer.SEMICOLON:
		pos := p.advance().Position
		return &ast.NullStmt{Position: pos}
	case lexer.LBRACE:
		return p.statementCompound()
	case lexer.RETURN:
		return p.statementReturn()
	case lexer.IF:
		return p.statementIf()
	case lexer.WHILE:
		return p.statementWhile()
	case lexer.LOOP:
		return p.statementLoop()
	case lexer.BREAK:
		tok := p.advance()
		p.consume(lexer.SEMICOLON, "Expected ';'")
		return &ast.BreakStmt{Token: tok}
	case lexer.CONTINUE:
		tok := p.advance()
		p.consume(lexer.SEMICOLON, "Expected ';'")
		return &ast.ContinueStmt{Token: tok}
	case lexer.LET, lexer.CONST:
		return p.definitionVariable(false)
	default:
		return p.statementExpression()
	}
}

func (p *Parser) statementExpression() ast.Stmt {
	pos := p.current().Position
	expr := p.ParseExpression(bpNone)
	p.consume(lexer.SEMICOLON, "Expected ';'")
	return &ast.ExpressionStmt{Expression: expr, Position: pos}
}

func (p *Parser) statementCompound() ast.Stmt {
	openPos := p.current().Position
	p.consume(lexer.LBRACE, "Expected '{'")
	var stmts []ast.Stmt
	for p.current().Kind != lexer.RBRACE && p.current().Kind != lexer.EOF {
		stmts = append(stmts, p.parseStatement())
		if p.sink.HasErrors() {
			break
		}
	}
	p.consume(lexer.RBRACE, "Expected '}'")
	return &ast.CompoundStmt{Statements: stmts, Position: openPos}
}

func (p *Parser) statementReturn() ast.Stmt {
	tok := p.advance()
	var expr ast.Expr
	if p.current().Kind != lexer.SEMICOLON {
		expr = p.ParseExpression(bpNone)
	}
	p.consume(lexer.SEMICOLON, "Expected ';'")
	return &ast.ReturnStmt{Expression: expr, Token: tok}
}

func (p *Parser) statementIf() ast.Stmt {
	pos := p.advance().Position // 'if'
	cond := p.ParseExpression(bpNone)
	p.consume(lexer.DOUBLE_ARROW, "Expected '=>'")
	then := p.parseStatement()
	var elseBody ast.Stmt
	if p.match(lexer.ELSE) {
		elseBody = p.parseStatement()
	}
	return &ast.IfStmt{Condition: cond, Then: then, Else: elseBody, Position: pos}
}

func (p *Parser) statementWhile() ast.Stmt {
	pos := p.advance().Position // 'while'
	cond := p.ParseExpression(bpNone)
	p.consume(lexer.DOUBLE_ARROW, "Expected '=>'")
	body := p.parseStatement()
	return &ast.WhileStmt{Condition: cond, Body: body, Position: pos}
}

func (p *Parser) statementLoop() ast.Stmt {
	pos := p.advance().Position // 'loop'
	body := p.parseStatement()
	return &ast.LoopStmt{Body: body, Position: pos}
}

// -- Definitions --

func (p *Parser) parseDefinition() ast.Stmt {
	switch p.current().Kind {
	case lexer.FUNCTION:
		return p.definitionFunction()
	case lexer.LET, lexer.CONST:
		return p.definitionVariable(true)
	case lexer.CLASS:
		return p.definitionClass()
	default:
		p.sink.Error("Expected a definition", p.current().Position)
		p.advance()
		return nil
	}
}

func (p *Parser) parseParameters() []ast.Parameter {
	p.consume(lexer.LPAREN, "Expected '('")
	var params []ast.Parameter
	for p.current().Kind != lexer.RPAREN && p.current().Kind != lexer.EOF {
		name := p.advance()
		p.consume(lexer.COLON, "Expected ':'")
		typ := p.parseType()
		params = append(params, ast.Parameter{NameToken: name, Type: typ})
		if p.current().Kind == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	p.consume(lexer.RPAREN, "Expected ')'")
	return params
}

func (p *Parser) definitionFunction() ast.Stmt {
	pos := p.advance().Position // 'fn'
	name := p.current()
	p.consume(lexer.IDENT, "Expected function name")
	params := p.parseParameters()
	returnType := types.NullType
	if p.match(lexer.COLON) {
		returnType = p.parseType()
	}
	body := p.statementCompound()
	return &ast.FunctionDef{NameToken: name, Parameters: params, ReturnType: returnType, Body: body, Position: pos}
}

func (p *Parser) definitionVariable(isGlobal bool) ast.Stmt {
	declTok := p.advance() // 'let' or 'const'
	isConst := declTok.Kind == lexer.CONST
	name := p.current()
	p.consume(lexer.IDENT, "Expected variable name")
	declaredType := types.Empty
	if p.match(lexer.COLON) {
		declaredType = p.parseType()
	}
	var init ast.Expr
	if p.match(lexer.EQUAL) {
		init = p.ParseExpression(bpNone)
	}
	p.consume(lexer.SEMICOLON, "Expected ';'")
	return &ast.VariableDef{NameToken: name, DeclaredType: declaredType, Initializer: init, IsConst: isConst, IsGlobal: isGlobal, Position: declTok.Position}
}

func (p *Parser) definitionClass() ast.Stmt {
	pos := p.advance().Position // 'class'
	name := p.current()
	p.consume(lexer.IDENT, "Expected class name")
	p.consume(lexer.LBRACE, "Expected '{'")
	var members []ast.ClassMember
	for p.current().Kind != lexer.RBRACE && p.current().Kind != lexer.EOF {
		isPublic := true
		switch p.current().Kind {
		case lexer.PUBLIC:
			p.advance()
		case lexer.PRIVATE:
			isPublic = false
			p.advance()
		default:
			p.sink.Error("Expected 'public' or 'private'", p.current().Position)
		}
		if p.sink.HasErrors() {
			break
		}
		def := p.parseDefinition()
		if def != nil {
			members = append(members, ast.ClassMember{IsPublic: isPublic, Def: def})
		}
		if p.sink.HasErrors() {
			break
		}
	}
	p.consume(lexer.RBRACE, "Expected '}'")
	return &ast.ClassDef{NameToken: name, Members: members, Position: pos}
}
