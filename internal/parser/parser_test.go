package parser_test

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/kementzetzidis/fractal/internal/ast"
	"github.com/kementzetzidis/fractal/internal/diag"
	"github.com/kementzetzidis/fractal/internal/lexer"
	"github.com/kementzetzidis/fractal/internal/parser"
	"github.com/kementzetzidis/fractal/internal/source"
	"github.com/kementzetzidis/fractal/internal/types"
)

func parse(t *testing.T, text string) (*ast.Program, *diag.Sink, bool) {
	t.Helper()
	file := source.NewFile("test.fr", text)
	sink := &diag.Sink{}
	tokens := lexer.New(file, sink).Tokenize()
	program, ok := parser.Parse(tokens, sink)
	return program, sink, ok
}

func TestMultiplicationBindsTighterThanAddition(t *testing.T) {
	program, sink, ok := parse(t, "1 + 2 * 3;")
	be.True(t, ok)
	be.True(t, !sink.HasErrors())

	stmt := program.Statements[0].(*ast.ExpressionStmt)
	bin := stmt.Expression.(*ast.BinaryOp)
	be.Equal(t, bin.Op.Kind, lexer.PLUS)
	right := bin.Right.(*ast.BinaryOp)
	be.Equal(t, right.Op.Kind, lexer.STAR)
}

func TestAdditionIsLeftAssociative(t *testing.T) {
	program, _, ok := parse(t, "1 - 2 - 3;")
	be.True(t, ok)
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	outer := stmt.Expression.(*ast.BinaryOp)
	be.Equal(t, outer.Op.Kind, lexer.MINUS)
	inner := outer.Left.(*ast.BinaryOp)
	be.Equal(t, inner.Op.Kind, lexer.MINUS)
	_, leftIsLiteral := inner.Left.(*ast.IntegerLiteral)
	be.True(t, leftIsLiteral)
}

func TestMemberAccessBindsTighterThanUnary(t *testing.T) {
	program, _, ok := parse(t, "-a.b;")
	be.True(t, ok)
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	unary := stmt.Expression.(*ast.UnaryOp)
	be.Equal(t, unary.Op.Kind, lexer.MINUS)
	_, innerIsMember := unary.Expression.(*ast.MemberAccess)
	be.True(t, innerIsMember)
}

func TestIfRequiresDoubleArrow(t *testing.T) {
	_, sink, ok := parse(t, "if x return 1;")
	be.True(t, !ok)
	be.True(t, sink.HasErrors())
}

func TestElseDoesNotRequireDoubleArrow(t *testing.T) {
	program, sink, ok := parse(t, "if x => return 1; else return 2;")
	be.True(t, ok)
	be.True(t, !sink.HasErrors())
	stmt := program.Statements[0].(*ast.IfStmt)
	_, elseIsReturn := stmt.Else.(*ast.ReturnStmt)
	be.True(t, elseIsReturn)
}

func TestDefineRegionPopulatesDefinitions(t *testing.T) {
	program, sink, ok := parse(t, "<define>\nfn f(): i32 { return 1; }\n<!define>\nf();")
	be.True(t, ok)
	be.True(t, !sink.HasErrors())
	be.Equal(t, len(program.Definitions), 1)
	be.Equal(t, len(program.Statements), 1)

	fn := program.Definitions[0].(*ast.FunctionDef)
	be.Equal(t, fn.NameToken.Lexeme, "f")
}

func TestFunctionWithoutReturnTypeDefaultsToNull(t *testing.T) {
	program, _, ok := parse(t, "<define>\nfn f() { }\n<!define>")
	be.True(t, ok)
	fn := program.Definitions[0].(*ast.FunctionDef)
	be.True(t, !types.IsEmpty(fn.ReturnType))
}

func TestCallArguments(t *testing.T) {
	program, _, ok := parse(t, "f(1, 2, 3);")
	be.True(t, ok)
	stmt := program.Statements[0].(*ast.ExpressionStmt)
	call := stmt.Expression.(*ast.Call)
	be.Equal(t, len(call.Args), 3)
}

func TestMissingSemicolonIsReported(t *testing.T) {
	_, sink, ok := parse(t, "1 + 1")
	be.True(t, !ok)
	be.True(t, sink.HasErrors())
}

func TestBreakOutsideLoopParsesButSemaChecksSeparately(t *testing.T) {
	// Parser itself accepts `break;` anywhere; loop-nesting validation is
	// sema's job (spec.md S6).
	program, sink, ok := parse(t, "break;")
	be.True(t, ok)
	be.True(t, !sink.HasErrors())
	_, isBreak := program.Statements[0].(*ast.BreakStmt)
	be.True(t, isBreak)
}
