package codegen_test

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/kementzetzidis/fractal/internal/ast"
	"github.com/kementzetzidis/fractal/internal/codegen"
	"github.com/kementzetzidis/fractal/internal/ir"
	"github.com/kementzetzidis/fractal/internal/lexer"
	"github.com/kementzetzidis/fractal/internal/types"
)

func ident(name string) lexer.Token { return lexer.Token{Kind: lexer.IDENT, Lexeme: name} }

func findFunctionDef(t *testing.T, instructions []ir.Instruction, name string) *ir.FunctionDef {
	t.Helper()
	for _, instr := range instructions {
		if fd, ok := instr.(*ir.FunctionDef); ok && fd.Name == name {
			return fd
		}
	}
	t.Fatalf("no FunctionDef named %q", name)
	return nil
}

// TestConstantReturn mirrors spec.md S1: `fn f(): i32 { return 7; }`.
func TestConstantReturn(t *testing.T) {
	fn := &ast.FunctionDef{
		NameToken:  ident("f"),
		ReturnType: types.I32Type,
		Body: &ast.CompoundStmt{Statements: []ast.Stmt{
			&ast.ReturnStmt{Expression: &ast.IntegerLiteral{Value: 7}, Token: lexer.Token{Kind: lexer.RETURN}},
		}},
	}
	program := &ast.Program{Definitions: []ast.Stmt{fn}}

	gen := codegen.New(codegen.Windows)
	instructions := gen.Generate(program)

	f := findFunctionDef(t, instructions, "f")
	be.Equal(t, f.StackAlloc, 0)

	move, ok := f.Body[0].(*ir.Move)
	be.True(t, ok)
	be.Equal(t, move.Src, ir.Operand(ir.IntegerConstant{Value: 7}))
	be.Equal(t, move.Dst, ir.Operand(ir.RegisterOperand{Reg: ir.AX, Sz: ir.DWord}))
	_, ok = f.Body[1].(*ir.Return)
	be.True(t, ok)
}

// TestParameterStackSlotWindows checks the first parameter lands at
// [rbp - 4] via CX, per spec.md S2.
func TestParameterStackSlotWindows(t *testing.T) {
	fn := &ast.FunctionDef{
		NameToken:  ident("fib"),
		ReturnType: types.I32Type,
		Parameters: []ast.Parameter{{NameToken: ident("x"), Type: types.I32Type}},
		Body:       &ast.CompoundStmt{},
	}
	program := &ast.Program{Definitions: []ast.Stmt{fn}}

	gen := codegen.New(codegen.Windows)
	instructions := gen.Generate(program)

	f := findFunctionDef(t, instructions, "fib")
	be.Equal(t, f.StackAlloc, 4)
	move := f.Body[0].(*ir.Move)
	be.Equal(t, move.Src, ir.Operand(ir.RegisterOperand{Reg: ir.CX, Sz: ir.DWord}))
	be.Equal(t, move.Dst, ir.Operand(ir.StackSlot{Offset: 4, Sz: ir.DWord}))
}

// TestOverflowParametersSystemV checks the 7th SystemV parameter (past
// the 6 register slots) is read from a negative stack offset.
func TestOverflowParametersSystemV(t *testing.T) {
	params := make([]ast.Parameter, 7)
	for i := range params {
		params[i] = ast.Parameter{NameToken: ident(string(rune('a' + i))), Type: types.I32Type}
	}
	fn := &ast.FunctionDef{NameToken: ident("manyargs"), ReturnType: types.I32Type, Parameters: params, Body: &ast.CompoundStmt{}}
	program := &ast.Program{Definitions: []ast.Stmt{fn}}

	gen := codegen.New(codegen.Mac)
	instructions := gen.Generate(program)

	f := findFunctionDef(t, instructions, "manyargs")
	// 6 register params moved to stack, then the unconditional
	// fallthrough (`mov eax, 0` / `ret`) codegen appends after every
	// function body regardless of its contents; the 7th parameter gets
	// no move of its own since it already lives on the caller's stack.
	be.Equal(t, len(f.Body), 8)

	// The 7th parameter (index 6, past the 6 SystemV registers) is
	// referenced later via the identifier lookup, but codegen only
	// records its slot in the local var map — confirm indirectly via a
	// use of it in a return expression.
	fn2 := &ast.FunctionDef{
		NameToken: ident("useOverflow"), ReturnType: types.I32Type, Parameters: params,
		Body: &ast.CompoundStmt{Statements: []ast.Stmt{
			&ast.ReturnStmt{Expression: &ast.Identifier{NameToken: ident("g")}, Token: lexer.Token{Kind: lexer.RETURN}},
		}},
	}
	program2 := &ast.Program{Definitions: []ast.Stmt{fn2}}
	instructions2 := codegen.New(codegen.Mac).Generate(program2)
	f2 := findFunctionDef(t, instructions2, "useOverflow")
	// Body: 6 param moves, then this return's own move+ret, then the
	// unconditional fallthrough move+ret appended after it.
	be.Equal(t, len(f2.Body), 10)
	ret := f2.Body[6].(*ir.Move)
	be.Equal(t, ret.Src, ir.Operand(ir.StackSlot{Offset: -16, Sz: ir.DWord}))
}

// TestIfElseLabels checks the .IF/.IE label pair spec.md §4.4 describes.
func TestIfElseLabels(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.IfStmt{
			Condition: &ast.IntegerLiteral{Value: 1},
			Then:      &ast.NullStmt{},
			Else:      &ast.NullStmt{},
		},
	}}
	gen := codegen.New(codegen.Windows)
	instructions := gen.Generate(program)
	main := findFunctionDef(t, instructions, "main")

	var sawFalseLabel, sawEndLabel bool
	for _, instr := range main.Body {
		if lbl, ok := instr.(*ir.Label); ok {
			if lbl.Name == ".IF1" {
				sawFalseLabel = true
			}
			if lbl.Name == ".IE1" {
				sawEndLabel = true
			}
		}
	}
	be.True(t, sawFalseLabel)
	be.True(t, sawEndLabel)
}

// TestCallShadowSpaceWindows checks the 40-byte reservation (32 shadow
// + 8 alignment) for a zero-argument call, per spec.md S1.
func TestCallShadowSpaceWindows(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.ExpressionStmt{Expression: &ast.Call{FuncToken: ident("f")}},
	}}
	gen := codegen.New(codegen.Windows)
	instructions := gen.Generate(program)
	main := findFunctionDef(t, instructions, "main")

	sub := main.Body[0].(*ir.Sub)
	be.Equal(t, sub.Other, ir.Operand(ir.IntegerConstant{Value: 40}))
}

// TestCallSymbolMacPrefix checks Mac targets prefix the called symbol
// with an underscore.
func TestCallSymbolMacPrefix(t *testing.T) {
	program := &ast.Program{Statements: []ast.Stmt{
		&ast.ExpressionStmt{Expression: &ast.Call{FuncToken: ident("puts")}},
	}}
	gen := codegen.New(codegen.Mac)
	instructions := gen.Generate(program)
	main := findFunctionDef(t, instructions, "main")

	var call *ir.Call
	for _, instr := range main.Body {
		if c, ok := instr.(*ir.Call); ok {
			call = c
		}
	}
	be.Equal(t, call.Symbol, "_puts")
}
