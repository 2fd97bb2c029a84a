package sema_test

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/kementzetzidis/fractal/internal/diag"
	"github.com/kementzetzidis/fractal/internal/lexer"
	"github.com/kementzetzidis/fractal/internal/parser"
	"github.com/kementzetzidis/fractal/internal/sema"
	"github.com/kementzetzidis/fractal/internal/source"
)

func analyze(t *testing.T, text string) *diag.Sink {
	t.Helper()
	file := source.NewFile("test.fr", text)
	sink := &diag.Sink{}
	tokens := lexer.New(file, sink).Tokenize()
	program, ok := parser.Parse(tokens, sink)
	be.True(t, ok)
	sema.Analyze(program, sink)
	return sink
}

func TestUndefinedNameIsReported(t *testing.T) {
	sink := analyze(t, "x;")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Undefined name 'x'")
}

func TestParameterShadowsGlobalWarns(t *testing.T) {
	sink := analyze(t, "<define>\nlet x: i32 = 1;\nfn f(x: i32): i32 { return x; }\n<!define>")
	be.True(t, !sink.HasErrors())
	be.Equal(t, len(sink.Warnings()), 1)
	be.Equal(t, sink.Warnings()[0].Message, "Parameter 'x' shadows a global name")
}

func TestDuplicateParameterIsError(t *testing.T) {
	sink := analyze(t, "<define>\nfn f(x: i32, x: i32): i32 { return x; }\n<!define>")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Parameter 'x' is already defined")
}

func TestReturnTypeMismatchIsError(t *testing.T) {
	sink := analyze(t, "<define>\nfn f(): i32 { return 1.0; }\n<!define>")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Cannot return type 'f32' from a function which returns type 'i32'")
}

func TestReturnOutsideFunctionIsError(t *testing.T) {
	sink := analyze(t, "return 1;")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Cannot return outside of a function")
}

func TestBreakOutsideLoopIsError(t *testing.T) {
	sink := analyze(t, "break;")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Cannot use break outside of a loop")
}

func TestBreakInsideLoopIsFine(t *testing.T) {
	sink := analyze(t, "loop { break; }")
	be.True(t, !sink.HasErrors())
}

func TestVariableWithNoTypeAndNoInitializerIsError(t *testing.T) {
	sink := analyze(t, "let x;")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Variable 'x' has no declared type and no initializer")
}

func TestVariableTypeInferredFromInitializer(t *testing.T) {
	sink := analyze(t, "let x = 1;")
	be.True(t, !sink.HasErrors())
}

func TestAssignmentTypeMismatchIsError(t *testing.T) {
	sink := analyze(t, "let x: i32 = 1; x = 1.0;")
	be.True(t, sink.HasErrors())
}

func TestCallArgumentCountMismatchIsError(t *testing.T) {
	sink := analyze(t, "<define>\nfn f(a: i32): i32 { return a; }\n<!define>\nf(1, 2);")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Expected 1 arguments but got 2")
}

func TestCallingNonFunctionIsError(t *testing.T) {
	sink := analyze(t, "<define>\nlet x: i32 = 1;\n<!define>\nx();")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "'x' is not a function")
}

func TestDuplicateFunctionDefinitionIsError(t *testing.T) {
	sink := analyze(t, "<define>\nfn f(): i32 { return 1; }\nfn f(): i32 { return 2; }\n<!define>")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Function 'f' is already defined")
}

func TestUnusedExpressionWarns(t *testing.T) {
	sink := analyze(t, "1 + 1;")
	be.True(t, !sink.HasErrors())
	be.Equal(t, len(sink.Warnings()), 1)
	be.Equal(t, sink.Warnings()[0].Message, "Unused expression")
}

func TestClassMethodBodyIsUnsupported(t *testing.T) {
	sink := analyze(t, "<define>\nclass C { public fn m(): i32 { return 1; } }\n<!define>")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Class method bodies are not supported")
}

func TestContinueOutsideLoopIsError(t *testing.T) {
	sink := analyze(t, "continue;")
	be.True(t, sink.HasErrors())
	be.Equal(t, sink.Errors()[0].Message, "Cannot use continue outside of a loop")
}
