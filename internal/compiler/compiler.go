// Package compiler wires the phases documented in spec.md §2 into the
// single driver-visible entry point spec.md §6 describes: a source
// string and a target descriptor in, assembly text and a diagnostic
// log out. Everything outside this package is an internal phase;
// nothing outside the module should import them directly.
package compiler

import (
	"fmt"

	"github.com/kementzetzidis/fractal/internal/codegen"
	"github.com/kementzetzidis/fractal/internal/diag"
	"github.com/kementzetzidis/fractal/internal/emit"
	"github.com/kementzetzidis/fractal/internal/lexer"
	"github.com/kementzetzidis/fractal/internal/parser"
	"github.com/kementzetzidis/fractal/internal/sema"
	"github.com/kementzetzidis/fractal/internal/source"
)

// Target names the descriptors Compile accepts (spec.md §6).
const (
	TargetWindows = "x86_64-intel-win"
	TargetMac     = "x86_64-intel-mac"
)

// Result is the outcome of a single compilation.
type Result struct {
	Assembly    string
	Diagnostics []diag.Diagnostic
	Failed      bool
}

func platformFor(target string) (codegen.Platform, error) {
	switch target {
	case TargetWindows:
		return codegen.Windows, nil
	case TargetMac:
		return codegen.Mac, nil
	}
	return 0, fmt.Errorf("unknown target descriptor %q", target)
}

// Compile runs the full pipeline: lex, parse, analyze, generate IR,
// legalize, emit. Each phase consumes the previous phase's structure
// and produces the next (spec.md §5); an unknown target descriptor
// fails fast before any phase runs, and a phase that leaves errors in
// the sink skips every phase after it (spec.md §7).
func Compile(name, text, target string) Result {
	platform, err := platformFor(target)
	if err != nil {
		return Result{Failed: true, Diagnostics: []diag.Diagnostic{{
			Severity: diag.SeverityError,
			Message:  err.Error(),
		}}}
	}

	file := source.NewFile(name, text)
	sink := &diag.Sink{}

	lx := lexer.New(file, sink)
	tokens := lx.Tokenize()
	if sink.HasErrors() {
		return Result{Diagnostics: sink.All(), Failed: true}
	}

	program, ok := parser.Parse(tokens, sink)
	if !ok || sink.HasErrors() {
		return Result{Diagnostics: sink.All(), Failed: true}
	}

	if !sema.Analyze(program, sink) || sink.HasErrors() {
		return Result{Diagnostics: sink.All(), Failed: true}
	}

	gen := codegen.New(platform)
	instructions := gen.Generate(program)

	emitter := emit.New(platform)
	assembly := emitter.Emit(instructions)

	return Result{Assembly: assembly, Diagnostics: sink.All(), Failed: false}
}
