// Package emit renders legalized IR as NASM-compatible Intel-syntax
// x86-64 assembly text (spec.md §4.5), grounded on
// original_source/Fractal/CodeEmission/IntelCodeEmission.cpp, extended
// to cover the full instruction table spec.md §4.5 names since that
// reference file only emits a subset.
package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kementzetzidis/fractal/internal/codegen"
	"github.com/kementzetzidis/fractal/internal/ir"
)

// Emitter walks a validated instruction list and writes assembly text.
type Emitter struct {
	platform codegen.Platform
	buf      strings.Builder
	externs  map[string]bool
}

// New creates an Emitter for platform.
func New(platform codegen.Platform) *Emitter {
	return &Emitter{platform: platform, externs: make(map[string]bool)}
}

// Emit renders instructions (the output of codegen.Generate, already
// legalized) as a complete assembly text.
func (e *Emitter) Emit(instructions []ir.Instruction) string {
	e.buf.Reset()
	e.externs = make(map[string]bool)

	defined := make(map[string]bool)
	for _, instr := range instructions {
		if fd, ok := instr.(*ir.FunctionDef); ok {
			defined[e.symbolName(fd)] = true
		}
	}
	for _, instr := range instructions {
		if fd, ok := instr.(*ir.FunctionDef); ok {
			e.collectExterns(fd.Body, defined)
		}
	}

	if len(e.externs) > 0 {
		names := make([]string, 0, len(e.externs))
		for name := range e.externs {
			names = append(names, name)
		}
		sort.Strings(names)
		e.buf.WriteString("extern " + strings.Join(names, ", ") + "\n")
	}
	e.buf.WriteString("section .text\n")

	for _, instr := range instructions {
		if fd, ok := instr.(*ir.FunctionDef); ok {
			e.emitFunction(fd)
		}
	}

	return e.buf.String()
}

func (e *Emitter) collectExterns(body []ir.Instruction, defined map[string]bool) {
	for _, instr := range body {
		if call, ok := instr.(*ir.Call); ok && !defined[call.Symbol] {
			e.externs[call.Symbol] = true
		}
	}
}

func (e *Emitter) symbolName(fd *ir.FunctionDef) string {
	if e.platform == codegen.Mac {
		return "_" + fd.Name
	}
	return fd.Name
}

func (e *Emitter) emitFunction(fd *ir.FunctionDef) {
	name := e.symbolName(fd)
	e.buf.WriteString("global " + name + "\n")
	e.buf.WriteString(name + ":\n")

	e.line("push rbp")
	e.line("mov rbp, rsp")
	if fd.StackAlloc > 0 {
		e.line(fmt.Sprintf("sub rsp, %d", fd.StackAlloc))
	}

	for _, instr := range fd.Body {
		e.emitInstruction(instr)
	}
}

func (e *Emitter) line(s string) {
	e.buf.WriteString("    " + s + "\n")
}

func (e *Emitter) emitInstruction(instr ir.Instruction) {
	switch in := instr.(type) {
	case *ir.Move:
		if in.SignExtend {
			e.line(fmt.Sprintf("movsx %s, %s", in.Dst, in.Src))
		} else {
			e.line(fmt.Sprintf("mov %s, %s", in.Dst, in.Src))
		}
	case *ir.Label:
		e.buf.WriteString(in.Name + ":\n")
	case *ir.Jump:
		if in.Cond == ir.None {
			e.line("jmp " + in.Target)
		} else {
			e.line("j" + in.Cond.Suffix() + " " + in.Target)
		}
	case *ir.Negate:
		e.line(fmt.Sprintf("neg %s", in.Op))
	case *ir.BitwiseNot:
		e.line(fmt.Sprintf("not %s", in.Op))
	case *ir.Add:
		e.line(fmt.Sprintf("add %s, %s", in.Dst, in.Other))
	case *ir.Sub:
		e.line(fmt.Sprintf("sub %s, %s", in.Dst, in.Other))
	case *ir.Mul:
		e.line(fmt.Sprintf("imul %s, %s", in.Dst, in.Other))
	case *ir.Cdq:
		e.line("cdq")
	case *ir.Div:
		e.line(fmt.Sprintf("idiv %s", in.Divisor))
	case *ir.Compare:
		e.line(fmt.Sprintf("cmp %s, %s", in.Left, in.Right))
	case *ir.Set:
		e.line(fmt.Sprintf("set%s %s", in.Cond.Suffix(), in.Dst))
	case *ir.Call:
		e.line("call " + in.Symbol)
	case *ir.Push:
		e.line(fmt.Sprintf("push %s", in.Src))
	case *ir.Return:
		e.line("mov rsp, rbp")
		e.line("pop rbp")
		e.line("ret")
	}
}
