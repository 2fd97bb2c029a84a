package codegen_test

import (
	"testing"

	"github.com/nalgeon/be"

	"github.com/kementzetzidis/fractal/internal/codegen"
	"github.com/kementzetzidis/fractal/internal/ir"
)

func legalizeOne(instr ir.Instruction) []ir.Instruction {
	fd := &ir.FunctionDef{Name: "f", Body: []ir.Instruction{instr}}
	codegen.Legalize([]ir.Instruction{fd})
	return fd.Body
}

func TestLegalizeMoveMemToMemBouncesThroughR10(t *testing.T) {
	src := ir.StackSlot{Offset: 4, Sz: ir.DWord}
	dst := ir.StackSlot{Offset: 8, Sz: ir.DWord}
	body := legalizeOne(&ir.Move{Src: src, Dst: dst})

	be.Equal(t, len(body), 2)
	first := body[0].(*ir.Move)
	be.Equal(t, first.Dst, ir.Operand(ir.RegisterOperand{Reg: ir.R10, Sz: ir.DWord}))
	second := body[1].(*ir.Move)
	be.Equal(t, second.Src, ir.Operand(ir.RegisterOperand{Reg: ir.R10, Sz: ir.DWord}))
	be.Equal(t, second.Dst, ir.Operand(dst))
}

func TestLegalizeMoveWideningRoutesThroughAX(t *testing.T) {
	src := ir.StackSlot{Offset: 4, Sz: ir.DWord}
	dst := ir.StackSlot{Offset: 16, Sz: ir.QWord}
	body := legalizeOne(&ir.Move{Src: src, Dst: dst})

	be.Equal(t, len(body), 2)
	first := body[0].(*ir.Move)
	be.True(t, first.SignExtend)
	be.Equal(t, first.Dst, ir.Operand(ir.RegisterOperand{Reg: ir.AX, Sz: ir.QWord}))
	second := body[1].(*ir.Move)
	be.Equal(t, second.Dst, ir.Operand(dst))
}

func TestLegalizeMovePassesThroughWhenAlreadyLegal(t *testing.T) {
	body := legalizeOne(&ir.Move{Src: ir.IntegerConstant{Value: 1}, Dst: ir.StackSlot{Offset: 4, Sz: ir.DWord}})
	be.Equal(t, len(body), 1)
}

func TestLegalizeAddBothStackSlots(t *testing.T) {
	dst := ir.StackSlot{Offset: 4, Sz: ir.DWord}
	other := ir.StackSlot{Offset: 8, Sz: ir.DWord}
	body := legalizeOne(&ir.Add{Dst: dst, Other: other})

	be.Equal(t, len(body), 2)
	move := body[0].(*ir.Move)
	be.Equal(t, move.Src, ir.Operand(other))
	be.Equal(t, move.Dst, ir.Operand(ir.RegisterOperand{Reg: ir.R10, Sz: ir.DWord}))
	add := body[1].(*ir.Add)
	be.Equal(t, add.Other, ir.Operand(ir.RegisterOperand{Reg: ir.R10, Sz: ir.DWord}))
}

func TestLegalizeMulStackDest(t *testing.T) {
	dst := ir.StackSlot{Offset: 4, Sz: ir.DWord}
	other := ir.IntegerConstant{Value: 3}
	body := legalizeOne(&ir.Mul{Dst: dst, Other: other})

	be.Equal(t, len(body), 3)
	be.Equal(t, body[0].(*ir.Move).Dst, ir.Operand(ir.RegisterOperand{Reg: ir.R11, Sz: ir.DWord}))
	be.Equal(t, body[1].(*ir.Mul).Dst, ir.Operand(ir.RegisterOperand{Reg: ir.R11, Sz: ir.DWord}))
	be.Equal(t, body[2].(*ir.Move).Dst, ir.Operand(dst))
}

func TestLegalizeCompareConstantLeft(t *testing.T) {
	body := legalizeOne(&ir.Compare{Left: ir.IntegerConstant{Value: 1}, Right: ir.StackSlot{Offset: 4, Sz: ir.DWord}})
	be.Equal(t, len(body), 2)
	be.Equal(t, body[1].(*ir.Compare).Left, ir.Operand(ir.RegisterOperand{Reg: ir.AX, Sz: ir.DWord}))
}

func TestLegalizePushNarrowOperand(t *testing.T) {
	slot := ir.StackSlot{Offset: 1, Sz: ir.Byte}
	body := legalizeOne(&ir.Push{Src: slot})
	be.Equal(t, len(body), 2)
	be.Equal(t, body[1].(*ir.Push).Src, ir.Operand(ir.RegisterOperand{Reg: ir.AX, Sz: ir.QWord}))
}

func TestLegalizeIsIdempotent(t *testing.T) {
	fd := &ir.FunctionDef{Name: "f", Body: []ir.Instruction{
		&ir.Move{Src: ir.StackSlot{Offset: 4, Sz: ir.DWord}, Dst: ir.StackSlot{Offset: 8, Sz: ir.DWord}},
	}}
	instructions := []ir.Instruction{fd}
	codegen.Legalize(instructions)
	once := len(fd.Body)
	codegen.Legalize(instructions)
	be.Equal(t, len(fd.Body), once)
}

// TestLegalizeWideningMoveIsIdempotent guards against a widening move
// re-triggering its own rewrite on a second pass: once Dst becomes the
// AX register, a second Legalize must see a non-memory destination and
// leave the instruction alone rather than appending a spurious
// mov eax, eax.
func TestLegalizeWideningMoveIsIdempotent(t *testing.T) {
	fd := &ir.FunctionDef{Name: "f", Body: []ir.Instruction{
		&ir.Move{Src: ir.StackSlot{Offset: 1, Sz: ir.Byte}, Dst: ir.StackSlot{Offset: 8, Sz: ir.DWord}},
	}}
	instructions := []ir.Instruction{fd}
	codegen.Legalize(instructions)
	be.Equal(t, len(fd.Body), 2)
	codegen.Legalize(instructions)
	be.Equal(t, len(fd.Body), 2)
}
