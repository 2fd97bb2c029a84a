package codegen

import "github.com/kementzetzidis/fractal/internal/ir"

// Legalize rewrites every FunctionDef's body in place so no
// instruction violates the ISA's addressing-mode constraints — no
// x86-64 instruction may reference two memory operands at once
// (spec.md §4.4.1), grounded on CodeGenerator.cpp's
// validateMoveOperands/validateBinOperands/validateMulOperands/
// validateCompareOperands/validatePushOperands. It is idempotent:
// running it again over already-legal IR is a no-op, which is why
// Generate calls it twice defensively.
func Legalize(instructions []ir.Instruction) {
	for _, instr := range instructions {
		if fd, ok := instr.(*ir.FunctionDef); ok {
			fd.Body = legalizeBody(fd.Body)
		}
	}
}

func legalizeBody(body []ir.Instruction) []ir.Instruction {
	out := make([]ir.Instruction, 0, len(body))
	for _, instr := range body {
		switch in := instr.(type) {
		case *ir.Move:
			out = legalizeMove(out, in)
		case *ir.Add:
			out = legalizeAddSub(out, &in.Dst, &in.Other, in)
		case *ir.Sub:
			out = legalizeAddSub(out, &in.Dst, &in.Other, in)
		case *ir.Mul:
			out = legalizeMul(out, in)
		case *ir.Compare:
			out = legalizeCompare(out, in)
		case *ir.Push:
			out = legalizePush(out, in)
		default:
			out = append(out, instr)
		}
	}
	return out
}

// legalizeMove handles both of Move's two independent hazards: a
// widening move into a memory destination (Dst wider than Src) must
// land in AX at the destination's own width before being stored back,
// and a memory-to-memory move must bounce through R10, mirroring
// validateMoveOperands's two branches in CodeGenerator.cpp. The
// widening branch is gated on the destination being a stack slot —
// once rewritten, the new Dst is a register, so a second legalization
// pass sees a register-sized Dst no wider than its Src and leaves it
// alone, keeping the pass idempotent.
func legalizeMove(out []ir.Instruction, in *ir.Move) []ir.Instruction {
	if ir.IsStackSlot(in.Dst) && in.Dst.Size() > in.Src.Size() {
		oldDst := in.Dst
		scratch := ir.RegisterOperand{Reg: ir.AX, Sz: in.Dst.Size()}
		in.Dst = scratch
		in.SignExtend = true
		out = append(out, in)
		out = append(out, &ir.Move{Src: scratch, Dst: oldDst})
		return out
	}
	if ir.IsStackSlot(in.Src) && ir.IsStackSlot(in.Dst) {
		oldDst := in.Dst
		scratch := ir.RegisterOperand{Reg: ir.R10, Sz: in.Src.Size()}
		in.Dst = scratch
		out = append(out, in)
		out = append(out, &ir.Move{Src: scratch, Dst: oldDst})
		return out
	}
	return append(out, in)
}

// legalizeAddSub loads Other into R10 ahead of the instruction when
// both Dst and Other are stack slots, since add/sub can take at most
// one memory operand.
func legalizeAddSub(out []ir.Instruction, dst, other *ir.Operand, instr ir.Instruction) []ir.Instruction {
	if ir.IsStackSlot(*dst) && ir.IsStackSlot(*other) {
		scratch := ir.RegisterOperand{Reg: ir.R10, Sz: (*other).Size()}
		out = append(out, &ir.Move{Src: *other, Dst: scratch})
		*other = scratch
		out = append(out, instr)
		return out
	}
	return append(out, instr)
}

// legalizeMul routes Dst through R11 when it's a stack slot: imul's
// two-operand form never accepts a memory destination.
func legalizeMul(out []ir.Instruction, in *ir.Mul) []ir.Instruction {
	if ir.IsStackSlot(in.Dst) {
		oldDst := in.Dst
		scratch := ir.RegisterOperand{Reg: ir.R11, Sz: in.Dst.Size()}
		in.Dst = scratch
		out = append(out, &ir.Move{Src: oldDst, Dst: scratch})
		out = append(out, in)
		out = append(out, &ir.Move{Src: scratch, Dst: oldDst})
		return out
	}
	return append(out, in)
}

// legalizeCompare routes Left through AX when it's an immediate or a
// stack slot: cmp's left operand must be a register when the right
// operand is itself memory or an immediate larger than the instruction
// encoding allows.
func legalizeCompare(out []ir.Instruction, in *ir.Compare) []ir.Instruction {
	if _, isConst := in.Left.(ir.IntegerConstant); isConst || ir.IsStackSlot(in.Left) {
		oldLeft := in.Left
		scratch := ir.RegisterOperand{Reg: ir.AX, Sz: in.Left.Size()}
		in.Left = scratch
		out = append(out, &ir.Move{Src: oldLeft, Dst: scratch})
		out = append(out, in)
		return out
	}
	return append(out, in)
}

// legalizePush widens anything narrower than a QWord register through
// AX: push always operates at machine-word granularity.
func legalizePush(out []ir.Instruction, in *ir.Push) []ir.Instruction {
	if _, isConst := in.Src.(ir.IntegerConstant); !isConst && in.Src.Size() != ir.QWord {
		scratch := ir.RegisterOperand{Reg: ir.AX, Sz: ir.QWord}
		out = append(out, &ir.Move{Src: in.Src, Dst: scratch})
		in.Src = scratch
		out = append(out, in)
		return out
	}
	return append(out, in)
}
