// Package codegen lowers a single already-shrunk method to a minimal
// LLVM IR module: integer arithmetic, moves, conditional and
// unconditional branches, and return. It supplies the real
// native-compilation backend that the original JIT profiler's
// AnalyzeLoop/ExecuteJITUnsafe hooks never had (they always declined
// to compile),
// using the same naive every-register-gets-an-alloca shape a
// from-scratch LLVM front end reaches for before running LLVM's own
// mem2reg pass.
//
// Lowering only ever reads an *ir.Method that CPT and the inliner have
// already finished optimizing; nothing here feeds back into either
// pass's decisions.
package codegen

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	vmir "vmopt/internal/ir"
)

// ErrUnsupported is returned when a method references an instruction
// outside the lowerable subset (field/array access, invokes, switch,
// the SDK-version probe). These stay on the interpreter tier.
var ErrUnsupported = errors.New("codegen: method uses an instruction outside the native-lowering subset")

// LowerHotMethod builds a single-function LLVM module computing the
// same integer result as m, or returns ErrUnsupported if m contains an
// instruction the lowerer does not model.
func LowerHotMethod(m *vmir.Method) (*ir.Module, error) {
	if err := checkSupported(m); err != nil {
		return nil, err
	}

	module := ir.NewModule()
	params := make([]*ir.Param, m.Arity)
	for i := range params {
		params[i] = ir.NewParam(fmt.Sprintf("a%d", i), types.I64)
	}
	fn := module.NewFunc(funcName(m), types.I64, params...)

	slotCount := int(highestRegister(m)) + 1
	if m.Arity > slotCount {
		slotCount = m.Arity // an unused trailing parameter still needs a slot
	}
	entry := fn.NewBlock("entry")
	slots := make([]*ir.InstAlloca, slotCount)
	for r := range slots {
		slots[r] = entry.NewAlloca(types.I64)
	}
	for i, p := range params {
		entry.NewStore(p, slots[i])
	}

	blocks := make(map[*vmir.Block]*ir.Block, len(m.Blocks))
	blocks[m.Entry] = entry
	for _, b := range m.Blocks {
		if b == m.Entry {
			continue
		}
		blocks[b] = fn.NewBlock(b.Label)
	}

	for _, b := range m.Blocks {
		lowerBlock(b, m.Consts, blocks, slots)
	}
	return module, nil
}

func funcName(m *vmir.Method) string {
	return sanitize(m.Owner) + "_" + sanitize(m.Name)
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func highestRegister(m *vmir.Method) vmir.Reg {
	var max vmir.Reg
	for _, b := range m.Blocks {
		b.Each(func(i *vmir.Insn) {
			for _, r := range []vmir.Reg{i.Dest, i.Src1, i.Src2} {
				if r > max {
					max = r
				}
			}
		})
	}
	return max
}

// checkSupported rejects any method using an instruction this lowerer
// cannot model, so callers can fall back to the interpreter tier
// instead of emitting a half-built module.
func checkSupported(m *vmir.Method) error {
	var bad bool
	for _, b := range m.Blocks {
		b.Each(func(i *vmir.Insn) {
			switch {
			case i.Op.IsMove(), i.Op.IsLiteralArithmetic():
			case i.Op == vmir.OpConst && i.Const < len(m.Consts) && m.Consts[i.Const].Kind == vmir.ValInt:
			case i.Op == vmir.OpGoto, i.Op.IsConditionalBranch(), i.Op == vmir.OpReturn:
			default:
				bad = true
			}
		})
	}
	if bad {
		return ErrUnsupported
	}
	return nil
}

func lowerBlock(b *vmir.Block, consts []vmir.Value, blocks map[*vmir.Block]*ir.Block, slots []*ir.InstAlloca) {
	lb := blocks[b]
	b.Each(func(i *vmir.Insn) {
		switch {
		case i.Op.IsMove():
			v := lb.NewLoad(types.I64, slots[i.Src1])
			lb.NewStore(v, slots[i.Dest])
		case i.Op == vmir.OpConst:
			lb.NewStore(constant.NewInt(types.I64, consts[i.Const].I), slots[i.Dest])
		case i.Op.IsLiteralArithmetic():
			lowerLitArith(lb, i, slots)
		case i.Op == vmir.OpReturn:
			lb.NewRet(lb.NewLoad(types.I64, slots[i.Src1]))
		case i.Op == vmir.OpGoto:
			lb.NewBr(blocks[i.Target])
		case i.Op.IsConditionalBranch():
			lowerConditional(lb, i, blocks, slots)
		}
	})
	if lb.Term == nil && len(b.Succs) > 0 {
		lb.NewBr(blocks[b.Succs[0].Target])
	}
}

func lowerLitArith(lb *ir.Block, i *vmir.Insn, slots []*ir.InstAlloca) {
	lhs := lb.NewLoad(types.I64, slots[i.Src1])
	rhs := constant.NewInt(types.I64, i.Lit)
	var v value.Value = lhs
	switch i.Op {
	case vmir.OpAddLit:
		v = lb.NewAdd(lhs, rhs)
	case vmir.OpSubLit:
		v = lb.NewSub(lhs, rhs)
	case vmir.OpMulLit:
		v = lb.NewMul(lhs, rhs)
	case vmir.OpAndLit:
		v = lb.NewAnd(lhs, rhs)
	case vmir.OpOrLit:
		v = lb.NewOr(lhs, rhs)
	case vmir.OpXorLit:
		v = lb.NewXor(lhs, rhs)
	case vmir.OpShlLit:
		v = lb.NewShl(lhs, rhs)
	case vmir.OpShrLit:
		v = lb.NewAShr(lhs, rhs)
	case vmir.OpUshrLit:
		v = lb.NewLShr(lhs, rhs)
	case vmir.OpDivIntLit:
		v = lb.NewSDiv(lhs, rhs)
	case vmir.OpRemIntLit:
		v = lb.NewSRem(lhs, rhs)
	}
	lb.NewStore(v, slots[i.Dest])
}

func lowerConditional(lb *ir.Block, i *vmir.Insn, blocks map[*vmir.Block]*ir.Block, slots []*ir.InstAlloca) {
	src := lb.NewLoad(types.I64, slots[i.Src1])
	zero := constant.NewInt(types.I64, 0)
	var pred enum.IPred
	switch i.Op {
	case vmir.OpIfEqz:
		pred = enum.IPredEQ
	case vmir.OpIfNez:
		pred = enum.IPredNE
	case vmir.OpIfLtz:
		pred = enum.IPredSLT
	case vmir.OpIfGez:
		pred = enum.IPredSGE
	}
	cmp := lb.NewICmp(pred, src, zero)

	var branchTarget, fallthroughTarget *vmir.Block
	if blk := i.Block(); blk != nil {
		for _, e := range blk.Succs {
			switch e.Type {
			case vmir.EdgeBranch:
				branchTarget = e.Target
			case vmir.EdgeGoto:
				fallthroughTarget = e.Target
			}
		}
	}
	if branchTarget == nil {
		branchTarget = i.Target
	}
	lb.NewCondBr(cmp, blocks[branchTarget], blocks[fallthroughTarget])
}
