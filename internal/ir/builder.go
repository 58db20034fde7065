package ir

// The constructors below mirror vmregister.bytecode.go's CreateABC/
// CreateABx/CreateAsBx family: small, obvious functions that assemble
// one instruction from its logical operands instead of a bit-packed
// word, since Insn is a struct rather than a uint32 here.

func NewMove(dest, src Reg, wide bool) *Insn {
	op := OpMove
	if wide {
		op = OpMoveWide
	}
	return &Insn{Op: op, Dest: dest, Src1: src}
}

func NewConst(dest Reg, constIdx int) *Insn {
	return &Insn{Op: OpConst, Dest: dest, Const: constIdx}
}

func NewGetStatic(dest Reg, f *FieldRef) *Insn {
	return &Insn{Op: OpGetStatic, Dest: dest, Field: f}
}

func NewPutStatic(src Reg, f *FieldRef) *Insn {
	return &Insn{Op: OpPutStatic, Src1: src, Field: f}
}

func NewGetField(dest, obj Reg, f *FieldRef) *Insn {
	return &Insn{Op: OpGetField, Dest: dest, Src1: obj, Field: f}
}

func NewPutField(src, obj Reg, f *FieldRef) *Insn {
	return &Insn{Op: OpPutField, Src1: src, Src2: obj, Field: f}
}

func NewGetArray(dest, arr, idx Reg) *Insn {
	return &Insn{Op: OpGetArray, Dest: dest, Src1: arr, Src2: idx}
}

func NewLitArith(op OpCode, dest, src Reg, lit int64) *Insn {
	return &Insn{Op: op, Dest: dest, Src1: src, Lit: lit}
}

func NewGoto(target *Block) *Insn {
	return &Insn{Op: OpGoto, Target: target}
}

func NewIf(op OpCode, src Reg, target *Block) *Insn {
	return &Insn{Op: op, Src1: src, Target: target}
}

func NewSwitch(src Reg) *Insn {
	return &Insn{Op: OpSwitch, Src1: src}
}

func NewReturn(src Reg) *Insn {
	return &Insn{Op: OpReturn, Src1: src}
}

func NewInvoke(op OpCode, dest Reg, m *MethodRef, args ...Reg) *Insn {
	return &Insn{Op: op, Dest: dest, Method: m, Args: args}
}

func NewMoveResult(dest Reg) *Insn {
	return &Insn{Op: OpMoveResult, Dest: dest}
}
