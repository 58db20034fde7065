package analysis

import "vmopt/internal/ir"

// constAV is the three-point constant lattice: Bottom < Const(v) < Top.
// It plays the role a runtime type-feedback slot plays (tracking
// whether a slot has settled on one observed value) but resolved
// statically instead of by sampling.
type constAV struct {
	bottom bool
	top    bool
	val    ir.Value
}

func Bottom() AV { return constAV{bottom: true} }
func Top() AV    { return constAV{top: true} }
func Const(v ir.Value) AV { return constAV{val: v} }

func (a constAV) IsBottom() bool { return a.bottom }
func (a constAV) IsTop() bool    { return a.top }

func (a constAV) Meet(other AV) AV {
	b := other.(constAV)
	if a.bottom || b.bottom {
		return Bottom()
	}
	if a.top {
		return b
	}
	if b.top {
		return a
	}
	if a.val.Equal(b.val) {
		return a
	}
	return Bottom()
}

func (a constAV) RuntimeEquals(other AV) bool {
	b, ok := other.(constAV)
	if !ok || a.bottom || a.top || b.bottom || b.top {
		return false
	}
	return a.val.Equal(b.val)
}

// Materialize loads the constant via ir.OpConst. An empty result means
// "no constant of this width/type can represent the value here": Top
// and Bottom never materialize. Every known constant of any kind or
// magnitude does, since OpConst addresses a full constant-pool index
// and so has no literal-width limit.
func (a constAV) Materialize(dest ir.Reg) []*ir.Insn {
	if a.bottom || a.top {
		return nil
	}
	return []*ir.Insn{ir.NewConst(dest, ConstPoolPlaceholder)}
}

// ConstPoolPlaceholder stands in for "the constant-pool slot holding
// this AV's value" in a Materialize result. A caller resolves it
// against the target method's Consts table (interning the value
// returned by Value) before appending the instruction to a plan; an
// AV only ever decides reachability here, never final encoding.
const ConstPoolPlaceholder = -1

// Value exposes the constant payload for callers (e.g. cpt.Simplifier)
// that need to intern it into a method's constant pool. Returns false
// for Top/Bottom.
func Value(a AV) (ir.Value, bool) {
	c, ok := a.(constAV)
	if !ok || c.bottom || c.top {
		return ir.Value{}, false
	}
	return c.val, true
}
