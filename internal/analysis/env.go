package analysis

import "vmopt/internal/ir"

// mapEnv is the concrete Env: plain maps keyed by register and by
// "owner.name" for fields, sufficient for a single method's analysis
// state. Unset registers read as Top ("no constant known yet" is the
// safe default, never Bottom, since Bottom means unreachable).
type fieldKeyT struct{ owner, name string }

type mapEnv struct {
	regs   map[ir.Reg]AV
	fields map[fieldKeyT]AV
}

func NewEnv() Env {
	return &mapEnv{regs: map[ir.Reg]AV{}, fields: map[fieldKeyT]AV{}}
}

func (e *mapEnv) Get(reg ir.Reg) AV {
	if v, ok := e.regs[reg]; ok {
		return v
	}
	return Top()
}

func (e *mapEnv) GetField(owner, name string) AV {
	if v, ok := e.fields[fieldKeyT{owner, name}]; ok {
		return v
	}
	return Top()
}

// Set records the post-state of a register write. Used by
// AnalyzeInstruction implementations, not by passes directly.
func (e *mapEnv) Set(reg ir.Reg, v AV) { e.regs[reg] = v }

// SetField records a field binding, used only while analyzing a
// class's own <clinit>/<init>.
func (e *mapEnv) SetField(owner, name string, v AV) {
	e.fields[fieldKeyT{owner, name}] = v
}

func (e *mapEnv) IsBottom() bool { return false }

func (e *mapEnv) Clone() Env {
	c := &mapEnv{regs: make(map[ir.Reg]AV, len(e.regs)), fields: make(map[fieldKeyT]AV, len(e.fields))}
	for k, v := range e.regs {
		c.regs[k] = v
	}
	for k, v := range e.fields {
		c.fields[k] = v
	}
	return c
}

// Meet merges two environments at a block-entry confluence point: one
// predecessor's unreachable contribution yields the other's value
// outright, and two reachable predecessors disagreeing on a register
// widen it to Top, since neither can be assumed at the merged point.
// This is the join direction of the lattice, the mirror image of
// AV.Meet's equality-conflict-is-Bottom rule the Dead-Switch Pruner
// uses to prove a single case arm unreachable.
func Meet(a, b Env) Env {
	ea, eb := a.(*mapEnv), b.(*mapEnv)
	out := &mapEnv{regs: map[ir.Reg]AV{}, fields: map[fieldKeyT]AV{}}
	for k, v := range ea.regs {
		out.regs[k] = joinAV(v, eb.Get(k))
	}
	for k, v := range eb.regs {
		if _, done := out.regs[k]; !done {
			out.regs[k] = joinAV(v, ea.Get(k))
		}
	}
	for k, v := range ea.fields {
		other, ok := eb.fields[k]
		if !ok {
			other = Top()
		}
		out.fields[k] = joinAV(v, other)
	}
	for k, v := range eb.fields {
		if _, done := out.fields[k]; !done {
			out.fields[k] = v
		}
	}
	return out
}

func joinAV(a, b AV) AV {
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	if a.IsTop() || b.IsTop() {
		return Top()
	}
	if a.RuntimeEquals(b) {
		return a
	}
	return Top()
}

// Equal reports whether two environments agree on every key present in
// either, used by the fixpoint worklist to detect convergence.
func Equal(a, b Env) bool {
	ea, eb := a.(*mapEnv), b.(*mapEnv)
	if len(ea.regs) != len(eb.regs) || len(ea.fields) != len(eb.fields) {
		return false
	}
	for k, v := range ea.regs {
		if !avEqual(v, eb.Get(k)) {
			return false
		}
	}
	for k, v := range ea.fields {
		if !avEqual(v, eb.GetField(k.owner, k.name)) {
			return false
		}
	}
	return true
}

func avEqual(a, b AV) bool {
	if a.IsBottom() != b.IsBottom() || a.IsTop() != b.IsTop() {
		return false
	}
	if a.IsBottom() || a.IsTop() {
		return true
	}
	return a.RuntimeEquals(b)
}
