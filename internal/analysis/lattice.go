// Package analysis supplies the abstract-interpretation collaborator
// the optimizer consumes through a pure query API. It defines the
// AV/AE/WPS contracts CPT is driven by and a concrete
// constant-propagation lattice implementing them, generalized from
// per-call-site profiling structures (vmregister.TypeFeedback,
// vmregister.InlineCache), which already track "is this slot
// monomorphic" — the same question a constant lattice answers at the
// single-value extreme.
package analysis

import "vmopt/internal/ir"

// AV is an element of the analysis lattice: an abstract value. Bottom
// means unreachable, Top means no single runtime value can be assumed,
// and anything in between denotes a known constant.
type AV interface {
	IsBottom() bool
	IsTop() bool
	// Meet computes the greatest lower bound of two AVs in the same
	// lattice, used by the Dead-Switch Pruner to test case reachability.
	Meet(AV) AV
	// RuntimeEquals returns true only when both operands necessarily
	// denote the same runtime value.
	RuntimeEquals(AV) bool
	// Materialize returns the (possibly empty) instruction sequence
	// that loads this AV's constant into dest. An empty sequence means
	// no constant of this width/type can represent the value here.
	Materialize(dest ir.Reg) []*ir.Insn
}

// Env is the abstract environment at a single program point. Register
// keys are ir.Reg; field keys use the FieldRef's owner+name, so an Env
// can also carry field bindings for the class currently under
// initialization.
type Env interface {
	Get(reg ir.Reg) AV
	GetField(owner, name string) AV
	// Set and SetField record a binding; implementations used by
	// AnalyzeInstruction and by tests that need to seed a known state
	// without driving a full fixpoint.
	Set(reg ir.Reg, v AV)
	SetField(owner, name string, v AV)
	// Clone returns an independent copy so the driver can advance one
	// environment per block without aliasing another block's state.
	Clone() Env
	// IsBottom reports whether this Env represents an unreachable
	// program point, the result AnalyzeEdge returns for a proven-dead
	// successor edge.
	IsBottom() bool
}

// WholeProgramState is the interprocedural, static mapping from field
// identities to AV.
type WholeProgramState interface {
	Field(owner, name string) AV
	// Set records a field's summarized value, populated by whatever
	// external whole-program summary pass feeds the optimizer (out of
	// scope here); tests populate it directly too.
	Set(owner, name string, v AV)
}

// Collaborator is the analysis fixpoint consumer CPT drives: entry
// state, analyze instruction (which mutates its Env argument in
// place), and analyze edge (an edge filter that may return bottom).
type Collaborator interface {
	EntryState(b *ir.Block) Env
	AnalyzeInstruction(i *ir.Insn, env Env)
	AnalyzeEdge(from *ir.Block, e ir.Edge, env Env) Env
}
