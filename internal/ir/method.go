package ir

import "strconv"

// Method is the unit CPT and MMI rewrite, adapted from
// vmregister.FunctionObj (Name/Arity/Code/Constants) but organized as
// blocks instead of a flat Code array, since both CPT's iterator
// discipline and MMI's splice operations are naturally block-local.
type Method struct {
	Owner string // declaring class
	Name  string
	Arity int

	IsStatic  bool
	IsDirect  bool // instance-direct (private/constructor): inlinable candidate for make-static
	IsInit    bool // <init>
	IsClinit  bool // <clinit>
	IsPublic  bool
	IsPackagePrivate bool

	Consts []Value

	Entry  *Block
	Blocks []*Block

	DexStore string // partition identity for the inliner's cross-store reference check

	// CatchTypes lists the declared catch-handler exception types
	// reachable anywhere in the method, consulted by the Inlinability
	// Oracle's "external catch" predicate.
	CatchTypes []CatchType
}

// CatchType describes one catch-handler's exception type for the
// Inlinability Oracle's "external catch" predicate.
type CatchType struct {
	Owner    string
	Public   bool
	External bool // declared outside the optimizer's resolution scope
}

// AddBlock appends a new, empty block and returns it.
func (m *Method) AddBlock(label string) *Block {
	b := newBlock(label)
	m.Blocks = append(m.Blocks, b)
	if m.Entry == nil {
		m.Entry = b
	}
	return b
}

// InstructionCount sums live instructions across all blocks, the
// estimated-size metric the Inlinability Oracle and Scheduler bound
// against.
func (m *Method) InstructionCount() int {
	n := 0
	for _, b := range m.Blocks {
		b.Each(func(*Insn) { n++ })
	}
	return n
}

// IsInitializerOf reports whether m is the declared <clinit>/<init> of
// owner, the condition the Redundant-Store Eliminator uses to choose
// the per-method analysis environment over whole-program state.
func (m *Method) IsInitializerOf(owner string) bool {
	return m.Owner == owner && (m.IsInit || m.IsClinit)
}

// Key is the stable method comparator key used throughout the
// optimizer — callee-to-callers maps, the call graph, the scheduler —
// so that maps built from it can be iterated in deterministic order.
func (m *Method) Key() string {
	return m.Owner + "#" + m.Name + "#" + strconv.Itoa(m.Arity)
}
