package analysis

import "vmopt/internal/ir"

// ConstantPropagation is a concrete Collaborator implementing the
// analysis fixpoint for the constant lattice. It precomputes per-block
// entry states with a standard worklist fixpoint, the
// worklist-over-a-block-stack idiom a wazevo-style SSA builder uses
// for similar dataflow passes, so CPT's driver has something concrete
// to query.
type ConstantPropagation struct {
	method      *ir.Method
	entryStates map[*ir.Block]Env
}

// NewConstantPropagation runs the fixpoint to convergence and returns a
// ready-to-query Collaborator.
func NewConstantPropagation(m *ir.Method) *ConstantPropagation {
	cp := &ConstantPropagation{method: m, entryStates: map[*ir.Block]Env{}}
	cp.run()
	return cp
}

func (cp *ConstantPropagation) run() {
	if cp.method.Entry == nil {
		return
	}
	for _, b := range cp.method.Blocks {
		cp.entryStates[b] = NewEnv()
	}
	worklist := []*ir.Block{cp.method.Entry}
	onList := map[*ir.Block]bool{cp.method.Entry: true}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		onList[b] = false

		env := cp.entryStates[b].Clone()
		b.Each(func(i *ir.Insn) {
			cp.AnalyzeInstruction(i, env)
		})

		for _, e := range b.Succs {
			if e.Type == ir.EdgeGhost || e.Target == nil {
				continue
			}
			out := cp.AnalyzeEdge(b, e, env.Clone())
			if _, unreachable := out.(unreachableEnv); unreachable {
				continue
			}
			merged := Meet(cp.entryStates[e.Target], out)
			if !Equal(merged, cp.entryStates[e.Target]) {
				cp.entryStates[e.Target] = merged
				if !onList[e.Target] {
					worklist = append(worklist, e.Target)
					onList[e.Target] = true
				}
			}
		}
	}
}

func (cp *ConstantPropagation) EntryState(b *ir.Block) Env {
	if env, ok := cp.entryStates[b]; ok {
		return env.Clone()
	}
	return NewEnv()
}

// AnalyzeInstruction implements the transfer function: env becomes the
// post-state of i's destination.
func (cp *ConstantPropagation) AnalyzeInstruction(i *ir.Insn, env Env) {
	e := env.(*mapEnv)
	switch {
	case i.Op.IsMove():
		e.Set(i.Dest, e.Get(i.Src1))
	case i.Op == ir.OpConst:
		if i.Const >= 0 && i.Const < len(cp.method.Consts) {
			e.Set(i.Dest, Const(cp.method.Consts[i.Const]))
		} else {
			e.Set(i.Dest, Top())
		}
	case i.Op.IsLiteralArithmetic():
		e.Set(i.Dest, foldLiteralArithmetic(i, e.Get(i.Src1)))
	case i.Op.IsFieldGet():
		// The real fixpoint may know more (e.g. a freshly-constructed
		// object's field); this concrete analysis conservatively
		// assumes Top unless the owning class is currently being
		// initialized, in which case the field binding already
		// tracked in env (by a prior sput/iput analyzed this pass)
		// is authoritative.
		if i.Field != nil && cp.method.IsInitializerOf(i.Field.Owner) {
			e.Set(i.Dest, e.GetField(i.Field.Owner, i.Field.Name))
		} else {
			e.Set(i.Dest, Top())
		}
	case i.Op.IsFieldPut():
		if i.Field != nil && cp.method.IsInitializerOf(i.Field.Owner) {
			e.SetField(i.Field.Owner, i.Field.Name, e.Get(i.Src1))
		}
	case i.Op.IsInvoke(), i.Op == ir.OpMoveResult:
		e.Set(i.Dest, Top())
	}
}

// AnalyzeEdge implements the edge filter the Dead-Branch Pruner
// queries. Only conditional-branch-shaped blocks (exactly two
// non-ghost successors) can produce a Bottom result; every other edge
// is passed through unchanged.
func (cp *ConstantPropagation) AnalyzeEdge(from *ir.Block, e ir.Edge, env Env) Env {
	last := from.Last()
	if last == nil || !last.Op.IsConditionalBranch() {
		return env
	}
	cond := env.(*mapEnv).Get(last.Src1)
	c, ok := cond.(constAV)
	if !ok || c.bottom || c.top || c.val.Kind != ir.ValInt {
		return env
	}
	isZero := c.val.I == 0
	takenWhenZero := last.Op == ir.OpIfEqz
	truish := isZero == takenWhenZero // does the known value take the BRANCH edge?
	if e.Type == ir.EdgeBranch && !truish {
		return unreachableEnv{}
	}
	if e.Type == ir.EdgeGoto && truish {
		return unreachableEnv{}
	}
	return env
}

// unreachableEnv is a sentinel Env whose IsBottom-everywhere semantics
// the fixpoint driver recognizes via the type assertion in run(); it
// never needs Get/GetField/Clone to be called in practice, since run()
// special-cases it before merging.
type unreachableEnv struct{}

func (unreachableEnv) Get(ir.Reg) AV                { return Bottom() }
func (unreachableEnv) GetField(string, string) AV   { return Bottom() }
func (unreachableEnv) Set(ir.Reg, AV)               {}
func (unreachableEnv) SetField(string, string, AV)  {}
func (unreachableEnv) Clone() Env                   { return unreachableEnv{} }
func (unreachableEnv) IsBottom() bool               { return true }

func foldLiteralArithmetic(i *ir.Insn, src AV) AV {
	c, ok := src.(constAV)
	if !ok || c.bottom || c.top || c.val.Kind != ir.ValInt {
		return Top()
	}
	n := c.val.I
	lit := i.Lit
	var result int64
	switch i.Op {
	case ir.OpAddLit:
		result = n + lit
	case ir.OpSubLit:
		result = n - lit
	case ir.OpMulLit:
		result = n * lit
	case ir.OpAndLit:
		result = n & lit
	case ir.OpOrLit:
		result = n | lit
	case ir.OpXorLit:
		result = n ^ lit
	case ir.OpShlLit:
		result = n << uint(lit)
	case ir.OpShrLit:
		result = n >> uint(lit)
	case ir.OpUshrLit:
		result = int64(uint64(n) >> uint(lit))
	case ir.OpDivIntLit:
		if lit == 0 {
			return Top()
		}
		result = n / lit
	case ir.OpRemIntLit:
		if lit == 0 {
			return Top()
		}
		result = n % lit
	default:
		return Top()
	}
	return Const(ir.Int(result))
}
