package cpt

import (
	"vmopt/internal/analysis"
	"vmopt/internal/ir"
	"vmopt/internal/plan"
)

// RedundantStoreEliminator deletes sput*/iput* instructions whose new
// value equals the currently known value. It must be evaluated at i's
// *pre-state* (env before AnalyzeInstruction runs), unlike Simplifier
// which needs the post-state — the CPT driver enforces that ordering.
type RedundantStoreEliminator struct {
	cfg Config
	wps analysis.WholeProgramState
}

func NewRedundantStoreEliminator(cfg Config, wps analysis.WholeProgramState) *RedundantStoreEliminator {
	return &RedundantStoreEliminator{cfg: cfg, wps: wps}
}

// Apply examines i (expected to be an sput*/iput* instruction; no-op
// otherwise) against env's pre-state and records a deletion on p if the
// store is provably redundant.
func (e *RedundantStoreEliminator) Apply(method *ir.Method, i *ir.Insn, env analysis.Env, p *plan.Plan) {
	if !i.Op.IsFieldPut() {
		return
	}
	f := i.Field
	if f == nil || f.Unresolved {
		return // unresolved field reference: skip, not an error (§7)
	}

	var reference analysis.AV
	if method.IsInitializerOf(f.Owner) && f.Owner == e.cfg.ClassUnderInit {
		reference = env.GetField(f.Owner, f.Name)
	} else {
		reference = e.wps.Field(f.Owner, f.Name)
	}

	current := env.Get(i.Src1)
	if reference.RuntimeEquals(current) {
		p.Delete(i)
		p.StoresEliminated++
	}
}
