package cpt

import (
	"vmopt/internal/analysis"
	"vmopt/internal/ir"
	"vmopt/internal/plan"
)

// Stats tallies the CPT statistics a caller can inspect after a run.
type Stats struct {
	MaterializedConsts int
	BranchesRemoved    int
	SwitchesRemoved    int
	StoresEliminated   int
}

// Transform is the CPT driver: it walks every block, advances the
// analysis intra-block, invokes the Redundant-Store Eliminator at
// each instruction's pre-state and the Simplifier at its post-state,
// runs the branch/switch pruners on the block's terminal instruction,
// and finally commits the buffered Plan.
type Transform struct {
	cfg         Config
	editableCFG bool
}

func NewTransform(cfg Config, editableCFG bool) *Transform {
	return &Transform{cfg: cfg, editableCFG: editableCFG}
}

// Apply runs CPT over method using the already-computed fixpoint
// collaborator and whole-program state, returning the accumulated
// statistics. The order within each block is load-bearing: the
// eliminator sees i's pre-state, the simplifier sees its post-state,
// and the two pruners see the block's post-state after its last
// instruction.
func (t *Transform) Apply(collab analysis.Collaborator, wps analysis.WholeProgramState, method *ir.Method) Stats {
	p := plan.New(method.Key())
	eliminator := NewRedundantStoreEliminator(t.cfg, wps)
	simplifier := NewSimplifier(t.cfg, method, wps)
	branchPruner := NewBranchPruner(collab)
	switchPruner := NewSwitchPruner(t.cfg)

	for _, b := range method.Blocks {
		env := collab.EntryState(b)
		if env.IsBottom() {
			continue // unreachable; leave for DCE
		}
		b.Each(func(i *ir.Insn) {
			eliminator.Apply(method, i, env, p)
			collab.AnalyzeInstruction(i, env)
			simplifier.Apply(i, env, p)
		})
		branchPruner.Apply(method.Key(), b, env, p)
		switchPruner.Apply(b, env, t.editableCFG, p)
	}

	p.Apply()

	return Stats{
		MaterializedConsts: p.MaterializedConsts,
		BranchesRemoved:    p.BranchesRemoved,
		SwitchesRemoved:    p.SwitchesRemoved,
		StoresEliminated:   p.StoresEliminated,
	}
}
