package cpt

import (
	"vmopt/internal/analysis"
	"vmopt/internal/ir"
	"vmopt/internal/plan"
)

// SwitchPruner deletes or rewrites a switch whose case reachability is
// decidable from the switched register's AV, demoting unreachable case
// labels to fallthrough markers and promoting the sole surviving label
// (if any) to a simple branch target. Unlike BranchPruner it never
// calls analysis.Collaborator.AnalyzeEdge — this works directly from
// AV.Meet against each case key, bypassing the edge filter entirely.
type SwitchPruner struct {
	cfg Config
}

func NewSwitchPruner(cfg Config) *SwitchPruner {
	return &SwitchPruner{cfg: cfg}
}

// Apply inspects b's terminal instruction (a no-op if it isn't a
// switch, or if RemoveDeadSwitch is disabled). editableCFG gates
// whether this pruner runs at all: pass true only when some other
// collaborator still holds a view of this block's successor edges that
// it expects to stay stable (a mid-edit CFG), in which case this
// pruner no-ops rather than rewrite successor edges out from under it.
// A terminal driver that owns the CFG outright (CLI, shrink
// coordinator) should pass false so dead switches actually get pruned.
func (sp *SwitchPruner) Apply(b *ir.Block, env analysis.Env, editableCFG bool, p *plan.Plan) {
	last := b.Last()
	if last == nil || !last.Op.IsSwitch() || !sp.cfg.RemoveDeadSwitch || editableCFG {
		return
	}

	defaultEdge, ok := b.DefaultSuccessor()
	if !ok {
		return // malformed switch: no unique default; leave untouched
	}

	switchAV := env.Get(last.Src1)
	if switchAV.IsTop() {
		return // can't decide; case labels within targeted blocks may
		// still be pruned by a later, narrower pass, but this pruner
		// only handles the switch-reachability decision itself.
	}

	type reachable struct {
		edgeIdx int
		labels  []int64 // surviving (non-demoted) labels on this edge
	}
	var live []reachable

	for idx, e := range b.Succs {
		if e.Type != ir.EdgeBranch {
			continue
		}
		isDefault := e.Target == defaultEdge.Target
		var surviving []int64
		for _, key := range e.CaseLabels {
			if isDefault {
				continue // demoted: default-equivalent label
			}
			keyAV := analysis.Const(ir.Int(key))
			if switchAV.Meet(keyAV).IsBottom() {
				continue // demoted: provably not the switched value
			}
			surviving = append(surviving, key)
		}
		if len(surviving) > 0 {
			live = append(live, reachable{edgeIdx: idx, labels: surviving})
		}
	}

	if len(live) > 1 {
		return // more than one distinct successor still reachable: nothing decidable
	}

	if len(live) == 0 {
		// Zero reachable: delete the switch; control falls through to
		// the default block. Every case edge is now dead.
		p.Delete(last)
		p.SwitchesRemoved++
		b.Succs = []ir.Edge{defaultEdge}
		return
	}

	// Exactly one reachable: replace the switch with an unconditional
	// goto, promoting the first surviving label in that successor and
	// demoting every other case edge, including any other label on the
	// same edge.
	target := b.Succs[live[0].edgeIdx].Target
	p.Replace(last, []*ir.Insn{ir.NewGoto(target)})
	p.SwitchesRemoved++
	b.Succs = []ir.Edge{{Type: ir.EdgeGoto, Target: target, CaseLabels: []int64{live[0].labels[0]}}}
}
