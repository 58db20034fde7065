package cpt

import (
	"vmopt/internal/analysis"
	"vmopt/internal/errdefs"
	"vmopt/internal/ir"
	"vmopt/internal/plan"
)

// BranchPruner deletes or rewrites conditional branches with a
// proven-unreachable successor edge. It operates on the last
// instruction of a block, at that instruction's post-state.
type BranchPruner struct {
	collab analysis.Collaborator
}

func NewBranchPruner(collab analysis.Collaborator) *BranchPruner {
	return &BranchPruner{collab: collab}
}

// Apply inspects b's terminal instruction (a no-op if it isn't a
// conditional branch) and prunes it if exactly one of its two
// non-ghost successor edges is unreachable.
func (bp *BranchPruner) Apply(methodName string, b *ir.Block, env analysis.Env, p *plan.Plan) {
	last := b.Last()
	if last == nil || !last.Op.IsConditionalBranch() {
		return
	}
	nonGhost := b.NonGhostSuccessors()
	if len(nonGhost) != 2 {
		panic(errdefs.Invariant(methodName, "conditional branch block %q must have exactly two non-ghost successors, got %d", b.Label, len(nonGhost)))
	}

	var gotoEdge, branchEdge ir.Edge
	for _, e := range nonGhost {
		switch e.Type {
		case ir.EdgeGoto:
			gotoEdge = e
		case ir.EdgeBranch:
			branchEdge = e
		}
	}

	gotoUnreachable := bp.collab.AnalyzeEdge(b, gotoEdge, env).IsBottom()
	branchUnreachable := bp.collab.AnalyzeEdge(b, branchEdge, env).IsBottom()

	// rewire makes keep b's only non-ghost successor (ghost edges stay),
	// so Succs matches the rewritten terminal instruction.
	rewire := func(keep ir.Edge) {
		succs := []ir.Edge{keep}
		for _, e := range b.Succs {
			if e.Type == ir.EdgeGhost {
				succs = append(succs, e)
			}
		}
		b.Succs = succs
	}

	switch {
	case gotoUnreachable && branchUnreachable:
		panic(errdefs.Invariant(methodName, "block %q is reachable but both successor edges are unreachable", b.Label))
	case gotoUnreachable:
		// Fallthrough is dead: replace the conditional with an
		// unconditional goto to the original branch target.
		p.Replace(last, []*ir.Insn{ir.NewGoto(branchEdge.Target)})
		p.BranchesRemoved++
		rewire(ir.Edge{Type: ir.EdgeGoto, Target: branchEdge.Target})
	case branchUnreachable:
		// Branch-taken is dead: delete the branch; fallthrough wins.
		p.Delete(last)
		p.BranchesRemoved++
		rewire(gotoEdge)
	}
}
