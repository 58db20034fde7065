package inline

import (
	"sync"

	"vmopt/internal/analysis"
	"vmopt/internal/cpt"
	"vmopt/internal/ir"
)

// ShrinkStats accumulates the per-pass counters every post-inline
// shrink pass contributes, reported back to the caller as combined
// totals across the whole run.
type ShrinkStats struct {
	cpt.Stats
	CopiesPropagated int
	DeadStoresPruned int
}

// ShrinkCoordinator runs the local clean-up passes a freshly-inlined
// method needs before its own callers consider inlining it in turn:
// constant propagation (the same Transform used standalone), then the
// intra-block copy propagation and local dead-code elimination defined
// in this file. No common-subexpression elimination pass is run.
type ShrinkCoordinator struct {
	cfg cpt.Config

	mu    sync.Mutex
	stats ShrinkStats
}

func NewShrinkCoordinator(cfg cpt.Config) *ShrinkCoordinator {
	return &ShrinkCoordinator{cfg: cfg}
}

// Shrink re-runs constant propagation to a fresh fixpoint (the
// callee's inlined body invalidates the caller's previous analysis),
// then folds trivial copies and removes now-dead local assignments.
// It is safe to call concurrently from multiple scheduler workers
// operating on distinct methods.
func (s *ShrinkCoordinator) Shrink(method *ir.Method) cpt.Stats {
	collab := analysis.NewConstantPropagation(method)
	wps := analysis.NewWholeProgramState()
	transform := cpt.NewTransform(s.cfg, false)
	st := transform.Apply(collab, wps, method)

	copies := copyPropagate(method)
	dead := localDCE(method)

	s.mu.Lock()
	s.stats.Stats.MaterializedConsts += st.MaterializedConsts
	s.stats.Stats.BranchesRemoved += st.BranchesRemoved
	s.stats.Stats.SwitchesRemoved += st.SwitchesRemoved
	s.stats.Stats.StoresEliminated += st.StoresEliminated
	s.stats.CopiesPropagated += copies
	s.stats.DeadStoresPruned += dead
	s.mu.Unlock()

	return st
}

func (s *ShrinkCoordinator) Stats() ShrinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// copyPropagate folds "move b <- a" chains by rewriting later uses of
// b directly to a, within a single block, the narrow slice of a full
// copy-propagation pass that depends only on what this package already
// tracks (no separate lattice of its own).
func copyPropagate(m *ir.Method) int {
	n := 0
	for _, b := range m.Blocks {
		copyOf := map[ir.Reg]ir.Reg{}
		b.Each(func(i *ir.Insn) {
			if src, ok := copyOf[i.Src1]; ok {
				i.Src1 = src
				n++
			}
			if src, ok := copyOf[i.Src2]; ok {
				i.Src2 = src
				n++
			}
			for k, a := range i.Args {
				if src, ok := copyOf[a]; ok {
					i.Args[k] = src
					n++
				}
			}
			if i.Op.IsMove() {
				origin := i.Src1
				if o, ok := copyOf[i.Src1]; ok {
					origin = o
				}
				copyOf[i.Dest] = origin
			} else {
				delete(copyOf, i.Dest)
			}
		})
	}
	return n
}

// localDCE removes instructions whose destination register is never
// read again within the same block and has no visible side effect,
// the narrow intra-block slice of dead-code elimination the shrink
// step needs after inlining produces dead temporaries.
func localDCE(m *ir.Method) int {
	removed := 0
	for _, b := range m.Blocks {
		used := map[ir.Reg]bool{}
		b.Each(func(i *ir.Insn) {
			used[i.Src1] = true
			used[i.Src2] = true
			for _, a := range i.Args {
				used[a] = true
			}
		})
		var dead []*ir.Insn
		b.Each(func(i *ir.Insn) {
			if hasSideEffect(i) {
				return
			}
			if !used[i.Dest] {
				dead = append(dead, i)
			}
		})
		for _, i := range dead {
			b.Unlink(i)
			removed++
		}
	}
	return removed
}

func hasSideEffect(i *ir.Insn) bool {
	switch {
	case i.Op.IsFieldPut(), i.Op.IsBranch(), i.Op.IsInvoke():
		return true
	default:
		return false
	}
}
