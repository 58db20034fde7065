package inline

import (
	"testing"

	"vmopt/internal/cpt"
	"vmopt/internal/ir"
)

func TestCopyPropagateFoldsMoveChain(t *testing.T) {
	m := &ir.Method{Owner: "A", Name: "m"}
	b := m.AddBlock("entry")
	b.Append(ir.NewMove(1, 0, false))  // r1 = r0
	b.Append(ir.NewMove(2, 1, false))  // r2 = r1  (should fold to r2 = r0's value of r1, i.e. Src1 rewritten to 0)
	ret := ir.NewReturn(2)
	b.Append(ret)

	n := copyPropagate(m)
	if n == 0 {
		t.Fatalf("expected at least one operand rewritten by copy propagation")
	}
	if ret.Src1 != 0 {
		t.Fatalf("expected the return's operand to be folded back to the copy origin r0, got r%d", ret.Src1)
	}
}

func TestLocalDCERemovesDeadStore(t *testing.T) {
	m := &ir.Method{Owner: "A", Name: "m"}
	b := m.AddBlock("entry")
	dead := ir.NewMove(1, 0, false) // r1 never read again
	b.Append(dead)
	b.Append(ir.NewReturn(0))

	removed := localDCE(m)
	if removed != 1 {
		t.Fatalf("expected exactly one dead store removed, got %d", removed)
	}
	if dead.Block() != nil {
		t.Fatalf("expected the dead move to be unlinked from its block")
	}
}

func TestLocalDCEKeepsLiveStore(t *testing.T) {
	m := &ir.Method{Owner: "A", Name: "m"}
	b := m.AddBlock("entry")
	live := ir.NewMove(1, 0, false)
	b.Append(live)
	b.Append(ir.NewReturn(1))

	removed := localDCE(m)
	if removed != 0 {
		t.Fatalf("expected the live store to be kept, got %d removed", removed)
	}
	if live.Block() == nil {
		t.Fatalf("the live move must remain linked")
	}
}

func TestLocalDCEKeepsSideEffectingInvoke(t *testing.T) {
	m := &ir.Method{Owner: "A", Name: "m"}
	b := m.AddBlock("entry")
	call := ir.NewInvoke(ir.OpInvokeStatic, 1, &ir.MethodRef{Owner: "A", Name: "other"})
	b.Append(call)
	b.Append(ir.NewReturn(0)) // r1 never read, but the invoke has a side effect

	removed := localDCE(m)
	if removed != 0 {
		t.Fatalf("an invoke must never be pruned as dead code even with an unused result, removed=%d", removed)
	}
}

func TestShrinkCoordinatorAccumulatesStatsAcrossCalls(t *testing.T) {
	sc := NewShrinkCoordinator(cpt.Config{})

	m1 := &ir.Method{Owner: "A", Name: "m1"}
	b1 := m1.AddBlock("entry")
	dead := ir.NewMove(1, 0, false)
	b1.Append(dead)
	b1.Append(ir.NewReturn(0))
	sc.Shrink(m1)

	m2 := &ir.Method{Owner: "A", Name: "m2"}
	b2 := m2.AddBlock("entry")
	dead2 := ir.NewMove(1, 0, false)
	b2.Append(dead2)
	b2.Append(ir.NewReturn(0))
	sc.Shrink(m2)

	stats := sc.Stats()
	if stats.DeadStoresPruned != 2 {
		t.Fatalf("expected dead-store count to accumulate across two Shrink calls, got %d", stats.DeadStoresPruned)
	}
}
