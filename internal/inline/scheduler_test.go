package inline

import (
	"context"
	"sync"
	"testing"

	"vmopt/internal/ir"
	"vmopt/internal/resolve"
)

func chainCallGraph() (*CallGraph, *ir.Method, *ir.Method, *ir.Method) {
	leaf := methodCalling("A", "leaf", nil)
	mid := methodCalling("A", "mid", &ir.MethodRef{Owner: "A", Name: "leaf"})
	top := methodCalling("A", "top", &ir.MethodRef{Owner: "A", Name: "mid"})
	methods := []*ir.Method{leaf, mid, top}
	resolver := resolve.NewResolver(resolve.NewScope(methods))
	return BuildCallGraph(methods, resolver), leaf, mid, top
}

func TestSchedulerRunsEachMethodExactlyOnceSynchronously(t *testing.T) {
	cg, leaf, mid, top := chainCallGraph()
	sched := NewScheduler(cg, 0)

	var mu sync.Mutex
	counts := map[string]int{}
	err := sched.Run(context.Background(), func(m *ir.Method) error {
		mu.Lock()
		counts[m.Key()]++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	for _, m := range []*ir.Method{leaf, mid, top} {
		if counts[m.Key()] != 1 {
			t.Fatalf("expected %s to run exactly once, ran %d times", m.Key(), counts[m.Key()])
		}
	}
}

func TestSchedulerRespectsBottomUpDependencyOrder(t *testing.T) {
	cg, leaf, mid, top := chainCallGraph()
	sched := NewScheduler(cg, 0)

	var mu sync.Mutex
	var order []string
	err := sched.Run(context.Background(), func(m *ir.Method) error {
		mu.Lock()
		order = append(order, m.Key())
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}

	pos := map[string]int{}
	for i, k := range order {
		pos[k] = i
	}
	if pos[leaf.Key()] >= pos[mid.Key()] || pos[mid.Key()] >= pos[top.Key()] {
		t.Fatalf("expected leaf before mid before top, got order=%v", order)
	}
}

func TestSchedulerRunsEachMethodExactlyOnceWithWorkers(t *testing.T) {
	cg, leaf, mid, top := chainCallGraph()
	sched := NewScheduler(cg, 4)

	var mu sync.Mutex
	counts := map[string]int{}
	err := sched.Run(context.Background(), func(m *ir.Method) error {
		mu.Lock()
		counts[m.Key()]++
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	for _, m := range []*ir.Method{leaf, mid, top} {
		if counts[m.Key()] != 1 {
			t.Fatalf("expected %s to run exactly once, ran %d times", m.Key(), counts[m.Key()])
		}
	}
}

func TestSchedulerPropagatesWorkError(t *testing.T) {
	cg, _, _, _ := chainCallGraph()
	sched := NewScheduler(cg, 0)

	boom := errTest("boom")
	err := sched.Run(context.Background(), func(m *ir.Method) error {
		if m.Name == "leaf" {
			return boom
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected the scheduler to surface the work error")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
