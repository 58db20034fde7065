package inline

import (
	"testing"

	"vmopt/internal/ir"
	"vmopt/internal/resolve"
)

func methodCalling(owner, name string, target *ir.MethodRef) *ir.Method {
	m := &ir.Method{Owner: owner, Name: name}
	b := m.AddBlock("entry")
	if target != nil {
		b.Append(ir.NewInvoke(ir.OpInvokeStatic, 0, target))
	}
	b.Append(ir.NewReturn(0))
	return m
}

func TestBuildCallGraphLinksCallerAndCallee(t *testing.T) {
	leaf := methodCalling("A", "leaf", nil)
	mid := methodCalling("A", "mid", &ir.MethodRef{Owner: "A", Name: "leaf"})
	methods := []*ir.Method{leaf, mid}
	resolver := resolve.NewResolver(resolve.NewScope(methods))

	cg := BuildCallGraph(methods, resolver)

	callees := cg.Callees(mid)
	if len(callees) != 1 || callees[0] != leaf {
		t.Fatalf("expected mid to call leaf, got %v", callees)
	}
	callers := cg.Callers(leaf)
	if len(callers) != 1 || callers[0] != mid {
		t.Fatalf("expected leaf to be called by mid, got %v", callers)
	}
}

func TestBuildCallGraphDepthOrdersLeavesFirst(t *testing.T) {
	leaf := methodCalling("A", "leaf", nil)
	mid := methodCalling("A", "mid", &ir.MethodRef{Owner: "A", Name: "leaf"})
	top := methodCalling("A", "top", &ir.MethodRef{Owner: "A", Name: "mid"})
	methods := []*ir.Method{leaf, mid, top}
	resolver := resolve.NewResolver(resolve.NewScope(methods))

	cg := BuildCallGraph(methods, resolver)
	order := cg.BottomUpOrder()
	pos := map[string]int{}
	for i, m := range order {
		pos[m.Key()] = i
	}
	if pos[leaf.Key()] >= pos[mid.Key()] || pos[mid.Key()] >= pos[top.Key()] {
		t.Fatalf("expected leaf before mid before top in bottom-up order, got %v", order)
	}
}

func TestBuildCallGraphPrunesSelfRecursion(t *testing.T) {
	recursive := &ir.Method{Owner: "A", Name: "r"}
	b := recursive.AddBlock("entry")
	b.Append(ir.NewInvoke(ir.OpInvokeStatic, 0, &ir.MethodRef{Owner: "A", Name: "r"}))
	b.Append(ir.NewReturn(0))
	methods := []*ir.Method{recursive}
	resolver := resolve.NewResolver(resolve.NewScope(methods))

	cg := BuildCallGraph(methods, resolver)
	if len(cg.Callees(recursive)) != 0 {
		t.Fatalf("direct self-recursion must not appear as a callee edge, got %v", cg.Callees(recursive))
	}
}

func TestBuildCallGraphPrunesMutualRecursion(t *testing.T) {
	a := methodCalling("A", "a", &ir.MethodRef{Owner: "A", Name: "b"})
	b := methodCalling("A", "b", &ir.MethodRef{Owner: "A", Name: "a"})
	methods := []*ir.Method{a, b}
	resolver := resolve.NewResolver(resolve.NewScope(methods))

	cg := BuildCallGraph(methods, resolver)
	totalEdges := len(cg.Callees(a)) + len(cg.Callees(b))
	if totalEdges >= 2 {
		t.Fatalf("mutual recursion must have at least one edge pruned, got %d total edges", totalEdges)
	}

	totalSites := len(cg.Sites(a)) + len(cg.Sites(b))
	if totalSites >= 2 {
		t.Fatalf("a pruned back edge must not leave a call site behind, got %d total sites", totalSites)
	}
}

func TestCallGraphSitesInProgramOrder(t *testing.T) {
	leaf1 := methodCalling("A", "leaf1", nil)
	leaf2 := methodCalling("A", "leaf2", nil)
	caller := &ir.Method{Owner: "A", Name: "caller"}
	b := caller.AddBlock("entry")
	b.Append(ir.NewInvoke(ir.OpInvokeStatic, 0, &ir.MethodRef{Owner: "A", Name: "leaf1"}))
	b.Append(ir.NewInvoke(ir.OpInvokeStatic, 0, &ir.MethodRef{Owner: "A", Name: "leaf2"}))
	b.Append(ir.NewReturn(0))

	methods := []*ir.Method{leaf1, leaf2, caller}
	resolver := resolve.NewResolver(resolve.NewScope(methods))
	cg := BuildCallGraph(methods, resolver)

	sites := cg.Sites(caller)
	if len(sites) != 2 || sites[0].Callee != leaf1 || sites[1].Callee != leaf2 {
		t.Fatalf("expected call sites in program order [leaf1, leaf2], got %v", sites)
	}
}
