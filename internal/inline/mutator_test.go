package inline

import (
	"testing"

	"vmopt/internal/ir"
)

// buildTailCallSite constructs: caller has a single block ending in
// "invoke callee; return result", and callee is a single-block method
// that adds the literal 0 to its one argument and returns it.
func buildTailCallSite() Site {
	callee := &ir.Method{Owner: "A", Name: "double", Arity: 1}
	cb := callee.AddBlock("entry")
	cb.Append(ir.NewLitArith(ir.OpAddLit, 0, 0, 0)) // reg0 = reg0 + 0 (placeholder add)
	cb.Append(ir.NewReturn(0))

	caller := &ir.Method{Owner: "A", Name: "caller", Arity: 1}
	b := caller.AddBlock("entry")
	call := ir.NewInvoke(ir.OpInvokeStatic, 1, &ir.MethodRef{Owner: "A", Name: "double"}, 0)
	b.Append(call)
	b.Append(ir.NewReturn(1))

	return Site{Caller: caller, Callee: callee, Invoke: call}
}

func TestTailCallRenameSplicesSingleBlockCallee(t *testing.T) {
	site := buildTailCallSite()
	b := site.Invoke.Block()

	ok := TailCallRename(site)
	if !ok {
		t.Fatalf("expected TailCallRename to succeed for a single-block callee")
	}
	if site.Invoke.Block() != nil {
		t.Fatalf("the original invoke must be unlinked after a successful rename")
	}

	var ops []ir.OpCode
	b.Each(func(i *ir.Insn) { ops = append(ops, i.Op) })
	if len(ops) == 0 {
		t.Fatalf("expected the callee body spliced into the caller block")
	}
	// The callee's body replaces the call, so the original invoke must
	// no longer appear in the caller block.
	for _, op := range ops {
		if op == ir.OpInvokeStatic {
			t.Fatalf("the original call site must be gone, found %v", ops)
		}
	}
}

func TestTailCallRenameRejectsNonTailPosition(t *testing.T) {
	callee := &ir.Method{Owner: "A", Name: "callee", Arity: 0}
	cb := callee.AddBlock("entry")
	cb.Append(ir.NewReturn(0))

	caller := &ir.Method{Owner: "A", Name: "caller", Arity: 0}
	b := caller.AddBlock("entry")
	call := ir.NewInvoke(ir.OpInvokeStatic, 0, &ir.MethodRef{Owner: "A", Name: "callee"})
	b.Append(call)
	b.Append(ir.NewMove(1, 0, false)) // something follows the call: not tail position
	b.Append(ir.NewReturn(1))

	site := Site{Caller: caller, Callee: callee, Invoke: call}
	if TailCallRename(site) {
		t.Fatalf("expected TailCallRename to refuse a non-tail call site")
	}
}

func TestTailCallRenameRejectsMultiBlockCallee(t *testing.T) {
	callee := &ir.Method{Owner: "A", Name: "callee", Arity: 0}
	entry := callee.AddBlock("entry")
	other := callee.AddBlock("other")
	entry.Append(ir.NewGoto(other))
	entry.Succs = []ir.Edge{{Type: ir.EdgeGoto, Target: other}}
	other.Append(ir.NewReturn(0))

	caller := &ir.Method{Owner: "A", Name: "caller", Arity: 0}
	b := caller.AddBlock("entry")
	call := ir.NewInvoke(ir.OpInvokeStatic, 0, &ir.MethodRef{Owner: "A", Name: "callee"})
	b.Append(call)
	b.Append(ir.NewReturn(0))

	site := Site{Caller: caller, Callee: callee, Invoke: call}
	if TailCallRename(site) {
		t.Fatalf("expected TailCallRename to defer multi-block callees to GeneralInline")
	}
}

func TestGeneralInlineSplicesMultiBlockCallee(t *testing.T) {
	callee := &ir.Method{Owner: "A", Name: "callee", Arity: 1}
	entry := callee.AddBlock("entry")
	thenB := callee.AddBlock("then")
	entry.Append(ir.NewIf(ir.OpIfEqz, 0, thenB))
	entry.Succs = []ir.Edge{
		{Type: ir.EdgeBranch, Target: thenB},
		{Type: ir.EdgeGoto, Target: thenB},
	}
	thenB.Append(ir.NewReturn(0))

	caller := &ir.Method{Owner: "A", Name: "caller", Arity: 1}
	b := caller.AddBlock("entry")
	call := ir.NewInvoke(ir.OpInvokeStatic, 1, &ir.MethodRef{Owner: "A", Name: "callee"}, 0)
	b.Append(call)
	b.Append(ir.NewReturn(1))

	site := Site{Caller: caller, Callee: callee, Invoke: call}
	beforeBlocks := len(caller.Blocks)
	ok := GeneralInline(site)
	if !ok {
		t.Fatalf("expected GeneralInline to succeed")
	}
	if len(caller.Blocks) <= beforeBlocks {
		t.Fatalf("expected GeneralInline to append new blocks for the callee's body")
	}
	if call.Block() != nil {
		t.Fatalf("the original call site must be unlinked after inlining")
	}
}
