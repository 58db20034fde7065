package inline

import (
	"context"
	"testing"

	"vmopt/internal/cpt"
	"vmopt/internal/ir"
	"vmopt/internal/resolve"
)

// buildCallerCalleeProgram returns a caller that tail-calls a tiny
// callee, wired so InlineMethods has exactly one legal, profitable
// site to absorb.
func buildCallerCalleeProgram() (*ir.Method, *ir.Method) {
	callee := &ir.Method{Owner: "A", Name: "identity", Arity: 1, IsPublic: true}
	cb := callee.AddBlock("entry")
	cb.Append(ir.NewReturn(0))

	caller := &ir.Method{Owner: "A", Name: "caller", Arity: 1, IsPublic: true}
	b := caller.AddBlock("entry")
	call := ir.NewInvoke(ir.OpInvokeStatic, 1, &ir.MethodRef{Owner: "A", Name: "identity"}, 0)
	b.Append(call)
	b.Append(ir.NewReturn(1))

	return caller, callee
}

func TestInlinerInlinesLegalProfitableSite(t *testing.T) {
	caller, callee := buildCallerCalleeProgram()
	candidates := []*ir.Method{caller, callee}
	resolver := resolve.NewResolver(resolve.NewScope(candidates))

	inl := New(candidates, resolver, Config{}, cpt.Config{}, 0)
	if err := inl.InlineMethods(context.Background()); err != nil {
		t.Fatalf("InlineMethods returned an error: %v", err)
	}

	stats, _ := inl.Stats()
	if stats.Inlined == 0 {
		t.Fatalf("expected at least one successful inline, got stats=%+v", stats)
	}

	var sawInvoke bool
	for _, b := range caller.Blocks {
		b.Each(func(i *ir.Insn) {
			if i.Op.IsInvoke() {
				sawInvoke = true
			}
		})
	}
	if sawInvoke {
		t.Fatalf("expected the call site to be gone after inlining")
	}
}

func TestInlinerRespectsBlacklist(t *testing.T) {
	caller, callee := buildCallerCalleeProgram()
	candidates := []*ir.Method{caller, callee}
	resolver := resolve.NewResolver(resolve.NewScope(candidates))

	cfg := Config{BlacklistedMethods: map[string]bool{callee.Key(): true}}
	inl := New(candidates, resolver, cfg, cpt.Config{}, 0)
	if err := inl.InlineMethods(context.Background()); err != nil {
		t.Fatalf("InlineMethods returned an error: %v", err)
	}

	stats, _ := inl.Stats()
	if stats.Inlined != 0 {
		t.Fatalf("expected no inlines once the callee is blacklisted, got %d", stats.Inlined)
	}
	if stats.Rejections[RejectBlacklist] == 0 {
		t.Fatalf("expected the blacklist rejection to be counted")
	}
}

func TestInlinerFinalizeIsIdempotent(t *testing.T) {
	caller, callee := buildCallerCalleeProgram()
	candidates := []*ir.Method{caller, callee}
	resolver := resolve.NewResolver(resolve.NewScope(candidates))
	inl := New(candidates, resolver, Config{}, cpt.Config{}, 0)

	first := inl.Finalize()
	second := inl.Finalize()
	if second != nil {
		t.Fatalf("a second Finalize call must be a no-op, got %v", second)
	}
	_ = first
}
