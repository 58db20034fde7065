package ir

import "testing"

func TestBlockAppendAndEach(t *testing.T) {
	b := newBlock("entry")
	a := NewConst(0, 0)
	c := NewReturn(0)
	b.Append(a)
	b.Append(c)

	var seen []*Insn
	b.Each(func(i *Insn) { seen = append(seen, i) })
	if len(seen) != 2 || seen[0] != a || seen[1] != c {
		t.Fatalf("unexpected order: %v", seen)
	}
	if b.First() != a || b.Last() != c {
		t.Fatalf("First/Last mismatch")
	}
}

func TestBlockInsertBeforeAndUnlink(t *testing.T) {
	b := newBlock("entry")
	first := NewConst(0, 0)
	last := NewReturn(0)
	b.Append(first)
	b.Append(last)

	mid := NewMove(1, 0, false)
	b.InsertBefore(last, mid)

	var order []*Insn
	b.Each(func(i *Insn) { order = append(order, i) })
	if len(order) != 3 || order[1] != mid {
		t.Fatalf("expected mid inserted before last, got %v", order)
	}

	b.Unlink(mid)
	if mid.Block() != nil {
		t.Fatalf("Unlink should clear owning block")
	}
	order = nil
	b.Each(func(i *Insn) { order = append(order, i) })
	if len(order) != 2 {
		t.Fatalf("expected 2 instructions after unlink, got %d", len(order))
	}
}

func TestInsnCloneIsDetached(t *testing.T) {
	b := newBlock("entry")
	orig := NewInvoke(OpInvokeStatic, 2, &MethodRef{Owner: "A", Name: "f"}, 0, 1)
	b.Append(orig)

	clone := orig.Clone()
	if clone.Block() != nil {
		t.Fatalf("clone must start detached")
	}
	clone.Args[0] = 9
	if orig.Args[0] == 9 {
		t.Fatalf("clone must not alias original Args slice")
	}
}

func TestNonGhostSuccessorsFiltersGhost(t *testing.T) {
	target := newBlock("target")
	b := newBlock("entry")
	b.Succs = []Edge{
		{Type: EdgeGoto, Target: target},
		{Type: EdgeGhost, Target: target},
		{Type: EdgeBranch, Target: target},
	}
	got := b.NonGhostSuccessors()
	if len(got) != 2 {
		t.Fatalf("expected 2 non-ghost successors, got %d", len(got))
	}
}

func TestDefaultSuccessor(t *testing.T) {
	a, c := newBlock("a"), newBlock("c")
	b := newBlock("switch")
	b.Succs = []Edge{
		{Type: EdgeBranch, Target: a, CaseLabels: []int64{1}},
		{Type: EdgeGoto, Target: c},
	}
	def, ok := b.DefaultSuccessor()
	if !ok || def.Target != c {
		t.Fatalf("expected unique default successor c, got %+v ok=%v", def, ok)
	}

	b.Succs = append(b.Succs, Edge{Type: EdgeGoto, Target: a})
	if _, ok := b.DefaultSuccessor(); ok {
		t.Fatalf("expected no unique default with two goto edges")
	}
}

func TestValueEqualAndFitsLiteralWidth(t *testing.T) {
	if !Int(5).Equal(Int(5)) {
		t.Fatalf("equal ints should compare equal")
	}
	if Int(5).Equal(Float(5)) {
		t.Fatalf("different kinds must not compare equal")
	}
	if !Int(127).FitsLiteralWidth() {
		t.Fatalf("127 should fit an 8-bit literal width")
	}
	if Int(1 << 20).FitsLiteralWidth() {
		t.Fatalf("a 20-bit value should not fit the literal width")
	}
}

func TestMethodKeyAndInstructionCount(t *testing.T) {
	m := &Method{Owner: "com/example/A", Name: "f", Arity: 2}
	b := m.AddBlock("entry")
	b.Append(NewConst(0, 0))
	b.Append(NewReturn(0))

	if got, want := m.Key(), "com/example/A#f#2"; got != want {
		t.Fatalf("Key() = %q, want %q", got, want)
	}
	if got := m.InstructionCount(); got != 2 {
		t.Fatalf("InstructionCount() = %d, want 2", got)
	}
}

func TestIsInitializerOf(t *testing.T) {
	m := &Method{Owner: "A", Name: "<clinit>", IsClinit: true}
	if !m.IsInitializerOf("A") {
		t.Fatalf("expected clinit of A to match")
	}
	if m.IsInitializerOf("B") {
		t.Fatalf("clinit of A must not match B")
	}
}

func TestOpCodePredicates(t *testing.T) {
	if !OpIfEqz.IsConditionalBranch() || !OpIfEqz.IsBranch() {
		t.Fatalf("if-eqz must be a conditional branch")
	}
	if !OpSwitch.IsSwitch() || !OpSwitch.IsBranch() {
		t.Fatalf("switch must report IsSwitch and IsBranch")
	}
	if !OpGetStatic.IsFieldGet() {
		t.Fatalf("sget must report IsFieldGet")
	}
	if !OpAddLit.IsLiteralArithmetic() {
		t.Fatalf("add-lit must report IsLiteralArithmetic")
	}
	if !OpInvokeVirtual.IsInvoke() {
		t.Fatalf("invoke-virtual must report IsInvoke")
	}
	if OpMoveResult.String() != "move-result-pseudo" {
		t.Fatalf("unexpected String() for OpMoveResult: %q", OpMoveResult.String())
	}
}
