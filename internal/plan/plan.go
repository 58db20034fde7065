// Package plan implements the Rewrite Plan: a buffered
// replacement/deletion record keyed by instruction identity, applied
// atomically to a method so that a pass sweeping a block's instruction
// list never has its own iterator invalidated by its own edits —
// exactly the discipline compregister.Compiler avoids needing (it
// emits straight-line code, never rewrites in place) but which the CPT
// driver depends on as its central invariant.
package plan

import (
	"log"

	"github.com/google/uuid"

	"vmopt/internal/errdefs"
	"vmopt/internal/ir"
)

// replacement is one buffered (old, new) pair. New is never empty, and
// holds exactly one instruction when old is a branch (see Plan.Replace).
type replacement struct {
	old *ir.Insn
	new []*ir.Insn
}

// Plan accumulates edits for exactly one method rewrite. It is created
// empty, mutated only by simplifier/eliminator/pruner passes, and
// consumed exactly once by Apply.
type Plan struct {
	id           uuid.UUID
	methodName   string
	replacements []replacement
	replacedSet  map[*ir.Insn]bool
	deletions    []*ir.Insn
	deletedSet   map[*ir.Insn]bool

	MaterializedConsts int
	BranchesRemoved    int
	SwitchesRemoved    int
	StoresEliminated   int
}

func New(methodName string) *Plan {
	return &Plan{
		id:          uuid.New(),
		methodName:  methodName,
		replacedSet: map[*ir.Insn]bool{},
		deletedSet:  map[*ir.Insn]bool{},
	}
}

// Replace records old -> new. new must have length 1 if old is a
// branch; any other non-empty sequence is fine for non-branch
// instructions. Panics via errdefs.Invariant if old was already
// replaced or deleted, or if the branch-arity invariant is violated.
func (p *Plan) Replace(old *ir.Insn, new []*ir.Insn) {
	if len(new) == 0 {
		panic(errdefs.Invariant(p.methodName, "Replace called with empty instruction sequence for %v", old.Op))
	}
	if old.Op.IsBranch() && len(new) != 1 {
		panic(errdefs.Invariant(p.methodName, "branch replacement for %v must supply exactly one instruction, got %d", old.Op, len(new)))
	}
	if p.deletedSet[old] {
		panic(errdefs.Invariant(p.methodName, "instruction already scheduled for deletion cannot also be replaced"))
	}
	if p.replacedSet[old] {
		panic(errdefs.Invariant(p.methodName, "instruction already scheduled for replacement"))
	}
	p.replacedSet[old] = true
	p.replacements = append(p.replacements, replacement{old: old, new: new})
}

// Delete records old for removal. Panics via errdefs.Invariant on a
// disjointness violation (old already scheduled for replacement).
func (p *Plan) Delete(old *ir.Insn) {
	if p.replacedSet[old] {
		panic(errdefs.Invariant(p.methodName, "instruction already scheduled for replacement cannot also be deleted"))
	}
	if p.deletedSet[old] {
		return // idempotent: a later pass may re-flag the same deletion
	}
	p.deletedSet[old] = true
	p.deletions = append(p.deletions, old)
}

// IsEmpty reports whether the plan has no buffered edits, letting
// callers skip re-walking a block that changed nothing.
func (p *Plan) IsEmpty() bool {
	return len(p.replacements) == 0 && len(p.deletions) == 0
}

// Apply executes the plan in two phases — replacements, then
// deletions, both in insertion order — against the owning blocks of
// the recorded instructions. This is the only place instruction-list
// iterators may be invalidated. The batch id in the log line lets a
// run with several shrink passes racing across methods attribute a
// given CFG mutation to the plan that made it.
func (p *Plan) Apply() {
	if p.IsEmpty() {
		return
	}
	log.Printf("plan %s: applying %d replacement(s) and %d deletion(s) to %s", p.id, len(p.replacements), len(p.deletions), p.methodName)
	for _, r := range p.replacements {
		applyReplacement(r)
	}
	for _, d := range p.deletions {
		b := d.Block()
		if b == nil {
			continue // already spliced out by a replacement above
		}
		b.Unlink(d)
	}
}

func applyReplacement(r replacement) {
	b := r.old.Block()
	if r.old.Op.IsBranch() {
		// Branch replacement: swap the terminal instruction and let
		// the block's successor edges be reconciled by the caller
		// (cpt.BranchPruner/SwitchPruner already rewrote Succs before
		// scheduling this replacement; here we only splice the opcode
		// node itself).
		newInsn := r.new[0]
		b.InsertBefore(r.old, newInsn)
		b.Unlink(r.old)
		return
	}
	// Non-branch: splice the whole sequence in, preserving position.
	for _, n := range r.new {
		b.InsertBefore(r.old, n)
	}
	b.Unlink(r.old)
}
