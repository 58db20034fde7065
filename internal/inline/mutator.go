package inline

import (
	"strconv"

	"vmopt/internal/ir"
)

// registerAllocator assigns fresh registers above a caller's current
// high-water mark, adapted from compregister.RegisterAllocator
// (nextReg/maxReg/freeRegs) into a rename table instead of a fresh
// allocation per compile: inlining only ever needs to shift a
// contiguous callee register window above the caller's own.
type registerAllocator struct {
	next ir.Reg
}

func newRegisterAllocator(high ir.Reg) *registerAllocator {
	return &registerAllocator{next: high + 1}
}

func (a *registerAllocator) alloc() ir.Reg {
	r := a.next
	a.next++
	return r
}

// callerHighWaterMark scans every register operand in caller and
// returns the highest one used, the base the Inline Mutator rebases
// callee registers above.
func callerHighWaterMark(m *ir.Method) ir.Reg {
	var max ir.Reg
	bump := func(r ir.Reg) {
		if r > max {
			max = r
		}
	}
	for _, b := range m.Blocks {
		b.Each(func(i *ir.Insn) {
			bump(i.Dest)
			bump(i.Src1)
			bump(i.Src2)
			for _, a := range i.Args {
				bump(a)
			}
		})
	}
	return max
}

// renameTable maps a callee's original registers to the caller-local
// registers the mutator allocated for this inline.
type renameTable map[ir.Reg]ir.Reg

func (rt renameTable) rename(r ir.Reg) ir.Reg {
	if v, ok := rt[r]; ok {
		return v
	}
	return r
}

func (rt renameTable) renameInsn(i *ir.Insn) {
	i.Dest = rt.rename(i.Dest)
	i.Src1 = rt.rename(i.Src1)
	i.Src2 = rt.rename(i.Src2)
	for k, a := range i.Args {
		i.Args[k] = rt.rename(a)
	}
}

// TailCallRename performs the cheap inline mode: it applies only when
// nothing but an optional move-result and the caller's return follows
// site.Invoke in its block, so the whole callee
// body can be spliced in with registers renamed, no control-flow
// splice required because the callee's own returns already fall off
// the caller's end.
func TailCallRename(site Site) bool {
	caller := site.Caller
	b := site.Invoke.Block()
	if b == nil {
		return false
	}
	next := site.Invoke.Next()
	if next != nil && next.Op == ir.OpMoveResult {
		next = next.Next()
	}
	if next != nil && next.Op != ir.OpReturn {
		return false
	}
	if len(site.Callee.Blocks) != 1 {
		return false // multi-block callees need the CFG splice GeneralInline performs
	}

	rt := renameTable{}
	alloc := newRegisterAllocator(callerHighWaterMark(caller))

	callee := site.Callee
	for _, p := range calleeParamRegs(callee) {
		rt[p] = site.Invoke.Args[paramIndex(callee, p)]
	}

	entry := callee.Entry
	if entry == nil {
		return false
	}
	entry.Each(func(i *ir.Insn) {
		for _, r := range operandRegs(i) {
			if _, mapped := rt[r]; !mapped {
				rt[r] = alloc.alloc()
			}
		}
	})

	insertMark := site.Invoke
	entry.Each(func(i *ir.Insn) {
		clone := i.Clone()
		rt.renameInsn(clone)
		if clone.Op == ir.OpReturn {
			if site.Invoke.Dest != 0 {
				mv := ir.NewMove(site.Invoke.Dest, clone.Src1, false)
				b.InsertBefore(insertMark, mv)
			}
			return
		}
		b.InsertBefore(insertMark, clone)
	})
	b.Unlink(site.Invoke)
	return true
}

// GeneralInline performs the full inline mode: it splices callee's
// body into the caller, preceded by argument-to-
// parameter moves and followed by rewriting every callee return into a
// move-to-result plus a goto past the spliced code (multi-block
// callees are appended as new caller blocks and the caller block is
// split at the call site).
func GeneralInline(site Site) bool {
	caller, b, call := site.Caller, site.Invoke.Block(), site.Invoke
	if b == nil || site.Callee.Entry == nil {
		return false
	}

	rt := renameTable{}
	alloc := newRegisterAllocator(callerHighWaterMark(caller))
	for _, block := range site.Callee.Blocks {
		block.Each(func(i *ir.Insn) {
			for _, r := range operandRegs(i) {
				if _, mapped := rt[r]; !mapped {
					rt[r] = alloc.alloc()
				}
			}
		})
	}

	for idx, p := range calleeParamRegs(site.Callee) {
		if idx >= len(call.Args) {
			break
		}
		mv := ir.NewMove(rt.rename(p), call.Args[idx], false)
		b.InsertBefore(call, mv)
	}

	after := splitAfter(caller, b, call)

	blockMap := map[*ir.Block]*ir.Block{}
	for _, src := range site.Callee.Blocks {
		nb := caller.AddBlock(freshBlockLabel(caller, src.Label))
		blockMap[src] = nb
	}

	for _, src := range site.Callee.Blocks {
		dst := blockMap[src]
		src.Each(func(i *ir.Insn) {
			clone := i.Clone()
			rt.renameInsn(clone)
			if clone.Target != nil {
				if mapped, ok := blockMap[clone.Target]; ok {
					clone.Target = mapped
				}
			}
			if clone.Op == ir.OpReturn {
				if call.Dest != 0 {
					dst.Append(ir.NewMove(call.Dest, clone.Src1, false))
				}
				dst.Append(ir.NewGoto(after))
				return
			}
			dst.Append(clone)
		})
		for _, e := range src.Succs {
			target := e.Target
			if mapped, ok := blockMap[target]; ok {
				target = mapped
			}
			dst.Succs = append(dst.Succs, ir.Edge{Type: e.Type, Target: target, CaseLabels: e.CaseLabels})
		}
	}

	entryBlock := blockMap[site.Callee.Entry]
	b.Succs = []ir.Edge{{Type: ir.EdgeGoto, Target: entryBlock}}
	b.Unlink(call)
	return true
}

// splitAfter moves every instruction following call in b into a new
// block, returning that block (the resumption point after inlining).
func splitAfter(m *ir.Method, b *ir.Block, call *ir.Insn) *ir.Block {
	after := m.AddBlock(freshBlockLabel(m, b.Label+".cont"))
	after.Succs = b.Succs
	b.Succs = nil
	var rest []*ir.Insn
	for i := call.Next(); i != nil; {
		n := i.Next()
		rest = append(rest, i)
		i = n
	}
	for _, i := range rest {
		b.Unlink(i)
		after.Append(i)
	}
	return after
}

func freshBlockLabel(m *ir.Method, base string) string {
	label := base
	for n := 1; ; n++ {
		exists := false
		for _, b := range m.Blocks {
			if b.Label == label {
				exists = true
				break
			}
		}
		if !exists {
			return label
		}
		label = base + "#" + strconv.Itoa(n)
	}
}

func operandRegs(i *ir.Insn) []ir.Reg {
	regs := []ir.Reg{i.Dest, i.Src1, i.Src2}
	return append(regs, i.Args...)
}

// calleeParamRegs returns the callee's own parameter registers, which
// by this IR's calling convention occupy the lowest Arity registers.
func calleeParamRegs(m *ir.Method) []ir.Reg {
	out := make([]ir.Reg, m.Arity)
	for i := range out {
		out[i] = ir.Reg(i)
	}
	return out
}

func paramIndex(m *ir.Method, r ir.Reg) int { return int(r) }
