// Package cpt implements the Constant-Propagation Transform: the
// per-instruction folding and materialization (Simplifier), the
// Redundant-Store Eliminator, the Dead-Branch/Dead-Switch Pruner, and
// the driver that ties them together with a Rewrite Plan. It is
// grounded in compregister.Compiler, which already performs the
// mirror-image operation (lowering an AST into straight-line register
// code with a peephole-style jump-patcher); CPT instead walks
// already-compiled code back out into a simplified form.
package cpt

import (
	"vmopt/internal/analysis"
	"vmopt/internal/ir"
	"vmopt/internal/plan"
)

// Config holds the configuration options the CPT half of the pipeline
// recognizes.
type Config struct {
	ReplaceMovesWithConsts bool
	RemoveDeadSwitch       bool
	// ClassUnderInit, when non-empty, is the class whose <clinit>/
	// <init> is currently being rewritten; the Redundant-Store
	// Eliminator consults AE rather than WPS for that class's fields.
	ClassUnderInit string
}

// Simplifier folds literal arithmetic, materializes known field/array
// reads, and (if configured) rewrites plain moves of a known-constant
// register into a const load. It receives env at i's post-state.
type Simplifier struct {
	cfg    Config
	method *ir.Method
	wps    analysis.WholeProgramState
}

func NewSimplifier(cfg Config, m *ir.Method, wps analysis.WholeProgramState) *Simplifier {
	return &Simplifier{cfg: cfg, method: m, wps: wps}
}

// Apply inspects i's post-state in env and, if the instruction can be
// simplified, records a replacement on p.
func (s *Simplifier) Apply(i *ir.Insn, env analysis.Env, p *plan.Plan) {
	switch {
	case i.Op.IsMove():
		if !s.cfg.ReplaceMovesWithConsts {
			return
		}
		s.materializeInto(i, i.Dest, env, p)

	case i.Op.IsFieldGet(), i.Op.IsDivOrRemIntLit():
		// Move-result-pseudo and primary coincide on this register
		// ISA (see internal/ir's OpCode doc); the primary instruction
		// itself is the site to rewrite.
		s.materializeInto(i, i.Dest, env, p)

	case i.Op.IsLiteralArithmetic():
		// Always attempt materialization for the literal-arithmetic
		// family.
		s.materializeInto(i, i.Dest, env, p)
	}
}

func (s *Simplifier) materializeInto(i *ir.Insn, dest ir.Reg, env analysis.Env, p *plan.Plan) {
	av := env.Get(dest)
	seq := av.Materialize(dest)
	if len(seq) == 0 {
		return // the lattice itself says no constant of this width/type
		// can represent the value here (Top, Bottom, or a width-limited
		// encoding an alternate AV implementation refuses)
	}
	v, ok := analysis.Value(av)
	if !ok {
		return
	}
	resolved := resolvePlaceholders(s.method, seq, v)
	p.Replace(i, resolved)
	p.MaterializedConsts++
}

// resolvePlaceholders rewrites every OpConst in seq that still points
// at analysis.ConstPoolPlaceholder to the real constant-pool index for
// v, interning it into m.Consts if it isn't already present. AV
// implementations decide reachability through Materialize; only the
// driver's own method knows the final pool encoding.
func resolvePlaceholders(m *ir.Method, seq []*ir.Insn, v ir.Value) []*ir.Insn {
	idx := -1
	for _, insn := range seq {
		if insn.Op == ir.OpConst && insn.Const == analysis.ConstPoolPlaceholder {
			if idx < 0 {
				idx = internConst(m, v)
			}
			insn.Const = idx
		}
	}
	return seq
}

func internConst(m *ir.Method, v ir.Value) int {
	for idx, c := range m.Consts {
		if c.Equal(v) {
			return idx
		}
	}
	m.Consts = append(m.Consts, v)
	return len(m.Consts) - 1
}
