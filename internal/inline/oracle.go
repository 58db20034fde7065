package inline

import (
	"vmopt/internal/ir"
	"vmopt/internal/resolve"
)

// Site is one callsite: the invoke instruction plus its containing
// caller and the resolved callee.
type Site struct {
	Caller *ir.Method
	Callee *ir.Method
	Invoke *ir.Insn
}

// RejectReason names why a site failed the Inlinability Oracle. A
// rejection is surfaced as a counted statistic, never as an error.
type RejectReason string

const (
	RejectBlacklist        RejectReason = "blacklist"
	RejectExternalCatch    RejectReason = "external_catch"
	RejectUnknownVisibility RejectReason = "unknown_visibility"
	RejectInvokeSuper      RejectReason = "invoke_super"
	RejectVisibilityPromotion RejectReason = "visibility_promotion"
	RejectCrossStore       RejectReason = "cross_store"
	RejectCalleeTooLarge   RejectReason = "callee_too_large"
	RejectCallerTooLarge   RejectReason = "caller_too_large"
	RejectTooManyCallers   RejectReason = "too_many_callers"
	RejectNotProfitable    RejectReason = "not_profitable"
)

// Oracle is the legality + profitability predicate conjunction that
// decides whether a call site may be inlined, ordered cheap-to-expensive.
type Oracle struct {
	cfg      Config
	resolver *resolve.Resolver

	// makeStatic accumulates methods that must be demoted from
	// instance-direct to static as a precondition of a visibility
	// promotion, consumed exactly once by Finalize.
	makeStatic map[string]*ir.Method

	// inlinedCostCache and shouldInlineCache are per-callee monotone
	// caches: once a cost or profitability verdict is set for a
	// callee, it is never invalidated, since later inlining can only
	// shrink a callee further, never make it less profitable.
	inlinedCostCache map[string]int
	shouldInlineCache map[string]bool

	callerCount map[string]int // per-callee inlined-into count, for too_many_callers
}

func NewOracle(cfg Config, resolver *resolve.Resolver) *Oracle {
	return &Oracle{
		cfg:               cfg,
		resolver:          resolver,
		makeStatic:        map[string]*ir.Method{},
		inlinedCostCache:  map[string]int{},
		shouldInlineCache: map[string]bool{},
		callerCount:       map[string]int{},
	}
}

// CanInline runs the legality conjunction, cheap predicates first, and
// returns the first failing reason (or "", true on success).
func (o *Oracle) CanInline(site Site) (RejectReason, bool) {
	caller, callee := site.Caller, site.Callee

	// 1. Blacklist.
	if o.cfg.BlacklistedOwners[callee.Owner] || o.cfg.BlacklistedMethods[callee.Key()] {
		return RejectBlacklist, false
	}

	// 2. External catch.
	for _, ct := range callee.CatchTypes {
		if ct.External && !ct.Public {
			return RejectExternalCatch, false
		}
	}

	// 3. Unknown virtual / field visibility.
	for _, b := range callee.Blocks {
		bad := false
		b.Each(func(i *ir.Insn) {
			if i.Field != nil && !i.Field.ClassKnown {
				bad = true
			}
			if i.Method != nil && i.Op == ir.OpInvokeVirtual && !i.Method.ClassKnown {
				bad = true
			}
		})
		if bad {
			return RejectUnknownVisibility, false
		}
	}

	// 4. invoke-super whose resolved target differs from the
	// immediate declaration: only valid in its original class.
	for _, b := range callee.Blocks {
		invalid := false
		b.Each(func(i *ir.Insn) {
			if i.Op != ir.OpInvokeSuper || i.Method == nil {
				return
			}
			target := o.resolver.Resolve(i.Method, resolve.SearchSuper)
			if target != nil && target.Owner != callee.Owner {
				invalid = true
			}
		})
		if invalid {
			return RejectInvokeSuper, false
		}
	}

	// 5. Visibility promotion: if inlining would expose a
	// package-private callee-of-the-callee across a package boundary,
	// only proceed if it can be made static; record that obligation.
	if reason, pending, ok := o.visibilityPromotion(caller, callee); !ok {
		return reason, false
	} else if pending != nil {
		o.makeStatic[pending.Key()] = pending
	}

	// 6. Platform version probe: code guarded by an SDK-version sget
	// is not itself disqualifying; no block-level check needed beyond
	// leaving OpSdkVersionProbe sites untouched by other passes, which
	// the simplifier already does (it has no case for that opcode).

	// 7. Cross-store reference.
	if o.cfg.Mode == ModeIntraDex && caller.DexStore != "" && callee.DexStore != "" && caller.DexStore != callee.DexStore {
		return RejectCrossStore, false
	}

	// 8. Estimated size over the configured ceiling.
	if o.cfg.MaxCalleeInlinedCost > 0 && o.InlinedCost(callee) > o.cfg.MaxCalleeInlinedCost {
		return RejectCalleeTooLarge, false
	}

	// 9. Caller already too large.
	if o.cfg.MaxCallerInstructions > 0 && caller.InstructionCount() > o.cfg.MaxCallerInstructions {
		return RejectCallerTooLarge, false
	}

	return "", true
}

// visibilityPromotion decides whether callee's visibility relative to
// caller needs a make-static promotion to inline safely. It returns a
// method that must be added to the make-static set as a precondition,
// or signals outright rejection when no remedy exists.
func (o *Oracle) visibilityPromotion(caller, callee *ir.Method) (RejectReason, *ir.Method, bool) {
	if caller.Owner == callee.Owner {
		return "", nil, true // same class: no promotion needed
	}
	for _, b := range callee.Blocks {
		var offender *ir.Method
		b.Each(func(i *ir.Insn) {
			if i.Op != ir.OpInvokeDirect || i.Method == nil {
				return
			}
			target := o.resolver.Resolve(i.Method, resolve.SearchDirect)
			if target == nil || target.IsPublic || target.Owner == caller.Owner {
				return
			}
			offender = target
		})
		if offender == nil {
			continue
		}
		if offender.IsDirect && !offender.IsInit && !offender.IsClinit {
			return "", offender, true // can be demoted to static instead of made virtual
		}
		return RejectVisibilityPromotion, nil, false
	}
	return "", nil, true
}

// MakeStaticSet returns the accumulated set of methods that must be
// demoted, meant to be consumed exactly once by Finalize.
func (o *Oracle) MakeStaticSet() []*ir.Method {
	out := make([]*ir.Method, 0, len(o.makeStatic))
	for _, m := range o.makeStatic {
		out = append(out, m)
	}
	return out
}

// ShouldInlineFast decides from callee size and hotness alone. The size
// is the callee's live instruction count, so it walks the callee's
// blocks; it does not inspect what the instructions do.
func (o *Oracle) ShouldInlineFast(callee *ir.Method) bool {
	if o.cfg.isHot(callee) {
		return callee.InstructionCount() <= 2*defaultSizeBudget
	}
	return callee.InstructionCount() <= defaultSizeBudget
}

const defaultSizeBudget = 32

// ShouldInline is the full profitability check: it falls back to
// InlinedCost, which peeks at callee IR, and caches the result per
// callee (monotone; never invalidated once a callee is judged
// profitable, since later inlining can only shrink it further).
func (o *Oracle) ShouldInline(callee *ir.Method) bool {
	if v, ok := o.shouldInlineCache[callee.Key()]; ok {
		return v
	}
	v := o.ShouldInlineFast(callee) || o.InlinedCost(callee) <= defaultSizeBudget*2
	o.shouldInlineCache[callee.Key()] = v
	return v
}

// InlinedCost estimates callee's cost after its own eligible callsites
// are inlined, cached per-callee and set once.
func (o *Oracle) InlinedCost(callee *ir.Method) int {
	if v, ok := o.inlinedCostCache[callee.Key()]; ok {
		return v
	}
	cost := callee.InstructionCount()
	for _, b := range callee.Blocks {
		b.Each(func(i *ir.Insn) {
			if i.Op.IsInvoke() {
				cost += 4 // rough per-call overhead once inlined away
			}
		})
	}
	o.inlinedCostCache[callee.Key()] = cost
	return cost
}

// TooManyCallers bounds total bytecode growth from a single callee
// being inlined into many callers.
func (o *Oracle) TooManyCallers(callee *ir.Method) bool {
	if o.cfg.MaxCallers <= 0 {
		return false
	}
	return o.callerCount[callee.Key()] >= o.cfg.MaxCallers
}

// RecordInlined increments callee's caller count after a successful
// inline, for future TooManyCallers checks.
func (o *Oracle) RecordInlined(callee *ir.Method) {
	o.callerCount[callee.Key()]++
}
