package inline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"vmopt/internal/cpt"
	"vmopt/internal/ir"
	"vmopt/internal/resolve"
)

// Stats mirrors the inliner-half counters exposed alongside cpt.Stats.
type Stats struct {
	Inlined        int64
	RejectedTotal  int64
	Rejections     map[RejectReason]int64
	MethodsStatic  int
}

// Inliner is the top-level Multi-Method Inliner: it owns the call
// graph, the oracle, the scheduler, and the shrink coordinator, and
// drives them bottom-up over a scope of candidate methods.
type Inliner struct {
	scope      *resolve.Scope
	resolver   *resolve.Resolver
	cg         *CallGraph
	oracle     *Oracle
	shrink     *ShrinkCoordinator
	cfg        Config
	workers    int

	mu         sync.Mutex
	rejections map[RejectReason]int64
	inlined    int64
	finalized  bool
}

// New constructs an Inliner over candidates, resolving call sites
// through resolver, honoring cfg's legality/profitability limits, and
// running shrink passes configured by shrinkCfg. workers<=0 selects
// synchronous (single-goroutine) scheduling.
func New(candidates []*ir.Method, resolver *resolve.Resolver, cfg Config, shrinkCfg cpt.Config, workers int) *Inliner {
	scope := resolve.NewScope(candidates)
	cg := BuildCallGraph(candidates, resolver)
	return &Inliner{
		scope:      scope,
		resolver:   resolver,
		cg:         cg,
		oracle:     NewOracle(cfg, resolver),
		shrink:     NewShrinkCoordinator(shrinkCfg),
		cfg:        cfg,
		workers:    workers,
		rejections: map[RejectReason]int64{},
	}
}

// InlineMethods runs the bottom-up schedule to completion: every
// method's callsites are considered once its callees have already been
// inlined and shrunk, so inlining composes (a caller can absorb a
// callee that itself absorbed its own callees first).
func (inl *Inliner) InlineMethods(ctx context.Context) error {
	sched := NewScheduler(inl.cg, inl.workers)
	err := sched.Run(ctx, func(m *ir.Method) error {
		inl.inlineInto(m)
		inl.shrink.Shrink(m)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "inline_methods")
	}
	return nil
}

// inlineInto repeatedly scans m's call sites and inlines every one
// that passes the oracle, stopping when a full pass makes no progress
// (a single site succeeding can change m's instruction count enough to
// affect later legality checks within the same caller).
func (inl *Inliner) inlineInto(m *ir.Method) {
	for {
		progressed := false
		for _, site := range inl.cg.Sites(m) {
			if site.Invoke.Block() == nil {
				continue // already spliced away by an earlier site this pass
			}
			reason, ok := inl.oracle.CanInline(site)
			if !ok {
				inl.recordRejection(reason)
				continue
			}
			if !inl.oracle.ShouldInline(site.Callee) {
				inl.recordRejection(RejectNotProfitable)
				continue
			}
			if inl.oracle.TooManyCallers(site.Callee) {
				inl.recordRejection(RejectTooManyCallers)
				continue
			}
			if inl.apply(site) {
				inl.oracle.RecordInlined(site.Callee)
				atomic.AddInt64(&inl.inlined, 1)
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

func (inl *Inliner) apply(site Site) bool {
	if TailCallRename(site) {
		return true
	}
	return GeneralInline(site)
}

func (inl *Inliner) recordRejection(r RejectReason) {
	inl.mu.Lock()
	inl.rejections[r]++
	inl.mu.Unlock()
}

// GetInlined returns every method that received at least one inline
// this run (the "get_inlined" accessor), in no particular order.
func (inl *Inliner) GetInlined() []*ir.Method {
	var out []*ir.Method
	for _, m := range inl.scope.Methods() {
		for _, site := range inl.cg.Sites(m) {
			if site.Invoke.Block() == nil { // spliced away by a successful inline
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Stats snapshots the inliner's counters alongside the accumulated
// shrink-pass totals.
func (inl *Inliner) Stats() (Stats, ShrinkStats) {
	inl.mu.Lock()
	rej := make(map[RejectReason]int64, len(inl.rejections))
	var total int64
	for k, v := range inl.rejections {
		rej[k] = v
		total += v
	}
	inl.mu.Unlock()
	return Stats{
		Inlined:       atomic.LoadInt64(&inl.inlined),
		RejectedTotal: total,
		Rejections:    rej,
		MethodsStatic: len(inl.oracle.MakeStaticSet()),
	}, inl.shrink.Stats()
}

// Finalize processes the accumulated make-static obligation set
// exactly once: every method the oracle decided must be demoted from
// instance-direct to static as a precondition of an inline it allowed
// gets flipped here, after all scheduling has finished and no further
// oracle decisions can add to the set.
func (inl *Inliner) Finalize() []*ir.Method {
	inl.mu.Lock()
	defer inl.mu.Unlock()
	if inl.finalized {
		return nil
	}
	inl.finalized = true
	pending := inl.oracle.MakeStaticSet()
	for _, m := range pending {
		m.IsStatic = true
		m.IsDirect = false
	}
	return pending
}
