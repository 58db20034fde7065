// Package jitprofile tracks how often each method fires during a
// sample run and turns that into two decisions downstream packages
// consume: which methods the inliner should treat as for-speed
// candidates (internal/inline.Config.HotMethods), and which
// already-shrunk methods are worth lowering to native code
// (internal/codegen.LowerHotMethod). It repoints a conventional
// tiering profiler from "when should the interpreter tier up a running
// function" to "which methods in this optimization run are hot enough
// to change the optimizer's own decisions".
package jitprofile

import (
	"sort"
	"sync"

	"vmopt/internal/ir"
)

// Tier is a conventional tiering enum: interpreted, a cheap first
// compile, and a fully optimized compile.
type Tier int

const (
	TierInterpreted Tier = iota
	TierQuickJIT
	TierOptimized
)

func (t Tier) String() string {
	switch t {
	case TierQuickJIT:
		return "quick"
	case TierOptimized:
		return "optimized"
	default:
		return "interpreted"
	}
}

const (
	quickThreshold     = 100
	optimizedThreshold = 1000
)

// Profiler accumulates per-method call counts across a sample run.
// Safe for concurrent use; RecordCall is meant to be driven by an
// instrumented interpreter loop or a trace replay, one call at a time.
type Profiler struct {
	mu         sync.Mutex
	callCounts map[string]int
}

// NewProfiler returns an empty Profiler.
func NewProfiler() *Profiler {
	return &Profiler{callCounts: map[string]int{}}
}

// RecordCall records one observed call to m and reports whether this
// call just crossed a tiering threshold, and which tier it crossed
// into. The boolean is true only on the exact call that trips a
// threshold, so callers watching for a tiering event should check it
// rather than re-deriving it from CallCount.
func (p *Profiler) RecordCall(m *ir.Method) (bool, Tier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callCounts[m.Key()]++
	switch p.callCounts[m.Key()] {
	case quickThreshold:
		return true, TierQuickJIT
	case optimizedThreshold:
		return true, TierOptimized
	default:
		return false, TierInterpreted
	}
}

// Seed sets the call count for a method key directly, for loading a
// previously-recorded trace rather than replaying it one RecordCall at
// a time.
func (p *Profiler) Seed(key string, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callCounts[key] = count
}

// CallCount returns the number of calls recorded for m so far.
func (p *Profiler) CallCount(m *ir.Method) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callCounts[m.Key()]
}

// HotMethods returns the set of methods whose call count reached
// quickThreshold, keyed by ir.Method.Key(), in the shape
// internal/inline.Config.HotMethods expects directly.
func (p *Profiler) HotMethods() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]bool, len(p.callCounts))
	for k, n := range p.callCounts {
		if n >= quickThreshold {
			out[k] = true
		}
	}
	return out
}

// ForNativeLowering returns the subset of methods, in deterministic
// Key order, whose call count reached the optimized tier: the
// candidate list internal/codegen.LowerHotMethod consumes once CPT
// and MMI have finished shrinking them.
func (p *Profiler) ForNativeLowering(methods []*ir.Method) []*ir.Method {
	p.mu.Lock()
	hot := make(map[string]bool)
	for k, n := range p.callCounts {
		if n >= optimizedThreshold {
			hot[k] = true
		}
	}
	p.mu.Unlock()

	var out []*ir.Method
	for _, m := range methods {
		if hot[m.Key()] {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
