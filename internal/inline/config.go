// Package inline implements the Multi-Method Inliner (MMI): the
// Inlinability Oracle, Call-Graph Builder, Scheduler, Inline Mutator,
// and Shrink Coordinator. It is grounded in internal/concurrency
// (priority work-pool shape), internal/compregister (register
// allocation, reused by the tail-call rename mutator), and
// internal/jit (hotness/profiling, reused for the for-speed
// profitability threshold).
package inline

import "vmopt/internal/ir"

// Mode mirrors the inliner's cross-dex restriction setting: None (no
// restriction), InterDex (run before dex partitioning), IntraDex (run
// after partitioning; callers and callees must share a store).
type Mode int

const (
	ModeNone Mode = iota
	ModeInterDex
	ModeIntraDex
)

// Config holds the configuration options recognized by the inliner
// half of the pipeline.
type Config struct {
	Mode Mode

	// HotMethods, when non-empty, enables for-speed mode: profitability
	// thresholds relax for methods flagged hot.
	HotMethods map[string]bool

	// MaxCallerInstructions bounds caller growth (§4.F item 9).
	MaxCallerInstructions int
	// MaxCalleeInlinedCost bounds the estimated-inlined-cost ceiling
	// used by full should_inline (§4.F item 8, verifier-failure guard).
	MaxCalleeInlinedCost int
	// MaxCallers bounds total bytecode growth (too_many_callers, §4.F).
	MaxCallers int

	// BlacklistedOwners marks classes (e.g. the platform enumeration
	// base class) whose methods are never inlinable (§4.F item 1).
	BlacklistedOwners map[string]bool
	BlacklistedMethods map[string]bool
}

func (c Config) isHot(m *ir.Method) bool {
	return len(c.HotMethods) > 0 && c.HotMethods[m.Key()]
}
