// Package optconfig aggregates the pass-level Config structs
// (internal/cpt.Config, internal/inline.Config) that internal/cpt and
// internal/inline already define into the single top-level
// configuration surface the CLI builds from flags, mirroring the
// teacher's constructor-with-defaults pattern
// (compregister.NewCompilerWithGlobals) generalized to functional
// options so each knob can be set independently without a giant
// positional constructor.
package optconfig

import (
	"vmopt/internal/cpt"
	"vmopt/internal/inline"
)

// CPTOption configures a CPTConfig during construction.
type CPTOption func(*cpt.Config)

// WithMoveToConstRewrite toggles the Simplifier's "replace a move of a
// known-constant register with a direct const load" behavior.
func WithMoveToConstRewrite(on bool) CPTOption {
	return func(c *cpt.Config) { c.ReplaceMovesWithConsts = on }
}

// WithDeadSwitchRemoval toggles the Switch Pruner.
func WithDeadSwitchRemoval(on bool) CPTOption {
	return func(c *cpt.Config) { c.RemoveDeadSwitch = on }
}

// WithClassUnderInit scopes field reads to Analysis Environment rather
// than Whole-Program State while owner's <clinit>/<init> is rewritten.
func WithClassUnderInit(owner string) CPTOption {
	return func(c *cpt.Config) { c.ClassUnderInit = owner }
}

// NewCPTConfig returns a cpt.Config with every optimization enabled by
// default, then applies opts in order.
func NewCPTConfig(opts ...CPTOption) cpt.Config {
	cfg := cpt.Config{
		ReplaceMovesWithConsts: true,
		RemoveDeadSwitch:       true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// InlinerOption configures an InlinerConfig during construction.
type InlinerOption func(*inline.Config)

// WithMode sets the intra-dex/inter-dex cross-store restriction.
func WithMode(mode inline.Mode) InlinerOption {
	return func(c *inline.Config) { c.Mode = mode }
}

// WithHotMethods seeds the for-speed profitability set, typically fed
// from internal/jitprofile.Profiler.HotMethods after a sample run.
func WithHotMethods(hot map[string]bool) InlinerOption {
	return func(c *inline.Config) { c.HotMethods = hot }
}

// WithMaxCallerInstructions bounds caller growth after inlining.
func WithMaxCallerInstructions(n int) InlinerOption {
	return func(c *inline.Config) { c.MaxCallerInstructions = n }
}

// WithMaxCalleeInlinedCost bounds the estimated-inlined-cost ceiling.
func WithMaxCalleeInlinedCost(n int) InlinerOption {
	return func(c *inline.Config) { c.MaxCalleeInlinedCost = n }
}

// WithMaxCallers bounds total bytecode growth from a single callee.
func WithMaxCallers(n int) InlinerOption {
	return func(c *inline.Config) { c.MaxCallers = n }
}

// WithBlacklistedOwners marks whole classes as never inlinable.
func WithBlacklistedOwners(owners map[string]bool) InlinerOption {
	return func(c *inline.Config) { c.BlacklistedOwners = owners }
}

// WithBlacklistedMethods marks individual methods as never inlinable.
func WithBlacklistedMethods(methods map[string]bool) InlinerOption {
	return func(c *inline.Config) { c.BlacklistedMethods = methods }
}

// defaultMaxCallerInstructions and defaultMaxCalleeInlinedCost are the
// same order-of-magnitude ceilings internal/inline.defaultSizeBudget
// uses for the fast profitability check, scaled up since these bound
// whole methods rather than a single callee.
const (
	defaultMaxCallerInstructions = 4096
	defaultMaxCalleeInlinedCost  = 256
	defaultMaxCallers            = 512
)

// NewInlinerConfig returns an inline.Config with the default size
// ceilings and inter-dex mode, then applies opts in order.
func NewInlinerConfig(opts ...InlinerOption) inline.Config {
	cfg := inline.Config{
		Mode:                  inline.ModeInterDex,
		MaxCallerInstructions: defaultMaxCallerInstructions,
		MaxCalleeInlinedCost:  defaultMaxCalleeInlinedCost,
		MaxCallers:            defaultMaxCallers,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
