// cmd/vmopt/commands/optimize.go
package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"vmopt/internal/analysis"
	"vmopt/internal/codegen"
	"vmopt/internal/cpt"
	"vmopt/internal/inline"
	"vmopt/internal/ir"
	"vmopt/internal/jitprofile"
	"vmopt/internal/optconfig"
	"vmopt/internal/resolve"
)

// Result bundles everything the stats command needs to print, and
// everything a caller embedding the optimizer as a library would want
// back.
type Result struct {
	Methods     []*ir.Method
	CPTStats    cpt.Stats
	InlineStats inline.Stats
	ShrinkStats inline.ShrinkStats

	// NativeCandidates lists methods that crossed the profiler's
	// optimized tier and lowered cleanly to LLVM IR, set only when a
	// -trace file was supplied.
	NativeCandidates []string
}

// traceFile is the on-disk shape a -trace flag points at: a flat
// method-key -> observed-call-count map, the output a harness running
// the interpreted VM under jitprofile.Profiler would dump after a
// representative workload.
type traceFile map[string]int

// OptimizeCommand runs CPT to a per-method fixpoint, then MMI
// bottom-up over the whole loaded scope, using the same
// XxxCommand(args []string) error dispatch shape as the other
// subcommands in this package.
func OptimizeCommand(args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	workers := fs.Int("workers", 0, "parallel inliner worker count (0 = synchronous)")
	intraDex := fs.Bool("intra-dex", false, "run the inliner in intra-dex mode")
	trace := fs.String("trace", "", "optional method-key -> call-count JSON trace, enables for-speed inlining and native lowering")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		log.Printf("usage: vmopt optimize [-workers N] [-intra-dex] [-trace trace.json] <program.json>")
		return nil
	}

	result, err := Optimize(fs.Arg(0), *workers, *intraDex, *trace)
	if err != nil {
		return err
	}
	log.Printf("cpt: %+v", result.CPTStats)
	log.Printf("inline: %+v", result.InlineStats)
	log.Printf("shrink: %+v", result.ShrinkStats)
	if len(result.NativeCandidates) > 0 {
		log.Printf("native lowering candidates: %v", result.NativeCandidates)
	}
	return nil
}

// Optimize loads the program at path and runs the full CPT+MMI
// pipeline, returning the rewritten methods and accumulated stats. If
// tracePath is non-empty, it seeds a jitprofile.Profiler from a
// recorded call-count trace, which both relaxes the inliner's
// profitability thresholds for hot methods and selects which
// already-shrunk methods attempt native lowering.
func Optimize(path string, workers int, intraDex bool, tracePath string) (*Result, error) {
	methods, err := loadProgram(path)
	if err != nil {
		return nil, err
	}

	var profiler *jitprofile.Profiler
	if tracePath != "" {
		profiler, err = loadTrace(tracePath)
		if err != nil {
			return nil, err
		}
	}

	cptCfg := optconfig.NewCPTConfig()
	var cptTotal cpt.Stats
	for _, m := range methods {
		collab := analysis.NewConstantPropagation(m)
		wps := analysis.NewWholeProgramState()
		st := cpt.NewTransform(cptCfg, false).Apply(collab, wps, m)
		cptTotal.MaterializedConsts += st.MaterializedConsts
		cptTotal.BranchesRemoved += st.BranchesRemoved
		cptTotal.SwitchesRemoved += st.SwitchesRemoved
		cptTotal.StoresEliminated += st.StoresEliminated
	}

	mode := inline.ModeInterDex
	if intraDex {
		mode = inline.ModeIntraDex
	}
	inlinerOpts := []optconfig.InlinerOption{optconfig.WithMode(mode)}
	if profiler != nil {
		inlinerOpts = append(inlinerOpts, optconfig.WithHotMethods(profiler.HotMethods()))
	}
	inlinerCfg := optconfig.NewInlinerConfig(inlinerOpts...)
	resolver := resolve.NewResolver(resolve.NewScope(methods))
	inliner := inline.New(methods, resolver, inlinerCfg, cptCfg, workers)
	if err := inliner.InlineMethods(context.Background()); err != nil {
		return nil, err
	}
	inliner.Finalize()

	inlineStats, shrinkStats := inliner.Stats()
	result := &Result{
		Methods:     methods,
		CPTStats:    cptTotal,
		InlineStats: inlineStats,
		ShrinkStats: shrinkStats,
	}

	if profiler != nil {
		for _, m := range profiler.ForNativeLowering(methods) {
			if _, err := codegen.LowerHotMethod(m); err == nil {
				result.NativeCandidates = append(result.NativeCandidates, m.Key())
			}
		}
	}
	return result, nil
}

func loadTrace(path string) (*jitprofile.Profiler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace file: %w", err)
	}
	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse trace file: %w", err)
	}
	p := jitprofile.NewProfiler()
	for key, count := range tf {
		p.Seed(key, count)
	}
	return p, nil
}
