// cmd/vmopt/commands/stats.go
package commands

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// StatsCommand runs the same pipeline as OptimizeCommand and prints a
// human-readable stats table instead of just log lines: plain-text
// summaries with go-humanize for comma grouping.
func StatsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	workers := fs.Int("workers", 0, "parallel inliner worker count (0 = synchronous)")
	intraDex := fs.Bool("intra-dex", false, "run the inliner in intra-dex mode")
	trace := fs.String("trace", "", "optional method-key -> call-count JSON trace")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		log.Printf("usage: vmopt stats [-workers N] [-intra-dex] [-trace trace.json] <program.json>")
		return nil
	}

	result, err := Optimize(fs.Arg(0), *workers, *intraDex, *trace)
	if err != nil {
		return err
	}
	printStatsTable(result)
	return nil
}

func printStatsTable(r *Result) {
	plain := !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

	rows := []struct {
		label string
		n     uint64
	}{
		{"methods", uint64(len(r.Methods))},
		{"materialized consts", uint64(r.CPTStats.MaterializedConsts)},
		{"branches removed", uint64(r.CPTStats.BranchesRemoved)},
		{"switches removed", uint64(r.CPTStats.SwitchesRemoved)},
		{"stores eliminated", uint64(r.CPTStats.StoresEliminated)},
		{"inlined", uint64(r.InlineStats.Inlined)},
		{"rejected", uint64(r.InlineStats.RejectedTotal)},
		{"methods made static", uint64(r.InlineStats.MethodsStatic)},
		{"copies propagated", uint64(r.ShrinkStats.CopiesPropagated)},
		{"dead stores pruned", uint64(r.ShrinkStats.DeadStoresPruned)},
	}

	for _, row := range rows {
		if plain {
			fmt.Printf("%-24s %s\n", row.label, humanize.Comma(int64(row.n)))
		} else {
			fmt.Printf("\033[1m%-24s\033[0m %s\n", row.label, humanize.Comma(int64(row.n)))
		}
	}

	if len(r.InlineStats.Rejections) > 0 {
		fmt.Println("rejections:")
		for reason, n := range r.InlineStats.Rejections {
			fmt.Printf("  %-24s %s\n", reason, humanize.Comma(n))
		}
	}

	if len(r.NativeCandidates) > 0 {
		fmt.Println("native lowering candidates:")
		for _, key := range r.NativeCandidates {
			fmt.Printf("  %s\n", key)
		}
	}
}
