// cmd/vmopt/main.go
package main

import (
	"log"
	"os"

	"vmopt/cmd/vmopt/commands"
)

// commandAliases holds short-form aliases for the subcommand dispatch
// table below.
var commandAliases = map[string]string{
	"o": "optimize",
	"s": "stats",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "optimize":
		if err := commands.OptimizeCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "stats":
		if err := commands.StatsCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	default:
		log.Printf("unknown command %q", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	log.Print(`vmopt: a register-bytecode CPT + MMI optimizer

Usage:
  vmopt optimize [-workers N] [-intra-dex] <program.json>
  vmopt stats    [-workers N] [-intra-dex] <program.json>

Aliases: o=optimize, s=stats`)
}
