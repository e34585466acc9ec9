package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// main implements the plain positional contract from the language
// grammar (`wisp [script]`: zero args starts the REPL, one arg runs a
// file, more is a usage error) on top of github.com/google/subcommands,
// by rewriting bare invocations into their equivalent verb form before
// handing off to the dispatcher. "disasm" is an additional verb with no
// positional shorthand, since it has no equivalent in the base grammar.
func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")

	args := os.Args[1:]
	switch {
	case len(args) == 0:
		os.Args = []string{os.Args[0], "repl"}
	case len(args) == 1 && !isKnownVerb(args[0]):
		os.Args = []string{os.Args[0], "run", args[0]}
	case len(args) > 1 && !isKnownVerb(args[0]):
		fmt.Fprintln(os.Stderr, "Usage: wisp [script]")
		os.Exit(64)
	}

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

func isKnownVerb(s string) bool {
	switch s {
	case "run", "repl", "disasm", "help", "commands", "flags":
		return true
	default:
		return false
	}
}
