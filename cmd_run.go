package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"wisp/compiler"
	"wisp/vm"
)

// runCmd compiles and executes a single source file to completion.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and execute a wisp source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and execute the given wisp source file.
`
}
func (r *runCmd) SetFlags(f *flag.FlagSet) {}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wisp [script]")
		return subcommands.ExitUsageError
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FileNotFound: file `%s` could not be found\n", path)
		return subcommands.ExitFailure
	}

	c, err := compiler.Compile(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}

	machine := vm.New(os.Stdout)
	if err := machine.Run(c); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
