package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"wisp/compiler"
)

// disasmCmd compiles a source file and prints its chunk disassembly
// without executing it — a debugging aid with no equivalent in the
// language's base grammar.
type disasmCmd struct{}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "Compile a file and print its bytecode disassembly" }
func (*disasmCmd) Usage() string {
	return `disasm <file>:
  Compile the given wisp source file and print its bytecode disassembly
  without executing it.
`
}
func (d *disasmCmd) SetFlags(f *flag.FlagSet) {}

func (d *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wisp disasm <file>")
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

	fmt.Print(c.Disassemble(path))
	return subcommands.ExitSuccess
}
