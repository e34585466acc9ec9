package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"wisp/compiler"
	"wisp/lexer"
	"wisp/token"
	"wisp/vm"
)

// replCmd runs an interactive session: one line editor backed by
// readline for history and line editing, buffering input across lines
// until open braces are balanced, then compiling and running the whole
// buffered statement against a VM that persists across the session.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive wisp session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive wisp session.
`
}
func (r *replCmd) SetFlags(f *flag.FlagSet) {}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wisp_history"
	}
	return filepath.Join(home, ".wisp_history")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 could not start REPL: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Println("wisp REPL — Ctrl-D to exit")

	machine := vm.New(os.Stdout)
	var buf string

	for {
		if buf == "" {
			rl.SetPrompt(">> ")
		} else {
			rl.SetPrompt(".. ")
		}

		line, err := rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			buf = ""
			continue
		case err == io.EOF:
			return subcommands.ExitSuccess
		case err != nil:
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}

		if buf != "" {
			buf += "\n"
		}
		buf += line

		if !bracesBalanced(buf) {
			continue
		}

		c, err := compiler.Compile(buf)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			buf = ""
			continue
		}
		if err := machine.Run(c); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		buf = ""
	}
}

// bracesBalanced reports whether source has no unclosed `{`, so the REPL
// can tell "still typing a block" from "ready to compile". A scan error
// (e.g. an unterminated string) is also treated as not-ready: the user
// is presumably mid-edit and will finish the line.
func bracesBalanced(source string) bool {
	lex := lexer.New(source)
	depth := 0
	for {
		tok, err := lex.Advance()
		if err != nil {
			return false
		}
		if tok.Type == token.EOF {
			break
		}
		switch tok.Type {
		case token.LeftBrace:
			depth++
		case token.RightBrace:
			depth--
		}
	}
	return depth <= 0
}
