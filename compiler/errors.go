package compiler

import "fmt"

// CompileError is a user-facing syntax or semantic error: malformed
// tokens, unexpected tokens, an invalid assignment target, an unresolved
// break/continue. Aborts compilation; nothing produced so far executes.
type CompileError struct {
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("💥 CompileError: %s at line %d", e.Message, e.Line)
}

// internalError signals a compiler invariant violation rather than a
// malformed program — it should never surface from well-formed input.
type internalError struct {
	Message string
}

func (e *internalError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError: %s", e.Message)
}

// breakSignal and continueSignal are not real errors: they are control
// signals threaded back through the statement/block call stack until the
// nearest enclosing while loop catches them and patches the pending jump.
// A signal that escapes to Compile with no enclosing loop becomes a
// CompileError.
type breakSignal struct{ jumpIdx int }

func (s *breakSignal) Error() string { return "unexpected break" }

type continueSignal struct{ jumpIdx int }

func (s *continueSignal) Error() string { return "unexpected continue" }
