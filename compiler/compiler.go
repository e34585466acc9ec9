// Package compiler implements wisp's single-pass expression and
// statement compiler: a Pratt parser driven by a precedence table that
// emits bytecode directly into a chunk.Chunk, with no intermediate AST.
package compiler

import (
	"fmt"
	"strings"

	"wisp/chunk"
	"wisp/lexer"
	"wisp/token"
	"wisp/value"
)

// Precedence levels, low to high.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

func (p Precedence) next() Precedence {
	if p == PrecPrimary {
		return PrecNone
	}
	return p + 1
}

type parseFn func(c *Compiler, canAssign bool) error

type rule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules map[token.Type]rule

func init() {
	rules = map[token.Type]rule{
		token.LeftParen:    {prefix: (*Compiler).grouping, prec: PrecNone},
		token.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, prec: PrecTerm},
		token.Plus:         {infix: (*Compiler).binary, prec: PrecTerm},
		token.Slash:        {infix: (*Compiler).binary, prec: PrecFactor},
		token.Star:         {infix: (*Compiler).binary, prec: PrecFactor},
		token.Percent:      {infix: (*Compiler).binary, prec: PrecFactor},
		token.Bang:         {prefix: (*Compiler).unary, prec: PrecNone},
		token.EqualEqual:   {infix: (*Compiler).binary, prec: PrecEquality},
		token.BangEqual:    {infix: (*Compiler).binary, prec: PrecEquality},
		token.Less:         {infix: (*Compiler).binary, prec: PrecComparison},
		token.LessEqual:    {infix: (*Compiler).binary, prec: PrecComparison},
		token.Greater:      {infix: (*Compiler).binary, prec: PrecComparison},
		token.GreaterEqual: {infix: (*Compiler).binary, prec: PrecComparison},
		token.And:          {infix: (*Compiler).binary, prec: PrecAnd},
		token.Or:           {infix: (*Compiler).binary, prec: PrecOr},
		token.Number:       {prefix: (*Compiler).number, prec: PrecNone},
		token.String:       {prefix: (*Compiler).stringLiteral, prec: PrecNone},
		token.Identifier:   {prefix: (*Compiler).variable, prec: PrecNone},
		token.True:         {prefix: (*Compiler).literal, prec: PrecNone},
		token.False:        {prefix: (*Compiler).literal, prec: PrecNone},
		token.Nil:          {prefix: (*Compiler).literal, prec: PrecNone},
	}
}

func precedenceOf(t token.Type) Precedence {
	if r, ok := rules[t]; ok {
		return r.prec
	}
	return PrecNone
}

// local is a variable whose storage is an operand-stack slot, identified
// by (name, depth). Locals live in declaration order; since only local
// declarations grow the stack between statement boundaries (every
// temporary is popped by the end of its statement), a local's index in
// this slice is also its stack slot.
type local struct {
	name  token.Token
	depth int
}

// Compiler holds the single-pass compilation state: the token stream
// (pulled one token at a time from the lexer), the chunk being built,
// and the lexical-scope bookkeeping for locals.
type Compiler struct {
	lex      *lexer.Lexer
	current  token.Token
	previous token.Token
	chunk    *chunk.Chunk

	locals     []local
	scopeDepth int
}

// Compile scans and compiles source into a chunk, or returns the first
// CompileError encountered.
func Compile(source string) (*chunk.Chunk, error) {
	c := &Compiler{lex: lexer.New(source), chunk: chunk.New()}
	if err := c.advance(); err != nil {
		return nil, err
	}
	for !c.check(token.EOF) {
		if err := c.declaration(); err != nil {
			return nil, c.asTopLevelError(err)
		}
	}
	c.chunk.Write(chunk.OpReturn, 0, c.previous.Line)
	return c.chunk, nil
}

// asTopLevelError converts a break/continue control signal that escaped
// every enclosing while loop into the CompileError it represents.
func (c *Compiler) asTopLevelError(err error) error {
	switch err.(type) {
	case *breakSignal:
		return &CompileError{Message: "'break' outside of a loop", Line: c.previous.Line}
	case *continueSignal:
		return &CompileError{Message: "'continue' outside of a loop", Line: c.previous.Line}
	default:
		return err
	}
}

// --- token stream helpers ---

func (c *Compiler) advance() error {
	c.previous = c.current
	tok, err := c.lex.Advance()
	if err != nil {
		if se, ok := err.(*lexer.ScanError); ok {
			return &CompileError{Message: se.Message, Line: se.Line}
		}
		return err
	}
	c.current = tok
	return nil
}

func (c *Compiler) check(t token.Type) bool { return c.current.Type == t }

func (c *Compiler) consume(t token.Type, message string) error {
	if c.check(t) {
		return c.advance()
	}
	return &CompileError{
		Message: fmt.Sprintf("%s (got %s %q)", message, c.current.Type, c.current.Lexeme),
		Line:    c.current.Line,
	}
}

// --- declarations and statements ---

func (c *Compiler) declaration() error {
	if c.check(token.Var) {
		return c.varDeclaration()
	}
	return c.statement()
}

func (c *Compiler) varDeclaration() error {
	if err := c.advance(); err != nil { // consume 'var'
		return err
	}
	if err := c.consume(token.Identifier, "Expect identifier after 'var'."); err != nil {
		return err
	}
	name := c.previous

	if c.check(token.Equal) {
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expression(); err != nil {
			return err
		}
	} else {
		c.chunk.Write(chunk.OpNil, 0, name.Line)
	}
	if err := c.consume(token.Semicolon, "Expect ';' after variable declaration."); err != nil {
		return err
	}

	if c.scopeDepth > 0 {
		for _, l := range c.locals {
			if l.depth == c.scopeDepth && l.name.Lexeme == name.Lexeme {
				return &CompileError{
					Message: fmt.Sprintf("variable '%s' already declared in this scope", name.Lexeme),
					Line:    name.Line,
				}
			}
		}
		c.locals = append(c.locals, local{name: name, depth: c.scopeDepth})
		return nil
	}

	idx := c.chunk.AddConstant(value.String(name.Lexeme))
	c.chunk.Write(chunk.OpDefineGlobal, idx, name.Line)
	return nil
}

var unsupportedKeywords = map[token.Type]bool{
	token.Class: true, token.Fun: true, token.For: true, token.In: true,
	token.Return: true, token.Self: true, token.Super: true, token.Xor: true,
	token.Import: true, token.As: true, token.From: true,
}

func (c *Compiler) statement() error {
	switch {
	case c.check(token.Print):
		return c.printStatement()
	case c.check(token.LeftBrace):
		return c.blockStatement()
	case c.check(token.If):
		return c.ifStatement()
	case c.check(token.While):
		return c.whileStatement()
	case c.check(token.Break):
		return c.breakStatement()
	case c.check(token.Continue):
		return c.continueStatement()
	case unsupportedKeywords[c.current.Type]:
		return &CompileError{
			Message: fmt.Sprintf("'%s' is not supported", strings.ToLower(string(c.current.Type))),
			Line:    c.current.Line,
		}
	default:
		return c.expressionStatement()
	}
}

func (c *Compiler) printStatement() error {
	if err := c.advance(); err != nil { // consume 'print'
		return err
	}
	line := c.previous.Line
	if err := c.expression(); err != nil {
		return err
	}
	c.chunk.Write(chunk.OpPrint, 0, line)
	return c.consume(token.Semicolon, "Expect ';' after value.")
}

// blockStatement compiles `{ declaration* }`. If a declaration raises a
// break/continue control signal, the block keeps parsing through the
// closing brace (running its own scope-exit POPs) and re-raises the
// signal to its caller, matching the propagation rule in §4.5.
func (c *Compiler) blockStatement() error {
	if err := c.consume(token.LeftBrace, "Expect '{' before block."); err != nil {
		return err
	}
	c.scopeDepth++

	var pending error
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		if err := c.declaration(); err != nil {
			switch err.(type) {
			case *breakSignal, *continueSignal:
				pending = err
			default:
				return err
			}
		}
	}

	c.scopeDepth--
	exited := c.scopeDepth + 1
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth == exited {
		c.chunk.Write(chunk.OpPop, 0, c.previous.Line)
		c.locals = c.locals[:len(c.locals)-1]
	}

	if err := c.consume(token.RightBrace, "Expect '}' after block."); err != nil {
		return err
	}
	return pending
}

// ifStatement uses the standard consume-on-jump layout rather than the
// shared-trailing-POP layout: each branch pops the condition on its own
// path and both converge at a single patched address. This avoids the
// stack imbalance a literal shared-trailing-POP design would introduce
// when the then-branch falls straight through into it (see DESIGN.md).
func (c *Compiler) ifStatement() error {
	if err := c.advance(); err != nil { // consume 'if'
		return err
	}
	if err := c.expression(); err != nil {
		return err
	}
	line := c.previous.Line
	thenJump := c.chunk.Write(chunk.OpIf, 0, line)
	c.chunk.Write(chunk.OpPop, 0, line)

	var pending error
	if err := c.blockStatement(); err != nil {
		switch err.(type) {
		case *breakSignal, *continueSignal:
			pending = err
		default:
			return err
		}
	}

	elseJump := c.chunk.Write(chunk.OpJump, 0, c.previous.Line)
	c.chunk.Patch(thenJump, len(c.chunk.Code))
	c.chunk.Write(chunk.OpPop, 0, c.previous.Line)

	if c.check(token.Else) {
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.blockStatement(); err != nil {
			switch err.(type) {
			case *breakSignal, *continueSignal:
				pending = err
			default:
				return err
			}
		}
	}
	c.chunk.Patch(elseJump, len(c.chunk.Code))
	return pending
}

func (c *Compiler) whileStatement() error {
	if err := c.advance(); err != nil { // consume 'while'
		return err
	}
	loopStart := len(c.chunk.Code)
	if err := c.expression(); err != nil {
		return err
	}
	line := c.previous.Line
	exitJump := c.chunk.Write(chunk.OpIf, 0, line)
	c.chunk.Write(chunk.OpPop, 0, line)

	breakIdx, continueIdx := -1, -1
	if err := c.blockStatement(); err != nil {
		switch sig := err.(type) {
		case *breakSignal:
			breakIdx = sig.jumpIdx
		case *continueSignal:
			continueIdx = sig.jumpIdx
		default:
			return err
		}
	}

	c.chunk.Write(chunk.OpJump, loopStart, c.previous.Line)
	c.chunk.Patch(exitJump, len(c.chunk.Code))
	c.chunk.Write(chunk.OpPop, 0, c.previous.Line)

	if breakIdx >= 0 {
		c.chunk.Patch(breakIdx, len(c.chunk.Code))
	}
	if continueIdx >= 0 {
		c.chunk.Patch(continueIdx, loopStart)
	}
	return nil
}

func (c *Compiler) breakStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	line := c.previous.Line
	if err := c.consume(token.Semicolon, "Expect ';' after 'break'."); err != nil {
		return err
	}
	idx := c.chunk.Write(chunk.OpJump, 0, line)
	return &breakSignal{jumpIdx: idx}
}

func (c *Compiler) continueStatement() error {
	if err := c.advance(); err != nil {
		return err
	}
	line := c.previous.Line
	if err := c.consume(token.Semicolon, "Expect ';' after 'continue'."); err != nil {
		return err
	}
	idx := c.chunk.Write(chunk.OpJump, 0, line)
	return &continueSignal{jumpIdx: idx}
}

func (c *Compiler) expressionStatement() error {
	if err := c.expression(); err != nil {
		return err
	}
	line := c.previous.Line
	if err := c.consume(token.Semicolon, "Expect ';' after expression."); err != nil {
		return err
	}
	c.chunk.Write(chunk.OpPop, 0, line)
	return nil
}

// --- expressions ---

func (c *Compiler) expression() error {
	return c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(prec Precedence) error {
	if err := c.advance(); err != nil {
		return err
	}
	prefix := rules[c.previous.Type].prefix
	if prefix == nil {
		return &CompileError{
			Message: fmt.Sprintf("Expected expression, got %q", c.previous.Lexeme),
			Line:    c.previous.Line,
		}
	}
	canAssign := prec <= PrecAssignment
	if err := prefix(c, canAssign); err != nil {
		return err
	}

	for prec < precedenceOf(c.current.Type) {
		if err := c.advance(); err != nil {
			return err
		}
		infix := rules[c.previous.Type].infix
		if infix == nil {
			return &CompileError{Message: "Invalid infix operator", Line: c.previous.Line}
		}
		if err := infix(c, canAssign); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) grouping(_ bool) error {
	if err := c.expression(); err != nil {
		return err
	}
	return c.consume(token.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) error {
	opType := c.previous.Type
	line := c.previous.Line
	if err := c.parsePrecedence(PrecUnary); err != nil {
		return err
	}
	switch opType {
	case token.Minus:
		c.chunk.Write(chunk.OpNegate, 0, line)
	case token.Bang:
		c.chunk.Write(chunk.OpBang, 0, line)
	}
	return nil
}

func (c *Compiler) binary(_ bool) error {
	opType := c.previous.Type
	line := c.previous.Line
	insertAt := len(c.chunk.Code)
	prec := precedenceOf(opType)

	if err := c.parsePrecedence(prec.next()); err != nil {
		return err
	}

	switch opType {
	case token.Plus:
		c.chunk.Write(chunk.OpAdd, 0, line)
	case token.Minus:
		c.chunk.Write(chunk.OpSub, 0, line)
	case token.Star:
		c.chunk.Write(chunk.OpMul, 0, line)
	case token.Slash:
		c.chunk.Write(chunk.OpDiv, 0, line)
	case token.Percent:
		c.chunk.Write(chunk.OpRem, 0, line)
	case token.EqualEqual:
		c.chunk.Write(chunk.OpEqual, 0, line)
	case token.Less:
		c.chunk.Write(chunk.OpLess, 0, line)
	case token.Greater:
		c.chunk.Write(chunk.OpGreater, 0, line)
	case token.BangEqual:
		c.chunk.Write(chunk.OpEqual, 0, line)
		c.chunk.Write(chunk.OpBang, 0, line)
	case token.LessEqual:
		c.chunk.Write(chunk.OpGreater, 0, line)
		c.chunk.Write(chunk.OpBang, 0, line)
	case token.GreaterEqual:
		c.chunk.Write(chunk.OpLess, 0, line)
		c.chunk.Write(chunk.OpBang, 0, line)
	case token.Or:
		target := len(c.chunk.Code) + 2
		c.chunk.Insert(insertAt, chunk.OpIfNot, target, line)
		c.chunk.Write(chunk.OpOr, 0, line)
	case token.And:
		target := len(c.chunk.Code) + 2
		c.chunk.Insert(insertAt, chunk.OpIf, target, line)
		c.chunk.Write(chunk.OpAnd, 0, line)
	default:
		return &internalError{Message: fmt.Sprintf("unreachable binary operator %s", opType)}
	}
	return nil
}

func (c *Compiler) number(_ bool) error {
	f, ok := c.previous.Literal.(float64)
	if !ok {
		return &CompileError{Message: fmt.Sprintf("cannot convert %q to a number", c.previous.Lexeme), Line: c.previous.Line}
	}
	idx := c.chunk.AddConstant(value.Float(f))
	c.chunk.Write(chunk.OpConstant, idx, c.previous.Line)
	return nil
}

func (c *Compiler) stringLiteral(_ bool) error {
	s, _ := c.previous.Literal.(string)
	idx := c.chunk.AddConstant(value.String(s))
	c.chunk.Write(chunk.OpConstant, idx, c.previous.Line)
	return nil
}

func (c *Compiler) literal(_ bool) error {
	line := c.previous.Line
	switch c.previous.Type {
	case token.True:
		c.chunk.Write(chunk.OpTrue, 0, line)
	case token.False:
		c.chunk.Write(chunk.OpFalse, 0, line)
	case token.Nil:
		c.chunk.Write(chunk.OpNil, 0, line)
	default:
		return &internalError{Message: fmt.Sprintf("unreachable literal token %s", c.previous.Type)}
	}
	return nil
}

// resolveLocal searches innermost-scope-first for a local matching name
// by (lexeme, type), returning its stack slot.
func (c *Compiler) resolveLocal(name token.Token) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name.Key() == name.Key() {
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) variable(canAssign bool) error {
	name := c.previous
	slot, isLocal := c.resolveLocal(name)

	var globalIdx int
	if !isLocal {
		globalIdx = c.chunk.AddConstant(value.String(name.Lexeme))
	}

	if c.check(token.Equal) {
		if !canAssign {
			return &CompileError{Message: "Invalid target for variable assignment", Line: name.Line}
		}
		if err := c.advance(); err != nil {
			return err
		}
		if err := c.expression(); err != nil {
			return err
		}
		if isLocal {
			c.chunk.Write(chunk.OpSetLocal, slot, name.Line)
		} else {
			c.chunk.Write(chunk.OpSetGlobal, globalIdx, name.Line)
		}
		return nil
	}

	if isLocal {
		c.chunk.Write(chunk.OpGetLocal, slot, name.Line)
	} else {
		c.chunk.Write(chunk.OpGetGlobal, globalIdx, name.Line)
	}
	return nil
}
