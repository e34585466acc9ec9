// Package chunk implements the compiled-output unit the compiler emits
// into and the VM executes from: an instruction stream, a constant pool,
// and a run-length source-line map.
package chunk

import (
	"fmt"
	"strings"

	"wisp/value"
)

// OpCode tags a single instruction. Operand-less opcodes ignore an
// Instruction's Operand field; operand-carrying opcodes use it as an
// address into Code, an index into Values, or (GET_LOCAL/SET_LOCAL) an
// operand-stack slot.
type OpCode int

const (
	OpReturn OpCode = iota
	OpPop
	OpPrint
	OpNegate
	OpBang
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEqual
	OpLess
	OpGreater
	OpAnd
	OpOr
	OpTrue
	OpFalse
	OpNil

	OpConstant
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpIf  // jump to Operand when TOS is Bool(false); does not pop
	OpIfNot // jump to Operand when TOS is not Bool(false); does not pop
	OpJump  // unconditional jump to Operand
)

var opNames = map[OpCode]string{
	OpReturn:       "RETURN",
	OpPop:          "POP",
	OpPrint:        "PRINT",
	OpNegate:       "NEGATE",
	OpBang:         "BANG",
	OpAdd:          "ADD",
	OpSub:          "SUB",
	OpMul:          "MUL",
	OpDiv:          "DIV",
	OpRem:          "REM",
	OpEqual:        "EQUAL",
	OpLess:         "LESS",
	OpGreater:      "GREATER",
	OpAnd:          "AND",
	OpOr:           "OR",
	OpTrue:         "TRUE",
	OpFalse:        "FALSE",
	OpNil:          "NIL",
	OpConstant:     "CONSTANT",
	OpDefineGlobal: "DEFINE_GLOBAL",
	OpGetGlobal:    "GET_GLOBAL",
	OpSetGlobal:    "SET_GLOBAL",
	OpGetLocal:     "GET_LOCAL",
	OpSetLocal:     "SET_LOCAL",
	OpIf:           "IF",
	OpIfNot:        "IFN",
	OpJump:         "JMP",
}

func (op OpCode) String() string {
	if n, ok := opNames[op]; ok {
		return n
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", int(op))
}

// hasOperand reports whether op carries an address/index operand.
func hasOperand(op OpCode) bool {
	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpGetLocal, OpSetLocal, OpIf, OpIfNot, OpJump:
		return true
	default:
		return false
	}
}

// Instruction is one logical element of a Chunk's code stream: an opcode
// plus its operand (zero and unused when the opcode takes none).
type Instruction struct {
	Op      OpCode
	Operand int
}

// Chunk is the compiled output unit: an append-only instruction stream,
// an addressable constant pool, and a run-length source-line map.
type Chunk struct {
	Code   []Instruction
	Values []value.Value
	Lines  []int
}

// New returns an empty Chunk.
func New() *Chunk {
	return &Chunk{}
}

// Write appends an instruction for the given source line and returns its
// index in Code (its "address", used by callers that must patch a jump
// target pointing here).
func (c *Chunk) Write(op OpCode, operand int, line int) int {
	idx := len(c.Code)
	c.Code = append(c.Code, Instruction{Op: op, Operand: operand})
	c.addLine(line)
	return idx
}

// Insert inserts an instruction at idx, shifting everything at or after
// idx one position to the right, and attributes it to line (which must
// already have an open bucket in Lines — the caller is inserting a jump
// for a line whose other instructions were already written forward).
// This mirrors the compiler's short-circuit jump insertion (§4.3): the
// jump is spliced in at the position where the left operand's result
// already sits on TOS, after the right operand has been compiled.
func (c *Chunk) Insert(idx int, op OpCode, operand int, line int) {
	c.Code = append(c.Code, Instruction{})
	copy(c.Code[idx+1:], c.Code[idx:])
	c.Code[idx] = Instruction{Op: op, Operand: operand}
	if line >= 1 && line <= len(c.Lines) {
		c.Lines[line-1]++
	} else {
		c.addLine(line)
	}
}

// Patch rewrites the operand of the instruction at idx — used to back-fill
// a forward jump target once the jump's destination is known.
func (c *Chunk) Patch(idx int, operand int) {
	c.Code[idx].Operand = operand
}

// AddConstant appends v to the constant pool and returns its stable index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Values = append(c.Values, v)
	return len(c.Values) - 1
}

// addLine implements the run-length line-map policy of §4.2: position i
// holds the instruction count for source line i+1.
func (c *Chunk) addLine(line int) {
	n := len(c.Lines)
	switch {
	case line == n:
		if n == 0 {
			c.Lines = append(c.Lines, 1)
			return
		}
		c.Lines[n-1]++
	case line == n+1:
		c.Lines = append(c.Lines, 1)
	case line > n+1:
		for i := n + 1; i < line; i++ {
			c.Lines = append(c.Lines, 0)
		}
		c.Lines = append(c.Lines, 1)
	default:
		// line < n: out of contract for forward compilation.
	}
}

// Line decodes the 1-based source line responsible for the instruction at
// offset, by walking the run-length buckets until offset is consumed.
func (c *Chunk) Line(offset int) int {
	sum := 0
	for i, count := range c.Lines {
		sum += count
		if offset < sum {
			return i + 1
		}
	}
	if len(c.Lines) == 0 {
		return 0
	}
	return len(c.Lines)
}

// Disassemble renders the chunk's instructions in a human-readable form,
// one line per instruction, prefixed with its address and source line.
func (c *Chunk) Disassemble(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	lastLine := -1
	for i, instr := range c.Code {
		line := c.Line(i)
		lineCol := "   |"
		if line != lastLine {
			lineCol = fmt.Sprintf("%4d", line)
			lastLine = line
		}
		fmt.Fprintf(&b, "%04d %s %s", i, lineCol, instr.Op)
		if hasOperand(instr.Op) {
			fmt.Fprintf(&b, " %d", instr.Operand)
			if instr.Op == OpConstant || instr.Op == OpDefineGlobal ||
				instr.Op == OpGetGlobal || instr.Op == OpSetGlobal {
				if instr.Operand >= 0 && instr.Operand < len(c.Values) {
					fmt.Fprintf(&b, " ; %s", c.Values[instr.Operand])
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
