// Package vm executes a compiled chunk.Chunk: a fetch-decode-execute
// loop over an operand stack, with globals resolved through a name
// table and locals addressed directly by stack slot.
package vm

import (
	"fmt"
	"io"
	"os"

	"wisp/chunk"
	"wisp/value"
)

// VM is a single reusable bytecode interpreter. Stack and globals carry
// over between Run calls so a REPL session can build up state across
// statements compiled one line at a time.
type VM struct {
	chunk   *chunk.Chunk
	ip      int
	stack   []value.Value
	globals map[string]value.Value
	out     io.Writer

	// lastPopped records the value most recently discarded by OP_POP. It
	// has no bearing on program behavior; it lets tests and the REPL
	// observe the result of a bare expression statement without the
	// compiler leaving unconsumed values on the stack between statements.
	lastPopped value.Value
}

// LastPopped returns the value most recently discarded by OP_POP.
func (vm *VM) LastPopped() value.Value { return vm.lastPopped }

// New returns a VM that prints to out (os.Stdout if out is nil) with an
// empty global environment.
func New(out io.Writer) *VM {
	if out == nil {
		out = os.Stdout
	}
	return &VM{globals: make(map[string]value.Value), out: out}
}

// Globals exposes the current global environment, chiefly for REPL
// introspection and tests.
func (vm *VM) Globals() map[string]value.Value { return vm.globals }

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop(line int) (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, indexError(line, "pop from empty stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) peek(distance, line int) (value.Value, error) {
	idx := len(vm.stack) - 1 - distance
	if idx < 0 {
		return value.Value{}, indexError(line, "peek past empty stack")
	}
	return vm.stack[idx], nil
}

// Run executes c to completion: OP_RETURN or falling off the end of the
// instruction stream both end execution normally. The operand stack and
// global environment persist in vm after Run returns, so the caller can
// compile and run another chunk against the same session.
func (vm *VM) Run(c *chunk.Chunk) error {
	vm.chunk = c
	vm.ip = 0

	for vm.ip < len(c.Code) {
		instr := c.Code[vm.ip]
		line := c.Line(vm.ip)
		vm.ip++

		switch instr.Op {
		case chunk.OpReturn:
			if len(vm.stack) != 0 {
				return &internalError{Message: fmt.Sprintf("stack not empty at RETURN (%d residual value(s))", len(vm.stack))}
			}
			return nil

		case chunk.OpPop:
			v, err := vm.pop(line)
			if err != nil {
				return err
			}
			vm.lastPopped = v

		case chunk.OpPrint:
			v, err := vm.pop(line)
			if err != nil {
				return err
			}
			fmt.Fprintln(vm.out, v.String())

		case chunk.OpConstant:
			if instr.Operand < 0 || instr.Operand >= len(c.Values) {
				return &internalError{Message: fmt.Sprintf("constant index %d out of range", instr.Operand)}
			}
			vm.push(c.Values[instr.Operand])

		case chunk.OpTrue:
			vm.push(value.BoolVal(true))
		case chunk.OpFalse:
			vm.push(value.BoolVal(false))
		case chunk.OpNil:
			vm.push(value.Nil)

		case chunk.OpNegate:
			a, err := vm.pop(line)
			if err != nil {
				return err
			}
			r, err := value.Neg(a)
			if err != nil {
				return typeError(line, err)
			}
			vm.push(r)

		case chunk.OpBang:
			a, err := vm.pop(line)
			if err != nil {
				return err
			}
			r, err := value.Not(a)
			if err != nil {
				return typeError(line, err)
			}
			vm.push(r)

		case chunk.OpAdd, chunk.OpSub, chunk.OpMul, chunk.OpDiv, chunk.OpRem,
			chunk.OpLess, chunk.OpGreater, chunk.OpAnd, chunk.OpOr:
			if err := vm.binary(instr.Op, line); err != nil {
				return err
			}

		case chunk.OpEqual:
			b, err := vm.pop(line)
			if err != nil {
				return err
			}
			a, err := vm.pop(line)
			if err != nil {
				return err
			}
			vm.push(value.BoolVal(value.Equal(a, b)))

		case chunk.OpDefineGlobal:
			name, err := vm.constantName(instr.Operand, line)
			if err != nil {
				return err
			}
			v, err := vm.pop(line)
			if err != nil {
				return err
			}
			vm.globals[name] = v

		case chunk.OpGetGlobal:
			name, err := vm.constantName(instr.Operand, line)
			if err != nil {
				return err
			}
			v, ok := vm.globals[name]
			if !ok {
				return nameError(line, name)
			}
			vm.push(v)

		case chunk.OpSetGlobal:
			name, err := vm.constantName(instr.Operand, line)
			if err != nil {
				return err
			}
			v, err := vm.peek(0, line)
			if err != nil {
				return err
			}
			if _, ok := vm.globals[name]; !ok {
				return nameError(line, name)
			}
			vm.globals[name] = v

		case chunk.OpGetLocal:
			if instr.Operand < 0 || instr.Operand >= len(vm.stack) {
				return indexError(line, fmt.Sprintf("local slot %d out of range", instr.Operand))
			}
			vm.push(vm.stack[instr.Operand])

		case chunk.OpSetLocal:
			v, err := vm.peek(0, line)
			if err != nil {
				return err
			}
			if instr.Operand < 0 || instr.Operand >= len(vm.stack) {
				return indexError(line, fmt.Sprintf("local slot %d out of range", instr.Operand))
			}
			vm.stack[instr.Operand] = v

		case chunk.OpIf:
			v, err := vm.peek(0, line)
			if err != nil {
				return err
			}
			if value.IsFalse(v) {
				vm.ip = instr.Operand
			}

		case chunk.OpIfNot:
			v, err := vm.peek(0, line)
			if err != nil {
				return err
			}
			if !value.IsFalse(v) {
				vm.ip = instr.Operand
			}

		case chunk.OpJump:
			vm.ip = instr.Operand

		default:
			return &internalError{Message: fmt.Sprintf("unhandled opcode %s", instr.Op)}
		}
	}
	return nil
}

func (vm *VM) constantName(idx, line int) (string, error) {
	if idx < 0 || idx >= len(vm.chunk.Values) {
		return "", &internalError{Message: fmt.Sprintf("constant index %d out of range", idx)}
	}
	v := vm.chunk.Values[idx]
	if v.Kind != value.KindString {
		return "", nameError(line, v.String())
	}
	return v.Str, nil
}

// binary pops the right then left operand (left was pushed first) and
// pushes the result of applying op's value-level function to them.
func (vm *VM) binary(op chunk.OpCode, line int) error {
	b, err := vm.pop(line)
	if err != nil {
		return err
	}
	a, err := vm.pop(line)
	if err != nil {
		return err
	}

	var r value.Value
	switch op {
	case chunk.OpAdd:
		r, err = value.Add(a, b)
	case chunk.OpSub:
		r, err = value.Sub(a, b)
	case chunk.OpMul:
		r, err = value.Mul(a, b)
	case chunk.OpDiv:
		r, err = value.Div(a, b)
	case chunk.OpRem:
		r, err = value.Rem(a, b)
	case chunk.OpLess:
		r, err = value.Less(a, b)
	case chunk.OpGreater:
		r, err = value.Greater(a, b)
	case chunk.OpAnd:
		r, err = value.And(a, b)
	case chunk.OpOr:
		r, err = value.Or(a, b)
	default:
		return &internalError{Message: fmt.Sprintf("binary dispatched for non-binary opcode %s", op)}
	}
	if err != nil {
		switch err.(type) {
		case *value.DivideByZeroError:
			return divideByZero(line)
		default:
			return typeError(line, err)
		}
	}
	vm.push(r)
	return nil
}
