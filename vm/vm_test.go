package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/compiler"
	"wisp/vm"
)

// run compiles and executes source against a fresh VM, returning whatever
// was written via `print`.
func run(t *testing.T, source string) (string, error) {
	t.Helper()
	c, err := compiler.Compile(source)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	machine := vm.New(&out)
	err = machine.Run(c)
	return out.String(), err
}

func TestScenario1_PrecedenceTermOverFactor(t *testing.T) {
	out, err := run(t, "print 1 + 2 * 3;")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestScenario2_GroupingOverridesPrecedence(t *testing.T) {
	out, err := run(t, "print (1 + 2) * 3;")
	require.NoError(t, err)
	assert.Equal(t, "9\n", out)
}

func TestScenario3_GlobalReassignment(t *testing.T) {
	out, err := run(t, "var a = 5; a = a + 1; print a;")
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestScenario4_ScopeIsolation(t *testing.T) {
	out, err := run(t, `var a = 1; { var a = 2; print a; } print a;`)
	require.NoError(t, err)
	assert.Equal(t, "2\n1\n", out)
}

func TestScenario5_IfElseBothBranches(t *testing.T) {
	out, err := run(t, `if true { print "y"; } else { print "n"; } if false { print "y"; } else { print "n"; }`)
	require.NoError(t, err)
	assert.Equal(t, "y\nn\n", out)
}

func TestScenario6_WhileLoop(t *testing.T) {
	out, err := run(t, `var i = 0; while i < 3 { print i; i = i + 1; }`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestScenario7_BreakExitsLoop(t *testing.T) {
	out, err := run(t, `var i = 0; while true { if i == 2 { break; } i = i + 1; } print i;`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestScenario8_DivideByZero(t *testing.T) {
	_, err := run(t, "print 1/0;")
	require.Error(t, err)
	var rte *vm.RuntimeError
	require.ErrorAs(t, err, &rte)
	assert.Equal(t, "DivideByZero", rte.Kind)
	assert.Equal(t, 1, rte.Line)
}

func TestScenario9_UndeclaredNameError(t *testing.T) {
	_, err := run(t, "print a;")
	require.Error(t, err)
	var rte *vm.RuntimeError
	require.ErrorAs(t, err, &rte)
	assert.Equal(t, "NameError", rte.Kind)
	assert.Equal(t, 1, rte.Line)
}

func TestScenario10_LogicalOperatorsRequireBool(t *testing.T) {
	out, err := run(t, "print true and false;")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	_, err = run(t, "print false or nil;")
	require.Error(t, err)
	var rte *vm.RuntimeError
	require.ErrorAs(t, err, &rte)
	assert.Equal(t, "TypeError", rte.Kind)
}

func TestShortCircuitSkipsRHSSideEffects(t *testing.T) {
	// If the RHS of `or` executed when the LHS is already true, it would
	// set `ran` to true and the print would show it; the VM must never
	// reach it.
	out, err := run(t, `var ran = false; true or (ran = true); print ran;`)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestAssignmentIsAnExpression(t *testing.T) {
	out, err := run(t, "var a; var b = (a = 3); print b;")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestGlobalLateBindSetFailsOnUndefinedName(t *testing.T) {
	_, err := run(t, "a = 3;")
	require.Error(t, err)
	var rte *vm.RuntimeError
	require.ErrorAs(t, err, &rte)
	assert.Equal(t, "NameError", rte.Kind)
}

func TestSessionPersistsGlobalsAcrossRuns(t *testing.T) {
	var out bytes.Buffer
	sess := vm.New(&out)

	c1, err := compiler.Compile("var counter = 0;")
	require.NoError(t, err)
	require.NoError(t, sess.Run(c1))

	c2, err := compiler.Compile("counter = counter + 1; print counter;")
	require.NoError(t, err)
	require.NoError(t, sess.Run(c2))
	assert.Equal(t, "1\n", out.String())
}
