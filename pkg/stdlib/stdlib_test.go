package stdlib

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shard-lang/shard/pkg/types"
	"github.com/shard-lang/shard/pkg/vm"
)

func newMachine(t *testing.T) (*vm.VM, *bytes.Buffer) {
	t.Helper()
	machine := vm.New()
	Install(machine)
	var buf bytes.Buffer
	machine.SetOutput(&buf)
	return machine, &buf
}

func TestDefAndInvoke(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("{ 1 2 + } 'plus3' def plus3"), machine.GetError())
	require.Equal(t, types.Number(3), machine.Stack().Top())

	require.True(t, machine.Eval("plus3"), machine.GetError())
	require.Equal(t, 2, machine.Stack().Size())
	require.Equal(t, types.Number(3), machine.Stack().Top())
}

func TestRepeat(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("0"))
	require.True(t, machine.Eval("5 { 1 + } repeat"), machine.GetError())
	require.Equal(t, types.Number(5), machine.Stack().Top())
}

func TestRepeatNegativeIsNoOp(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("0"))
	require.True(t, machine.Eval("0 1 - { 1 + } repeat"))
	require.Equal(t, types.Number(0), machine.Stack().Top())
}

func TestEquality(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("1 2 ="))
	require.Equal(t, types.Boolean(false), machine.Stack().Pop())

	require.True(t, machine.Eval("1 1 ="))
	require.Equal(t, types.Boolean(true), machine.Stack().Pop())
}

func TestIfElse(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("{ 1 } { 2 } 1 1 = ifelse"), machine.GetError())
	require.Equal(t, types.Number(1), machine.Stack().Top())

	machine2, _ := newMachine(t)
	require.True(t, machine2.Eval("{ 1 } { 2 } 1 2 = ifelse"), machine2.GetError())
	require.Equal(t, types.Number(2), machine2.Stack().Top())
}

func TestTrueFalseAreDictionaryWords(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("{ 1 } { 2 } true ifelse"), machine.GetError())
	require.Equal(t, 1, machine.Stack().Size())
	require.Equal(t, types.Number(1), machine.Stack().Top())

	machine2, _ := newMachine(t)
	require.True(t, machine2.Eval("{ 1 } { 2 } false ifelse"), machine2.GetError())
	require.Equal(t, types.Number(2), machine2.Stack().Top())
}

func TestPrintOmitsQuotesForStrings(t *testing.T) {
	machine, out := newMachine(t)
	require.True(t, machine.Eval("'hello' ."), machine.GetError())
	require.Equal(t, "hello", out.String())
}

func TestArithmeticExtensions(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("6 7 *"))
	require.Equal(t, types.Number(42), machine.Stack().Pop())

	require.True(t, machine.Eval("20 4 /"))
	require.Equal(t, types.Number(5), machine.Stack().Pop())

	require.True(t, machine.Eval("7 2 mod"))
	require.Equal(t, types.Number(1), machine.Stack().Pop())

	require.True(t, machine.Eval("5 neg"))
	require.Equal(t, types.Number(-5), machine.Stack().Pop())

	require.True(t, machine.Eval("0 5 - abs"))
	require.Equal(t, types.Number(5), machine.Stack().Pop())
}

func TestDivisionByZeroRaises(t *testing.T) {
	machine, _ := newMachine(t)
	require.False(t, machine.Eval("1 0 /"))
	require.Contains(t, machine.GetError(), "division by zero")
}

func TestStackShuffles(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("1 2 drop"))
	require.Equal(t, types.Number(1), machine.Stack().Pop())

	require.True(t, machine.Eval("1 2 over"))
	require.Equal(t, []types.Value{types.Number(1), types.Number(2), types.Number(1)}, snapshot(machine))

	require.True(t, machine.Eval("1 2 3 rot"))
	require.Equal(t, []types.Value{types.Number(2), types.Number(3), types.Number(1)}, snapshot(machine))
}

func snapshot(machine *vm.VM) []types.Value {
	var out []types.Value
	s := machine.Stack()
	for s.Size() > 0 {
		out = append([]types.Value{s.Pop()}, out...)
	}
	return out
}

func TestDip(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("1 2 { 10 + } dip"), machine.GetError())
	require.Equal(t, types.Number(2), machine.Stack().Pop())
	require.Equal(t, types.Number(11), machine.Stack().Pop())
}

func TestWhile(t *testing.T) {
	machine, _ := newMachine(t)
	require.True(t, machine.Eval("0"))
	require.True(t, machine.Eval("{ dup 3 < } { 1 + } while"), machine.GetError())
	require.Equal(t, types.Number(3), machine.Stack().Top())
}
