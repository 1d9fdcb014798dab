package vm

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shard-lang/shard/pkg/dict"
	"github.com/shard-lang/shard/pkg/parser"
	"github.com/shard-lang/shard/pkg/types"
)

func TestTraceLogsCallDispatch(t *testing.T) {
	machine := New()
	var buf bytes.Buffer
	machine.SetTraceOutput(&buf)
	machine.SetTrace(true)

	block, err := parser.Parse("1 2 +")
	require.NoError(t, err)
	machine.Def("plus", block)

	require.True(t, machine.Eval("plus"), machine.GetError())
	require.Contains(t, buf.String(), "CALL plus")
}

func TestTraceOffLogsNothing(t *testing.T) {
	machine := New()
	var buf bytes.Buffer
	machine.SetTraceOutput(&buf)

	block, err := parser.Parse("1 2 +")
	require.NoError(t, err)
	machine.Def("plus", block)
	require.True(t, machine.Eval("plus"), machine.GetError())
	require.Empty(t, buf.String())
}

func TestEvalArithmetic(t *testing.T) {
	machine := New()
	ok := machine.Eval("1 2 +")
	require.True(t, ok, machine.GetError())
	require.Equal(t, 1, machine.stack.Size())
	require.Equal(t, types.Number(3), machine.stack.Top())
}

func TestEvalMinusOrderIsSecondMinusTop(t *testing.T) {
	machine := New()
	require.True(t, machine.Eval("3 4 -"))
	require.Equal(t, types.Number(-1), machine.stack.Top())
}

func TestEvalStringEscape(t *testing.T) {
	machine := New()
	require.True(t, machine.Eval("'hello ''world''' dup"))
	require.Equal(t, 2, machine.stack.Size())
	require.Equal(t, types.String(`hello 'world'`), machine.stack.Top())
	require.Equal(t, types.String(`hello 'world'`), machine.stack.Second())
}

func TestEvalLookupFailureReportsName(t *testing.T) {
	machine := New()
	ok := machine.Eval("bogus")
	require.False(t, ok)
	require.Contains(t, machine.GetError(), "Failed to look up")
	require.Contains(t, machine.GetError(), "bogus")
}

func TestEvalParseFailure(t *testing.T) {
	machine := New()
	ok := machine.Eval("{")
	require.False(t, ok)
	require.Contains(t, machine.GetError(), "Unterminated block")
}

func TestDefAndCallUserBlock(t *testing.T) {
	machine := New()

	block, err := parser.Parse("1 2 +")
	require.NoError(t, err)
	machine.Def("plus3", block)

	require.True(t, machine.Eval("plus3"))
	require.Equal(t, types.Number(3), machine.stack.Top())

	require.True(t, machine.Eval("plus3"))
	require.Equal(t, types.Number(3), machine.stack.Top())
	require.Equal(t, 2, machine.stack.Size(), "running plus3 twice should leave two results on the stack")
}

// TestIfOpcode builds its block directly rather than through Parse,
// since no boolean literal exists at the source-language level — a
// Boolean only ever reaches the stack via a native word.
func TestIfOpcode(t *testing.T) {
	machine := New()
	thenBlock := types.NewBlock([]types.Operation{types.Push(types.Number(1))})
	root := types.NewBlock([]types.Operation{
		types.Push(types.Boolean(true)),
		types.Push(thenBlock),
		{Opcode: types.OpIf},
	})
	require.True(t, machine.Run(root))
	require.Equal(t, types.Number(1), machine.stack.Top())
}

func TestIfOpcodeFalseDoesNotBranch(t *testing.T) {
	machine := New()
	thenBlock := types.NewBlock([]types.Operation{types.Push(types.Number(1))})
	root := types.NewBlock([]types.Operation{
		types.Push(types.Boolean(false)),
		types.Push(thenBlock),
		{Opcode: types.OpIf},
	})
	require.True(t, machine.Run(root))
	require.Equal(t, 0, machine.stack.Size())
}

// callOp builds a CALL Operation targeting name, exactly as the parser
// would encode it.
func callOp(name string) types.Operation {
	h := dict.Hash(name)
	return types.Operation{
		Opcode:  types.OpCall,
		Operand: types.Number(math.Float64frombits(uint64(h))),
		Name:    name,
	}
}

// TestTailCallRunsInConstantStackSpace defines a self-tail-recursive
// countdown entirely at the Operation level (no stdlib comparison
// words available at this layer) and runs it over a large N. If tail
// calls grew the continuation stack — or Go's own call stack — this
// would either blow the stack or take noticeably super-linear time;
// it should simply complete.
func TestTailCallRunsInConstantStackSpace(t *testing.T) {
	machine := New()
	machine.DefNative("nonzero", func(env dict.Environment) {
		n, ok := env.PopNumber()
		if !ok {
			return
		}
		env.Push(types.Boolean(n != 0))
	})

	thenBlock := types.NewBlock([]types.Operation{
		types.Push(types.Number(1)),
		{Opcode: types.OpMinus},
		callOp("loop"), // tail position: last op of thenBlock
	})
	loopBlock := types.NewBlock([]types.Operation{
		{Opcode: types.OpDup},
		callOp("nonzero"),
		types.Push(thenBlock),
		{Opcode: types.OpIf}, // tail position: last op of loopBlock
	})
	machine.Def("loop", loopBlock)

	const n = 200000
	root := types.NewBlock([]types.Operation{
		types.Push(types.Number(n)),
		callOp("loop"), // tail position: last op of root
	})

	require.True(t, machine.Run(root), machine.GetError())
	require.Equal(t, 1, machine.stack.Size())
	require.Equal(t, types.Number(0), machine.stack.Top())
}
