package vm

import (
	"github.com/shard-lang/shard/pkg/dict"
	"github.com/shard-lang/shard/pkg/types"
)

// Environment is the façade passed to native functions: the operand
// stack plus the dictionary, with typed accessors and the ability to
// raise errors, install further definitions, and re-enter the
// executor. It satisfies dict.Environment.
type Environment struct {
	vm *VM
}

var _ dict.Environment = (*Environment)(nil)

func (e *Environment) Push(v types.Value) { e.vm.stack.Push(v) }

// PopRaw pops the top value regardless of tag.
func (e *Environment) PopRaw() types.Value {
	if e.vm.stack.Empty() {
		e.Raise("assertion failed: stack empty")
		return nil
	}
	return e.vm.stack.Pop()
}

func (e *Environment) PopNumber() (types.Number, bool) {
	if err := e.vm.stack.Expect1(types.TagNumber); err != nil {
		e.vm.raiseErr(err)
		return 0, false
	}
	return e.vm.stack.Pop().(types.Number), true
}

func (e *Environment) PopString() (types.String, bool) {
	if err := e.vm.stack.Expect1(types.TagString); err != nil {
		e.vm.raiseErr(err)
		return "", false
	}
	return e.vm.stack.Pop().(types.String), true
}

func (e *Environment) PopBoolean() (types.Boolean, bool) {
	if err := e.vm.stack.Expect1(types.TagBoolean); err != nil {
		e.vm.raiseErr(err)
		return false, false
	}
	return e.vm.stack.Pop().(types.Boolean), true
}

func (e *Environment) PopBlock() (*types.Block, bool) {
	if err := e.vm.stack.Expect1(types.TagBlock); err != nil {
		e.vm.raiseErr(err)
		return nil, false
	}
	return e.vm.stack.Pop().(*types.Block), true
}

// PeekTag reports the tag of the top value, or false if the stack is
// empty.
func (e *Environment) PeekTag() (types.Tag, bool) {
	if e.vm.stack.Empty() {
		return 0, false
	}
	return e.vm.stack.Top().Tag(), true
}

// Expect asserts the top len(tags) values match, in bottom-of-check to
// top order; it raises and leaves the stack untouched on mismatch.
func (e *Environment) Expect(tags ...types.Tag) bool {
	var err error
	switch len(tags) {
	case 1:
		err = e.vm.stack.Expect1(tags[0])
	case 2:
		err = e.vm.stack.Expect2(tags[0], tags[1])
	case 3:
		err = e.vm.stack.Expect3(tags[0], tags[1], tags[2])
	default:
		e.Raise("Expect called with unsupported arity %d", len(tags))
		return false
	}
	if err != nil {
		e.vm.raiseErr(err)
		return false
	}
	return true
}

func (e *Environment) ExpectTwoEqual() bool {
	if err := e.vm.stack.ExpectTwoEqual(); err != nil {
		e.vm.raiseErr(err)
		return false
	}
	return true
}

func (e *Environment) ExpectThreeEqual() bool {
	if err := e.vm.stack.ExpectThreeEqual(); err != nil {
		e.vm.raiseErr(err)
		return false
	}
	return true
}

func (e *Environment) Size() int { return e.vm.stack.Size() }

func (e *Environment) Def(name string, block *types.Block) {
	e.vm.dictionary.Define(name, block)
}

func (e *Environment) DefNative(name string, fn dict.Native) {
	e.vm.dictionary.DefineNative(name, fn)
}

func (e *Environment) Raise(format string, args ...interface{}) {
	e.vm.raise(format, args...)
}

// Run re-enters the executor on block, e.g. for `if`, `repeat` and
// similar stdlib combinators.
func (e *Environment) Run(block *types.Block) bool {
	return e.vm.Run(block)
}

func (e *Environment) Dump() string {
	return e.vm.stack.String()
}
