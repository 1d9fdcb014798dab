// Package stdlib installs shard's standard word set into a VM. It is
// an external collaborator: it consumes only pkg/vm's public
// Environment surface and never reaches into pkg/dict or pkg/stack
// internals, so the VM itself carries no dependency on it.
//
// `+`, `-`, `dup` and `swap` are reserved at the lexer level (see
// pkg/parser) and compile straight to fast opcodes; a source word
// never reaches the dictionary under those names, so this package
// does not register them.
package stdlib

import (
	"fmt"
	"math"

	"github.com/shard-lang/shard/pkg/dict"
	"github.com/shard-lang/shard/pkg/types"
	"github.com/shard-lang/shard/pkg/vm"
)

const epsilon = 1e-9

// Install registers the standard word set into v's dictionary.
func Install(v *vm.VM) {
	// Boolean literals. The lexer has no true/false token — every
	// identifier that isn't one of the four fast-path opcodes lowers to
	// a CALL — so these exist purely as ordinary dictionary words that
	// push the corresponding Boolean, the same way the teacher installs
	// them as plain value definitions (oisee-psil's builtins.go
	// Define("true", ...)/Define("false", ...)), adapted here to native
	// functions since this dictionary holds blocks and natives, not
	// bare values.
	v.DefNative("true", func(env dict.Environment) { env.Push(types.Boolean(true)) })
	v.DefNative("false", func(env dict.Environment) { env.Push(types.Boolean(false)) })

	// Arithmetic beyond the lexer's fast-path +/-.
	v.DefNative("*", func(env dict.Environment) { arith(env, func(a, b float64) float64 { return a * b }) })
	v.DefNative("/", func(env dict.Environment) {
		b, ok := env.PopNumber()
		if !ok {
			return
		}
		a, ok := env.PopNumber()
		if !ok {
			return
		}
		if b == 0 {
			env.Raise("division by zero")
			return
		}
		env.Push(types.Number(float64(a) / float64(b)))
	})
	v.DefNative("mod", func(env dict.Environment) {
		b, ok := env.PopNumber()
		if !ok {
			return
		}
		a, ok := env.PopNumber()
		if !ok {
			return
		}
		if b == 0 {
			env.Raise("division by zero")
			return
		}
		env.Push(types.Number(math.Mod(float64(a), float64(b))))
	})
	v.DefNative("neg", func(env dict.Environment) {
		a, ok := env.PopNumber()
		if !ok {
			return
		}
		env.Push(-a)
	})
	v.DefNative("abs", func(env dict.Environment) {
		a, ok := env.PopNumber()
		if !ok {
			return
		}
		env.Push(types.Number(math.Abs(float64(a))))
	})

	// Comparisons.
	v.DefNative("<", func(env dict.Environment) { compare(env, func(a, b float64) bool { return a < b }) })
	v.DefNative(">", func(env dict.Environment) { compare(env, func(a, b float64) bool { return a > b }) })
	v.DefNative("<=", func(env dict.Environment) { compare(env, func(a, b float64) bool { return a <= b }) })
	v.DefNative(">=", func(env dict.Environment) { compare(env, func(a, b float64) bool { return a >= b }) })
	v.DefNative("=", equalWord)

	// Boolean logic.
	v.DefNative("and", func(env dict.Environment) { boolOp(env, func(a, b bool) bool { return a && b }) })
	v.DefNative("or", func(env dict.Environment) { boolOp(env, func(a, b bool) bool { return a || b }) })
	v.DefNative("not", func(env dict.Environment) {
		a, ok := env.PopBoolean()
		if !ok {
			return
		}
		env.Push(!a)
	})

	// Stack shuffling beyond the lexer's fast-path dup/swap.
	v.DefNative("drop", func(env dict.Environment) { env.PopRaw() })
	v.DefNative("over", overWord)
	v.DefNative("rot", rotWord)
	v.DefNative("nip", nipWord)
	v.DefNative("tuck", tuckWord)
	v.DefNative("pick", pickWord)

	// Definitions and control flow.
	v.DefNative("def", defWord)
	v.DefNative("if", ifWord)
	v.DefNative("ifelse", ifelseWord)
	v.DefNative("repeat", repeatWord)
	v.DefNative("dip", dipWord)
	v.DefNative("times", timesWord)
	v.DefNative("while", whileWord)

	// I/O.
	v.DefNative(".", func(env dict.Environment) { printWord(v, env, false) })
	v.DefNative("cr", func(env dict.Environment) { fmt.Fprintln(v.Output()) })
	v.DefNative("dump", func(env dict.Environment) { fmt.Fprintln(v.Output(), env.Dump()) })
}

func arith(env dict.Environment, f func(a, b float64) float64) {
	b, ok := env.PopNumber()
	if !ok {
		return
	}
	a, ok := env.PopNumber()
	if !ok {
		return
	}
	env.Push(types.Number(f(float64(a), float64(b))))
}

func compare(env dict.Environment, f func(a, b float64) bool) {
	b, ok := env.PopNumber()
	if !ok {
		return
	}
	a, ok := env.PopNumber()
	if !ok {
		return
	}
	env.Push(types.Boolean(f(float64(a), float64(b))))
}

func boolOp(env dict.Environment, f func(a, b bool) bool) {
	b, ok := env.PopBoolean()
	if !ok {
		return
	}
	a, ok := env.PopBoolean()
	if !ok {
		return
	}
	env.Push(types.Boolean(f(bool(a), bool(b))))
}

// equalWord implements `=`: numbers within epsilon, strings/booleans
// by value, blocks by identity. Values of differing tags are unequal,
// never a type error — `=` is meant to be usable generically.
func equalWord(env dict.Environment) {
	b := env.PopRaw()
	a := env.PopRaw()
	if a == nil || b == nil {
		return
	}
	env.Push(types.Boolean(valuesEqual(a, b)))
}

func valuesEqual(a, b types.Value) bool {
	if a.Tag() != b.Tag() {
		return false
	}
	switch av := a.(type) {
	case types.Number:
		return math.Abs(float64(av)-float64(b.(types.Number))) < epsilon
	case types.String:
		return av == b.(types.String)
	case types.Boolean:
		return av == b.(types.Boolean)
	case *types.Block:
		return av == b.(*types.Block)
	default:
		return false
	}
}

// defWord implements `def`: "block name —". Installs block under name.
func defWord(env dict.Environment) {
	name, ok := env.PopString()
	if !ok {
		return
	}
	block, ok := env.PopBlock()
	if !ok {
		return
	}
	env.Def(string(name), block)
}

// ifWord implements `if`: "cond block —", with semantics identical to
// the VM's fast-path IF opcode.
func ifWord(env dict.Environment) {
	block, ok := env.PopBlock()
	if !ok {
		return
	}
	cond, ok := env.PopBoolean()
	if !ok {
		return
	}
	if bool(cond) {
		env.Run(block)
	}
}

// ifelseWord implements `ifelse`: "then-block else-block cond —".
func ifelseWord(env dict.Environment) {
	cond, ok := env.PopBoolean()
	if !ok {
		return
	}
	elseBlock, ok := env.PopBlock()
	if !ok {
		return
	}
	thenBlock, ok := env.PopBlock()
	if !ok {
		return
	}
	if bool(cond) {
		env.Run(thenBlock)
	} else {
		env.Run(elseBlock)
	}
}

// repeatWord implements `repeat`: "n block —". Blesses block (so a
// literal block argument survives being invoked repeatedly) and runs
// it n times; n < 0 is a no-op.
func repeatWord(env dict.Environment) {
	block, ok := env.PopBlock()
	if !ok {
		return
	}
	n, ok := env.PopNumber()
	if !ok {
		return
	}
	block.Bless()
	count := int(n)
	for i := 0; i < count; i++ {
		if !env.Run(block) {
			return
		}
	}
}

// timesWord is repeat's teacher-grounded sibling with the operand
// order swapped to "block n —", matching how a trailing-count call
// reads at the source level (`{ ... } 5 times`).
func timesWord(env dict.Environment) {
	n, ok := env.PopNumber()
	if !ok {
		return
	}
	block, ok := env.PopBlock()
	if !ok {
		return
	}
	block.Bless()
	count := int(n)
	for i := 0; i < count; i++ {
		if !env.Run(block) {
			return
		}
	}
}

// whileWord: "cond-block body-block —". Runs cond-block, pops the
// boolean it leaves on top, and continues looping body-block while
// that boolean is true.
func whileWord(env dict.Environment) {
	body, ok := env.PopBlock()
	if !ok {
		return
	}
	cond, ok := env.PopBlock()
	if !ok {
		return
	}
	cond.Bless()
	body.Bless()
	for {
		if !env.Run(cond) {
			return
		}
		keepGoing, ok := env.PopBoolean()
		if !ok {
			return
		}
		if !bool(keepGoing) {
			return
		}
		if !env.Run(body) {
			return
		}
	}
}

// dipWord: "a block —". Pops block and the value beneath it, runs
// block with that value off the stack, then restores the value on
// top — adapted from oisee-psil's builtinDip onto the Block model.
func dipWord(env dict.Environment) {
	block, ok := env.PopBlock()
	if !ok {
		return
	}
	saved := env.PopRaw()
	if saved == nil {
		return
	}
	env.Run(block)
	env.Push(saved)
}

func overWord(env dict.Environment) {
	if !env.Expect(types.TagAny, types.TagAny) {
		return
	}
	b := env.PopRaw()
	a := env.PopRaw()
	env.Push(a)
	env.Push(b)
	env.Push(a.Clone())
}

func rotWord(env dict.Environment) {
	if env.Size() < 3 {
		env.Raise("assertion failed: not enough items on stack")
		return
	}
	c := env.PopRaw()
	b := env.PopRaw()
	a := env.PopRaw()
	env.Push(b)
	env.Push(c)
	env.Push(a)
}

func nipWord(env dict.Environment) {
	if !env.Expect(types.TagAny, types.TagAny) {
		return
	}
	b := env.PopRaw()
	env.PopRaw()
	env.Push(b)
}

func tuckWord(env dict.Environment) {
	if !env.Expect(types.TagAny, types.TagAny) {
		return
	}
	b := env.PopRaw()
	a := env.PopRaw()
	env.Push(b.Clone())
	env.Push(a)
	env.Push(b)
}

// pickWord: "n — v". Copies the nth item from the top (0-indexed) to
// the top of the stack, without disturbing anything beneath it.
func pickWord(env dict.Environment) {
	n, ok := env.PopNumber()
	if !ok {
		return
	}
	idx := int(n)
	if idx < 0 || idx >= env.Size() {
		env.Raise("assertion failed: pick index out of range")
		return
	}
	values := make([]types.Value, idx+1)
	for i := 0; i <= idx; i++ {
		values[i] = env.PopRaw()
	}
	for i := idx; i >= 0; i-- {
		env.Push(values[i])
	}
	env.Push(values[idx].Clone())
}

// printWord implements `.`: print the top value without a trailing
// newline (cr is a separate word). Strings print without their
// surrounding quotes; every other type uses its dump representation.
func printWord(v *vm.VM, env dict.Environment, _ bool) {
	val := env.PopRaw()
	if val == nil {
		return
	}
	if s, ok := val.(types.String); ok {
		fmt.Fprint(v.Output(), string(s))
		return
	}
	fmt.Fprint(v.Output(), val.Repr())
}
