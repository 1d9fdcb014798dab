// Package vm implements shard's virtual machine: the operand stack and
// dictionary bound together behind an Environment, and the tail-call
// optimizing executor that walks a Block's Operations.
package vm

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/shard-lang/shard/pkg/dict"
	"github.com/shard-lang/shard/pkg/parser"
	"github.com/shard-lang/shard/pkg/stack"
	"github.com/shard-lang/shard/pkg/types"
)

// continuation is a saved (block, index) pair: the position to resume
// at once the block currently being executed finishes. It stands in
// for the original interpreter's goto-based tail-call dispatch.
type continuation struct {
	block *types.Block
	index int
}

// VM owns the operand stack, the dictionary, and the single error
// slot. It has no concurrency of its own — spec's execution model is
// single-threaded and synchronous, so a VM must not be shared across
// goroutines without external synchronization.
type VM struct {
	stack      *stack.Stack
	dictionary *dict.Dictionary
	output     io.Writer

	errorOccurred bool
	lastErr       error

	trace  bool
	logger *log.Logger
}

// New returns a VM with an empty stack and dictionary, writing `.`/`cr`/
// `dump` output to os.Stdout. Callers typically follow this with a call
// to an stdlib installer to populate the dictionary with the standard
// word set.
func New() *VM {
	return &VM{
		stack:      &stack.Stack{},
		dictionary: dict.New(),
		output:     os.Stdout,
		logger:     log.New(os.Stderr, "", log.LstdFlags),
	}
}

// Output returns the writer stdlib I/O words print to.
func (vm *VM) Output() io.Writer { return vm.output }

// SetOutput redirects stdlib I/O words, e.g. to capture output in tests.
func (vm *VM) SetOutput(w io.Writer) { vm.output = w }

// SetTrace turns CALL-dispatch tracing on or off: with it on, every
// word dispatched through Run's OpCall case is logged via the standard
// "log" package before it runs. Intended for cmd/shard's -debug flag,
// not for embedding use.
func (vm *VM) SetTrace(on bool) { vm.trace = on }

// SetTraceOutput redirects trace log lines, e.g. to capture them in
// tests; it does not affect Output/SetOutput, which is for stdlib I/O
// words only.
func (vm *VM) SetTraceOutput(w io.Writer) {
	vm.logger = log.New(w, "", log.LstdFlags)
}

// Env returns the Environment façade over this VM, for host code that
// wants to install or invoke words directly (outside of a native
// function body, which already receives one as an argument).
func (vm *VM) Env() *Environment { return &Environment{vm: vm} }

// Def installs a user block under name.
func (vm *VM) Def(name string, block *types.Block) {
	vm.dictionary.Define(name, block)
}

// DefNative installs a host-provided native function under name.
func (vm *VM) DefNative(name string, fn dict.Native) {
	vm.dictionary.DefineNative(name, fn)
}

// GetError returns the message of the last raised error, or "" if the
// error flag is not set. It is the only thing that crosses the
// embedding boundary — callers outside this package never see the
// wrapped *errors.withStack chain, only its rendered text.
func (vm *VM) GetError() string {
	if vm.lastErr == nil {
		return ""
	}
	return vm.lastErr.Error()
}

// DebugError returns the last raised error with its full %+v stack
// trace, for diagnostic logging (e.g. cmd/shard's -debug flag). It is
// not part of the spec's embedding contract.
func (vm *VM) DebugError() string {
	if vm.lastErr == nil {
		return ""
	}
	return fmt.Sprintf("%+v", vm.lastErr)
}

// Stack exposes the operand stack for introspection (e.g. the REPL's
// ":stack" command). Mutating it outside of Run/a native function body
// voids the usual invariants.
func (vm *VM) Stack() *stack.Stack { return vm.stack }

// Dictionary exposes the word table for introspection.
func (vm *VM) Dictionary() *dict.Dictionary { return vm.dictionary }

func (vm *VM) raise(format string, args ...interface{}) {
	if vm.errorOccurred {
		return
	}
	vm.errorOccurred = true
	vm.lastErr = errors.Errorf(format, args...)
}

func (vm *VM) raiseErr(err error) {
	if vm.errorOccurred {
		return
	}
	vm.errorOccurred = true
	vm.lastErr = errors.WithStack(err)
}

// clearError resets the error slot; called at the start of every
// top-level Eval, matching spec's "the error flag is cleared at the
// start of the next eval" rule.
func (vm *VM) clearError() {
	vm.errorOccurred = false
	vm.lastErr = nil
}

// Eval parses source as a single top-level block and runs it. It
// returns false if either parsing or execution raised an error; in
// either case GetError reports the message.
func (vm *VM) Eval(source string) bool {
	vm.clearError()
	block, err := parser.Parse(source)
	if err != nil {
		vm.raiseErr(err)
		return false
	}
	return vm.Run(block)
}

// callHash decodes a CALL operation's Number operand back into the
// NameHash it encodes. See pkg/parser for the inverse encoding.
func callHash(v types.Value) dict.NameHash {
	return dict.NameHash(math.Float64bits(float64(v.(types.Number))))
}

// Run executes block to completion: a trampoline over an explicit
// continuation stack, so that a tail call — a CALL or IF branch that
// is the last operation of its enclosing block — reuses the current
// frame instead of growing one. Only non-tail invocations push a
// continuation; the continuation stack's depth is therefore bounded
// by the program's maximum non-tail call nesting, not by how many
// times a tail-recursive word calls itself.
//
// Each call to Run manages its own, local continuation stack: a
// native function that calls Environment.Run (e.g. `if`, `repeat`)
// recurses into Run as an ordinary Go call, nested beneath the
// dispatch that invoked it. That bounds Go's call stack by the static
// nesting of such combinators in the program, which is what spec
// expects — only self-tail-recursion via CALL is required to run in
// constant space, and that case never leaves this function.
func (vm *VM) Run(root *types.Block) bool {
	frames := []continuation{{block: root, index: 0}}

	for len(frames) > 0 {
		top := len(frames) - 1
		block, idx := frames[top].block, frames[top].index
		frames = frames[:top]

	dispatch:
		for idx < len(block.Ops) {
			op := block.Ops[idx]
			switch op.Opcode {
			case types.OpPush:
				vm.stack.Push(op.Operand)
				idx++

			case types.OpCall:
				h := callHash(op.Operand)
				native, userBlock, ok := vm.dictionary.Lookup(h)
				if !ok {
					name := op.Name
					if name == "" {
						name = vm.dictionary.Name(h)
					}
					vm.raise("Failed to look up the word '%s'", name)
					return false
				}
				if vm.trace {
					name := op.Name
					if name == "" {
						name = vm.dictionary.Name(h)
					}
					vm.logger.Printf("CALL %s", name)
				}
				if native != nil {
					native(vm.Env())
					if vm.errorOccurred {
						return false
					}
					idx++
					continue dispatch
				}
				if idx == len(block.Ops)-1 {
					block, idx = userBlock, 0
					continue dispatch
				}
				frames = append(frames, continuation{block: block, index: idx + 1})
				block, idx = userBlock, 0
				continue dispatch

			case types.OpIf:
				if err := vm.stack.Expect2(types.TagBoolean, types.TagBlock); err != nil {
					vm.raiseErr(err)
					return false
				}
				branch := vm.stack.Pop().(*types.Block)
				cond := bool(vm.stack.Pop().(types.Boolean))
				if !cond {
					idx++
					continue dispatch
				}
				if idx == len(block.Ops)-1 {
					block, idx = branch, 0
					continue dispatch
				}
				frames = append(frames, continuation{block: block, index: idx + 1})
				block, idx = branch, 0
				continue dispatch

			case types.OpPlus:
				if err := vm.stack.Expect2(types.TagNumber, types.TagNumber); err != nil {
					vm.raiseErr(err)
					return false
				}
				vm.stack.AddTop()
				idx++

			case types.OpMinus:
				if err := vm.stack.Expect2(types.TagNumber, types.TagNumber); err != nil {
					vm.raiseErr(err)
					return false
				}
				vm.stack.SubTop()
				idx++

			case types.OpDup:
				if vm.stack.Empty() {
					vm.raise("assertion failed: stack empty")
					return false
				}
				vm.stack.DupTop()
				idx++

			case types.OpSwap:
				if vm.stack.Size() < 2 {
					vm.raise("assertion failed: not enough items on stack")
					return false
				}
				vm.stack.SwapTop()
				idx++

			default:
				vm.raise("Unknown Opcode '%d'", int(op.Opcode))
				return false
			}
		}
	}

	return true
}
