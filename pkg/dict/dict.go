// Package dict implements shard's Dictionary: the VM-global map from a
// word's name hash to either a user-defined Block or a host-installed
// native function.
package dict

import (
	"github.com/cespare/xxhash/v2"

	"github.com/shard-lang/shard/pkg/types"
)

// NameHash is a stable 64-bit hash of a word's UTF-8 bytes.
type NameHash uint64

// Hash computes the NameHash for a word. Callers (the parser, and
// Dictionary itself) must use this and only this function so that a
// word hashed at parse time always matches the same word hashed at
// definition time.
func Hash(name string) NameHash {
	return NameHash(xxhash.Sum64String(name))
}

// Native is a host-installed word. It interacts with the VM only
// through the Environment passed to it.
type Native func(env Environment)

// Environment is the embedding-API surface a Native function may use:
// stack push/pop/peek, typed assertions, re-entrant definition and
// execution, and error signalling. It is declared here, rather than in
// pkg/vm, purely to let pkg/dict define Native without importing
// pkg/vm (which must import pkg/dict for the Dictionary type itself);
// pkg/vm.Environment satisfies this interface structurally.
type Environment interface {
	// Push pushes a value onto the operand stack.
	Push(v types.Value)
	// PopRaw pops the top value regardless of tag.
	PopRaw() types.Value
	// PopNumber, PopString, PopBoolean and PopBlock pop the top value,
	// asserting (and raising on mismatch) that it carries the given tag.
	PopNumber() (types.Number, bool)
	PopString() (types.String, bool)
	PopBoolean() (types.Boolean, bool)
	PopBlock() (*types.Block, bool)
	// PeekTag reports the tag of the top value without popping it.
	PeekTag() (types.Tag, bool)
	// Expect asserts the top len(tags) values match, bottom-of-check
	// first; it does not modify the stack on failure.
	Expect(tags ...types.Tag) bool
	// ExpectTwoEqual and ExpectThreeEqual assert the top N elements
	// share a tag.
	ExpectTwoEqual() bool
	ExpectThreeEqual() bool
	// Size reports the current operand stack depth.
	Size() int
	// Def installs a user block under name from within a native word.
	Def(name string, block *types.Block)
	// DefNative installs another native function under name.
	DefNative(name string, fn Native)
	// Raise signals a runtime error, formatted like fmt.Sprintf.
	Raise(format string, args ...interface{})
	// Run re-enters the executor on a block argument (used by `if`,
	// `repeat`, and friends). Returns false if an error was raised.
	Run(block *types.Block) bool
	// Dump renders the stack bottom-to-top for introspection.
	Dump() string
}

// Dictionary holds user definitions and native functions, both keyed
// by NameHash, plus a side table of original names used only to
// produce readable lookup-failure errors (spec's "store the original
// name alongside the hash" resolution to the hash-collision Open
// Question).
type Dictionary struct {
	blocks  map[NameHash]*types.Block
	natives map[NameHash]Native
	names   map[NameHash]string
}

// New returns an empty Dictionary.
func New() *Dictionary {
	return &Dictionary{
		blocks:  make(map[NameHash]*types.Block),
		natives: make(map[NameHash]Native),
		names:   make(map[NameHash]string),
	}
}

// Define installs a user block under name, blessing it transitively.
// Redefinition overwrites any prior definition under the same hash.
func (d *Dictionary) Define(name string, block *types.Block) {
	block.Bless()
	h := Hash(name)
	d.blocks[h] = block
	d.names[h] = name
}

// DefineNative installs a host-provided native function under name.
func (d *Dictionary) DefineNative(name string, fn Native) {
	h := Hash(name)
	d.natives[h] = fn
	d.names[h] = name
}

// Lookup resolves a hash to, in order, a native function or a user
// block. ok is false if neither is defined.
func (d *Dictionary) Lookup(h NameHash) (native Native, block *types.Block, ok bool) {
	if fn, found := d.natives[h]; found {
		return fn, nil, true
	}
	if b, found := d.blocks[h]; found {
		return nil, b, true
	}
	return nil, nil, false
}

// Name returns the original word for a hash, or "" if never defined
// under that hash (e.g. it was only ever used as a CALL target that
// missed — the caller should fall back to the Operation's own Name).
func (d *Dictionary) Name(h NameHash) string {
	return d.names[h]
}

// Words lists every defined name, natives and user blocks alike —
// used by introspection (e.g. the REPL's :words command).
func (d *Dictionary) Words() []string {
	out := make([]string, 0, len(d.names))
	for _, n := range d.names {
		out = append(out, n)
	}
	return out
}

// IsNative reports whether name resolves to a native function.
func (d *Dictionary) IsNative(name string) bool {
	_, found := d.natives[Hash(name)]
	return found
}
