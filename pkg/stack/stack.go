// Package stack implements shard's operand stack: a LIFO sequence of
// typed values with non-consuming peeks, typed assertions, and the
// fast-path mutators the VM's inline opcodes rely on.
package stack

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/shard-lang/shard/pkg/types"
)

// Stack is the operand stack. The zero value is ready to use.
type Stack struct {
	data []types.Value
}

// Push pushes v onto the stack.
func (s *Stack) Push(v types.Value) {
	s.data = append(s.data, v)
}

// Pop removes and returns the top value. Panics if empty — callers
// must check Size (or an Expect variant) first, matching spec's
// invariant that depth is checked before any operator fires.
func (s *Stack) Pop() types.Value {
	n := len(s.data)
	v := s.data[n-1]
	s.data = s.data[:n-1]
	return v
}

// Top, Second and Third are non-consuming peeks at depth 0, 1 and 2
// (0 is the top of stack).
func (s *Stack) Top() types.Value    { return s.data[len(s.data)-1] }
func (s *Stack) Second() types.Value { return s.data[len(s.data)-2] }
func (s *Stack) Third() types.Value  { return s.data[len(s.data)-3] }

// Size reports the current depth.
func (s *Stack) Size() int { return len(s.data) }

// Empty reports whether the stack holds no values.
func (s *Stack) Empty() bool { return len(s.data) == 0 }

// expectDepth reports whether the stack holds at least n values,
// without raising — callers combine this with the typed checks below
// to build the "assertion failed" messages spec §4.1 specifies.
func (s *Stack) expectDepth(n int) bool { return len(s.data) >= n }

// Expect1 asserts depth >= 1 and the top matches a (or a is TagAny).
func (s *Stack) Expect1(a types.Tag) error {
	if !s.expectDepth(1) {
		return errors.New("assertion failed: stack empty")
	}
	top := s.Top()
	if !tagMatches(top.Tag(), a) {
		return errors.Errorf("assertion failed: expected (%s) but found: (%s)", a, top.Tag())
	}
	return nil
}

// Expect2 asserts depth >= 2; Second matches a, Top matches b.
func (s *Stack) Expect2(a, b types.Tag) error {
	if !s.expectDepth(2) {
		return errors.New("assertion failed: not enough items on stack")
	}
	second, top := s.Second(), s.Top()
	if !tagMatches(second.Tag(), a) || !tagMatches(top.Tag(), b) {
		return errors.Errorf("assertion failed: expected (%s, %s) but found: (%s, %s)",
			a, b, second.Tag(), top.Tag())
	}
	return nil
}

// Expect3 asserts depth >= 3; Third matches a, Second matches b, Top
// matches c.
func (s *Stack) Expect3(a, b, c types.Tag) error {
	if !s.expectDepth(3) {
		return errors.New("assertion failed: not enough items on stack")
	}
	third, second, top := s.Third(), s.Second(), s.Top()
	if !tagMatches(third.Tag(), a) || !tagMatches(second.Tag(), b) || !tagMatches(top.Tag(), c) {
		return errors.Errorf("assertion failed: expected (%s, %s, %s) but found: (%s, %s, %s)",
			a, b, c, third.Tag(), second.Tag(), top.Tag())
	}
	return nil
}

// ExpectTwoEqual asserts the top two values share a tag.
func (s *Stack) ExpectTwoEqual() error {
	if !s.expectDepth(2) {
		return errors.New("assertion failed: not enough items on stack")
	}
	top, second := s.Top(), s.Second()
	if top.Tag() != second.Tag() {
		return errors.Errorf("expected two equal types but found %s and %s", top.Tag(), second.Tag())
	}
	return nil
}

// ExpectThreeEqual asserts the top three values share a tag.
func (s *Stack) ExpectThreeEqual() error {
	if !s.expectDepth(3) {
		return errors.New("assertion failed: not enough items on stack")
	}
	top, second, third := s.Top(), s.Second(), s.Third()
	if top.Tag() != second.Tag() || second.Tag() != third.Tag() {
		return errors.Errorf("expected three equal types but found %s, %s and %s", top.Tag(), second.Tag(), third.Tag())
	}
	return nil
}

func tagMatches(have, want types.Tag) bool {
	return want == types.TagAny || have == want
}

// === Fast-path mutators, used only once the matching Expect* has
// already succeeded ===

// AddTop pops the top number and adds it into the new top in place.
func (s *Stack) AddTop() {
	n := len(s.data)
	top := s.data[n-1].(types.Number)
	s.data = s.data[:n-1]
	s.data[n-2] = s.data[n-2].(types.Number) + top
}

// SubTop pops the top number and subtracts it from the new top in
// place: second - top.
func (s *Stack) SubTop() {
	n := len(s.data)
	top := s.data[n-1].(types.Number)
	s.data = s.data[:n-1]
	s.data[n-2] = s.data[n-2].(types.Number) - top
}

// DupTop pushes a clone of the top value.
func (s *Stack) DupTop() {
	s.Push(s.Top().Clone())
}

// SwapTop exchanges the top two values in place.
func (s *Stack) SwapTop() {
	n := len(s.data)
	s.data[n-1], s.data[n-2] = s.data[n-2], s.data[n-1]
}

// String renders the stack bottom-to-top: "< v1, v2, …, top |".
func (s *Stack) String() string {
	var b strings.Builder
	b.WriteString("< ")
	for i, v := range s.data {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.Repr())
	}
	b.WriteString(" |")
	return b.String()
}
