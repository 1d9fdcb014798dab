// Package parser converts shard source text into a tree of Blocks
// holding typed Operations: a hand-written, single-pass, byte-at-a-time
// scanner — not a grammar engine — because several lexing rules are
// stateful (a `'` or `{` is only an error while a word is partially
// built; `}` flushes a pending word before closing its block) and the
// exact error text/index this package produces is a direct function of
// that imperative control flow.
package parser

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/shard-lang/shard/pkg/dict"
	"github.com/shard-lang/shard/pkg/types"
)

const (
	byteTab    = 9
	byteLF     = 10
	byteCR     = 13
	byteSpace  = 32
	byteQuote  = 39
	byteHash   = 35
	byteLBrace = 123
	byteRBrace = 125
)

type parser struct {
	source string
	index  int

	withinString bool
	currentWord  strings.Builder
	currentStr   strings.Builder

	levels []*types.Block
}

// Parse scans source into a fresh root Block and returns it. The
// returned error, if any, is the first lexing error encountered,
// formatted as "<message> (at index: N)" per the source language's
// error-reporting convention.
func Parse(source string) (*types.Block, error) {
	root := types.NewBlock(nil)
	p := &parser{source: source, levels: []*types.Block{root}}
	if err := p.run(); err != nil {
		return nil, err
	}
	return root, nil
}

func (p *parser) top() *types.Block { return p.levels[len(p.levels)-1] }

func (p *parser) pushOp(op types.Operation) {
	b := p.top()
	b.Ops = append(b.Ops, op)
}

func (p *parser) errAt(msg string) error {
	return errors.Errorf("%s (at index: %d)", msg, p.index)
}

func (p *parser) beginString() { p.currentStr.Reset() }

func (p *parser) endString() {
	p.pushOp(types.Push(types.String(p.currentStr.String())))
}

func (p *parser) beginWord() { p.currentWord.Reset() }

// endWord lowers the pending word to an Operation: the four reserved
// opcodes at the lexer level, a numeric PUSH, or else a CALL whose
// operand Number carries the word's NameHash bit pattern.
func (p *parser) endWord() {
	word := p.currentWord.String()

	switch word {
	case "-":
		p.pushOp(types.Operation{Opcode: types.OpMinus})
	case "+":
		p.pushOp(types.Operation{Opcode: types.OpPlus})
	case "dup":
		p.pushOp(types.Operation{Opcode: types.OpDup})
	case "swap":
		p.pushOp(types.Operation{Opcode: types.OpSwap})
	default:
		if isNumeric(word) {
			p.pushOp(types.Push(types.Number(parseNumber(word))))
		} else {
			h := dict.Hash(word)
			p.pushOp(types.Operation{
				Opcode:  types.OpCall,
				Operand: types.Number(hashToFloatBits(h)),
				Name:    word,
			})
		}
	}

	p.beginWord()
}

func (p *parser) beginBlock() {
	p.levels = append(p.levels, types.NewBlock(nil))
}

// endBlock pops the innermost open block and pushes it as a PUSH
// operand onto its parent. It reports false if only the root block
// remains open (nothing to close).
func (p *parser) endBlock() bool {
	if len(p.levels) <= 1 {
		return false
	}
	block := p.levels[len(p.levels)-1]
	p.levels = p.levels[:len(p.levels)-1]
	p.pushOp(types.Push(block))
	return true
}

// isNumeric reports whether s is non-empty, contains at least one
// digit, and consists only of digits and '.'.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	hasDigit := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			hasDigit = true
			continue
		}
		if c == '.' {
			continue
		}
		return false
	}
	return hasDigit
}

// parseNumber converts a numeric word to a double; a word that passed
// isNumeric but fails standard double parsing (e.g. more than one '.')
// yields 0, matching the source language's conversion fallback.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func (p *parser) run() error {
	p.beginWord()

	commentMode := false

	for p.index < len(p.source) {
		c := p.source[p.index]
		p.index++

		if c == byteHash {
			commentMode = true
		}
		if c == byteLF || c == byteCR {
			commentMode = false
		}
		if commentMode {
			continue
		}

		switch c {
		case byteTab, byteSpace, byteLF, byteCR:
			if p.withinString {
				p.currentStr.WriteByte(c)
			} else if p.currentWord.Len() > 0 {
				p.endWord()
			}
			continue

		case byteQuote:
			if p.withinString && p.index < len(p.source) && p.source[p.index] == byteQuote {
				p.currentStr.WriteByte(byteQuote)
				p.index++
				continue
			}
			if p.currentWord.Len() > 0 {
				return p.errAt("' not allowed in word name.")
			}
			p.withinString = !p.withinString
			if p.withinString {
				p.beginString()
			} else {
				p.endString()
			}

		case byteLBrace:
			if p.withinString {
				p.currentStr.WriteByte(c)
			} else {
				if p.currentWord.Len() > 0 {
					return p.errAt("{ not allowed in word name")
				}
				p.beginBlock()
			}

		case byteRBrace:
			if p.withinString {
				p.currentStr.WriteByte(c)
			} else {
				if p.currentWord.Len() > 0 {
					p.endWord()
				}
				if !p.endBlock() {
					return p.errAt("Attempted to end a block that hasn't started.")
				}
			}

		default:
			if p.withinString {
				p.currentStr.WriteByte(c)
			} else {
				p.currentWord.WriteByte(c)
			}
		}
	}

	if p.currentWord.Len() > 0 {
		p.endWord()
	}

	if len(p.levels) > 1 {
		return p.errAt("Unterminated block.")
	}

	return nil
}
