// Copyright (C) 2026  The metasm authors

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package assembler

import (
	"io"
	"unicode"

	"github.com/threadedstream/metasm/pkg/encoding"
)

// scanner walks the raw source byte by byte, tracking the cursor for
// diagnostics. Both passes tokenize through the same scanner so that label
// slots predicted by the resolver always match the slots the encoder fills.
type scanner struct {
	src    []byte
	pos    int
	cursor Cursor
}

func newScanner(src []byte) *scanner {
	return &scanner{
		src:    src,
		cursor: Cursor{Line: 1, Column: 1},
	}
}

func (sc *scanner) done() bool {
	return sc.pos >= len(sc.src)
}

func (sc *scanner) peek() byte {
	return sc.src[sc.pos]
}

func (sc *scanner) position() Cursor {
	return sc.cursor
}

func (sc *scanner) advance() byte {
	c := sc.src[sc.pos]
	sc.pos++
	sc.cursor.Byte++
	sc.cursor.Column++

	if c == '\n' {
		sc.cursor.Line++
		sc.cursor.Column = 1
		sc.cursor.LineByte = int64(sc.pos)
	}

	return c
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
		c == '\v' || c == '\f'
}

// A mnemonic only counts when delimited on the right by whitespace or the
// end of the source
func (sc *scanner) atWordBreak() bool {
	return sc.done() || isSpace(sc.peek())
}

func (sc *scanner) eatWhitespace() {
	for !sc.done() && isSpace(sc.peek()) {
		sc.advance()
	}
}

func (sc *scanner) skipLine() {
	for !sc.done() && sc.peek() != '\n' {
		sc.advance()
	}
}

// Reads a run of non-space characters, stopping before any byte in extra
func (sc *scanner) readWord(extra ...byte) (string, Cursor) {
	position := sc.position()
	start := sc.pos

scan:
	for !sc.done() && !isSpace(sc.peek()) {
		for _, stop := range extra {
			if sc.peek() == stop {
				break scan
			}
		}

		sc.advance()
	}

	word := string(sc.src[start:sc.pos])
	position.Size = int64(len(word))
	return word, position
}

func (sc *scanner) expect(symbol byte) error {
	if sc.done() || sc.peek() != symbol {
		return &ExpectedSymbolError{sc.position(), symbol}
	}

	sc.advance()
	return nil
}

// Reads the label name between '.' and ':'. A newline or the end of the
// source before ':' leaves the declaration unterminated.
func (sc *scanner) readLabelName() (string, Cursor, error) {
	position := sc.position()
	start := sc.pos

	for {
		if sc.done() || sc.peek() == '\n' {
			return "", position, &UnterminatedLabelError{position}
		}

		if sc.peek() == ':' {
			break
		}

		sc.advance()
	}

	name := string(sc.src[start:sc.pos])
	position.Size = int64(len(name))
	sc.advance()

	if len(name) == 0 {
		return "", position, &InvalidIdentifierError{position}
	}

	return name, position, nil
}

type dataDecl struct {
	name     string
	value    uint16
	position Cursor
}

// program holds the state of one assemble run. Nothing survives a failed
// run; every call to AssembleMetasmSource builds a fresh program.
type program struct {
	src       []byte
	labels    map[string]uint8
	vars      map[string]uint8
	decls     []dataDecl
	memory    [SpaceSize]uint16
	codeCount uint16
}

// First pass: build both symbol tables without emitting any code. Labels
// bind to the current instruction slot; the data block is parsed here so
// that data declarations are known before any encoding happens. Data slots
// are only pinned to absolute addresses once the pass has fixed the size of
// the code region: the data region starts directly after the last
// instruction, so the two regions can never collide.
func (p *program) resolve() error {
	sc := newScanner(p.src)

	var pc uint16
	var token string
	var tokenPos Cursor

	for !sc.done() {
		c := sc.peek()

		switch {
		case c > unicode.MaxASCII:
			return &OversizedCharacterError{sc.position()}

		case c == '.':
			position := sc.position()
			sc.advance()

			name, namePos, err := sc.readLabelName()

			if err != nil {
				return err
			}

			if pc > 0xFF {
				return &AddressSpaceOverflowError{position}
			}

			if _, exists := p.labels[name]; exists {
				return &RedeclaredSymbolError{namePos, name}
			}

			// A label marks the next instruction slot; pc does not advance
			p.labels[name] = uint8(pc)
			token = ""

		case isSpace(c):
			sc.advance()
			token = ""

		default:
			if token == "" {
				tokenPos = sc.position()
			}

			token += string(rune(c))
			sc.advance()

			if _, found := instructions[token]; found && sc.atWordBreak() {
				if pc == SpaceSize {
					return &AddressSpaceOverflowError{tokenPos}
				}

				// Operands are irrelevant here; only the slot count matters
				pc++
				sc.skipLine()
				token = ""
			} else if token == DataKeyword && sc.atWordBreak() {
				if err := p.parseDataBlock(sc); err != nil {
					return err
				}

				token = ""
			}
		}
	}

	p.codeCount = pc

	if int(p.codeCount)+len(p.decls) > SpaceSize {
		return &AddressSpaceOverflowError{sc.position()}
	}

	for i, decl := range p.decls {
		p.memory[p.codeCount+uint16(i)] = decl.value
	}

	return nil
}

// Parses 'BEGINDATA { name = int ... }'. Each pair claims the next data
// slot; the value is written into the address space once the region is
// placed at the end of the first pass.
func (p *program) parseDataBlock(sc *scanner) error {
	sc.eatWhitespace()

	if err := sc.expect('{'); err != nil {
		return err
	}

	sc.eatWhitespace()

	for {
		if sc.done() {
			return &ExpectedSymbolError{sc.position(), '}'}
		}

		if sc.peek() == '}' {
			sc.advance()
			return nil
		}

		name, namePos := sc.readWord('=', '}')

		if len(name) == 0 {
			return &InvalidIdentifierError{namePos}
		}

		sc.eatWhitespace()

		if err := sc.expect('='); err != nil {
			return err
		}

		sc.eatWhitespace()

		literal, literalPos := sc.readWord('}')

		if len(literal) == 0 {
			return &InvalidLiteralError{literalPos}
		}

		value, err := encoding.DecodeInt(literal)

		if err != nil {
			return &InvalidLiteralError{literalPos}
		}

		if value < -0x8000 || value > 0xFFFF {
			return &OversizedLiteralError{literalPos, 0xFFFF, value}
		}

		if _, exists := p.vars[name]; exists {
			return &RedeclaredSymbolError{namePos, name}
		}

		if len(p.decls) == MaxDataEntries {
			return &DataSectionOverflowError{namePos, name}
		}

		p.vars[name] = uint8(len(p.decls))
		p.decls = append(p.decls, dataDecl{name, uint16(value), namePos})

		sc.eatWhitespace()
	}
}

// Skips over a data block already validated by the first pass
func (sc *scanner) skipDataBlock() {
	for !sc.done() {
		if sc.advance() == '}' {
			return
		}
	}
}

// Second pass: re-tokenize and emit one word per instruction into the code
// region, consulting the catalog for the addressing mode and the symbol
// tables for memory operands
func (p *program) encode(symtable *SymTable) error {
	sc := newScanner(p.src)

	var pc uint16
	var token string
	var tokenPos Cursor

	for !sc.done() {
		c := sc.peek()

		switch {
		case c == '.':
			// Label effects were captured by the resolver
			sc.advance()

			if _, _, err := sc.readLabelName(); err != nil {
				return err
			}

			token = ""

		case isSpace(c):
			sc.advance()
			token = ""

		default:
			if token == "" {
				tokenPos = sc.position()
			}

			token += string(rune(c))
			sc.advance()

			inst, found := instructions[token]

			if found && sc.atWordBreak() {
				operand, err := p.encodeOperand(sc, token, inst)

				if err != nil {
					return err
				}

				p.memory[pc] = encoding.PackInstruction(inst.Opcode, operand)

				if symtable != nil {
					symtable.Symbols[uint8(pc)] = tokenPos.LineByte
				}

				pc++
				sc.skipLine()
				token = ""
			} else if token == DataKeyword && sc.atWordBreak() {
				sc.skipDataBlock()
				token = ""
			}
		}
	}

	if symtable != nil {
		for name, addr := range p.labels {
			symtable.Labels[addr] = name
		}

		for name, slot := range p.vars {
			symtable.Vars[uint8(p.codeCount)+slot] = name
		}
	}

	return nil
}

func (p *program) encodeOperand(
	sc *scanner, mnemonic string, inst Instruction,
) (uint8, error) {
	switch inst.Mode {
	case MODE_IMMEDIATE:
		sc.eatWhitespace()

		literal, position := sc.readWord()

		if len(literal) == 0 {
			return 0, &MissingOperandError{position, mnemonic}
		}

		value, err := encoding.DecodeInt(literal)

		if err != nil {
			return 0, &InvalidLiteralError{position}
		}

		if value < -0x80 || value > 0xFF {
			return 0, &OversizedLiteralError{position, 0xFF, value}
		}

		return uint8(value), nil

	case MODE_MEMORY:
		sc.eatWhitespace()

		name, position := sc.readWord()

		if len(name) == 0 {
			return 0, &MissingOperandError{position, mnemonic}
		}

		labelAddr, isLabel := p.labels[name]
		dataSlot, isVar := p.vars[name]

		if isLabel && isVar {
			return 0, &AmbiguousSymbolError{position, name}
		}

		if !isLabel && !isVar {
			return 0, &UnresolvedSymbolError{position, name}
		}

		if isLabel {
			return labelAddr, nil
		}

		return uint8(p.codeCount) + dataSlot, nil
	}

	// MODE_NONE
	return 0, nil
}

// AssembleMetasmSource runs both passes over the source and returns the
// completed address space, one word per slot. Any error aborts the run;
// no partial result is returned. When symtable is non-nil its maps are
// populated with debug information for the .msdb file.
func AssembleMetasmSource(
	input io.Reader, symtable *SymTable,
) ([]uint16, error) {
	src, err := io.ReadAll(input)

	if err != nil {
		return nil, err
	}

	p := &program{
		src:    src,
		labels: make(map[string]uint8),
		vars:   make(map[string]uint8),
	}

	if err := p.resolve(); err != nil {
		return nil, err
	}

	if err := p.encode(symtable); err != nil {
		return nil, err
	}

	result := make([]uint16, SpaceSize)
	copy(result, p.memory[:])

	return result, nil
}
