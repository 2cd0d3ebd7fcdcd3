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
	"fmt"
)

type AddressingMode uint

type Instruction struct {
	Opcode uint8
	Mode   AddressingMode
}

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

// SymTable carries the debug information emitted alongside an image: source
// byte offsets per instruction slot and names per resolved address. It is
// gob-encoded into a .msdb file by the assembler CLI.
type SymTable struct {
	Source  string
	Symbols map[uint8]int64
	Labels  map[uint8]string
	Vars    map[uint8]string
}

type TokenError interface {
	GetPosition() Cursor
}

type UnterminatedLabelError struct {
	Position Cursor
}

func (err *UnterminatedLabelError) GetPosition() Cursor {
	return err.Position
}

func (err *UnterminatedLabelError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Label declaration is missing a closing ':'",
		err.Position.Line,
		err.Position.Column,
	)
}

type ExpectedSymbolError struct {
	Position Cursor
	Want     byte
}

func (err *ExpectedSymbolError) GetPosition() Cursor {
	return err.Position
}

func (err *ExpectedSymbolError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Expected '%c'",
		err.Position.Line,
		err.Position.Column,
		err.Want,
	)
}

type InvalidIdentifierError struct {
	Position Cursor
}

func (err *InvalidIdentifierError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidIdentifierError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Expected an identifier",
		err.Position.Line,
		err.Position.Column,
	)
}

type InvalidLiteralError struct {
	Position Cursor
}

func (err *InvalidLiteralError) GetPosition() Cursor {
	return err.Position
}

func (err *InvalidLiteralError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Invalid integer literal",
		err.Position.Line,
		err.Position.Column,
	)
}

type OversizedLiteralError struct {
	Position Cursor
	Limit    int64
	Value    int64
}

func (err *OversizedLiteralError) GetPosition() Cursor {
	return err.Position
}

func (err *OversizedLiteralError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Literal %d exceeds limit of %d",
		err.Position.Line,
		err.Position.Column,
		err.Value,
		err.Limit,
	)
}

type OversizedCharacterError struct {
	Position Cursor
}

func (err *OversizedCharacterError) GetPosition() Cursor {
	return err.Position
}

func (err *OversizedCharacterError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Non-ASCII character",
		err.Position.Line,
		err.Position.Column,
	)
}

type MissingOperandError struct {
	Position Cursor
	Mnemonic string
}

func (err *MissingOperandError) GetPosition() Cursor {
	return err.Position
}

func (err *MissingOperandError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Instruction '%s' is missing its operand",
		err.Position.Line,
		err.Position.Column,
		err.Mnemonic,
	)
}

type RedeclaredSymbolError struct {
	Position Cursor
	Name     string
}

func (err *RedeclaredSymbolError) GetPosition() Cursor {
	return err.Position
}

func (err *RedeclaredSymbolError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Symbol '%s' redeclared",
		err.Position.Line,
		err.Position.Column,
		err.Name,
	)
}

type UnresolvedSymbolError struct {
	Position Cursor
	Name     string
}

func (err *UnresolvedSymbolError) GetPosition() Cursor {
	return err.Position
}

func (err *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Unresolved symbol '%s'",
		err.Position.Line,
		err.Position.Column,
		err.Name,
	)
}

type AmbiguousSymbolError struct {
	Position Cursor
	Name     string
}

func (err *AmbiguousSymbolError) GetPosition() Cursor {
	return err.Position
}

func (err *AmbiguousSymbolError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Symbol '%s' names both a label and a data variable",
		err.Position.Line,
		err.Position.Column,
		err.Name,
	)
}

type DataSectionOverflowError struct {
	Position Cursor
	Name     string
}

func (err *DataSectionOverflowError) GetPosition() Cursor {
	return err.Position
}

func (err *DataSectionOverflowError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Data section overflow declaring '%s' (limit %d entries)",
		err.Position.Line,
		err.Position.Column,
		err.Name,
		MaxDataEntries,
	)
}

type AddressSpaceOverflowError struct {
	Position Cursor
}

func (err *AddressSpaceOverflowError) GetPosition() Cursor {
	return err.Position
}

func (err *AddressSpaceOverflowError) Error() string {
	return fmt.Sprintf(
		"%d:%d: Program does not fit the %d-word address space",
		err.Position.Line,
		err.Position.Column,
		SpaceSize,
	)
}
