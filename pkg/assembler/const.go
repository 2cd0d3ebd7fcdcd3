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

const (
	MODE_NONE AddressingMode = iota
	MODE_IMMEDIATE
	MODE_MEMORY
)

const (
	// Opcode 0x00 is reserved: the machine treats it as halt, so untouched
	// memory is never executable
	OP_ADDI uint8 = 0x01
	OP_ADD  uint8 = 0x02
	OP_SUBI uint8 = 0x03
	OP_SUB  uint8 = 0x04
	OP_CLAC uint8 = 0x05
	OP_BNZ  uint8 = 0x06
	OP_BZ   uint8 = 0x07
	OP_UCB  uint8 = 0x08
	OP_STR  uint8 = 0x09
)

const (
	// Words in the shared address space
	SpaceSize = 256

	// The data region may never claim the whole space
	MaxDataEntries = SpaceSize - 1

	// Keyword opening the data declaration block (case-sensitive)
	DataKeyword = "BEGINDATA"
)

// The mnemonic set is closed; mnemonics are case-sensitive
var instructions = map[string]Instruction{
	"addi": {OP_ADDI, MODE_IMMEDIATE},
	"add":  {OP_ADD, MODE_MEMORY},
	"subi": {OP_SUBI, MODE_IMMEDIATE},
	"sub":  {OP_SUB, MODE_MEMORY},
	"clac": {OP_CLAC, MODE_NONE},
	"bnz":  {OP_BNZ, MODE_MEMORY},
	"bz":   {OP_BZ, MODE_MEMORY},
	"ucb":  {OP_UCB, MODE_MEMORY},
	"str":  {OP_STR, MODE_MEMORY},
}

func LookupInstruction(mnemonic string) (Instruction, bool) {
	inst, found := instructions[mnemonic]
	return inst, found
}

func InstructionName(opcode uint8) (string, bool) {
	for name, inst := range instructions {
		if inst.Opcode == opcode {
			return name, true
		}
	}

	return "", false
}
