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

package machine

const SpaceSize = 256

const (
	// The assembler never emits opcode 0x00 for an instruction, so fetching
	// a zero word (untouched memory past the program) halts the machine
	OP_HALT uint8 = 0x00
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
