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

import (
	"io"

	"github.com/threadedstream/metasm/pkg/encoding"
	"github.com/threadedstream/metasm/pkg/image"
)

func (mc *MachineState) Reset() {
	mc.Accumulator = 0
	mc.Program = 0
	mc.ZeroFlag = false

	for i := range mc.Memory {
		mc.Memory[i] = 0x0000
	}
}

// LoadImage validates the preamble and fills memory from the image body.
// On failure the machine stays reset and halted; on success it is ready to
// step from slot 0.
func (mc *Machine) LoadImage(reader io.Reader) error {
	mc.State.Reset()
	mc.Halted = true

	words, err := image.Read(reader)

	if err != nil {
		return err
	}

	copy(mc.State.Memory[:], words)
	mc.Halted = false

	return nil
}

func (mc *Machine) read(addr uint8) uint16 {
	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

func (mc *Machine) write(addr uint8, value uint16) {
	mc.State.Memory[addr] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func (mc *Machine) setFlag() {
	mc.State.ZeroFlag = mc.State.Accumulator == 0
}

func (mc *Machine) Step() {
	if mc.Halted {
		return
	}

	instruction := mc.State.Memory[mc.State.Program]
	opcode, operand := encoding.UnpackInstruction(instruction)

	mc.State.Program++

	switch opcode {
	// addi |opcode  |imm8    | Add immediate to accumulator
	case OP_ADDI:
		mc.State.Accumulator += uint16(operand)
		mc.setFlag()

	// add  |opcode  |addr    | Add memory word to accumulator
	case OP_ADD:
		mc.State.Accumulator += mc.read(operand)
		mc.setFlag()

	// subi |opcode  |imm8    | Subtract immediate from accumulator
	case OP_SUBI:
		mc.State.Accumulator -= uint16(operand)
		mc.setFlag()

	// sub  |opcode  |addr    | Subtract memory word from accumulator
	case OP_SUB:
		mc.State.Accumulator -= mc.read(operand)
		mc.setFlag()

	// clac |opcode  |0       | Clear accumulator
	case OP_CLAC:
		mc.State.Accumulator = 0
		mc.State.ZeroFlag = true

	// bnz  |opcode  |addr    | Branch when zero-flag is clear
	case OP_BNZ:
		if !mc.State.ZeroFlag {
			mc.State.Program = operand
		}

	// bz   |opcode  |addr    | Branch when zero-flag is set
	case OP_BZ:
		if mc.State.ZeroFlag {
			mc.State.Program = operand
		}

	// ucb  |opcode  |addr    | Unconditional branch
	case OP_UCB:
		mc.State.Program = operand

	// str  |opcode  |addr    | Store accumulator to memory
	case OP_STR:
		mc.write(operand, mc.State.Accumulator)

	// Halt on the reserved zero opcode and on anything outside the catalog,
	// leaving the program counter on the halting slot
	default:
		mc.State.Program--
		mc.Halted = true
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}
}

// Run steps the machine until it halts
func (mc *Machine) Run() {
	for !mc.Halted {
		mc.Step()
	}
}
