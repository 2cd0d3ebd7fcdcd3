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

type MachineState struct {
	Accumulator uint16
	Program     uint8
	ZeroFlag    bool
	Memory      [SpaceSize]uint16
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint8, mc *Machine)
	Write(addr uint8, mc *Machine)
}

type Machine struct {
	State    MachineState
	Halted   bool
	Debugger MachineDebugger
}
