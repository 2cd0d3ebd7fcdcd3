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

package debugger

import (
	"bufio"
	"fmt"
	"io"

	"github.com/threadedstream/metasm/pkg/assembler"
	"github.com/threadedstream/metasm/pkg/encoding"
	"github.com/threadedstream/metasm/pkg/machine"
)

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.Program == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint8, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint8, mc *machine.Machine) {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) PrintSource(addr uint8, count uint8) {
	if dbg.Source == nil {
		fmt.Println("No source file loaded")
		return
	}

	if dbg.SymTable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	if offset, exists := dbg.SymTable.Symbols[addr]; exists {
		if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
			panic(err)
		}

		scanner := bufio.NewScanner(dbg.Source)
		scanner.Split(bufio.ScanLines)

		for i := uint8(0); i < count; i++ {
			if !scanner.Scan() {
				break
			}

			line := scanner.Text()

			foundaddr := false
			for lineaddr, linebyte := range dbg.SymTable.Symbols {
				if linebyte == offset {
					fmt.Printf("\033[1m[%#02x]\033[0m ", lineaddr)
					foundaddr = true
					break
				}
			}

			if !foundaddr {
				fmt.Print("\033[1;30m~~~~~~\033[0m ")
			}

			fmt.Println(line)

			offset += int64(len(line) + 1)
		}

		if err := scanner.Err(); err != nil {
			fmt.Println(err)
		}
	} else {
		fmt.Printf("No instruction found at %#02x\n", addr)
	}
}

func (dbg *Debugger) PrintMem(mc *machine.MachineState, addr, count uint8) {
	for i := 0; i < int(count); i++ {
		slot := int(addr) + i

		if slot >= machine.SpaceSize {
			break
		}

		if i == 0 {
			fmt.Printf("\033[1m[%#02x]\033[0m ", slot)
		} else if i%4 == 0 {
			fmt.Println()
			fmt.Printf("\033[1m[%#02x]\033[0m ", slot)
		}

		result := mc.Memory[slot]

		if result == 0 {
			fmt.Printf("\033[1;30m%#04x\033[0m ", result)
		} else {
			fmt.Printf("%#04x ", result)
		}
	}

	fmt.Println()
}

// PrintDisasm renders memory words as instructions, annotating operands
// with symbol names when a symbol table is loaded
func (dbg *Debugger) PrintDisasm(mc *machine.MachineState, addr, count uint8) {
	for i := 0; i < int(count); i++ {
		slot := int(addr) + i

		if slot >= machine.SpaceSize {
			break
		}

		word := mc.Memory[slot]
		opcode, operand := encoding.UnpackInstruction(word)

		name, known := assembler.InstructionName(opcode)

		if !known {
			fmt.Printf("\033[1m[%#02x]\033[0m %#04x\n", slot, word)
			continue
		}

		symbol := ""

		if dbg.SymTable != nil {
			if label, exists := dbg.SymTable.Labels[operand]; exists {
				symbol = " ; ." + label
			} else if v, exists := dbg.SymTable.Vars[operand]; exists {
				symbol = " ; " + v
			}
		}

		fmt.Printf(
			"\033[1m[%#02x]\033[0m %s %d%s\n",
			slot,
			name,
			operand,
			symbol,
		)
	}
}
