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

package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/threadedstream/metasm/pkg/debugger"
	"github.com/threadedstream/metasm/pkg/encoding"
	"github.com/threadedstream/metasm/pkg/machine"
)

var lastcmd []string

func parseAddr(s string) (uint8, error) {
	addr, err := encoding.DecodeHex(s)

	if err != nil {
		return 0, err
	}

	if addr > 0xFF {
		return 0, fmt.Errorf("address %#x outside the address space", addr)
	}

	return uint8(addr), nil
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x##]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		addr, err := parseAddr(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		exists := false

		for _, breakpoint := range dbg.Breakpoints {
			if breakpoint.Addr == addr {
				exists = true
				break
			}
		}

		if !exists {
			dbg.Breakpoints = append(
				dbg.Breakpoints,
				debugger.Breakpoint{Addr: addr},
			)

			fmt.Printf("Breakpoint added [%#02x]\n", addr)
		}

	case "l", "ls", "list":
		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf("#%d: %#02x\n", i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)

		if err != nil {
			log.Println(err)
			return
		}

		if i < 0 || i >= int64(len(dbg.Breakpoints)) {
			log.Println("Invalid breakpoint number")
			return
		}

		dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
		dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = make([]debugger.Breakpoint, 0)
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x##] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		addr, err := parseAddr(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		exists := false

		for _, watchpoint := range dbg.Watchpoints {
			if watchpoint.Addr == addr && watchpoint.Type == wtype {
				exists = true
				break
			}
		}

		if !exists {
			dbg.Watchpoints = append(
				dbg.Watchpoints,
				debugger.Watchpoint{Addr: addr, Type: wtype},
			)

			var typename string
			switch wtype {
			case debugger.ReadWatch:
				typename = "R"
			case debugger.WriteWatch:
				typename = "W"
			case debugger.ReadWriteWatch:
				typename = "RW"
			}

			fmt.Printf("Watchpoint added [%#02x] (%s)\n", addr, typename)
		}

	case "l", "ls", "list":
		for i, watchpoint := range dbg.Watchpoints {
			var typename string
			switch watchpoint.Type {
			case debugger.ReadWatch:
				typename = "R"
			case debugger.WriteWatch:
				typename = "W"
			case debugger.ReadWriteWatch:
				typename = "RW"
			}

			fmt.Printf("#%d: %#02x (%s)\n", i, watchpoint.Addr, typename)
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)

		if err != nil {
			log.Println(err)
			return
		}

		if i < 0 || i >= int64(len(dbg.Watchpoints)) {
			log.Println("Invalid watchpoint number")
			return
		}

		dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
		dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = make([]debugger.Watchpoint, 0)
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func debugReg(mc *machine.Machine) {
	flag := 0
	if mc.State.ZeroFlag {
		flag = 1
	}

	fmt.Printf(
		"ACC:%#04x PC:%#02x ZF:%d HALTED:%t\n",
		mc.State.Accumulator,
		mc.State.Program,
		flag,
		mc.Halted,
	)
}

func debugSource(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "source [0x##] [count]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	addr := mc.Program
	count := uint8(8)

	if len(args) >= 1 {
		parsed, err := parseAddr(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		addr = parsed
	}

	if len(args) == 2 {
		parsed, err := strconv.ParseUint(args[1], 10, 8)

		if err != nil {
			log.Println(err)
			return
		}

		count = uint8(parsed)
	}

	dbg.PrintSource(addr, count)
}

func debugLabels(dbg *debugger.Debugger) {
	if dbg.SymTable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	addrs := make([]int, 0, len(dbg.SymTable.Labels)+len(dbg.SymTable.Vars))

	for addr := range dbg.SymTable.Labels {
		addrs = append(addrs, int(addr))
	}

	for addr := range dbg.SymTable.Vars {
		addrs = append(addrs, int(addr))
	}

	sort.Ints(addrs)

	for _, addr := range addrs {
		if label, exists := dbg.SymTable.Labels[uint8(addr)]; exists {
			fmt.Printf("[%#02x] .%s\n", addr, label)
		} else {
			fmt.Printf("[%#02x] %s\n", addr, dbg.SymTable.Vars[uint8(addr)])
		}
	}
}

func debugJump(mc *machine.MachineState, args []string) {
	const usage = "jump [0x##]"

	if len(args) != 1 {
		log.Println(usage)
		return
	}

	addr, err := parseAddr(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	mc.Program = addr
	fmt.Printf("PC set to %#02x\n", addr)
}

func debugMemory(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "memory [0x##] [count]"

	if len(args) < 1 || len(args) > 2 {
		log.Println(usage)
		return
	}

	addr, err := parseAddr(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	count := uint8(1)

	if len(args) == 2 {
		parsed, err := strconv.ParseUint(args[1], 10, 8)

		if err != nil {
			log.Println(err)
			return
		}

		count = uint8(parsed)
	}

	dbg.PrintMem(mc, addr, count)
}

func debugDisasm(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "disasm [0x##] [count]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	addr := mc.Program
	count := uint8(8)

	if len(args) >= 1 {
		parsed, err := parseAddr(args[0])

		if err != nil {
			log.Println(err)
			return
		}

		addr = parsed
	}

	if len(args) == 2 {
		parsed, err := strconv.ParseUint(args[1], 10, 8)

		if err != nil {
			log.Println(err)
			return
		}

		count = uint8(parsed)
	}

	dbg.PrintDisasm(mc, addr, count)
}

func debugSet(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "set [0x##|acc] [0x####]"

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	value, err := encoding.DecodeHex(args[1])

	if err != nil {
		log.Println(err)
		return
	}

	if args[0] == "acc" {
		mc.Accumulator = value
		mc.ZeroFlag = value == 0
		fmt.Printf("ACC set to %#04x\n", value)
		return
	}

	addr, err := parseAddr(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	mc.Memory[addr] = value
	dbg.PrintMem(mc, addr, 1)
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	exitRawTerm()
	defer enterRawTerm()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			shouldexit = true
			return
		}

		args := strings.Split(strings.TrimSpace(scanner.Text()), " ")

		if len(args[0]) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "registers":
			debugReg(mc)

		case "s", "src", "source":
			debugSource(dbg, &mc.State, args)

		case "l", "label", "labels":
			debugLabels(dbg)

		case "j", "jmp", "jump":
			debugJump(&mc.State, args)

		case "m", "mem", "memory":
			debugMemory(dbg, &mc.State, args)

		case "d", "dis", "disasm":
			debugDisasm(dbg, &mc.State, args)

		case "set":
			debugSet(dbg, &mc.State, args)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			shouldexit = true
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Println()
		fmt.Println("Program stopped")
		dbg.PrintSource(mc.State.Program, 8)
	}
	debugREPL(dbg, mc)
}

func handleRead(addr uint8, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr uint8, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}
