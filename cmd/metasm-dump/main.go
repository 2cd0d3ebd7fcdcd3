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
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/tebeka/atexit"

	"github.com/threadedstream/metasm/pkg/assembler"
	"github.com/threadedstream/metasm/pkg/encoding"
	"github.com/threadedstream/metasm/pkg/image"
)

var helpvar bool
var symvar bool
var rawvar bool

func init() {
	log.SetFlags(0)

	flag.BoolVar(&helpvar, "help", false, "Show usage information")
	flag.BoolVar(&symvar, "symbols", false, "Dump the symbol table alongside the image")
	flag.BoolVar(&rawvar, "raw", false, "Dump every word, including trailing zeros")
}

// lastUsed finds the highest slot holding a nonzero word so the
// default listing stops where the program does.
func lastUsed(words []uint16) int {
	last := -1

	for i, word := range words {
		if word != 0 {
			last = i
		}
	}

	return last
}

func dumpWords(words []uint16, symtable *assembler.SymTable) {
	end := len(words)

	if !rawvar {
		end = lastUsed(words) + 1
	}

	for addr := 0; addr < end; addr++ {
		word := words[addr]
		opcode, operand := encoding.UnpackInstruction(word)

		line := fmt.Sprintf("[%#02x] %#04x", addr, word)

		if name, exists := assembler.InstructionName(opcode); exists {
			line += fmt.Sprintf("  %s %#02x", name, operand)
		}

		if symtable != nil {
			if label, exists := symtable.Labels[uint8(addr)]; exists {
				line += fmt.Sprintf("  ; .%s", label)
			} else if name, exists := symtable.Vars[uint8(addr)]; exists {
				line += fmt.Sprintf("  ; %s", name)
			}
		}

		fmt.Println(line)
	}
}

func metasmDump() int {
	flag.Parse()

	if helpvar || flag.NArg() != 1 {
		fmt.Println("usage: metasm-dump [options] file.bin")
		flag.PrintDefaults()
		return 0
	}

	filename := flag.Arg(0)

	file, err := os.Open(filename)

	if err != nil {
		log.Println(err)
		return 1
	}

	defer file.Close()

	words, err := image.Read(file)

	if err != nil {
		log.Println(err)
		return 1
	}

	var symtable *assembler.SymTable

	if symvar {
		symname := filepath.Dir(filename) + "/" + strings.ReplaceAll(
			filepath.Base(filename), filepath.Ext(filename), ".msdb",
		)

		symfile, err := os.Open(symname)

		if err != nil {
			log.Println(err)
			return 1
		}

		defer symfile.Close()

		symtable = new(assembler.SymTable)

		if err := gob.NewDecoder(symfile).Decode(symtable); err != nil {
			log.Println(err)
			return 1
		}
	}

	dumpWords(words, symtable)

	if symvar {
		pp.Println(symtable)
	}

	return 0
}

func main() {
	atexit.Exit(metasmDump())
}
