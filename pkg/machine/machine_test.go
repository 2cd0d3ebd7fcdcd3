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

package machine_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/threadedstream/metasm/pkg/assembler"
	"github.com/threadedstream/metasm/pkg/image"
	"github.com/threadedstream/metasm/pkg/machine"
)

type testMachineState struct {
	Accumulator uint16
	Program     uint8
	ZeroFlag    bool
	Memory      map[uint8]uint16
}

type testCase struct {
	Name   string
	Steps  uint
	Halted bool
	Input  testMachineState
	Output testMachineState
}

func testMachineSuccess(t *testing.T, test *testCase) {
	if test.Input.Memory == nil && test.Output.Memory == nil {
		panic("No memory maps provided")
	}

	var mc machine.Machine

	mc.State.Reset()
	mc.State.Accumulator = test.Input.Accumulator
	mc.State.Program = test.Input.Program
	mc.State.ZeroFlag = test.Input.ZeroFlag

	for addr, value := range test.Input.Memory {
		mc.State.Memory[addr] = value
	}

	if test.Steps == 0 {
		test.Steps = 1
	}

	for i := uint(0); i < test.Steps; i++ {
		mc.Step()
	}

	if mc.State.Accumulator != test.Output.Accumulator {
		t.Errorf(
			"Accumulator mismatch"+
				"\nwant:%#04x (test.Output.Accumulator)\nhave:%#04x",
			test.Output.Accumulator,
			mc.State.Accumulator,
		)
	}

	if mc.State.Program != test.Output.Program {
		t.Errorf(
			"Program register mismatch"+
				"\nwant:%#02x (test.Output.Program)\nhave:%#02x",
			test.Output.Program,
			mc.State.Program,
		)
	}

	if mc.State.ZeroFlag != test.Output.ZeroFlag {
		t.Errorf(
			"Zero flag mismatch"+
				"\nwant:%t (test.Output.ZeroFlag)\nhave:%t",
			test.Output.ZeroFlag,
			mc.State.ZeroFlag,
		)
	}

	if mc.Halted != test.Halted {
		t.Errorf(
			"Halt state mismatch"+
				"\nwant:%t (test.Halted)\nhave:%t",
			test.Halted,
			mc.Halted,
		)
	}

	for i, value := range mc.State.Memory {
		input, expectingInput := test.Input.Memory[uint8(i)]
		output, expectingOutput := test.Output.Memory[uint8(i)]

		if expectingOutput {
			// Value was supposed to change
			if value != output {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#04x (test.Output.Memory[%#02x])\nhave:%#04x",
					output,
					i,
					value,
				)
			}
		} else if expectingInput {
			// Value was supposed to remain
			if value != input {
				t.Fatalf(
					"Memory value mismatch"+
						"\nwant:%#04x (test.Input.Memory[%#02x])\nhave:%#04x",
					input,
					i,
					value,
				)
			}
		} else if value != 0 {
			// Value was expected to remain uninitialized
			t.Fatalf(
				"Memory unexpectedly changed"+
					"\nwant:0x0000 (test.Output.Memory[%#02x])\nhave:%#04x",
				i,
				value,
			)
		}
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testMachineSuccess(t, &test)
			})
		}
	})
}

// addi |opcode  |imm8    | Add immediate to accumulator
func TestAddi(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "addi",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0105,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0005,
				Program:     0x01,
			},
		},
		// The operand is zero-extended, never sign-extended
		{
			Name: "addi Operand extension",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x01FF,
				},
			},
			Output: testMachineState{
				Accumulator: 0x00FF,
				Program:     0x01,
			},
		},
		{
			Name: "addi Wraparound",
			Input: testMachineState{
				Accumulator: 0xFFFF,
				Memory: map[uint8]uint16{
					0x00: 0x0102,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0001,
				Program:     0x01,
			},
		},
		{
			Name: "addi Zero result",
			Input: testMachineState{
				Accumulator: 0xFF01,
				Memory: map[uint8]uint16{
					0x00: 0x01FF,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0000,
				Program:     0x01,
				ZeroFlag:    true,
			},
		},
	})
}

// add  |opcode  |addr    | Add memory word to accumulator
func TestAddMem(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "add",
			Input: testMachineState{
				Accumulator: 0x0001,
				Memory: map[uint8]uint16{
					0x00: 0x0210,
					0x10: 0x0007,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0008,
				Program:     0x01,
			},
		},
		// Memory words carry the full sixteen bits
		{
			Name: "add Wide word",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0210,
					0x10: 0xFF00,
				},
			},
			Output: testMachineState{
				Accumulator: 0xFF00,
				Program:     0x01,
			},
		},
		{
			Name: "add Zero result",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0210,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0000,
				Program:     0x01,
				ZeroFlag:    true,
			},
		},
	})
}

// subi |opcode  |imm8    | Subtract immediate from accumulator
func TestSubi(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "subi",
			Input: testMachineState{
				Accumulator: 0x0005,
				Memory: map[uint8]uint16{
					0x00: 0x0302,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0003,
				Program:     0x01,
			},
		},
		{
			Name: "subi Wraparound",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0301,
				},
			},
			Output: testMachineState{
				Accumulator: 0xFFFF,
				Program:     0x01,
			},
		},
		{
			Name: "subi Zero result",
			Input: testMachineState{
				Accumulator: 0x0002,
				Memory: map[uint8]uint16{
					0x00: 0x0302,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0000,
				Program:     0x01,
				ZeroFlag:    true,
			},
		},
	})
}

// sub  |opcode  |addr    | Subtract memory word from accumulator
func TestSubMem(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "sub",
			Input: testMachineState{
				Accumulator: 0x0005,
				Memory: map[uint8]uint16{
					0x00: 0x0410,
					0x10: 0x0003,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0002,
				Program:     0x01,
			},
		},
		{
			Name: "sub Zero result",
			Input: testMachineState{
				Accumulator: 0x0003,
				Memory: map[uint8]uint16{
					0x00: 0x0410,
					0x10: 0x0003,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0000,
				Program:     0x01,
				ZeroFlag:    true,
			},
		},
	})
}

// clac |opcode  |0       | Clear accumulator
func TestClac(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "clac",
			Input: testMachineState{
				Accumulator: 0xCAFE,
				Memory: map[uint8]uint16{
					0x00: 0x0500,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0000,
				Program:     0x01,
				ZeroFlag:    true,
			},
		},
	})
}

// bnz  |opcode  |addr    | Branch when zero-flag is clear
func TestBnz(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "bnz Taken",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0610,
				},
			},
			Output: testMachineState{
				Program: 0x10,
			},
		},
		{
			Name: "bnz Not taken",
			Input: testMachineState{
				ZeroFlag: true,
				Memory: map[uint8]uint16{
					0x00: 0x0610,
				},
			},
			Output: testMachineState{
				Program:  0x01,
				ZeroFlag: true,
			},
		},
	})
}

// bz   |opcode  |addr    | Branch when zero-flag is set
func TestBz(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "bz Taken",
			Input: testMachineState{
				ZeroFlag: true,
				Memory: map[uint8]uint16{
					0x00: 0x0710,
				},
			},
			Output: testMachineState{
				Program:  0x10,
				ZeroFlag: true,
			},
		},
		{
			Name: "bz Not taken",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0710,
				},
			},
			Output: testMachineState{
				Program: 0x01,
			},
		},
	})
}

// ucb  |opcode  |addr    | Unconditional branch
func TestUcb(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "ucb",
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0810,
				},
			},
			Output: testMachineState{
				Program: 0x10,
			},
		},
		{
			Name: "ucb Backward",
			Input: testMachineState{
				Program: 0x05,
				Memory: map[uint8]uint16{
					0x05: 0x0800,
				},
			},
			Output: testMachineState{
				Program: 0x00,
			},
		},
	})
}

// str  |opcode  |addr    | Store accumulator to memory
func TestStr(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "str",
			Input: testMachineState{
				Accumulator: 0xBEEF,
				Memory: map[uint8]uint16{
					0x00: 0x0920,
				},
			},
			Output: testMachineState{
				Accumulator: 0xBEEF,
				Program:     0x01,
				Memory: map[uint8]uint16{
					0x20: 0xBEEF,
				},
			},
		},
		{
			Name: "str Overwrite",
			Input: testMachineState{
				Accumulator: 0x0001,
				Memory: map[uint8]uint16{
					0x00: 0x0920,
					0x20: 0x1111,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0001,
				Program:     0x01,
				Memory: map[uint8]uint16{
					0x20: 0x0001,
				},
			},
		},
	})
}

func TestHalt(t *testing.T) {
	testSuccess(t, []testCase{
		// The reserved zero opcode halts with the program counter left on
		// the halting slot
		{
			Name:   "Implicit halt",
			Halted: true,
			Input: testMachineState{
				Memory: map[uint8]uint16{},
			},
			Output: testMachineState{
				Program: 0x00,
			},
		},
		{
			Name:   "Unknown opcode",
			Halted: true,
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0A00,
				},
			},
			Output: testMachineState{
				Program: 0x00,
			},
		},
		{
			Name:   "Halt after code",
			Steps:  2,
			Halted: true,
			Input: testMachineState{
				Memory: map[uint8]uint16{
					0x00: 0x0105,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0005,
				Program:     0x01,
			},
		},
		// Further steps on a halted machine change nothing
		{
			Name:   "Halted machine is inert",
			Steps:  5,
			Halted: true,
			Input: testMachineState{
				Accumulator: 0x1234,
				Memory:      map[uint8]uint16{},
			},
			Output: testMachineState{
				Accumulator: 0x1234,
				Program:     0x00,
			},
		},
	})
}

func TestProgramWraparound(t *testing.T) {
	testSuccess(t, []testCase{
		// Falling off the last slot wraps back to slot zero
		{
			Name: "Wrap to zero",
			Input: testMachineState{
				Program: 0xFF,
				Memory: map[uint8]uint16{
					0xFF: 0x0105,
				},
			},
			Output: testMachineState{
				Accumulator: 0x0005,
				Program:     0x00,
			},
		},
	})
}

func TestLoadImage(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		words := make([]uint16, image.WordCount)
		words[0] = 0x0105
		words[255] = 0xBEEF

		var buf bytes.Buffer

		if err := image.Write(&buf, words); err != nil {
			t.Fatal(err)
		}

		var mc machine.Machine
		mc.Halted = true

		if err := mc.LoadImage(&buf); err != nil {
			t.Fatal(err)
		}

		if mc.Halted {
			t.Fatal("Machine still halted after load")
		}

		if mc.State.Memory[0] != 0x0105 || mc.State.Memory[255] != 0xBEEF {
			t.Fatal("Image body not copied into memory")
		}

		if mc.State.Program != 0 || mc.State.Accumulator != 0 {
			t.Fatal("Machine state not reset by load")
		}
	})

	t.Run("BadPreamble", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString("metasm v_9_9")
		buf.Write(make([]byte, image.WordCount*2))

		var mc machine.Machine

		err := mc.LoadImage(&buf)

		if _, ok := err.(*image.BadPreambleError); !ok {
			t.Fatalf(
				"Incorrect load error\nwant:%T\nhave:%T",
				&image.BadPreambleError{},
				err,
			)
		}

		if !mc.Halted {
			t.Fatal("Machine not halted after failed load")
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString(image.Preamble)
		buf.Write(make([]byte, 16))

		var mc machine.Machine

		err := mc.LoadImage(&buf)

		if _, ok := err.(*image.TruncatedImageError); !ok {
			t.Fatalf(
				"Incorrect load error\nwant:%T\nhave:%T",
				&image.TruncatedImageError{},
				err,
			)
		}

		if !mc.Halted {
			t.Fatal("Machine not halted after failed load")
		}
	})
}

type runCase struct {
	Name        string
	Source      string
	Accumulator uint16
	Program     uint8
	Memory      map[uint8]uint16
}

func testProgramRun(t *testing.T, test *runCase) {
	words, err := assembler.AssembleMetasmSource(
		strings.NewReader(test.Source), nil,
	)

	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer

	if err := image.Write(&buf, words); err != nil {
		t.Fatal(err)
	}

	var mc machine.Machine

	if err := mc.LoadImage(&buf); err != nil {
		t.Fatal(err)
	}

	mc.Run()

	if !mc.Halted {
		t.Fatal("Program did not halt")
	}

	if mc.State.Accumulator != test.Accumulator {
		t.Errorf(
			"Accumulator mismatch"+
				"\nwant:%#04x (test.Accumulator)\nhave:%#04x",
			test.Accumulator,
			mc.State.Accumulator,
		)
	}

	if mc.State.Program != test.Program {
		t.Errorf(
			"Program register mismatch"+
				"\nwant:%#02x (test.Program)\nhave:%#02x",
			test.Program,
			mc.State.Program,
		)
	}

	for addr, want := range test.Memory {
		if have := mc.State.Memory[addr]; have != want {
			t.Errorf(
				"Memory value mismatch"+
					"\nwant:%#04x (test.Memory[%#02x])\nhave:%#04x",
				want,
				addr,
				have,
			)
		}
	}
}

// Whole programs assembled from source and run to completion
func TestPrograms(t *testing.T) {
	tests := []runCase{
		{
			Name:        "Immediate arithmetic",
			Source:      "addi 5\nsubi 2",
			Accumulator: 0x0003,
			Program:     0x02,
		},
		{
			Name:        "Data variable",
			Source:      "BEGINDATA { x = 7 }\nadd x",
			Accumulator: 0x0007,
			Program:     0x01,
		},
		{
			Name:        "Countdown loop",
			Source:      "addi 3\n.loop:\nsubi 1\nbnz loop",
			Accumulator: 0x0000,
			Program:     0x03,
		},
		{
			Name: "Multiply by repeated addition",
			Source: "BEGINDATA { a = 6 b = 4 product = 0 }\n" +
				".loop:\n" +
				"add a\n" +
				"str product\n" +
				"clac\n" +
				"add counter\n" +
				"subi 1\n" +
				"str counter\n" +
				"bz done\n" +
				"clac\n" +
				"add product\n" +
				"ucb loop\n" +
				".done:\n" +
				"clac\n" +
				"add product\n" +
				"BEGINDATA { counter = 4 }",
			Accumulator: 0x0018,
			Program:     0x0C,
		},
		{
			Name:        "Store result",
			Source:      "BEGINDATA { out = 0 }\naddi 9\nstr out",
			Accumulator: 0x0009,
			Program:     0x02,
			Memory: map[uint8]uint16{
				0x02: 0x0009,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			testProgramRun(t, &test)
		})
	}
}
