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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

// Decodes a hexidecimal string in the formats: 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a signed base-10 string in the formats: 123, -42
func DecodeInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// An instruction word carries the opcode in its high byte and the operand in
// its low byte
func PackInstruction(opcode uint8, operand uint8) uint16 {
	return uint16(opcode)<<8 | uint16(operand)
}

func UnpackInstruction(word uint16) (opcode uint8, operand uint8) {
	return uint8(word >> 8), uint8(word & 0xFF)
}
