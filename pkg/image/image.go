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

// Package image owns the binary image format: a fixed ASCII preamble
// followed by the full address space as little-endian 16-bit words.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Preamble     = "metasm v_1_0"
	PreambleSize = 12

	// Words in one serialized address space
	WordCount = 256
)

type BadPreambleError struct {
	Have []byte
}

func (err *BadPreambleError) Error() string {
	return fmt.Sprintf(
		"Malformed preamble: want %q, have %q",
		Preamble,
		err.Have,
	)
}

type TruncatedImageError struct {
	Size int
}

func (err *TruncatedImageError) Error() string {
	return fmt.Sprintf(
		"Truncated image: want %d bytes, have %d",
		PreambleSize+WordCount*2,
		err.Size,
	)
}

// Write serializes a complete address space. Callers are expected to buffer
// the writer so that nothing reaches disk on failure.
func Write(w io.Writer, words []uint16) error {
	if len(words) != WordCount {
		return errors.New("Image must contain the full address space")
	}

	if _, err := io.WriteString(w, Preamble); err != nil {
		return err
	}

	return binary.Write(w, binary.LittleEndian, words)
}

// Read validates the preamble and returns the deserialized address space.
// Short preambles, mismatched preambles and short bodies all reject the
// image; no partially-loaded result is returned.
func Read(r io.Reader) ([]uint16, error) {
	preamble := make([]byte, PreambleSize)

	if n, err := io.ReadFull(r, preamble); err != nil {
		return nil, &TruncatedImageError{n}
	}

	if string(preamble) != Preamble {
		return nil, &BadPreambleError{preamble}
	}

	words := make([]uint16, WordCount)

	if err := binary.Read(r, binary.LittleEndian, words); err != nil {
		return nil, &TruncatedImageError{PreambleSize}
	}

	return words, nil
}
