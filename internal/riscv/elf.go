// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package riscv

import (
	"debug/elf"
	"fmt"
)

// LoadError is a firmware-rejection error: malformed ELF, wrong class, or a
// PT_LOAD segment that doesn't fit in RAM. These are surfaced to the
// uploader and never reach the simulation - the world is unaffected.
type LoadError struct {
	msg string
}

func (e *LoadError) Error() string { return e.msg }

// Firmware is the result of parsing an ELF32-LSB-RISCV binary: a RAM image
// with PT_LOAD segments already placed, and the entry PC.
type Firmware struct {
	Ram   []byte
	Entry uint32
}

// LoadFirmware parses src as an ELF32-LSB-RISCV binary and copies its
// PT_LOAD segments into a fresh, zero-initialised RAM image of ramSize
// bytes. Constructing it is O(len(src)).
func LoadFirmware(src []byte, ramSize uint32) (*Firmware, error) {
	if len(src) >= 20 && src[4] == 2 { // EI_CLASS == ELFCLASS64
		return nil, &LoadError{msg: "expected a 32-bit binary, but got a 64-bit one"}
	}

	f, err := elf.NewFile(byteReaderAt(src))
	if err != nil {
		return nil, &LoadError{msg: fmt.Sprintf("couldn't parse firmware: %s", err)}
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, &LoadError{msg: "expected a 32-bit binary, but got a 64-bit one"}
	}

	if f.Machine != elf.EM_RISCV {
		return nil, &LoadError{msg: "couldn't parse firmware: not a RISC-V binary"}
	}

	ram := make([]byte, ramSize)

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		vaddr := uint32(prog.Vaddr)
		size := uint32(prog.Filesz)

		if vaddr < RamBase || uint64(vaddr-RamBase)+uint64(size) > uint64(ramSize) {
			return nil, &LoadError{
				msg: fmt.Sprintf("couldn't parse firmware: segment at 0x%08x (size %d) doesn't fit in RAM", vaddr, size),
			}
		}

		data := make([]byte, size)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, &LoadError{msg: fmt.Sprintf("couldn't parse firmware: %s", err)}
		}

		copy(ram[vaddr-RamBase:], data)
	}

	return &Firmware{Ram: ram, Entry: uint32(f.Entry)}, nil
}

type byteReaderAtImpl struct {
	b []byte
}

func (r byteReaderAtImpl) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(r.b)) {
		return 0, fmt.Errorf("offset out of range")
	}

	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, fmt.Errorf("short read")
	}

	return n, nil
}

func byteReaderAt(b []byte) byteReaderAtImpl {
	return byteReaderAtImpl{b: b}
}
