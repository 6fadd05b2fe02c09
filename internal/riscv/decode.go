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

// decoded holds every field a RV32IMA instruction might need; unused
// fields for a given opcode are simply ignored. This mirrors the
// teacher's single fetch-then-switch decode style (emul/decode.go),
// generalized from WUT-4's 16-bit word to RV32's 32-bit word.
type decoded struct {
	word   uint32
	opcode uint32
	funct3 uint32
	funct7 uint32
	rd     uint32
	rs1    uint32
	rs2    uint32

	iImm int32
	sImm int32
	bImm int32
	uImm int32
	jImm int32
}

func decode(word uint32) decoded {
	d := decoded{
		word:   word,
		opcode: word & 0x7f,
		funct3: (word >> 12) & 0x7,
		funct7: (word >> 25) & 0x7f,
		rd:     (word >> 7) & 0x1f,
		rs1:    (word >> 15) & 0x1f,
		rs2:    (word >> 20) & 0x1f,
	}

	d.iImm = int32(word) >> 20
	d.uImm = int32(word & 0xffff_f000)

	d.sImm = (int32(word&0xfe00_0000) >> 20) | int32((word>>7)&0x1f)

	d.bImm = (int32(word&0x8000_0000) >> 19) |
		int32((word&0x80)<<4) |
		int32((word>>20)&0x7e0) |
		int32((word>>7)&0x1e)

	d.jImm = (int32(word&0x8000_0000) >> 11) |
		int32(word&0xff000) |
		int32((word>>9)&0x800) |
		int32((word>>20)&0x7fe)

	return d
}
