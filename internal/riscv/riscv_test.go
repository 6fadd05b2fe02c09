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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kartoffels-sim/kartoffels/internal/mmio"
)

// rType/iType/sType build a handful of RV32I/M/A encodings by hand,
// feeding raw words to the CPU rather than invoking an external
// assembler.
func rType(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func iType(imm uint32, rs1, funct3, rd, opcode uint32) uint32 {
	return imm<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func sType(imm uint32, rs2, rs1, funct3, opcode uint32) uint32 {
	hi := (imm >> 5) & 0x7f
	lo := imm & 0x1f
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
}

func newTestCpu(program ...uint32) *Cpu {
	c := NewCpu(4096, 0)
	for i, w := range program {
		c.storeRam(uint32(i*4), 4, w)
	}
	return c
}

func TestStepAddi(t *testing.T) {
	c := newTestCpu(iType(5, 0, 0b000, 1, 0b0010011)) // addi x1, x0, 5
	require.NoError(t, c.Step(nil, false))
	require.Equal(t, uint32(5), c.Regs[1])
	require.Equal(t, uint32(4), c.PC)
}

func TestStepLui(t *testing.T) {
	c := newTestCpu(uint32(0x12345000) | 1<<7 | 0b0110111) // lui x1, 0x12345
	require.NoError(t, c.Step(nil, false))
	require.Equal(t, uint32(0x12345000), c.Regs[1])
}

func TestStepJalStoresReturnAddress(t *testing.T) {
	c := newTestCpu(1<<7 | 0b1101111) // jal x1, +0
	require.NoError(t, c.Step(nil, false))
	require.Equal(t, uint32(4), c.Regs[1])
	require.Equal(t, uint32(0), c.PC) // jImm encodes 0, so jal jumps back to the instruction itself
}

func TestStepBranchTaken(t *testing.T) {
	c := newTestCpu(rType(0, 0, 0, 0b000, 0, 0b1100011)) // beq x0, x0, +0
	require.NoError(t, c.Step(nil, false))
	require.Equal(t, uint32(0), c.PC)
}

func TestStepOpAddSub(t *testing.T) {
	c := newTestCpu(rType(0b0100000, 2, 1, 0b000, 3, 0b0110011)) // sub x3, x1, x2
	c.Regs[1] = 10
	c.Regs[2] = 3
	require.NoError(t, c.Step(nil, false))
	require.Equal(t, uint32(7), c.Regs[3])
}

func TestStepMulDiv(t *testing.T) {
	c := newTestCpu(rType(0b0000001, 2, 1, 0b100, 3, 0b0110011)) // div x3, x1, x2
	c.Regs[1] = 20
	c.Regs[2] = 3
	require.NoError(t, c.Step(nil, false))
	require.Equal(t, uint32(6), c.Regs[3])
}

func TestDivByZeroDoesNotFault(t *testing.T) {
	c := newTestCpu(rType(0b0000001, 2, 1, 0b100, 3, 0b0110011)) // div x3, x1, x2
	c.Regs[1] = 1
	c.Regs[2] = 0
	require.NoError(t, c.Step(nil, false))
	require.Equal(t, uint32(0xffff_ffff), c.Regs[3])
}

func TestStepLoadStoreRoundTrip(t *testing.T) {
	c := newTestCpu(
		iType(100, 0, 0b000, 1, 0b0010011),      // addi x1, x0, 100
		sType(0, 1, 0, 0b010, 0b0100011),        // sw x1, 0(x0)
		iType(0, 0, 0b010, 2, 0b0000011),        // lw x2, 0(x0)
	)
	require.NoError(t, c.Step(nil, false)) // addi
	require.NoError(t, c.Step(nil, false)) // sw
	require.NoError(t, c.Step(nil, false)) // lw
	require.Equal(t, uint32(100), c.Regs[2])
}

func TestStepUnalignedLoadFaults(t *testing.T) {
	c := newTestCpu(
		iType(1, 0, 0b000, 1, 0b0010011),  // addi x1, x0, 1
		iType(0, 1, 0b010, 2, 0b0000011),  // lw x2, 0(x1)
	)
	require.NoError(t, c.Step(nil, false))
	err := c.Step(nil, false)
	require.Error(t, err)
	var f *Fault
	require.ErrorAs(t, err, &f)
}

func TestStepUnknownOpcodeFaults(t *testing.T) {
	c := newTestCpu(0b1111111) // not a defined opcode
	err := c.Step(nil, false)
	require.Error(t, err)
}

func TestStepEbreakFaultsWhenNotAllowed(t *testing.T) {
	c := newTestCpu(0x0010_0073) // ebreak
	err := c.Step(nil, false)
	require.Error(t, err)
}

func TestStepEbreakSetsBreakpointWhenAllowed(t *testing.T) {
	c := newTestCpu(0x0010_0073) // ebreak
	require.NoError(t, c.Step(nil, true))
	require.True(t, c.Breakpoint)
}

func TestStepAtomicLrScSucceeds(t *testing.T) {
	bus := mmio.NewBus()
	c := newTestCpu(
		rType(0b0001000, 0, 1, 0b010, 2, 0b0101111), // lr.w x2, (x1)
		rType(0b0001100, 3, 1, 0b010, 4, 0b0101111), // sc.w x4, x3, (x1)
	)
	c.Regs[1] = 0 // address 0, inside RAM
	c.Regs[3] = 42
	require.NoError(t, c.Step(bus, false))
	require.NoError(t, c.Step(bus, false))
	require.Equal(t, uint32(0), c.Regs[4]) // sc.w always succeeds
	require.Equal(t, uint32(42), c.loadRam(0, 4))
}

func TestLoadStoreOutOfRangeFaults(t *testing.T) {
	c := NewCpu(16, 0)
	_, err := c.Load(nil, 0x1000_0000, 4, false)
	require.Error(t, err)

	err = c.Store(nil, 0x1000_0000, 4, 1)
	require.Error(t, err)
}

func TestLoadSignExtension(t *testing.T) {
	c := NewCpu(16, 0)
	c.storeRam(0, 1, 0xff)
	v, err := c.Load(nil, 0, 1, true)
	require.NoError(t, err)
	require.Equal(t, uint32(0xffff_ffff), v)

	v, err = c.Load(nil, 0, 1, false)
	require.NoError(t, err)
	require.Equal(t, uint32(0xff), v)
}
