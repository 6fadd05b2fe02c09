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

import "github.com/kartoffels-sim/kartoffels/internal/mmio"

// Step fetches, decodes and executes exactly one instruction. allowBreakpoints
// controls what ebreak does: when true it sets Breakpoint and returns nil
// (the world notices Breakpoint, clears it and pauses); when false ebreak
// is bot-fatal.
func (c *Cpu) Step(bus *mmio.Bus, allowBreakpoints bool) error {
	word, err := c.fetch()
	if err != nil {
		return err
	}

	d := decode(word)
	c.PC += 4

	switch d.opcode {
	case 0b0110111: // lui
		c.setReg(d.rd, uint32(d.uImm))
		return nil

	case 0b0010111: // auipc
		c.setReg(d.rd, (c.PC-4)+uint32(d.uImm))
		return nil

	case 0b1101111: // jal
		c.setReg(d.rd, c.PC)
		c.PC = uint32(int32(c.PC-4) + d.jImm)
		return checkAlign(c.PC)

	case 0b1100111: // jalr
		if d.funct3 != 0 {
			return fault("unknown instruction")
		}
		target := (c.reg(d.rs1) + uint32(d.iImm)) &^ 1
		ret := c.PC
		c.PC = target
		c.setReg(d.rd, ret)
		return checkAlign(c.PC)

	case 0b1100011: // branches
		return c.execBranch(d)

	case 0b0000011: // loads
		return c.execLoad(bus, d)

	case 0b0100011: // stores
		return c.execStore(bus, d)

	case 0b0010011: // imm arith
		return c.execOpImm(d)

	case 0b0110011: // reg-reg arith / mul-div
		return c.execOp(d)

	case 0b0001111: // fence / fence.i: no-op
		return nil

	case 0b0101111: // atomics (RV32A)
		return c.execAtomic(bus, d)

	case 0b1110011: // ecall/ebreak
		return c.execSystem(d, allowBreakpoints)

	default:
		return fault("unknown instruction")
	}
}

func checkAlign(pc uint32) error {
	if pc%4 != 0 {
		return fault("misaligned instruction fetch")
	}
	return nil
}

func (c *Cpu) fetch() (uint32, error) {
	if err := checkAlign(c.PC); err != nil {
		return 0, err
	}
	if !c.inRam(c.PC, 4) {
		return 0, fault("instruction fetch out of range")
	}
	return c.loadRam(c.PC, 4), nil
}

func (c *Cpu) execBranch(d decoded) error {
	lhs, rhs := c.reg(d.rs1), c.reg(d.rs2)

	var taken bool
	switch d.funct3 {
	case 0b000: // beq
		taken = lhs == rhs
	case 0b001: // bne
		taken = lhs != rhs
	case 0b100: // blt
		taken = int32(lhs) < int32(rhs)
	case 0b101: // bge
		taken = int32(lhs) >= int32(rhs)
	case 0b110: // bltu
		taken = lhs < rhs
	case 0b111: // bgeu
		taken = lhs >= rhs
	default:
		return fault("unknown instruction")
	}

	if taken {
		c.PC = uint32(int32(c.PC-4) + d.bImm)
		return checkAlign(c.PC)
	}

	return nil
}

func (c *Cpu) execLoad(bus *mmio.Bus, d decoded) error {
	addr := c.reg(d.rs1) + uint32(d.iImm)

	var size uint32
	var signed bool

	switch d.funct3 {
	case 0b000: // lb
		size, signed = 1, true
	case 0b001: // lh
		size, signed = 2, true
	case 0b010: // lw
		size, signed = 4, false
	case 0b100: // lbu
		size, signed = 1, false
	case 0b101: // lhu
		size, signed = 2, false
	default:
		return fault("unknown instruction")
	}

	v, err := c.Load(bus, addr, size, signed)
	if err != nil {
		return err
	}

	c.setReg(d.rd, v)
	return nil
}

func (c *Cpu) execStore(bus *mmio.Bus, d decoded) error {
	addr := c.reg(d.rs1) + uint32(d.sImm)
	val := c.reg(d.rs2)

	var size uint32
	switch d.funct3 {
	case 0b000:
		size = 1
	case 0b001:
		size = 2
	case 0b010:
		size = 4
	default:
		return fault("unknown instruction")
	}

	return c.Store(bus, addr, size, val)
}

func (c *Cpu) execOpImm(d decoded) error {
	lhs := c.reg(d.rs1)
	shamt := uint32(d.iImm) & 0x1f

	switch d.funct3 {
	case 0b000: // addi
		c.setReg(d.rd, lhs+uint32(d.iImm))
	case 0b010: // slti
		c.setReg(d.rd, b2u(int32(lhs) < d.iImm))
	case 0b011: // sltiu
		c.setReg(d.rd, b2u(lhs < uint32(d.iImm)))
	case 0b100: // xori
		c.setReg(d.rd, lhs^uint32(d.iImm))
	case 0b110: // ori
		c.setReg(d.rd, lhs|uint32(d.iImm))
	case 0b111: // andi
		c.setReg(d.rd, lhs&uint32(d.iImm))
	case 0b001: // slli
		if d.funct7 != 0 {
			return fault("unknown instruction")
		}
		c.setReg(d.rd, lhs<<shamt)
	case 0b101: // srli / srai
		switch d.funct7 {
		case 0b0000000:
			c.setReg(d.rd, lhs>>shamt)
		case 0b0100000:
			c.setReg(d.rd, uint32(int32(lhs)>>shamt))
		default:
			return fault("unknown instruction")
		}
	default:
		return fault("unknown instruction")
	}

	return nil
}

func (c *Cpu) execOp(d decoded) error {
	lhs, rhs := c.reg(d.rs1), c.reg(d.rs2)

	switch {
	case d.funct7 == 0b0000001: // RV32M
		return c.execMulDiv(d, lhs, rhs)

	case d.funct7 == 0b0000000 || d.funct7 == 0b0100000:
		switch d.funct3 {
		case 0b000:
			if d.funct7 == 0b0100000 {
				c.setReg(d.rd, lhs-rhs)
			} else {
				c.setReg(d.rd, lhs+rhs)
			}
		case 0b001:
			c.setReg(d.rd, lhs<<(rhs&0x1f))
		case 0b010:
			c.setReg(d.rd, b2u(int32(lhs) < int32(rhs)))
		case 0b011:
			c.setReg(d.rd, b2u(lhs < rhs))
		case 0b100:
			c.setReg(d.rd, lhs^rhs)
		case 0b101:
			if d.funct7 == 0b0100000 {
				c.setReg(d.rd, uint32(int32(lhs)>>(rhs&0x1f)))
			} else {
				c.setReg(d.rd, lhs>>(rhs&0x1f))
			}
		case 0b110:
			c.setReg(d.rd, lhs|rhs)
		case 0b111:
			c.setReg(d.rd, lhs&rhs)
		default:
			return fault("unknown instruction")
		}

	default:
		return fault("unknown instruction")
	}

	return nil
}

// execMulDiv implements RV32M. Division and remainder by zero never trap -
// they return the RISC-V ISA's defined sentinel values instead.
func (c *Cpu) execMulDiv(d decoded, lhs, rhs uint32) error {
	switch d.funct3 {
	case 0b000: // mul
		c.setReg(d.rd, lhs*rhs)

	case 0b001: // mulh (signed x signed)
		p := int64(int32(lhs)) * int64(int32(rhs))
		c.setReg(d.rd, uint32(p>>32))

	case 0b010: // mulhsu (signed x unsigned)
		p := int64(int32(lhs)) * int64(uint64(rhs))
		c.setReg(d.rd, uint32(p>>32))

	case 0b011: // mulhu (unsigned x unsigned)
		p := uint64(lhs) * uint64(rhs)
		c.setReg(d.rd, uint32(p>>32))

	case 0b100: // div
		if rhs == 0 {
			c.setReg(d.rd, 0xffff_ffff)
		} else if int32(lhs) == -0x8000_0000 && int32(rhs) == -1 {
			c.setReg(d.rd, lhs)
		} else {
			c.setReg(d.rd, uint32(int32(lhs)/int32(rhs)))
		}

	case 0b101: // divu
		if rhs == 0 {
			c.setReg(d.rd, 0xffff_ffff)
		} else {
			c.setReg(d.rd, lhs/rhs)
		}

	case 0b110: // rem
		if rhs == 0 {
			c.setReg(d.rd, lhs)
		} else if int32(lhs) == -0x8000_0000 && int32(rhs) == -1 {
			c.setReg(d.rd, 0)
		} else {
			c.setReg(d.rd, uint32(int32(lhs)%int32(rhs)))
		}

	case 0b111: // remu
		if rhs == 0 {
			c.setReg(d.rd, lhs)
		} else {
			c.setReg(d.rd, lhs%rhs)
		}

	default:
		return fault("unknown instruction")
	}

	return nil
}

// execAtomic implements the degenerate single-hart RV32A subset: sc.w
// always succeeds (there's only one hart, so the reservation can never be
// stolen), and every amo*.w does its read-modify-write atomically from the
// bot's point of view since nothing else can run concurrently mid-step.
func (c *Cpu) execAtomic(bus *mmio.Bus, d decoded) error {
	if d.funct3 != 0b010 {
		return fault("unknown instruction")
	}

	addr := c.reg(d.rs1)
	funct5 := d.funct7 >> 2

	switch funct5 {
	case 0b00010: // lr.w
		v, err := c.Load(bus, addr, 4, false)
		if err != nil {
			return err
		}
		c.ReservationValid = true
		c.ReservationAddr = addr
		c.setReg(d.rd, v)
		return nil

	case 0b00011: // sc.w
		val := c.reg(d.rs2)
		if err := c.Store(bus, addr, 4, val); err != nil {
			return err
		}
		c.ReservationValid = false
		c.setReg(d.rd, 0) // always succeeds
		return nil
	}

	old, err := c.Load(bus, addr, 4, false)
	if err != nil {
		return err
	}

	rhs := c.reg(d.rs2)
	var next uint32

	switch funct5 {
	case 0b00001: // amoswap.w
		next = rhs
	case 0b00000: // amoadd.w
		next = old + rhs
	case 0b00100: // amoxor.w
		next = old ^ rhs
	case 0b01100: // amoand.w
		next = old & rhs
	case 0b01000: // amoor.w
		next = old | rhs
	case 0b10000: // amomin.w
		if int32(old) < int32(rhs) {
			next = old
		} else {
			next = rhs
		}
	case 0b10100: // amomax.w
		if int32(old) > int32(rhs) {
			next = old
		} else {
			next = rhs
		}
	case 0b11000: // amominu.w
		if old < rhs {
			next = old
		} else {
			next = rhs
		}
	case 0b11100: // amomaxu.w
		if old > rhs {
			next = old
		} else {
			next = rhs
		}
	default:
		return fault("unknown instruction")
	}

	if err := c.Store(bus, addr, 4, next); err != nil {
		return err
	}

	c.setReg(d.rd, old)
	return nil
}

func (c *Cpu) execSystem(d decoded, allowBreakpoints bool) error {
	switch d.word {
	case 0x0000_0073: // ecall - unused by firmware, treated as unknown
		return fault("unknown instruction")

	case 0x0010_0073: // ebreak
		if allowBreakpoints {
			c.Breakpoint = true
			return nil
		}
		return fault("got ebreak")

	default:
		return fault("unknown instruction")
	}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
