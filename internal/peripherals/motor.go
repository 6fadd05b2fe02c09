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

package peripherals

// Motor command opcodes, packed into the low byte of the store word.
const (
	MotorStepForward byte = iota + 1
	MotorStepBackward
	MotorTurnLeft
	MotorTurnRight
)

// Base cooldowns, in ticks, before ±10% jitter is applied by the world.
const (
	CooldownStepForward  uint32 = 20_000
	CooldownStepBackward uint32 = 25_000
	CooldownTurn         uint32 = 10_000
	motorJitterPercent          = 10
)

// Motor is the movement peripheral. Store requests are latched and
// actually carried out by botsim.Bot after the instruction that issued
// them has retired, so that movement is validated against the world's
// state at the moment of application rather than at issue time.
type Motor struct {
	irq *Irq

	cooldown uint32
	pending  byte // 0 = none
}

func NewMotor(irq *Irq) *Motor {
	return &Motor{irq: irq}
}

// TakePending returns and clears the latched command, if any.
func (m *Motor) TakePending() (byte, bool) {
	if m.pending == 0 {
		return 0, false
	}
	op := m.pending
	m.pending = 0
	return op, true
}

// Resolve is called by botsim.Bot once it knows whether the requested move
// succeeded, so the motor can pick the right cooldown and IRQ.
func (m *Motor) Resolve(op byte, ctx WorldCtx, ok bool) {
	switch op {
	case MotorStepForward:
		m.cooldown = ctx.Cooldown(CooldownStepForward, motorJitterPercent)
	case MotorStepBackward:
		m.cooldown = ctx.Cooldown(CooldownStepBackward, motorJitterPercent)
	case MotorTurnLeft, MotorTurnRight:
		m.cooldown = ctx.Cooldown(CooldownTurn, motorJitterPercent)
	}

	if !ok {
		m.irq.Raise(IrqMotorBusy, [3]byte{})
	}
}

func (m *Motor) Load(addr uint32) (uint32, error) {
	if addr == 0 {
		return b2u32(m.cooldown == 0), nil
	}
	return 0, errFault
}

func (m *Motor) Store(addr uint32, val uint32) error {
	if addr != 0 {
		return errFault
	}

	if m.cooldown > 0 {
		return nil // busy: silently dropped
	}

	op, _, _, _ := unpack(val)

	switch op {
	case MotorStepForward, MotorStepBackward, MotorTurnLeft, MotorTurnRight:
		m.pending = op
		return nil
	default:
		return errFault
	}
}

func (m *Motor) Tick() {
	if m.cooldown == 0 {
		return
	}

	m.cooldown--

	if m.cooldown == 0 {
		m.irq.Raise(IrqMotorIdle, [3]byte{})
	}
}
