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

import "github.com/kartoffels-sim/kartoffels/internal/sim"

// Arm command opcodes.
const (
	ArmStab byte = iota + 1
	ArmPick
	ArmDrop
)

const (
	CooldownStab uint32 = 60_000
	CooldownPick uint32 = 10_000
	CooldownDrop uint32 = 10_000
	armJitter           = 10
)

// Arm implements stab/pick/drop: melee against the tile directly ahead,
// and transferring objects between the floor and the bot's single hand
// slot. Unlike Motor, these act immediately against the world rather than
// being deferred, since they don't race with another bot's concurrent
// movement the way a step does.
type Arm struct {
	irq *Irq
	ctx WorldCtx

	cooldown uint32
	held     sim.ObjectId
	heldKind byte
	hasHeld  bool
}

func NewArm(irq *Irq) *Arm {
	return &Arm{irq: irq}
}

// SetCtx installs the context that Store will act against for the
// duration of the current bot tick. botsim.Bot calls this right before
// stepping the CPU and clears it again right after.
func (a *Arm) SetCtx(ctx WorldCtx) { a.ctx = ctx }

// Held reports the object currently in the bot's hand, if any.
func (a *Arm) Held() (sim.ObjectId, bool) { return a.held, a.hasHeld }

func (a *Arm) Load(addr uint32) (uint32, error) {
	if addr == 0 {
		return b2u32(a.cooldown == 0), nil
	}
	return 0, errFault
}

func (a *Arm) Store(addr uint32, val uint32) error {
	if addr != 0 {
		return errFault
	}

	if a.cooldown > 0 {
		return nil
	}

	op, _, _, _ := unpack(val)

	switch op {
	case ArmStab:
		a.stab()
	case ArmPick:
		a.pick()
	case ArmDrop:
		a.drop()
	default:
		return errFault
	}

	return nil
}

func (a *Arm) stab() {
	a.cooldown = a.ctx.Cooldown(CooldownStab, armJitter)

	front := a.ctx.Pos().Add(a.ctx.Dir())

	victim, ok := a.ctx.BotAt(front)
	if !ok {
		return // empty tile: no-op, still consumes cooldown
	}

	self, _ := a.ctx.BotAt(a.ctx.Pos())
	a.ctx.KillBot(victim, "stabbed by another bot", self, true)
}

func (a *Arm) pick() {
	a.cooldown = a.ctx.Cooldown(CooldownPick, armJitter)

	if a.hasHeld {
		return
	}

	front := a.ctx.Pos().Add(a.ctx.Dir())

	id, kind, ok := a.ctx.TakeObjectAt(front)
	if !ok {
		return
	}

	a.held, a.heldKind, a.hasHeld = id, kind, true
	a.irq.Raise(IrqArmReady, [3]byte{})
}

func (a *Arm) drop() {
	a.cooldown = a.ctx.Cooldown(CooldownDrop, armJitter)

	if !a.hasHeld {
		return
	}

	front := a.ctx.Pos().Add(a.ctx.Dir())

	if a.ctx.PlaceObjectAt(front, a.held, a.heldKind) {
		a.hasHeld = false
		a.held = 0
		a.irq.Raise(IrqArmReady, [3]byte{})
	}
}

func (a *Arm) Tick() {
	if a.cooldown == 0 {
		return
	}

	a.cooldown--

	if a.cooldown == 0 {
		a.irq.Raise(IrqArmBusy, [3]byte{})
	}
}
