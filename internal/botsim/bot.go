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

package botsim

import (
	"github.com/kartoffels-sim/kartoffels/internal/mmio"
	"github.com/kartoffels-sim/kartoffels/internal/peripherals"
	"github.com/kartoffels-sim/kartoffels/internal/riscv"
	"github.com/kartoffels-sim/kartoffels/internal/sim"
)

const eventsRingSize = 32

// BotEvent is a short, human-readable record of something notable that
// happened to a bot - born, moved, died - kept around for the snapshot's
// events ring the way AliveBot.events is described.
type BotEvent struct {
	Tick    uint64
	Message string
}

// BatteryCapacity is the default fuel a bot is given for one life: total
// ticks it can run before dying of "ran out of power".
const BatteryCapacity uint32 = 1_000_000

// Bot is one alive bot: a CPU, its RAM-backed MMIO bus, all nine
// peripherals, and the bookkeeping the world needs to render and reap it.
// A Bot is never shared between goroutines concurrently with itself.
type Bot struct {
	Id  sim.BotId
	Pos sim.Pos
	Dir sim.Dir

	AgeTicks uint64
	Score    uint32

	// Firmware is the pristine image this bot was born from, kept around
	// (untouched by execution - the CPU runs its own copy of the RAM) so a
	// reincarnation can be respawned from the same binary.
	Firmware *riscv.Firmware

	Cpu *riscv.Cpu
	Bus *mmio.Bus

	Irq      *peripherals.Irq
	Motor    *peripherals.Motor
	Arm      *peripherals.Arm
	Radar    *peripherals.Radar
	Compass  *peripherals.Compass
	Clock    *peripherals.Clock
	Radio    *peripherals.Radio
	Serial   *peripherals.Serial
	Battery  *peripherals.Battery

	Events [eventsRingSize]BotEvent
	eventsLen, eventsHead int

	// AllowBreakpoints is copied from the world's Policy.AllowBreakpoints
	// when the bot is spawned; it decides whether ebreak pauses or kills.
	AllowBreakpoints bool

	irqActive    bool
	irqReturnPC  uint32
	pendingKill  string
	pendingKillHasKiller bool
	pendingKiller sim.BotId
	dead bool
}

// NewBot wires a freshly loaded firmware image into a complete bot: CPU,
// MMIO bus, and all nine peripherals mounted at their canonical windows.
// seed is the bot's birth seed, drawn once by the caller from the world's
// RNG and exposed read-only through the clock peripheral.
func NewBot(id sim.BotId, pos sim.Pos, dir sim.Dir, fw *riscv.Firmware, seed uint32) *Bot {
	ram := make([]byte, len(fw.Ram))
	copy(ram, fw.Ram)
	cpu := &riscv.Cpu{Ram: ram, PC: fw.Entry}

	irq := peripherals.NewIrq()
	bot := &Bot{
		Id:       id,
		Pos:      pos,
		Dir:      dir,
		Firmware: fw,
		Cpu:      cpu,
		Bus:      mmio.NewBus(),
		Irq:      irq,
		Motor:    peripherals.NewMotor(irq),
		Arm:      peripherals.NewArm(irq),
		Radar:    peripherals.NewRadar(irq),
		Compass:  peripherals.NewCompass(irq),
		Clock:    peripherals.NewClock(irq, seed),
		Radio:    peripherals.NewRadio(irq),
		Serial:   peripherals.NewSerial(irq),
		Battery:  peripherals.NewBattery(BatteryCapacity),
	}

	bot.Bus.Mount(mmio.MotorOffset, bot.Motor)
	bot.Bus.Mount(mmio.ArmOffset, bot.Arm)
	bot.Bus.Mount(mmio.RadarOffset, bot.Radar)
	bot.Bus.Mount(mmio.CompassOffset, bot.Compass)
	bot.Bus.Mount(mmio.ClockOffset, bot.Clock)
	bot.Bus.Mount(mmio.RadioOffset, bot.Radio)
	bot.Bus.Mount(mmio.SerialOffset, bot.Serial)
	bot.Bus.Mount(mmio.BatteryOffset, bot.Battery)
	bot.Bus.Mount(mmio.IrqOffset, bot.Irq)

	return bot
}

func (b *Bot) recordEvent(tick uint64, message string) {
	idx := (b.eventsHead + b.eventsLen) % eventsRingSize
	b.Events[idx] = BotEvent{Tick: tick, Message: message}

	if b.eventsLen < eventsRingSize {
		b.eventsLen++
	} else {
		b.eventsHead = (b.eventsHead + 1) % eventsRingSize
	}
}

// Dead reports whether this bot's tick surfaced a kill request; the world
// reaps it (removing it from the alive collection) once bot iteration for
// the tick completes.
func (b *Bot) Dead() (reason string, killer sim.BotId, hasKiller bool, dead bool) {
	return b.pendingKill, b.pendingKiller, b.pendingKillHasKiller, b.dead
}

// Kill marks the bot dead from outside its own Tick, used when another
// bot's arm (or a KillBot request) ends it mid-tick.
func (b *Bot) Kill(tick uint64, reason string, killer sim.BotId, hasKiller bool) {
	b.kill(tick, reason, killer, hasKiller)
}

func (b *Bot) kill(tick uint64, reason string, killer sim.BotId, hasKiller bool) {
	if b.dead {
		return
	}
	b.dead = true
	b.pendingKill = reason
	b.pendingKiller = killer
	b.pendingKillHasKiller = hasKiller
	b.recordEvent(tick, "died: "+reason)
}

// Tick advances the bot by exactly one of the world's ticks, performing
// the five-step sequence: peripheral tick and IRQ dispatch, one CPU
// instruction, deferred request materialisation, age/battery accounting,
// and kill surfacing.
func (b *Bot) Tick(tick uint64, world WorldView) {
	if b.dead {
		return
	}

	ctx := &botCtx{bot: b, world: world}

	b.Bus.Tick()
	b.dispatchIrq()

	b.Arm.SetCtx(ctx)
	b.Radar.SetCtx(ctx)
	b.Compass.SetCtx(ctx)
	b.Radio.SetCtx(ctx)

	err := b.Cpu.Step(b.Bus, b.AllowBreakpoints)

	b.Arm.SetCtx(nil)
	b.Radar.SetCtx(nil)
	b.Compass.SetCtx(nil)
	b.Radio.SetCtx(nil)

	if err != nil {
		b.kill(tick, err.Error(), sim.BotId(0), false)
		return
	}

	b.resolveMotor(tick, ctx)

	b.AgeTicks++
	b.Battery.Drain(1)

	if b.Battery.Empty() {
		b.kill(tick, "ran out of power", sim.BotId(0), false)
	}
}

func (b *Bot) resolveMotor(tick uint64, ctx *botCtx) {
	op, ok := b.Motor.TakePending()
	if !ok {
		return
	}

	switch op {
	case peripherals.MotorStepForward, peripherals.MotorStepBackward:
		dir := b.Dir
		if op == peripherals.MotorStepBackward {
			dir = dir.TurnLeft().TurnLeft()
		}

		dest := b.Pos.Add(dir)

		walkable, drowns := ctx.world.TileWalkable(dest)
		_, occupied := ctx.world.BotAt(dest)

		moved := walkable && !occupied
		if moved {
			ctx.MoveTo(dest)
			if drowns {
				b.kill(tick, "drowned", sim.BotId(0), false)
			}
		}

		b.Motor.Resolve(op, ctx, moved)

	case peripherals.MotorTurnLeft:
		b.Dir = b.Dir.TurnLeft()
		b.Motor.Resolve(op, ctx, true)

	case peripherals.MotorTurnRight:
		b.Dir = b.Dir.TurnRight()
		b.Motor.Resolve(op, ctx, true)
	}
}

// dispatchIrq runs the bot's "mini interrupt": if interrupts are enabled,
// nothing is already being handled, and a source is pending, it saves ra
// and jumps to the installed handler with the packed (source, payload) in
// a0, the way a real trap would push the return address and switch PC -
// except no host code ever executes; the firmware's own handler body is
// what runs, and returning via `jalr x0, x1, 0` is what clears it.
func (b *Bot) dispatchIrq() {
	if b.irqActive {
		if b.Cpu.PC == b.irqReturnPC {
			b.irqActive = false
			b.Irq.Active = false
		}
		return
	}

	if !b.Irq.Enabled {
		return
	}

	source, ok := b.Irq.NextPending()
	if !ok {
		return
	}

	handler, arg, ok := b.Irq.Dispatch(source)
	if !ok {
		return
	}

	b.irqReturnPC = b.Cpu.PC
	b.irqActive = true
	b.Irq.Active = true

	b.Cpu.Regs[1] = b.irqReturnPC // ra
	b.Cpu.Regs[10] = arg          // a0
	b.Cpu.PC = handler
}
