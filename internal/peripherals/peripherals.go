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

// Package peripherals implements the nine memory-mapped devices a
// kartoffels bot's CPU sees: motor, arm, radar, compass, clock, radio,
// serial, battery, and the IRQ controller. Each is a small state machine
// with load/store handlers, a tick handler, and its own cooldown counter,
// the same shape as a UART or SD-card model port.
package peripherals

import (
	"errors"

	"github.com/kartoffels-sim/kartoffels/internal/sim"
)

var errFault = errors.New("mmio fault")

// WorldCtx is the narrow view of the world a peripheral needs while
// servicing a store or advancing its tick - positions, the occupant map,
// the object registry, messaging, and the world's jittered-cooldown RNG.
// Bots own no pointer into the world itself; botsim's per-tick context
// implements this interface and botsim.Bot hands a fresh one to whichever
// peripheral needs it,
// mirroring the BotMmioContext design note in SPEC_FULL.md.
type WorldCtx interface {
	Pos() sim.Pos
	Dir() sim.Dir
	SetDir(sim.Dir)

	// BotAt returns the id of the alive bot occupying pos, if any.
	BotAt(pos sim.Pos) (sim.BotId, bool)
	DirOf(id sim.BotId) (sim.Dir, bool)

	// TileWalkable reports whether pos may be stepped onto (floor, door,
	// or water - water is handled as "drowning floor": stepping onto it
	// kills the bot after the move completes).
	TileWalkable(pos sim.Pos) (walkable bool, drowns bool)

	// MoveTo relocates the current bot to pos, updating the tile index.
	// It must only be called after TileWalkable/BotAt confirm the
	// destination is free.
	MoveTo(pos sim.Pos)

	// KillBot marks target for death at the next reap step. hasKiller
	// indicates whether a credited killer exists.
	KillBot(target sim.BotId, reason string, killer sim.BotId, hasKiller bool)

	ObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool)
	TakeObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool)
	PlaceObjectAt(pos sim.Pos, id sim.ObjectId, kind byte) bool

	// BotsInSquare returns the ids of alive bots within a side-R square
	// centred on center, rotated to face.
	BotsInSquare(center sim.Pos, face sim.Dir, side int) []sim.BotId

	// DeliverRadio enqueues payload into to's incoming ring, honouring its
	// read filter if set.
	DeliverRadio(to sim.BotId, from sim.BotId, hasFrom bool, payload [128]byte)

	// Cooldown samples a jittered cooldown: base ± jitterPercent%, zero
	// jitter under a deterministic test RNG.
	Cooldown(base uint32, jitterPercent int) uint32

	RandU32() uint32
}
