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

// Package botsim ties a CPU, its RAM, and all nine peripherals together
// into a single bot, and drives its per-tick lifecycle. A Bot never holds
// a pointer into the world it lives in; worldsim hands it a short-lived
// WorldView for the duration of one Tick call, mirroring how gmofishsauce-wut4's
// CPU borrows its UART and SD card only for the instruction that touches them.
package botsim

import "github.com/kartoffels-sim/kartoffels/internal/sim"

// WorldView is everything a bot's peripherals need from the world for one
// tick: occupant lookups, the object registry, bot-to-bot messaging, and
// the world's jittered-cooldown RNG. worldsim.World (or a test double)
// implements this.
type WorldView interface {
	BotAt(pos sim.Pos) (sim.BotId, bool)
	DirOf(id sim.BotId) (sim.Dir, bool)

	TileWalkable(pos sim.Pos) (walkable bool, drowns bool)

	// MoveBot relocates id to pos in the world's occupant index. The
	// caller must already have confirmed pos is free and walkable.
	MoveBot(id sim.BotId, pos sim.Pos)

	// KillBot marks target for death; the world reaps it once the whole
	// tick's bot iteration finishes.
	KillBot(target sim.BotId, reason string, killer sim.BotId, hasKiller bool)

	ObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool)
	TakeObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool)
	PlaceObjectAt(pos sim.Pos, id sim.ObjectId, kind byte) bool

	BotsInSquare(center sim.Pos, face sim.Dir, side int) []sim.BotId

	// DeliverRadio looks up to's Bot (if alive) and pushes payload into
	// its radio's incoming queue.
	DeliverRadio(to sim.BotId, from sim.BotId, hasFrom bool, payload [128]byte)

	Cooldown(base uint32, jitterPercent int) uint32
	RandU32() uint32
}
