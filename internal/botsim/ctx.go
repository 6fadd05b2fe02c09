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

import "github.com/kartoffels-sim/kartoffels/internal/sim"

// botCtx adapts a Bot plus the WorldView handed to it for the current
// tick into the peripherals.WorldCtx interface. It is created fresh each
// tick and installed into the peripherals that need it via SetCtx, then
// discarded once the instruction has retired - nothing holds a reference
// to the world between ticks.
type botCtx struct {
	bot   *Bot
	world WorldView
}

func (c *botCtx) Pos() sim.Pos    { return c.bot.Pos }
func (c *botCtx) Dir() sim.Dir    { return c.bot.Dir }
func (c *botCtx) SetDir(d sim.Dir) { c.bot.Dir = d }

func (c *botCtx) BotAt(pos sim.Pos) (sim.BotId, bool) { return c.world.BotAt(pos) }
func (c *botCtx) DirOf(id sim.BotId) (sim.Dir, bool)  { return c.world.DirOf(id) }

func (c *botCtx) TileWalkable(pos sim.Pos) (bool, bool) { return c.world.TileWalkable(pos) }

func (c *botCtx) MoveTo(pos sim.Pos) {
	c.world.MoveBot(c.bot.Id, pos)
	c.bot.Pos = pos
}

func (c *botCtx) KillBot(target sim.BotId, reason string, killer sim.BotId, hasKiller bool) {
	c.world.KillBot(target, reason, killer, hasKiller)
}

func (c *botCtx) ObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool) { return c.world.ObjectAt(pos) }

func (c *botCtx) TakeObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool) {
	return c.world.TakeObjectAt(pos)
}

func (c *botCtx) PlaceObjectAt(pos sim.Pos, id sim.ObjectId, kind byte) bool {
	return c.world.PlaceObjectAt(pos, id, kind)
}

func (c *botCtx) BotsInSquare(center sim.Pos, face sim.Dir, side int) []sim.BotId {
	return c.world.BotsInSquare(center, face, side)
}

func (c *botCtx) DeliverRadio(to sim.BotId, from sim.BotId, hasFrom bool, payload [128]byte) {
	c.world.DeliverRadio(to, from, hasFrom, payload)
}

func (c *botCtx) Cooldown(base uint32, jitterPercent int) uint32 {
	return c.world.Cooldown(base, jitterPercent)
}

func (c *botCtx) RandU32() uint32 { return c.world.RandU32() }
