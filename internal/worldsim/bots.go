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

package worldsim

import (
	"github.com/kartoffels-sim/kartoffels/internal/botsim"
	"github.com/kartoffels-sim/kartoffels/internal/riscv"
	"github.com/kartoffels-sim/kartoffels/internal/sim"
)

// QueuedBot waits for a free spawn slot: its firmware is already loaded,
// but it owns no CPU time and occupies no tile until AliveBots.Spawn
// admits it.
type QueuedBot struct {
	ID       sim.BotId
	Name     string
	Firmware *riscv.Firmware
}

// DeadRecord is what survives a bot past its death: enough to answer
// "why did N die" without keeping its CPU/RAM around.
type DeadRecord struct {
	ID       sim.BotId
	Name     string
	Reason   string
	Killer   sim.BotId
	HasKiller bool
	AgeTicks uint64
	Score    uint32
}

const deadBotsCap = 64

// AliveBots is the map-plus-index collection alive bots live in:
// an id -> *Bot map for the canonical store, and a pos -> id map so
// peripherals can answer "who (if anyone) occupies this tile" in O(1),
// ported from the original's `bots/alive.rs` id/pos dual-indexing.
type AliveBots struct {
	byID   map[sim.BotId]*botsim.Bot
	byPos  map[sim.Pos]sim.BotId
	order  []sim.BotId // stable insertion order, reshuffled per tick by World
	Names  map[sim.BotId]string
}

func NewAliveBots() *AliveBots {
	return &AliveBots{
		byID:  map[sim.BotId]*botsim.Bot{},
		byPos: map[sim.Pos]sim.BotId{},
		Names: map[sim.BotId]string{},
	}
}

func (a *AliveBots) Len() int { return len(a.byID) }

func (a *AliveBots) Get(id sim.BotId) (*botsim.Bot, bool) {
	b, ok := a.byID[id]
	return b, ok
}

func (a *AliveBots) BotAt(pos sim.Pos) (sim.BotId, bool) {
	id, ok := a.byPos[pos]
	return id, ok
}

// Spawn admits bot into the alive collection at pos, failing if pos is
// already occupied.
func (a *AliveBots) Spawn(bot *botsim.Bot, name string) bool {
	if _, occupied := a.byPos[bot.Pos]; occupied {
		return false
	}

	a.byID[bot.Id] = bot
	a.byPos[bot.Pos] = bot.Id
	a.Names[bot.Id] = name
	a.order = append(a.order, bot.Id)

	return true
}

// Move relocates id's occupancy entry, called by botsim via WorldView
// once a step has been validated.
func (a *AliveBots) Move(id sim.BotId, from, to sim.Pos) {
	if a.byPos[from] == id {
		delete(a.byPos, from)
	}
	a.byPos[to] = id
}

// Remove takes bot out of the alive collection entirely (death or
// deletion), returning it for the caller to fold into DeadBots or drop.
func (a *AliveBots) Remove(id sim.BotId) (*botsim.Bot, bool) {
	b, ok := a.byID[id]
	if !ok {
		return nil, false
	}

	delete(a.byID, id)
	delete(a.Names, id)
	if a.byPos[b.Pos] == id {
		delete(a.byPos, b.Pos)
	}

	for i, oid := range a.order {
		if oid == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}

	return b, true
}

// Order returns the current tick-iteration order. World.stepOneTick
// permutes it once per tick to give every bot a fair, deterministic-seed
// chance at going first.
func (a *AliveBots) Order() []sim.BotId {
	out := make([]sim.BotId, len(a.order))
	copy(out, a.order)
	return out
}

func (a *AliveBots) SetOrder(order []sim.BotId) { a.order = order }

// BotsInSquare returns the ids of alive bots within a side-`side` square
// centred on center and rotated to face, the geometry a radio send uses.
func (a *AliveBots) BotsInSquare(center sim.Pos, face sim.Dir, side int) []sim.BotId {
	half := int32(side / 2)
	fx, fy := face.Vec()
	rx, ry := face.TurnRight().Vec()

	var out []sim.BotId

	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			pos := sim.Pos{
				X: center.X + dx*rx - dy*fx,
				Y: center.Y + dx*ry - dy*fy,
			}
			if id, ok := a.byPos[pos]; ok {
				out = append(out, id)
			}
		}
	}

	return out
}

// QueuedBots holds bots waiting for a free alive slot, FIFO, capped at
// Policy.MaxQueuedBots.
type QueuedBots struct {
	items []QueuedBot
}

func NewQueuedBots() *QueuedBots { return &QueuedBots{} }

func (q *QueuedBots) Len() int { return len(q.items) }

func (q *QueuedBots) Push(b QueuedBot) { q.items = append(q.items, b) }

func (q *QueuedBots) Pop() (QueuedBot, bool) {
	if len(q.items) == 0 {
		return QueuedBot{}, false
	}
	b := q.items[0]
	q.items = q.items[1:]
	return b, true
}

func (q *QueuedBots) All() []QueuedBot { return q.items }

// DeadBots is a bounded ring of the most recent DeadRecords, enough for
// a snapshot's "recently died" table without growing unbounded.
type DeadBots struct {
	items []DeadRecord
}

func NewDeadBots() *DeadBots { return &DeadBots{} }

func (d *DeadBots) Push(r DeadRecord) {
	d.items = append(d.items, r)
	if len(d.items) > deadBotsCap {
		d.items = d.items[len(d.items)-deadBotsCap:]
	}
}

func (d *DeadBots) All() []DeadRecord { return d.items }
