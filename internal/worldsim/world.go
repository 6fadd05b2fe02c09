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
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/kartoffels-sim/kartoffels/internal/botsim"
	"github.com/kartoffels-sim/kartoffels/internal/riscv"
	"github.com/kartoffels-sim/kartoffels/internal/sim"
)

var errWorldShutdown = fmt.Errorf("world: request loop has shut down")

// Config is everything NewWorld needs to build a fresh world.
type Config struct {
	Name   string
	Policy Policy
	Clock  Clock
	Map    *Map
	Spawn  sim.Pos
	Mode   Mode
	Seed   uint64

	// LogOutput receives the world's lifecycle/tick logging, JSON-encoded
	// with a timestamp. Defaults to io.Discard when nil.
	LogOutput io.Writer
	Registry  prometheus.Registerer // nil disables metrics
}

// World is the simulation core: one map, one bot population, one
// request loop, running on its own goroutine exactly like the original's
// `thread::spawn` in `World::spawn`.
type World struct {
	name   string
	policy Policy
	clock  Clock
	mode   Mode
	rng    *rand.Rand

	theMap  *Map
	objects *ObjectRegistry
	alive   *AliveBots
	queued  *QueuedBots
	dead    *DeadBots

	spawn sim.Pos

	tick   uint64
	paused bool
	kills  uint64

	stats   Stats
	metrics *Metrics
	log     zerolog.Logger

	snapshots *watch[*Snapshot]
	events    *EventBus

	metronome *Metronome

	handle   Handle
	requests <-chan envelope
	closed   chan<- struct{}
}

// NewWorld constructs a world ready to Run, but does not start its
// goroutine.
func NewWorld(cfg Config) (*World, error) {
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}

	mode := cfg.Mode
	if mode == nil {
		mode = DeathmatchMode{}
	}

	output := cfg.LogOutput
	if output == nil {
		output = io.Discard
	}
	logger := zerolog.New(output).With().Timestamp().Str("world", cfg.Name).Logger()

	handle, reqCh, closedCh := newHandle()

	w := &World{
		name:      cfg.Name,
		policy:    cfg.Policy,
		clock:     cfg.Clock,
		mode:      mode,
		rng:       rand.New(rand.NewSource(int64(cfg.Seed))),
		theMap:    cfg.Map,
		objects:   NewObjectRegistry(),
		alive:     NewAliveBots(),
		queued:    NewQueuedBots(),
		dead:      NewDeadBots(),
		spawn:     cfg.Spawn,
		log:       logger,
		snapshots: newWatch[*Snapshot](nil),
		events:    newEventBus(),
		handle:    handle,
		requests:  reqCh,
		closed:    closedCh,
	}

	if cfg.Registry != nil {
		w.metrics = NewMetrics(cfg.Registry, cfg.Name)
	}

	return w, nil
}

// Handle returns the shareable control-plane handle for this world.
func (w *World) Handle() Handle { return w.handle }

// Subscribe returns a channel of broadcast events.
func (w *World) Subscribe() <-chan Event { return w.events.Subscribe() }

// Snapshot returns the most recently published snapshot, which may be
// nil if Run has not ticked yet.
func (w *World) Snapshot() *Snapshot {
	s, _ := w.snapshots.Latest()
	return s
}

// Run is the world's main loop: drain requests, advance the clock, tick
// bots, publish a snapshot, repeat. It returns once a Shutdown request
// has been processed. Call it in its own goroutine, the way the original
// spawns one OS thread per world.
func (w *World) Run() {
	w.log.Info().Str("world", w.name).Msg("ready")
	defer func() {
		close(w.closed)
		w.log.Info().Str("world", w.name).Msg("shut down")
	}()

	if w.clock.Kind == ClockFixedHz {
		w.metronome = NewMetronome(w.clock.Hz)
	}

	for {
		if w.drainOne() {
			return // shutdown request processed
		}

		if w.paused {
			continue
		}

		switch w.clock.Kind {
		case ClockManual:
			continue // advanced only by a Tick request inside drainOne
		case ClockFixedHz:
			w.stepOneTick()
			w.metronome.Wait(time.Now)
		case ClockUnlimited:
			w.stepOneTick()
		}
	}
}

// drainOne blocks for exactly one request when paused or under a manual
// clock (there's nothing else to do), and otherwise drains whatever is
// already queued without blocking. Returns true once Shutdown has been
// handled.
func (w *World) drainOne() bool {
	if w.paused || w.clock.Kind == ClockManual {
		env := <-w.requests
		return w.handleRequest(env)
	}

	for {
		select {
		case env := <-w.requests:
			if w.handleRequest(env) {
				return true
			}
		default:
			return false
		}
	}
}

func (w *World) handleRequest(env envelope) (shutdown bool) {
	switch env.req.Kind {
	case ReqTick:
		for i := uint64(0); i < env.req.Fuel; i++ {
			w.stepOneTick()
		}
		env.reply <- Result{}

	case ReqPause:
		w.paused = true
		env.reply <- Result{}

	case ReqResume:
		w.paused = false
		env.reply <- Result{}

	case ReqShutdown:
		env.reply <- Result{}
		return true

	case ReqRename:
		w.name = env.req.Name
		env.reply <- Result{}

	case ReqCreateBot:
		env.reply <- w.handleCreateBot(env.req)

	case ReqKillBot:
		w.KillBot(env.req.BotID, env.req.KillReason, sim.BotId(0), false)
		env.reply <- Result{}

	case ReqDeleteBot:
		w.alive.Remove(env.req.BotID)
		env.reply <- Result{}

	case ReqSetMap:
		w.theMap = env.req.NewMap
		env.reply <- Result{}

	case ReqSetSpawn:
		if env.req.HasSpawn {
			w.spawn = env.req.SpawnAt
		}
		env.reply <- Result{}

	case ReqCreateObject:
		id := w.objects.Create(env.req.ObjectKind, env.req.ObjectAt)
		env.reply <- Result{ObjectID: id}

	case ReqDeleteObject:
		w.objects.Delete(env.req.ObjectID)
		env.reply <- Result{}

	case ReqOverclock:
		env.reply <- w.handleOverclock(env.req.OverclockFactor)

	default:
		env.reply <- Result{Err: fmt.Errorf("unknown request kind %d", env.req.Kind)}
	}

	return false
}

// handleOverclock rescales a FixedHz clock's pacing by factor (e.g. 2.0
// runs twice as many ticks per second of wall time). It is a no-op error
// for Manual/Unlimited clocks, which have no rate to scale.
func (w *World) handleOverclock(factor float64) Result {
	if w.clock.Kind != ClockFixedHz {
		return Result{Err: &PolicyError{Reason: "overclock requires a fixed-hz clock"}}
	}
	if factor <= 0 {
		return Result{Err: &PolicyError{Reason: "overclock factor must be positive"}}
	}

	w.clock.Hz *= factor
	w.metronome = NewMetronome(w.clock.Hz)
	return Result{}
}

func (w *World) handleCreateBot(req Request) Result {
	fw, err := riscv.LoadFirmware(req.BotFirmware, riscv.RamSize)
	if err != nil {
		return Result{Err: err}
	}

	id := sim.NewBotId()
	bot := botsim.NewBot(id, w.spawn, sim.North, fw, w.rng.Uint32())
	bot.AllowBreakpoints = w.policy.AllowBreakpoints

	if w.alive.Len() < int(w.policy.MaxAliveBots) && w.alive.Spawn(bot, req.BotName) {
		w.events.Publish(Event{Kind: EventBotBorn, Tick: w.tick, Bot: id, At: bot.Pos})
		return Result{BotID: id}
	}

	if w.queued.Len() >= int(w.policy.MaxQueuedBots) {
		return Result{Err: &PolicyError{Reason: "queue is full"}}
	}

	w.queued.Push(QueuedBot{ID: id, Name: req.BotName, Firmware: fw})
	return Result{BotID: id}
}

// stepOneTick runs exactly one simulation tick: tick every alive bot in
// a shuffled-fair order (none while the world is paused), reap anything
// that died, admit queued bots into any freed slots, and publish a fresh
// snapshot. A bot that hits an allowed ebreak pauses the world.
func (w *World) stepOneTick() {
	w.tick++

	order := w.alive.Order()
	w.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	w.alive.SetOrder(order)

	killedThisTick := uint64(0)

	for _, id := range order {
		if w.paused {
			break
		}

		bot, ok := w.alive.Get(id)
		if !ok {
			continue
		}

		bot.Tick(w.tick, w)

		if bot.Cpu.Breakpoint {
			bot.Cpu.Breakpoint = false
			w.paused = true
		}

		if reason, killer, hasKiller, dead := bot.Dead(); dead {
			w.reap(id, bot, reason, killer, hasKiller)
			killedThisTick++
		} else {
			w.events.Publish(Event{Kind: EventBotMoved, Tick: w.tick, Bot: id, At: bot.Pos})
		}
	}

	w.admitQueued()

	w.stats = Stats{
		AliveBots:  w.alive.Len(),
		QueuedBots: w.queued.Len(),
		DeadBots:   len(w.dead.All()),
		TicksTotal: w.tick,
		Kills:      w.kills,
	}
	w.metrics.Update(w.stats, killedThisTick)

	w.snapshots.Send(w.buildSnapshot())
}

func (w *World) reap(id sim.BotId, bot *botsim.Bot, reason string, killer sim.BotId, hasKiller bool) {
	name := w.alive.Names[id]
	w.alive.Remove(id)

	w.dead.Push(DeadRecord{
		ID: id, Name: name, Reason: reason,
		Killer: killer, HasKiller: hasKiller,
		AgeTicks: bot.AgeTicks, Score: bot.Score,
	})

	w.kills++
	w.events.Publish(Event{Kind: EventBotDied, Tick: w.tick, Bot: id, At: bot.Pos})

	if hasKiller {
		if killerBot, ok := w.alive.Get(killer); ok {
			killerBot.Score += w.mode.OnBotKilled(killer, hasKiller, id)
		}
	}

	if w.policy.AutoRespawn {
		w.queued.Push(QueuedBot{ID: id, Name: name, Firmware: bot.Firmware})
	}
}

func (w *World) admitQueued() {
	for w.alive.Len() < int(w.policy.MaxAliveBots) {
		qb, ok := w.queued.Pop()
		if !ok {
			return
		}

		if qb.Firmware == nil {
			continue // guards against a queue entry loaded from a save with no firmware attached
		}

		bot := botsim.NewBot(qb.ID, w.spawn, sim.North, qb.Firmware, w.rng.Uint32())
		bot.AllowBreakpoints = w.policy.AllowBreakpoints

		if w.alive.Spawn(bot, qb.Name) {
			w.events.Publish(Event{Kind: EventBotBorn, Tick: w.tick, Bot: qb.ID, At: bot.Pos})
		} else {
			w.queued.Push(qb) // spawn tile occupied: try again next tick
			return
		}
	}
}

func (w *World) buildSnapshot() *Snapshot {
	aliveOrder := w.alive.Order()
	aliveBots := make([]SnapshotBot, 0, len(aliveOrder))

	for _, id := range aliveOrder {
		b, ok := w.alive.Get(id)
		if !ok {
			continue
		}

		events := make([]string, 0, len(b.Events))
		for _, e := range b.Events {
			if e.Message != "" {
				events = append(events, e.Message)
			}
		}

		aliveBots = append(aliveBots, SnapshotBot{
			ID: id, Name: w.alive.Names[id], Pos: b.Pos, Dir: b.Dir,
			AgeTicks: b.AgeTicks, Score: b.Score,
			Events: events, Serial: b.Serial.Drain(),
		})
	}

	return &Snapshot{
		Version: w.tick,
		Tick:    w.tick,
		Map:  w.theMap, Objects: w.objects.All(),
		Alive: aliveBots, Queued: w.queued.All(), Dead: w.dead.All(),
		Stats: w.stats,
	}
}

// --- botsim.WorldView ---

func (w *World) BotAt(pos sim.Pos) (sim.BotId, bool) { return w.alive.BotAt(pos) }

func (w *World) DirOf(id sim.BotId) (sim.Dir, bool) {
	b, ok := w.alive.Get(id)
	if !ok {
		return 0, false
	}
	return b.Dir, true
}

func (w *World) TileWalkable(pos sim.Pos) (bool, bool) { return w.theMap.Walkable(pos) }

func (w *World) MoveBot(id sim.BotId, pos sim.Pos) {
	b, ok := w.alive.Get(id)
	if !ok {
		return
	}
	w.alive.Move(id, b.Pos, pos)
}

func (w *World) KillBot(target sim.BotId, reason string, killer sim.BotId, hasKiller bool) {
	b, ok := w.alive.Get(target)
	if !ok {
		return
	}
	b.Kill(w.tick, reason, killer, hasKiller)
}

func (w *World) ObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool) { return w.objects.At(pos) }

func (w *World) TakeObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool) { return w.objects.Take(pos) }

func (w *World) PlaceObjectAt(pos sim.Pos, id sim.ObjectId, kind byte) bool {
	return w.objects.Place(pos, id, kind)
}

func (w *World) BotsInSquare(center sim.Pos, face sim.Dir, side int) []sim.BotId {
	return w.alive.BotsInSquare(center, face, side)
}

func (w *World) DeliverRadio(to sim.BotId, from sim.BotId, hasFrom bool, payload [128]byte) {
	b, ok := w.alive.Get(to)
	if !ok {
		return
	}
	b.Radio.Receive(uint64(from), hasFrom, payload)
}

// Cooldown samples base ± jitterPercent%, deterministically from the
// world's own RNG so that replaying the same seed reproduces the same
// cooldowns.
func (w *World) Cooldown(base uint32, jitterPercent int) uint32 {
	if jitterPercent <= 0 {
		return base
	}

	delta := int64(base) * int64(jitterPercent) / 100
	if delta == 0 {
		return base
	}

	offset := w.rng.Int63n(2*delta+1) - delta
	v := int64(base) + offset
	if v < 0 {
		return 0
	}
	return uint32(v)
}

func (w *World) RandU32() uint32 { return w.rng.Uint32() }
