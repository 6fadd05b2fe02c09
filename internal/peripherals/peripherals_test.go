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

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kartoffels-sim/kartoffels/internal/sim"
)

// fakeWorldCtx is a minimal, deterministic WorldCtx stand-in: no jitter, a
// single occupant/object table keyed by position, and a radio mailbox keyed
// by bot id, enough to exercise every peripheral without a real world.
type fakeWorldCtx struct {
	pos sim.Pos
	dir sim.Dir

	bots    map[sim.Pos]sim.BotId
	dirs    map[sim.BotId]sim.Dir
	objects map[sim.Pos]fakeObject
	walls   map[sim.Pos]bool
	water   map[sim.Pos]bool

	killed        []sim.BotId
	killReason    string
	placedOk      bool
	inboxes       map[sim.BotId][][128]byte
}

type fakeObject struct {
	id   sim.ObjectId
	kind byte
}

var _ WorldCtx = (*fakeWorldCtx)(nil)

func newFakeWorldCtx() *fakeWorldCtx {
	return &fakeWorldCtx{
		bots:    map[sim.Pos]sim.BotId{},
		dirs:    map[sim.BotId]sim.Dir{},
		objects: map[sim.Pos]fakeObject{},
		walls:   map[sim.Pos]bool{},
		water:   map[sim.Pos]bool{},
		inboxes: map[sim.BotId][][128]byte{},
	}
}

func (f *fakeWorldCtx) Pos() sim.Pos      { return f.pos }
func (f *fakeWorldCtx) Dir() sim.Dir      { return f.dir }
func (f *fakeWorldCtx) SetDir(d sim.Dir)  { f.dir = d }

func (f *fakeWorldCtx) BotAt(pos sim.Pos) (sim.BotId, bool) {
	id, ok := f.bots[pos]
	return id, ok
}

func (f *fakeWorldCtx) DirOf(id sim.BotId) (sim.Dir, bool) {
	d, ok := f.dirs[id]
	return d, ok
}

func (f *fakeWorldCtx) TileWalkable(pos sim.Pos) (bool, bool) {
	if f.walls[pos] {
		return false, false
	}
	return true, f.water[pos]
}

func (f *fakeWorldCtx) MoveTo(pos sim.Pos) { f.pos = pos }

func (f *fakeWorldCtx) KillBot(target sim.BotId, reason string, killer sim.BotId, hasKiller bool) {
	f.killed = append(f.killed, target)
	f.killReason = reason
}

func (f *fakeWorldCtx) ObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool) {
	o, ok := f.objects[pos]
	return o.id, o.kind, ok
}

func (f *fakeWorldCtx) TakeObjectAt(pos sim.Pos) (sim.ObjectId, byte, bool) {
	o, ok := f.objects[pos]
	if ok {
		delete(f.objects, pos)
	}
	return o.id, o.kind, ok
}

func (f *fakeWorldCtx) PlaceObjectAt(pos sim.Pos, id sim.ObjectId, kind byte) bool {
	if !f.placedOk {
		return false
	}
	f.objects[pos] = fakeObject{id: id, kind: kind}
	return true
}

func (f *fakeWorldCtx) BotsInSquare(center sim.Pos, face sim.Dir, side int) []sim.BotId {
	var out []sim.BotId
	for _, id := range f.bots {
		out = append(out, id)
	}
	return out
}

func (f *fakeWorldCtx) DeliverRadio(to sim.BotId, from sim.BotId, hasFrom bool, payload [128]byte) {
	f.inboxes[to] = append(f.inboxes[to], payload)
}

func (f *fakeWorldCtx) Cooldown(base uint32, jitterPercent int) uint32 { return base }

func (f *fakeWorldCtx) RandU32() uint32 { return 0 }

// --- Motor ---

func TestMotorLatchesAndResolves(t *testing.T) {
	irq := NewIrq()
	m := NewMotor(irq)

	require.NoError(t, m.Store(0, uint32(MotorStepForward)))
	op, ok := m.TakePending()
	require.True(t, ok)
	require.Equal(t, MotorStepForward, op)

	_, ok = m.TakePending()
	require.False(t, ok)
}

func TestMotorBusyWhileCoolingDown(t *testing.T) {
	irq := NewIrq()
	m := NewMotor(irq)
	ctx := newFakeWorldCtx()

	m.Resolve(MotorTurnLeft, ctx, true)
	require.Greater(t, m.cooldown, uint32(0))

	require.NoError(t, m.Store(0, uint32(MotorTurnRight)))
	_, ok := m.TakePending()
	require.False(t, ok, "store while cooling down must be dropped silently")
}

func TestMotorRaisesBusyIrqOnFailedMove(t *testing.T) {
	irq := NewIrq()
	m := NewMotor(irq)
	ctx := newFakeWorldCtx()

	m.Resolve(MotorStepForward, ctx, false)
	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqMotorBusy, source)
}

func TestMotorTickRaisesIdleAtZero(t *testing.T) {
	irq := NewIrq()
	m := NewMotor(irq)
	m.cooldown = 1

	m.Tick()
	require.Equal(t, uint32(0), m.cooldown)

	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqMotorIdle, source)
}

// --- Arm ---

func TestArmStabKillsOccupant(t *testing.T) {
	irq := NewIrq()
	a := NewArm(irq)
	ctx := newFakeWorldCtx()
	ctx.pos = sim.Pos{X: 0, Y: 0}
	ctx.dir = sim.East
	victim := sim.BotId(99)
	ctx.bots[sim.Pos{X: 1, Y: 0}] = victim

	a.SetCtx(ctx)
	require.NoError(t, a.Store(0, uint32(ArmStab)))

	require.Equal(t, []sim.BotId{victim}, ctx.killed)
	require.Equal(t, "stabbed by another bot", ctx.killReason)
}

func TestArmPickThenDrop(t *testing.T) {
	irq := NewIrq()
	a := NewArm(irq)
	ctx := newFakeWorldCtx()
	ctx.pos = sim.Pos{X: 0, Y: 0}
	ctx.dir = sim.East
	ctx.placedOk = true
	front := sim.Pos{X: 1, Y: 0}
	ctx.objects[front] = fakeObject{id: 7, kind: sim.ObjectGem}

	a.SetCtx(ctx)
	require.NoError(t, a.Store(0, uint32(ArmPick)))

	held, ok := a.Held()
	require.True(t, ok)
	require.Equal(t, sim.ObjectId(7), held)
	_, stillThere := ctx.objects[front]
	require.False(t, stillThere)

	a.cooldown = 0 // pick already consumed the cooldown; force it clear to drop immediately
	require.NoError(t, a.Store(0, uint32(ArmDrop)))

	_, hasHeld := a.Held()
	require.False(t, hasHeld)
	require.Equal(t, byte(sim.ObjectGem), ctx.objects[front].kind)
}

// --- Radar ---

func TestRadarScanWritesTilesPlane(t *testing.T) {
	irq := NewIrq()
	r := NewRadar(irq)
	ctx := newFakeWorldCtx()
	ctx.pos = sim.Pos{X: 5, Y: 5}
	ctx.dir = sim.North
	ctx.walls[sim.Pos{X: 5, Y: 4}] = true

	r.SetCtx(ctx)

	cmd := uint32(1) | uint32(3)<<8 | uint32(RadarOptTiles)<<16 | uint32(RadarAddrRowMajor)<<24
	require.NoError(t, r.Store(0, cmd))

	status, err := r.Load(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), status) // cooldown just started, not elapsed

	// center cell (dx=0, dy=0) sits at row-major index (1*3+1)*3 = 12
	v, err := r.Load(4 + 12*4)
	require.NoError(t, err)
	require.Equal(t, byte(sim.TileFloor), byte(v))
}

func TestRadarRejectsUnknownSide(t *testing.T) {
	irq := NewIrq()
	r := NewRadar(irq)
	r.SetCtx(newFakeWorldCtx())

	cmd := uint32(1) | uint32(4)<<8 | uint32(RadarOptTiles)<<16 | uint32(RadarAddrRowMajor)<<24
	require.Error(t, r.Store(0, cmd))
}

// --- Compass ---

func TestCompassMeasuresFacing(t *testing.T) {
	irq := NewIrq()
	c := NewCompass(irq)
	ctx := newFakeWorldCtx()
	ctx.dir = sim.South
	c.SetCtx(ctx)

	require.NoError(t, c.Store(0, 0x01))

	v, err := c.Load(4)
	require.NoError(t, err)
	require.Equal(t, uint32(sim.South.AsByte()), v)

	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqCompassReady, source)
}

// --- Clock ---

func TestClockTimerFiresAfterPeriod(t *testing.T) {
	irq := NewIrq()
	c := NewClock(irq, 0)

	require.NoError(t, c.Store(0x04, 1)) // prescaler
	require.NoError(t, c.Store(0x08, 3)) // period
	require.NoError(t, c.Store(0x00, uint32(TimerStartOneShot)))

	for i := 0; i < 2; i++ {
		c.Tick()
		_, ok := irq.NextPending()
		require.False(t, ok)
	}

	c.Tick()
	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqTimer0, source)

	running, err := c.Load(0x00)
	require.NoError(t, err)
	require.Equal(t, uint32(0), running, "one-shot timer must stop after firing")
}

func TestClockTickCounterIsMonotonic(t *testing.T) {
	c := NewClock(NewIrq(), 0)

	for i := 0; i < 5; i++ {
		c.Tick()
	}

	ticks, err := c.Load(clockTickCounterAddr)
	require.NoError(t, err)
	require.Equal(t, uint32(5), ticks)
}

func TestClockSeedIsFixedAtBirthAndReadOnly(t *testing.T) {
	c := NewClock(NewIrq(), 0xdeadbeef)

	seed, err := c.Load(clockSeedAddr)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), seed)

	require.Error(t, c.Store(clockSeedAddr, 1))
	require.Error(t, c.Store(clockTickCounterAddr, 1))

	seed, err = c.Load(clockSeedAddr)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), seed, "seed must not change across the bot's life")
}

// --- Radio ---

func TestRadioSendDeliversToOccupants(t *testing.T) {
	irq := NewIrq()
	r := NewRadio(irq)
	ctx := newFakeWorldCtx()
	ctx.pos = sim.Pos{X: 0, Y: 0}
	self := sim.BotId(1)
	peer := sim.BotId(2)
	ctx.bots[ctx.pos] = self
	ctx.bots[sim.Pos{X: 1, Y: 0}] = peer
	r.SetCtx(ctx)

	r.outBuf[0] = 0xab

	require.NoError(t, r.Store(0x004, uint32(1)|uint32(3)<<8))

	require.Len(t, ctx.inboxes[peer], 1)
	require.Equal(t, byte(0xab), ctx.inboxes[peer][0][0])
	require.NotContains(t, ctx.inboxes, self)
}

func TestRadioReceiveQueuesFramedMessage(t *testing.T) {
	irq := NewIrq()
	r := NewRadio(irq)

	var payload [radioOutSize]byte
	payload[0] = 0x42

	r.Receive(0x1122, true, payload)

	length, err := r.Load(radioLenOff)
	require.NoError(t, err)
	require.Equal(t, uint32(radioMessageSize), length)

	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqRadioRecv, source)
}

func TestRadioFilterDropsNonMatchingSender(t *testing.T) {
	irq := NewIrq()
	r := NewRadio(irq)

	require.NoError(t, r.Store(radioFilterOff, 0xaa))

	var payload [radioOutSize]byte
	r.Receive(0x01, true, payload) // low 4 bytes don't match filter

	length, err := r.Load(radioLenOff)
	require.NoError(t, err)
	require.Equal(t, uint32(0), length)
}

// --- Serial ---

func TestSerialStageAndCommit(t *testing.T) {
	irq := NewIrq()
	s := NewSerial(irq)

	require.NoError(t, s.Store(0x004, uint32('h')))
	require.NoError(t, s.Store(0x004, uint32('i')))
	require.NoError(t, s.Store(0x008, 0))

	out := s.Drain()
	require.Equal(t, []byte("hi"), out)

	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqSerialIdle, source)
}

// --- Battery ---

func TestBatteryDrainAndRecharge(t *testing.T) {
	b := NewBattery(100)
	b.Drain(40)
	v, err := b.Load(0x000)
	require.NoError(t, err)
	require.Equal(t, uint32(60), v)

	b.Drain(1000)
	require.True(t, b.Empty())

	b.Recharge(1000)
	v, err = b.Load(0x000)
	require.NoError(t, err)
	require.Equal(t, uint32(100), v, "recharge must cap at capacity")
}

// --- Irq ---

func TestIrqDispatchClearsAndPacksPayload(t *testing.T) {
	irq := NewIrq()
	require.NoError(t, irq.Store(irqHandlerOffset+4*IrqTimer0, 0x1000))

	irq.Raise(IrqTimer0, [3]byte{1, 2, 3})

	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqTimer0, source)

	handler, arg, ok := irq.Dispatch(IrqTimer0)
	require.True(t, ok)
	require.Equal(t, uint32(0x1000), handler)
	require.Equal(t, pack(byte(IrqTimer0), 1, 2, 3), arg)

	_, ok = irq.NextPending()
	require.False(t, ok)
}

func TestIrqDispatchWithoutHandlerDrops(t *testing.T) {
	irq := NewIrq()
	irq.Raise(IrqTimer1, [3]byte{})

	_, _, ok := irq.Dispatch(IrqTimer1)
	require.False(t, ok)
}

func TestIrqPriorityIsAscending(t *testing.T) {
	irq := NewIrq()
	irq.Raise(IrqMotorBusy, [3]byte{})
	irq.Raise(IrqTimer0, [3]byte{})

	source, ok := irq.NextPending()
	require.True(t, ok)
	require.Equal(t, IrqTimer0, source)
}
