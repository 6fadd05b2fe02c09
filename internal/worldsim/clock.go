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

import "time"

// ClockKind selects how a World paces its own tick loop.
type ClockKind int

const (
	// ClockManual advances only in response to a Tick{Fuel} request.
	ClockManual ClockKind = iota
	// ClockFixedHz sleeps, with drift correction, so ticks land on a
	// fixed real-time cadence.
	ClockFixedHz
	// ClockUnlimited never sleeps: the world runs as fast as the host
	// can step it.
	ClockUnlimited
)

// Clock is a tagged union over the three pacing modes a World can run
// under: generalised from a cycle-counting CPU run loop's "as fast as
// possible" mode to wall-clock-aware pacing.
type Clock struct {
	Kind ClockKind
	Hz   float64 // only meaningful when Kind == ClockFixedHz
}

func ManualClock() Clock             { return Clock{Kind: ClockManual} }
func FixedHzClock(hz float64) Clock  { return Clock{Kind: ClockFixedHz, Hz: hz} }
func UnlimitedClock() Clock          { return Clock{Kind: ClockUnlimited} }

// Metronome paces a FixedHz world: it tracks when the next tick is due
// and sleeps exactly long enough to make up the difference, correcting
// for drift rather than blindly sleeping 1/hz every time.
type Metronome struct {
	period time.Duration
	next   time.Time
}

func NewMetronome(hz float64) *Metronome {
	return &Metronome{period: time.Duration(float64(time.Second) / hz)}
}

// Wait blocks, if necessary, so that real time has advanced by
// approximately one tick period since the metronome was started or last
// waited, without accumulating drift across many ticks.
func (m *Metronome) Wait(now func() time.Time) {
	n := now()

	if m.next.IsZero() {
		m.next = n.Add(m.period)
		return
	}

	if d := m.next.Sub(n); d > 0 {
		time.Sleep(d)
	}

	m.next = m.next.Add(m.period)

	// If we've fallen badly behind (e.g. after a long GC pause), resync
	// instead of trying to burn through a backlog of ticks at once.
	if m.next.Before(n) {
		m.next = n.Add(m.period)
	}
}
