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

// Battery tracks a bot's remaining fuel. It never faults the bot itself -
// botsim.Bot consults Empty() once per tick and kills the bot when it runs
// dry, the same way age-out is handled outside the CPU loop entirely.
type Battery struct {
	capacity uint32
	charge   uint32
}

func NewBattery(capacity uint32) *Battery {
	return &Battery{capacity: capacity, charge: capacity}
}

func (b *Battery) Load(addr uint32) (uint32, error) {
	switch addr {
	case 0x000:
		return b.charge, nil
	case 0x004:
		return b.capacity, nil
	default:
		return 0, errFault
	}
}

func (b *Battery) Store(addr uint32, val uint32) error {
	return errFault // read-only from firmware's side
}

// Drain removes amount charge, floored at zero.
func (b *Battery) Drain(amount uint32) {
	if amount >= b.charge {
		b.charge = 0
		return
	}
	b.charge -= amount
}

// Recharge adds amount charge, capped at capacity.
func (b *Battery) Recharge(amount uint32) {
	b.charge += amount
	if b.charge > b.capacity {
		b.charge = b.capacity
	}
}

func (b *Battery) Empty() bool { return b.charge == 0 }

func (b *Battery) Tick() {}
