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

const (
	cooldownCompass uint32 = 1_000
	compassJitter          = 10
)

// Compass reports the bot's own facing. It is the simplest peripheral:
// a status register, a result register and a short, fixed cooldown.
type Compass struct {
	irq *Irq
	ctx WorldCtx

	cooldown uint32
	measured bool
}

func NewCompass(irq *Irq) *Compass {
	return &Compass{irq: irq}
}

func (c *Compass) SetCtx(ctx WorldCtx) { c.ctx = ctx }

func (c *Compass) Load(addr uint32) (uint32, error) {
	switch addr {
	case 0:
		return b2u32(c.cooldown == 0), nil
	case 4:
		if !c.measured {
			return 0, nil
		}
		return uint32(c.ctx.Dir().AsByte()), nil
	default:
		return 0, errFault
	}
}

func (c *Compass) Store(addr uint32, val uint32) error {
	if addr != 0 {
		return errFault
	}

	if c.cooldown > 0 {
		return nil
	}

	op, _, _, _ := unpack(val)
	if op != 0x01 {
		return errFault
	}

	c.measured = true
	c.cooldown = c.ctx.Cooldown(cooldownCompass, compassJitter)
	c.irq.Raise(IrqCompassReady, [3]byte{})

	return nil
}

func (c *Compass) Tick() {
	if c.cooldown == 0 {
		return
	}
	c.cooldown--
}
