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

import "github.com/kartoffels-sim/kartoffels/internal/sim"

// Radar option bits, selecting which of the three result planes get
// filled in for each scanned cell.
const (
	RadarOptTiles = 1 << 0
	RadarOptBots  = 1 << 1
	RadarOptObjs  = 1 << 2
	RadarOptIds   = 1 << 3
	RadarOptDirs  = 1 << 4
)

// Radar addressing modes, selected by the top byte of the scan command.
const (
	RadarAddrRowMajor = 0
	RadarAddrSzudzik  = 1
)

const (
	cooldownRadar3x3 uint32 = 4_000
	cooldownRadar5x5 uint32 = 8_000
	cooldownRadar7x7 uint32 = 16_000
	cooldownRadar9x9 uint32 = 32_000

	cooldownOptTiles uint32 = 4_000
	cooldownOptBots  uint32 = 4_000
	cooldownOptObjs  uint32 = 4_000
	cooldownOptIds   uint32 = 8_000
	cooldownOptDirs  uint32 = 8_000

	radarJitter = 10
)

// Radar scans a side-R square (R in {3,5,7,9}) centred on and rotated to
// the bot's facing, writing three result words per cell into a private
// memory region, addressed either row-major or Szudzik-paired.
type Radar struct {
	irq *Irq
	ctx WorldCtx

	cooldown uint32
	side     int
	addrMode byte
	memory   []uint32
}

func NewRadar(irq *Irq) *Radar {
	return &Radar{irq: irq}
}

func (r *Radar) SetCtx(ctx WorldCtx) { r.ctx = ctx }

func (r *Radar) Load(addr uint32) (uint32, error) {
	if addr == 0 {
		return b2u32(r.cooldown == 0), nil
	}

	idx := (addr - 4) / 4
	if int(idx) >= len(r.memory) {
		return 0, errFault
	}

	return r.memory[idx], nil
}

func (r *Radar) Store(addr uint32, val uint32) error {
	if addr != 0 {
		return errFault
	}

	if r.cooldown > 0 {
		return nil
	}

	op, rangeByte, optsByte, addrByte := unpack(val)
	if op != 0x01 {
		return errFault
	}

	side, ok := validRadarSide(rangeByte)
	if !ok {
		return errFault
	}

	if addrByte != RadarAddrRowMajor && addrByte != RadarAddrSzudzik {
		return errFault
	}

	r.scan(side, optsByte, addrByte)
	return nil
}

func validRadarSide(b byte) (int, bool) {
	switch b {
	case 3, 5, 7, 9:
		return int(b), true
	default:
		return 0, false
	}
}

func (r *Radar) scan(side int, opts byte, addrMode byte) {
	r.side = side
	r.addrMode = addrMode
	r.memory = make([]uint32, 3*side*side)

	half := int32(side / 2)
	pos, dir := r.ctx.Pos(), r.ctx.Dir()

	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			abs := localToAbsolute(pos, dir, dx, dy)
			z0, z1, z2 := r.scanOne(opts, abs)

			base := r.cellIndex(side, addrMode, dx+half, dy+half)
			r.memory[base+0] = z0
			r.memory[base+1] = z1
			r.memory[base+2] = z2
		}
	}

	r.irq.Raise(IrqRadarBusy, [3]byte{})
	r.cooldown = r.ctx.Cooldown(radarCooldown(side, opts), radarJitter)
}

func (r *Radar) scanOne(opts byte, pos sim.Pos) (z0, z1, z2 uint32) {
	if opts&RadarOptBots != 0 {
		if id, ok := r.ctx.BotAt(pos); ok {
			var dirByte byte
			if opts&RadarOptDirs != 0 {
				if d, ok := r.ctx.DirOf(id); ok {
					dirByte = d.Caret()
				}
			}

			z0 = pack(sim.TileBot, dirByte, 0, 0)

			if opts&RadarOptIds != 0 {
				z1 = uint32(uint64(id) >> 32)
				z2 = uint32(uint64(id))
			}

			return
		}
	}

	if opts&RadarOptObjs != 0 {
		if id, kind, ok := r.ctx.ObjectAt(pos); ok {
			z0 = pack(kind, 0, 0, 0)

			if opts&RadarOptIds != 0 {
				z1 = uint32(uint64(id) >> 32)
				z2 = uint32(uint64(id))
			}

			return
		}
	}

	if opts&RadarOptTiles != 0 {
		walkable, _ := r.ctx.TileWalkable(pos)
		kind := byte(sim.TileWall)
		if walkable {
			kind = sim.TileFloor
		}
		z0 = pack(kind, 0, 0, 0)
	}

	return
}

func (r *Radar) cellIndex(side int, addrMode byte, x, y int32) int {
	var cell int

	if addrMode == RadarAddrSzudzik {
		cell = szudzik(int(x), int(y))
	} else {
		cell = int(y)*side + int(x)
	}

	return cell * 3
}

// szudzik pairs two non-negative integers into one, the compact indexing
// scheme offered as an alternative to row-major addressing.
func szudzik(x, y int) int {
	if x >= y {
		return x*x + x + y
	}
	return y*y + x
}

func radarCooldown(side int, opts byte) uint32 {
	var base uint32

	switch side {
	case 3:
		base = cooldownRadar3x3
	case 5:
		base = cooldownRadar5x5
	case 7:
		base = cooldownRadar7x7
	default:
		base = cooldownRadar9x9
	}

	if opts&RadarOptTiles != 0 {
		base += cooldownOptTiles
	}
	if opts&RadarOptBots != 0 {
		base += cooldownOptBots
	}
	if opts&RadarOptObjs != 0 {
		base += cooldownOptObjs
	}
	if opts&RadarOptIds != 0 {
		base += cooldownOptIds
	}
	if opts&RadarOptDirs != 0 {
		base += cooldownOptDirs
	}

	return base
}

// localToAbsolute turns a bot-local offset (dx = right, dy = -1 forward)
// into an absolute map position, so that (0, -1) always means "directly
// ahead" regardless of the bot's facing.
func localToAbsolute(pos sim.Pos, dir sim.Dir, dx, dy int32) sim.Pos {
	fx, fy := dir.Vec()
	rx, ry := dir.TurnRight().Vec()

	return sim.Pos{
		X: pos.X + dx*rx - dy*fx,
		Y: pos.Y + dx*ry - dy*fy,
	}
}

func (r *Radar) Tick() {
	if r.cooldown == 0 {
		return
	}

	r.cooldown--

	if r.cooldown == 0 {
		r.irq.Raise(IrqRadarIdle, [3]byte{})
	}
}
