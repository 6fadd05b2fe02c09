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

import "github.com/kartoffels-sim/kartoffels/internal/sim"

// Theme generates a fresh map, the way the original's dungeon/cave/WFC
// generators all implement a common "CreateMap(rng) Map" interface.
// Only the arena case is implemented here; dungeon/cave/WFC generation
// remain out of scope.
type Theme interface {
	CreateMap(rng func() uint32) *Map
}

// ArenaTheme generates a circular room: a ring of walls at Radius, solid
// floor inside it, void outside - enough to run a deterministic smoke
// test without a full dungeon generator.
type ArenaTheme struct {
	Radius int32
}

func (t ArenaTheme) CreateMap(rng func() uint32) *Map {
	side := t.Radius*2 + 1
	m := NewMap(side, side)

	center := sim.Pos{X: t.Radius, Y: t.Radius}

	for y := int32(0); y < side; y++ {
		for x := int32(0); x < side; x++ {
			p := sim.Pos{X: x, Y: y}
			dx, dy := p.X-center.X, p.Y-center.Y
			distSq := dx*dx + dy*dy

			switch {
			case distSq > t.Radius*t.Radius:
				m.Set(p, Tile{Kind: sim.TileVoid})
			case distSq > (t.Radius-1)*(t.Radius-1):
				m.Set(p, Tile{Kind: sim.TileWall})
			default:
				m.Set(p, Tile{Kind: sim.TileFloor})
			}
		}
	}

	return m
}
