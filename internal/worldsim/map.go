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
	"strings"

	"github.com/kartoffels-sim/kartoffels/internal/sim"
)

// Tile is one cell of a world's map: a kind byte (matching its ASCII
// rendering) plus three bytes of kind-specific metadata, unused by floor
// and wall tiles.
type Tile struct {
	Kind byte
	Meta [3]byte
}

// Map is a flat, row-major buffer of tiles, the same way physical memory
// is kept as one flat slice rather than a slice of slices.
type Map struct {
	Width, Height int32
	tiles         []Tile
	anchors       map[byte]sim.Pos
}

func NewMap(width, height int32) *Map {
	tiles := make([]Tile, width*height)
	for i := range tiles {
		tiles[i] = Tile{Kind: sim.TileVoid}
	}
	return &Map{Width: width, Height: height, tiles: tiles, anchors: map[byte]sim.Pos{}}
}

func (m *Map) inBounds(p sim.Pos) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

func (m *Map) index(p sim.Pos) int {
	return int(p.Y)*int(m.Width) + int(p.X)
}

func (m *Map) At(p sim.Pos) (Tile, bool) {
	if !m.inBounds(p) {
		return Tile{}, false
	}
	return m.tiles[m.index(p)], true
}

func (m *Map) Set(p sim.Pos, t Tile) {
	if !m.inBounds(p) {
		return
	}
	m.tiles[m.index(p)] = t
}

// Walkable reports whether pos may be stepped onto, and whether doing so
// drowns the bot (water tiles kill the bot once the move completes).
func (m *Map) Walkable(p sim.Pos) (walkable bool, drowns bool) {
	t, ok := m.At(p)
	if !ok {
		return false, false // void: neither walkable nor drowning, just rejected
	}

	switch t.Kind {
	case sim.TileFloor, sim.TileDoor:
		return true, false
	case sim.TileWater:
		return true, true
	default:
		return false, false
	}
}

// Anchor returns the position a named letter anchor in the source ASCII
// art resolved to, set aside by Parse for spawn points and test fixtures.
func (m *Map) Anchor(letter byte) (sim.Pos, bool) {
	p, ok := m.anchors[letter]
	return p, ok
}

// Parse builds a Map from an ASCII-art block: '.' floor, '#' wall, '-'/'|'
// directional wall, '+' door, '~' water, ' ' void. Any other printable
// byte becomes a named anchor at its position (also rendered as floor),
// mirroring the original's letter-keyed spawn/anchor convention.
func Parse(s string) *Map {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")

	height := int32(len(lines))
	width := int32(0)
	for _, line := range lines {
		if int32(len(line)) > width {
			width = int32(len(line))
		}
	}

	m := NewMap(width, height)

	for y, line := range lines {
		for x := 0; x < len(line); x++ {
			b := line[x]
			pos := sim.Pos{X: int32(x), Y: int32(y)}

			switch b {
			case ' ':
				m.Set(pos, Tile{Kind: sim.TileVoid})
			case '.':
				m.Set(pos, Tile{Kind: sim.TileFloor})
			case '#':
				m.Set(pos, Tile{Kind: sim.TileWall})
			case '-':
				m.Set(pos, Tile{Kind: sim.TileWallH})
			case '|':
				m.Set(pos, Tile{Kind: sim.TileWallV})
			case '+':
				m.Set(pos, Tile{Kind: sim.TileDoor})
			case '~':
				m.Set(pos, Tile{Kind: sim.TileWater})
			default:
				m.anchors[b] = pos
				m.Set(pos, Tile{Kind: sim.TileFloor})
			}
		}
	}

	return m
}
