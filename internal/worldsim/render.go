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

// Render produces the same ASCII map-plus-chevrons representation a
// golden-file comparison expects: the map's tiles, with each alive bot's
// position overlaid by its facing's caret glyph.
func (s *Snapshot) Render() string {
	if s.Map == nil {
		return ""
	}

	overlay := make(map[sim.Pos]byte, len(s.Alive))
	for _, b := range s.Alive {
		overlay[b.Pos] = b.Dir.Caret()
	}

	var out strings.Builder

	for y := int32(0); y < s.Map.Height; y++ {
		for x := int32(0); x < s.Map.Width; x++ {
			pos := sim.Pos{X: x, Y: y}

			if caret, ok := overlay[pos]; ok {
				out.WriteByte(caret)
				continue
			}

			t, _ := s.Map.At(pos)
			out.WriteByte(t.Kind)
		}
		out.WriteByte('\n')
	}

	return out.String()
}
