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

// Mode is a thin extension point for game-mode-specific kill-credit
// accounting, supplementing the original's `mode.rs`. It is deliberately
// narrow: it does not own a scoreboard or render anything, it only
// decides how many points a kill is worth.
type Mode interface {
	// OnBotKilled returns the score to add to killer's running total.
	// hasKiller is false for environmental deaths (drowning, battery
	// exhaustion), which award nothing. Void tiles are impassable, so
	// falling into the void is never a cause of death.
	OnBotKilled(killer sim.BotId, hasKiller bool, victim sim.BotId) uint32
}

// DeathmatchMode awards the killer one point per confirmed kill and
// nothing for environmental or self-inflicted deaths.
type DeathmatchMode struct{}

func (DeathmatchMode) OnBotKilled(killer sim.BotId, hasKiller bool, victim sim.BotId) uint32 {
	if !hasKiller || killer == victim {
		return 0
	}
	return 1
}
