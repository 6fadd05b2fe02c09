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

// RequestKind discriminates the Request union. Exactly one of Request's
// payload fields is meaningful for a given Kind.
type RequestKind int

const (
	ReqTick RequestKind = iota
	ReqPause
	ReqResume
	ReqShutdown
	ReqRename
	ReqCreateBot
	ReqKillBot
	ReqDeleteBot
	ReqSetMap
	ReqSetSpawn
	ReqCreateObject
	ReqDeleteObject
	ReqOverclock
)

// Request is one control-plane message sent over a Handle.
type Request struct {
	Kind RequestKind

	Fuel uint64 // ReqTick

	Name string // ReqRename

	BotName     string   // ReqCreateBot
	BotFirmware []byte   // ReqCreateBot: raw ELF bytes
	BotID       sim.BotId // ReqKillBot, ReqDeleteBot
	KillReason  string    // ReqKillBot

	NewMap *Map // ReqSetMap

	SpawnAt  sim.Pos // ReqSetSpawn
	HasSpawn bool

	ObjectKind byte    // ReqCreateObject
	ObjectAt   sim.Pos // ReqCreateObject
	ObjectID   sim.ObjectId // ReqDeleteObject

	OverclockFactor float64 // ReqOverclock: multiplier applied to a FixedHz clock's rate
}

// Result is a Request's one-shot reply: either nothing of note (Err ==
// nil) or a PolicyError / world-fatal error.
type Result struct {
	Err     error
	BotID   sim.BotId    // populated by a successful ReqCreateBot
	ObjectID sim.ObjectId // populated by a successful ReqCreateObject
}
