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

import "fmt"

// MaxAliveBotsLimit is the hard ceiling on Policy.MaxAliveBots: alive-bot
// occupancy is tracked with a byte-wide slot count, so 256 is the most
// the collection can ever represent.
const MaxAliveBotsLimit = 256

// Policy governs what a world's request handlers are allowed to do:
// whether dead queued bots respawn automatically, how many bots may be
// alive or queued at once, and whether ebreak is honoured rather than
// treated as a fault.
type Policy struct {
	AutoRespawn      bool
	MaxAliveBots     uint8
	MaxQueuedBots    uint8
	AllowBreakpoints bool
}

// PolicyError is returned by a request a Policy rejects: occupied map
// cell, queue full, etc. The world itself is unaffected.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }

func policyErrorf(format string, args ...any) error {
	return &PolicyError{Reason: fmt.Sprintf(format, args...)}
}

// Validate asserts the invariants World construction requires.
func (p Policy) Validate() error {
	if int(p.MaxAliveBots) > MaxAliveBotsLimit {
		return fmt.Errorf("policy: MaxAliveBots must be <= %d", MaxAliveBotsLimit)
	}
	return nil
}
