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
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/kartoffels-sim/kartoffels/internal/sim"
)

// Section tags, one per top-level piece of state. Save and Load do not
// write or read them: the format is the single gob payload below. The
// RNG's internal state is not part of that payload.
const (
	sectionVersion byte = iota
	sectionName
	sectionPolicy
	sectionMap
	sectionAlive
	sectionQueued
	sectionDead
)

const storageFormatVersion uint32 = 1

// persistedWorld is the gob-encodable payload. A saved world is a uint32
// format version, a uint64 payload length, and this one gob payload; there
// are no per-section tags, so a reader cannot skip parts of it.
type persistedWorld struct {
	Name    string
	Policy  Policy
	Tiles   []Tile
	Width   int32
	Height  int32
	Alive   []SnapshotBot
	Queued  []QueuedBot
	Dead    []DeadRecord
}

// Save writes a versioned snapshot of persistent world state: name,
// policy, map, and all three bot partitions (alive bots as their snapshot
// views only - no CPU, RAM or peripheral state is written, so an alive
// bot cannot be resumed from a save).
func Save(w io.Writer, name string, policy Policy, m *Map, alive []SnapshotBot, queued []QueuedBot, dead []DeadRecord) error {
	if err := binary.Write(w, binary.LittleEndian, storageFormatVersion); err != nil {
		return fmt.Errorf("storage: write version: %w", err)
	}

	payload := persistedWorld{
		Name: name, Policy: policy,
		Width: m.Width, Height: m.Height, Tiles: m.tiles,
		Alive: alive, Queued: queued, Dead: dead,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(buf.Len())); err != nil {
		return fmt.Errorf("storage: write length: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("storage: write payload: %w", err)
	}

	return nil
}

// Loaded is what Load hands back: enough to reconstruct a World's static
// state. Bots are returned as snapshots; the caller is responsible for
// re-spawning queued bots from their firmware (alive bots cannot be
// fully reconstructed - their CPU/RAM state is not part of this format).
type Loaded struct {
	Name   string
	Policy Policy
	Map    *Map
	Alive  []SnapshotBot
	Queued []QueuedBot
	Dead   []DeadRecord
}

func Load(r io.Reader) (*Loaded, error) {
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("storage: read version: %w", err)
	}
	if version != storageFormatVersion {
		return nil, fmt.Errorf("storage: unsupported format version %d", version)
	}

	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("storage: read length: %w", err)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("storage: read payload: %w", err)
	}

	var payload persistedWorld
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("storage: decode: %w", err)
	}

	m := &Map{Width: payload.Width, Height: payload.Height, tiles: payload.Tiles, anchors: map[byte]sim.Pos{}}

	return &Loaded{
		Name: payload.Name, Policy: payload.Policy, Map: m,
		Alive: payload.Alive, Queued: payload.Queued, Dead: payload.Dead,
	}, nil
}
