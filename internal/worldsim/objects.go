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

// Object is a pickable/droppable item lying on the map or carried by a
// bot's arm.
type Object struct {
	ID   sim.ObjectId
	Kind byte
}

// ObjectRegistry is the single source of truth for where every object
// is: on the map (position index) or held by a bot. An object is never
// in both places at once - Take removes it from the position index
// before a bot's Arm may hold it, and Place puts it back.
type ObjectRegistry struct {
	byID  map[sim.ObjectId]Object
	byPos map[sim.Pos]sim.ObjectId
}

func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{
		byID:  map[sim.ObjectId]Object{},
		byPos: map[sim.Pos]sim.ObjectId{},
	}
}

// Create adds a new object at pos, generating a fresh id.
func (r *ObjectRegistry) Create(kind byte, pos sim.Pos) sim.ObjectId {
	id := sim.ObjectId(0)
	for id.IsZero() {
		id = sim.ObjectId(sim.NewBotId())
	}

	r.byID[id] = Object{ID: id, Kind: kind}
	r.byPos[pos] = id

	return id
}

// Delete removes id wherever it is (on the map or held by a bot).
func (r *ObjectRegistry) Delete(id sim.ObjectId) {
	for pos, oid := range r.byPos {
		if oid == id {
			delete(r.byPos, pos)
		}
	}
	delete(r.byID, id)
}

func (r *ObjectRegistry) At(pos sim.Pos) (sim.ObjectId, byte, bool) {
	id, ok := r.byPos[pos]
	if !ok {
		return 0, 0, false
	}
	return id, r.byID[id].Kind, true
}

// Take removes the object at pos from the map, returning it for a bot's
// arm to hold. Returns ok=false if the tile has no object.
func (r *ObjectRegistry) Take(pos sim.Pos) (sim.ObjectId, byte, bool) {
	id, kind, ok := r.At(pos)
	if !ok {
		return 0, 0, false
	}
	delete(r.byPos, pos)
	return id, kind, true
}

// Place puts a held object back onto the map at pos, if pos is free.
// Returns false (and leaves the registry unchanged, so the caller still
// holds the object) if pos is already occupied by another object.
func (r *ObjectRegistry) Place(pos sim.Pos, id sim.ObjectId, kind byte) bool {
	if _, occupied := r.byPos[pos]; occupied {
		return false
	}

	if _, ok := r.byID[id]; !ok {
		r.byID[id] = Object{ID: id, Kind: kind}
	}

	r.byPos[pos] = id
	return true
}

func (r *ObjectRegistry) All() []Object {
	out := make([]Object, 0, len(r.byID))
	for _, o := range r.byID {
		out = append(out, o)
	}
	return out
}
