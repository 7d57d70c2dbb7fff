// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package handles implements the open-addressed int→int map that backs the
// store bridge's handle table (spec.md §3/§9). It is kept as a real
// open-addressed, power-of-two table rather than a generic map because the
// bridge is a C-ABI boundary shared with a non-Go host: cross-implementation
// load-factor/rehash behavior compatibility matters here, which is exactly
// the case spec.md §9 calls out as the reason to keep the custom structure.
//
// Zero is the reserved "absent" sentinel for both keys and values, matching
// the handle table's use on the C side: a caller never hands out handle 0,
// and storing a zero value is equivalent to removing the key.
package handles

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultCapacity = 16
	loadFactor      = 0.75
)

// Map is an open-addressed int64→int64 table with a fixed 0.75 load factor
// and power-of-two capacity, doubling on rehash. Deleted slots are marked
// with a tombstone so probe chains through them stay intact; a rehash (grow
// or same-size compaction) clears every tombstone.
type Map struct {
	keys []int64
	vals []int64
	tomb []bool
	size int // live entries
	dead int // tombstoned slots
}

// New returns an empty Map with the default initial capacity.
func New() *Map {
	return NewSized(defaultCapacity)
}

// NewSized returns an empty Map sized to comfortably hold capacityHint
// entries without an immediate rehash.
func NewSized(capacityHint int) *Map {
	// smallest power of two whose 0.75 threshold is at least capacityHint
	c := nextPowerOfTwo((capacityHint*4 + 2) / 3)
	if c < defaultCapacity {
		c = defaultCapacity
	}
	return &Map{
		keys: make([]int64, c),
		vals: make([]int64, c),
		tomb: make([]bool, c),
	}
}

// Size reports the number of present keys.
func (m *Map) Size() int { return m.size }

// Capacity reports the table's current capacity, always a power of two.
func (m *Map) Capacity() int { return len(m.keys) }

func (m *Map) threshold() int {
	return int(float64(len(m.keys)) * loadFactor)
}

func hashKey(key int64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	return xxhash.Sum64(b[:])
}

func (m *Map) slot(key int64) int {
	return int(hashKey(key) & uint64(len(m.keys)-1))
}

// empty reports whether probe is a slot that was never written (probing
// must stop there) as opposed to a tombstone (probing must continue past
// it, since a later entry may have been displaced beyond it).
func (m *Map) empty(probe int) bool {
	return m.keys[probe] == 0 && !m.tomb[probe]
}

// Get returns the value most recently Put for key, or 0 if key is absent
// (never inserted, or removed).
func (m *Map) Get(key int64) int64 {
	if key == 0 {
		return 0
	}

	n := len(m.keys)
	idx := m.slot(key)
	for i := 0; i < n; i++ {
		probe := (idx + i) % n
		if m.empty(probe) {
			return 0
		}
		if !m.tomb[probe] && m.keys[probe] == key {
			return m.vals[probe]
		}
	}
	return 0
}

// Put associates val with key. Key 0 is the reserved absent sentinel and is
// silently ignored. Put(key, 0) is equivalent to Remove(key).
func (m *Map) Put(key, val int64) {
	if key == 0 {
		return
	}
	if val == 0 {
		m.Remove(key)
		return
	}

	switch {
	case m.size+1 > m.threshold():
		m.rehash(len(m.keys) * 2)
	case m.size+m.dead+1 > m.threshold():
		// Tombstones alone would blow the load factor even though live
		// entries don't need more room: compact in place.
		m.rehash(len(m.keys))
	}
	m.insert(key, val)
}

func (m *Map) insert(key, val int64) {
	n := len(m.keys)
	idx := m.slot(key)
	firstTomb := -1
	for i := 0; i < n; i++ {
		probe := (idx + i) % n
		if m.empty(probe) {
			target := probe
			if firstTomb != -1 {
				target = firstTomb
				m.dead--
			}
			m.keys[target] = key
			m.vals[target] = val
			m.tomb[target] = false
			m.size++
			return
		}
		if !m.tomb[probe] && m.keys[probe] == key {
			m.vals[probe] = val
			return
		}
		if m.tomb[probe] && firstTomb == -1 {
			firstTomb = probe
		}
	}
	// unreachable: Put always ensures headroom below the load factor first
	panic("handles: table full despite rehash")
}

// Remove deletes key, returning its prior value (0 if it was absent).
func (m *Map) Remove(key int64) int64 {
	if key == 0 {
		return 0
	}

	n := len(m.keys)
	idx := m.slot(key)
	for i := 0; i < n; i++ {
		probe := (idx + i) % n
		if m.empty(probe) {
			return 0
		}
		if !m.tomb[probe] && m.keys[probe] == key {
			removed := m.vals[probe]
			m.tomb[probe] = true
			m.vals[probe] = 0
			m.size--
			m.dead++
			return removed
		}
	}
	return 0
}

// rehash rebuilds the table at newCap, re-inserting every live entry and
// dropping every tombstone.
func (m *Map) rehash(newCap int) {
	old := m
	grown := &Map{
		keys: make([]int64, newCap),
		vals: make([]int64, newCap),
		tomb: make([]bool, newCap),
	}
	for i, k := range old.keys {
		if k != 0 && !old.tomb[i] {
			grown.insert(k, old.vals[i])
		}
	}
	*m = *grown
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
