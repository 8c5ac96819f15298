// Package stateforest implements the in-memory data model for delta
// forests: StateMap, DeltaForest, and the collapse operation that folds a
// predecessor chain into a full key-value mapping.
//
// Reference: the original state-compression tool's StateMap (via
// string_cache::DefaultAtom) and its collapse_state_maps walk over a
// BTreeMap<i64, StateGroupEntry>.
package stateforest

import (
	"cmp"
	"iter"
	"slices"
)

// StateKey is a composite key (type, state_key). Both components are short,
// heavily repeated strings; see package interning for the process-local
// interning table that bounds their memory footprint.
type StateKey struct {
	Type     string
	StateKey string
}

// Compare orders StateKeys lexicographically by Type then StateKey.
func (k StateKey) Compare(o StateKey) int {
	if c := cmp.Compare(k.Type, o.Type); c != 0 {
		return c
	}
	return cmp.Compare(k.StateKey, o.StateKey)
}

// StateMap is an ordered associative container mapping StateKey to an
// event_id value. Iteration is always in sorted key order so that two
// equal maps produce byte-identical diff output regardless of insertion
// history.
//
// StateMap has no concurrency contract: callers must synchronize access
// from multiple goroutines themselves.
type StateMap struct {
	entries map[StateKey]string
}

// NewStateMap returns an empty StateMap.
func NewStateMap() *StateMap {
	return &StateMap{entries: make(map[StateKey]string)}
}

// Insert sets key to value, overwriting any existing value for key.
func (m *StateMap) Insert(key StateKey, value string) {
	m.entries[key] = value
}

// Extend overwrites entries in m with every entry present in other. Keys
// absent from other are left untouched.
func (m *StateMap) Extend(other *StateMap) {
	for k, v := range other.entries {
		m.entries[k] = v
	}
}

// Get returns the value for key and whether it was present.
func (m *StateMap) Get(key StateKey) (string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Len returns the number of entries.
func (m *StateMap) Len() int {
	return len(m.entries)
}

// IsEmpty reports whether the map has no entries.
func (m *StateMap) IsEmpty() bool {
	return len(m.entries) == 0
}

// Clone returns an independent copy of m.
func (m *StateMap) Clone() *StateMap {
	clone := make(map[StateKey]string, len(m.entries))
	for k, v := range m.entries {
		clone[k] = v
	}
	return &StateMap{entries: clone}
}

// Equal reports whether m and other contain exactly the same key-value
// pairs.
func (m *StateMap) Equal(other *StateMap) bool {
	if other == nil {
		return m == nil || len(m.entries) == 0
	}
	if m == nil {
		return len(other.entries) == 0
	}
	if len(m.entries) != len(other.entries) {
		return false
	}
	for k, v := range m.entries {
		ov, ok := other.entries[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// sortedKeys returns the map's keys in Compare order.
func (m *StateMap) sortedKeys() []StateKey {
	keys := make([]StateKey, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, StateKey.Compare)
	return keys
}

// Iterate yields (key, value) pairs in stable, deterministic (type,
// state_key) sorted order.
func (m *StateMap) Iterate() iter.Seq2[StateKey, string] {
	return func(yield func(StateKey, string) bool) {
		for _, k := range m.sortedKeys() {
			if !yield(k, m.entries[k]) {
				return
			}
		}
	}
}
