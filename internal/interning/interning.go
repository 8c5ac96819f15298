// Package interning provides a process-local string interning table that
// bounds the memory footprint of the heavily repeated type, state_key,
// and event_id strings flowing through a delta forest.
//
// Reference: the original state-compression tool interned these same
// three string classes via string_cache::DefaultAtom, sharing one
// backing allocation for every distinct value seen across a run. Go has
// no equivalent in the standard library before the Go 1.23+ unique
// package; this table plays the same role for callers who want it, and
// is kept separate from stateforest so that correctness (StateMap/
// DeltaForest equality compares by value, never by pointer identity)
// never depends on whether a caller chose to intern.
//
// Grounded on the shape of the teacher's internal/cache package (a
// mutex-protected map guarding a shared table of reusable values), with
// eviction dropped: interned strings are never released mid-run, the
// same no-eviction simplification the compressor's collapse cache makes.
package interning

import "sync"

// Table is a concurrency-safe string interning table. The zero value is
// ready to use.
type Table struct {
	mu      sync.RWMutex
	strings map[string]string
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{strings: make(map[string]string)}
}

// Intern returns the canonical copy of s. Repeated calls with equal
// strings return the same backing string value, so a large number of
// repeated StateKey/event_id strings collapse to one allocation each.
func (t *Table) Intern(s string) string {
	t.mu.RLock()
	if canonical, ok := t.strings[s]; ok {
		t.mu.RUnlock()
		return canonical
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if canonical, ok := t.strings[s]; ok {
		return canonical
	}
	if t.strings == nil {
		t.strings = make(map[string]string)
	}
	t.strings[s] = s
	return s
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strings)
}
