package stateforest

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// ErrDuplicateSID is returned by Insert when a snapshot id is already
// present in the forest.
var ErrDuplicateSID = errors.New("stateforest: duplicate sid")

// ErrMissingPredecessor is the ForestInvariantViolation raised when
// Collapse walks off the edge of the forest: the closure invariant
// guarantees this never happens for well-formed input, so its presence
// signals a loader bug, not a user error.
var ErrMissingPredecessor = errors.New("stateforest: missing predecessor")

// ErrCycleDetected is the ForestInvariantViolation raised when Collapse
// revisits a sid while walking predecessors. The acyclicity invariant
// guarantees this never happens for well-formed input; it is a defensive
// check against corrupt data, not a recoverable condition.
var ErrCycleDetected = errors.New("stateforest: cycle detected")

// Entry is a single snapshot: an optional predecessor and the delta
// (or full state, if rootful) relative to it.
type Entry struct {
	Predecessor    int64
	HasPredecessor bool
	Delta          *StateMap
}

// NewRootEntry returns an Entry with no predecessor.
func NewRootEntry(delta *StateMap) Entry {
	return Entry{Delta: delta}
}

// NewChildEntry returns an Entry whose delta is relative to predecessor.
func NewChildEntry(predecessor int64, delta *StateMap) Entry {
	return Entry{Predecessor: predecessor, HasPredecessor: true, Delta: delta}
}

// Equal reports whether e and other describe the same predecessor and an
// equal delta.
func (e Entry) Equal(other Entry) bool {
	if e.HasPredecessor != other.HasPredecessor {
		return false
	}
	if e.HasPredecessor && e.Predecessor != other.Predecessor {
		return false
	}
	return e.Delta.Equal(other.Delta)
}

// DeltaForest is an ordered mapping from snapshot id (SID) to Entry.
//
// Invariants maintained by well-formed input (see Collapse for the
// defensive checks against their violation):
//   - Acyclic: following Predecessor from any sid reaches a rootful entry
//     in finitely many steps.
//   - Closed: every referenced Predecessor sid is itself a key.
//   - Monotone (input forests only): Predecessor < sid for every entry.
type DeltaForest struct {
	entries map[int64]Entry
}

// New returns an empty DeltaForest.
func New() *DeltaForest {
	return &DeltaForest{entries: make(map[int64]Entry)}
}

// Insert adds entry under sid. It returns ErrDuplicateSID if sid is
// already present.
func (f *DeltaForest) Insert(sid int64, entry Entry) error {
	if _, ok := f.entries[sid]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateSID, sid)
	}
	f.entries[sid] = entry
	return nil
}

// Get returns the entry for sid and whether it was present.
func (f *DeltaForest) Get(sid int64) (Entry, bool) {
	e, ok := f.entries[sid]
	return e, ok
}

// MustGet returns the entry for sid, panicking if it is absent. Use this
// only where forest closure has already been established (e.g. by the
// loader, or by the compressor's own bookkeeping); it is the same "this
// can't happen for well-formed input" panic the original tool raised on a
// missing map lookup.
func (f *DeltaForest) MustGet(sid int64) Entry {
	e, ok := f.entries[sid]
	if !ok {
		panic(fmt.Sprintf("stateforest: missing sid %d", sid))
	}
	return e
}

// Len returns the number of snapshots in the forest.
func (f *DeltaForest) Len() int {
	return len(f.entries)
}

// SIDs returns every snapshot id in the forest, sorted ascending.
func (f *DeltaForest) SIDs() []int64 {
	sids := make([]int64, 0, len(f.entries))
	for sid := range f.entries {
		sids = append(sids, sid)
	}
	slices.Sort(sids)
	return sids
}

// Iter yields every (sid, entry) pair in the forest in ascending sid
// order.
func (f *DeltaForest) Iter() iter.Seq2[int64, Entry] {
	return func(yield func(int64, Entry) bool) {
		for _, sid := range f.SIDs() {
			if !yield(sid, f.entries[sid]) {
				return
			}
		}
	}
}

// Collapse computes the collapsed state of sid: the StateMap obtained by
// walking the predecessor chain to the root and folding deltas left to
// right, nearer deltas overwriting farther ones.
func (f *DeltaForest) Collapse(sid int64) (*StateMap, error) {
	visited := make(map[int64]bool)
	chain := make([]int64, 0, 8)

	cur := sid
	for {
		if visited[cur] {
			return nil, fmt.Errorf("%w: at sid %d", ErrCycleDetected, cur)
		}
		visited[cur] = true
		chain = append(chain, cur)

		entry, ok := f.entries[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrMissingPredecessor, cur)
		}
		if !entry.HasPredecessor {
			break
		}
		cur = entry.Predecessor
	}

	result := NewStateMap()
	for i := len(chain) - 1; i >= 0; i-- {
		result.Extend(f.entries[chain[i]].Delta)
	}
	return result, nil
}
