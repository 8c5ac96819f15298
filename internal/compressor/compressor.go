// Package compressor implements the re-parenting algorithm that rewrites a
// DeltaForest into an equivalent one with shorter predecessor chains,
// driven by a levelstack.LevelStack.
//
// Reference: the original state-compression tool's per-state-group loop in
// main.rs (building new_state_group_map / new_state_group_deltas while
// advancing a LevelState), and the teacher repository's
// internal/compaction package for the surrounding Go idiom — a picker
// deciding placement, a builder accumulating the new generation, and a
// Stats struct summarizing what happened.
package compressor

import (
	"context"

	"github.com/aalhour/statecompressor/internal/levelstack"
	"github.com/aalhour/statecompressor/internal/stateforest"
)

// Stats summarizes one compression run.
type Stats struct {
	ResetsNoSuitablePrev     int
	ResetsNoSuitablePrevSize int
	StateGroupsChanged       int
}

// Compressor rewrites a DeltaForest using a LevelStack to bound
// predecessor chain length.
//
// Compressor is single-threaded and sequential: the LevelStack and the
// new-forest collapse cache it maintains are not safe for concurrent use.
type Compressor struct {
	capacities []int
}

// New returns a Compressor configured with the given level capacities.
// Capacities are validated lazily, on the first call to Run, via
// levelstack.NewLevelStack.
func New(capacities []int) *Compressor {
	return &Compressor{capacities: capacities}
}

// Run rewrites forest into a new, equivalent DeltaForest whose predecessor
// chains are bounded by the configured level capacities. It processes
// SIDs in ascending order and returns ctx.Err() if ctx is cancelled
// between SIDs.
func (c *Compressor) Run(ctx context.Context, forest *stateforest.DeltaForest) (*stateforest.DeltaForest, Stats, error) {
	stack, err := levelstack.NewLevelStack(c.capacities)
	if err != nil {
		return nil, Stats{}, err
	}

	result := stateforest.New()
	cache := make(map[int64]*stateforest.StateMap, forest.Len())
	var stats Stats

	collapseNew := func(sid int64) (*stateforest.StateMap, error) {
		if m, ok := cache[sid]; ok {
			return m, nil
		}
		m, err := result.Collapse(sid)
		if err != nil {
			return nil, err
		}
		cache[sid] = m
		return m, nil
	}

	for _, sid := range forest.SIDs() {
		select {
		case <-ctx.Done():
			return nil, Stats{}, ctx.Err()
		default:
		}

		oldEntry := forest.MustGet(sid)
		collapsedOld, err := forest.Collapse(sid)
		if err != nil {
			return nil, Stats{}, err
		}

		newEntry, forcedReset, err := c.placeOne(stack, result, collapseNew, sid, collapsedOld)
		if err != nil {
			return nil, Stats{}, err
		}
		if forcedReset {
			stats.ResetsNoSuitablePrev++
			stats.ResetsNoSuitablePrevSize += collapsedOld.Len()
		}

		if err := result.Insert(sid, newEntry); err != nil {
			return nil, Stats{}, err
		}
		cache[sid] = collapsedOld

		if !newEntry.Equal(oldEntry) {
			stats.StateGroupsChanged++
		}
	}

	return result, stats, nil
}

// placeOne computes the replacement Entry for sid and advances stack
// accordingly. It returns whether the placement was a forced reset (no
// space, or an unusable candidate).
func (c *Compressor) placeOne(
	stack *levelstack.LevelStack,
	result *stateforest.DeltaForest,
	collapseNew func(int64) (*stateforest.StateMap, error),
	sid int64,
	collapsedOld *stateforest.StateMap,
) (stateforest.Entry, bool, error) {
	if !stack.HasSpace() {
		stack.Reset()
		if err := stack.Place(sid); err != nil {
			return stateforest.Entry{}, false, err
		}
		return stateforest.NewRootEntry(collapsedOld), true, nil
	}

	candidatePrev, ok := stack.FindPrevious()
	if !ok {
		if err := stack.Place(sid); err != nil {
			return stateforest.Entry{}, false, err
		}
		return stateforest.NewRootEntry(collapsedOld), false, nil
	}

	candidateState, err := collapseNew(candidatePrev)
	if err != nil {
		return stateforest.Entry{}, false, err
	}

	delta, valid := candidateValid(candidateState, collapsedOld)
	if !valid {
		stack.Reset()
		if err := stack.Place(sid); err != nil {
			return stateforest.Entry{}, false, err
		}
		return stateforest.NewRootEntry(collapsedOld), true, nil
	}

	if err := stack.Place(sid); err != nil {
		return stateforest.Entry{}, false, err
	}
	return stateforest.NewChildEntry(candidatePrev, delta), false, nil
}

// candidateValid reports whether prev (the candidate predecessor's
// collapsed state in the new forest) can serve as the base for cur (the
// current snapshot's collapsed state in the old forest), and if so
// returns the delta that reproduces cur on top of prev.
//
// The candidate is valid iff prev is a key-subset of cur with agreement
// on every shared key: every key present in prev must also be present in
// cur with the same value, because the emitted wire format has no
// tombstone to encode "delete this key". When valid, the delta contains
// exactly the keys where cur disagrees with prev (new keys, or keys whose
// value changed).
//
// This predicate is deliberately isolated in its own function: a future
// tombstone-aware format could relax it to unconditional per-key
// disagreement without touching the surrounding loop.
func candidateValid(prev, cur *stateforest.StateMap) (*stateforest.StateMap, bool) {
	delta := stateforest.NewStateMap()
	for k, v := range prev.Iterate() {
		if cv, ok := cur.Get(k); !ok || cv != v {
			return nil, false
		}
	}
	for k, v := range cur.Iterate() {
		if pv, ok := prev.Get(k); !ok || pv != v {
			delta.Insert(k, v)
		}
	}
	return delta, true
}
