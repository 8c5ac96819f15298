// Package levelstack implements the bookkeeping structure that bounds how
// long a rewritten predecessor chain may grow: an ordered sequence of
// levels, each with a fixed capacity, where placing a new snapshot id
// promotes it to the head of the lowest level with spare room and clears
// every level below it.
//
// Reference: the teacher repository's internal/compaction.LeveledCompactionPicker
// (internal/compaction/picker.go) tracks an ordered sequence of levels with
// per-level capacity and a "does this level need attention" control flow.
// LevelStack adapts that shape from file-count-triggered LSM levels to
// snapshot-count-triggered chain levels: instead of scoring levels by
// occupancy and picking one to compact, it tracks a single head id per
// level and resets lower levels whenever a higher one accepts a new head,
// the way an odometer's lower digits roll over to zero on a carry.
package levelstack

import (
	"errors"
	"fmt"
)

// ErrInvalidLevelSizes is returned by NewLevelStack when the capacity list
// is empty or contains a non-positive capacity.
var ErrInvalidLevelSizes = errors.New("levelstack: invalid level sizes")

// ErrStackFull is returned by Place when called without first checking
// HasSpace.
var ErrStackFull = errors.New("levelstack: stack full")

type level struct {
	capacity int
	count    int
	head     int64
	hasHead  bool
}

// LevelStack tracks one head snapshot id per level, across an ordered list
// of capacities. It is not safe for concurrent use; the compressor owns a
// single LevelStack and drives it sequentially.
type LevelStack struct {
	levels []level
}

// NewLevelStack returns a LevelStack configured with capacities, lowest
// level first. It returns ErrInvalidLevelSizes if capacities is empty or
// any entry is less than 1.
func NewLevelStack(capacities []int) (*LevelStack, error) {
	if len(capacities) == 0 {
		return nil, fmt.Errorf("%w: empty level list", ErrInvalidLevelSizes)
	}
	levels := make([]level, len(capacities))
	for i, c := range capacities {
		if c < 1 {
			return nil, fmt.Errorf("%w: level %d has capacity %d", ErrInvalidLevelSizes, i, c)
		}
		levels[i] = level{capacity: c}
	}
	return &LevelStack{levels: levels}, nil
}

// FindPrevious returns the head of the lowest non-empty level. The bool is
// false if every level is empty, meaning there is no candidate predecessor.
func (s *LevelStack) FindPrevious() (int64, bool) {
	for i := range s.levels {
		if s.levels[i].hasHead {
			return s.levels[i].head, true
		}
	}
	return 0, false
}

// HasSpace reports whether any level has room to accept a new head.
func (s *LevelStack) HasSpace() bool {
	for i := range s.levels {
		if s.levels[i].count < s.levels[i].capacity {
			return true
		}
	}
	return false
}

// Place records sid as the new head of the lowest level with spare
// capacity, incrementing that level's count and resetting every level
// below it (count 0, head absent) — the same odometer-carry semantics as
// the distilled algorithm's "reset lower levels" step. It returns
// ErrStackFull if HasSpace would report false; callers are expected to
// check HasSpace before calling Place.
func (s *LevelStack) Place(sid int64) error {
	for i := range s.levels {
		if s.levels[i].count < s.levels[i].capacity {
			s.levels[i].count++
			s.levels[i].head = sid
			s.levels[i].hasHead = true
			for j := 0; j < i; j++ {
				s.levels[j].count = 0
				s.levels[j].head = 0
				s.levels[j].hasHead = false
			}
			return nil
		}
	}
	return ErrStackFull
}

// Reset clears every level to its empty state (count 0, head absent).
func (s *LevelStack) Reset() {
	for i := range s.levels {
		s.levels[i].count = 0
		s.levels[i].head = 0
		s.levels[i].hasHead = false
	}
}
