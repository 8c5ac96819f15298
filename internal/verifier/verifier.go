// Package verifier implements the correctness gate of a compression run:
// it asserts that two DeltaForests collapse to pointwise-equal StateMaps
// for every snapshot id, fanned out across a worker pool.
//
// Reference: the teacher repository's ParallelCompactionJob
// (internal/compaction/subcompaction.go) partitions work across goroutines
// and collects the first error; verifier adapts that shape from
// file-range subcompactions to per-SID equivalence checks, bounded by an
// errgroup.Group instead of a raw WaitGroup/atomic.Pointer pair so that a
// mismatch cancels the remaining in-flight comparisons cooperatively.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aalhour/statecompressor/internal/stateforest"
)

// Mismatch records the first SID where the two forests disagree, along
// with both collapsed maps and their xxh3 fingerprints for compact log
// output.
type Mismatch struct {
	SID            int64
	Old            *stateforest.StateMap
	New            *stateforest.StateMap
	OldFingerprint uint64
	NewFingerprint uint64
}

// Error wraps a Mismatch so it satisfies the error interface and can be
// located with errors.As.
type Error struct {
	Mismatch Mismatch
}

func (e *Error) Error() string {
	return fmt.Sprintf("verifier: mismatch at sid %d (old fingerprint %x, new fingerprint %x)",
		e.Mismatch.SID, e.Mismatch.OldFingerprint, e.Mismatch.NewFingerprint)
}

// Verify asserts that old and new collapse to equal StateMaps for every
// SID present in old. It fans comparisons out across
// runtime.GOMAXPROCS(0) workers using an errgroup.Group created with
// WithContext, so the first mismatch cancels the rest. Verify always
// runs to completion or returns the first error encountered — either a
// *Error describing a genuine mismatch, or a wrapped collapse error if
// either forest is malformed.
func Verify(ctx context.Context, old, newForest *stateforest.DeltaForest) error {
	sids := old.SIDs()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, sid := range sids {
		sid := sid
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			oldState, err := old.Collapse(sid)
			if err != nil {
				return fmt.Errorf("verifier: collapsing old forest at sid %d: %w", sid, err)
			}
			newState, err := newForest.Collapse(sid)
			if err != nil {
				return fmt.Errorf("verifier: collapsing new forest at sid %d: %w", sid, err)
			}

			if oldState.Equal(newState) {
				return nil
			}

			return &Error{Mismatch: Mismatch{
				SID:            sid,
				Old:            oldState,
				New:            newState,
				OldFingerprint: stateforest.Fingerprint(oldState),
				NewFingerprint: stateforest.Fingerprint(newState),
			}}
		})
	}

	return g.Wait()
}

// AsMismatch extracts the Mismatch from err if it (or something it wraps)
// is a *Error.
func AsMismatch(err error) (Mismatch, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Mismatch, true
	}
	return Mismatch{}, false
}
