// Package loader reads the edge and delta rows for one grouping id from
// Postgres and joins them in memory into a stateforest.DeltaForest.
//
// Reference: the original state-compression tool's get_data_from_db
// (main.rs), which issues two queries scoped by room_id and an optional
// max_state_group bound, then folds the rows into a
// BTreeMap<i64, StateGroupEntry>. This package adapts that two-query,
// in-memory join to jackc/pgx/v5's pgxpool, the connection-pooled
// Postgres driver used across the retrieved Postgres-backed projects in
// this corpus.
package loader

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aalhour/statecompressor/internal/interning"
	"github.com/aalhour/statecompressor/internal/stateforest"
)

// Error wraps any connection, query, or row-decode failure encountered
// while loading a forest.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("loader: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Options configures one load.
type Options struct {
	GroupingID string
	MaxSID     int64
	HasMaxSID  bool
}

const edgeQuery = `
SELECT state_group, prev_state_group
FROM state_group_edges
WHERE room_id = $1`

const edgeQueryBounded = `
SELECT state_group, prev_state_group
FROM state_group_edges
WHERE room_id = $1 AND state_group <= $2`

const deltaQuery = `
SELECT state_group, type, state_key, event_id
FROM state_groups_state
WHERE room_id = $1`

const deltaQueryBounded = `
SELECT state_group, type, state_key, event_id
FROM state_groups_state
WHERE room_id = $1 AND state_group <= $2`

// Load connects to the Postgres instance at databaseURL, fetches the
// edge and delta rows for opts.GroupingID (optionally bounded by
// opts.MaxSID), and joins them in memory into a DeltaForest. Strings are
// interned through interner, which may be nil to skip interning.
func Load(ctx context.Context, databaseURL string, opts Options, interner *interning.Table) (*stateforest.DeltaForest, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}
	defer pool.Close()

	predecessors, err := loadEdges(ctx, pool, opts)
	if err != nil {
		return nil, err
	}

	deltas, sidsWithDeltas, err := loadDeltas(ctx, pool, opts, interner)
	if err != nil {
		return nil, err
	}

	forest, err := join(predecessors, deltas, sidsWithDeltas)
	if err != nil {
		return nil, &Error{Op: "join", Err: err}
	}
	return forest, nil
}

// join builds a DeltaForest from the edge and delta rows already fetched
// into memory. The forest's SID universe is every child sid, every sid
// referenced as someone else's predecessor, and every sid with delta
// rows — not just the child side of an edge. A predecessor with no edge
// row of its own and no delta rows is still a legitimate root entry (an
// empty-delta snapshot), and every other SID's predecessor reference must
// resolve to something in the forest.
func join(predecessors map[int64]int64, deltas map[int64]*stateforest.StateMap, sidsWithDeltas []int64) (*stateforest.DeltaForest, error) {
	forest := stateforest.New()
	seen := make(map[int64]bool, 2*len(predecessors)+len(deltas))

	insert := func(sid int64) error {
		if seen[sid] {
			return nil
		}
		seen[sid] = true

		delta, ok := deltas[sid]
		if !ok {
			delta = stateforest.NewStateMap()
		}

		var entry stateforest.Entry
		if prev, hasPrev := predecessors[sid]; hasPrev {
			entry = stateforest.NewChildEntry(prev, delta)
		} else {
			entry = stateforest.NewRootEntry(delta)
		}
		return forest.Insert(sid, entry)
	}

	for sid, prev := range predecessors {
		if err := insert(sid); err != nil {
			return nil, err
		}
		if err := insert(prev); err != nil {
			return nil, err
		}
	}
	for _, sid := range sidsWithDeltas {
		if err := insert(sid); err != nil {
			return nil, err
		}
	}

	return forest, nil
}

func loadEdges(ctx context.Context, pool *pgxpool.Pool, opts Options) (map[int64]int64, error) {
	query, args := edgeQuery, []any{opts.GroupingID}
	if opts.HasMaxSID {
		query, args = edgeQueryBounded, []any{opts.GroupingID, opts.MaxSID}
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &Error{Op: "query edges", Err: err}
	}
	defer rows.Close()

	predecessors := make(map[int64]int64)
	for rows.Next() {
		var sid, prev int64
		if err := rows.Scan(&sid, &prev); err != nil {
			return nil, &Error{Op: "scan edge row", Err: err}
		}
		predecessors[sid] = prev
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "read edges", Err: err}
	}
	return predecessors, nil
}

func loadDeltas(ctx context.Context, pool *pgxpool.Pool, opts Options, interner *interning.Table) (map[int64]*stateforest.StateMap, []int64, error) {
	query, args := deltaQuery, []any{opts.GroupingID}
	if opts.HasMaxSID {
		query, args = deltaQueryBounded, []any{opts.GroupingID, opts.MaxSID}
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, &Error{Op: "query deltas", Err: err}
	}
	defer rows.Close()

	intern := func(s string) string {
		if interner == nil {
			return s
		}
		return interner.Intern(s)
	}

	deltas := make(map[int64]*stateforest.StateMap)
	var order []int64
	for rows.Next() {
		var sid int64
		var typ, stateKey, eventID string
		if err := rows.Scan(&sid, &typ, &stateKey, &eventID); err != nil {
			return nil, nil, &Error{Op: "scan delta row", Err: err}
		}

		m, ok := deltas[sid]
		if !ok {
			m = stateforest.NewStateMap()
			deltas[sid] = m
			order = append(order, sid)
		}
		m.Insert(stateforest.StateKey{Type: intern(typ), StateKey: intern(stateKey)}, intern(eventID))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, &Error{Op: "read deltas", Err: err}
	}
	return deltas, order, nil
}
