// Package diffemitter serializes the difference between an old and a new
// DeltaForest into the SQL patch that rewrites the external store in
// place: edge-table and delta-table DELETE/INSERT statements, one block
// per changed snapshot id, optionally wrapped in a transaction and
// optionally compressed.
//
// Reference: the original state-compression tool's per-state-group
// writeln! block in main.rs (DELETE FROM state_group_edges / INSERT INTO
// state_group_edges / DELETE FROM state_groups_state / INSERT INTO
// state_groups_state ... VALUES, with PGEscapse escaping every string
// literal) and its five-space/four-space-comma continuation formatting
// for multi-row inserts.
package diffemitter

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/aalhour/statecompressor/internal/stateforest"
)

const (
	edgeTable  = "state_group_edges"
	deltaTable = "state_groups_state"
)

// Options configures one emission run.
type Options struct {
	// GroupingID is carried verbatim into every delta-row INSERT (the
	// room id in the original tool's domain).
	GroupingID string
	// WrapInTransactions brackets each changed SID's statements in
	// BEGIN;/COMMIT;.
	WrapInTransactions bool
}

// Emit writes the SQL patch transforming old into newForest to w. It
// walks SIDs in ascending order and, for every SID where the old and new
// entries differ (compared with Entry.Equal), writes one edit block.
// SIDs present only in newForest are not considered; a SID of old that is
// missing from newForest is an error.
func Emit(w io.Writer, old, newForest *stateforest.DeltaForest, opts Options) error {
	bw := bufio.NewWriter(w)

	for _, sid := range old.SIDs() {
		oldEntry := old.MustGet(sid)
		newEntry, ok := newForest.Get(sid)
		if !ok {
			return fmt.Errorf("diffemitter: sid %d present in old forest but missing from new forest", sid)
		}
		if oldEntry.Equal(newEntry) {
			continue
		}
		if err := emitBlock(bw, sid, newEntry, opts); err != nil {
			return fmt.Errorf("diffemitter: sid %d: %w", sid, err)
		}
	}

	return bw.Flush()
}

func emitBlock(w *bufio.Writer, sid int64, newEntry stateforest.Entry, opts Options) error {
	if opts.WrapInTransactions {
		if _, err := fmt.Fprintln(w, "BEGIN;"); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "DELETE FROM %s WHERE state_group = %d;\n", edgeTable, sid); err != nil {
		return err
	}

	if newEntry.HasPredecessor {
		if _, err := fmt.Fprintf(w, "INSERT INTO %s (state_group, prev_state_group) VALUES (%d, %d);\n",
			edgeTable, sid, newEntry.Predecessor); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "DELETE FROM %s WHERE state_group = %d;\n", deltaTable, sid); err != nil {
		return err
	}

	if !newEntry.Delta.IsEmpty() {
		if err := emitInsertRows(w, sid, newEntry.Delta, opts.GroupingID); err != nil {
			return err
		}
	}

	if opts.WrapInTransactions {
		if _, err := fmt.Fprintln(w, "COMMIT;"); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

func emitInsertRows(w *bufio.Writer, sid int64, delta *stateforest.StateMap, groupingID string) error {
	if _, err := fmt.Fprintf(w, "INSERT INTO %s (state_group, room_id, type, state_key, event_id) VALUES\n", deltaTable); err != nil {
		return err
	}

	first := true
	for key, eventID := range delta.Iterate() {
		prefix := "    ,"
		if first {
			prefix = "     "
			first = false
		}
		_, err := fmt.Fprintf(w, "%s(%d, %s, %s, %s, %s)\n",
			prefix, sid, pgEscape(groupingID), pgEscape(key.Type), pgEscape(key.StateKey), pgEscape(eventID))
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, ";")
	return err
}

// pgEscape doubles any embedded single quote and wraps the result in
// single quotes. No other characters are special in the target format.
// Named after the original tool's PGEscapse helper.
func pgEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteByte('\'')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}
