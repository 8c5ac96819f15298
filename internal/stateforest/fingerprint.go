package stateforest

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Fingerprint computes a deterministic 64-bit digest of a collapsed
// StateMap, suitable for compact logging of VerifierMismatch diagnostics
// and for comparing two runs' final summaries without diffing full maps
// by eye.
//
// The digest folds (type, state_key, event_id) in sorted order into a
// single xxh3 stream, so two StateMaps with the same entries always
// fingerprint identically regardless of how they were built.
//
// Reference: the teacher repository's internal/checksum package computes
// RocksDB-compatible block checksums (CRC32C, XXH3) the same way — hash a
// canonical byte representation of the data, not its in-memory layout.
func Fingerprint(m *StateMap) uint64 {
	h := xxh3.New()
	var lenBuf [8]byte
	writeField := func(s string) {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(s)))
		h.Write(lenBuf[:])
		h.WriteString(s)
	}
	for k, v := range m.Iterate() {
		writeField(k.Type)
		writeField(k.StateKey)
		writeField(v)
	}
	return h.Sum64()
}
