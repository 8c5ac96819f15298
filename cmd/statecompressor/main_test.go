package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aalhour/statecompressor/internal/config"
	"github.com/aalhour/statecompressor/internal/diffemitter"
	"github.com/aalhour/statecompressor/internal/levelstack"
	"github.com/aalhour/statecompressor/internal/stateforest"
)

func TestExitCodeForCompressorError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"stack full", levelstack.ErrStackFull, exitCompressorProtocolError},
		{"invalid level sizes", levelstack.ErrInvalidLevelSizes, exitCompressorProtocolError},
		{"missing predecessor", stateforest.ErrMissingPredecessor, exitForestInvariantViolation},
		{"cycle detected", stateforest.ErrCycleDetected, exitForestInvariantViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeForCompressorError(tt.err); got != tt.want {
				t.Errorf("exitCodeForCompressorError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestEmitPatch_WritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patch.sql")

	old := stateforest.New()
	old.Insert(1, stateforest.NewRootEntry(stateforest.NewStateMap()))

	delta := stateforest.NewStateMap()
	delta.Insert(stateforest.StateKey{Type: "m", StateKey: ""}, "e1")
	newForest := stateforest.New()
	newForest.Insert(1, stateforest.NewRootEntry(delta))

	cfg := config.Config{
		GroupingID:        "room1",
		OutputPath:        path,
		OutputCompression: diffemitter.CodecNone,
	}

	if err := emitPatch(cfg, old, newForest); err != nil {
		t.Fatalf("emitPatch: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(contents), "INSERT INTO state_groups_state") {
		t.Fatalf("expected patch to contain an insert statement, got:\n%s", contents)
	}
}
