// Command statecompressor rewrites a room's state-group delta forest
// into an equivalent forest with shorter predecessor chains and emits an
// SQL patch for the external store.
//
// Usage:
//
//	statecompressor -db=<url> -room=<id> [options]
//
// Reference: the original state-compression tool's clap-based CLI in
// main.rs (database-url, room_id, max_state_group, output-file,
// transactions, level-sizes) and the teacher repository's cmd/ldb
// stdlib-flag CLI shape: package-level flag.* vars, a single main that
// validates then dispatches, os.Exit with a distinct code per failure
// class.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/aalhour/statecompressor/internal/compressor"
	"github.com/aalhour/statecompressor/internal/config"
	"github.com/aalhour/statecompressor/internal/diffemitter"
	"github.com/aalhour/statecompressor/internal/interning"
	"github.com/aalhour/statecompressor/internal/levelstack"
	"github.com/aalhour/statecompressor/internal/loader"
	"github.com/aalhour/statecompressor/internal/logging"
	"github.com/aalhour/statecompressor/internal/stateforest"
	"github.com/aalhour/statecompressor/internal/verifier"
)

var (
	databaseURL  = flag.String("db", "", "Postgres connection string (required)")
	groupingID   = flag.String("room", "", "Grouping id (room id) to compress (required)")
	maxSID       = flag.String("max-state-group", "", "Optional upper bound on snapshot id")
	outputPath   = flag.String("o", "", "Output path for the SQL patch (optional)")
	transactions = flag.Bool("transactions", false, "Wrap each changed snapshot's edits in BEGIN;/COMMIT;")
	levelSizes   = flag.String("level-sizes", "", "Comma-separated level capacities (default 100,50,25)")
	logLevel     = flag.String("log-level", "", "error|warn|info|debug (default info)")
	outputCodec  = flag.String("output-compression", "", "none|gzip|snappy|zstd|lz4 (default none)")
)

// Exit codes, one per fatal error kind named in the error taxonomy.
const (
	exitOK = iota
	exitConfigError
	exitLoaderError
	exitForestInvariantViolation
	exitCompressorProtocolError
	exitVerifierMismatch
	exitEmitterIoError
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg, err := config.Parse(config.Raw{
		DatabaseURL:        *databaseURL,
		GroupingID:         *groupingID,
		MaxSID:             *maxSID,
		OutputPath:         *outputPath,
		WrapInTransactions: *transactions,
		LevelSizes:         *levelSizes,
		LogLevel:           *logLevel,
		OutputCompression:  *outputCodec,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "statecompressor: %v\n", err)
		return exitConfigError
	}

	log := logging.NewDefaultLogger(cfg.LogLevel)
	ctx := context.Background()

	log.Infof("%sfetching state for grouping id %q", logging.NSLoad, cfg.GroupingID)
	interner := interning.NewTable()
	original, err := loader.Load(ctx, cfg.DatabaseURL, loader.Options{
		GroupingID: cfg.GroupingID,
		MaxSID:     cfg.MaxSID,
		HasMaxSID:  cfg.HasMaxSID,
	}, interner)
	if err != nil {
		log.Errorf("%s%v", logging.NSLoad, err)
		return exitLoaderError
	}
	log.Infof("%snumber of snapshots: %d", logging.NSLoad, original.Len())

	log.Infof("%scompressing with level sizes %v", logging.NSCompress, cfg.LevelSizes)
	c := compressor.New(cfg.LevelSizes)
	compressed, stats, err := c.Run(ctx, original)
	if err != nil {
		log.Errorf("%s%v", logging.NSCompress, err)
		return exitCodeForCompressorError(err)
	}
	log.Infof("%sstate groups changed: %d, resets (no suitable predecessor): %d (total size %d)",
		logging.NSCompress, stats.StateGroupsChanged, stats.ResetsNoSuitablePrev, stats.ResetsNoSuitablePrevSize)

	log.Infof("%sverifying equivalence", logging.NSVerify)
	if err := verifier.Verify(ctx, original, compressed); err != nil {
		if mismatch, ok := verifier.AsMismatch(err); ok {
			log.Errorf("%smismatch at sid %d (old fingerprint %x, new fingerprint %x)",
				logging.NSVerify, mismatch.SID, mismatch.OldFingerprint, mismatch.NewFingerprint)
			return exitVerifierMismatch
		}
		log.Errorf("%s%v", logging.NSVerify, err)
		return exitForestInvariantViolation
	}
	log.Infof("%sverification passed", logging.NSVerify)

	if cfg.OutputPath == "" {
		log.Infof("%sno output path configured, skipping diff emission", logging.NSEmit)
		return exitOK
	}

	if err := emitPatch(cfg, original, compressed); err != nil {
		log.Errorf("%s%v", logging.NSEmit, err)
		return exitEmitterIoError
	}
	log.Infof("%swrote patch to %s", logging.NSEmit, cfg.OutputPath)

	return exitOK
}

// emitPatch writes the SQL patch transforming original into compressed to
// cfg.OutputPath, wrapping the output stream in the configured
// compression codec.
func emitPatch(cfg config.Config, original, compressed *stateforest.DeltaForest) error {
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	w, err := diffemitter.NewWriter(cfg.OutputCompression, f)
	if err != nil {
		return err
	}

	if err := diffemitter.Emit(w, original, compressed, diffemitter.Options{
		GroupingID:         cfg.GroupingID,
		WrapInTransactions: cfg.WrapInTransactions,
	}); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}

// exitCodeForCompressorError distinguishes a CompressorProtocolError
// (levelstack.ErrStackFull — an internal bug, place called on a full
// stack) from a ForestInvariantViolation surfacing from the underlying
// collapse (missing predecessor or cycle).
func exitCodeForCompressorError(err error) int {
	if errors.Is(err, levelstack.ErrStackFull) || errors.Is(err, levelstack.ErrInvalidLevelSizes) {
		return exitCompressorProtocolError
	}
	if errors.Is(err, stateforest.ErrMissingPredecessor) || errors.Is(err, stateforest.ErrCycleDetected) || errors.Is(err, stateforest.ErrDuplicateSID) {
		return exitForestInvariantViolation
	}
	return exitForestInvariantViolation
}
