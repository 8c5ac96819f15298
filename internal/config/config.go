// Package config parses and validates the configuration surface of a
// compression run: the Postgres connection, the grouping id to compress,
// the level sizes bounding the rewrite, and the ambient logging/output
// options.
//
// Reference: the original state-compression tool's clap-based argument
// definitions in main.rs (database-url, room_id, max_state_group,
// output-file, transactions, level-sizes default "100,50,25") and its
// LevelSizes::FromStr comma-separated parser.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aalhour/statecompressor/internal/diffemitter"
	"github.com/aalhour/statecompressor/internal/logging"
)

// ConfigError reports a malformed or missing configuration value.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// DefaultLevelSizes mirrors the original tool's default "100,50,25".
var DefaultLevelSizes = []int{100, 50, 25}

// Config is the validated configuration for one compression run.
type Config struct {
	DatabaseURL        string
	GroupingID         string
	MaxSID             int64
	HasMaxSID          bool
	OutputPath         string
	WrapInTransactions bool
	LevelSizes         []int
	LogLevel           logging.Level
	OutputCompression  diffemitter.Codec
}

// Raw holds the unparsed configuration surface, typically populated
// directly from CLI flags before calling Parse.
type Raw struct {
	DatabaseURL        string
	GroupingID         string
	MaxSID             string // empty means unset
	OutputPath         string
	WrapInTransactions bool
	LevelSizes         string // comma-separated, e.g. "100,50,25"
	LogLevel           string
	OutputCompression  string
}

// Parse validates r and returns a Config, or the first ConfigError found.
func Parse(r Raw) (Config, error) {
	if r.DatabaseURL == "" {
		return Config{}, &ConfigError{Field: "database_url", Msg: "is required"}
	}
	if r.GroupingID == "" {
		return Config{}, &ConfigError{Field: "grouping_id", Msg: "is required"}
	}
	if r.WrapInTransactions && r.OutputPath == "" {
		return Config{}, &ConfigError{Field: "wrap_in_transactions", Msg: "requires output_path"}
	}

	cfg := Config{
		DatabaseURL:        r.DatabaseURL,
		GroupingID:         r.GroupingID,
		OutputPath:         r.OutputPath,
		WrapInTransactions: r.WrapInTransactions,
	}

	if r.MaxSID != "" {
		sid, err := strconv.ParseInt(r.MaxSID, 10, 64)
		if err != nil {
			return Config{}, &ConfigError{Field: "max_sid", Msg: "must be an integer"}
		}
		cfg.MaxSID = sid
		cfg.HasMaxSID = true
	}

	levelSizes, err := ParseLevelSizes(r.LevelSizes)
	if err != nil {
		return Config{}, err
	}
	cfg.LevelSizes = levelSizes

	level, ok := logging.ParseLevel(r.LogLevel)
	if !ok {
		return Config{}, &ConfigError{Field: "log_level", Msg: fmt.Sprintf("unrecognized level %q", r.LogLevel)}
	}
	cfg.LogLevel = level

	codec, ok := diffemitter.ParseCodec(r.OutputCompression)
	if !ok {
		return Config{}, &ConfigError{Field: "output_compression", Msg: fmt.Sprintf("unrecognized codec %q", r.OutputCompression)}
	}
	cfg.OutputCompression = codec

	return cfg, nil
}

// ParseLevelSizes parses a comma-separated list of positive integers, the
// same format the original tool's LevelSizes::FromStr accepts. An empty
// string yields DefaultLevelSizes.
func ParseLevelSizes(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		sizes := make([]int, len(DefaultLevelSizes))
		copy(sizes, DefaultLevelSizes)
		return sizes, nil
	}

	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, &ConfigError{Field: "level_sizes", Msg: fmt.Sprintf("%q is not an integer", p)}
		}
		if n < 1 {
			return nil, &ConfigError{Field: "level_sizes", Msg: fmt.Sprintf("%q must be >= 1", p)}
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
