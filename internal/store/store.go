// Package store persists contest state as plain JSON files: a single round
// database keyed by start time, and one winners file per concluded round.
// There is no locking; the external scheduler is expected to serialize runs.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Store reads and writes the round database and the per-round results files.
type Store struct {
	databasePath string
	winningDir   string
	logger       *zap.Logger
}

// New creates a store over the given round database path and winners dir.
func New(databasePath, winningDir string, logger *zap.Logger) *Store {
	return &Store{
		databasePath: databasePath,
		winningDir:   winningDir,
		logger:       logger,
	}
}

// Load returns all rounds keyed by start time. A missing database file is
// the first-run case and yields an empty map; a present but unreadable file
// is an error.
func (s *Store) Load() (map[string]Round, error) {
	data, err := os.ReadFile(s.databasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Round{}, nil
		}
		return nil, fmt.Errorf("failed to read round database: %w", err)
	}

	var rounds map[string]Round
	if err := json.Unmarshal(data, &rounds); err != nil {
		return nil, fmt.Errorf("failed to parse round database: %w", err)
	}
	if rounds == nil {
		rounds = map[string]Round{}
	}

	for key, round := range rounds {
		if err := round.Validate(); err != nil {
			return nil, fmt.Errorf("invalid round %s: %w", key, err)
		}
	}
	return rounds, nil
}

// MaxKey returns the lexicographically greatest key, i.e. the latest round.
// The boolean is false when the store is empty.
func MaxKey(rounds map[string]Round) (string, bool) {
	maxKey := ""
	for key := range rounds {
		if key > maxKey {
			maxKey = key
		}
	}
	return maxKey, maxKey != ""
}

// Append adds one round under its start-time key and rewrites the database.
// A duplicate key means two rounds started within the same second, which the
// single-run execution model rules out, so it is reported as an error.
func (s *Store) Append(key string, round Round) error {
	if err := round.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid round: %w", err)
	}

	rounds, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := rounds[key]; exists {
		return fmt.Errorf("round key %s already exists", key)
	}
	rounds[key] = round

	if err := writeJSON(s.databasePath, rounds); err != nil {
		return fmt.Errorf("failed to write round database: %w", err)
	}

	s.logger.Info("persisted round", zap.String("key", key), zap.Int64("tweet_id", round.TweetID))
	return nil
}

// WriteResults writes the concluded-round record to winners_<key>.json.
// Each category is sorted ascending by query length; equal lengths keep
// their scan order, which is the documented tie-break.
func (s *Store) WriteResults(key string, results Results) error {
	// Empty categories serialize as [] rather than null.
	if results.Standard == nil {
		results.Standard = []Entry{}
	}
	if results.Regex == nil {
		results.Regex = []Entry{}
	}
	sort.SliceStable(results.Standard, func(i, j int) bool {
		return results.Standard[i].Length < results.Standard[j].Length
	})
	sort.SliceStable(results.Regex, func(i, j int) bool {
		return results.Regex[i].Length < results.Regex[j].Length
	})

	path := filepath.Join(s.winningDir, fmt.Sprintf("winners_%s.json", key))
	if err := writeJSON(path, results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	s.logger.Info("wrote results",
		zap.String("path", path),
		zap.Int("standard", len(results.Standard)),
		zap.Int("regex", len(results.Regex)))
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
