// Package state persists the identity → first-seen mapping across runs.
// The file is a JSON object keyed by identity; writes go through a
// two-tier lock (in-process mutex per canonical path, then an OS-level
// lock on a dedicated lock file) and an atomic temp-file replace, so
// readers never observe a half-written mapping.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/opentransit/stoerfeed/internal/structenc"
)

// Entry records when an identity was first observed. FirstSeen never moves
// backward while the identity stays live; it only resets when the entry is
// pruned and the identity later reappears.
type Entry struct {
	FirstSeen time.Time `json:"first_seen"`
}

// Store is the durable identity → first-seen mapping for one state file.
type Store struct {
	path      string
	retention time.Duration
	logger    *slog.Logger
	entries   map[string]Entry
}

// NewStore creates a store backed by path. Entries older than retention
// are dropped on load; retention zero disables pruning.
func NewStore(path string, retention time.Duration, logger *slog.Logger) *Store {
	return &Store{
		path:      path,
		retention: retention,
		logger:    logger,
		entries:   make(map[string]Entry),
	}
}

// Load reads the state file. A missing, unreadable, or corrupt file is a
// cold start, never an error: the pipeline must not fail because last
// run's bookkeeping went missing.
func (s *Store) Load(now time.Time) {
	s.entries = make(map[string]Entry)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("state file unreadable, starting empty", "path", s.path, "error", err)
		return
	}

	var loaded map[string]Entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("state file corrupt, starting empty", "path", s.path, "error", err)
		return
	}

	for id, entry := range loaded {
		if s.retention > 0 && now.Sub(entry.FirstSeen) > s.retention {
			continue
		}
		s.entries[id] = entry
	}
}

// Observe records the surviving identities of this run. A newly observed
// identity gets now as its first-seen; a known identity keeps its original
// first-seen unconditionally. An empty surviving batch clears the entire
// state, so a stale first-seen cannot leak into a future batch that
// happens to reuse the same identity.
func (s *Store) Observe(identities []string, now time.Time) {
	if len(identities) == 0 {
		s.entries = make(map[string]Entry)
		return
	}
	for _, id := range identities {
		if id == "" {
			continue
		}
		if _, ok := s.entries[id]; !ok {
			s.entries[id] = Entry{FirstSeen: now}
		}
	}
}

// FirstSeen returns when the identity was first observed.
func (s *Store) FirstSeen(id string) (time.Time, bool) {
	entry, ok := s.entries[id]
	return entry.FirstSeen, ok
}

// Fresh reports whether the identity's first-seen lies within window of
// now, i.e. whether the emitter should still stamp a live publish
// timestamp.
func (s *Store) Fresh(id string, now time.Time, window time.Duration) bool {
	entry, ok := s.entries[id]
	if !ok {
		return false
	}
	return now.Sub(entry.FirstSeen) <= window
}

// Len returns the number of live entries.
func (s *Store) Len() int { return len(s.entries) }

// Save writes the complete mapping atomically. The in-process mutex for
// the canonical path is taken before the OS-level lock, because OS locks
// may be advisory or unavailable; failure to obtain the OS lock is logged
// and the write proceeds regardless. A Save error leaves the in-memory
// state intact and must not stop feed emission.
func (s *Store) Save() error {
	canonical, err := filepath.Abs(s.path)
	if err != nil {
		canonical = filepath.Clean(s.path)
	}

	mu := lockForPath(canonical)
	mu.Lock()
	defer mu.Unlock()

	// Dedicated lock file, distinct from the data file, so readers never
	// block on a half-written mapping.
	fl := flock.New(canonical + ".lock")
	if err := fl.Lock(); err != nil {
		s.logger.Warn("state lock not acquired, writing anyway", "path", s.path, "error", err)
	} else {
		defer func() {
			if err := fl.Unlock(); err != nil {
				s.logger.Warn("state lock release failed", "path", s.path, "error", err)
			}
		}()
	}

	data, err := structenc.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(canonical), ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, canonical); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
