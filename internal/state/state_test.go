package state

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T, retention time.Duration) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	return NewStore(path, retention, testLogger())
}

func TestColdStartOnMissingFile(t *testing.T) {
	s := newTestStore(t, 0)
	s.Load(testNow)
	if s.Len() != 0 {
		t.Errorf("missing file should load as empty, got %d entries", s.Len())
	}
}

func TestColdStartOnCorruptFile(t *testing.T) {
	s := newTestStore(t, 0)
	if err := os.WriteFile(s.path, []byte("not json{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.Load(testNow)
	if s.Len() != 0 {
		t.Errorf("corrupt file should load as empty, got %d entries", s.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"wl|a", "wl|b"}, testNow)
	if err := s.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := NewStore(s.path, 0, testLogger())
	reloaded.Load(testNow)
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", reloaded.Len())
	}
	firstSeen, ok := reloaded.FirstSeen("wl|a")
	if !ok || !firstSeen.Equal(testNow) {
		t.Errorf("first_seen did not round-trip: %v %v", firstSeen, ok)
	}
}

func TestFileFormat(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"wl|a"}, testNow)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("state file is not a JSON mapping: %v", err)
	}
	ts, ok := raw["wl|a"]["first_seen"]
	if !ok {
		t.Fatal("entry missing first_seen field")
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("first_seen is not ISO-8601: %q", ts)
	}
}

func TestFirstSeenNeverMovesBackward(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"wl|a"}, testNow)

	later := testNow.Add(2 * time.Hour)
	s.Observe([]string{"wl|a"}, later)

	firstSeen, _ := s.FirstSeen("wl|a")
	if !firstSeen.Equal(testNow) {
		t.Errorf("known identity must keep its original first_seen, got %v", firstSeen)
	}
}

func TestEmptyBatchClearsState(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"wl|a", "wl|b"}, testNow)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	s.Observe(nil, testNow.Add(time.Hour))
	if s.Len() != 0 {
		t.Fatalf("empty surviving batch must clear the state, got %d entries", s.Len())
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(s.path, 0, testLogger())
	reloaded.Load(testNow.Add(2 * time.Hour))
	if reloaded.Len() != 0 {
		t.Errorf("cleared state must persist as empty, got %d entries", reloaded.Len())
	}
}

func TestRetentionPruneOnLoad(t *testing.T) {
	s := newTestStore(t, 24*time.Hour)
	s.entries["old"] = Entry{FirstSeen: testNow.Add(-48 * time.Hour)}
	s.entries["recent"] = Entry{FirstSeen: testNow.Add(-1 * time.Hour)}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(s.path, 24*time.Hour, testLogger())
	reloaded.Load(testNow)
	if reloaded.Len() != 1 {
		t.Fatalf("expected retention to prune 1 entry, kept %d", reloaded.Len())
	}
	if _, ok := reloaded.FirstSeen("recent"); !ok {
		t.Error("recent entry must survive retention")
	}
}

func TestPrunedIdentityGetsNewFirstSeen(t *testing.T) {
	s := newTestStore(t, 24*time.Hour)
	s.entries["wl|a"] = Entry{FirstSeen: testNow.Add(-48 * time.Hour)}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStore(s.path, 24*time.Hour, testLogger())
	reloaded.Load(testNow)
	reloaded.Observe([]string{"wl|a"}, testNow)

	firstSeen, _ := reloaded.FirstSeen("wl|a")
	if !firstSeen.Equal(testNow) {
		t.Errorf("a pruned identity that reappears starts fresh, got %v", firstSeen)
	}
}

func TestFreshWindow(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"wl|a"}, testNow)

	if !s.Fresh("wl|a", testNow.Add(10*time.Minute), 30*time.Minute) {
		t.Error("identity inside the fresh window must be fresh")
	}
	if s.Fresh("wl|a", testNow.Add(45*time.Minute), 30*time.Minute) {
		t.Error("identity outside the fresh window must not be fresh")
	}
	if s.Fresh("unknown", testNow, 30*time.Minute) {
		t.Error("unknown identity is never fresh")
	}
}

func TestSaveCreatesLockFile(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"wl|a"}, testNow)
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	canonical, err := filepath.Abs(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(canonical + ".lock"); err != nil {
		t.Errorf("dedicated lock file should exist next to the data file: %v", err)
	}
}

func TestEmptyIdentitySkipped(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"", "wl|a"}, testNow)
	if s.Len() != 1 {
		t.Errorf("empty identities must not be recorded, got %d entries", s.Len())
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := newTestStore(t, 0)
	s.Observe([]string{"wl|a"}, testNow)

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() { done <- s.Save() }()
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent save failed: %v", err)
		}
	}
}
