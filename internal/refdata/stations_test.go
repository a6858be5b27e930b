package refdata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.txt")
	content := "# Wiener Linien Stationsverzeichnis\nKarlsplatz\nStephansplatz\n\nSchottentor\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 stations, got %d", s.Len())
	}
	if !s.Contains("Karlsplatz") {
		t.Error("known station not found")
	}
	if !s.Contains("  stephansplatz ") {
		t.Error("lookup should ignore case and surrounding whitespace")
	}
	if s.Contains("Praterstern") {
		t.Error("unknown station reported as known")
	}
}

func TestEmptyPath(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("empty path must yield an empty directory: %v", err)
	}
	if s.Len() != 0 || s.Contains("Karlsplatz") {
		t.Error("empty directory must know nothing")
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("a configured but missing file is an error the caller decides about")
	}
}
