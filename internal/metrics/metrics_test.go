package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextfile(t *testing.T) {
	c, err := NewPipelineCollector()
	if err != nil {
		t.Fatalf("collector init failed: %v", err)
	}

	c.ObserveFetch("wl", 12, false)
	c.ObserveFetch("oebb", 0, true)
	c.ObserveRun(3, 2, 7, 15, 1500*time.Millisecond)

	path := filepath.Join(t.TempDir(), "stoerfeed.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("textfile export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		`stoerfeed_ingest_items_fetched_total{provider="wl"} 12`,
		`stoerfeed_ingest_fetch_errors_total{provider="oebb"} 1`,
		"stoerfeed_pipeline_fuzzy_merges_total 3",
		"stoerfeed_pipeline_duplicates_collapsed_total 2",
		"stoerfeed_pipeline_items_emitted 7",
		"stoerfeed_state_entries 15",
		"stoerfeed_pipeline_run_duration_seconds 1.5",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("export missing %q", want)
		}
	}
}

func TestDuplicateRegistration(t *testing.T) {
	// Two collectors must not share state through a global registry.
	a, err := NewPipelineCollector()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPipelineCollector()
	if err != nil {
		t.Fatal(err)
	}
	a.ObserveFetch("wl", 5, false)

	path := filepath.Join(t.TempDir(), "b.prom")
	if err := b.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), `provider="wl"`) {
		t.Error("collectors leaked state through a shared registry")
	}
}
