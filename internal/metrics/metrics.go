// Package metrics exposes Prometheus metrics for the pipeline. Because
// the binary runs as a batch job, metrics are exported in node-exporter
// textfile format at the end of a run instead of being served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// PipelineCollector records per-run pipeline metrics.
type PipelineCollector struct {
	registry *prometheus.Registry

	itemsFetched *prometheus.CounterVec
	fetchErrors  *prometheus.CounterVec
	mergesTotal  prometheus.Counter
	duplicates   prometheus.Counter
	itemsEmitted prometheus.Gauge
	stateEntries prometheus.Gauge
	runDuration  prometheus.Gauge
	lastRun      prometheus.Gauge
}

// NewPipelineCollector constructs a collector with a private registry.
func NewPipelineCollector() (*PipelineCollector, error) {
	registry := prometheus.NewRegistry()

	itemsFetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stoerfeed",
		Subsystem: "ingest",
		Name:      "items_fetched_total",
		Help:      "Items fetched per provider in this run.",
	}, []string{"provider"})

	fetchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stoerfeed",
		Subsystem: "ingest",
		Name:      "fetch_errors_total",
		Help:      "Provider fetches that failed or timed out.",
	}, []string{"provider"})

	mergesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stoerfeed",
		Subsystem: "pipeline",
		Name:      "fuzzy_merges_total",
		Help:      "Records folded into another record by the fuzzy merge pass.",
	})

	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "stoerfeed",
		Subsystem: "pipeline",
		Name:      "duplicates_collapsed_total",
		Help:      "Records collapsed by the deduplication pass.",
	})

	itemsEmitted := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stoerfeed",
		Subsystem: "pipeline",
		Name:      "items_emitted",
		Help:      "Surviving items handed to the feed emitter.",
	})

	stateEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stoerfeed",
		Subsystem: "state",
		Name:      "entries",
		Help:      "Live identities in the state store after the run.",
	})

	runDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stoerfeed",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last run.",
	})

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stoerfeed",
		Subsystem: "pipeline",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last completed run.",
	})

	collectors := []prometheus.Collector{
		itemsFetched, fetchErrors, mergesTotal, duplicates,
		itemsEmitted, stateEntries, runDuration, lastRun,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &PipelineCollector{
		registry:     registry,
		itemsFetched: itemsFetched,
		fetchErrors:  fetchErrors,
		mergesTotal:  mergesTotal,
		duplicates:   duplicates,
		itemsEmitted: itemsEmitted,
		stateEntries: stateEntries,
		runDuration:  runDuration,
		lastRun:      lastRun,
	}, nil
}

// ObserveFetch records the outcome of one provider fetch.
func (c *PipelineCollector) ObserveFetch(provider string, count int, failed bool) {
	c.itemsFetched.WithLabelValues(provider).Add(float64(count))
	if failed {
		c.fetchErrors.WithLabelValues(provider).Inc()
	}
}

// ObserveRun records the pipeline pass counts for one run.
func (c *PipelineCollector) ObserveRun(merges, duplicates, emitted, stateEntries int, duration time.Duration) {
	c.mergesTotal.Add(float64(merges))
	c.duplicates.Add(float64(duplicates))
	c.itemsEmitted.Set(float64(emitted))
	c.stateEntries.Set(float64(stateEntries))
	c.runDuration.Set(duration.Seconds())
	c.lastRun.SetToCurrentTime()
}

// WriteTextfile exports all metrics to path in the Prometheus text format,
// via temp file and rename so the node-exporter textfile collector never
// reads a partial export.
func (c *PipelineCollector) WriteTextfile(path string) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".metrics-*.prom")
	if err != nil {
		return fmt.Errorf("create metrics temp file: %w", err)
	}
	tmpPath := tmp.Name()

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, family); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close metrics temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace metrics file: %w", err)
	}
	return nil
}
