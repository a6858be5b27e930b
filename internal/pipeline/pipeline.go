// Package pipeline orchestrates one batch run: collect, fuzzy-merge,
// resolve identities, deduplicate, filter by age, update cross-run state,
// and hand the surviving ordered records to the feed emitter.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opentransit/stoerfeed/internal/agefilter"
	"github.com/opentransit/stoerfeed/internal/archive"
	"github.com/opentransit/stoerfeed/internal/dedupe"
	"github.com/opentransit/stoerfeed/internal/identity"
	"github.com/opentransit/stoerfeed/internal/ingest"
	"github.com/opentransit/stoerfeed/internal/merge"
	"github.com/opentransit/stoerfeed/internal/metrics"
	"github.com/opentransit/stoerfeed/internal/models"
	"github.com/opentransit/stoerfeed/internal/refdata"
	"github.com/opentransit/stoerfeed/internal/state"
)

// Pipeline wires the batch stages together. The run itself is logically
// sequential: merge, identity resolution, and deduplication are ordered
// passes whose results depend on processing order. Only the collector
// fans out.
type Pipeline struct {
	collector   *ingest.Collector
	stations    *refdata.Stations
	store       *state.Store
	archive     *archive.Store // nil when no archive is configured
	metrics     *metrics.PipelineCollector
	logger      *slog.Logger
	ageFilter   agefilter.Filter
	freshWindow time.Duration
}

// Options configures a pipeline.
type Options struct {
	Collector   *ingest.Collector
	Stations    *refdata.Stations
	Store       *state.Store
	Archive     *archive.Store
	Metrics     *metrics.PipelineCollector
	Logger      *slog.Logger
	AgeFilter   agefilter.Filter
	FreshWindow time.Duration
}

// New assembles a pipeline from its stages.
func New(opts Options) *Pipeline {
	return &Pipeline{
		collector:   opts.Collector,
		stations:    opts.Stations,
		store:       opts.Store,
		archive:     opts.Archive,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		ageFilter:   opts.AgeFilter,
		freshWindow: opts.FreshWindow,
	}
}

// Run executes one batch and returns the ordered surviving items,
// annotated with resolved identities and, where the identity is still
// fresh, a stamped publish timestamp. State persistence failures are
// logged and never stop emission.
func (p *Pipeline) Run(ctx context.Context) []models.Item {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	start := time.Now()
	now := start

	batch, stats := p.collector.Collect(ctx)
	for _, stat := range stats {
		p.metrics.ObserveFetch(stat.Provider, stat.Count, stat.Failed)
	}

	merged := merge.Merge(batch)
	mergeCount := len(batch) - len(merged)

	identity.Annotate(merged)

	deduped := dedupe.Dedupe(merged)
	duplicateCount := len(merged) - len(deduped)

	surviving := p.ageFilter.Apply(deduped, now)

	if p.stations != nil && p.stations.Len() > 0 {
		unknown := 0
		for _, item := range surviving {
			if item.Location != "" && !p.stations.Contains(item.Location) {
				unknown++
			}
		}
		if unknown > 0 {
			logger.Debug("items with locations outside the station directory", "count", unknown)
		}
	}

	p.store.Load(now)
	identities := make([]string, 0, len(surviving))
	for _, item := range surviving {
		identities = append(identities, item.Identity)
	}
	p.store.Observe(identities, now)

	// Only identities still inside the fresh window carry a publish
	// timestamp out to the feed; everything older goes out undated so
	// feed readers do not see long-known events as new.
	for i := range surviving {
		if p.store.Fresh(surviving[i].Identity, now, p.freshWindow) {
			firstSeen, _ := p.store.FirstSeen(surviving[i].Identity)
			surviving[i].PubDate = &firstSeen
		} else {
			surviving[i].PubDate = nil
		}
	}

	if err := p.store.Save(); err != nil {
		logger.Warn("state not persisted, continuing with in-memory result", "error", err)
	}

	if p.archive != nil {
		if err := p.archive.StoreRun(ctx, runID, now, surviving); err != nil {
			logger.Warn("archive write failed", "error", err)
		}
	}

	p.metrics.ObserveRun(mergeCount, duplicateCount, len(surviving), p.store.Len(), time.Since(start))

	logger.Info("batch complete",
		"fetched", len(batch),
		"merged", mergeCount,
		"duplicates", duplicateCount,
		"emitted", len(surviving),
		"duration", time.Since(start),
	)
	return surviving
}
