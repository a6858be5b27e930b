package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opentransit/stoerfeed/internal/models"
)

// CollectorConfig bounds a collection cycle.
type CollectorConfig struct {
	// FetchTimeout caps each provider's fetch independently.
	FetchTimeout time.Duration

	// Concurrency limits how many providers fetch at once.
	Concurrency int

	RetryPolicy RetryPolicy
}

// DefaultCollectorConfig returns sensible defaults.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		FetchTimeout: 20 * time.Second,
		Concurrency:  4,
		RetryPolicy:  DefaultRetryPolicy(),
	}
}

// Collector fetches from all providers concurrently, each bounded by its
// own timeout. A provider exceeding its timeout is abandoned without
// blocking the others, and its late result is discarded, never merged in
// after the cutoff.
type Collector struct {
	providers []Provider
	logger    *slog.Logger
	config    CollectorConfig
}

// NewCollector creates a collector over the given providers.
func NewCollector(providers []Provider, logger *slog.Logger, config CollectorConfig) *Collector {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Collector{providers: providers, logger: logger, config: config}
}

// FetchStat reports the outcome of one provider's fetch within a batch.
type FetchStat struct {
	Provider string
	Count    int
	Failed   bool
}

// Collect gathers one batch. Provider failures are logged and contribute
// zero items; the batch always completes. Items are returned in provider
// registration order so downstream passes see a deterministic sequence.
func (c *Collector) Collect(ctx context.Context) ([]models.Item, []FetchStat) {
	results := make([][]models.Item, len(c.providers))
	failures := make([]bool, len(c.providers))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.config.Concurrency)

	for i, provider := range c.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			items, err := c.fetchOne(ctx, p)
			if err != nil {
				c.logger.Warn("provider fetch failed, skipping",
					"provider", p.Name(),
					"error", err,
				)
				failures[i] = true
				return
			}
			results[i] = items
		}(i, provider)
	}

	wg.Wait()

	now := time.Now()
	var batch []models.Item
	stats := make([]FetchStat, len(c.providers))
	for i, items := range results {
		for _, item := range items {
			if item.Provider == "" {
				item.Provider = c.providers[i].Name()
			}
			item.RetrievedAt = now
			batch = append(batch, item)
		}
		stats[i] = FetchStat{
			Provider: c.providers[i].Name(),
			Count:    len(items),
			Failed:   failures[i],
		}
		c.logger.Info("provider collected",
			"provider", c.providers[i].Name(),
			"count", len(items),
			"failed", failures[i],
		)
	}
	return batch, stats
}

// fetchOne runs a single provider fetch under its own timeout. The fetch
// goroutine delivers into a buffered channel, so a result arriving after
// the cutoff is dropped rather than merged.
func (c *Collector) fetchOne(ctx context.Context, p Provider) ([]models.Item, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	defer cancel()

	type result struct {
		items []models.Item
		err   error
	}
	done := make(chan result, 1)

	go func() {
		var items []models.Item
		err := Retry(fetchCtx, c.config.RetryPolicy, func() error {
			fetched, err := p.Fetch(fetchCtx)
			if err != nil {
				return NewRetryableError(err)
			}
			items = fetched
			return nil
		})
		done <- result{items: items, err: err}
	}()

	select {
	case r := <-done:
		return r.items, r.err
	case <-fetchCtx.Done():
		return nil, fetchCtx.Err()
	}
}
