// Package ingest collects disruption records from independent providers.
// Providers own their network I/O; the collector owns timeouts, retries,
// and the rule that a failing or slow provider is skipped without
// aborting the batch.
package ingest

import (
	"context"

	"github.com/opentransit/stoerfeed/internal/models"
)

// Provider yields a sequence of loosely structured disruption records.
type Provider interface {
	// Name returns the unique tag for this provider, stamped onto every
	// item it yields.
	Name() string

	// Fetch retrieves the provider's current records. Implementations
	// must honor ctx cancellation; the collector abandons providers that
	// exceed their timeout.
	Fetch(ctx context.Context) ([]models.Item, error)
}

// StaticProvider serves a fixed item slice. Used in tests and for feeding
// pre-collected records through the pipeline.
type StaticProvider struct {
	ProviderName string
	Items        []models.Item
}

func (p *StaticProvider) Name() string { return p.ProviderName }

func (p *StaticProvider) Fetch(ctx context.Context) ([]models.Item, error) {
	out := make([]models.Item, len(p.Items))
	copy(out, p.Items)
	return out, nil
}
