// Package agefilter drops records outside the configured age ceilings.
package agefilter

import (
	"time"

	"github.com/opentransit/stoerfeed/internal/models"
)

// Default ceilings. The relative ceiling can be waived for still-active
// disruptions; the absolute ceiling cannot be bypassed.
const (
	DefaultMaxAge         = 365 * 24 * time.Hour
	DefaultAbsoluteMaxAge = 540 * 24 * time.Hour
)

// Filter holds the two independently configured ceilings, both measured
// from an item's age reference (PubDate, falling back to StartsAt).
type Filter struct {
	MaxAge         time.Duration
	AbsoluteMaxAge time.Duration
}

// Default returns a filter with the default ceilings.
func Default() Filter {
	return Filter{MaxAge: DefaultMaxAge, AbsoluteMaxAge: DefaultAbsoluteMaxAge}
}

// Apply returns the items that survive both ceilings at time now. Items
// with neither PubDate nor StartsAt are unbounded and always kept. An item
// whose EndsAt lies in the future is exempt from the relative ceiling
// only: an active long-running disruption is not dropped purely for age,
// but the absolute ceiling still applies.
func (f Filter) Apply(items []models.Item, now time.Time) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if f.keep(item, now) {
			out = append(out, item)
		}
	}
	return out
}

func (f Filter) keep(item models.Item, now time.Time) bool {
	ref := item.AgeReference()
	if ref == nil {
		return true
	}
	age := now.Sub(*ref)
	if f.AbsoluteMaxAge > 0 && age > f.AbsoluteMaxAge {
		return false
	}
	if f.MaxAge > 0 && age > f.MaxAge {
		return item.EndsAt != nil && item.EndsAt.After(now)
	}
	return true
}
