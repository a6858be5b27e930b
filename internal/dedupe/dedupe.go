// Package dedupe collapses records sharing an in-batch grouping key into a
// single survivor via ordered tie-break rules.
package dedupe

import "github.com/opentransit/stoerfeed/internal/models"

// Key returns the in-batch grouping key for an item: the resolved identity
// when present, then a non-empty GUID, then a content hash of source,
// title and description. Items with none of these return the empty string
// and are never collapsed; uniqueness across runs requires a stable
// identifier, which such items simply do not have.
func Key(item models.Item) string {
	if item.Identity != "" {
		return "id:" + item.Identity
	}
	if item.GUID != "" {
		return "guid:" + item.GUID
	}
	if item.Source == "" && item.Title == "" && item.Description == "" {
		return ""
	}
	return "hash:" + item.ContentHash()
}

// Dedupe collapses items sharing a grouping key, preserving the
// first-occurrence order of the surviving keys. Applying it twice yields
// the same result as applying it once.
func Dedupe(items []models.Item) []models.Item {
	byKey := make(map[string]int, len(items))
	out := make([]models.Item, 0, len(items))

	for _, item := range items {
		key := Key(item)
		if key == "" {
			out = append(out, item)
			continue
		}
		if at, ok := byKey[key]; ok {
			out[at] = survivor(out[at], item)
			continue
		}
		byKey[key] = len(out)
		out = append(out, item)
	}
	return out
}

// survivor picks between an incumbent record and a later challenger that
// shares its key, stopping at the first decisive rule:
//
//  1. A strictly newer recency marker wins. Recency dominates even over a
//     shorter end date, because a newer report legitimately shortening a
//     disruption window is not staleness.
//  2. A strictly later end date wins.
//  3. The longer description wins.
//  4. The incumbent is kept (stable).
func survivor(incumbent, challenger models.Item) models.Item {
	if ir, cr := incumbent.Recency(), challenger.Recency(); ir != nil && cr != nil {
		if cr.After(*ir) {
			return challenger
		}
		if ir.After(*cr) {
			return incumbent
		}
	}
	if incumbent.EndsAt != nil && challenger.EndsAt != nil {
		if challenger.EndsAt.After(*incumbent.EndsAt) {
			return challenger
		}
		if incumbent.EndsAt.After(*challenger.EndsAt) {
			return incumbent
		}
	}
	if len(challenger.Description) > len(incumbent.Description) {
		return challenger
	}
	return incumbent
}
