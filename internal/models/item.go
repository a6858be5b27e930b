package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Item represents one provider's report of one disruption at one point in
// time. No field is universally required; downstream stages handle absence
// via fallbacks instead of rejecting the record.
type Item struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Link        string     `json:"link,omitempty"`
	GUID        string     `json:"guid,omitempty"`
	PubDate     *time.Time `json:"pub_date,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Source      string     `json:"source,omitempty"`
	Category    string     `json:"category,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Context     string     `json:"context,omitempty"`
	Location    string     `json:"location,omitempty"`

	// RetrievedAt is stamped by the collector when the item enters the
	// batch and acts as the recency marker when PubDate is absent.
	RetrievedAt time.Time `json:"retrieved_at,omitempty"`

	// Identity is the resolved cross-run key. Empty until the identity
	// resolver has run over the batch.
	Identity string `json:"identity,omitempty"`
}

// Recency returns the marker used to decide which of two duplicates is the
// more recent report: PubDate when present, otherwise RetrievedAt.
func (i Item) Recency() *time.Time {
	if i.PubDate != nil {
		return i.PubDate
	}
	if !i.RetrievedAt.IsZero() {
		t := i.RetrievedAt
		return &t
	}
	return nil
}

// AgeReference returns the timestamp age ceilings are measured from:
// PubDate, falling back to StartsAt. Nil means the item is unbounded by age.
func (i Item) AgeReference() *time.Time {
	if i.PubDate != nil {
		return i.PubDate
	}
	return i.StartsAt
}

// ContentHash fingerprints the item fields that identify its content. It is
// the weakest grouping key: any content edit produces a new hash.
func (i Item) ContentHash() string {
	return HashString(fmt.Sprintf("%s|%s|%s", i.Source, i.Title, i.Description))
}

// HashString returns the hex-encoded SHA-256 digest of s.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
