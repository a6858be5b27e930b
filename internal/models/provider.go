package models

import "strings"

// Well-known provider tags. Items may carry arbitrary tags; only the ones
// listed here participate in authority ranking.
const (
	ProviderWienerLinien = "wienerlinien"
	ProviderOEBB         = "oebb"
	ProviderVOR          = "vor"
	ProviderCityAlerts   = "city-alerts"
)

// providerRank maps recognized provider/source tags to an authority rank.
// Higher outranks lower; unknown tags rank zero.
var providerRank = map[string]int{
	ProviderWienerLinien: 3,
	ProviderOEBB:         3,
	ProviderVOR:          2,
	ProviderCityAlerts:   1,
}

// ProviderRank returns the authority rank of an item, considering both its
// provider and its source tag. An authoritative feed outranks a secondary
// one during fuzzy merging.
func ProviderRank(i Item) int {
	rank := providerRank[strings.ToLower(i.Provider)]
	if r := providerRank[strings.ToLower(i.Source)]; r > rank {
		rank = r
	}
	return rank
}
