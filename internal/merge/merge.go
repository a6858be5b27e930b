// Package merge implements the fuzzy pre-pass that folds multiple provider
// records describing the same disruption into a single record, before
// identity resolution and deduplication run.
package merge

import (
	"strings"
	"unicode"

	"github.com/opentransit/stoerfeed/internal/models"
	"github.com/opentransit/stoerfeed/internal/titles"
)

// jaccardThreshold is the minimum line-token overlap for a merge. The
// comparison is strict: two records sharing exactly 30% of their lines stay
// separate.
const jaccardThreshold = 0.30

// minCommonSubstring is the shortest common contiguous substring of two
// normalized names that counts as significant overlap on its own.
const minCommonSubstring = 5

// Merge folds items describing the same event into single records. It is a
// single left-to-right pass against the accumulated result list, not a
// global fixed point; an accumulated item keeps growing as it absorbs
// later items, so its token and name sets can pick up a third record later
// in the same pass. O(n²) pairwise, fine for batches in the low hundreds.
func Merge(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		merged := false
		for i := range out {
			if combined, ok := tryMerge(out[i], item); ok {
				out[i] = combined
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, item)
		}
	}
	return out
}

// tryMerge tests whether item describes the same event as the accumulated
// record acc and, if so, returns their combination.
func tryMerge(acc, item models.Item) (models.Item, bool) {
	accTokens, accName := titles.Split(acc.Title)
	itemTokens, itemName := titles.Split(item.Title)

	// Records without a line prefix cannot be fuzzy-merged.
	if len(accTokens) == 0 || len(itemTokens) == 0 {
		return models.Item{}, false
	}
	if jaccard(accTokens, itemTokens) <= jaccardThreshold {
		return models.Item{}, false
	}
	if !namesOverlap(accName, itemName) {
		return models.Item{}, false
	}
	return combine(acc, item, accTokens, itemTokens, accName, itemName), true
}

// combine builds the merged record. Unresolved fields default to the
// accumulated record's values; a higher-ranked provider keeps its
// identifying fields even when it was not first into the accumulator.
func combine(acc, item models.Item, accTokens, itemTokens []string, accName, itemName string) models.Item {
	merged := acc

	tokens := titles.Sorted(unionTokens(accTokens, itemTokens))
	name := combineNames(accName, itemName)
	merged.Title = titles.Join(tokens, name)
	merged.Description = combineDescriptions(acc.Description, item.Description)

	if models.ProviderRank(item) > models.ProviderRank(acc) {
		merged.GUID = item.GUID
		merged.Provider = item.Provider
		merged.StartsAt = item.StartsAt
		merged.EndsAt = item.EndsAt
	} else {
		// Downstream consumers must treat the merge as updated content.
		merged.GUID = models.HashString(merged.Title)
	}
	return merged
}

func unionTokens(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range a {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range b {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// combineNames keeps the longer name when one contains the other and
// otherwise concatenates with " & ", skipping names that are already a
// member of an existing "&"-separated list.
func combineNames(existing, incoming string) string {
	if existing == "" {
		return incoming
	}
	if incoming == "" || existing == incoming {
		return existing
	}
	if strings.Contains(existing, incoming) {
		return existing
	}
	if strings.Contains(incoming, existing) {
		return incoming
	}
	for _, part := range strings.Split(existing, "&") {
		if strings.TrimSpace(part) == incoming {
			return existing
		}
	}
	return existing + " & " + incoming
}

// combineDescriptions keeps a description that already contains the other
// verbatim; otherwise the texts are joined with a blank line.
func combineDescriptions(existing, incoming string) string {
	if existing == "" {
		return incoming
	}
	if incoming == "" {
		return existing
	}
	if strings.Contains(existing, incoming) {
		return existing
	}
	if strings.Contains(incoming, existing) {
		return incoming
	}
	return existing + "\n\n" + incoming
}

// jaccard computes the Jaccard similarity of two token sets.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// namesOverlap reports significant name overlap: a shared normalized word
// token, or a common contiguous substring of at least minCommonSubstring
// characters. Either condition alone suffices. The shared-word rule is
// intentionally coarse; the Jaccard gate on line tokens already ran.
func namesOverlap(a, b string) bool {
	normA, normB := normalizeName(a), normalizeName(b)

	wordsA := nameWords(normA)
	wordsB := make(map[string]struct{})
	for _, w := range nameWords(normB) {
		wordsB[w] = struct{}{}
	}
	for _, w := range wordsA {
		if _, ok := wordsB[w]; ok {
			return true
		}
	}
	return longestCommonSubstring(normA, normB) >= minCommonSubstring
}

// normalizeName strips digits and lower-cases, so "Silvesterlauf 2025" and
// "silvesterlauf" normalize alike.
func normalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if !unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nameWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
}

// longestCommonSubstring returns the length in runes of the longest common
// contiguous substring of a and b.
func longestCommonSubstring(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	best := 0
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}
