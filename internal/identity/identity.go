// Package identity derives the stable cross-run key for a disruption
// record. The key survives cosmetic title edits (case, trailing
// annotations) but changes when the affected lines or the start date
// change.
package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/opentransit/stoerfeed/internal/models"
	"github.com/opentransit/stoerfeed/internal/titles"
)

// trailingAnnotationRe matches a trailing parenthesized annotation such as
// " (Update)". Stripped repeatedly so stacked annotations also vanish.
var trailingAnnotationRe = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Resolve derives the identity key from source, category, the line-token
// prefix of the title, the date portion of StartsAt, and a hash of the
// normalized title remainder.
func Resolve(item models.Item) string {
	tokens, name := titles.Split(item.Title)
	sorted := titles.Sorted(tokens)

	date := ""
	if item.StartsAt != nil {
		date = item.StartsAt.Format("2006-01-02")
	}

	return fmt.Sprintf("%s|%s|L=%s|D=%s|T=%s",
		item.Source,
		item.Category,
		strings.Join(sorted, "/"),
		date,
		models.HashString(normalizeRemainder(name)),
	)
}

// Annotate resolves identities for a whole batch in place.
func Annotate(items []models.Item) {
	for i := range items {
		items[i].Identity = Resolve(items[i])
	}
}

// normalizeRemainder makes the hash segment insensitive to case,
// whitespace runs, and trailing parenthesized annotations. Any other
// content change flows into the hash and may alter the identity.
func normalizeRemainder(name string) string {
	for {
		stripped := trailingAnnotationRe.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}
	name = strings.ToLower(name)
	name = whitespaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
