//go:build ignore

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"time"
)

type entry struct {
	FirstSeen time.Time `json:"first_seen"`
}

func main() {
	path := os.Getenv("STOERFEED_STATE_PATH")
	if path == "" {
		path = "state.json"
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read state file %s: %v", path, err)
	}

	entries := map[string]entry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Fatalf("failed to parse state file: %v", err)
	}

	fmt.Printf("State file: %s\n", path)
	fmt.Printf("Tracked identities: %d\n\n", len(entries))

	identities := make([]string, 0, len(entries))
	for id := range entries {
		identities = append(identities, id)
	}
	sort.Slice(identities, func(i, j int) bool {
		return entries[identities[i]].FirstSeen.After(entries[identities[j]].FirstSeen)
	})

	now := time.Now()
	limit := 10
	if len(identities) < limit {
		limit = len(identities)
	}
	fmt.Printf("Most recent %d:\n", limit)
	for _, id := range identities[:limit] {
		age := now.Sub(entries[id].FirstSeen).Round(time.Minute)
		fmt.Printf("  %s  (first seen %s ago)\n", id, age)
	}

	if len(identities) > 0 {
		oldest := identities[len(identities)-1]
		fmt.Printf("\nOldest entry: %s (%s)\n", oldest, entries[oldest].FirstSeen.Format(time.RFC3339))
	}
}
