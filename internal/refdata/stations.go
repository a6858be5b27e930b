// Package refdata loads the station directory used to sanity-check item
// locations. The directory is built once and threaded through calls by
// reference; it is immutable after Load, not a hidden global.
package refdata

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Stations is an immutable set of known station names.
type Stations struct {
	names map[string]struct{}
}

// Load reads one station name per line from path. Blank lines and lines
// starting with '#' are skipped. An empty path yields an empty directory,
// which reports every location as unknown.
func Load(path string) (*Stations, error) {
	s := &Stations{names: make(map[string]struct{})}
	if path == "" {
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station directory: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.names[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read station directory: %w", err)
	}
	return s, nil
}

// Contains reports whether name is a known station. Matching is
// case-insensitive.
func (s *Stations) Contains(name string) bool {
	_, ok := s.names[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Len returns the number of known stations.
func (s *Stations) Len() int { return len(s.names) }
