// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// FeedMap maps provider names to feed URLs. It carries its own decoder
// because URLs contain colons, which the default map syntax splits on;
// the format is "name=url" pairs separated by ";".
type FeedMap map[string]string

// Decode implements envconfig.Decoder.
func (f *FeedMap) Decode(value string) error {
	out := make(map[string]string)
	for _, pair := range strings.Split(value, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid feed entry %q: want name=url", pair)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(url)
	}
	*f = out
	return nil
}

// Config represents runtime configuration derived from environment
// variables with the STOERFEED_ prefix.
type Config struct {
	// Feeds maps provider names to their feed URLs.
	Feeds FeedMap `envconfig:"FEEDS"`

	// Providers holds per-provider enable flags; a provider missing from
	// the map is enabled.
	Providers map[string]bool `envconfig:"PROVIDERS"`

	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
	FetchConcurrency int           `envconfig:"FETCH_CONCURRENCY" default:"4"`

	// MaxItemAge is the relative age ceiling; still-active disruptions
	// are exempt. MaxItemAgeAbsolute cannot be bypassed.
	MaxItemAge         time.Duration `envconfig:"MAX_ITEM_AGE" default:"8760h"`
	MaxItemAgeAbsolute time.Duration `envconfig:"MAX_ITEM_AGE_ABSOLUTE" default:"12960h"`

	// FreshWindow is how long after first observation an identity still
	// gets a live publish timestamp.
	FreshWindow time.Duration `envconfig:"FRESH_WINDOW" default:"30m"`

	// StateRetention prunes identities not seen for this long.
	StateRetention time.Duration `envconfig:"STATE_RETENTION" default:"2160h"`

	StatePath    string `envconfig:"STATE_PATH" default:"stoerfeed-state.json"`
	FeedPath     string `envconfig:"FEED_PATH" default:"stoerfeed.xml"`
	StationsPath string `envconfig:"STATIONS_PATH"`

	FeedTitle       string `envconfig:"FEED_TITLE" default:"Verkehrsmeldungen"`
	FeedLink        string `envconfig:"FEED_LINK" default:"https://example.org/stoerungen"`
	FeedDescription string `envconfig:"FEED_DESCRIPTION" default:"Aktuelle Störungen und Bauarbeiten"`

	// ArchiveDSN enables the PostgreSQL run archive when set.
	ArchiveDSN string `envconfig:"ARCHIVE_DSN"`

	// MetricsTextfile enables textfile metrics export when set.
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from the environment, applying defaults for
// anything not provided.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("stoerfeed", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("fetch concurrency must be positive")
	}
	if c.MaxItemAgeAbsolute > 0 && c.MaxItemAge > c.MaxItemAgeAbsolute {
		return fmt.Errorf("relative max item age exceeds the absolute ceiling")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
	}
	return nil
}

// ProviderEnabled reports whether the named provider should fetch.
func (c Config) ProviderEnabled(name string) bool {
	if enabled, ok := c.Providers[name]; ok {
		return enabled
	}
	return true
}
