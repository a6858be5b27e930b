package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opentransit/stoerfeed/internal/models"
)

// RSSProvider fetches disruption records from an RSS 2.0 feed.
type RSSProvider struct {
	name     string
	feedURL  string
	source   string
	category string
	client   *http.Client
	logger   *slog.Logger
}

// NewRSSProvider creates a provider for one feed URL. The source and
// category tags are stamped onto every item so identity resolution can
// distinguish feeds reporting the same lines.
func NewRSSProvider(name, feedURL, source, category string, logger *slog.Logger) *RSSProvider {
	return &RSSProvider{
		name:     name,
		feedURL:  feedURL,
		source:   source,
		category: category,
		client:   &http.Client{},
		logger:   logger,
	}
}

func (p *RSSProvider) Name() string { return p.name }

// rssFeed mirrors the RSS 2.0 structure the providers publish.
type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
	Category    string `xml:"category"`
}

// Fetch retrieves and parses the feed. The per-provider timeout lives in
// ctx; the provider itself sets no additional deadline.
func (p *RSSProvider) Fetch(ctx context.Context) ([]models.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "stoerfeed/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]models.Item, 0, len(feed.Channel.Items))
	for _, raw := range feed.Channel.Items {
		category := raw.Category
		if category == "" {
			category = p.category
		}
		item := models.Item{
			Title:       cleanText(raw.Title),
			Description: cleanText(raw.Description),
			Link:        strings.TrimSpace(raw.Link),
			GUID:        strings.TrimSpace(raw.GUID),
			PubDate:     parsePubDate(raw.PubDate),
			Source:      p.source,
			Category:    category,
			Provider:    p.name,
		}
		items = append(items, item)
	}

	p.logger.Debug("parsed feed", "provider", p.name, "items", len(items))
	return items, nil
}

// parsePubDate tries the date formats the provider feeds actually use. An
// unparseable or absent date yields nil, never an error: the age filter
// treats such items as unbounded.
func parsePubDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		time.RFC822Z,
		time.RFC822,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return &t
		}
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", raw, time.UTC); err == nil {
		return &t
	}
	return nil
}

// cleanText strips HTML tags and normalizes whitespace in feed text.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "<p>", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n")
	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")

	for {
		start := strings.Index(text, "<")
		if start == -1 {
			break
		}
		end := strings.Index(text[start:], ">")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
