// Package feed serializes surviving disruption records as an RSS 2.0
// document.
package feed

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/opentransit/stoerfeed/internal/models"
)

// Config describes the emitted channel.
type Config struct {
	Title       string
	Link        string
	Description string
}

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Items         []item `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link,omitempty"`
	Description string `xml:"description,omitempty"`
	Category    string `xml:"category,omitempty"`
	GUID        guid   `xml:"guid"`
	PubDate     string `xml:"pubDate,omitempty"`
}

type guid struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Render serializes the ordered batch. Item order is preserved exactly; a
// pubDate element appears only on items the pipeline stamped. The resolved
// identity backs the GUID when a record carries none of its own.
func Render(cfg Config, items []models.Item, now time.Time) ([]byte, error) {
	doc := rss{
		Version: "2.0",
		Channel: channel{
			Title:         cfg.Title,
			Link:          cfg.Link,
			Description:   cfg.Description,
			LastBuildDate: now.Format(time.RFC1123Z),
			Items:         make([]item, 0, len(items)),
		},
	}

	for _, it := range items {
		out := item{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			Category:    it.Category,
			GUID:        guid{IsPermaLink: false, Value: itemGUID(it)},
		}
		if it.PubDate != nil {
			out.PubDate = it.PubDate.Format(time.RFC1123Z)
		}
		doc.Channel.Items = append(doc.Channel.Items, out)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal feed: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// WriteFile renders the feed and writes it to path.
func WriteFile(path string, cfg Config, items []models.Item, now time.Time) error {
	data, err := Render(cfg, items, now)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}

func itemGUID(it models.Item) string {
	if it.GUID != "" {
		return it.GUID
	}
	if it.Identity != "" {
		return it.Identity
	}
	return it.ContentHash()
}
