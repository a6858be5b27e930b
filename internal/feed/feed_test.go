package feed

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opentransit/stoerfeed/internal/models"
)

var renderNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var testConfig = Config{
	Title:       "Verkehrsmeldungen",
	Link:        "https://example.org/stoerungen",
	Description: "Aktuelle Störungen",
}

func TestRenderIsValidRSS(t *testing.T) {
	pub := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	items := []models.Item{
		{Title: "U1: Sperre", Link: "https://example.org/1", GUID: "g1", PubDate: &pub, Category: "stoerung"},
		{Title: "U2: Bauarbeiten", Identity: "wl|x"},
	}

	data, err := Render(testConfig, items, renderNow)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	var decoded struct {
		XMLName xml.Name `xml:"rss"`
		Version string   `xml:"version,attr"`
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				Title   string `xml:"title"`
				GUID    string `xml:"guid"`
				PubDate string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	if err := xml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not parseable XML: %v", err)
	}
	if decoded.Version != "2.0" {
		t.Errorf("unexpected rss version %q", decoded.Version)
	}
	if len(decoded.Channel.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(decoded.Channel.Items))
	}
	if decoded.Channel.Items[0].PubDate == "" {
		t.Error("stamped item must carry pubDate")
	}
	if decoded.Channel.Items[1].PubDate != "" {
		t.Error("unstamped item must not carry pubDate")
	}
}

func TestOrderPreserved(t *testing.T) {
	items := []models.Item{
		{Title: "drittes", GUID: "3"},
		{Title: "erstes", GUID: "1"},
		{Title: "zweites", GUID: "2"},
	}

	data, err := Render(testConfig, items, renderNow)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !(strings.Index(text, "drittes") < strings.Index(text, "erstes") &&
		strings.Index(text, "erstes") < strings.Index(text, "zweites")) {
		t.Error("item order must be preserved exactly")
	}
}

func TestGUIDFallbackChain(t *testing.T) {
	if got := itemGUID(models.Item{GUID: "g", Identity: "id"}); got != "g" {
		t.Errorf("own guid wins, got %q", got)
	}
	if got := itemGUID(models.Item{Identity: "id"}); got != "id" {
		t.Errorf("identity backs a missing guid, got %q", got)
	}
	if got := itemGUID(models.Item{Title: "t"}); got == "" {
		t.Error("content hash is the last resort, got empty guid")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.xml")
	items := []models.Item{{Title: "U1: Sperre", GUID: "g1"}}

	if err := WriteFile(path, testConfig, items, renderNow); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), xml.Header) {
		t.Error("feed file must start with the XML header")
	}
	if !strings.Contains(string(data), "U1: Sperre") {
		t.Error("feed file missing item content")
	}
}
