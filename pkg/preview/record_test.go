package preview

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRecordMarshalJSON(t *testing.T) {
	fetched := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("missing image serializes as null", func(t *testing.T) {
		rec := Record{
			URL:       "https://example.com/article",
			Title:     "Example",
			SiteName:  "example.com",
			Source:    SourceScraper,
			FetchedAt: fetched,
		}

		data, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("Marshal() returned error: %v", err)
		}
		if !strings.Contains(string(data), `"image":null`) {
			t.Errorf("Marshal() = %s, expected image to be null", data)
		}
	})

	t.Run("present image serializes as string", func(t *testing.T) {
		rec := Record{
			URL:       "https://example.com/article",
			Title:     "Example",
			Image:     "https://example.com/og.png",
			Source:    SourceScraper,
			FetchedAt: fetched,
		}

		data, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("Marshal() returned error: %v", err)
		}
		if !strings.Contains(string(data), `"image":"https://example.com/og.png"`) {
			t.Errorf("Marshal() = %s, expected image as string", data)
		}
	})

	t.Run("round trip preserves fields", func(t *testing.T) {
		rec := Record{
			URL:         "https://example.com/article",
			Title:       "Example",
			Description: "A description",
			Image:       "https://example.com/og.png",
			SiteName:    "example.com",
			Source:      SourceMicrolink,
			FetchedAt:   fetched,
			IsCustom:    true,
		}

		data, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("Marshal() returned error: %v", err)
		}

		var got Record
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal() returned error: %v", err)
		}
		if got != rec {
			t.Errorf("round trip = %+v, expected %+v", got, rec)
		}
	})
}

func TestIsPlaceholder(t *testing.T) {
	rec := &Record{Source: SourcePlaceholder}
	if !rec.IsPlaceholder() {
		t.Errorf("IsPlaceholder() = false for placeholder source")
	}

	rec = &Record{Source: SourceScraper}
	if rec.IsPlaceholder() {
		t.Errorf("IsPlaceholder() = true for scraper source")
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		expected string
	}{
		{OutcomeResolved, "resolved"},
		{OutcomeCached, "cached"},
		{OutcomePlaceholder, "placeholder"},
		{OutcomeRateLimited, "rate-limited"},
		{Outcome(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.expected {
			t.Errorf("Outcome(%d).String() = %q, expected %q", tt.outcome, got, tt.expected)
		}
	}
}
