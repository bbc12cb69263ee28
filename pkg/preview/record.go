// Package preview defines the preview record produced by the resolution
// engine and the text normalization applied to it.
package preview

import (
	"encoding/json"
	"time"
)

// Source identifies which strategy produced a record. It drives the cache
// staleness policy (placeholders are always retriable) and debugging.
type Source string

// Record provenance values
const (
	SourceScraper     Source = "legal-scraper"
	SourceMicrolink   Source = "microlink"
	SourceOEmbed      Source = "youtube-oembed"
	SourceOpenGraph   Source = "opengraph"
	SourcePlaceholder Source = "platform-fallback"
	SourceCustom      Source = "user-custom"
)

// Sentinel values written while a resolution is in flight. A cached record
// still carrying them was interrupted mid-flight and is treated as stale.
const (
	TitleLoading       = "Loading preview..."
	DescriptionLoading = "Fetching link information..."
)

// Record is the unit of value produced and cached, keyed by canonical URL.
type Record struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	SiteName    string    `json:"siteName"`
	Source      Source    `json:"source"`
	FetchedAt   time.Time `json:"fetchedAt"`
	IsCustom    bool      `json:"isCustom"`
}

// IsPlaceholder reports whether the record is a last-resort fallback.
func (r *Record) IsPlaceholder() bool {
	return r.Source == SourcePlaceholder
}

// MarshalJSON emits a null image when no thumbnail is available, matching the
// wire contract expected by preview consumers.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	out := struct {
		alias
		Image any `json:"image"`
	}{alias: alias(r)}
	if r.Image != "" {
		out.Image = r.Image
	}
	return json.Marshal(out)
}

// Outcome is the caller-visible quality signal for a resolution. Failures
// below the resolver never surface as errors; the outcome tells the caller
// whether it got real metadata, a degraded placeholder, or no attempt at all.
type Outcome int

// Resolution outcomes
const (
	OutcomeResolved    Outcome = iota // real metadata from a live strategy
	OutcomeCached                     // served from cache, no network attempt
	OutcomePlaceholder                // every strategy failed, degraded record
	OutcomeRateLimited                // admission denied, no network attempt
)

// String returns the outcome label used in logs and JSON output.
func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeCached:
		return "cached"
	case OutcomePlaceholder:
		return "placeholder"
	case OutcomeRateLimited:
		return "rate-limited"
	default:
		return "unknown"
	}
}
