// Package sources implements the ordered waterfall of preview-fetching
// strategies: direct HTML scraping, the microlink metadata API, YouTube
// oEmbed, a simpler Open Graph regex pass, and per-platform placeholders.
package sources

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lepinkainen/preview-forge/pkg/preview"
)

// Source is one preview-fetching strategy. Attempt returns a record or an
// error; errors never propagate past the chain, they advance it.
type Source interface {
	Name() string
	Attempt(ctx context.Context, canonicalURL string) (*preview.Record, error)
}

// ErrNotApplicable is returned by platform-specific sources for URLs they do
// not handle, so the chain moves on without logging a real failure.
var ErrNotApplicable = errors.New("source not applicable to this URL")

// Chain tries its sources in priority order and stops at the first success.
// Each attempt is bounded by AttemptTimeout; the whole pass is bounded by
// TotalTimeout so worst-case latency stays finite even when every upstream
// hangs.
type Chain struct {
	sources        []Source
	attemptTimeout time.Duration
	totalTimeout   time.Duration
}

// NewChain creates a chain over the given sources. Zero timeouts fall back
// to 12s per attempt and 45s total.
func NewChain(sources []Source, attemptTimeout, totalTimeout time.Duration) *Chain {
	if attemptTimeout <= 0 {
		attemptTimeout = 12 * time.Second
	}
	if totalTimeout <= 0 {
		totalTimeout = 45 * time.Second
	}
	return &Chain{
		sources:        sources,
		attemptTimeout: attemptTimeout,
		totalTimeout:   totalTimeout,
	}
}

// Fetch runs the waterfall for a canonical URL. It returns nil only when the
// chain has no applicable source at all, which cannot happen with the default
// chain: the placeholder source accepts every URL.
func (c *Chain) Fetch(ctx context.Context, canonicalURL string) *preview.Record {
	ctx, cancel := context.WithTimeout(ctx, c.totalTimeout)
	defer cancel()

	for i, src := range c.sources {
		if ctx.Err() != nil {
			slog.Warn("Source chain abandoned, total budget exhausted", "url", canonicalURL, "tried", i)
			break
		}

		attemptCtx, cancelAttempt := context.WithTimeout(ctx, c.attemptTimeout)
		rec, err := src.Attempt(attemptCtx, canonicalURL)
		cancelAttempt()

		if err != nil {
			if !errors.Is(err, ErrNotApplicable) {
				slog.Debug("Source failed, trying next", "source", src.Name(), "url", canonicalURL, "error", err)
			}
			continue
		}
		if rec != nil {
			slog.Debug("Source succeeded", "source", src.Name(), "url", canonicalURL, "title", rec.Title)
			return rec
		}
	}

	return nil
}

// DefaultOptions configures the standard chain.
type DefaultOptions struct {
	ScraperUserAgent string
	BrowserUserAgent string
	MicrolinkBaseURL string
	AttemptTimeout   time.Duration
	TotalTimeout     time.Duration
}

// NewDefaultChain wires the five standard sources in priority order.
func NewDefaultChain(opts DefaultOptions) *Chain {
	return NewChain([]Source{
		NewScraper(opts.ScraperUserAgent),
		NewMicrolink(opts.MicrolinkBaseURL),
		NewYouTubeOEmbed(""),
		NewOpenGraphFallback(opts.BrowserUserAgent),
		NewPlaceholder(),
	}, opts.AttemptTimeout, opts.TotalTimeout)
}
