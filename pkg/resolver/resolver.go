// Package resolver orchestrates preview resolution: cache lookups,
// per-domain rate budgets, in-flight deduplication and the source chain.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/preview-forge/pkg/cache"
	"github.com/lepinkainen/preview-forge/pkg/platform"
	"github.com/lepinkainen/preview-forge/pkg/preview"
	"github.com/lepinkainen/preview-forge/pkg/ratelimit"
	"github.com/lepinkainen/preview-forge/pkg/sources"
)

const (
	// DefaultCooldown is the minimum spacing between live fetch attempts
	// for the same canonical URL.
	DefaultCooldown = 3 * time.Second

	// DefaultMaxConcurrent bounds parallel resolutions in a batch.
	DefaultMaxConcurrent = 5

	// DefaultBatchStagger spreads batch launches so a burst of same-domain
	// URLs does not slam the budget window all at once.
	DefaultBatchStagger = 100 * time.Millisecond
)

// Options tunes resolver behavior. Zero Cooldown and MaxConcurrent take the
// defaults above; a zero BatchStagger disables staggering and a negative one
// takes the default.
type Options struct {
	Cooldown      time.Duration
	MaxConcurrent int
	BatchStagger  time.Duration
}

// Resolver is safe for concurrent use.
type Resolver struct {
	cache   *cache.Cache
	limiter *ratelimit.DomainLimiter
	chain   *sources.Chain

	cooldown      time.Duration
	maxConcurrent int
	batchStagger  time.Duration

	mu          sync.Mutex
	inflight    map[string]*inflightCall
	lastAttempt map[string]time.Time

	// storeMu serializes automated cache write-through against custom
	// overrides, so a fetch that was already running when an override
	// landed cannot replace the pinned record.
	storeMu sync.Mutex

	now func() time.Time
}

// inflightCall is one live resolution that later duplicate requests wait on.
type inflightCall struct {
	done    chan struct{}
	rec     *preview.Record
	outcome preview.Outcome
}

// New creates a resolver over the given cache, limiter and source chain.
func New(c *cache.Cache, limiter *ratelimit.DomainLimiter, chain *sources.Chain, opts Options) *Resolver {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.BatchStagger < 0 {
		opts.BatchStagger = DefaultBatchStagger
	}
	return &Resolver{
		cache:         c,
		limiter:       limiter,
		chain:         chain,
		cooldown:      opts.Cooldown,
		maxConcurrent: opts.MaxConcurrent,
		batchStagger:  opts.BatchStagger,
		inflight:      make(map[string]*inflightCall),
		lastAttempt:   make(map[string]time.Time),
		now:           time.Now,
	}
}

// Resolve returns a preview for rawURL. It never fails for reachable-URL
// reasons: the chain bottoms out in a placeholder. The only error case is a
// URL that cannot be parsed into a canonical form.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*preview.Record, preview.Outcome, error) {
	return r.resolve(ctx, rawURL, false)
}

// Retry forces a fresh fetch even when the cached record is not stale.
// Custom records are immune: they are returned as-is, never re-fetched.
func (r *Resolver) Retry(ctx context.Context, rawURL string) (*preview.Record, preview.Outcome, error) {
	return r.resolve(ctx, rawURL, true)
}

func (r *Resolver) resolve(ctx context.Context, rawURL string, force bool) (*preview.Record, preview.Outcome, error) {
	if !platform.IsValidURL(rawURL) {
		return nil, 0, fmt.Errorf("invalid URL: %q", rawURL)
	}
	canonical, err := platform.Canonicalize(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	p := platform.Detect(canonical)

	cached, err := r.cache.Get(ctx, canonical)
	if err != nil {
		slog.Warn("Cache read failed, resolving live", "url", canonical, "error", err)
	}
	if cached != nil {
		if cached.IsCustom {
			return cloneRecord(cached), preview.OutcomeCached, nil
		}
		if !force && !r.cache.Stale(cached, p) {
			return cloneRecord(cached), preview.OutcomeCached, nil
		}
	}

	// Deduplicate: a second request for the same canonical URL while a
	// fetch is live waits for that fetch instead of starting its own.
	r.mu.Lock()
	if call, ok := r.inflight[canonical]; ok {
		r.mu.Unlock()
		select {
		case <-call.done:
			return cloneRecord(call.rec), call.outcome, nil
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	// Cooldown and budget checks happen under the same lock that would
	// admit a duplicate, so exactly one caller pays for each live fetch.
	if last, ok := r.lastAttempt[canonical]; ok && r.now().Sub(last) < r.cooldown {
		r.mu.Unlock()
		return r.denied(ctx, canonical, cached, "cooldown")
	}
	if !r.limiter.Allow(canonical) {
		r.mu.Unlock()
		return r.denied(ctx, canonical, cached, "rate budget")
	}
	r.lastAttempt[canonical] = r.now()
	call := &inflightCall{done: make(chan struct{})}
	r.inflight[canonical] = call
	r.mu.Unlock()

	rec := r.fetch(ctx, canonical)
	outcome := preview.OutcomeResolved
	if rec.IsPlaceholder() {
		outcome = preview.OutcomePlaceholder
	}
	rec, outcome = r.commit(ctx, canonical, rec, outcome)

	r.mu.Lock()
	call.rec = rec
	call.outcome = outcome
	delete(r.inflight, canonical)
	r.mu.Unlock()
	close(call.done)

	return cloneRecord(rec), outcome, nil
}

// denied handles a refused live fetch: the stale cached record still serves
// if one exists, otherwise a placeholder is synthesized and cached so the
// caller always gets something renderable.
func (r *Resolver) denied(ctx context.Context, canonical string, cached *preview.Record, reason string) (*preview.Record, preview.Outcome, error) {
	slog.Debug("Live fetch refused", "url", canonical, "reason", reason)
	if cached != nil {
		return cloneRecord(cached), preview.OutcomeRateLimited, nil
	}
	rec := r.placeholder(ctx, canonical)
	rec, _ = r.commit(ctx, canonical, rec, preview.OutcomeRateLimited)
	return cloneRecord(rec), preview.OutcomeRateLimited, nil
}

// commit writes an automated result through to the cache. A custom record
// stored since the fetch started wins: the automated result is discarded and
// the pinned record comes back with a cached outcome.
func (r *Resolver) commit(ctx context.Context, canonical string, rec *preview.Record, outcome preview.Outcome) (*preview.Record, preview.Outcome) {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	if current, err := r.cache.Get(ctx, canonical); err == nil && current != nil && current.IsCustom {
		return current, preview.OutcomeCached
	}
	if err := r.cache.Put(ctx, rec); err != nil {
		slog.Warn("Cache write failed", "url", canonical, "error", err)
	}
	return rec, outcome
}

// fetch runs the source chain and normalizes the result.
func (r *Resolver) fetch(ctx context.Context, canonical string) *preview.Record {
	rec := r.chain.Fetch(ctx, canonical)
	if rec == nil {
		rec = r.placeholder(ctx, canonical)
	}
	rec.URL = canonical
	rec.Title = preview.CleanTitle(rec.Title)
	rec.FetchedAt = r.now()
	return rec
}

// placeholder synthesizes the terminal fallback record directly.
func (r *Resolver) placeholder(ctx context.Context, canonical string) *preview.Record {
	rec, _ := sources.NewPlaceholder().Attempt(ctx, canonical)
	rec.FetchedAt = r.now()
	return rec
}

// CustomOverride carries user-supplied preview fields. Empty fields keep
// whatever the existing record has.
type CustomOverride struct {
	Title       string
	Description string
	Image       string
	SiteName    string
}

// ApplyCustomOverride merges user-supplied fields over the current record
// and pins the result: custom records are never considered stale and are
// never re-fetched.
func (r *Resolver) ApplyCustomOverride(ctx context.Context, rawURL string, override CustomOverride) (*preview.Record, error) {
	canonical, err := platform.Canonicalize(rawURL)
	if err != nil || !platform.IsValidURL(rawURL) {
		return nil, fmt.Errorf("invalid URL: %q", rawURL)
	}

	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	rec, err := r.cache.Get(ctx, canonical)
	if err != nil || rec == nil {
		rec = &preview.Record{
			URL:      canonical,
			SiteName: platform.SiteNameFromURL(canonical),
		}
	}

	if override.Title != "" {
		rec.Title = override.Title
	}
	if override.Description != "" {
		rec.Description = override.Description
	}
	if override.Image != "" {
		rec.Image = override.Image
	}
	if override.SiteName != "" {
		rec.SiteName = override.SiteName
	}
	rec.IsCustom = true
	rec.Source = preview.SourceCustom
	rec.FetchedAt = r.now()

	if err := r.cache.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store custom preview: %w", err)
	}
	return cloneRecord(rec), nil
}

// BatchResult is one URL's outcome in a batch resolution.
type BatchResult struct {
	URL     string
	Record  *preview.Record
	Outcome preview.Outcome
	Err     error
}

// ResolveBatch resolves many URLs concurrently, bounded by the configured
// concurrency limit and staggered so same-domain bursts spread over the
// budget window. Results come back in input order.
func (r *Resolver) ResolveBatch(ctx context.Context, urls []string) []BatchResult {
	results := make([]BatchResult, len(urls))
	sem := make(chan struct{}, r.maxConcurrent)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()

			if r.batchStagger > 0 {
				select {
				case <-time.After(time.Duration(i) * r.batchStagger):
				case <-ctx.Done():
					results[i] = BatchResult{URL: u, Err: ctx.Err()}
					return
				}
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = BatchResult{URL: u, Err: ctx.Err()}
				return
			}

			rec, outcome, err := r.Resolve(ctx, u)
			results[i] = BatchResult{URL: u, Record: rec, Outcome: outcome, Err: err}
		}(i, u)
	}

	wg.Wait()
	return results
}

func cloneRecord(rec *preview.Record) *preview.Record {
	if rec == nil {
		return nil
	}
	clone := *rec
	return &clone
}
