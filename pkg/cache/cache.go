// Package cache provides durable storage of preview records keyed by
// canonical URL, and the single staleness policy that decides when a cached
// record is fresh enough to skip a refetch.
package cache

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lepinkainen/preview-forge/pkg/platform"
	"github.com/lepinkainen/preview-forge/pkg/preview"
)

// SocialMaxAge is how long social-media previews stay fresh. Captions, view
// counts and availability churn; ordinary web page metadata does not.
const SocialMaxAge = time.Hour

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Store is the persistence collaborator: a plain key/value document store.
// Get returns (nil, nil) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (*preview.Record, error)
	Set(ctx context.Context, key string, rec *preview.Record) error
	Delete(ctx context.Context, key string) error
}

// SafeKey encodes a canonical URL into a key safe for any document store:
// percent-encode, then replace every non-alphanumeric character with '_'.
func SafeKey(canonicalURL string) string {
	return nonAlphanumeric.ReplaceAllString(url.QueryEscape(canonicalURL), "_")
}

// Cache wraps a Store with the staleness policy and key encoding.
type Cache struct {
	store Store
	now   func() time.Time
}

// New creates a cache over the given store.
func New(store Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// Get returns the cached record for a canonical URL, or nil on a miss.
// Records that fail basic shape validation are treated as a miss, never as an
// error the caller has to handle.
func (c *Cache) Get(ctx context.Context, canonicalURL string) (*preview.Record, error) {
	rec, err := c.store.Get(ctx, SafeKey(canonicalURL))
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.URL == "" || rec.FetchedAt.IsZero() {
		return nil, nil
	}
	return rec, nil
}

// Put writes a record through to the store, keyed by its canonical URL.
// Idempotent on the same key.
func (c *Cache) Put(ctx context.Context, rec *preview.Record) error {
	return c.store.Set(ctx, SafeKey(rec.URL), rec)
}

// Delete removes the record for a canonical URL.
func (c *Cache) Delete(ctx context.Context, canonicalURL string) error {
	return c.store.Delete(ctx, SafeKey(canonicalURL))
}

// Stale reports whether a cached record should be refetched.
//
// Custom records are never stale: user-supplied fields must survive every
// automated refresh. Placeholder records are always stale regardless of age,
// so degraded fallbacks keep getting upgrade attempts instead of caching
// failure forever. Social-media records expire after SocialMaxAge. Everything
// else is fresh once complete; incomplete records (no image, or the loading
// sentinels left behind by an interrupted resolution) are stale.
func (c *Cache) Stale(rec *preview.Record, p platform.Platform) bool {
	if rec == nil {
		return true
	}
	if rec.IsCustom {
		return false
	}
	if rec.IsPlaceholder() {
		return true
	}
	if p.IsSocial() {
		return c.now().Sub(rec.FetchedAt) > SocialMaxAge
	}
	if rec.Image == "" {
		return true
	}
	if rec.Title == preview.TitleLoading {
		return true
	}
	if strings.Contains(rec.Description, "Fetching link information") {
		return true
	}
	return false
}
