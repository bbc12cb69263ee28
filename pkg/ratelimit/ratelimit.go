// Package ratelimit bounds outbound request volume per external domain.
package ratelimit

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultDomain is the shared bucket for hosts with no explicit budget.
const DefaultDomain = "default"

// Budget configures one domain's request allowance per window.
type Budget struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// DefaultBudgets mirrors the per-platform allowances the service has always
// shipped with: tight caps on social platforms, a looser one for YouTube.
func DefaultBudgets() map[string]Budget {
	return map[string]Budget{
		"instagram.com": {MaxRequests: 8, Window: time.Minute},
		"facebook.com":  {MaxRequests: 5, Window: time.Minute},
		"tiktok.com":    {MaxRequests: 3, Window: time.Minute},
		"twitter.com":   {MaxRequests: 3, Window: time.Minute},
		"x.com":         {MaxRequests: 3, Window: time.Minute},
		"youtube.com":   {MaxRequests: 10, Window: time.Minute},
		"youtu.be":      {MaxRequests: 10, Window: time.Minute},
		DefaultDomain:   {MaxRequests: 8, Window: time.Minute},
	}
}

type window struct {
	requests int
	start    time.Time
}

// DomainLimiter admits or denies outbound requests per domain on fixed
// wall-clock windows. At window expiry the counter resets to zero rather than
// decaying continuously, so a burst up to the cap is accepted right after a
// reset boundary.
type DomainLimiter struct {
	mu      sync.Mutex
	budgets map[string]Budget
	windows map[string]*window
	now     func() time.Time
}

// NewDomainLimiter creates a limiter with the given budgets. A nil map uses
// DefaultBudgets. The map must contain a "default" entry for unknown hosts.
func NewDomainLimiter(budgets map[string]Budget) *DomainLimiter {
	if budgets == nil {
		budgets = DefaultBudgets()
	}
	if _, ok := budgets[DefaultDomain]; !ok {
		budgets[DefaultDomain] = Budget{MaxRequests: 8, Window: time.Minute}
	}
	return &DomainLimiter{
		budgets: budgets,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow reports whether a request to the URL's domain may proceed, counting
// the admission against the domain's window when it does. Admission is
// counted regardless of the eventual request outcome so that outbound call
// volume stays bounded. Allow never blocks and never fails: URLs that cannot
// be parsed are admitted.
func (l *DomainLimiter) Allow(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	domain := l.matchDomain(strings.ToLower(u.Hostname()))

	l.mu.Lock()
	defer l.mu.Unlock()

	budget := l.budgets[domain]
	w, ok := l.windows[domain]
	now := l.now()
	if !ok || now.Sub(w.start) > budget.Window {
		w = &window{start: now}
		l.windows[domain] = w
	}
	if w.requests >= budget.MaxRequests {
		return false
	}
	w.requests++
	return true
}

// Remaining returns how many admissions are left in the domain's current
// window, for debugging and the cache stats output.
func (l *DomainLimiter) Remaining(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return 0
	}
	domain := l.matchDomain(strings.ToLower(u.Hostname()))

	l.mu.Lock()
	defer l.mu.Unlock()

	budget := l.budgets[domain]
	w, ok := l.windows[domain]
	if !ok || l.now().Sub(w.start) > budget.Window {
		return budget.MaxRequests
	}
	if n := budget.MaxRequests - w.requests; n > 0 {
		return n
	}
	return 0
}

func (l *DomainLimiter) matchDomain(host string) string {
	for key := range l.budgets {
		if key != DefaultDomain && strings.Contains(host, key) {
			return key
		}
	}
	return DefaultDomain
}
