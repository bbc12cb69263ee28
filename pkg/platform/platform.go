// Package platform provides platform classification and URL canonicalization.
package platform

import (
	"net/url"
	"strings"
)

// Platform identifies a known social/video platform for policy decisions
// (rate budgets, cache staleness, placeholder content, title cleaning).
type Platform int

// Known platforms
const (
	Unknown Platform = iota
	Instagram
	Facebook
	TikTok
	Twitter
	YouTube
	LinkedIn
	Reddit
)

// trackingParams are stripped from every URL during canonicalization.
var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

// Detect classifies a URL by hostname substring match.
func Detect(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Unknown
	}
	return detectHost(strings.ToLower(u.Hostname()))
}

func detectHost(host string) Platform {
	switch {
	case strings.Contains(host, "instagram.com"):
		return Instagram
	case strings.Contains(host, "facebook.com"):
		return Facebook
	case strings.Contains(host, "tiktok.com"):
		return TikTok
	case strings.Contains(host, "twitter.com"), strings.Contains(host, "x.com"):
		return Twitter
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return YouTube
	case strings.Contains(host, "linkedin.com"):
		return LinkedIn
	case strings.Contains(host, "reddit.com"):
		return Reddit
	default:
		return Unknown
	}
}

// SiteName returns the human-readable platform name.
func (p Platform) SiteName() string {
	switch p {
	case Instagram:
		return "Instagram"
	case Facebook:
		return "Facebook"
	case TikTok:
		return "TikTok"
	case Twitter:
		return "X (Twitter)"
	case YouTube:
		return "YouTube"
	case LinkedIn:
		return "LinkedIn"
	case Reddit:
		return "Reddit"
	default:
		return ""
	}
}

// IsSocial reports whether the platform's content churns quickly enough that
// cached previews expire on a short window. Twitter is deliberately excluded:
// its previews are placeholder-only anyway, and placeholders are always stale.
func (p Platform) IsSocial() bool {
	return p == Instagram || p == Facebook || p == TikTok
}

// SiteNameFromURL derives a display name for arbitrary URLs: the platform
// name when recognized, otherwise the hostname without the www prefix.
func SiteNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "Unknown site"
	}
	host := strings.ToLower(u.Hostname())
	if p := detectHost(host); p != Unknown {
		return p.SiteName()
	}
	return strings.TrimPrefix(host, "www.")
}

// IsValidURL checks if a URL is valid
func IsValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Canonicalize rewrites a URL to its single stable form used for cache keys
// and in-flight deduplication. Hostnames are lowercased, the www prefix is
// dropped, tracking parameters are removed, and YouTube/Instagram permalinks
// collapse to one canonical shape regardless of the input variant.
// Canonicalize is idempotent: applying it to its own output is a no-op.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())

	switch detectHost(host) {
	case YouTube:
		if id := youTubeVideoID(u, host); id != "" {
			return "https://www.youtube.com/watch?v=" + id, nil
		}
	case Instagram:
		if kind, id := instagramPostID(u); id != "" {
			return "https://www.instagram.com/" + kind + "/" + id + "/", nil
		}
	}

	u.Host = strings.TrimPrefix(host, "www.")
	if u.Port() != "" {
		u.Host += ":" + u.Port()
	}
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// YouTubeVideoID extracts the video ID from the three supported URL shapes:
// youtube.com/watch?v=ID, youtu.be/ID and youtube.com/embed/ID. Any trailing
// query or parameter suffix is stripped from the ID. Returns "" for
// non-YouTube URLs.
func YouTubeVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return youTubeVideoID(u, strings.ToLower(u.Hostname()))
}

func youTubeVideoID(u *url.URL, host string) string {
	var id string
	switch {
	case strings.Contains(host, "youtu.be"):
		id = strings.TrimPrefix(u.Path, "/")
	case u.Query().Get("v") != "":
		id = u.Query().Get("v")
	case strings.Contains(u.Path, "/embed/"):
		id = strings.SplitN(u.Path, "/embed/", 2)[1]
	}
	id, _, _ = strings.Cut(id, "&")
	id, _, _ = strings.Cut(id, "?")
	id, _, _ = strings.Cut(id, "/")
	return id
}

// InstagramPostID extracts the post or reel ID from an Instagram permalink.
// Returns the path kind ("p" or "reel") and the ID, or empty strings when the
// URL is not a post/reel permalink.
func InstagramPostID(rawURL string) (kind, id string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	return instagramPostID(u)
}

func instagramPostID(u *url.URL) (kind, id string) {
	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) >= 2 && (parts[0] == "p" || parts[0] == "reel") {
		return parts[0], parts[1]
	}
	return "", ""
}

// ResolveURL resolves a relative URL against a base URL
// If the URL is already absolute, it returns it unchanged
func ResolveURL(baseURL, relativeURL string) (string, error) {
	rel, err := url.Parse(relativeURL)
	if err != nil {
		return "", err
	}
	if rel.IsAbs() {
		return relativeURL, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}
