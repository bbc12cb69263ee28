package sources

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	httputil "github.com/lepinkainen/preview-forge/pkg/http"
	"github.com/lepinkainen/preview-forge/pkg/platform"
	"github.com/lepinkainen/preview-forge/pkg/preview"
)

const (
	// maxBodySize bounds how much HTML we read from a page
	maxBodySize = 1024 * 1024 // 1MB limit

	defaultScraperUA = "Mozilla/5.0 (compatible; PreviewForge/1.0; link preview fetcher)"
)

// Scraper is the first-priority source: a direct HTML fetch of the target
// URL, reading only the publicly served metadata (Open Graph, Twitter Card
// and standard meta tags, the document title, and JSON-LD blocks).
type Scraper struct {
	client *httputil.Client
}

// NewScraper creates the scraping source. An empty userAgent uses the
// default self-identifying one.
func NewScraper(userAgent string) *Scraper {
	if userAgent == "" {
		userAgent = defaultScraperUA
	}
	cfg := httputil.DefaultConfig()
	cfg.Timeout = 15 * time.Second
	cfg.UserAgent = userAgent
	cfg.MaxRetries = 1
	cfg.Headers = map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip",
		"Connection":      "keep-alive",
	}
	return &Scraper{client: httputil.NewClient(cfg)}
}

// Name implements Source.
func (s *Scraper) Name() string { return string(preview.SourceScraper) }

// Attempt fetches the page and extracts its declared metadata.
func (s *Scraper) Attempt(ctx context.Context, canonicalURL string) (*preview.Record, error) {
	resp, err := s.client.GetWithContext(ctx, canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.EnsureStatusOK(resp); err != nil {
		return nil, err
	}

	contentType := httputil.GetContentType(resp)
	if !strings.Contains(strings.ToLower(contentType), "text/html") &&
		!strings.Contains(strings.ToLower(contentType), "application/xhtml") {
		return nil, fmt.Errorf("not an HTML page: %s", contentType)
	}

	// Handle compression
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	htmlContent, err := convertToUTF8(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to convert content to UTF-8: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var meta pageMeta
	extractMetaTags(doc, &meta)
	if meta.title == "" || meta.description == "" {
		applyJSONLD(doc, &meta)
	}

	if meta.title == "" && meta.description == "" && meta.image == "" {
		return nil, fmt.Errorf("no metadata found")
	}

	rec := &preview.Record{
		URL:         canonicalURL,
		Title:       preview.DecodeEntities(meta.title),
		Description: preview.DecodeEntities(meta.description),
		SiteName:    preview.DecodeEntities(meta.siteName),
		Source:      preview.SourceScraper,
	}
	if rec.SiteName == "" {
		rec.SiteName = platform.SiteNameFromURL(canonicalURL)
	}
	if meta.image != "" {
		// Images must come out absolute; resolve against the page URL.
		if abs, err := platform.ResolveURL(canonicalURL, meta.image); err == nil && platform.IsValidURL(abs) {
			rec.Image = abs
		}
	}

	return rec, nil
}

type pageMeta struct {
	title       string
	description string
	image       string
	siteName    string
}

// extractMetaTags recursively extracts preview meta tags from HTML
func extractMetaTags(n *html.Node, meta *pageMeta) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			processMetaTag(n, meta)
		case "title":
			if meta.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				meta.title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractMetaTags(c, meta)
	}
}

// processMetaTag processes individual meta tags
func processMetaTag(n *html.Node, meta *pageMeta) {
	var property, content, name string

	for _, attr := range n.Attr {
		switch attr.Key {
		case "property":
			property = attr.Val
		case "content":
			content = attr.Val
		case "name":
			name = attr.Val
		}
	}

	switch property {
	case "og:title":
		if meta.title == "" {
			meta.title = content
		}
	case "og:description":
		if meta.description == "" {
			meta.description = content
		}
	case "og:image":
		if meta.image == "" {
			meta.image = content
		}
	case "og:site_name":
		if meta.siteName == "" {
			meta.siteName = content
		}
	}

	// Twitter Card and standard meta tags as fallbacks
	switch name {
	case "twitter:title":
		if meta.title == "" {
			meta.title = content
		}
	case "twitter:description", "description":
		if meta.description == "" {
			meta.description = content
		}
	case "twitter:image":
		if meta.image == "" {
			meta.image = content
		}
	case "twitter:site":
		if meta.siteName == "" {
			meta.siteName = content
		}
	}
}

// applyJSONLD fills missing title/description from JSON-LD script blocks,
// which social pages often populate when og: tags are withheld.
func applyJSONLD(doc *html.Node, meta *pageMeta) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" && scriptIsJSONLD(n) {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				mergeJSONLD(n.FirstChild.Data, meta)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

func scriptIsJSONLD(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "type" && strings.EqualFold(attr.Val, "application/ld+json") {
			return true
		}
	}
	return false
}

func mergeJSONLD(raw string, meta *pageMeta) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return
	}

	pick := func(fields ...string) string {
		for _, f := range fields {
			if v, ok := data[f].(string); ok && len(v) > 10 {
				return v
			}
		}
		return ""
	}

	if meta.title == "" {
		meta.title = pick("headline", "name", "caption")
	}
	if meta.description == "" {
		meta.description = pick("description", "text", "caption")
	}
}

// convertToUTF8 converts response body to UTF-8 with encoding detection.
func convertToUTF8(body []byte, contentType string) (string, error) {
	utf8Reader, err := charset.NewReader(strings.NewReader(string(body)), contentType)
	if err != nil {
		// If charset detection fails, assume UTF-8
		return string(body), nil
	}

	utf8Bytes, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("failed to convert to UTF-8: %w", err)
	}

	return string(utf8Bytes), nil
}
