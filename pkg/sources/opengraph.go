package sources

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	httputil "github.com/lepinkainen/preview-forge/pkg/http"
	"github.com/lepinkainen/preview-forge/pkg/platform"
	"github.com/lepinkainen/preview-forge/pkg/preview"
)

const defaultBrowserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// OpenGraphFallback re-fetches the page with a full browser user agent
// and pulls og: tags out with regexes. Sites that cloak metadata from
// obvious bots often still serve it to a browser-looking request, and
// a regex pass survives HTML too broken for the parser.
type OpenGraphFallback struct {
	client *httputil.Client
}

// NewOpenGraphFallback creates the fallback source. An empty userAgent
// uses a desktop Chrome string.
func NewOpenGraphFallback(userAgent string) *OpenGraphFallback {
	if userAgent == "" {
		userAgent = defaultBrowserUA
	}
	cfg := httputil.DefaultConfig()
	cfg.Timeout = 12 * time.Second
	cfg.UserAgent = userAgent
	cfg.MaxRetries = 0
	cfg.Headers = map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	return &OpenGraphFallback{client: httputil.NewClient(cfg)}
}

// Name implements Source.
func (o *OpenGraphFallback) Name() string { return string(preview.SourceOpenGraph) }

// Meta tag regexes tolerate either attribute order.
var (
	reOGTitle    = metaRegexp("og:title")
	reOGDesc     = metaRegexp("og:description")
	reOGImage    = metaRegexp("og:image")
	reOGSiteName = metaRegexp("og:site_name")
	reHTMLTitle  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

func metaRegexp(property string) *regexp.Regexp {
	p := regexp.QuoteMeta(property)
	return regexp.MustCompile(`(?is)<meta[^>]+(?:property|name)=["']` + p + `["'][^>]+content=["']([^"']*)["']|<meta[^>]+content=["']([^"']*)["'][^>]+(?:property|name)=["']` + p + `["']`)
}

func firstMatch(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// Attempt scans the raw HTML for Open Graph tags.
func (o *OpenGraphFallback) Attempt(ctx context.Context, canonicalURL string) (*preview.Record, error) {
	resp, err := o.client.GetWithContext(ctx, canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.EnsureStatusOK(resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	body := string(raw)

	title := firstMatch(reOGTitle, body)
	if title == "" {
		title = firstMatch(reHTMLTitle, body)
	}
	description := firstMatch(reOGDesc, body)
	image := firstMatch(reOGImage, body)

	if title == "" && description == "" && image == "" {
		return nil, fmt.Errorf("no open graph tags found")
	}

	siteName := preview.DecodeEntities(firstMatch(reOGSiteName, body))
	if siteName == "" {
		siteName = platform.SiteNameFromURL(canonicalURL)
	}

	rec := &preview.Record{
		URL:         canonicalURL,
		Title:       preview.DecodeEntities(title),
		Description: preview.DecodeEntities(description),
		SiteName:    siteName,
		Source:      preview.SourceOpenGraph,
	}
	if image != "" {
		if abs, err := platform.ResolveURL(canonicalURL, image); err == nil && platform.IsValidURL(abs) {
			rec.Image = abs
		}
	}
	return rec, nil
}
