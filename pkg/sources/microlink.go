package sources

import (
	"context"
	"fmt"
	"net/url"
	"time"

	httputil "github.com/lepinkainen/preview-forge/pkg/http"
	"github.com/lepinkainen/preview-forge/pkg/platform"
	"github.com/lepinkainen/preview-forge/pkg/preview"
)

const defaultMicrolinkBaseURL = "https://api.microlink.io/"

// Microlink queries the microlink.io metadata API. The free tier is
// heavily rate limited, so the client never retries: a 429 fails fast
// and lets the chain move on.
type Microlink struct {
	baseURL string
	client  *httputil.Client
}

// NewMicrolink creates the microlink source. An empty baseURL uses the
// public API endpoint.
func NewMicrolink(baseURL string) *Microlink {
	if baseURL == "" {
		baseURL = defaultMicrolinkBaseURL
	}
	cfg := httputil.DefaultConfig()
	cfg.Timeout = 12 * time.Second
	cfg.MaxRetries = 0
	return &Microlink{
		baseURL: baseURL,
		client:  httputil.NewClient(cfg),
	}
}

// Name implements Source.
func (m *Microlink) Name() string { return string(preview.SourceMicrolink) }

type microlinkResponse struct {
	Status string `json:"status"`
	Data   struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Publisher   string `json:"publisher"`
		Image       *struct {
			URL string `json:"url"`
		} `json:"image"`
		Screenshot *struct {
			URL string `json:"url"`
		} `json:"screenshot"`
	} `json:"data"`
}

// Attempt asks the API for metadata plus a screenshot of the page.
func (m *Microlink) Attempt(ctx context.Context, canonicalURL string) (*preview.Record, error) {
	endpoint := fmt.Sprintf("%s?url=%s&screenshot=true&meta=true", m.baseURL, url.QueryEscape(canonicalURL))

	resp, err := m.client.GetWithContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("microlink request failed: %w", err)
	}
	defer resp.Body.Close()

	var result microlinkResponse
	if err := httputil.DecodeJSONResponse(resp, &result); err != nil {
		return nil, err
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("microlink returned status %q", result.Status)
	}
	if result.Data.Title == "" {
		return nil, fmt.Errorf("microlink returned no title")
	}

	// Prefer the real og:image, fall back to the rendered screenshot.
	image := ""
	if result.Data.Image != nil {
		image = result.Data.Image.URL
	}
	if image == "" && result.Data.Screenshot != nil {
		image = result.Data.Screenshot.URL
	}

	siteName := result.Data.Publisher
	if siteName == "" {
		siteName = platform.SiteNameFromURL(canonicalURL)
	}

	return &preview.Record{
		URL:         canonicalURL,
		Title:       preview.DecodeEntities(result.Data.Title),
		Description: preview.DecodeEntities(result.Data.Description),
		Image:       image,
		SiteName:    siteName,
		Source:      preview.SourceMicrolink,
	}, nil
}
