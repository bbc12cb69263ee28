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

const defaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// YouTubeOEmbed resolves YouTube videos through the official oEmbed
// endpoint, which needs no API key. Non-YouTube URLs are not applicable.
type YouTubeOEmbed struct {
	endpoint string
	client   *httputil.Client
}

// NewYouTubeOEmbed creates the oEmbed source. An empty endpoint uses
// YouTube's public one.
func NewYouTubeOEmbed(endpoint string) *YouTubeOEmbed {
	if endpoint == "" {
		endpoint = defaultOEmbedEndpoint
	}
	cfg := httputil.DefaultConfig()
	cfg.Timeout = 10 * time.Second
	cfg.MaxRetries = 1
	return &YouTubeOEmbed{
		endpoint: endpoint,
		client:   httputil.NewClient(cfg),
	}
}

// Name implements Source.
func (y *YouTubeOEmbed) Name() string { return string(preview.SourceOEmbed) }

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Attempt fetches title and author for a YouTube video.
func (y *YouTubeOEmbed) Attempt(ctx context.Context, canonicalURL string) (*preview.Record, error) {
	videoID := platform.YouTubeVideoID(canonicalURL)
	if videoID == "" {
		return nil, ErrNotApplicable
	}

	watchURL := "https://www.youtube.com/watch?v=" + videoID
	endpoint := fmt.Sprintf("%s?url=%s&format=json", y.endpoint, url.QueryEscape(watchURL))

	resp, err := y.client.GetWithContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("oembed request failed: %w", err)
	}
	defer resp.Body.Close()

	var result oembedResponse
	if err := httputil.DecodeJSONResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Title == "" {
		return nil, fmt.Errorf("oembed returned no title")
	}

	description := ""
	if result.AuthorName != "" {
		description = "By " + result.AuthorName
	}

	// maxresdefault is served for every video even when the upload
	// predates HD; it beats the low-res thumbnail oEmbed returns.
	image := "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"

	return &preview.Record{
		URL:         canonicalURL,
		Title:       preview.DecodeEntities(result.Title),
		Description: description,
		Image:       image,
		SiteName:    "YouTube",
		Source:      preview.SourceOEmbed,
	}, nil
}
