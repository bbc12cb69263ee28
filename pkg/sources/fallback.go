package sources

import (
	"context"

	"github.com/lepinkainen/preview-forge/configs"
	"github.com/lepinkainen/preview-forge/pkg/platform"
	"github.com/lepinkainen/preview-forge/pkg/preview"
)

// Placeholder is the terminal source: it always succeeds with a branded
// stand-in record so the chain never comes back empty-handed. Placeholder
// records are always considered stale, so a later retry can still upgrade
// them to real metadata.
type Placeholder struct{}

// NewPlaceholder creates the terminal fallback source.
func NewPlaceholder() *Placeholder { return &Placeholder{} }

// Name implements Source.
func (p *Placeholder) Name() string { return string(preview.SourcePlaceholder) }

// Attempt synthesizes a placeholder preview. It never fails.
func (p *Placeholder) Attempt(_ context.Context, canonicalURL string) (*preview.Record, error) {
	rec := &preview.Record{
		URL:    canonicalURL,
		Source: preview.SourcePlaceholder,
	}

	if tpl := placeholderFor(platform.Detect(canonicalURL)); tpl != nil {
		rec.Title = tpl.Title
		rec.Description = tpl.Description
		rec.Image = tpl.Image
		rec.SiteName = tpl.SiteName
		return rec, nil
	}

	siteName := platform.SiteNameFromURL(canonicalURL)
	rec.Title = siteName + " Content"
	rec.Description = "Content from this site - click to view"
	rec.Image = "https://via.placeholder.com/400x300/6c757d/ffffff?text=Link"
	rec.SiteName = siteName
	return rec, nil
}

func placeholderFor(p platform.Platform) *configs.Placeholder {
	var key string
	switch p {
	case platform.Instagram:
		key = "instagram"
	case platform.Facebook:
		key = "facebook"
	case platform.TikTok:
		key = "tiktok"
	case platform.Twitter:
		key = "twitter"
	default:
		return nil
	}

	defaults, err := configs.Load()
	if err != nil {
		return nil
	}
	if tpl, ok := defaults.Placeholders[key]; ok {
		return &tpl
	}
	return nil
}
