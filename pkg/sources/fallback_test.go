package sources

import (
	"context"
	"strings"
	"testing"

	"github.com/lepinkainen/preview-forge/pkg/preview"
)

func TestPlaceholderPlatformRecords(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		expectedTitle string
		expectedSite  string
		imageContains string
	}{
		{
			name:          "instagram",
			url:           "https://www.instagram.com/p/ABC/",
			expectedTitle: "Instagram Post",
			expectedSite:  "Instagram",
			imageContains: "e4405f",
		},
		{
			name:          "facebook",
			url:           "https://facebook.com/post/1",
			expectedTitle: "Facebook Post",
			expectedSite:  "Facebook",
			imageContains: "1877f2",
		},
		{
			name:          "tiktok",
			url:           "https://www.tiktok.com/@u/video/1",
			expectedTitle: "TikTok Video",
			expectedSite:  "TikTok",
			imageContains: "000000",
		},
		{
			name:          "twitter",
			url:           "https://x.com/user/status/1",
			expectedTitle: "Twitter Post",
			expectedSite:  "X (Twitter)",
			imageContains: "1da1f2",
		},
	}

	p := NewPlaceholder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := p.Attempt(context.Background(), tt.url)
			if err != nil {
				t.Fatalf("Attempt() returned error: %v", err)
			}

			if rec.Title != tt.expectedTitle {
				t.Errorf("Title = %q, expected %q", rec.Title, tt.expectedTitle)
			}
			if rec.SiteName != tt.expectedSite {
				t.Errorf("SiteName = %q, expected %q", rec.SiteName, tt.expectedSite)
			}
			if !strings.Contains(rec.Image, tt.imageContains) {
				t.Errorf("Image = %q, expected the brand color %q", rec.Image, tt.imageContains)
			}
			if rec.Source != preview.SourcePlaceholder {
				t.Errorf("Source = %q, expected %q", rec.Source, preview.SourcePlaceholder)
			}
			if !rec.IsPlaceholder() {
				t.Errorf("IsPlaceholder() = false for a placeholder record")
			}
		})
	}
}

func TestPlaceholderGenericRecord(t *testing.T) {
	p := NewPlaceholder()
	rec, err := p.Attempt(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("Attempt() returned error: %v", err)
	}

	if rec.Title != "example.com Content" {
		t.Errorf("Title = %q, expected the generic site title", rec.Title)
	}
	if rec.Description != "Content from this site - click to view" {
		t.Errorf("Description = %q, expected the generic description", rec.Description)
	}
	if rec.SiteName != "example.com" {
		t.Errorf("SiteName = %q, expected the hostname", rec.SiteName)
	}
	if !strings.Contains(rec.Image, "6c757d") {
		t.Errorf("Image = %q, expected the neutral placeholder color", rec.Image)
	}
}
