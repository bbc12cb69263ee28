package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestYouTubeOEmbed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		watchURL := r.URL.Query().Get("url")
		if !strings.Contains(watchURL, "watch?v=dQw4w9WgXcQ") {
			t.Errorf("oembed request url = %q, expected the canonical watch URL", watchURL)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"title": "Video Title",
			"author_name": "Channel Name",
			"thumbnail_url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"
		}`))
	}))
	defer ts.Close()

	y := NewYouTubeOEmbed(ts.URL)
	rec, err := y.Attempt(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Attempt() returned error: %v", err)
	}

	if rec.Title != "Video Title" {
		t.Errorf("Title = %q, expected %q", rec.Title, "Video Title")
	}
	if rec.Description != "By Channel Name" {
		t.Errorf("Description = %q, expected the author attribution", rec.Description)
	}
	if rec.Image != "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg" {
		t.Errorf("Image = %q, expected the maxres thumbnail", rec.Image)
	}
	if rec.SiteName != "YouTube" {
		t.Errorf("SiteName = %q, expected YouTube", rec.SiteName)
	}
}

func TestYouTubeOEmbedNotApplicable(t *testing.T) {
	y := NewYouTubeOEmbed("http://127.0.0.1:1/unreachable")

	_, err := y.Attempt(context.Background(), "https://example.com/article")
	if !errors.Is(err, ErrNotApplicable) {
		t.Errorf("Attempt() error = %v, expected ErrNotApplicable", err)
	}
}

func TestYouTubeOEmbedUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	y := NewYouTubeOEmbed(ts.URL)
	if _, err := y.Attempt(context.Background(), "https://youtu.be/abc123"); err == nil {
		t.Errorf("Attempt() = nil error, expected failure for missing video")
	}
}
