package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lepinkainen/preview-forge/pkg/preview"
)

func TestMicrolinkParsesResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			t.Errorf("request missing url parameter")
		}
		if r.URL.Query().Get("screenshot") != "true" {
			t.Errorf("request missing screenshot=true")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"data": {
				"title": "API Title",
				"description": "API description",
				"publisher": "Example Publisher",
				"image": {"url": "https://cdn.example.com/image.png"},
				"screenshot": {"url": "https://cdn.example.com/shot.png"}
			}
		}`))
	}))
	defer ts.Close()

	m := NewMicrolink(ts.URL + "/")
	rec, err := m.Attempt(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("Attempt() returned error: %v", err)
	}

	if rec.Title != "API Title" {
		t.Errorf("Title = %q, expected %q", rec.Title, "API Title")
	}
	if rec.Image != "https://cdn.example.com/image.png" {
		t.Errorf("Image = %q, expected the og image over the screenshot", rec.Image)
	}
	if rec.SiteName != "Example Publisher" {
		t.Errorf("SiteName = %q, expected the publisher", rec.SiteName)
	}
	if rec.Source != preview.SourceMicrolink {
		t.Errorf("Source = %q, expected %q", rec.Source, preview.SourceMicrolink)
	}
}

func TestMicrolinkFallsBackToScreenshot(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"data": {
				"title": "API Title",
				"screenshot": {"url": "https://cdn.example.com/shot.png"}
			}
		}`))
	}))
	defer ts.Close()

	m := NewMicrolink(ts.URL + "/")
	rec, err := m.Attempt(context.Background(), "https://example.com/article")
	if err != nil {
		t.Fatalf("Attempt() returned error: %v", err)
	}

	if rec.Image != "https://cdn.example.com/shot.png" {
		t.Errorf("Image = %q, expected the screenshot fallback", rec.Image)
	}
}

func TestMicrolinkErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "rate limited fails without retry",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "api-level failure status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status": "fail", "data": {}}`))
			},
		},
		{
			name: "success without title",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status": "success", "data": {"description": "only"}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				tt.handler(w, r)
			}))
			defer ts.Close()

			m := NewMicrolink(ts.URL + "/")
			if _, err := m.Attempt(context.Background(), "https://example.com/a"); err == nil {
				t.Errorf("Attempt() = nil error, expected failure")
			}
			if calls != 1 {
				t.Errorf("server received %d calls, expected exactly 1 (no retries)", calls)
			}
		})
	}
}
