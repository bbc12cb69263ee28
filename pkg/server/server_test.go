package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lepinkainen/preview-forge/pkg/cache"
	"github.com/lepinkainen/preview-forge/pkg/preview"
	"github.com/lepinkainen/preview-forge/pkg/ratelimit"
	"github.com/lepinkainen/preview-forge/pkg/resolver"
	"github.com/lepinkainen/preview-forge/pkg/sources"
)

// memStore is an in-memory cache.Store for handler tests.
type memStore struct {
	records map[string]*preview.Record
}

func (m *memStore) Get(_ context.Context, key string) (*preview.Record, error) {
	return m.records[key], nil
}

func (m *memStore) Set(_ context.Context, key string, rec *preview.Record) error {
	m.records[key] = rec
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.records, key)
	return nil
}

// stubSource always succeeds with a fixed record.
type stubSource struct{}

func (stubSource) Name() string { return "stub" }

func (stubSource) Attempt(_ context.Context, canonicalURL string) (*preview.Record, error) {
	return &preview.Record{
		URL:      canonicalURL,
		Title:    "Stub Title",
		Image:    "https://cdn.example.com/og.png",
		SiteName: "example.com",
		Source:   preview.SourceScraper,
	}, nil
}

func newTestServer() *Server {
	chain := sources.NewChain([]sources.Source{stubSource{}}, time.Second, 5*time.Second)
	r := resolver.New(
		cache.New(&memStore{records: make(map[string]*preview.Record)}),
		ratelimit.NewDomainLimiter(nil),
		chain,
		resolver.Options{Cooldown: time.Minute},
	)
	return New(":0", r)
}

func TestHandlePreviewGet(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/preview?url=https://example.com/article", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Preview struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"preview"`
		Outcome string `json:"outcome"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Preview.Title != "Stub Title" {
		t.Errorf("preview.title = %q, expected %q", resp.Preview.Title, "Stub Title")
	}
	if resp.Outcome != "resolved" {
		t.Errorf("outcome = %q, expected resolved", resp.Outcome)
	}
}

func TestHandlePreviewPost(t *testing.T) {
	srv := newTestServer()

	body := strings.NewReader(`{"url": "https://example.com/article"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/preview", body)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200, body: %s", w.Code, w.Body.String())
	}
}

func TestHandlePreviewMissingURL(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/preview", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "Missing url" {
		t.Errorf("error = %q, expected %q", resp["error"], "Missing url")
	}
}

func TestHandlePreviewInvalidURL(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/preview?url=not%20a%20url", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400 for an unparseable URL", w.Code)
	}
}

func TestHandlePreviewMethodNotAllowed(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodDelete, "/api/preview?url=https://example.com", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, expected 405", w.Code)
	}
}

func TestHandleBatch(t *testing.T) {
	srv := newTestServer()

	body := strings.NewReader(`{"urls": ["https://example.com/a", "https://example.com/b"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/preview/batch", body)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Results []struct {
			URL     string `json:"url"`
			Outcome string `json:"outcome"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, expected 2", len(resp.Results))
	}
	if resp.Results[0].URL != "https://example.com/a" {
		t.Errorf("results[0].url = %q, expected input order preserved", resp.Results[0].URL)
	}
}

func TestHandleBatchLimits(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		name string
		body string
	}{
		{
			name: "empty list",
			body: `{"urls": []}`,
		},
		{
			name: "too many urls",
			body: `{"urls": ["u1","u2","u3","u4","u5","u6","u7","u8","u9","u10","u11"]}`,
		},
		{
			name: "invalid json",
			body: `{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/preview/batch", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, expected 400", w.Code)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s, expected status ok", w.Body.String())
	}
}
