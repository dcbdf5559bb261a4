package crates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/lpatch/pkg/cache"
	lperrors "github.com/matzehuels/lpatch/pkg/errors"
	"github.com/matzehuels/lpatch/pkg/integrations"
)

func TestNewClient(t *testing.T) {
	c := NewClient(cache.NewNullCache(), time.Hour)
	if c.Client == nil {
		t.Error("expected client to be initialized")
	}
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}

func TestNewClientWithBaseURL(t *testing.T) {
	c := NewClientWithBaseURL(cache.NewNullCache(), time.Hour, "http://mirror.local/api/v1/")
	if c.baseURL != "http://mirror.local/api/v1" {
		t.Errorf("baseURL = %q, trailing slash should be trimmed", c.baseURL)
	}
}

func crateServer(t *testing.T, repository string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	resp := crateResponse{}
	resp.Crate.Name = "serde"
	resp.Crate.MaxVersion = "1.0.0"
	resp.Crate.Description = "A serialization framework"
	resp.Crate.License = "MIT"
	resp.Crate.Repository = repository
	resp.Crate.Downloads = 1000000

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if ua := r.Header.Get("User-Agent"); ua != UserAgent {
			t.Errorf("User-Agent = %q, want %q", ua, UserAgent)
		}
		switch r.URL.Path {
		case "/crates/serde":
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_FetchCrate(t *testing.T) {
	server := crateServer(t, "https://github.com/serde-rs/serde", nil)
	c := NewClientWithBaseURL(cache.NewNullCache(), time.Hour, server.URL)

	info, err := c.FetchCrate(context.Background(), "serde", true)
	if err != nil {
		t.Fatalf("FetchCrate failed: %v", err)
	}

	if info.Name != "serde" {
		t.Errorf("expected name serde, got %s", info.Name)
	}
	if info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", info.Version)
	}
	if info.Repository != "https://github.com/serde-rs/serde" {
		t.Errorf("Repository = %q, want the raw published value", info.Repository)
	}
}

func TestClient_FetchCrate_NotFound(t *testing.T) {
	server := crateServer(t, "", nil)
	c := NewClientWithBaseURL(cache.NewNullCache(), time.Hour, server.URL)

	_, err := c.FetchCrate(context.Background(), "nonexistent", true)
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Errorf("FetchCrate error = %v, want ErrNotFound", err)
	}
}

func TestClient_RepositoryURL(t *testing.T) {
	tests := []struct {
		name     string
		repo     string
		want     string
		wantCode lperrors.Code
	}{
		{"github gets .git", "https://github.com/serde-rs/serde", "https://github.com/serde-rs/serde.git", ""},
		{"tree path stripped", "https://github.com/serde-rs/serde/tree/master", "https://github.com/serde-rs/serde.git", ""},
		{"non github verbatim", "https://gitlab.com/serde/serde", "https://gitlab.com/serde/serde", ""},
		{"missing repository", "", "", lperrors.ErrCodeNoRepository},
		{"unusable repository", "serde-rs/serde", "", lperrors.ErrCodeInvalidRepository},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := crateServer(t, tt.repo, nil)
			c := NewClientWithBaseURL(cache.NewNullCache(), time.Hour, server.URL)

			got, err := c.RepositoryURL(context.Background(), "serde", false)
			if tt.wantCode != "" {
				if !lperrors.Is(err, tt.wantCode) {
					t.Errorf("RepositoryURL error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("RepositoryURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("RepositoryURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_RepositoryURL_NotFound(t *testing.T) {
	server := crateServer(t, "", nil)
	c := NewClientWithBaseURL(cache.NewNullCache(), time.Hour, server.URL)

	_, err := c.RepositoryURL(context.Background(), "missing-crate", false)
	if !lperrors.Is(err, lperrors.ErrCodePackageNotFound) {
		t.Errorf("error code = %s, want PACKAGE_NOT_FOUND", lperrors.GetCode(err))
	}
	if !errors.Is(err, integrations.ErrNotFound) {
		t.Error("error should wrap integrations.ErrNotFound")
	}
	if len(lperrors.Hints(err)) == 0 {
		t.Error("expected a remediation hint")
	}
}

func TestClient_RepositoryURL_ServerError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClientWithBaseURL(cache.NewNullCache(), time.Hour, server.URL)
	_, err := c.RepositoryURL(context.Background(), "serde", false)
	if !lperrors.Is(err, lperrors.ErrCodeNetwork) {
		t.Errorf("error code = %s, want NETWORK_ERROR", lperrors.GetCode(err))
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("registry hit %d times, want 1", n)
	}
}

func TestClient_RepositoryURL_Cached(t *testing.T) {
	var hits atomic.Int32
	server := crateServer(t, "https://github.com/serde-rs/serde", &hits)

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClientWithBaseURL(fc, time.Hour, server.URL)
	ctx := context.Background()

	for range 2 {
		if _, err := c.RepositoryURL(ctx, "serde", false); err != nil {
			t.Fatalf("RepositoryURL: %v", err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("registry hit %d times, want 1 (second lookup cached)", n)
	}

	if _, err := c.RepositoryURL(ctx, "serde", true); err != nil {
		t.Fatalf("RepositoryURL refresh: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("registry hit %d times after refresh, want 2", n)
	}
}
