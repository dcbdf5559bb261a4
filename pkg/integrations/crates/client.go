package crates

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/lpatch/pkg/cache"
	lperrors "github.com/matzehuels/lpatch/pkg/errors"
	"github.com/matzehuels/lpatch/pkg/integrations"
)

// DefaultBaseURL is the crates.io API root.
const DefaultBaseURL = "https://crates.io/api/v1"

// UserAgent identifies lpatch to crates.io, which rejects anonymous clients.
const UserAgent = "lpatch/1.0 (https://github.com/matzehuels/lpatch)"

// CrateInfo holds metadata for a Rust crate from crates.io.
//
// The Version field contains the max_version (latest stable or highest version).
// Repository is the URL exactly as published; use [Client.RepositoryURL]
// for a cloneable form.
type CrateInfo struct {
	Name        string // Crate name (e.g., "serde", never empty in valid info)
	Version     string // Latest version (e.g., "1.0.193")
	Repository  string // Repository URL (may be empty)
	HomePage    string // Homepage URL (may be empty)
	Description string // Crate description (may be empty)
	License     string // License identifier(s) (may be empty or "MIT OR Apache-2.0")
	Downloads   int    // Total download count across all versions
}

// Client provides access to the crates.io package registry API.
// It handles HTTP requests with caching; requests are never retried.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a crates.io client with the given cache backend.
//
// Parameters:
//   - backend: Cache backend for HTTP response caching (use cache.NewNullCache() for no caching)
//   - cacheTTL: How long responses are cached (typical: 1-24 hours)
//
// The client includes a User-Agent header as required by crates.io API policy.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return NewClientWithBaseURL(backend, cacheTTL, DefaultBaseURL)
}

// NewClientWithBaseURL is like [NewClient] but talks to a crates.io
// compatible API rooted at baseURL (e.g. a mirror, or a test server).
func NewClientWithBaseURL(backend cache.Cache, cacheTTL time.Duration, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	headers := map[string]string{
		"User-Agent": UserAgent,
	}
	return &Client{
		Client:  integrations.NewClient(backend, "crates:", cacheTTL, headers),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchCrate retrieves metadata for a Rust crate from crates.io.
//
// If refresh is true, the cache is bypassed and a fresh API call is made.
//
// Returns:
//   - CrateInfo populated with metadata on success
//   - [integrations.ErrNotFound] if the crate doesn't exist
//   - [integrations.ErrNetwork] for HTTP failures (timeout, 5xx, etc.)
//   - Other errors for JSON decoding failures
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, crate, refresh, &info, func() error {
		return c.fetch(ctx, crate, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// RepositoryURL resolves a crate name to a cloneable repository URL.
//
// The URL recorded on crates.io is cleaned with
// [integrations.CleanRepositoryURL]. Errors carry lpatch error codes:
// PACKAGE_NOT_FOUND (wrapping [integrations.ErrNotFound]), NETWORK_ERROR,
// NO_REPOSITORY when the crate does not publish one and INVALID_REPOSITORY
// when the published value cannot be cloned.
func (c *Client) RepositoryURL(ctx context.Context, crate string, refresh bool) (string, error) {
	info, err := c.FetchCrate(ctx, crate, refresh)
	switch {
	case errors.Is(err, integrations.ErrNotFound):
		return "", lperrors.Wrap(lperrors.ErrCodePackageNotFound, err, "crate %q not found on crates.io", crate).
			WithHints("Check the spelling, or pass a git URL directly")
	case errors.Is(err, integrations.ErrNetwork):
		return "", lperrors.Wrap(lperrors.ErrCodeNetwork, err, "failed to fetch crate info for %q", crate)
	case err != nil:
		return "", lperrors.Wrap(lperrors.ErrCodeInternal, err, "failed to fetch crate info for %q", crate)
	}

	if strings.TrimSpace(info.Repository) == "" {
		return "", lperrors.New(lperrors.ErrCodeNoRepository, "crate %q does not have a repository URL", crate).
			WithHints("Pass the repository's git URL instead of the crate name")
	}

	cleaned, err := integrations.CleanRepositoryURL(info.Repository)
	if err != nil {
		return "", lperrors.Wrap(lperrors.ErrCodeInvalidRepository, err, "crate %q publishes an unusable repository URL", crate)
	}
	return cleaned, nil
}

func (c *Client) fetch(ctx context.Context, crate string, info *CrateInfo) error {
	var data crateResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, url.PathEscape(crate)), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: crate %s", err, crate)
		}
		return err
	}

	*info = CrateInfo{
		Name:        data.Crate.Name,
		Version:     data.Crate.MaxVersion,
		Description: data.Crate.Description,
		License:     data.Crate.License,
		Repository:  data.Crate.Repository,
		HomePage:    data.Crate.HomePage,
		Downloads:   data.Crate.Downloads,
	}
	return nil
}

type crateResponse struct {
	Crate struct {
		Name        string `json:"name"`
		MaxVersion  string `json:"max_version"`
		Description string `json:"description"`
		License     string `json:"license"`
		Repository  string `json:"repository"`
		HomePage    string `json:"homepage"`
		Downloads   int    `json:"downloads"`
	} `json:"crate"`
}
