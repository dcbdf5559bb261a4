package integrations

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")

	// ErrInvalidRepository is returned when a registry records a repository
	// URL that cannot be cloned.
	ErrInvalidRepository = errors.New("invalid repository url")
)

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

var gitURLPrefixes = []string{"http://", "https://", "git://", "ssh://"}

// IsGitURL reports whether s looks like something git can clone: an
// http, https, git or ssh URL, or an SCP-style address such as
// "git@github.com:owner/repo.git".
func IsGitURL(s string) bool {
	for _, p := range gitURLPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return strings.Contains(s, "git@")
}

// browseSuffixes are web UI paths registries commonly record instead of
// the repository root.
var browseSuffixes = []string{"/tree/master", "/tree/main"}

// CleanRepositoryURL turns a repository URL as recorded by a registry into
// one suitable for cloning. Branch browse paths are stripped and GitHub
// URLs get a ".git" suffix. Returns [ErrInvalidRepository] if the result
// does not look like a git URL.
func CleanRepositoryURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, suffix := range browseSuffixes {
		s = strings.TrimSuffix(s, suffix)
	}
	s = strings.TrimRight(s, "/")

	if strings.Contains(s, "github.com") && !strings.HasSuffix(s, ".git") {
		s += ".git"
	}
	if !IsGitURL(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepository, raw)
	}
	return s, nil
}
