// Package integrations provides HTTP clients for package registry APIs.
//
// # Overview
//
// This package contains the shared plumbing for registry clients. Each
// registry lives in its own subpackage:
//
//   - [crates]: Rust crates.io
//
// # Client Pattern
//
// Registry clients embed [Client] and follow a consistent pattern:
//
//	client := crates.NewClient(backend, 24*time.Hour)  // Cache TTL
//	info, err := client.FetchCrate(ctx, "serde", false) // false = use cache
//
// Clients handle:
//   - HTTP requests with default headers (e.g. User-Agent)
//   - Response caching through any [cache.Cache] backend
//   - Status mapping to [ErrNotFound] and [ErrNetwork]
//
// Requests are issued exactly once. A failed lookup is reported to the
// caller, which decides whether to abort.
//
// # Repository URLs
//
// [IsGitURL] and [CleanRepositoryURL] decide whether a string can be handed
// to git and normalize the links registries commonly record.
//
// [crates]: github.com/matzehuels/lpatch/pkg/integrations/crates
// [cache.Cache]: github.com/matzehuels/lpatch/pkg/cache.Cache
package integrations
