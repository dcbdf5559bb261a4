// Package crates provides an HTTP client for the crates.io API.
//
// # Overview
//
// This package fetches crate metadata from crates.io (https://crates.io),
// the Rust community's package registry, and turns the published
// repository link into a URL git can clone.
//
// # Usage
//
//	client := crates.NewClient(cache.NewNullCache(), 24*time.Hour)
//
//	repo, err := client.RepositoryURL(ctx, "serde", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(repo) // https://github.com/serde-rs/serde.git
//
// # Caching
//
// Responses are cached to reduce load on crates.io. The cache TTL is set
// when creating the client. Pass refresh=true to bypass the cache.
//
// # User-Agent
//
// The client includes a User-Agent header as requested by crates.io policy.
package crates
