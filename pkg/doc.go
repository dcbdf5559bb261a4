// Package pkg provides the libraries behind cargo-lpatch.
//
// # Overview
//
// cargo-lpatch replaces a Cargo dependency with a local checkout of its
// source repository. The pkg directory is organized as follows:
//
//  1. [lpatch] - The patch pipeline (resolve → sync → locate → config)
//  2. [cargo] - Cargo.toml parsing, workspace scanning and .cargo/config.toml editing
//  3. [vcs] - Git clone and pull with credential discovery
//  4. [integrations] - Registry API clients ([integrations/crates] for crates.io)
//  5. [cache] - Response caching (file, Redis, none)
//  6. [errors] - Coded errors with remediation hints
//  7. [observability] - Hooks for stages, cache and HTTP events
//
// # Architecture
//
//	crate name or git URL
//	         ↓
//	    [lpatch] Resolve (Cargo.toml, then crates.io)
//	         ↓
//	    [vcs] Sync (clone, or fetch + fast-forward)
//	         ↓
//	    [cargo] FindCrate (workspace members)
//	         ↓
//	    [cargo] Config.AddPatch + Save
//
// # Quick Start
//
//	backend, _ := cache.NewFileCache(dir)
//	runner := lpatch.NewRunner(
//	    crates.NewClient(backend, 24*time.Hour),
//	    vcs.New(vcs.Options{}),
//	    nil,
//	)
//	res, err := runner.Run(ctx, lpatch.Options{Input: "serde"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.ConfigPath)
//
// [lpatch]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/lpatch
// [cargo]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/cargo
// [vcs]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/vcs
// [integrations]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/integrations
// [integrations/crates]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/integrations/crates
// [cache]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/lpatch/pkg/observability
package pkg
