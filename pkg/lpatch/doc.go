// Package lpatch redirects a Cargo dependency to a local clone.
//
// A run is a linear pipeline:
//
//  1. Resolve: decide which repository to clone and which [patch] source
//     the entry belongs under. Dependencies declared in the project's
//     Cargo.toml win; git URLs are used verbatim; anything else is looked
//     up on crates.io.
//  2. Sync: clone the repository into <dir>/<name>, or pull it if the
//     clone already exists.
//  3. Locate: find the crate inside the clone, which may be a workspace.
//  4. Patch: point [patch.<source>].<name> in .cargo/config.toml at the
//     crate and save the file.
//
// # Usage
//
//	runner := lpatch.NewRunner(crates.NewClient(c, time.Hour), vcs.New(vcs.Options{}), logger)
//	result, err := runner.Run(ctx, lpatch.Options{Input: "serde"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Crate.Path)
//
// Runs are idempotent: a second run for the same input pulls the existing
// clone and overwrites the single config entry.
package lpatch
