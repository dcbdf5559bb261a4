// Package cargo reads and writes the Cargo files lpatch works with.
//
// # Config
//
// [Config] edits .cargo/config.toml. Only the [patch] table is interpreted:
//
//	[patch.crates-io]
//	serde = { path = "crates/serde/serde" }
//
//	[patch."https://github.com/tokio-rs/tokio.git"]
//	tokio = { path = "crates/tokio/tokio" }
//
// All other tables survive a load/save cycle. Saves are atomic.
//
// # Manifests
//
// [ParseManifest] classifies the dependencies of a Cargo.toml as version,
// git or path dependencies, using Cargo's priority (git, then path, then
// version).
//
// # Workspaces
//
// [FindCrate] and [ListCrates] locate packages inside a cloned repository,
// expanding workspace members and honoring exclude lists.
package cargo
