package cargo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/lpatch/pkg/errors"
)

func TestParseManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	writeFile(t, path, `[package]
name = "app"
version = "0.3.1"

[dependencies]
serde = "1.0"
tokio = { version = "1", git = "https://github.com/tokio-rs/tokio", branch = "master" }
local = { path = "../local", version = "0.1" }
json = { package = "serde_json", version = "1" }
broken = { features = ["x"] }
weird = 42

[dev-dependencies]
insta = { version = "1.34" }

[build-dependencies]
cc = { git = "https://github.com/rust-lang/cc-rs", rev = "abc123" }

[target.'cfg(unix)'.dependencies]
libc = "0.2"
`)

	m, err := ParseManifest(path)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.PackageName != "app" || m.PackageVersion != "0.3.1" {
		t.Errorf("package = %q %q", m.PackageName, m.PackageVersion)
	}

	want := []Dependency{
		{Name: "json", Package: "serde_json", Section: "dependencies", Kind: KindVersion, Version: "1"},
		{Name: "local", Section: "dependencies", Kind: KindPath, Version: "0.1", Path: "../local"},
		{Name: "serde", Section: "dependencies", Kind: KindVersion, Version: "1.0"},
		{Name: "tokio", Section: "dependencies", Kind: KindGit, Version: "1", Git: "https://github.com/tokio-rs/tokio", Branch: "master"},
		{Name: "insta", Section: "dev-dependencies", Kind: KindVersion, Version: "1.34"},
		{Name: "cc", Section: "build-dependencies", Kind: KindGit, Git: "https://github.com/rust-lang/cc-rs", Rev: "abc123"},
		{Name: "libc", Section: "target.cfg(unix).dependencies", Kind: KindVersion, Version: "0.2"},
	}
	if diff := cmp.Diff(want, m.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}

	var skipped []string
	for _, s := range m.Skipped {
		skipped = append(skipped, s.Name)
	}
	if diff := cmp.Diff([]string{"broken", "weird"}, skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestManifestFind(t *testing.T) {
	m := &Manifest{Dependencies: []Dependency{
		{Name: "json", Package: "serde_json", Kind: KindVersion},
		{Name: "serde", Kind: KindVersion},
		{Name: "tokio", Kind: KindGit},
	}}

	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"serde", "serde", true},
		{"json", "json", true},
		{"serde_json", "json", true},
		{"anyhow", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := m.Find(tt.query)
			if ok != tt.found || got.Name != tt.want {
				t.Errorf("Find(%q) = %q, %v; want %q, %v", tt.query, got.Name, ok, tt.want, tt.found)
			}
		})
	}

	if got := m.ByKind(KindGit); len(got) != 1 || got[0].Name != "tokio" {
		t.Errorf("ByKind(git) = %+v", got)
	}
}

func TestParseManifestWorkspaceInheritance(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), `[workspace]
members = ["crates/*"]

[workspace.dependencies]
serde = { version = "1.0.200" }
tokio = { git = "https://github.com/tokio-rs/tokio", tag = "tokio-1.37.0" }
`)
	member := filepath.Join(root, "crates", "core", "Cargo.toml")
	writeFile(t, member, `[package]
name = "core"
version.workspace = true

[dependencies]
serde = { workspace = true, features = ["derive"] }
tokio = { workspace = true }
missing = { workspace = true }
`)

	m, err := ParseManifest(member)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.PackageVersion != "" {
		t.Errorf("inherited package version should be empty, got %q", m.PackageVersion)
	}

	want := []Dependency{
		{Name: "serde", Section: "dependencies", Kind: KindVersion, Version: "1.0.200"},
		{Name: "tokio", Section: "dependencies", Kind: KindGit, Git: "https://github.com/tokio-rs/tokio", Tag: "tokio-1.37.0"},
	}
	if diff := cmp.Diff(want, m.Dependencies); diff != "" {
		t.Errorf("Dependencies mismatch (-want +got):\n%s", diff)
	}
	if len(m.Skipped) != 1 || m.Skipped[0].Name != "missing" {
		t.Errorf("Skipped = %+v", m.Skipped)
	}

	rootManifest, err := ParseManifest(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range rootManifest.Dependencies {
		if d.Section != "workspace.dependencies" {
			t.Errorf("root dependency %s in section %s", d.Name, d.Section)
		}
	}
	if len(rootManifest.Dependencies) != 2 {
		t.Errorf("root dependencies = %d, want 2", len(rootManifest.Dependencies))
	}
}

func TestParseManifestErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ParseManifest(filepath.Join(dir, "Cargo.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing manifest error = %v, want FILE_NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "bad", "Cargo.toml")
	writeFile(t, bad, "[package\nname=")
	_, err = ParseManifest(bad)
	if !errors.Is(err, errors.ErrCodeInvalidManifest) {
		t.Errorf("bad manifest error = %v, want INVALID_MANIFEST", err)
	}
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), "[package]\nname = \"app\"\n")
	deep := filepath.Join(root, "src", "a", "b")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindManifest(deep)
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if got != filepath.Join(root, "Cargo.toml") {
		t.Errorf("FindManifest = %q", got)
	}

	// A directory named Cargo.toml is not a manifest.
	empty := t.TempDir()
	if err := os.Mkdir(filepath.Join(empty, "Cargo.toml"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := FindManifest(empty); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("FindManifest(empty) error = %v", err)
	}
}
