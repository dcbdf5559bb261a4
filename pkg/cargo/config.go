package cargo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"

	"github.com/matzehuels/lpatch/pkg/errors"
)

const (
	// ConfigDirName is the per-project Cargo configuration directory.
	ConfigDirName = ".cargo"
	// ConfigFileName is the Cargo configuration file inside ConfigDirName.
	ConfigFileName = "config.toml"
	// CratesIO is the patch source for crates published on crates.io.
	CratesIO = "crates-io"
)

// Patch is a single [patch.<source>] entry.
type Patch struct {
	Source string
	Name   string
	Path   string
}

// Config is a .cargo/config.toml document. Only the [patch] table is
// interpreted; every other table is carried through Save unchanged.
type Config struct {
	path string
	root string
	data map[string]any
}

// FindConfigDir returns the .cargo directory patches should be written to:
// cwd/.cargo if it exists, otherwise .cargo next to the nearest Cargo.toml
// in cwd or a parent, otherwise cwd/.cargo.
func FindConfigDir(cwd string) (string, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "invalid directory %s", cwd)
	}
	local := filepath.Join(abs, ConfigDirName)
	if dirExists(local) {
		return local, nil
	}
	if manifest, err := FindManifest(abs); err == nil {
		return filepath.Join(filepath.Dir(manifest), ConfigDirName), nil
	}
	return local, nil
}

// LoadConfig reads the config file at path. A missing file yields an empty
// config that Save will create.
func LoadConfig(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "invalid config path %s", path)
	}
	c := &Config{
		path: abs,
		root: filepath.Dir(filepath.Dir(abs)),
		data: map[string]any{},
	}

	raw, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to read %s", abs)
	}
	if _, err := toml.Decode(string(raw), &c.data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse %s", abs)
	}
	if p, ok := c.data["patch"]; ok {
		if _, isTable := p.(map[string]any); !isTable {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: [patch] must be a table", abs)
		}
	}
	return c, nil
}

// Path returns the config file location.
func (c *Config) Path() string { return c.path }

// Root returns the project directory patch paths are resolved against
// (the parent of .cargo).
func (c *Config) Root() string { return c.root }

// Exists reports whether the config file is present on disk.
func (c *Config) Exists() bool { return fileExists(c.path) }

// AddPatch points name under [patch.<source>] at dir, replacing any
// existing entry. dir is stored relative to the project root when it lies
// below it and as an absolute path otherwise. The stored path is returned.
func (c *Config) AddPatch(source, name, dir string) (string, error) {
	if source == "" || name == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "patch source and name are required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "invalid patch path %s", dir)
	}
	stored := abs
	if rel, err := filepath.Rel(c.root, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		stored = rel
	}
	stored = filepath.ToSlash(stored)

	patch, _ := c.data["patch"].(map[string]any)
	if patch == nil {
		patch = map[string]any{}
		c.data["patch"] = patch
	}
	table, ok := patch[source].(map[string]any)
	if !ok {
		if _, exists := patch[source]; exists {
			return "", errors.New(errors.ErrCodeInvalidConfig, "[patch.%q] is not a table", source)
		}
		table = map[string]any{}
		patch[source] = table
	}
	table[name] = map[string]any{"path": stored}
	return stored, nil
}

// RemovePatch deletes name from [patch.<source>]. Empty source tables and
// an empty [patch] table are dropped. Reports whether an entry was removed.
func (c *Config) RemovePatch(source, name string) bool {
	patch, _ := c.data["patch"].(map[string]any)
	table, _ := patch[source].(map[string]any)
	if _, ok := table[name]; !ok {
		return false
	}
	delete(table, name)
	if len(table) == 0 {
		delete(patch, source)
	}
	if len(patch) == 0 {
		delete(c.data, "patch")
	}
	return true
}

// Patches lists all entries with a path, sorted by source then name.
func (c *Config) Patches() []Patch {
	patch, _ := c.data["patch"].(map[string]any)
	var out []Patch
	for source, v := range patch {
		table, _ := v.(map[string]any)
		for name, entry := range table {
			e, _ := entry.(map[string]any)
			p, _ := e["path"].(string)
			if p == "" {
				continue
			}
			out = append(out, Patch{Source: source, Name: name, Path: p})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Lookup returns the entry for name under source.
func (c *Config) Lookup(source, name string) (Patch, bool) {
	for _, p := range c.Patches() {
		if p.Source == source && p.Name == name {
			return p, true
		}
	}
	return Patch{}, false
}

// Save writes the whole document atomically, creating .cargo if needed.
// The document is re-encoded from its decoded values: every table and key
// survives, but comments and the original key order do not.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to create %s", filepath.Dir(c.path))
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to encode %s", c.path)
	}

	pending, err := renameio.NewPendingFile(c.path, renameio.WithPermissions(0o644), renameio.WithExistingPermissions())
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to create pending file for %s", c.path)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(buf.Bytes()); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to write %s", c.path)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to replace %s", c.path)
	}
	return nil
}

// String renders the patch entries the way they appear in the file.
func (p Patch) String() string {
	return fmt.Sprintf("[patch.%q] %s = { path = %q }", p.Source, p.Name, p.Path)
}
