package cargo

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/lpatch/pkg/errors"
)

// ManifestFile is the name of a Cargo package manifest.
const ManifestFile = "Cargo.toml"

// Kind classifies where a dependency is fetched from.
type Kind string

const (
	KindVersion Kind = "version" // crates.io release
	KindGit     Kind = "git"     // git repository
	KindPath    Kind = "path"    // local directory
)

// Dependency is one entry of a dependency table in Cargo.toml.
type Dependency struct {
	Name    string // Key in the dependency table
	Package string // Real crate name; differs from Name when renamed with package = "..."
	Section string // Table the entry came from, e.g. "dev-dependencies"
	Kind    Kind

	Version string
	Git     string
	Branch  string
	Tag     string
	Rev     string
	Path    string
}

// CrateName returns the published name of the dependency.
func (d Dependency) CrateName() string {
	if d.Package != "" {
		return d.Package
	}
	return d.Name
}

// SkippedDependency records an entry that could not be classified.
type SkippedDependency struct {
	Name    string
	Section string
	Reason  string
}

// Manifest is the dependency view of a Cargo.toml.
type Manifest struct {
	Path           string
	PackageName    string
	PackageVersion string
	Dependencies   []Dependency
	Skipped        []SkippedDependency
}

// Find returns the first dependency whose table key or crate name is name.
// Sections are searched in the order dependencies, dev-dependencies,
// build-dependencies, target tables, workspace.dependencies.
func (m *Manifest) Find(name string) (Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.Name == name || d.CrateName() == name {
			return d, true
		}
	}
	return Dependency{}, false
}

// ByKind returns the dependencies of the given kind, in manifest order.
func (m *Manifest) ByKind(kind Kind) []Dependency {
	var out []Dependency
	for _, d := range m.Dependencies {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

type cargoFile struct {
	Package struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"` // string, or { workspace = true }
	} `toml:"package"`
	Dependencies      map[string]any         `toml:"dependencies"`
	DevDependencies   map[string]any         `toml:"dev-dependencies"`
	BuildDependencies map[string]any         `toml:"build-dependencies"`
	Target            map[string]targetTable `toml:"target"`
	Workspace         *workspaceTable        `toml:"workspace"`
}

type targetTable struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

type workspaceTable struct {
	Members      []string       `toml:"members"`
	Exclude      []string       `toml:"exclude"`
	Dependencies map[string]any `toml:"dependencies"`
}

func readCargoFile(path string) (*cargoFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "failed to read %s", path)
	}
	var cargo cargoFile
	if err := toml.Unmarshal(data, &cargo); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "failed to parse %s", path)
	}
	return &cargo, nil
}

// FindManifest returns the nearest Cargo.toml in dir or one of its parents.
func FindManifest(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "invalid directory %s", dir)
	}
	for d := abs; ; d = filepath.Dir(d) {
		candidate := filepath.Join(d, ManifestFile)
		if fileExists(candidate) {
			return candidate, nil
		}
		if filepath.Dir(d) == d {
			break
		}
	}
	return "", errors.New(errors.ErrCodeFileNotFound,
		"could not find %s in %s or any parent directory", ManifestFile, abs)
}

// ParseManifest reads the Cargo.toml at path and classifies its
// dependencies. Entries that inherit from the workspace
// ({ workspace = true }) are resolved against [workspace.dependencies] of
// this manifest or of the nearest enclosing workspace root. Entries that
// cannot be classified are reported in Skipped.
func ParseManifest(path string) (*Manifest, error) {
	cargo, err := readCargoFile(path)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Path: path, PackageName: cargo.Package.Name}
	if v, ok := cargo.Package.Version.(string); ok {
		m.PackageVersion = v
	}

	var inherited map[string]any
	if cargo.Workspace != nil {
		inherited = cargo.Workspace.Dependencies
	} else {
		inherited = enclosingWorkspaceDeps(filepath.Dir(path))
	}

	add := func(section string, table map[string]any) {
		for _, name := range sortedKeys(table) {
			dep, err := classify(name, section, table[name], inherited)
			if err != nil {
				m.Skipped = append(m.Skipped, SkippedDependency{Name: name, Section: section, Reason: err.Error()})
				continue
			}
			m.Dependencies = append(m.Dependencies, dep)
		}
	}

	add("dependencies", cargo.Dependencies)
	add("dev-dependencies", cargo.DevDependencies)
	add("build-dependencies", cargo.BuildDependencies)
	for _, platform := range sortedKeys(cargo.Target) {
		t := cargo.Target[platform]
		prefix := "target." + platform + "."
		add(prefix+"dependencies", t.Dependencies)
		add(prefix+"dev-dependencies", t.DevDependencies)
		add(prefix+"build-dependencies", t.BuildDependencies)
	}
	if cargo.Workspace != nil {
		add("workspace.dependencies", cargo.Workspace.Dependencies)
	}
	return m, nil
}

// enclosingWorkspaceDeps returns [workspace.dependencies] of the nearest
// workspace root above dir, or nil.
func enclosingWorkspaceDeps(dir string) map[string]any {
	for d := filepath.Dir(dir); ; d = filepath.Dir(d) {
		candidate := filepath.Join(d, ManifestFile)
		if fileExists(candidate) {
			if cargo, err := readCargoFile(candidate); err == nil && cargo.Workspace != nil {
				return cargo.Workspace.Dependencies
			}
		}
		if filepath.Dir(d) == d {
			return nil
		}
	}
}

// classify applies Cargo's source priority: git, then path, then version.
func classify(name, section string, raw any, inherited map[string]any) (Dependency, error) {
	dep := Dependency{Name: name, Section: section}

	switch v := raw.(type) {
	case string:
		dep.Kind = KindVersion
		dep.Version = v
		return dep, nil
	case map[string]any:
		if b, _ := v["workspace"].(bool); b {
			def, ok := inherited[name]
			if !ok {
				return dep, errors.New(errors.ErrCodeInvalidManifest,
					"inherits from the workspace but no [workspace.dependencies] entry exists")
			}
			resolved, err := classify(name, section, def, nil)
			if err != nil {
				return dep, err
			}
			if pkg := stringField(v, "package"); pkg != "" {
				resolved.Package = pkg
			}
			return resolved, nil
		}

		dep.Package = stringField(v, "package")
		dep.Version = stringField(v, "version")
		dep.Git = stringField(v, "git")
		dep.Branch = stringField(v, "branch")
		dep.Tag = stringField(v, "tag")
		dep.Rev = stringField(v, "rev")
		dep.Path = stringField(v, "path")

		switch {
		case dep.Git != "":
			dep.Kind = KindGit
		case dep.Path != "":
			dep.Kind = KindPath
		case dep.Version != "":
			dep.Kind = KindVersion
		default:
			return dep, errors.New(errors.ErrCodeInvalidManifest, "invalid dependency definition for %q", name)
		}
		return dep, nil
	default:
		return dep, errors.New(errors.ErrCodeInvalidManifest, "unsupported dependency value for %q", name)
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
