package cargo

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/lpatch/pkg/errors"
)

// Crate is a package found in a repository checkout.
type Crate struct {
	Name string
	Path string
}

// FindCrate returns the directory of the package called name inside repo.
// For a workspace, the root package (if any) and the expanded members
// minus exclusions are searched; otherwise the root package must match.
func FindCrate(repo, name string) (string, error) {
	crates, isWorkspace, err := scan(repo)
	if err != nil {
		return "", err
	}
	for _, c := range crates {
		if c.Name == name {
			return c.Path, nil
		}
	}
	if isWorkspace {
		return "", errors.New(errors.ErrCodeCrateNotInRepo, "crate %q not found in workspace members of %s", name, repo)
	}
	return "", errors.New(errors.ErrCodeCrateNotInRepo,
		"repository %s is not a workspace and does not contain crate %q", repo, name)
}

// ListCrates returns every package in repo, sorted by name.
func ListCrates(repo string) ([]Crate, error) {
	crates, _, err := scan(repo)
	if err != nil {
		return nil, err
	}
	sort.Slice(crates, func(i, j int) bool { return crates[i].Name < crates[j].Name })
	return crates, nil
}

// SimilarCrate picks the crate that most plausibly was meant by name: a
// case-insensitive exact match, otherwise one whose name contains name or
// is contained in it, preferring prefix matches.
func SimilarCrate(name string, crates []Crate) (Crate, bool) {
	target := strings.ToLower(name)
	if target == "" {
		return Crate{}, false
	}

	for _, c := range crates {
		if strings.ToLower(c.Name) == target {
			return c, true
		}
	}

	var fallback *Crate
	for i, c := range crates {
		candidate := strings.ToLower(c.Name)
		if strings.HasPrefix(candidate, target) || strings.HasPrefix(target, candidate) {
			return c, true
		}
		if fallback == nil && (strings.Contains(candidate, target) || strings.Contains(target, candidate)) {
			fallback = &crates[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Crate{}, false
}

// scan lists the packages of the repository rooted at repo.
func scan(repo string) ([]Crate, bool, error) {
	root := filepath.Join(repo, ManifestFile)
	cargo, err := readCargoFile(root)
	if err != nil {
		if errors.Is(err, errors.ErrCodeFileNotFound) {
			return nil, false, errors.New(errors.ErrCodeFileNotFound, "no %s found in repository root %s", ManifestFile, repo)
		}
		return nil, false, err
	}

	var crates []Crate
	if cargo.Package.Name != "" {
		crates = append(crates, Crate{Name: cargo.Package.Name, Path: repo})
	}
	if cargo.Workspace == nil {
		return crates, false, nil
	}

	excluded := map[string]bool{}
	for _, pattern := range cargo.Workspace.Exclude {
		for _, dir := range expandMember(repo, pattern) {
			excluded[dir] = true
		}
	}

	seen := map[string]bool{filepath.Clean(repo): true}
	for _, pattern := range cargo.Workspace.Members {
		for _, dir := range expandMember(repo, pattern) {
			if excluded[dir] || seen[dir] {
				continue
			}
			seen[dir] = true
			name, ok := packageName(dir)
			if !ok {
				continue
			}
			crates = append(crates, Crate{Name: name, Path: dir})
		}
	}
	return crates, true, nil
}

// expandMember resolves a members/exclude pattern to directories. Patterns
// escaping the repository are ignored.
func expandMember(repo, pattern string) []string {
	pattern = strings.TrimSuffix(filepath.ToSlash(pattern), "/")
	if err := errors.ValidateMemberPath(pattern); err != nil {
		return nil
	}

	full := filepath.Join(repo, filepath.FromSlash(pattern))
	if !strings.ContainsAny(pattern, "*?[") {
		if dirExists(full) {
			return []string{filepath.Clean(full)}
		}
		return nil
	}

	matches, err := filepath.Glob(full)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, m := range matches {
		if dirExists(m) {
			dirs = append(dirs, filepath.Clean(m))
		}
	}
	sort.Strings(dirs)
	return dirs
}

func packageName(dir string) (string, bool) {
	cargo, err := readCargoFile(filepath.Join(dir, ManifestFile))
	if err != nil || cargo.Package.Name == "" {
		return "", false
	}
	return cargo.Package.Name, true
}
