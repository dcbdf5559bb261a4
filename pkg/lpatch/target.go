package lpatch

import (
	"net/url"
	"strings"

	"github.com/matzehuels/lpatch/pkg/cargo"
	"github.com/matzehuels/lpatch/pkg/errors"
	"github.com/matzehuels/lpatch/pkg/integrations"
)

// Ref is the branch, tag or revision a git dependency is pinned to.
// At most one field is normally set.
type Ref struct {
	Branch string
	Tag    string
	Rev    string
}

// IsZero reports whether no ref is set.
func (r Ref) IsZero() bool { return r == Ref{} }

// String renders the ref as it appears in Cargo.toml, e.g. `tag = "v1.0"`.
func (r Ref) String() string {
	var parts []string
	if r.Branch != "" {
		parts = append(parts, `branch = "`+r.Branch+`"`)
	}
	if r.Tag != "" {
		parts = append(parts, `tag = "`+r.Tag+`"`)
	}
	if r.Rev != "" {
		parts = append(parts, `rev = "`+r.Rev+`"`)
	}
	return strings.Join(parts, ", ")
}

// Target is what an input resolves to: the crate to patch, where to clone
// it from and which [patch] source the entry is written under.
type Target struct {
	Name          string // Crate name, also the clone directory name
	RepositoryURL string // URL passed to git
	Source        string // cargo.CratesIO or the git URL as written by the user
	FromGit       bool   // Source is a git URL
	Ref           Ref    // Pin of a git dependency declared in Cargo.toml
}

// IsGitURL reports whether input should be cloned directly instead of
// being looked up on the registry.
func IsGitURL(input string) bool {
	return integrations.IsGitURL(input)
}

// NameFromGitURL derives a crate name from a repository URL: the last path
// segment without a .git suffix. SCP-style addresses
// (git@host:owner/repo.git) are accepted.
func NameFromGitURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "git@") {
		parts := strings.Split(s, ":")
		if len(parts) != 2 || parts[1] == "" {
			return "", errors.New(errors.ErrCodeInvalidURL, "invalid git SSH URL %q", raw).
				WithHints("Use the form git@host:owner/repo.git")
		}
		s = "https://" + strings.TrimPrefix(parts[0], "git@") + "/" + parts[1]
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidURL, err, "failed to parse URL %q", raw)
	}
	path := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	name := path[strings.LastIndex(path, "/")+1:]
	if name == "" {
		return "", errors.New(errors.ErrCodeInvalidURL, "could not extract a crate name from %q", raw)
	}
	return name, nil
}

func gitTarget(input string) (Target, error) {
	name, err := NameFromGitURL(input)
	if err != nil {
		return Target{}, err
	}
	if err := errors.ValidatePackageName(name); err != nil {
		return Target{}, err
	}
	return Target{
		Name:          name,
		RepositoryURL: input,
		Source:        input,
		FromGit:       true,
	}, nil
}

func dependencyTarget(dep cargo.Dependency) Target {
	return Target{
		Name:          dep.CrateName(),
		RepositoryURL: dep.Git,
		Source:        dep.Git,
		FromGit:       true,
		Ref:           Ref{Branch: dep.Branch, Tag: dep.Tag, Rev: dep.Rev},
	}
}
