package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	lperrors "github.com/matzehuels/lpatch/pkg/errors"
)

// Action describes what a sync did to the local copy.
type Action int

const (
	// Cloned means the repository did not exist locally and was cloned.
	Cloned Action = iota
	// UpToDate means the current branch already matched its upstream.
	UpToDate
	// FastForwarded means the current branch was moved to its upstream.
	FastForwarded
	// Ahead means the local branch has commits the upstream lacks.
	Ahead
	// Diverged means local and upstream history both have new commits.
	Diverged
	// LocalChanges means upstream moved but the worktree has modifications.
	LocalChanges
	// Fetched means objects were fetched but HEAD is detached or has no
	// upstream branch, so nothing was merged.
	Fetched
)

func (a Action) String() string {
	switch a {
	case Cloned:
		return "cloned"
	case UpToDate:
		return "up to date"
	case FastForwarded:
		return "fast-forwarded"
	case Ahead:
		return "ahead of upstream"
	case Diverged:
		return "diverged from upstream"
	case LocalChanges:
		return "has local changes"
	case Fetched:
		return "fetched"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// NeedsMerge reports whether the user has to merge upstream changes by hand.
func (a Action) NeedsMerge() bool {
	return a == Diverged || a == LocalChanges
}

// Options configures a [Git].
type Options struct {
	// Progress receives clone and fetch progress output. Nil discards it.
	Progress io.Writer
	// Logger receives debug output about credential attempts.
	Logger *log.Logger
	// Config provides git settings. Nil loads the user's git config.
	Config ConfigReader
	// Getenv looks up environment variables. Nil uses os.Getenv.
	Getenv func(string) string
	// HomeDir locates ~/.ssh. Empty uses os.UserHomeDir.
	HomeDir string
}

// Git clones and updates repositories. It is safe for concurrent use on
// distinct destinations.
type Git struct {
	progress       io.Writer
	logger         *log.Logger
	config         ConfigReader
	getenv         func(string) string
	home           string
	insecure       bool
	credentialFill credentialFillFunc
}

// New creates a Git with the given options.
func New(opts Options) *Git {
	g := &Git{
		progress:       opts.Progress,
		logger:         opts.Logger,
		config:         opts.Config,
		getenv:         opts.Getenv,
		home:           opts.HomeDir,
		credentialFill: gitCredentialFill,
	}
	if g.progress == nil {
		g.progress = io.Discard
	}
	if g.logger == nil {
		g.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if g.config == nil {
		g.config = LoadGitConfig(".")
	}
	if g.getenv == nil {
		g.getenv = os.Getenv
	}
	if g.home == "" {
		g.home, _ = os.UserHomeDir()
	}
	g.insecure = sslVerifyDisabled(g.config)
	if g.insecure {
		g.logger.Warn("TLS certificate verification disabled by http.sslVerify")
	}
	return g
}

// Sync clones url into dest, or pulls dest if it already exists.
func (g *Git) Sync(ctx context.Context, url, dest string) (Action, error) {
	if _, err := os.Stat(dest); err == nil {
		return g.Pull(ctx, dest)
	} else if !os.IsNotExist(err) {
		return 0, lperrors.Wrap(lperrors.ErrCodeInvalidPath, err, "cannot access %s", dest)
	}
	if err := g.Clone(ctx, url, dest); err != nil {
		return 0, err
	}
	return Cloned, nil
}

// Clone clones url into dest, which must not exist. The clone is staged in
// a hidden sibling directory and renamed into place once complete.
func (g *Git) Clone(ctx context.Context, url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return lperrors.New(lperrors.ErrCodeInvalidPath, "destination %s already exists", dest)
	}

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return lperrors.Wrap(lperrors.ErrCodeInvalidPath, err, "failed to create %s", parent)
	}
	staging := stagingPath(dest)
	defer os.RemoveAll(staging)

	g.logger.Info("cloning", "url", url, "dest", dest)
	err := g.withAuth(ctx, url, func(auth transport.AuthMethod) error {
		if err := os.RemoveAll(staging); err != nil {
			return err
		}
		_, err := git.PlainCloneContext(ctx, staging, false, &git.CloneOptions{
			URL:             url,
			Auth:            auth,
			Progress:        g.progress,
			InsecureSkipTLS: g.insecure,
		})
		return err
	})
	if err != nil {
		return classify("clone", url, err)
	}

	if err := os.Rename(staging, dest); err != nil {
		return lperrors.Wrap(lperrors.ErrCodeInternal, err, "failed to move clone into %s", dest)
	}
	return nil
}

// stagingPath returns the temporary clone location for dest.
func stagingPath(dest string) string {
	name := fmt.Sprintf(".%s.lpatch-%s", filepath.Base(dest), uuid.NewString())
	return filepath.Join(filepath.Dir(dest), name)
}

// Pull fetches origin and fast-forwards the current branch when the
// worktree has no local modifications. Situations needing a manual merge
// are reported through the returned Action rather than as errors.
func (g *Git) Pull(ctx context.Context, dir string) (Action, error) {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return 0, lperrors.New(lperrors.ErrCodeInvalidPath, "%s exists but is not a git repository", dir).
			WithHints("Remove it or choose another directory with --dir")
	}
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to open repository at %s", dir)
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to find %q remote in %s", git.DefaultRemoteName, dir)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return 0, lperrors.New(lperrors.ErrCodeGit, "remote %q in %s has no URL", git.DefaultRemoteName, dir)
	}
	url := urls[0]

	g.logger.Info("pulling", "dir", dir, "url", url)
	err = g.withAuth(ctx, url, func(auth transport.AuthMethod) error {
		err := repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName:      git.DefaultRemoteName,
			Auth:            auth,
			Progress:        g.progress,
			InsecureSkipTLS: g.insecure,
		})
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return err
	})
	if err != nil {
		return 0, classify("fetch", url, err)
	}

	return g.fastForward(ctx, repo, dir)
}

func (g *Git) fastForward(ctx context.Context, repo *git.Repository, dir string) (Action, error) {
	head, err := repo.Head()
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to resolve HEAD in %s", dir)
	}
	if !head.Name().IsBranch() {
		g.logger.Debug("detached HEAD, not merging", "dir", dir)
		return Fetched, nil
	}

	upstreamName := plumbing.NewRemoteReferenceName(git.DefaultRemoteName, head.Name().Short())
	upstream, err := repo.Reference(upstreamName, true)
	if err != nil {
		g.logger.Debug("no upstream branch", "ref", upstreamName)
		return Fetched, nil
	}
	if upstream.Hash() == head.Hash() {
		return UpToDate, nil
	}

	local, err := repo.CommitObject(head.Hash())
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to read HEAD commit in %s", dir)
	}
	remote, err := repo.CommitObject(upstream.Hash())
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to read upstream commit in %s", dir)
	}

	canFastForward, err := local.IsAncestor(remote)
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to compare history in %s", dir)
	}
	if !canFastForward {
		ahead, err := remote.IsAncestor(local)
		if err != nil {
			return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to compare history in %s", dir)
		}
		if ahead {
			return Ahead, nil
		}
		return Diverged, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to open worktree in %s", dir)
	}
	status, err := wt.Status()
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to read worktree status in %s", dir)
	}
	if hasLocalChanges(status) {
		return LocalChanges, nil
	}

	from, err := local.Tree()
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to read HEAD tree in %s", dir)
	}
	to, err := remote.Tree()
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to read upstream tree in %s", dir)
	}
	changes, err := object.DiffTreeContext(ctx, from, to)
	if err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to diff %s..%s", head.Hash(), upstream.Hash())
	}
	if blocksCheckout(status, changes) {
		g.logger.Debug("untracked files would be overwritten, not merging", "dir", dir)
		return LocalChanges, nil
	}
	if err := applyChanges(dir, changes); err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to check out %s", upstream.Hash())
	}
	// Mixed reset moves the branch and rewrites the index only; the
	// worktree already matches upstream and untracked files stay put.
	if err := wt.Reset(&git.ResetOptions{Commit: upstream.Hash(), Mode: git.MixedReset}); err != nil {
		return 0, lperrors.Wrap(lperrors.ErrCodeGit, err, "failed to update %s", head.Name().Short())
	}
	return FastForwarded, nil
}

// hasLocalChanges ignores untracked files; they survive a fast-forward.
func hasLocalChanges(status git.Status) bool {
	for _, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return true
		}
	}
	return false
}

// blocksCheckout reports whether an incoming path would land on an
// untracked file or inside an untracked directory.
func blocksCheckout(status git.Status, changes object.Changes) bool {
	for path, s := range status {
		if s.Worktree != git.Untracked {
			continue
		}
		for _, ch := range changes {
			name := ch.To.Name
			if name == "" {
				continue
			}
			if name == path || strings.HasPrefix(name, path+"/") || strings.HasPrefix(path, name+"/") {
				return true
			}
		}
	}
	return false
}

// applyChanges writes the tree diff into the worktree at dir. Deletions go
// first so a file replaced by a directory (or the reverse) applies cleanly.
func applyChanges(dir string, changes object.Changes) error {
	var writes []*object.Change
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return err
		}
		if action == merkletrie.Delete || action == merkletrie.Modify && ch.From.TreeEntry.Mode != ch.To.TreeEntry.Mode {
			if err := removeWorktreeFile(dir, ch.From.Name); err != nil {
				return err
			}
		}
		if action != merkletrie.Delete {
			writes = append(writes, ch)
		}
	}
	for _, ch := range writes {
		if ch.To.TreeEntry.Mode == filemode.Submodule {
			continue
		}
		_, to, err := ch.Files()
		if err != nil {
			return err
		}
		if err := writeWorktreeFile(dir, ch.To.Name, to); err != nil {
			return err
		}
	}
	return nil
}

func writeWorktreeFile(dir, name string, f *object.File) error {
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content, err := f.Contents()
	if err != nil {
		return err
	}
	if f.Mode == filemode.Symlink {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Symlink(content, path)
	}
	perm := os.FileMode(0o644)
	if f.Mode == filemode.Executable {
		perm = 0o755
	}
	return renameio.WriteFile(path, []byte(content), perm)
}

// removeWorktreeFile deletes name and any parent directories it leaves empty.
func removeWorktreeFile(dir, name string) error {
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	for parent := filepath.Dir(path); parent != dir && strings.HasPrefix(parent, dir); parent = filepath.Dir(parent) {
		if os.Remove(parent) != nil {
			break
		}
	}
	return nil
}

// withAuth runs op with each credential provider for url in turn, moving
// on only when the remote rejects the credentials.
func (g *Git) withAuth(ctx context.Context, url string, op func(transport.AuthMethod) error) error {
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return lperrors.Wrap(lperrors.ErrCodeInvalidURL, err, "invalid git URL %q", url)
	}

	var lastErr error
	for _, p := range g.providers(ep) {
		if err := ctx.Err(); err != nil {
			return err
		}
		auth, ok := p.Auth(ctx, ep)
		if !ok {
			continue
		}
		g.logger.Debug("trying credentials", "provider", p.Name(), "host", ep.Host)
		err := op(auth)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isAuthError(err) {
			return err
		}
		g.logger.Debug("credentials rejected", "provider", p.Name(), "err", err)
	}
	return lastErr
}
