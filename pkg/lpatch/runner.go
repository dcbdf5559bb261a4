package lpatch

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lpatch/pkg/cargo"
	"github.com/matzehuels/lpatch/pkg/errors"
	"github.com/matzehuels/lpatch/pkg/observability"
	"github.com/matzehuels/lpatch/pkg/vcs"
)

// Registry resolves crate names to repository URLs.
// *crates.Client implements it.
type Registry interface {
	RepositoryURL(ctx context.Context, crate string, refresh bool) (string, error)
}

// VCS clones or updates a local copy of a repository.
// *vcs.Git implements it.
type VCS interface {
	Sync(ctx context.Context, url, dest string) (vcs.Action, error)
}

// Runner executes the resolve → sync → locate → patch pipeline.
//
// The Runner holds no per-run state; one Runner may serve many runs.
type Runner struct {
	Registry Registry
	VCS      VCS
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(registry Registry, v VCS, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Registry: registry,
		VCS:      v,
		Logger:   logger,
	}
}

// Run patches opts.Input into the project. Running it again for the same
// input pulls the existing clone and replaces the single config entry.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	var target Target
	err := stage(ctx, observability.StageResolve, opts.Input, func() (err error) {
		target, err = r.Resolve(ctx, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("resolved", "crate", target.Name, "repository", target.RepositoryURL, "source", target.Source)
	if !target.Ref.IsZero() {
		logger.Info("git dependency is pinned", "ref", target.Ref.String())
	}

	result := &Result{
		Target:    target,
		ClonePath: filepath.Join(opts.Dir, target.Name),
	}

	err = stage(ctx, observability.StageSync, target.Name, func() (err error) {
		if r.VCS == nil {
			return errors.New(errors.ErrCodeInternal, "no version control client configured")
		}
		start := time.Now()
		result.Action, err = r.VCS.Sync(ctx, target.RepositoryURL, result.ClonePath)
		if err == nil {
			logger.Info("synced repository", "path", result.ClonePath, "action", result.Action, "duration", time.Since(start))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Action.NeedsMerge() {
		logger.Warn("upstream changes were not merged", "path", result.ClonePath, "state", result.Action)
	}

	err = stage(ctx, observability.StageLocate, target.Name, func() (err error) {
		result.Crate, result.Similar, err = r.Locate(result.ClonePath, target.Name, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Crate.Path != result.ClonePath {
		logger.Info("found crate in workspace", "crate", result.Crate.Name, "path", result.Crate.Path)
	}

	err = stage(ctx, observability.StageConfig, target.Name, func() error {
		return r.writePatch(target.Source, result, opts)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("patched", "crate", result.Crate.Name, "source", target.Source, "path", result.PatchPath, "config", result.ConfigPath)
	return result, nil
}

// Resolve turns the input into a [Target]. A dependency of the same name
// declared in the project's Cargo.toml takes precedence: git dependencies
// are cloned from their declared URL, path dependencies are rejected.
// Otherwise git URLs are used verbatim and anything else is looked up on
// the registry.
func (r *Runner) Resolve(ctx context.Context, opts Options) (Target, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Target{}, err
	}
	input := opts.Input

	if dep, ok := r.declaredDependency(opts.ProjectDir, input, opts.Logger); ok {
		opts.Logger.Debug("found dependency in Cargo.toml", "name", dep.Name, "kind", dep.Kind, "section", dep.Section)
		switch dep.Kind {
		case cargo.KindPath:
			return Target{}, errors.New(errors.ErrCodeAlreadyLocal,
				"path dependency %q at %q cannot be patched as it is already local", dep.Name, dep.Path)
		case cargo.KindGit:
			if err := errors.ValidatePackageName(dep.CrateName()); err != nil {
				return Target{}, err
			}
			return dependencyTarget(dep), nil
		default:
			input = dep.CrateName()
		}
	}

	if IsGitURL(input) {
		return gitTarget(input)
	}

	if err := errors.ValidateCratesPackageName(input); err != nil {
		return Target{}, err
	}
	if r.Registry == nil {
		return Target{}, errors.New(errors.ErrCodeInternal, "no registry client configured")
	}
	repo, err := r.Registry.RepositoryURL(ctx, input, opts.Refresh)
	if err != nil {
		return Target{}, err
	}
	return Target{
		Name:          input,
		RepositoryURL: repo,
		Source:        cargo.CratesIO,
	}, nil
}

// declaredDependency looks input up in the nearest Cargo.toml, by name or,
// for git URLs, by the declared git source. A missing or unreadable
// manifest is not an error.
func (r *Runner) declaredDependency(projectDir, input string, logger *log.Logger) (cargo.Dependency, bool) {
	path, err := cargo.FindManifest(projectDir)
	if err != nil {
		logger.Debug("no Cargo.toml found", "dir", projectDir)
		return cargo.Dependency{}, false
	}
	m, err := cargo.ParseManifest(path)
	if err != nil {
		logger.Warn("ignoring unreadable Cargo.toml", "path", path, "err", errors.UserMessage(err))
		return cargo.Dependency{}, false
	}
	for _, s := range m.Skipped {
		logger.Debug("skipped dependency", "name", s.Name, "section", s.Section, "reason", s.Reason)
	}

	if IsGitURL(input) {
		for _, d := range m.ByKind(cargo.KindGit) {
			if sameRepository(d.Git, input) {
				return d, true
			}
		}
		return cargo.Dependency{}, false
	}
	return m.Find(input)
}

func sameRepository(a, b string) bool {
	norm := func(s string) string {
		return strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(s), "/"), ".git")
	}
	return norm(a) == norm(b)
}

// Locate finds the crate inside the clone. When it is missing, a similarly
// named crate is used, then opts.Choose is asked. The returned bool reports
// whether a substitute was chosen.
func (r *Runner) Locate(clonePath, name string, opts Options) (cargo.Crate, bool, error) {
	r.applyLogger(&opts)
	path, err := cargo.FindCrate(clonePath, name)
	if err == nil {
		return cargo.Crate{Name: name, Path: path}, false, nil
	}
	if !errors.Is(err, errors.ErrCodeCrateNotInRepo) {
		return cargo.Crate{}, false, err
	}

	crates, listErr := cargo.ListCrates(clonePath)
	if listErr != nil || len(crates) == 0 {
		return cargo.Crate{}, false, err
	}

	if c, ok := cargo.SimilarCrate(name, crates); ok {
		opts.Logger.Warn("crate not found, using similar crate", "requested", name, "crate", c.Name)
		return c, true, nil
	}
	if opts.Choose != nil {
		if c, ok := opts.Choose(name, crates); ok {
			return c, true, nil
		}
	}

	names := make([]string, len(crates))
	for i, c := range crates {
		names[i] = c.Name
	}
	return cargo.Crate{}, false, errors.New(errors.ErrCodeCrateNotInRepo,
		"could not find crate %q in the repository", name).
		WithHints("Available crates: " + strings.Join(names, ", "))
}

func (r *Runner) writePatch(source string, result *Result, opts Options) error {
	dir, err := cargo.FindConfigDir(opts.ProjectDir)
	if err != nil {
		return err
	}
	cfg, err := cargo.LoadConfig(filepath.Join(dir, cargo.ConfigFileName))
	if err != nil {
		return err
	}
	_, result.Updated = cfg.Lookup(source, result.Crate.Name)

	result.PatchPath, err = cfg.AddPatch(source, result.Crate.Name, result.Crate.Path)
	if err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	result.ConfigPath = cfg.Path()
	return nil
}

// Analyze parses the nearest Cargo.toml above projectDir.
func Analyze(projectDir string) (*cargo.Manifest, error) {
	path, err := cargo.FindManifest(projectDir)
	if err != nil {
		return nil, err
	}
	return cargo.ParseManifest(path)
}

func stage(ctx context.Context, s observability.Stage, crate string, fn func() error) error {
	hooks := observability.Patch()
	hooks.OnStageStart(ctx, s, crate)
	start := time.Now()
	err := fn()
	hooks.OnStageComplete(ctx, s, crate, time.Since(start), err)
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
