package lpatch

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lpatch/pkg/cargo"
	"github.com/matzehuels/lpatch/pkg/errors"
	"github.com/matzehuels/lpatch/pkg/vcs"
)

// DefaultDir is the directory repositories are cloned into, relative to
// the project directory.
const DefaultDir = "crates"

// ChooseFunc picks a crate when the requested one is not in the cloned
// repository. It returns false to give up.
type ChooseFunc func(requested string, available []cargo.Crate) (cargo.Crate, bool)

// Options configures a single [Runner.Run].
type Options struct {
	// Input is a crate name or a git URL.
	Input string
	// Dir is the clone root. Relative paths are resolved against ProjectDir.
	Dir string
	// ProjectDir is where Cargo.toml and .cargo are searched from.
	// Defaults to the working directory.
	ProjectDir string
	// Refresh bypasses the registry cache.
	Refresh bool
	// Choose is consulted when neither the requested crate nor a similarly
	// named one exists in the repository.
	Choose ChooseFunc
	// Logger overrides the runner's logger for this run.
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks required fields and fills defaults.
// Safe to call more than once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.Input = strings.TrimSpace(o.Input)
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidInput, "a crate name or git URL is required")
	}

	if o.ProjectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "cannot determine working directory")
		}
		o.ProjectDir = wd
	}
	abs, err := filepath.Abs(o.ProjectDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "invalid project directory %s", o.ProjectDir)
	}
	o.ProjectDir = abs

	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	if err := errors.ValidateDir(o.Dir); err != nil {
		return err
	}
	if !filepath.IsAbs(o.Dir) {
		o.Dir = filepath.Join(o.ProjectDir, o.Dir)
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Result describes a completed run.
type Result struct {
	Target     Target
	Crate      cargo.Crate // Crate the patch points at
	Similar    bool        // Crate was substituted for a missing Target.Name
	ClonePath  string
	ConfigPath string
	PatchPath  string     // Path as written to the config
	Updated    bool       // An entry for the crate already existed and was replaced
	Action     vcs.Action // What the sync did to the clone
}
