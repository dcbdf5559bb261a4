package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lpatch/pkg/cargo"
	"github.com/matzehuels/lpatch/pkg/errors"
	"github.com/matzehuels/lpatch/pkg/lpatch"
	"github.com/matzehuels/lpatch/pkg/observability"
	"github.com/matzehuels/lpatch/pkg/vcs"
)

// lpatchOpts holds the command-line flags for the lpatch command.
type lpatchOpts struct {
	name    string // crate name or git URL
	dir     string // clone root
	analyze bool   // list Cargo.toml dependencies instead of patching
}

// lpatchCommand creates the lpatch command. Cargo runs `cargo lpatch ...`
// as `cargo-lpatch lpatch ...`, so this is the main entry point.
func (c *CLI) lpatchCommand() *cobra.Command {
	opts := lpatchOpts{dir: lpatch.DefaultDir}

	cmd := &cobra.Command{
		Use:   "lpatch [name-or-url] [dir]",
		Short: "Clone a dependency and patch it into .cargo/config.toml",
		Long: `Clone the source repository of a dependency and point Cargo at the local copy.

The argument is a crate name or a git URL. A dependency of that name in the
project's Cargo.toml decides where it comes from: git dependencies are cloned
from their declared URL and patched under that URL, version dependencies are
looked up on crates.io. Git URLs are cloned as given.

Running the command again pulls the existing clone and rewrites the entry.`,
		Example: `  cargo lpatch serde
  cargo lpatch tokio vendor
  cargo lpatch --name https://github.com/dtolnay/anyhow --dir deps
  cargo lpatch --analyze`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				if opts.name != "" {
					return errors.New(errors.ErrCodeInvalidInput, "crate given both as argument and --name")
				}
				opts.name = args[0]
			}
			if len(args) > 1 {
				if cmd.Flags().Changed("dir") {
					return errors.New(errors.ErrCodeInvalidInput, "directory given both as argument and --dir")
				}
				opts.dir = args[1]
			}

			if opts.analyze {
				return c.runAnalyze()
			}
			if opts.name == "" {
				return errors.New(errors.ErrCodeInvalidInput, "either a crate name or --analyze must be specified").
					WithHints("Run 'cargo lpatch --help' for usage")
			}
			return c.runLpatch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "crate name or git URL to patch")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", opts.dir, "directory to clone into")
	cmd.Flags().BoolVarP(&opts.analyze, "analyze", "a", false, "show the dependencies of Cargo.toml and their kinds")

	return cmd
}

func (c *CLI) runLpatch(cmd *cobra.Command, opts lpatchOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	var gitProgress io.Writer = io.Discard
	if c.verbose {
		gitProgress = os.Stderr
	}
	runner, backend, err := c.newRunner(ctx, gitProgress)
	if err != nil {
		return err
	}
	defer backend.Close()

	runOpts := lpatch.Options{
		Input:   opts.name,
		Dir:     opts.dir,
		Refresh: c.refresh,
		Logger:  logger,
	}

	// Without --verbose the spinner replaces the step-by-step log.
	var spin *Spinner
	if !c.verbose {
		runOpts.Logger = c.stepLogger()
		spin = newSpinnerWithContext(ctx, fmt.Sprintf("Patching %s...", opts.name))
		spin.Start()
		defer spin.Stop()

		restore := observability.SetPatchHooks(spinnerStages{spin: spin})
		defer restore()
	}
	runOpts.Choose = func(requested string, crates []cargo.Crate) (cargo.Crate, bool) {
		if spin != nil {
			spin.Stop()
		}
		if !interactive() {
			return cargo.Crate{}, false
		}
		return pickCrate(requested, crates)
	}

	if c.verbose {
		defer installDebugHooks(logger)()
	}

	prog := newProgress(logger)
	res, err := runner.Run(ctx, runOpts)
	if spin != nil {
		spin.Stop()
		if err != nil && spin.Cancelled() {
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	if c.verbose {
		prog.done(fmt.Sprintf("Patched %s", res.Crate.Name))
	}

	printResult(res)
	return nil
}

// spinnerStages keeps the spinner message in step with the pipeline.
type spinnerStages struct {
	spin *Spinner
}

func (s spinnerStages) OnStageStart(_ context.Context, stage observability.Stage, crate string) {
	switch stage {
	case observability.StageResolve:
		s.spin.SetMessage(fmt.Sprintf("Resolving %s...", crate))
	case observability.StageSync:
		s.spin.SetMessage(fmt.Sprintf("Fetching %s...", crate))
	case observability.StageLocate:
		s.spin.SetMessage(fmt.Sprintf("Locating %s in the repository...", crate))
	case observability.StageConfig:
		s.spin.SetMessage("Writing .cargo/config.toml...")
	}
}

func (spinnerStages) OnStageComplete(context.Context, observability.Stage, string, time.Duration, error) {}

func printResult(res *lpatch.Result) {
	verb := "Set up"
	if res.Updated {
		verb = "Updated"
	}
	printSuccess("%s local patch for %s", verb, StyleHighlight.Render(res.Crate.Name))
	if res.Similar {
		printWarning("%q is not in the repository, patched %q instead", res.Target.Name, res.Crate.Name)
	}

	printKeyValue("Repository", res.Target.RepositoryURL)
	printKeyValue("Source", res.Target.Source)
	if !res.Target.Ref.IsZero() {
		printKeyValue("Pinned to", res.Target.Ref.String())
	}
	printKeyValue("Clone", displayPath(res.ClonePath)+" ("+res.Action.String()+")")
	if res.Crate.Path != res.ClonePath {
		printKeyValue("Crate", displayPath(res.Crate.Path))
	}
	printKeyValue("Config", displayPath(res.ConfigPath))

	switch {
	case res.Action.NeedsMerge():
		printWarning("Upstream changes were fetched but not merged")
		printDetail("Merge them manually: git -C %s merge @{u}", displayPath(res.ClonePath))
	case res.Action == vcs.Ahead:
		printDetail("The local branch has commits that are not upstream")
	case res.Action == vcs.Fetched:
		printDetail("HEAD has no upstream branch; fetched without merging")
	}

	printNewline()
	printNextStep("Build against the local copy", "cargo build")
}

// runAnalyze lists the dependencies of the nearest Cargo.toml, grouped by kind.
func (c *CLI) runAnalyze() error {
	wd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "cannot determine working directory")
	}
	m, err := lpatch.Analyze(wd)
	if err != nil {
		return err
	}
	for _, s := range m.Skipped {
		c.Logger.Warn("skipped dependency", "name", s.Name, "section", s.Section, "reason", s.Reason)
	}

	printInfo("Dependencies of %s", displayPath(m.Path))
	if len(m.Dependencies) == 0 {
		printDetail("No dependencies found")
		return nil
	}

	groups := []struct {
		kind  cargo.Kind
		title string
	}{
		{cargo.KindVersion, "Version dependencies (crates.io)"},
		{cargo.KindGit, "Git dependencies"},
		{cargo.KindPath, "Path dependencies"},
	}
	for _, g := range groups {
		deps := m.ByKind(g.kind)
		if len(deps) == 0 {
			continue
		}
		printNewline()
		fmt.Fprintln(stdout, StyleTitle.Render(fmt.Sprintf("%s: %d", g.title, len(deps))))
		for _, d := range deps {
			fmt.Fprintf(stdout, "  %s = %s %s\n",
				StyleHighlight.Render(d.Name), StyleValue.Render(describeDependency(d)), StyleDim.Render("["+d.Section+"]"))
		}
	}

	printNewline()
	printNextStep("Patch a dependency", "cargo lpatch <CRATE_NAME>")
	return nil
}

// describeDependency renders the source part of a dependency the way it
// would be written in Cargo.toml.
func describeDependency(d cargo.Dependency) string {
	switch d.Kind {
	case cargo.KindGit:
		s := fmt.Sprintf("{ git = %q", d.Git)
		ref := lpatch.Ref{Branch: d.Branch, Tag: d.Tag, Rev: d.Rev}
		if !ref.IsZero() {
			s += ", " + ref.String()
		}
		return s + " }"
	case cargo.KindPath:
		return fmt.Sprintf("{ path = %q }", d.Path)
	default:
		if d.Package != "" {
			return fmt.Sprintf("{ package = %q, version = %q }", d.Package, d.Version)
		}
		return fmt.Sprintf("%q", d.Version)
	}
}

// displayPath shortens path relative to the working directory when it lies
// below it.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return path
	}
	return rel
}
