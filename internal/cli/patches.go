package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/lpatch/pkg/cargo"
	"github.com/matzehuels/lpatch/pkg/errors"
)

// listCommand creates the list command.
func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the local patches of the current project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectConfig()
			if err != nil {
				return err
			}

			patches := cfg.Patches()
			if len(patches) == 0 {
				printInfo("No patches in %s", displayPath(cfg.Path()))
				return nil
			}

			source := ""
			for _, p := range patches {
				if p.Source != source {
					if source != "" {
						printNewline()
					}
					source = p.Source
					printInfo("[patch.%s]", source)
				}
				path := p.Path
				if !filepath.IsAbs(path) {
					path = filepath.Join(cfg.Root(), filepath.FromSlash(path))
				}
				if _, err := os.Stat(path); err != nil {
					printPatchLine(p.Name, p.Path+" "+StyleWarning.Render("(missing)"))
					continue
				}
				printPatchLine(p.Name, p.Path)
			}
			return nil
		},
	}
}

// unpatchCommand creates the unpatch command.
func (c *CLI) unpatchCommand() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "unpatch <name>",
		Short: "Remove a local patch from .cargo/config.toml",
		Long: `Remove a [patch] entry from the project's .cargo/config.toml.

Without --source the entry is looked up in every patch table. The cloned
repository is left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := projectConfig()
			if err != nil {
				return err
			}

			if source == "" {
				source, err = patchSource(cfg, name)
				if err != nil {
					return err
				}
			}
			p, ok := cfg.Lookup(source, name)
			if !ok || !cfg.RemovePatch(source, name) {
				return errors.New(errors.ErrCodeNotFound, "no patch for %s under [patch.%s]", name, source).
					WithHints("Run 'cargo lpatch list' to see the current patches")
			}
			if err := cfg.Save(); err != nil {
				return err
			}

			c.Logger.Debug("removed patch", "source", source, "name", name, "config", cfg.Path())
			printSuccess("Removed patch for %s", StyleHighlight.Render(name))
			printDetail("The clone at %s was not deleted", p.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "patch table to remove from (e.g. crates-io or a git URL)")

	return cmd
}

// projectConfig loads the .cargo/config.toml of the project containing the
// working directory.
func projectConfig() (*cargo.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "cannot determine working directory")
	}
	dir, err := cargo.FindConfigDir(wd)
	if err != nil {
		return nil, err
	}
	return cargo.LoadConfig(filepath.Join(dir, cargo.ConfigFileName))
}

// patchSource finds the single patch table that holds name.
func patchSource(cfg *cargo.Config, name string) (string, error) {
	var sources []string
	for _, p := range cfg.Patches() {
		if p.Name == name {
			sources = append(sources, p.Source)
		}
	}
	switch len(sources) {
	case 0:
		return "", errors.New(errors.ErrCodeNotFound, "no patch for %s in %s", name, cfg.Path()).
			WithHints("Run 'cargo lpatch list' to see the current patches")
	case 1:
		return sources[0], nil
	default:
		return "", errors.New(errors.ErrCodeInvalidInput, "%s is patched in several sources: %s", name, strings.Join(sources, ", ")).
			WithHints("Pick one with --source")
	}
}
