package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lpatch/pkg/buildinfo"
	"github.com/matzehuels/lpatch/pkg/cache"
	"github.com/matzehuels/lpatch/pkg/integrations/crates"
	"github.com/matzehuels/lpatch/pkg/lpatch"
	"github.com/matzehuels/lpatch/pkg/vcs"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "lpatch"

	// registryCacheTTL is how long crates.io lookups are cached.
	registryCacheTTL = 24 * time.Hour

	// redisKeyPrefix namespaces lpatch entries in a shared Redis.
	redisKeyPrefix = "lpatch:"
)

// Environment variables.
const (
	envCacheDir    = "LPATCH_CACHE_DIR"
	envRedisURL    = "LPATCH_REDIS_URL"
	envRegistryURL = "LPATCH_REGISTRY_URL"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Global flags.
	verbose bool
	noCache bool
	refresh bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Verbose reports whether --verbose was given.
func (c *CLI) Verbose() bool { return c.verbose }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "cargo-lpatch",
		Short: "Patch cargo dependencies with local clones",
		Long: `cargo-lpatch clones the source repository of a dependency and redirects
Cargo to the local copy through a [patch] entry in .cargo/config.toml.

Installed on PATH it runs as a cargo subcommand: cargo lpatch <crate>.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		// Errors are reported by main together with their hints.
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging and git progress")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the registry response cache")
	flags.BoolVar(&c.refresh, "refresh", false, "ignore cached registry responses")

	root.AddCommand(c.lpatchCommand())
	root.AddCommand(c.listCommand())
	root.AddCommand(c.unpatchCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a patch runner for CLI use. The returned cache must be
// closed by the caller.
func (c *CLI) newRunner(ctx context.Context, progress io.Writer) (*lpatch.Runner, cache.Cache, error) {
	backend, err := c.newCache(ctx)
	if err != nil {
		return nil, nil, err
	}
	registry := crates.NewClientWithBaseURL(backend, registryCacheTTL, os.Getenv(envRegistryURL))
	return lpatch.NewRunner(registry, c.newGit(progress), c.Logger), backend, nil
}

// stepLogger returns the logger for pipeline and git output. Without
// --verbose only warnings get through, so nothing draws over the spinner.
func (c *CLI) stepLogger() *log.Logger {
	if c.verbose {
		return c.Logger
	}
	return quietLogger(os.Stderr)
}

func (c *CLI) newGit(progress io.Writer) *vcs.Git {
	return vcs.New(vcs.Options{
		Progress: progress,
		Logger:   c.stepLogger(),
		Config:   vcs.LoadGitConfig("."),
	})
}

// newCache picks the registry cache backend: none with --no-cache, Redis
// when LPATCH_REDIS_URL is set, the file cache otherwise. A cache that
// cannot be opened degrades to no caching.
func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	if url := os.Getenv(envRedisURL); url != "" {
		rc, err := cache.NewRedisCache(ctx, url, redisKeyPrefix)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, continuing without cache", "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable, continuing without cache", "dir", dir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory: $LPATCH_CACHE_DIR, else the XDG
// standard location (~/.cache/lpatch/).
func cacheDir() (string, error) {
	if dir := os.Getenv(envCacheDir); dir != "" {
		return dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
