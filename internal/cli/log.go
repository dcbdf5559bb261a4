// Package cli implements the cargo-lpatch command-line interface.
//
// # Commands
//
//   - lpatch: clone a dependency and patch it into .cargo/config.toml
//   - list: show the patches in .cargo/config.toml
//   - unpatch: remove a patch
//   - cache: manage the crates.io response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// shows credential attempts and git transfer progress. The logger travels
// through context.Context so helpers deep in a command can reach it.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lpatch/pkg/observability"
)

// newLogger creates a logger that writes timestamps as "15:04:05.00".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// quietLogger is used for the pipeline while the spinner runs: only
// warnings and errors interrupt it.
func quietLogger(w io.Writer) *log.Logger {
	return newLogger(w, log.WarnLevel)
}

// progress logs how long an operation took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Patched serde (1.234s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default() when the
// command was run without the root's PersistentPreRun.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// debugHooks logs registry cache and HTTP activity at debug level.
type debugHooks struct {
	logger *log.Logger
}

func (h debugHooks) OnCacheHit(_ context.Context, key string) {
	h.logger.Debug("cache hit", "key", key)
}

func (h debugHooks) OnCacheMiss(_ context.Context, key string) {
	h.logger.Debug("cache miss", "key", key)
}

func (h debugHooks) OnCacheSet(_ context.Context, key string, size int) {
	h.logger.Debug("cached", "key", key, "bytes", size)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "url", host+path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "url", host+path, "status", status, "duration", d)
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request failed", "method", method, "url", host+path, "err", err)
}

// installDebugHooks registers debugHooks for the cache and HTTP client and
// returns a func that removes them again.
func installDebugHooks(l *log.Logger) func() {
	h := debugHooks{logger: l}
	restoreCache := observability.SetCacheHooks(h)
	restoreHTTP := observability.SetHTTPHooks(h)
	return func() {
		restoreHTTP()
		restoreCache()
	}
}
