package cli

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lpatch/pkg/observability"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name   string
		logger func(io.Writer) *log.Logger
		emit   func(*log.Logger)
		want   bool
	}{
		{"info at info", func(w io.Writer) *log.Logger { return newLogger(w, LogInfo) }, func(l *log.Logger) { l.Info("cloning") }, true},
		{"debug at info", func(w io.Writer) *log.Logger { return newLogger(w, LogInfo) }, func(l *log.Logger) { l.Debug("trying ssh-agent") }, false},
		{"debug at debug", func(w io.Writer) *log.Logger { return newLogger(w, LogDebug) }, func(l *log.Logger) { l.Debug("trying ssh-agent") }, true},
		{"info when quiet", quietLogger, func(l *log.Logger) { l.Info("cloning") }, false},
		{"warn when quiet", quietLogger, func(l *log.Logger) { l.Warn("using similar crate") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(tt.logger(&buf))
			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.want, buf.String())
			}
		})
	}
}

func TestLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, LogInfo).Info("patched", "crate", "serde")

	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(buf.String()) {
		t.Errorf("output %q does not start with a HH:MM:SS.00 timestamp", buf.String())
	}
	if !strings.Contains(buf.String(), "crate=serde") {
		t.Errorf("output %q missing structured field", buf.String())
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, LogInfo))
	prog.start = time.Now().Add(-1500 * time.Millisecond)

	prog.done("Patched serde")

	if !regexp.MustCompile(`Patched serde \(1\.5\d*s\)`).MatchString(buf.String()) {
		t.Errorf("progress output = %q, want elapsed time in parentheses", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext without a logger should return log.Default()")
	}

	l := newLogger(io.Discard, LogInfo)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestStepLogger(t *testing.T) {
	c := New(io.Discard, LogInfo)
	if got := c.stepLogger().GetLevel(); got != log.WarnLevel {
		t.Errorf("stepLogger level without --verbose = %v, want %v", got, log.WarnLevel)
	}
	if c.newGit(io.Discard) == nil {
		t.Fatal("newGit returned nil")
	}

	c.verbose = true
	if c.stepLogger() != c.Logger {
		t.Error("stepLogger with --verbose should be the CLI logger")
	}
}

func TestVerboseFlagEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	root := c.RootCommand()

	var seen *log.Logger
	root.AddCommand(&cobra.Command{
		Use: "whoami",
		Run: func(cmd *cobra.Command, args []string) {
			seen = loggerFromContext(cmd.Context())
			seen.Debug("debug line")
		},
	})
	root.SetArgs([]string{"whoami", "--verbose"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if seen != c.Logger {
		t.Error("command should receive the CLI logger through its context")
	}
	if !c.Verbose() || c.Logger.GetLevel() != LogDebug {
		t.Errorf("verbose = %v, level = %v, want debug", c.Verbose(), c.Logger.GetLevel())
	}
	if !strings.Contains(buf.String(), "debug line") {
		t.Errorf("debug message not logged: %q", buf.String())
	}
}

func TestDebugHooks(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	restore := installDebugHooks(newLogger(&buf, LogDebug))

	observability.Cache().OnCacheMiss(ctx, "crates:serde")
	observability.HTTP().OnResponse(ctx, "GET", "crates.io", "/api/v1/crates/serde", 200, time.Second)
	restore()
	observability.Cache().OnCacheHit(ctx, "crates:tokio")

	out := buf.String()
	for _, want := range []string{"cache miss", "key=crates:serde", "url=crates.io/api/v1/crates/serde", "status=200"} {
		if !strings.Contains(out, want) {
			t.Errorf("debug output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "crates:tokio") {
		t.Errorf("hooks still installed after restore:\n%s", out)
	}
}
