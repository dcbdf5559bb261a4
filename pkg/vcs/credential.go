package vcs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

type credentialFillFunc func(ctx context.Context, ep *transport.Endpoint) (username, password string, err error)

// gitCredentialFill asks the configured git credential helper for a
// username and password via "git credential fill". Interactive prompts
// are disabled.
func gitCredentialFill(ctx context.Context, ep *transport.Endpoint) (string, string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", "", err
	}

	cmd := exec.CommandContext(ctx, "git", "credential", "fill")
	cmd.Stdin = strings.NewReader(credentialRequest(ep))
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("git credential fill: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	username, password := parseCredentialResponse(stdout.String())
	return username, password, nil
}

func credentialRequest(ep *transport.Endpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "protocol=%s\n", ep.Protocol)
	host := ep.Host
	if ep.Port != 0 {
		host = fmt.Sprintf("%s:%d", ep.Host, ep.Port)
	}
	fmt.Fprintf(&b, "host=%s\n", host)
	if p := strings.TrimPrefix(ep.Path, "/"); p != "" {
		fmt.Fprintf(&b, "path=%s\n", p)
	}
	if ep.User != "" {
		fmt.Fprintf(&b, "username=%s\n", ep.User)
	}
	b.WriteString("\n")
	return b.String()
}

func parseCredentialResponse(out string) (username, password string) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch key {
		case "username":
			username = value
		case "password":
			password = value
		}
	}
	return username, password
}
