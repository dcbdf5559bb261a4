package vcs

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	lperrors "github.com/matzehuels/lpatch/pkg/errors"
)

var (
	certificateHints = []string{
		"Make sure the repository URL is correct",
		"Check your internet connection",
		"For self-signed certificates, configure git to accept them: 'git config --global http.sslVerify false'",
	}
	sshAuthHints = []string{
		"Ensure your SSH keys are configured (~/.ssh/)",
		"Check if ssh-agent is running: 'ssh-add -l'",
		"Test the SSH connection: 'ssh -T git@github.com'",
	}
	httpAuthHints = []string{
		"Configure a git credential helper: 'git config --global credential.helper'",
		"Or export GIT_TOKEN (or GITHUB_TOKEN) together with 'git config user.name'",
		"Or export GIT_USERNAME and GIT_PASSWORD",
	}
	notFoundHints = []string{
		"Check if the repository URL is correct",
		"Make sure you have access to the repository",
		"For private repositories, ensure you're authenticated",
	}
)

// classify converts a go-git failure into a coded error with hints.
// Context cancellation and already coded errors are returned unchanged.
func classify(op, url string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if lperrors.GetCode(err) != "" {
		return err
	}

	switch {
	case isCertificateError(err):
		return lperrors.Wrap(lperrors.ErrCodeGitCertificate, err, "SSL certificate verification failed for %s", url).
			WithHints(certificateHints...)
	case isAuthError(err):
		hints := httpAuthHints
		if ep, perr := transport.NewEndpoint(url); perr == nil && ep.Protocol == "ssh" {
			hints = sshAuthHints
		}
		return lperrors.Wrap(lperrors.ErrCodeGitAuth, err, "authentication failed for %s", url).
			WithHints(slices.Concat(hints, []string{"Verify your git configuration: 'git config --list'"})...)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return lperrors.Wrap(lperrors.ErrCodeGitNotFound, err, "repository not found: %s", url).
			WithHints(notFoundHints...)
	default:
		return lperrors.Wrap(lperrors.ErrCodeGit, err, "git %s failed for %s", op, url)
	}
}

// isAuthError reports whether err means the remote rejected our
// credentials, in which case the next provider is worth trying.
func isAuthError(err error) bool {
	if errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed) ||
		errors.Is(err, transport.ErrInvalidAuthMethod) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}

func isCertificateError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		invalid          x509.CertificateInvalidError
		hostname         x509.HostnameError
		verification     *tls.CertificateVerificationError
	)
	if errors.As(err, &unknownAuthority) || errors.As(err, &invalid) ||
		errors.As(err, &hostname) || errors.As(err, &verification) {
		return true
	}
	return strings.Contains(err.Error(), "x509:")
}
