package vcs

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport"

	lperrors "github.com/matzehuels/lpatch/pkg/errors"
)

func TestClassify(t *testing.T) {
	httpsURL := "https://github.com/o/r.git"
	sshURL := "git@github.com:o/r.git"

	tests := []struct {
		name     string
		url      string
		err      error
		wantCode lperrors.Code
		wantHint string
	}{
		{"auth over https", httpsURL, transport.ErrAuthenticationRequired, lperrors.ErrCodeGitAuth, "credential.helper"},
		{"auth over ssh", sshURL, fmt.Errorf("ssh: handshake failed: %s", "ssh: unable to authenticate"), lperrors.ErrCodeGitAuth, "ssh-add -l"},
		{"authorization", httpsURL, transport.ErrAuthorizationFailed, lperrors.ErrCodeGitAuth, "git config --list"},
		{"not found", httpsURL, transport.ErrRepositoryNotFound, lperrors.ErrCodeGitNotFound, "access to the repository"},
		{"certificate", httpsURL, fmt.Errorf("get: %w", x509.UnknownAuthorityError{}), lperrors.ErrCodeGitCertificate, "sslVerify"},
		{"certificate by message", httpsURL, errors.New("x509: certificate signed by unknown authority"), lperrors.ErrCodeGitCertificate, ""},
		{"other", httpsURL, errors.New("object not found"), lperrors.ErrCodeGit, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("clone", tt.url, tt.err)
			if got := lperrors.GetCode(err); got != tt.wantCode {
				t.Fatalf("code = %s, want %s", got, tt.wantCode)
			}
			if !errors.Is(err, tt.err) {
				t.Error("classified error should wrap the original")
			}
			if tt.wantHint == "" {
				return
			}
			hints := strings.Join(lperrors.Hints(err), "\n")
			if !strings.Contains(hints, tt.wantHint) {
				t.Errorf("hints %q missing %q", hints, tt.wantHint)
			}
		})
	}
}

func TestClassifyPassThrough(t *testing.T) {
	if err := classify("clone", "x", nil); err != nil {
		t.Errorf("classify(nil) = %v", err)
	}
	if err := classify("clone", "x", context.Canceled); err != context.Canceled {
		t.Errorf("classify(Canceled) = %v, want context.Canceled unchanged", err)
	}
	coded := lperrors.New(lperrors.ErrCodeInvalidURL, "bad")
	if err := classify("clone", "x", coded); err != coded {
		t.Errorf("classify should not re-wrap coded errors, got %v", err)
	}
}

func TestCredentialRequest(t *testing.T) {
	ep, err := transport.NewEndpoint("https://alice@git.example.com:8443/team/repo.git")
	if err != nil {
		t.Fatal(err)
	}
	want := "protocol=https\nhost=git.example.com:8443\npath=team/repo.git\nusername=alice\n\n"
	if got := credentialRequest(ep); got != want {
		t.Errorf("credentialRequest =\n%q\nwant\n%q", got, want)
	}
}

func TestParseCredentialResponse(t *testing.T) {
	out := "protocol=https\nhost=github.com\nusername=alice\npassword=s3cr=t\n"
	user, pass := parseCredentialResponse(out)
	if user != "alice" || pass != "s3cr=t" {
		t.Errorf("parseCredentialResponse = %q, %q", user, pass)
	}
}
