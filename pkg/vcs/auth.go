package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/gopasspw/gitconfig"
)

// ConfigReader reads git configuration values. An empty string means unset.
// *gitconfig.Configs satisfies it.
type ConfigReader interface {
	Get(key string) string
}

// LoadGitConfig reads the system, global and (if workdir is a repository)
// local git configuration.
func LoadGitConfig(workdir string) ConfigReader {
	cfg := gitconfig.New()
	cfg.LoadAll(workdir)
	return cfg
}

// Provider offers one way of authenticating against a remote.
// Auth returns ok=false when the provider has nothing to offer for ep.
type Provider interface {
	Name() string
	Auth(ctx context.Context, ep *transport.Endpoint) (auth transport.AuthMethod, ok bool)
}

var (
	sshKeyNames        = []string{"id_rsa", "id_ecdsa", "id_ed25519", "id_dsa"}
	usernameConfigKeys = []string{"user.name", "github.user", "credential.username"}
	tokenEnvVars       = []string{"GIT_TOKEN", "GITHUB_TOKEN", "GIT_PASSWORD"}
)

// providers returns the credential chain for ep, in the order it is tried.
func (g *Git) providers(ep *transport.Endpoint) []Provider {
	switch ep.Protocol {
	case "ssh":
		return []Provider{
			sshAgentProvider{},
			sshKeyFileProvider{home: g.home, logger: g.logger},
			anonymousProvider{},
		}
	case "http", "https":
		chain := []Provider{
			configTokenProvider{config: g.config, getenv: g.getenv},
			envUserPassProvider{getenv: g.getenv},
		}
		if g.config.Get("credential.helper") != "" {
			chain = append(chain, credentialHelperProvider{fill: g.credentialFill, logger: g.logger})
		}
		return append(chain, anonymousProvider{})
	default:
		return []Provider{anonymousProvider{}}
	}
}

func sshUser(ep *transport.Endpoint) string {
	if ep.User != "" {
		return ep.User
	}
	return "git"
}

type sshAgentProvider struct{}

func (sshAgentProvider) Name() string { return "ssh-agent" }

func (sshAgentProvider) Auth(_ context.Context, ep *transport.Endpoint) (transport.AuthMethod, bool) {
	auth, err := gitssh.NewSSHAgentAuth(sshUser(ep))
	if err != nil {
		return nil, false
	}
	return auth, true
}

type sshKeyFileProvider struct {
	home   string
	logger *log.Logger
}

func (sshKeyFileProvider) Name() string { return "ssh-key" }

// Auth uses the first key under ~/.ssh that can be loaded without a passphrase.
func (p sshKeyFileProvider) Auth(_ context.Context, ep *transport.Endpoint) (transport.AuthMethod, bool) {
	if p.home == "" {
		return nil, false
	}
	for _, name := range sshKeyNames {
		path := filepath.Join(p.home, ".ssh", name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		auth, err := gitssh.NewPublicKeysFromFile(sshUser(ep), path, "")
		if err != nil {
			p.logger.Debug("skipping ssh key", "path", path, "err", err)
			continue
		}
		p.logger.Debug("using ssh key", "path", path)
		return auth, true
	}
	return nil, false
}

type configTokenProvider struct {
	config ConfigReader
	getenv func(string) string
}

func (configTokenProvider) Name() string { return "git-config" }

func (p configTokenProvider) Auth(_ context.Context, _ *transport.Endpoint) (transport.AuthMethod, bool) {
	username := firstNonEmpty(usernameConfigKeys, p.config.Get)
	if username == "" {
		return nil, false
	}
	token := firstNonEmpty(tokenEnvVars, p.getenv)
	if token == "" {
		return nil, false
	}
	return &githttp.BasicAuth{Username: username, Password: token}, true
}

type envUserPassProvider struct {
	getenv func(string) string
}

func (envUserPassProvider) Name() string { return "environment" }

func (p envUserPassProvider) Auth(_ context.Context, _ *transport.Endpoint) (transport.AuthMethod, bool) {
	username, password := p.getenv("GIT_USERNAME"), p.getenv("GIT_PASSWORD")
	if username == "" || password == "" {
		return nil, false
	}
	return &githttp.BasicAuth{Username: username, Password: password}, true
}

type credentialHelperProvider struct {
	fill   credentialFillFunc
	logger *log.Logger
}

func (credentialHelperProvider) Name() string { return "credential-helper" }

func (p credentialHelperProvider) Auth(ctx context.Context, ep *transport.Endpoint) (transport.AuthMethod, bool) {
	username, password, err := p.fill(ctx, ep)
	if err != nil {
		p.logger.Debug("credential helper failed", "err", err)
		return nil, false
	}
	if username == "" || password == "" {
		return nil, false
	}
	return &githttp.BasicAuth{Username: username, Password: password}, true
}

type anonymousProvider struct{}

func (anonymousProvider) Name() string { return "anonymous" }

func (anonymousProvider) Auth(context.Context, *transport.Endpoint) (transport.AuthMethod, bool) {
	return nil, true
}

func firstNonEmpty(keys []string, get func(string) string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(get(k)); v != "" {
			return v
		}
	}
	return ""
}

// sslVerifyDisabled reports whether git config turns off certificate checks.
func sslVerifyDisabled(cfg ConfigReader) bool {
	switch strings.ToLower(firstNonEmpty([]string{"http.sslVerify", "http.sslverify"}, cfg.Get)) {
	case "false", "no", "off", "0":
		return true
	}
	return false
}
