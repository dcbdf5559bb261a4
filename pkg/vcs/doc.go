// Package vcs clones and updates git repositories for local patching.
//
// # Overview
//
// [Git.Sync] is the entry point: it clones a repository when the
// destination does not exist and pulls it otherwise. Both operations are
// implemented with go-git; no git binary is needed except for the optional
// credential helper lookup.
//
// # Cloning
//
// A clone is written to a hidden sibling of the destination
// (".<name>.lpatch-<uuid>") and renamed into place only after it succeeded,
// so an interrupted or failed clone never leaves a partial checkout behind.
//
// # Pulling
//
// Pull fetches origin and fast-forwards the current branch when that is
// possible without touching local work. Local modifications, local
// commits and diverged history are reported as an [Action] and left for
// the user to merge; they are not errors.
//
// # Credentials
//
// Credentials are tried in a fixed order until one is accepted:
//
//   - ssh URLs: ssh-agent, then the first readable key of ~/.ssh/id_rsa,
//     id_ecdsa, id_ed25519, id_dsa
//   - http(s) URLs: a username from git config (user.name, github.user,
//     credential.username) with a token from GIT_TOKEN, GITHUB_TOKEN or
//     GIT_PASSWORD; then GIT_USERNAME and GIT_PASSWORD; then
//     "git credential fill" when credential.helper is configured
//   - finally an anonymous attempt
//
// Setting http.sslVerify to false in git config disables TLS certificate
// verification.
//
// # Errors
//
// Failures are returned as [errors.Error] values coded GIT_AUTH,
// GIT_REPOSITORY_NOT_FOUND, GIT_CERTIFICATE or GIT_ERROR, with remediation
// hints attached.
//
// [errors.Error]: github.com/matzehuels/lpatch/pkg/errors.Error
package vcs
