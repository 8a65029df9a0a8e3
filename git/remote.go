package git

import (
	"fmt"
	"net/url"
	"strings"
)

// Remote identifies a hosted repository extracted from a
// clone URL.
type Remote struct {
	// Host is the hosting server, e.g. "github.com".
	Host string
	// Owner is the user, organization or group owning
	// the repository.
	Owner string
	// Name is the repository name without the .git
	// suffix.
	Name string
}

// ParseRemote extracts host, owner and repository name
// from a clone URL. Supported forms are http(s) and ssh
// URLs plus the scp-like git@host:owner/name syntax.
// Local paths carry no hosting information and yield an
// error.
func ParseRemote(rawURL string) (Remote, error) {
	const errCtx = "parsing remote url"

	raw := strings.TrimSuffix(
		strings.TrimSpace(rawURL), "/",
	)
	if raw == "" {
		return Remote{}, fmt.Errorf(
			"%s: empty url", errCtx,
		)
	}

	if !strings.Contains(raw, "://") {
		// scp-like: git@host:owner/name.git
		at := strings.Index(raw, "@")
		colon := strings.Index(raw, ":")

		if at < 0 || colon < at {
			return Remote{}, fmt.Errorf(
				"%s: %q is not a hosted repository url",
				errCtx, rawURL,
			)
		}

		host := raw[at+1 : colon]

		owner, name, err := splitRepoPath(
			raw[colon+1:],
		)
		if err != nil {
			return Remote{}, fmt.Errorf(
				"%s: %q: %w", errCtx, rawURL, err,
			)
		}

		return Remote{
			Host:  host,
			Owner: owner,
			Name:  name,
		}, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Remote{}, fmt.Errorf(
			"%s: %q: %w", errCtx, rawURL, err,
		)
	}

	if parsed.Host == "" {
		return Remote{}, fmt.Errorf(
			"%s: %q has no host", errCtx, rawURL,
		)
	}

	owner, name, err := splitRepoPath(parsed.Path)
	if err != nil {
		return Remote{}, fmt.Errorf(
			"%s: %q: %w", errCtx, rawURL, err,
		)
	}

	return Remote{
		Host:  parsed.Hostname(),
		Owner: owner,
		Name:  name,
	}, nil
}

// splitRepoPath splits an owner/name repository path and
// strips the .git suffix. Nested group paths (GitLab
// subgroups) keep everything before the final segment as
// the owner.
func splitRepoPath(p string) (string, string, error) {
	p = strings.Trim(p, "/")

	slash := strings.LastIndex(p, "/")
	if slash <= 0 || slash == len(p)-1 {
		return "", "", fmt.Errorf(
			"path %q lacks owner/name form", p,
		)
	}

	owner := p[:slash]
	name := strings.TrimSuffix(p[slash+1:], ".git")

	if name == "" {
		return "", "", fmt.Errorf(
			"path %q lacks repository name", p,
		)
	}

	return owner, name, nil
}
