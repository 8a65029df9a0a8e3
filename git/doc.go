// Package git provides git repository operations and a strategy interface for
// creating pull requests across different git hosting platforms.
//
// Repo wraps a local git clone with methods for branching, committing with an
// injected identity and timestamp, and pushing. Clone creates a new Repo from
// a remote URL with optional mirror reference; DefaultBranch resolves the
// remote's default branch with a fixed fallback so a run never fails on that
// lookup alone.
//
// The Provider interface abstracts PR creation. Implementations exist for
// GitHub, GitLab, and Bitbucket Server in sub-packages. ProviderFunc is a
// convenience adapter that lets plain functions satisfy the interface.
// ParseRemote extracts the host, owner and repository name a provider needs
// from the clone URL.
package git
