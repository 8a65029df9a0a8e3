package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/byte4ever/commitforge/exec"
)

const (
	// DefaultRemoteName is the remote name used for all
	// clones.
	DefaultRemoteName = "origin"

	// FallbackBranch is assumed as the default branch
	// when the remote does not advertise one and the
	// local clone carries no symbolic ref for it.
	FallbackBranch = "main"

	// DefaultAuthorName and DefaultAuthorEmail form the
	// placeholder identity applied when no override is
	// configured.
	DefaultAuthorName  = "commitforge"
	DefaultAuthorEmail = "commitforge@localhost"
)

// ErrPushRejected marks a plain push refused by the remote
// because the local branch is not a fast-forward of the
// remote tip.
var ErrPushRejected = errors.New(
	"push rejected by remote (non-fast-forward)",
)

// rejectionMarkers are the fragments git prints when a
// plain push is refused as non-fast-forward.
var rejectionMarkers = []string{
	"[rejected]",
	"non-fast-forward",
	"fetch first",
}

// Repo is a local clone of a git repository. Create with
// Clone, and call Clean when done.
type Repo struct {
	// Dir is the filesystem location of the clone.
	Dir string
	// RemoteName is the name of the upstream remote.
	RemoteName string
}

// Clone clones a repository into dir. Pass the full
// repository URL or a local path as repo. mirrorDir is an
// optional local mirror used as a reference clone. Any
// preexisting content of dir is removed first; on clone
// failure dir is removed again so no partial checkout is
// left behind.
//
// Cloning an empty remote succeeds and yields a working
// copy with an unborn HEAD.
//
//nolint:gosec // repo and dir originate from CLI flags
func Clone(
	ctx context.Context,
	repo string,
	dir string,
	mirrorDir string,
) (*Repo, error) {
	const errCtx = "cloning repository"

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf(
			"%s: remove dir: %w", errCtx, err,
		)
	}

	args := []string{
		"clone",
		"--no-tags",
		"--origin", DefaultRemoteName,
	}

	if mirrorDir != "" {
		args = append(args, "--reference", mirrorDir)
	}

	args = append(args, repo, dir)

	if _, err := exec.Ex(
		ctx, "", "git", args...,
	); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, fmt.Errorf(
				"%s: remove partial clone: %w",
				errCtx, rmErr,
			)
		}

		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	return &Repo{
		Dir:        dir,
		RemoteName: DefaultRemoteName,
	}, nil
}

// Clean removes the local clone directory.
func (r *Repo) Clean() error {
	const errCtx = "cleaning repository"

	if err := os.RemoveAll(r.Dir); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// DefaultBranch resolves the name of the remote's default
// branch. Lookup order: the remote's advertised HEAD, the
// local symbolic ref for the remote HEAD, and finally
// FallbackBranch. The first two tiers may fail on shallow
// or unusual clone configurations; the run degrades to the
// fixed assumption instead of failing.
func (r *Repo) DefaultBranch(
	ctx context.Context,
) string {
	if name := r.remoteHeadBranch(ctx); name != "" {
		return name
	}

	if name := r.symbolicHeadBranch(ctx); name != "" {
		return name
	}

	return FallbackBranch
}

// remoteHeadBranch queries the remote for its advertised
// HEAD branch. Returns empty string when the query fails
// or the remote advertises nothing.
func (r *Repo) remoteHeadBranch(
	ctx context.Context,
) string {
	out, err := exec.Ex(
		ctx, r.Dir, "git",
		"ls-remote", "--symref", r.RemoteName, "HEAD",
	)
	if err != nil {
		return ""
	}

	// Expected shape:
	//   ref: refs/heads/main	HEAD
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "ref:" {
			continue
		}

		return strings.TrimPrefix(
			fields[1], "refs/heads/",
		)
	}

	return ""
}

// symbolicHeadBranch reads the local symbolic ref for the
// remote HEAD recorded at clone time. Returns empty string
// when the ref is unset.
func (r *Repo) symbolicHeadBranch(
	ctx context.Context,
) string {
	out, err := exec.Ex(
		ctx, r.Dir, "git",
		"symbolic-ref", "--short",
		"refs/remotes/"+r.RemoteName+"/HEAD",
	)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(
		strings.TrimSpace(out), r.RemoteName+"/",
	)
}

// CurrentBranch returns the name of the branch HEAD points
// at, including unborn branches on history-less clones.
func (r *Repo) CurrentBranch(
	ctx context.Context,
) (string, error) {
	const errCtx = "resolving current branch"

	out, err := exec.Ex(
		ctx, r.Dir, "git",
		"symbolic-ref", "--short", "HEAD",
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(out), nil
}

// HasCommits reports whether the current branch has any
// commit history.
func (r *Repo) HasCommits(ctx context.Context) bool {
	_, err := exec.Ex(
		ctx, r.Dir, "git",
		"rev-parse", "--verify", "--quiet", "HEAD",
	)

	return err == nil
}

// SwitchToBranch switches to branch, creating it from base
// if it does not exist. On a history-less clone the branch
// is created by carrying the unborn HEAD over. Returns
// true when the branch was newly created.
func (r *Repo) SwitchToBranch(
	ctx context.Context,
	branch string,
	base string,
) (bool, error) {
	const errCtx = "switching branch"

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "checkout", branch,
	); err == nil {
		return false, nil
	}

	// Branch does not exist yet: create and check out.
	if !r.HasCommits(ctx) {
		// No ref to branch from; checkout -b moves the
		// unborn HEAD instead.
		if _, err := exec.Ex(
			ctx, r.Dir, "git",
			"checkout", "-b", branch,
		); err != nil {
			return false, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return true, nil
	}

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "branch", branch, base,
	); err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "checkout", branch,
	); err != nil {
		return false, fmt.Errorf("%s: %w", errCtx, err)
	}

	return true, nil
}

// Add stages the given path.
func (r *Repo) Add(
	ctx context.Context,
	path string,
) error {
	const errCtx = "staging path"

	if _, err := exec.Ex(
		ctx, r.Dir, "git", "add", path,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// CommitOptions control a single commit.
type CommitOptions struct {
	// Message is the commit message.
	Message string

	// AuthorName and AuthorEmail override the commit
	// identity. The placeholder identity is used when
	// either is empty, so commits succeed on hosts with
	// no global git identity configured.
	AuthorName  string
	AuthorEmail string

	// Timestamp sets both author and committer time to
	// the given unix second when nonzero.
	Timestamp int64

	// AllowEmpty permits a commit with no content
	// change.
	AllowEmpty bool
}

// Commit records a commit on the current branch. Identity
// and timestamps are injected through the environment so
// neither local nor global git configuration is touched.
func (r *Repo) Commit(
	ctx context.Context,
	opts CommitOptions,
) error {
	const errCtx = "committing"

	name := opts.AuthorName
	if name == "" {
		name = DefaultAuthorName
	}

	email := opts.AuthorEmail
	if email == "" {
		email = DefaultAuthorEmail
	}

	env := []string{
		"GIT_AUTHOR_NAME=" + name,
		"GIT_AUTHOR_EMAIL=" + email,
		"GIT_COMMITTER_NAME=" + name,
		"GIT_COMMITTER_EMAIL=" + email,
	}

	if opts.Timestamp != 0 {
		// Git's raw date form: epoch seconds plus zone
		// offset. Author and committer time are set
		// equal.
		when := fmt.Sprintf("%d +0000", opts.Timestamp)
		env = append(
			env,
			"GIT_AUTHOR_DATE="+when,
			"GIT_COMMITTER_DATE="+when,
		)
	}

	args := []string{"commit", "-m", opts.Message}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}

	if _, err := exec.ExEnv(
		ctx, r.Dir, env, "git", args...,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Push publishes branch to the remote. A plain push
// refused as non-fast-forward is reported as an error
// wrapping ErrPushRejected; force bypasses that check and
// overwrites divergent remote history.
func (r *Repo) Push(
	ctx context.Context,
	branch string,
	force bool,
) error {
	const errCtx = "pushing branch"

	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}

	args = append(
		args,
		"--set-upstream", r.RemoteName, branch,
	)

	out, err := exec.Ex(ctx, r.Dir, "git", args...)
	if err == nil {
		return nil
	}

	if !force && isRejection(out) {
		return fmt.Errorf(
			"%s %s: %w", errCtx, branch,
			ErrPushRejected,
		)
	}

	return fmt.Errorf(
		"%s %s: %w", errCtx, branch, err,
	)
}

// TipSHA returns the full hash of the current HEAD commit.
func (r *Repo) TipSHA(
	ctx context.Context,
) (string, error) {
	const errCtx = "resolving tip"

	out, err := exec.Ex(
		ctx, r.Dir, "git", "rev-parse", "HEAD",
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(out), nil
}

// CountCommits returns the number of commits reachable
// from ref.
func (r *Repo) CountCommits(
	ctx context.Context,
	ref string,
) (int, error) {
	const errCtx = "counting commits"

	out, err := exec.Ex(
		ctx, r.Dir, "git",
		"rev-list", "--count", ref,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", errCtx, err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf(
			"%s: parse count: %w", errCtx, err,
		)
	}

	return n, nil
}

// LastCommitMessage returns the most recent commit message
// on the current branch. Returns empty string on error.
func (r *Repo) LastCommitMessage(
	ctx context.Context,
) string {
	msg, err := exec.Ex(
		ctx, r.Dir, "git",
		"log", "-1", "--pretty=%B",
	)
	if err != nil {
		return ""
	}

	return msg
}

// isRejection reports whether push output carries one of
// the non-fast-forward refusal markers.
func isRejection(out string) bool {
	for _, marker := range rejectionMarkers {
		if strings.Contains(out, marker) {
			return true
		}
	}

	return false
}
