package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/byte4ever/commitforge/commitmsg"
	"github.com/byte4ever/commitforge/digest"
	"github.com/byte4ever/commitforge/git"
)

// Config holds all settings for a bulk commit run. Use
// a Config struct instead of many arguments.
type Config struct {
	// Repo is the remote repository URL or a local
	// path.
	Repo string

	// Count is the number of commits to create.
	Count int

	// Branch is the target branch name. Empty derives
	// a timestamped bulk-<unix> name. Mutually
	// exclusive with ToDefault.
	Branch string

	// ToDefault commits directly on the remote's
	// default branch.
	ToDefault bool

	// Push publishes the branch after the loop.
	Push bool

	// ForcePush overwrites divergent remote history
	// instead of failing the fast-forward check.
	ForcePush bool

	// AuthorName and AuthorEmail override the commit
	// identity. Empty fields fall back to the
	// placeholder identity.
	AuthorName  string
	AuthorEmail string

	// Timestamped stamps commit i with StartTime+i
	// seconds, author and committer alike.
	Timestamped bool

	// StartTime is the unix base for timestamps.
	// Zero means the run start time.
	StartTime int64

	// AllowEmpty switches to the empty-commit
	// strategy: no file is touched.
	AllowEmpty bool

	// ContentFile is the file receiving one line per
	// commit in content mode.
	ContentFile string

	// Message is the commit message template.
	Message string

	// TmpDir is the parent directory for the
	// transient clone.
	TmpDir string

	// Mirror is an optional local reference clone
	// speeding up the fetch.
	Mirror string

	// OpenPR opens a pull request for the pushed
	// branch.
	OpenPR bool

	// PRTitle is the title for the created pull
	// request.
	PRTitle string

	// PRBody is the body for the created pull
	// request.
	PRBody string

	// Provider creates pull requests on a git hosting
	// platform. Required when OpenPR is set.
	Provider git.Provider
}

// DefaultContentFile is the content file used when none
// is configured.
const DefaultContentFile = "commits.txt"

// DefaultPRTitle labels pull requests when no title is
// configured.
const DefaultPRTitle = "bulk commits"

// withDefaults returns a copy of cfg with unset optional
// fields filled in.
func (cfg Config) withDefaults() Config {
	if cfg.ContentFile == "" {
		cfg.ContentFile = DefaultContentFile
	}

	if cfg.Message == "" {
		cfg.Message = commitmsg.Default
	}

	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}

	if cfg.PRTitle == "" {
		cfg.PRTitle = DefaultPRTitle
	}

	return cfg
}

// validate rejects inconsistent configurations before
// any remote interaction happens.
func (cfg Config) validate() error {
	const errCtx = "validating config"

	if cfg.Repo == "" {
		return fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	if cfg.Count < 1 {
		return fmt.Errorf(
			"%s: count must be >= 1, got %d",
			errCtx, cfg.Count,
		)
	}

	if cfg.Branch != "" && cfg.ToDefault {
		return fmt.Errorf(
			"%s: branch and to-default are mutually "+
				"exclusive", errCtx,
		)
	}

	if cfg.ForcePush && !cfg.Push {
		return fmt.Errorf(
			"%s: force-push conflicts with no-push",
			errCtx,
		)
	}

	if err := commitmsg.Validate(cfg.Message); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if cfg.OpenPR {
		if !cfg.Push {
			return fmt.Errorf(
				"%s: open-pr requires pushing", errCtx,
			)
		}

		if cfg.ToDefault {
			return fmt.Errorf(
				"%s: open-pr needs a branch distinct "+
					"from the default branch", errCtx,
			)
		}

		if cfg.Provider == nil {
			return fmt.Errorf(
				"%s: open-pr requires a provider",
				errCtx,
			)
		}
	}

	return nil
}

// Run executes a full bulk commit workflow: clone,
// branch selection, N sequential commits, optional
// push, optional PR. The working copy is removed on
// every exit path.
func Run(
	ctx context.Context,
	cfg Config,
) (*Report, error) {
	const errCtx = "running bulk commit generation"

	cfg = cfg.withDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	started := time.Now()
	runID := shortRunID()

	// Step 1: Clone into an exclusively owned
	// directory.
	cloneDir := filepath.Join(
		cfg.TmpDir, "commitforge-"+runID,
	)

	repo, err := git.Clone(
		ctx, cfg.Repo, cloneDir, cfg.Mirror,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: clone repo: %w", errCtx, err,
		)
	}

	defer func() {
		if cleanErr := repo.Clean(); cleanErr != nil {
			slog.Error(
				"failed to clean repo",
				"error", cleanErr,
			)
		}
	}()

	// Step 2: Resolve the remote default branch.
	defBranch := repo.DefaultBranch(ctx)

	slog.Info(
		"resolved default branch",
		"branch", defBranch,
	)

	// Step 3: Select the target branch. The choice is
	// final: later steps never move the branch again.
	branch, created, err := selectBranch(
		ctx, repo, cfg, defBranch,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	start := cfg.StartTime
	if start == 0 {
		start = started.Unix()
	}

	// Step 4: Bootstrap a history-less branch in
	// content mode so the append loop has a base.
	if !cfg.AllowEmpty && !repo.HasCommits(ctx) {
		if err := bootstrap(
			ctx, repo, cfg, start,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}
	}

	// Step 5: The commit loop, strictly sequential.
	for i := 1; i <= cfg.Count; i++ {
		if err := makeCommit(
			ctx, repo, cfg, branch, i, start,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: commit %d of %d: %w",
				errCtx, i, cfg.Count, err,
			)
		}
	}

	tip, err := repo.TipSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 6: Publish.
	pushed := false

	if cfg.Push {
		if err := repo.Push(
			ctx, branch, cfg.ForcePush,
		); err != nil {
			if errors.Is(err, git.ErrPushRejected) {
				slog.Error(
					"push rejected: the remote branch "+
						"holds commits this run does not "+
						"include",
					"branch", branch,
					"hint", "re-run with --force-push "+
						"to overwrite, or reconcile the "+
						"branch manually",
				)
			}

			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		pushed = true
	} else {
		slog.Info("push skipped", "branch", branch)
	}

	// Step 7: Open the pull request.
	prOpened := false

	if pushed && cfg.OpenPR {
		if err := cfg.Provider.CreatePR(
			ctx,
			branch,
			defBranch,
			cfg.PRTitle,
			cfg.PRBody,
		); err != nil {
			return nil, fmt.Errorf(
				"%s: create PR for %s: %w",
				errCtx, branch, err,
			)
		}

		prOpened = true
	}

	// Step 8: Assemble the report.
	report := &Report{
		RunID:         runID,
		Repo:          cfg.Repo,
		Branch:        branch,
		DefaultBranch: defBranch,
		BranchCreated: created,
		Commits:       cfg.Count,
		TipSHA:        tip,
		Pushed:        pushed,
		Forced:        pushed && cfg.ForcePush,
		PROpened:      prOpened,
		StartedAt:     started.UTC(),
		DurationMS: time.Since(started).
			Milliseconds(),
	}

	if !cfg.AllowEmpty {
		report.ContentFile = cfg.ContentFile

		sha, err := digest.FileSHA256(
			filepath.Join(repo.Dir, cfg.ContentFile),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		report.ContentSHA256 = sha
	}

	slog.Info(
		"run complete",
		"run_id", runID,
		"branch", branch,
		"commits", cfg.Count,
		"tip", tip,
		"pushed", pushed,
	)

	return report, nil
}

// selectBranch decides the target branch and switches
// the working copy onto it. Returns the branch name and
// whether it was newly created.
func selectBranch(
	ctx context.Context,
	repo *git.Repo,
	cfg Config,
	defBranch string,
) (string, bool, error) {
	const errCtx = "selecting branch"

	branch := cfg.Branch

	switch {
	case cfg.ToDefault:
		branch = defBranch
	case branch == "":
		branch = fmt.Sprintf(
			"bulk-%d", time.Now().Unix(),
		)
	}

	current, err := repo.CurrentBranch(ctx)
	if err != nil {
		return "", false, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	if current == branch {
		// Already there: a fresh clone sitting on the
		// default branch, or an empty repository whose
		// unborn HEAD carries the right name. The
		// branch ref only springs into existence with
		// the first commit.
		return branch, !repo.HasCommits(ctx), nil
	}

	created, err := repo.SwitchToBranch(
		ctx, branch, defBranch,
	)
	if err != nil {
		return "", false, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return branch, created, nil
}

// bootstrap creates the content file and commits it so
// the append loop has a history to build on. The
// bootstrap commit does not count toward Count.
func bootstrap(
	ctx context.Context,
	repo *git.Repo,
	cfg Config,
	start int64,
) error {
	const errCtx = "bootstrapping branch"

	fp := filepath.Join(repo.Dir, cfg.ContentFile)

	//nolint:gosec // path inside the transient clone
	if err := os.WriteFile(fp, nil, 0o644); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := repo.Add(
		ctx, cfg.ContentFile,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	var ts int64
	if cfg.Timestamped {
		ts = start
	}

	if err := repo.Commit(ctx, git.CommitOptions{
		Message:     "bootstrap " + cfg.ContentFile,
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
		Timestamp:   ts,
	}); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// makeCommit creates commit i: content mode appends the
// sequence line and stages it, both modes commit with
// the expanded message.
func makeCommit(
	ctx context.Context,
	repo *git.Repo,
	cfg Config,
	branch string,
	i int,
	start int64,
) error {
	if !cfg.AllowEmpty {
		if err := appendLine(
			filepath.Join(repo.Dir, cfg.ContentFile),
			fmt.Sprintf("Commit #%d", i),
		); err != nil {
			return err
		}

		if err := repo.Add(
			ctx, cfg.ContentFile,
		); err != nil {
			return err
		}
	}

	msg := commitmsg.Build(cfg.Message, commitmsg.Vars{
		Index:  i,
		Total:  cfg.Count,
		Branch: branch,
		File:   cfg.ContentFile,
	})

	var ts int64
	if cfg.Timestamped {
		ts = start + int64(i)
	}

	return repo.Commit(ctx, git.CommitOptions{
		Message:     msg,
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
		Timestamp:   ts,
		AllowEmpty:  cfg.AllowEmpty,
	})
}

// appendLine appends line plus newline to the file at
// path, creating the file when missing. A preexisting
// final line missing its newline is terminated first, so
// the appended line never merges with it.
func appendLine(path string, line string) error {
	const errCtx = "appending content line"

	//nolint:gosec // path inside the transient clone
	fi, err := os.OpenFile(
		path,
		os.O_APPEND|os.O_CREATE|os.O_RDWR,
		0o644,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	terminated, err := endsWithNewline(fi)
	if err != nil {
		_ = fi.Close() //nolint:errcheck // read error wins

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	payload := line + "\n"
	if !terminated {
		payload = "\n" + payload
	}

	if _, err := fi.WriteString(payload); err != nil {
		_ = fi.Close() //nolint:errcheck // write error wins

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := fi.Close(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// endsWithNewline reports whether the file is empty or its
// last byte is a newline. O_APPEND only affects writes, so
// the positioned read is safe on an append handle.
func endsWithNewline(fi *os.File) (bool, error) {
	st, err := fi.Stat()
	if err != nil {
		return false, err
	}

	if st.Size() == 0 {
		return true, nil
	}

	var b [1]byte
	if _, err := fi.ReadAt(b[:], st.Size()-1); err != nil {
		return false, err
	}

	return b[0] == '\n', nil
}

// shortRunID returns the first uuid block, unique
// enough to give each run an exclusively owned workdir.
func shortRunID() string {
	return uuid.NewString()[:8]
}
