package generator_test

import (
	"context"
	"os"
	oe "os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/commitforge/generator"
	"github.com/byte4ever/commitforge/git"
)

func TestRun_creates_exactly_n_commits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  5,
		Push:   true,
		TmpDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Commits)
	assert.True(
		t, strings.HasPrefix(report.Branch, "bulk-"),
	)
	assert.Equal(t, "main", report.DefaultBranch)
	assert.True(t, report.BranchCreated)
	assert.True(t, report.Pushed)
	assert.False(t, report.Forced)

	// Seed commit plus the five generated ones.
	assert.Equal(t, "6", gitOut(
		t, bare,
		"rev-list", "--count", report.Branch,
	))
	assert.Equal(t, report.TipSHA, gitOut(
		t, bare,
		"rev-parse", "refs/heads/"+report.Branch,
	))
}

func TestRun_content_lines_in_order(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  3,
		Push:   true,
		TmpDir: t.TempDir(),
	})
	require.NoError(t, err)

	content := gitOut(
		t, bare,
		"show", report.Branch+":commits.txt",
	)
	assert.Equal(
		t,
		"Commit #1\nCommit #2\nCommit #3",
		content,
	)

	assert.Equal(t, "commits.txt", report.ContentFile)
	assert.Len(t, report.ContentSHA256, 64)
}

func TestRun_appends_to_existing_file(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(
		t, "main",
		file{"commits.txt", "existing line\n"},
	)

	report, err := generator.Run(ctx, generator.Config{
		Repo:      bare,
		Count:     2,
		ToDefault: true,
		Push:      true,
		TmpDir:    t.TempDir(),
	})
	require.NoError(t, err)

	content := gitOut(
		t, bare, "show", "main:commits.txt",
	)
	assert.Equal(
		t,
		"existing line\nCommit #1\nCommit #2",
		content,
	)
	assert.Equal(t, "main", report.Branch)
	assert.False(t, report.BranchCreated)
}

func TestRun_appends_to_unterminated_file(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(
		t, "main",
		file{"commits.txt", "existing line"},
	)

	_, err := generator.Run(ctx, generator.Config{
		Repo:      bare,
		Count:     2,
		ToDefault: true,
		Push:      true,
		TmpDir:    t.TempDir(),
	})
	require.NoError(t, err)

	// The dangling final line gains its newline instead
	// of swallowing the first appended line.
	content := gitOut(
		t, bare, "show", "main:commits.txt",
	)
	assert.Equal(
		t,
		"existing line\nCommit #1\nCommit #2",
		content,
	)
}

func TestRun_commit_messages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	_, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  2,
		Branch: "load",
		Push:   true,
		TmpDir: t.TempDir(),
	})
	require.NoError(t, err)

	// Most recent first.
	log := gitOut(
		t, bare,
		"log", "load", "--pretty=%s",
	)
	assert.Equal(
		t,
		"commit #2\ncommit #1\nseed",
		log,
	)
}

func TestRun_message_template(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	_, err := generator.Run(ctx, generator.Config{
		Repo:    bare,
		Count:   2,
		Branch:  "load",
		Message: "batch {i}/{n} on {branch}",
		Push:    true,
		TmpDir:  t.TempDir(),
	})
	require.NoError(t, err)

	log := gitOut(
		t, bare, "log", "load", "--pretty=%s",
	)
	assert.Contains(t, log, "batch 1/2 on load")
	assert.Contains(t, log, "batch 2/2 on load")
}

func TestRun_timestamped_monotonic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:        bare,
		Count:       3,
		Timestamped: true,
		StartTime:   1700000000,
		Push:        true,
		TmpDir:      t.TempDir(),
	})
	require.NoError(t, err)

	// Author and committer stamps, most recent first,
	// strictly start+i.
	log := gitOut(
		t, bare,
		"log", report.Branch, "-3", "--pretty=%at %ct",
	)
	assert.Equal(
		t,
		"1700000003 1700000003\n"+
			"1700000002 1700000002\n"+
			"1700000001 1700000001",
		log,
	)
}

func TestRun_allow_empty_never_touches_file(
	t *testing.T,
) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(
		t, "main",
		file{"commits.txt", "existing line\n"},
	)

	report, err := generator.Run(ctx, generator.Config{
		Repo:       bare,
		Count:      4,
		AllowEmpty: true,
		ToDefault:  true,
		Push:       true,
		TmpDir:     t.TempDir(),
	})
	require.NoError(t, err)

	// Five commits on main (seed + 4), file untouched.
	assert.Equal(t, "5", gitOut(
		t, bare, "rev-list", "--count", "main",
	))
	assert.Equal(t, "existing line", gitOut(
		t, bare, "show", "main:commits.txt",
	))

	assert.Empty(t, report.ContentFile)
	assert.Empty(t, report.ContentSHA256)
}

func TestRun_existing_remote_branch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	// Publish a feature branch ahead of the run.
	work := cloneWorkdir(t, bare)
	gitCmd(t, work, "checkout", "-b", "feature")
	gitCmd(
		t, work,
		"commit", "--allow-empty", "-m", "prior work",
	)
	gitCmd(t, work, "push", "origin", "feature")

	report, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  2,
		Branch: "feature",
		Push:   true,
		TmpDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.False(t, report.BranchCreated)
	// seed + prior work + 2 generated.
	assert.Equal(t, "4", gitOut(
		t, bare, "rev-list", "--count", "feature",
	))
}

func TestRun_no_push_leaves_remote_untouched(
	t *testing.T,
) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  3,
		Push:   false,
		TmpDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.False(t, report.Pushed)
	assert.Equal(t, 3, report.Commits)

	// Only the seed branch exists remotely, still at
	// one commit.
	refs := gitOut(
		t, bare,
		"for-each-ref", "--format=%(refname:short)",
		"refs/heads",
	)
	assert.Equal(t, "main", refs)
	assert.Equal(t, "1", gitOut(
		t, bare, "rev-list", "--count", "main",
	))
}

func TestRun_to_default_moves_default_tip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "trunk")

	report, err := generator.Run(ctx, generator.Config{
		Repo:      bare,
		Count:     3,
		ToDefault: true,
		Push:      true,
		TmpDir:    t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, "trunk", report.Branch)
	assert.Equal(t, "trunk", report.DefaultBranch)
	assert.False(t, report.BranchCreated)
	assert.Equal(t, "4", gitOut(
		t, bare, "rev-list", "--count", "trunk",
	))
}

func TestRun_empty_remote_bootstraps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newBareRepo(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  3,
		Branch: "feature",
		Push:   true,
		TmpDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.True(t, report.BranchCreated)

	// Bootstrap commit plus the three generated ones.
	assert.Equal(t, "4", gitOut(
		t, bare, "rev-list", "--count", "feature",
	))

	log := gitOut(
		t, bare, "log", "feature", "--pretty=%s",
	)
	assert.Equal(
		t,
		"commit #3\ncommit #2\ncommit #1\n"+
			"bootstrap commits.txt",
		log,
	)

	content := gitOut(
		t, bare, "show", "feature:commits.txt",
	)
	assert.Equal(
		t,
		"Commit #1\nCommit #2\nCommit #3",
		content,
	)
}

func TestRun_empty_remote_to_default(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newBareRepo(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:      bare,
		Count:     2,
		ToDefault: true,
		Push:      true,
		TmpDir:    t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, "main", report.Branch)
	assert.True(t, report.BranchCreated)
	assert.Equal(t, "3", gitOut(
		t, bare, "rev-list", "--count", "main",
	))
}

func TestRun_empty_remote_allow_empty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newBareRepo(t, "main")

	_, err := generator.Run(ctx, generator.Config{
		Repo:       bare,
		Count:      2,
		ToDefault:  true,
		AllowEmpty: true,
		Push:       true,
		TmpDir:     t.TempDir(),
	})
	require.NoError(t, err)

	// No bootstrap in empty mode: exactly the two
	// generated commits, no content file.
	assert.Equal(t, "2", gitOut(
		t, bare, "rev-list", "--count", "main",
	))

	files := gitOut(
		t, bare,
		"ls-tree", "--name-only", "main",
	)
	assert.Empty(t, files)
}

func TestRun_identity_placeholder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  1,
		Push:   true,
		TmpDir: t.TempDir(),
	})
	require.NoError(t, err)

	got := gitOut(
		t, bare,
		"log", report.Branch, "-1", "--pretty=%an|%ae",
	)
	assert.Equal(
		t,
		git.DefaultAuthorName+"|"+git.DefaultAuthorEmail,
		got,
	)
}

func TestRun_identity_override(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:        bare,
		Count:       1,
		AuthorName:  "Alice",
		AuthorEmail: "alice@example.com",
		Push:        true,
		TmpDir:      t.TempDir(),
	})
	require.NoError(t, err)

	got := gitOut(
		t, bare,
		"log", report.Branch, "-1",
		"--pretty=%an|%ae|%cn|%ce",
	)
	assert.Equal(
		t,
		"Alice|alice@example.com|"+
			"Alice|alice@example.com",
		got,
	)
}

func TestRun_force_push_reported(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	report, err := generator.Run(ctx, generator.Config{
		Repo:      bare,
		Count:     1,
		ForcePush: true,
		Push:      true,
		TmpDir:    t.TempDir(),
	})
	require.NoError(t, err)

	assert.True(t, report.Pushed)
	assert.True(t, report.Forced)
}

func TestRun_push_rejected_on_diverged_branch(
	t *testing.T,
) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")
	before := publishHiddenBranch(t, bare, "feature")

	report, err := generator.Run(ctx, generator.Config{
		Repo:   "file://" + bare,
		Count:  2,
		Branch: "feature",
		Push:   true,
		TmpDir: t.TempDir(),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, git.ErrPushRejected)
	assert.Nil(t, report)

	// The rejected push left the remote tip alone.
	assert.Equal(t, before, gitOut(
		t, bare, "rev-parse", "refs/heads/feature",
	))
}

func TestRun_force_push_overrides_diverged_branch(
	t *testing.T,
) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")
	before := publishHiddenBranch(t, bare, "feature")

	report, err := generator.Run(ctx, generator.Config{
		Repo:      "file://" + bare,
		Count:     2,
		Branch:    "feature",
		Push:      true,
		ForcePush: true,
		TmpDir:    t.TempDir(),
	})
	require.NoError(t, err)

	assert.True(t, report.Pushed)
	assert.True(t, report.Forced)

	after := gitOut(
		t, bare, "rev-parse", "refs/heads/feature",
	)
	assert.NotEqual(t, before, after)
	assert.Equal(t, report.TipSHA, after)

	// Seed plus the two generated commits; the diverged
	// history is overwritten.
	assert.Equal(t, "3", gitOut(
		t, bare, "rev-list", "--count", "feature",
	))
}

func TestRun_open_pr(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")

	var (
		gotFrom  string
		gotTo    string
		gotTitle string
	)

	provider := git.ProviderFunc(
		func(
			_ context.Context,
			from string,
			to string,
			title string,
			_ string,
		) error {
			gotFrom = from
			gotTo = to
			gotTitle = title

			return nil
		},
	)

	report, err := generator.Run(ctx, generator.Config{
		Repo:     bare,
		Count:    1,
		Branch:   "feature",
		Push:     true,
		OpenPR:   true,
		Provider: provider,
		TmpDir:   t.TempDir(),
	})
	require.NoError(t, err)

	assert.True(t, report.PROpened)
	assert.Equal(t, "feature", gotFrom)
	assert.Equal(t, "main", gotTo)
	assert.Equal(
		t, generator.DefaultPRTitle, gotTitle,
	)
}

func TestRun_cleans_working_copy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bare := newSeededBare(t, "main")
	tmp := t.TempDir()

	_, err := generator.Run(ctx, generator.Config{
		Repo:   bare,
		Count:  1,
		Push:   true,
		TmpDir: tmp,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_clone_failure_cleans_up(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tmp := t.TempDir()

	_, err := generator.Run(ctx, generator.Config{
		Repo:   "/nonexistent/repo.git",
		Count:  1,
		TmpDir: tmp,
	})
	require.Error(t, err)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_count_checked_before_clone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// The invalid count must fail before any remote
	// interaction: a broken repo path never surfaces.
	_, err := generator.Run(ctx, generator.Config{
		Repo:  "/nonexistent/repo.git",
		Count: 0,
	})

	require.Error(t, err)
	assert.ErrorContains(t, err, "count must be >= 1")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := generator.Config{
		Repo:  "https://example.com/acme/widgets.git",
		Count: 1,
		Push:  true,
	}

	tests := []struct {
		name    string
		mutate  func(cfg *generator.Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(*generator.Config) {},
			wantErr: "",
		},
		{
			name: "missing repo",
			mutate: func(cfg *generator.Config) {
				cfg.Repo = ""
			},
			wantErr: "repo must be set",
		},
		{
			name: "zero count",
			mutate: func(cfg *generator.Config) {
				cfg.Count = 0
			},
			wantErr: "count must be >= 1",
		},
		{
			name: "negative count",
			mutate: func(cfg *generator.Config) {
				cfg.Count = -4
			},
			wantErr: "count must be >= 1",
		},
		{
			name: "branch with to-default",
			mutate: func(cfg *generator.Config) {
				cfg.Branch = "feature"
				cfg.ToDefault = true
			},
			wantErr: "mutually exclusive",
		},
		{
			name: "force-push without push",
			mutate: func(cfg *generator.Config) {
				cfg.Push = false
				cfg.ForcePush = true
			},
			wantErr: "force-push conflicts",
		},
		{
			name: "bad message template",
			mutate: func(cfg *generator.Config) {
				cfg.Message = "commit #{index}"
			},
			wantErr: "unknown tag",
		},
		{
			name: "open-pr without push",
			mutate: func(cfg *generator.Config) {
				cfg.Push = false
				cfg.OpenPR = true
			},
			wantErr: "open-pr requires pushing",
		},
		{
			name: "open-pr on default branch",
			mutate: func(cfg *generator.Config) {
				cfg.ToDefault = true
				cfg.OpenPR = true
				cfg.Provider = nilProvider()
			},
			wantErr: "distinct from the default",
		},
		{
			name: "open-pr without provider",
			mutate: func(cfg *generator.Config) {
				cfg.OpenPR = true
			},
			wantErr: "requires a provider",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)

			err := generator.ValidateForTest(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestAppendLine(t *testing.T) {
	t.Parallel()

	pa := filepath.Join(t.TempDir(), "commits.txt")

	require.NoError(
		t,
		generator.AppendLineForTest(pa, "Commit #1"),
	)
	require.NoError(
		t,
		generator.AppendLineForTest(pa, "Commit #2"),
	)

	got, err := os.ReadFile(pa) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(
		t, "Commit #1\nCommit #2\n", string(got),
	)
}

func TestAppendLine_keeps_existing_content(t *testing.T) {
	t.Parallel()

	pa := filepath.Join(t.TempDir(), "commits.txt")
	require.NoError(
		t,
		os.WriteFile(pa, []byte("existing\n"), 0o600),
	)

	require.NoError(
		t,
		generator.AppendLineForTest(pa, "Commit #1"),
	)

	got, err := os.ReadFile(pa) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(
		t, "existing\nCommit #1\n", string(got),
	)
}

func TestAppendLine_terminates_dangling_line(
	t *testing.T,
) {
	t.Parallel()

	pa := filepath.Join(t.TempDir(), "commits.txt")
	require.NoError(
		t,
		os.WriteFile(pa, []byte("dangling"), 0o600),
	)

	require.NoError(
		t,
		generator.AppendLineForTest(pa, "Commit #1"),
	)

	got, err := os.ReadFile(pa) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Equal(
		t, "dangling\nCommit #1\n", string(got),
	)
}

func TestShortRunID(t *testing.T) {
	t.Parallel()

	a := generator.ShortRunIDForTest()
	b := generator.ShortRunIDForTest()

	assert.Len(t, a, 8)
	assert.Len(t, b, 8)
	assert.NotEqual(t, a, b)
}

// nilProvider returns a provider that accepts every
// request, for validation-only tests.
func nilProvider() git.Provider {
	return git.ProviderFunc(
		func(
			_ context.Context,
			_ string,
			_ string,
			_ string,
			_ string,
		) error {
			return nil
		},
	)
}

// file describes extra seed content for a bare
// repository.
type file struct {
	name    string
	content string
}

// newBareRepo creates an empty bare repository whose
// HEAD points at branch.
func newBareRepo(tb testing.TB, branch string) string {
	tb.Helper()

	dir := tb.TempDir()
	gitCmd(tb, dir, "init", "--bare", "-b", branch)

	return dir
}

// newSeededBare creates a bare repository holding one
// commit on branch. Extra files join seed.txt in the
// seed commit.
func newSeededBare(
	tb testing.TB,
	branch string,
	files ...file,
) string {
	tb.Helper()

	bare := newBareRepo(tb, branch)

	work := tb.TempDir()
	gitCmd(tb, work, "init", "-b", branch)
	gitCmd(
		tb, work,
		"config", "user.email", "seed@test.com",
	)
	gitCmd(tb, work, "config", "user.name", "Seed")

	files = append(
		files, file{"seed.txt", "seed\n"},
	)

	for _, fi := range files {
		fp := filepath.Join(work, fi.name)
		if err := os.WriteFile(
			fp, []byte(fi.content), 0o600,
		); err != nil {
			tb.Fatalf("write %s: %v", fi.name, err)
		}

		gitCmd(tb, work, "add", fi.name)
	}

	gitCmd(tb, work, "commit", "-m", "seed")
	gitCmd(tb, work, "push", bare, branch)

	return bare
}

// cloneWorkdir clones bare into a configured working
// directory for staging remote state.
func cloneWorkdir(tb testing.TB, bare string) string {
	tb.Helper()

	dir := filepath.Join(tb.TempDir(), "work")
	gitCmd(tb, filepath.Dir(dir), "clone", bare, dir)
	gitCmd(
		tb, dir,
		"config", "user.email", "work@test.com",
	)
	gitCmd(tb, dir, "config", "user.name", "Work")

	return dir
}

// publishHiddenBranch publishes one extra commit on branch
// and drops it from the bare repository's ref
// advertisement: clones never learn the branch exists, so
// a plain push onto it cannot fast-forward. The hiding
// only works over a real transport; callers clone via
// file:// rather than the bare path. Returns the remote
// tip.
func publishHiddenBranch(
	tb testing.TB,
	bare string,
	branch string,
) string {
	tb.Helper()

	work := cloneWorkdir(tb, bare)
	gitCmd(tb, work, "checkout", "-b", branch)
	gitCmd(
		tb, work,
		"commit", "--allow-empty", "-m", "prior work",
	)
	gitCmd(tb, work, "push", "origin", branch)

	gitCmd(
		tb, bare,
		"config", "uploadpack.hideRefs",
		"refs/heads/"+branch,
	)

	return gitOut(
		tb, bare, "rev-parse", "refs/heads/"+branch,
	)
}

// gitCmd runs a git command in the given directory.
func gitCmd(
	tb testing.TB,
	dir string,
	args ...string,
) {
	tb.Helper()

	//nolint:gosec // test helper
	cmd := oe.CommandContext(
		context.Background(), "git", args...,
	)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf(
			"git %v failed: %s: %v",
			args, string(out), err,
		)
	}
}

// gitOut runs a git command and returns its trimmed
// output.
func gitOut(
	tb testing.TB,
	dir string,
	args ...string,
) string {
	tb.Helper()

	//nolint:gosec // test helper
	cmd := oe.CommandContext(
		context.Background(), "git", args...,
	)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf(
			"git %v failed: %s: %v",
			args, string(out), err,
		)
	}

	return strings.TrimSpace(string(out))
}
