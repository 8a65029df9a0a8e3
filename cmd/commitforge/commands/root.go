// Package commands builds the commitforge command tree
// and maps run failures onto process exit codes.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/byte4ever/commitforge/cmd/commitforge/internal/clierr"
	"github.com/byte4ever/commitforge/commitmsg"
	"github.com/byte4ever/commitforge/config"
	"github.com/byte4ever/commitforge/exec"
	"github.com/byte4ever/commitforge/generator"
	"github.com/byte4ever/commitforge/git"
	"github.com/byte4ever/commitforge/git/bitbucket"
	"github.com/byte4ever/commitforge/git/github"
	"github.com/byte4ever/commitforge/git/gitlab"
)

// version is stamped at build time via -ldflags.
var version = "0.0.0-dev"

// exitPushRejected is the process exit code for a plain
// push refused as non-fast-forward: distinguishable from
// configuration errors (1) and from git's own codes.
const exitPushRejected = 3

// rootOptions is the flag surface of the root command.
type rootOptions struct {
	repo        string
	count       int
	branch      string
	toDefault   bool
	noPush      bool
	forcePush   bool
	authorName  string
	authorEmail string
	timestamped bool
	startTime   int64
	allowEmpty  bool
	file        string
	message     string
	tmpDir      string
	mirror      string
	jsonOut     bool
	configPath  string

	openPR  bool
	prTitle string
	prBody  string
	server  string

	githubOwner string
	githubRepo  string
	githubToken string
	githubHost  string

	gitlabHost    string
	gitlabProject string
	gitlabToken   string

	bitbucketURL      string
	bitbucketProject  string
	bitbucketSlug     string
	bitbucketUser     string
	bitbucketPassword string
}

// NewRootCmd constructs the commitforge root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "commitforge",
		Short: "Bulk commit generator",
		Long: "commitforge clones a repository, creates " +
			"N sequential commits on a chosen branch, " +
			"and pushes the result. Useful for seeding " +
			"load tests, exercising CI triggers, and " +
			"generating reproducible history.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd, opts)
		},
	}

	fl := cmd.Flags()

	fl.StringVar(
		&opts.repo, "repo", "",
		"remote repository URL or local path (required)",
	)
	fl.IntVar(
		&opts.count, "count", 100,
		"number of commits to create",
	)
	fl.StringVar(
		&opts.branch, "branch", "",
		"target branch (default bulk-<unix-ts>)",
	)
	fl.BoolVar(
		&opts.toDefault, "to-default", false,
		"commit directly on the remote default branch",
	)
	fl.BoolVar(
		&opts.noPush, "no-push", false,
		"skip pushing the generated commits",
	)
	fl.BoolVar(
		&opts.forcePush, "force-push", false,
		"push with --force, overwriting divergent "+
			"remote history (unsafe)",
	)
	fl.StringVar(
		&opts.authorName, "author-name", "",
		"commit author name (default "+
			git.DefaultAuthorName+")",
	)
	fl.StringVar(
		&opts.authorEmail, "author-email", "",
		"commit author email (default "+
			git.DefaultAuthorEmail+")",
	)
	fl.BoolVar(
		&opts.timestamped, "timestamped", false,
		"stamp commit i with start+i seconds",
	)
	fl.Int64Var(
		&opts.startTime, "start-time", 0,
		"unix base for --timestamped (default now)",
	)
	fl.BoolVar(
		&opts.allowEmpty, "allow-empty", false,
		"create empty commits instead of content "+
			"changes",
	)
	fl.StringVar(
		&opts.file, "file",
		generator.DefaultContentFile,
		"content file receiving one line per commit",
	)
	fl.StringVar(
		&opts.message, "message", commitmsg.Default,
		"commit message template; tags {i}, {n}, "+
			"{branch}, {file}",
	)
	fl.StringVar(
		&opts.tmpDir, "tmp-dir", "",
		"parent directory for the transient clone "+
			"(default system temp)",
	)
	fl.StringVar(
		&opts.mirror, "mirror", "",
		"local mirror passed to git clone --reference",
	)
	fl.BoolVar(
		&opts.jsonOut, "json", false,
		"print the run report as JSON on stdout",
	)
	fl.StringVar(
		&opts.configPath, "config", "",
		"YAML config file with flag defaults",
	)

	fl.BoolVar(
		&opts.openPR, "open-pr", false,
		"open a pull request for the pushed branch",
	)
	fl.StringVar(
		&opts.prTitle, "pr-title",
		generator.DefaultPRTitle,
		"pull request title",
	)
	fl.StringVar(
		&opts.prBody, "pr-body", "",
		"pull request body (default: title)",
	)
	fl.StringVar(
		&opts.server, "server", "github",
		"hosting platform: github, gitlab or bitbucket",
	)

	fl.StringVar(
		&opts.githubOwner, "github-owner", "",
		"GitHub repository owner (default from --repo)",
	)
	fl.StringVar(
		&opts.githubRepo, "github-repo", "",
		"GitHub repository name (default from --repo)",
	)
	fl.StringVar(
		&opts.githubToken, "github-token", "",
		"GitHub access token",
	)
	fl.StringVar(
		&opts.githubHost, "github-enterprise-host", "",
		"GitHub Enterprise hostname",
	)

	fl.StringVar(
		&opts.gitlabHost, "gitlab-host", "",
		"GitLab base URL (default https://gitlab.com)",
	)
	fl.StringVar(
		&opts.gitlabProject, "gitlab-project", "",
		"GitLab project path (default from --repo)",
	)
	fl.StringVar(
		&opts.gitlabToken, "gitlab-token", "",
		"GitLab access token",
	)

	fl.StringVar(
		&opts.bitbucketURL, "bitbucket-url", "",
		"Bitbucket Server root URL",
	)
	fl.StringVar(
		&opts.bitbucketProject, "bitbucket-project", "",
		"Bitbucket project key",
	)
	fl.StringVar(
		&opts.bitbucketSlug, "bitbucket-slug", "",
		"Bitbucket repository slug (default from "+
			"--repo)",
	)
	fl.StringVar(
		&opts.bitbucketUser, "bitbucket-user", "",
		"Bitbucket API username",
	)
	fl.StringVar(
		&opts.bitbucketPassword, "bitbucket-password",
		"", "Bitbucket API password or token",
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the commitforge version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(
				cmd.OutOrStdout(),
				"commitforge version %s\n",
				version,
			)
		},
	})

	return cmd
}

// runRoot merges the config file, checks the
// environment, assembles the generator config and runs
// it.
func runRoot(
	cmd *cobra.Command,
	opts *rootOptions,
) error {
	const errCtx = "running commitforge"

	if err := applyConfigFile(cmd, opts); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// The whole run shells out to git; fail before any
	// remote interaction when it is missing.
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg := generator.Config{
		Repo:        opts.repo,
		Count:       opts.count,
		Branch:      opts.branch,
		ToDefault:   opts.toDefault,
		Push:        !opts.noPush,
		ForcePush:   opts.forcePush,
		AuthorName:  opts.authorName,
		AuthorEmail: opts.authorEmail,
		Timestamped: opts.timestamped,
		StartTime:   opts.startTime,
		AllowEmpty:  opts.allowEmpty,
		ContentFile: opts.file,
		Message:     opts.message,
		TmpDir:      opts.tmpDir,
		Mirror:      opts.mirror,
		OpenPR:      opts.openPR,
		PRTitle:     opts.prTitle,
		PRBody:      opts.prBody,
	}

	if opts.openPR {
		provider, err := buildProvider(opts)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		cfg.Provider = provider
	}

	report, err := generator.Run(cmd.Context(), cfg)
	if err != nil {
		return asExitError(err)
	}

	if opts.jsonOut {
		out, jsonErr := report.JSON()
		if jsonErr != nil {
			return fmt.Errorf(
				"%s: %w", errCtx, jsonErr,
			)
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), out)
	}

	return nil
}

// applyConfigFile overlays file values onto flags the
// user did not set explicitly: flag > file > default.
func applyConfigFile(
	cmd *cobra.Command,
	opts *rootOptions,
) error {
	if opts.configPath == "" {
		return nil
	}

	fi, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	fl := cmd.Flags()

	setStr := func(name string, dst *string, v string) {
		if !fl.Changed(name) && v != "" {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if !fl.Changed(name) && v {
			*dst = true
		}
	}

	setStr("repo", &opts.repo, fi.Repo)
	setStr("branch", &opts.branch, fi.Branch)
	setStr("author-name", &opts.authorName, fi.AuthorName)
	setStr(
		"author-email", &opts.authorEmail,
		fi.AuthorEmail,
	)
	setStr("file", &opts.file, fi.ContentFile)
	setStr("message", &opts.message, fi.Message)
	setStr("tmp-dir", &opts.tmpDir, fi.TmpDir)
	setStr("mirror", &opts.mirror, fi.Mirror)
	setStr("pr-title", &opts.prTitle, fi.PRTitle)
	setStr("pr-body", &opts.prBody, fi.PRBody)
	setStr("server", &opts.server, fi.Server)

	setBool("to-default", &opts.toDefault, fi.ToDefault)
	setBool("no-push", &opts.noPush, fi.NoPush)
	setBool("force-push", &opts.forcePush, fi.ForcePush)
	setBool(
		"timestamped", &opts.timestamped,
		fi.Timestamped,
	)
	setBool("allow-empty", &opts.allowEmpty, fi.AllowEmpty)
	setBool("json", &opts.jsonOut, fi.JSON)
	setBool("open-pr", &opts.openPR, fi.OpenPR)

	if !fl.Changed("count") && fi.Count != 0 {
		opts.count = fi.Count
	}

	if !fl.Changed("start-time") && fi.StartTime != 0 {
		opts.startTime = fi.StartTime
	}

	setStr(
		"github-owner", &opts.githubOwner,
		fi.GitHub.Owner,
	)
	setStr(
		"github-repo", &opts.githubRepo, fi.GitHub.Repo,
	)
	setStr(
		"github-token", &opts.githubToken,
		fi.GitHub.Token,
	)
	setStr(
		"github-enterprise-host", &opts.githubHost,
		fi.GitHub.Host,
	)

	setStr(
		"gitlab-host", &opts.gitlabHost, fi.GitLab.Host,
	)
	setStr(
		"gitlab-project", &opts.gitlabProject,
		fi.GitLab.Project,
	)
	setStr(
		"gitlab-token", &opts.gitlabToken,
		fi.GitLab.Token,
	)

	setStr(
		"bitbucket-url", &opts.bitbucketURL,
		fi.Bitbucket.URL,
	)
	setStr(
		"bitbucket-project", &opts.bitbucketProject,
		fi.Bitbucket.Project,
	)
	setStr(
		"bitbucket-slug", &opts.bitbucketSlug,
		fi.Bitbucket.Slug,
	)
	setStr(
		"bitbucket-user", &opts.bitbucketUser,
		fi.Bitbucket.User,
	)
	setStr(
		"bitbucket-password", &opts.bitbucketPassword,
		fi.Bitbucket.Password,
	)

	return nil
}

// buildProvider assembles the PR provider for the
// configured hosting platform, deriving repository
// coordinates from the --repo URL where flags left them
// unset.
func buildProvider(
	opts *rootOptions,
) (git.Provider, error) {
	const errCtx = "building provider"

	remote, remoteErr := git.ParseRemote(opts.repo)

	switch opts.server {
	case "github":
		owner := opts.githubOwner
		repoName := opts.githubRepo

		if (owner == "" || repoName == "") &&
			remoteErr == nil {
			if owner == "" {
				owner = remote.Owner
			}

			if repoName == "" {
				repoName = remote.Name
			}
		}

		return github.NewProvider(github.Config{
			Owner: owner,
			Repo:  repoName,
			Token: opts.githubToken,
			Host:  opts.githubHost,
		})

	case "gitlab":
		project := opts.gitlabProject
		if project == "" && remoteErr == nil {
			project = remote.Owner + "/" + remote.Name
		}

		return gitlab.NewProvider(gitlab.Config{
			Host:    opts.gitlabHost,
			Project: project,
			Token:   opts.gitlabToken,
		})

	case "bitbucket":
		slug := opts.bitbucketSlug
		if slug == "" && remoteErr == nil {
			slug = remote.Name
		}

		return bitbucket.NewProvider(bitbucket.Config{
			BaseURL:    opts.bitbucketURL,
			ProjectKey: opts.bitbucketProject,
			RepoSlug:   slug,
			User:       opts.bitbucketUser,
			Password:   opts.bitbucketPassword,
		})

	default:
		return nil, fmt.Errorf(
			"%s: unknown server %q (want github, "+
				"gitlab or bitbucket)",
			errCtx, opts.server,
		)
	}
}

// asExitError maps run failures onto process exit codes:
// push rejections get their dedicated code, git
// subprocess failures keep git's own code, everything
// else stays a configuration-class error.
func asExitError(err error) error {
	if errors.Is(err, git.ErrPushRejected) {
		return clierr.Wrap(
			exitPushRejected, "push rejected", err,
		)
	}

	if code := exec.ExitCode(err); code > 0 {
		return clierr.Wrap(
			code, "git command failed", err,
		)
	}

	return err
}
