package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v68/github"
)

// Config holds the settings needed to create a GitHub
// pull request provider.
type Config struct {
	// Owner is the GitHub user or organisation that
	// owns the repository.
	Owner string
	// Repo is the repository name (without owner).
	Repo string
	// Token is a personal access token or GitHub App
	// token used for authentication.
	Token string
	// Host is an optional GitHub Enterprise hostname
	// (e.g. "git.corp.example.com"). Leave empty for
	// github.com.
	Host string
}

// Provider creates pull requests on GitHub.
//
// Pattern: Strategy -- implements git.Provider.
type Provider struct {
	client *gh.Client
	owner  string
	repo   string
}

// NewProvider validates cfg and returns a Provider
// ready to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.Owner == "" {
		return nil, fmt.Errorf(
			"%s: owner must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf(
			"%s: token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.Token)

	if cfg.Host != "" {
		baseURL := "https://" +
			cfg.Host + "/api/v3/"
		uploadURL := "https://" +
			cfg.Host + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Provider{
		client: client,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
	}, nil
}

// CreatePR creates a pull request from branch "from"
// into branch "to". If a PR already exists for the pair
// (HTTP 422) the error is suppressed.
func (p *Provider) CreatePR(
	ctx context.Context,
	from string,
	to string,
	title string,
	body string,
) error {
	const errCtx = "creating github pull request"

	pr := &gh.NewPullRequest{
		Title: &title,
		Head:  &from,
		Base:  &to,
		Body:  &body,
	}

	created, resp, err := p.client.PullRequests.Create(
		ctx, p.owner, p.repo, pr,
	)
	if err == nil {
		slog.Info(
			"created pull request",
			"url", created.GetHTMLURL(),
		)

		return nil
	}

	// HTTP 422: PR already exists for this
	// head/base pair.
	if resp != nil &&
		resp.StatusCode ==
			http.StatusUnprocessableEntity {
		slog.Info("reusing existing pull request")

		return nil
	}

	warnResponseBody(resp)

	return fmt.Errorf("%s: %w", errCtx, err)
}

// warnResponseBody logs the raw response body for
// debugging.
func warnResponseBody(resp *gh.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn(
			"cannot read response body",
			"error", err,
		)

		return
	}

	slog.Warn("github response", "body", string(rb))
}
