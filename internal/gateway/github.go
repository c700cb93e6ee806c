// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

const (
	// pageSize is the listing page size; a shorter page ends pagination.
	pageSize  = 100
	userAgent = "IT-Dashboard-Generator/1.0"
)

// Listing states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Fetcher defines the behavior of a gateway for fetching repository counters from GitHub.
// Listing methods return the count collected so far even when they also return an error.
type Fetcher interface {
	FetchRepository(ctx context.Context, repo string) (*domain.RepositoryMetadata, error)
	FetchPullRequests(ctx context.Context, repo, state string) (int, error)
	FetchIssues(ctx context.Context, repo, state string) (int, error)
}

// Options holds the connection settings shared by both gateways.
type Options struct {
	BaseURL       string
	GraphQLURL    string
	Token         string
	Timeout       time.Duration
	Delay         time.Duration
	RateLimitWait time.Duration
	MaxAttempts   int
}

// GitHubGateway is the REST implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient *github.Client
	pacer      *pacer
	logger     zerolog.Logger
}

// waiterSleepLimit bounds the in-transport secondary rate limit sleep so it
// always fits inside the request timeout. Longer waits surface as rate-limit
// errors and are retried by the pacer.
func waiterSleepLimit(opts Options) time.Duration {
	limit := opts.RateLimitWait
	if opts.Timeout > 0 && limit > opts.Timeout/2 {
		limit = opts.Timeout / 2
	}
	if limit < 0 {
		limit = 0
	}
	return limit
}

// newHTTPClient builds the single HTTP client shared by every request of a run.
func newHTTPClient(opts Options, logger zerolog.Logger) (*http.Client, error) {
	deferToPacer := func(cbCtx *github_ratelimit.CallbackContext) {
		event := logger.Debug()
		if cbCtx.SleepUntil != nil {
			event = event.Time("retry_after", *cbCtx.SleepUntil)
		}
		event.Msg("secondary rate limit exceeds in-transport sleep limit")
	}
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(waiterSleepLimit(opts), deferToPacer))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	var transport http.RoundTripper = rateLimitWaiter
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
		}
	}
	return &http.Client{Transport: transport, Timeout: opts.Timeout}, nil
}

// NewGitHubGateway creates a REST gateway pointed at opts.BaseURL.
func NewGitHubGateway(opts Options, logger zerolog.Logger) (*GitHubGateway, error) {
	httpClient, err := newHTTPClient(opts, logger)
	if err != nil {
		return nil, err
	}
	restClient := github.NewClient(httpClient)
	restClient.UserAgent = userAgent
	if opts.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL %q: %w", opts.BaseURL, err)
		}
		restClient.BaseURL = baseURL
	}
	return &GitHubGateway{
		restClient: restClient,
		pacer:      newPacer(opts, logger),
		logger:     logger,
	}, nil
}

// FetchRepository fetches the repository metadata. Missing numeric fields are zero.
func (g *GitHubGateway) FetchRepository(ctx context.Context, repo string) (*domain.RepositoryMetadata, error) {
	owner, name, ok := domain.SplitIdentifier(repo)
	if !ok {
		return nil, fmt.Errorf("invalid repository identifier %q", repo)
	}
	var r *github.Repository
	err := g.pacer.do(ctx, "repos/"+repo, func(ctx context.Context) error {
		var err error
		r, _, err = g.restClient.Repositories.Get(ctx, owner, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s: %w", repo, err)
	}
	return &domain.RepositoryMetadata{
		Stars:     r.GetStargazersCount(),
		Forks:     r.GetForksCount(),
		Watchers:  r.GetWatchersCount(),
		Language:  r.GetLanguage(),
		SizeKB:    r.GetSize(),
		CreatedAt: r.GetCreatedAt().Time,
		UpdatedAt: r.GetUpdatedAt().Time,
	}, nil
}

// FetchPullRequests counts pull requests in the given state.
func (g *GitHubGateway) FetchPullRequests(ctx context.Context, repo, state string) (int, error) {
	owner, name, ok := domain.SplitIdentifier(repo)
	if !ok {
		return 0, fmt.Errorf("invalid repository identifier %q", repo)
	}
	opts := &github.PullRequestListOptions{State: state, ListOptions: github.ListOptions{PerPage: pageSize}}
	return g.paginate(ctx, fmt.Sprintf("repos/%s/pulls?state=%s", repo, state), func(ctx context.Context, page int) (int, int, error) {
		opts.Page = page
		prs, _, err := g.restClient.PullRequests.List(ctx, owner, name, opts)
		return len(prs), len(prs), err
	})
}

// FetchIssues counts issues in the given state. The issues endpoint also lists
// pull requests; those entries are not counted.
func (g *GitHubGateway) FetchIssues(ctx context.Context, repo, state string) (int, error) {
	owner, name, ok := domain.SplitIdentifier(repo)
	if !ok {
		return 0, fmt.Errorf("invalid repository identifier %q", repo)
	}
	opts := &github.IssueListByRepoOptions{State: state, ListOptions: github.ListOptions{PerPage: pageSize}}
	return g.paginate(ctx, fmt.Sprintf("repos/%s/issues?state=%s", repo, state), func(ctx context.Context, page int) (int, int, error) {
		opts.Page = page
		issues, _, err := g.restClient.Issues.ListByRepo(ctx, owner, name, opts)
		return len(issues), countIssues(issues), err
	})
}

func countIssues(issues []*github.Issue) int {
	n := 0
	for _, issue := range issues {
		if !issue.IsPullRequest() {
			n++
		}
	}
	return n
}

// paginate requests pages starting at 1 until a page returns fewer than pageSize
// raw items. fetch reports the raw page length and the number of items to count.
// On error the count gathered from earlier pages is returned alongside it.
func (g *GitHubGateway) paginate(ctx context.Context, label string, fetch func(ctx context.Context, page int) (raw, counted int, err error)) (int, error) {
	total := 0
	for page := 1; ; page++ {
		var raw, counted int
		err := g.pacer.do(ctx, label, func(ctx context.Context) error {
			var err error
			raw, counted, err = fetch(ctx, page)
			return err
		})
		if err != nil {
			return total, fmt.Errorf("failed to list %s page %d: %w", label, page, err)
		}
		total += counted
		if raw < pageSize {
			break
		}
		g.logger.Debug().Str("request", label).Int("page", page+1).Msg("fetching next page")
	}
	return total, nil
}
