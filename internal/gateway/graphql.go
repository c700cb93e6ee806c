package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

// GraphQLGateway implements Fetcher with the GraphQL API. Listing counts come
// from connection totalCount fields, so no client-side pagination is needed
// and issue connections never include pull requests.
type GraphQLGateway struct {
	graphqlClient *githubv4.Client
	pacer         *pacer
	logger        zerolog.Logger
}

// repositoryQuery fetches the metadata used for a snapshot row.
type repositoryQuery struct {
	Repository struct {
		StargazerCount int
		ForkCount      int
		PrimaryLanguage struct {
			Name string
		}
		DiskUsage int
		CreatedAt githubv4.DateTime
		UpdatedAt githubv4.DateTime
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type pullRequestCountQuery struct {
	Repository struct {
		PullRequests struct {
			TotalCount int
		} `graphql:"pullRequests(states: $states)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

type issueCountQuery struct {
	Repository struct {
		Issues struct {
			TotalCount int
		} `graphql:"issues(states: $states)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGraphQLGateway creates a GraphQL gateway pointed at opts.GraphQLURL.
func NewGraphQLGateway(opts Options, logger zerolog.Logger) (*GraphQLGateway, error) {
	if opts.GraphQLURL == "" {
		return nil, fmt.Errorf("graphql URL is required")
	}
	httpClient, err := newHTTPClient(opts, logger)
	if err != nil {
		return nil, err
	}
	return &GraphQLGateway{
		graphqlClient: githubv4.NewEnterpriseClient(opts.GraphQLURL, httpClient),
		pacer:         newPacer(opts, logger),
		logger:        logger,
	}, nil
}

func repoVariables(repo string) (map[string]interface{}, error) {
	owner, name, ok := domain.SplitIdentifier(repo)
	if !ok {
		return nil, fmt.Errorf("invalid repository identifier %q", repo)
	}
	return map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}, nil
}

func (g *GraphQLGateway) query(ctx context.Context, label string, q interface{}, variables map[string]interface{}) error {
	return g.pacer.do(ctx, label, func(ctx context.Context) error {
		return g.graphqlClient.Query(ctx, q, variables)
	})
}

// FetchRepository fetches the repository metadata.
func (g *GraphQLGateway) FetchRepository(ctx context.Context, repo string) (*domain.RepositoryMetadata, error) {
	variables, err := repoVariables(repo)
	if err != nil {
		return nil, err
	}
	var q repositoryQuery
	if err := g.query(ctx, "repository "+repo, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for repository %s: %w", repo, err)
	}
	r := q.Repository
	// REST watchers_count mirrors the stargazer count, so Watchers does too.
	return &domain.RepositoryMetadata{
		Stars:     r.StargazerCount,
		Forks:     r.ForkCount,
		Watchers:  r.StargazerCount,
		Language:  r.PrimaryLanguage.Name,
		SizeKB:    r.DiskUsage,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}, nil
}

// FetchPullRequests counts pull requests in the given state. Merged pull
// requests count as closed, matching the REST listing.
func (g *GraphQLGateway) FetchPullRequests(ctx context.Context, repo, state string) (int, error) {
	variables, err := repoVariables(repo)
	if err != nil {
		return 0, err
	}
	switch state {
	case StateOpen:
		variables["states"] = []githubv4.PullRequestState{githubv4.PullRequestStateOpen}
	case StateClosed:
		variables["states"] = []githubv4.PullRequestState{githubv4.PullRequestStateClosed, githubv4.PullRequestStateMerged}
	default:
		return 0, fmt.Errorf("unsupported pull request state %q", state)
	}
	var q pullRequestCountQuery
	if err := g.query(ctx, fmt.Sprintf("pullRequests %s %s", repo, state), &q, variables); err != nil {
		return 0, fmt.Errorf("failed to execute GraphQL query for pull requests: %w", err)
	}
	return q.Repository.PullRequests.TotalCount, nil
}

// FetchIssues counts issues in the given state.
func (g *GraphQLGateway) FetchIssues(ctx context.Context, repo, state string) (int, error) {
	variables, err := repoVariables(repo)
	if err != nil {
		return 0, err
	}
	switch state {
	case StateOpen:
		variables["states"] = []githubv4.IssueState{githubv4.IssueStateOpen}
	case StateClosed:
		variables["states"] = []githubv4.IssueState{githubv4.IssueStateClosed}
	default:
		return 0, fmt.Errorf("unsupported issue state %q", state)
	}
	var q issueCountQuery
	if err := g.query(ctx, fmt.Sprintf("issues %s %s", repo, state), &q, variables); err != nil {
		return 0, fmt.Errorf("failed to execute GraphQL query for issues: %w", err)
	}
	return q.Repository.Issues.TotalCount, nil
}
