// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
	"github.com/naka-gawa/repo-dashboard/internal/gateway"
)

// Collector is the use case for collecting repository snapshots.
// It fetches each repository in turn and assembles one row per repository.
type Collector struct {
	fetcher gateway.Fetcher
	logger  zerolog.Logger
	now     func() time.Time
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, logger zerolog.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// Collect fetches every repository sequentially and returns the rows in input order.
// A repository whose metadata cannot be fetched is logged and left out; a failed
// listing contributes whatever was counted before the failure.
func (c *Collector) Collect(ctx context.Context, repos []string) (domain.Table, error) {
	table := make(domain.Table, 0, len(repos))
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := c.logger.With().Str("repo", repo).Logger()
		log.Info().Msg("fetching data")

		meta, err := c.fetcher.FetchRepository(ctx, repo)
		if err != nil {
			log.Error().Err(err).Msg("skipping repository")
			continue
		}

		openPRs := c.count(ctx, log, "open pull requests", func() (int, error) {
			return c.fetcher.FetchPullRequests(ctx, repo, gateway.StateOpen)
		})
		closedPRs := c.count(ctx, log, "closed pull requests", func() (int, error) {
			return c.fetcher.FetchPullRequests(ctx, repo, gateway.StateClosed)
		})
		openIssues := c.count(ctx, log, "open issues", func() (int, error) {
			return c.fetcher.FetchIssues(ctx, repo, gateway.StateOpen)
		})
		closedIssues := c.count(ctx, log, "closed issues", func() (int, error) {
			return c.fetcher.FetchIssues(ctx, repo, gateway.StateClosed)
		})
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		table = append(table, domain.NewSnapshot(repo, *meta, openPRs, closedPRs, openIssues, closedIssues, c.now()))
		log.Info().Int("stars", meta.Stars).Int("open_prs", openPRs).Int("open_issues", openIssues).Msg("collected data")
	}
	return table, nil
}

func (c *Collector) count(ctx context.Context, log zerolog.Logger, what string, fetch func() (int, error)) int {
	n, err := fetch()
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Int("partial_count", n).Msgf("failed to list %s", what)
	}
	return n
}
