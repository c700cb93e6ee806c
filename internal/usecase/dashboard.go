package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

// ErrNoData is returned when no configured repository could be resolved.
var ErrNoData = errors.New("no data retrieved from GitHub API")

// Renderer turns a snapshot table into report artifacts.
type Renderer interface {
	Render(table domain.Table) (*domain.Report, error)
}

// Dashboard orchestrates one run: collect, then render unless dry-run.
type Dashboard struct {
	collector *Collector
	renderer  Renderer
	logger    zerolog.Logger
}

// Outcome describes a completed run. Report is nil for dry runs.
type Outcome struct {
	Table  domain.Table
	Report *domain.Report
}

// NewDashboard creates a new Dashboard instance.
func NewDashboard(collector *Collector, renderer Renderer, logger zerolog.Logger) *Dashboard {
	return &Dashboard{collector: collector, renderer: renderer, logger: logger}
}

// Run collects the repositories and, unless dryRun is set, renders the report.
func (d *Dashboard) Run(ctx context.Context, repos []string, dryRun bool) (*Outcome, error) {
	if dryRun {
		d.logger.Info().Msg("DRY RUN MODE - no reports will be generated")
	}
	d.logger.Info().Int("repositories", len(repos)).Msg("fetching GitHub repository data")

	table, err := d.collector.Collect(ctx, repos)
	if err != nil {
		return nil, fmt.Errorf("failed to collect repository data: %w", err)
	}
	if len(table) == 0 {
		return nil, ErrNoData
	}
	d.logger.Info().Int("repositories", len(table)).Msg("successfully fetched repository data")

	outcome := &Outcome{Table: table}
	if dryRun {
		d.logger.Info().Msg("dry run complete - no report generated")
		return outcome, nil
	}

	report, err := d.renderer.Render(table)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dashboard report: %w", err)
	}
	outcome.Report = report
	d.logSummary(table, report)
	return outcome, nil
}

func (d *Dashboard) logSummary(table domain.Table, report *domain.Report) {
	top := table[0]
	for _, s := range table[1:] {
		if s.Stars > top.Stars {
			top = s
		}
	}
	d.logger.Info().
		Str("path", report.Path).
		Int("repositories", report.Summary.TotalRepositories).
		Int("open_issues", report.Summary.TotalOpenIssues).
		Int("open_prs", report.Summary.TotalOpenPRs).
		Str("most_starred", top.Repository).
		Msg("dashboard report summary")
}
