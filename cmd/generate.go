package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/repo-dashboard/internal/config"
	"github.com/naka-gawa/repo-dashboard/internal/gateway"
	"github.com/naka-gawa/repo-dashboard/internal/logging"
	"github.com/naka-gawa/repo-dashboard/internal/render"
	"github.com/naka-gawa/repo-dashboard/internal/status"
	"github.com/naka-gawa/repo-dashboard/internal/usecase"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Fetches repository data from GitHub and writes the dashboard workbook",
	Long: `Fetches metadata, pull request and issue counts for every repository in the
configuration file, then writes a timestamped Excel workbook with a summary sheet,
a detail sheet and a sheet of embedded charts. With --dry-run only the fetch runs.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		configPath, _ := cmd.Flags().GetString("config")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		return runGenerate(cmd.Context(), generateOptions{
			configPath: configPath,
			dryRun:     dryRun,
			verbose:    verbose,
		}, cmd.ErrOrStderr())
	},
}

type generateOptions struct {
	configPath string
	dryRun     bool
	verbose    bool
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("config", "c", config.DefaultPath, "Configuration file path")
	generateCmd.Flags().Bool("dry-run", false, "Fetch data without generating reports")
}

func runGenerate(ctx context.Context, opts generateOptions, console io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	envErr := godotenv.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging, console, opts.verbose, time.Now())
	if err != nil {
		return err
	}
	defer closer.Close()

	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("config", opts.configPath).Msg("starting IT dashboard generation")
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn().Err(envErr).Msg("failed to load .env file")
	}
	for _, repo := range cfg.Skipped {
		logger.Warn().Str("repo", repo).Msg("invalid repository format; skipping")
	}
	if prev, err := status.Read(cfg.Report.OutputDir); err == nil {
		logger.Info().Str("previous_status", prev.Status).Str("previous_run_id", prev.RunID).
			Time("previous_timestamp", prev.Timestamp).Msg("previous run")
	}

	outcome, err := generate(ctx, cfg, opts.dryRun, logger)

	if cfg.Report.WriteStatus() {
		st := status.Status{Timestamp: time.Now(), Status: status.Success, RunID: runID}
		switch {
		case err != nil:
			st.Status, st.Message = status.Failure, err.Error()
		case outcome.Report == nil:
			st.Message = fmt.Sprintf("dry run fetched %d repositories", len(outcome.Table))
		default:
			st.Message = fmt.Sprintf("report generated: %s", outcome.Report.Path)
		}
		if serr := status.Write(cfg.Report.OutputDir, st); serr != nil {
			logger.Warn().Err(serr).Msg("failed to write status file")
		}
	}

	if err != nil {
		logger.Error().Err(err).Msg("dashboard generation failed")
		return err
	}
	logger.Info().Msg("IT dashboard generation completed successfully")
	return nil
}

func generate(ctx context.Context, cfg *config.Config, dryRun bool, logger zerolog.Logger) (*usecase.Outcome, error) {
	fetcher, err := newFetcher(cfg.GitHub, logger)
	if err != nil {
		return nil, err
	}
	collector := usecase.NewCollector(fetcher, logger)
	renderer := render.NewRenderer(cfg.Report, logger)
	return usecase.NewDashboard(collector, renderer, logger).Run(ctx, cfg.GitHub.Repositories, dryRun)
}

// newFetcher builds the gateway selected by the configured API mode.
func newFetcher(cfg config.GitHubConfig, logger zerolog.Logger) (gateway.Fetcher, error) {
	opts := gateway.Options{
		BaseURL:       cfg.APIBaseURL,
		GraphQLURL:    cfg.GraphQLURL,
		Token:         cfg.Token,
		Timeout:       cfg.RequestTimeout(),
		Delay:         cfg.Delay(),
		RateLimitWait: cfg.RateLimitBackoff(),
		MaxAttempts:   cfg.MaxAttempts,
	}
	logger.Debug().Str("mode", cfg.Mode).Bool("token_present", cfg.Token != "").Msg("initializing GitHub client")
	if cfg.Mode == config.ModeGraphQL {
		return gateway.NewGraphQLGateway(opts, logger)
	}
	return gateway.NewGitHubGateway(opts, logger)
}
