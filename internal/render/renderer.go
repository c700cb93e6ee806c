package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/naka-gawa/repo-dashboard/internal/config"
	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

// Renderer writes the dashboard workbook and its chart images.
type Renderer struct {
	outputDir string
	template  string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRenderer creates a Renderer writing under cfg.OutputDir.
func NewRenderer(cfg config.ReportConfig, logger zerolog.Logger) *Renderer {
	return &Renderer{
		outputDir: cfg.OutputDir,
		template:  cfg.TemplateName,
		logger:    logger,
		now:       time.Now,
	}
}

// Render produces the chart images under a timestamped charts directory and
// the workbook at a timestamped path. Chart failures are logged; failing to
// write the workbook is returned.
func (r *Renderer) Render(table domain.Table) (*domain.Report, error) {
	now := r.now()
	stamp := now.Format("20060102_150405")
	path := filepath.Join(r.outputDir, config.ExpandDate(r.template, stamp))
	chartsDir := filepath.Join(r.outputDir, "charts", stamp)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.MkdirAll(chartsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create charts directory: %w", err)
	}

	summary := Summarize(table, now)

	charts, failures := drawCharts(table, chartsDir)
	for file, err := range failures {
		r.logger.Warn().Err(err).Str("chart", file).Msg("failed to generate chart")
	}
	r.logger.Debug().Int("charts", len(charts)).Str("dir", chartsDir).Msg("charts generated")

	embedded, err := writeWorkbook(path, table, summary, charts, r.logger)
	if err != nil {
		return nil, err
	}

	log := r.logger.Info().Str("path", path)
	if info, err := os.Stat(path); err == nil {
		log = log.Str("size", humanize.Bytes(uint64(info.Size())))
	}
	log.Msg("excel dashboard saved")

	return &domain.Report{
		Path:      path,
		ChartsDir: chartsDir,
		Charts:    embedded,
		Summary:   summary,
	}, nil
}
