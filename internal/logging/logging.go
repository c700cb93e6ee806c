// Package logging builds the application logger: human-readable console
// output plus a JSON log file that rolls over by day.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/repo-dashboard/internal/config"
)

// New creates a logger writing to console and to the dated log file under cfg.LogDir.
// The returned closer releases the log file.
func New(cfg config.LoggingConfig, console io.Writer, verbose bool, now time.Time) (zerolog.Logger, io.Closer, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	if verbose {
		level = zerolog.DebugLevel
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := FilePath(cfg, now)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	writer := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
		file,
	)
	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, file, nil
}

// FilePath returns the log file path for the given day.
func FilePath(cfg config.LoggingConfig, now time.Time) string {
	return filepath.Join(cfg.LogDir, config.ExpandDate(cfg.LogFile, now.Format("20060102")))
}
