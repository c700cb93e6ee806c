// Package config loads the dashboard configuration document.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "config/settings.json"

// API modes.
const (
	ModeREST    = "rest"
	ModeGraphQL = "graphql"
)

var (
	// ErrNotFound is returned when the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")
	// ErrInvalid is returned when the configuration document is malformed or fails validation.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the top-level configuration structure.
type Config struct {
	GitHub  GitHubConfig  `json:"github" yaml:"github" toml:"github"`
	Report  ReportConfig  `json:"report" yaml:"report" toml:"report"`
	Logging LoggingConfig `json:"logging" yaml:"logging" toml:"logging"`

	// Skipped holds repository identifiers dropped during validation.
	Skipped []string `json:"-" yaml:"-" toml:"-"`
}

// GitHubConfig holds the hosting API connection settings.
type GitHubConfig struct {
	APIBaseURL     string   `json:"api_base_url" yaml:"api_base_url" toml:"api_base_url"`
	GraphQLURL     string   `json:"graphql_url" yaml:"graphql_url" toml:"graphql_url"`
	Mode           string   `json:"mode" yaml:"mode" toml:"mode"`
	Repositories   []string `json:"repositories" yaml:"repositories" toml:"repositories"`
	RateLimitDelay *float64 `json:"rate_limit_delay" yaml:"rate_limit_delay" toml:"rate_limit_delay"`
	Timeout        float64  `json:"timeout" yaml:"timeout" toml:"timeout"`
	RateLimitWait  *float64 `json:"rate_limit_wait" yaml:"rate_limit_wait" toml:"rate_limit_wait"`
	MaxAttempts    int      `json:"max_attempts" yaml:"max_attempts" toml:"max_attempts"`
	Token          string   `json:"token" yaml:"token" toml:"token"`
}

// ReportConfig controls where the workbook and its artifacts are written.
type ReportConfig struct {
	OutputDir    string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	TemplateName string `json:"template_name" yaml:"template_name" toml:"template_name"`
	StatusFile   *bool  `json:"status_file" yaml:"status_file" toml:"status_file"`
}

// LoggingConfig controls the daily log file.
type LoggingConfig struct {
	LogDir  string `json:"log_dir" yaml:"log_dir" toml:"log_dir"`
	LogFile string `json:"log_file" yaml:"log_file" toml:"log_file"`
	Level   string `json:"level" yaml:"level" toml:"level"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with the environment value. A bare $
// is left untouched.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// Load reads, decodes and validates the configuration file at path.
// The decoder is picked from the file extension; JSON is the default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	expanded := expandEnv(string(data))

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(expanded), &cfg)
	case ".toml":
		_, err = toml.Decode(expanded, &cfg)
	default:
		err = json.Unmarshal([]byte(expanded), &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: error parsing %s: %v", ErrInvalid, path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	g := &c.GitHub
	if g.APIBaseURL == "" {
		g.APIBaseURL = "https://api.github.com"
	}
	g.APIBaseURL = strings.TrimRight(g.APIBaseURL, "/")
	if g.GraphQLURL == "" {
		g.GraphQLURL = g.APIBaseURL + "/graphql"
	}
	if g.Mode == "" {
		g.Mode = ModeREST
	}
	g.Mode = strings.ToLower(g.Mode)
	if g.RateLimitDelay == nil {
		g.RateLimitDelay = float64Ptr(1)
	}
	if g.Timeout <= 0 {
		g.Timeout = 30
	}
	if g.RateLimitWait == nil {
		g.RateLimitWait = float64Ptr(60)
	}
	if g.MaxAttempts <= 0 {
		g.MaxAttempts = 3
	}
	if g.Token == "" {
		g.Token = os.Getenv("GITHUB_TOKEN")
	}

	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
	if c.Report.TemplateName == "" {
		c.Report.TemplateName = "it_dashboard_{date}.xlsx"
	}
	if c.Report.StatusFile == nil {
		t := true
		c.Report.StatusFile = &t
	}

	if c.Logging.LogDir == "" {
		c.Logging.LogDir = "logs"
	}
	if c.Logging.LogFile == "" {
		c.Logging.LogFile = "dashboard_{date}.log"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
}

func (c *Config) validate() error {
	switch c.GitHub.Mode {
	case ModeREST, ModeGraphQL:
	default:
		return fmt.Errorf("%w: unknown github.mode %q, must be %q or %q", ErrInvalid, c.GitHub.Mode, ModeREST, ModeGraphQL)
	}
	if *c.GitHub.RateLimitDelay < 0 || *c.GitHub.RateLimitWait < 0 {
		return fmt.Errorf("%w: rate limit delays must not be negative", ErrInvalid)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	seen := make(map[string]bool, len(c.GitHub.Repositories))
	valid := make([]string, 0, len(c.GitHub.Repositories))
	for _, repo := range c.GitHub.Repositories {
		repo = strings.TrimSpace(repo)
		if _, _, ok := domain.SplitIdentifier(repo); !ok {
			c.Skipped = append(c.Skipped, repo)
			continue
		}
		if seen[repo] {
			continue
		}
		seen[repo] = true
		valid = append(valid, repo)
	}
	if len(valid) == 0 {
		return fmt.Errorf("%w: github.repositories has no valid owner/name entries", ErrInvalid)
	}
	c.GitHub.Repositories = valid
	return nil
}

// Delay is the fixed pause inserted before every API request.
func (g GitHubConfig) Delay() time.Duration { return seconds(*g.RateLimitDelay) }

// RequestTimeout is the per-request HTTP timeout.
func (g GitHubConfig) RequestTimeout() time.Duration { return seconds(g.Timeout) }

// RateLimitBackoff is the pause after a rate-limit response.
func (g GitHubConfig) RateLimitBackoff() time.Duration { return seconds(*g.RateLimitWait) }

// WriteStatus reports whether the last-run status marker is enabled.
func (r ReportConfig) WriteStatus() bool { return r.StatusFile == nil || *r.StatusFile }

// ParseLevel maps the configured level name onto a zerolog level.
// Python-style names such as WARNING and CRITICAL are accepted.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(s) {
	case "warning":
		return zerolog.WarnLevel, nil
	case "critical":
		return zerolog.FatalLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// ExpandDate replaces the {date} placeholder in a filename template.
func ExpandDate(template, date string) string {
	return strings.ReplaceAll(template, "{date}", date)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func float64Ptr(v float64) *float64 { return &v }
