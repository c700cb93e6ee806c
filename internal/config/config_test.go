package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Formats(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		content  string
		expected []string
	}{
		{
			name: "json",
			file: "settings.json",
			content: `{
	"github": {"repositories": ["orgA/repo1", "orgB/repo2"], "rate_limit_delay": 0.5, "timeout": 10},
	"report": {"output_dir": "out", "template_name": "dash_{date}.xlsx"},
	"logging": {"log_dir": "logs", "log_file": "d_{date}.log", "level": "DEBUG"}
}`,
			expected: []string{"orgA/repo1", "orgB/repo2"},
		},
		{
			name: "yaml",
			file: "settings.yaml",
			content: `github:
  repositories:
    - orgA/repo1
  rate_limit_delay: 0.5
  timeout: 10
`,
			expected: []string{"orgA/repo1"},
		},
		{
			name: "toml",
			file: "settings.toml",
			content: `[github]
repositories = ["orgA/repo1"]
rate_limit_delay = 0.5
timeout = 10.0
`,
			expected: []string{"orgA/repo1"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tc.file, tc.content))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, cfg.GitHub.Repositories)
			assert.Equal(t, 500*time.Millisecond, cfg.GitHub.Delay())
			assert.Equal(t, 10*time.Second, cfg.GitHub.RequestTimeout())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-env")
	cfg, err := Load(writeFile(t, "settings.json", `{"github": {"repositories": ["o/r"]}}`))
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com", cfg.GitHub.APIBaseURL)
	assert.Equal(t, "https://api.github.com/graphql", cfg.GitHub.GraphQLURL)
	assert.Equal(t, ModeREST, cfg.GitHub.Mode)
	assert.Equal(t, time.Second, cfg.GitHub.Delay())
	assert.Equal(t, 60*time.Second, cfg.GitHub.RateLimitBackoff())
	assert.Equal(t, 3, cfg.GitHub.MaxAttempts)
	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.True(t, cfg.Report.WriteStatus())
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoad_ZeroDelayIsKept(t *testing.T) {
	cfg, err := Load(writeFile(t, "settings.json", `{"github": {"repositories": ["o/r"], "rate_limit_delay": 0, "rate_limit_wait": 0}}`))
	require.NoError(t, err)
	assert.Zero(t, cfg.GitHub.Delay())
	assert.Zero(t, cfg.GitHub.RateLimitBackoff())
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("DASH_TOKEN", "secret")
	cfg, err := Load(writeFile(t, "settings.json", `{"github": {"repositories": ["o/r"], "token": "${DASH_TOKEN}"}}`))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.GitHub.Token)
}

func TestLoad_BareDollarIsKept(t *testing.T) {
	t.Setenv("USER", "someone")
	cfg, err := Load(writeFile(t, "settings.json", `{"github": {"repositories": ["o/r"]}, "report": {"template_name": "report_$USER_{date}.xlsx"}, "logging": {"log_file": "cost$5.log"}}`))
	require.NoError(t, err)
	assert.Equal(t, "report_$USER_{date}.xlsx", cfg.Report.TemplateName)
	assert.Equal(t, "cost$5.log", cfg.Logging.LogFile)
}

func TestLoad_RepositoryValidation(t *testing.T) {
	cfg, err := Load(writeFile(t, "settings.json", `{"github": {"repositories": ["o/r", "bad", "o/r", "a/b/c", "x/y"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"o/r", "x/y"}, cfg.GitHub.Repositories)
	assert.Equal(t, []string{"bad", "a/b/c"}, cfg.Skipped)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
			wantErr: ErrNotFound,
		},
		{
			name:    "malformed json",
			path:    func(t *testing.T) string { return writeFile(t, "settings.json", `{"github": [`) },
			wantErr: ErrInvalid,
		},
		{
			name:    "no valid repositories",
			path:    func(t *testing.T) string { return writeFile(t, "settings.json", `{"github": {"repositories": ["bad"]}}`) },
			wantErr: ErrInvalid,
		},
		{
			name: "unknown mode",
			path: func(t *testing.T) string {
				return writeFile(t, "settings.json", `{"github": {"repositories": ["o/r"], "mode": "soap"}}`)
			},
			wantErr: ErrInvalid,
		},
		{
			name: "unknown level",
			path: func(t *testing.T) string {
				return writeFile(t, "settings.json", `{"github": {"repositories": ["o/r"]}, "logging": {"level": "LOUD"}}`)
			},
			wantErr: ErrInvalid,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(tc.path(t))
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, cfg)
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	lvl, err = ParseLevel("info")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestExpandDate(t *testing.T) {
	assert.Equal(t, "it_dashboard_20240501.xlsx", ExpandDate("it_dashboard_{date}.xlsx", "20240501"))
}
