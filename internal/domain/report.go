package domain

import "time"

// Summary holds the aggregate counts shown on the dashboard summary sheet.
type Summary struct {
	TotalRepositories int
	TotalStars        int
	TotalForks        int
	TotalOpenIssues   int
	TotalOpenPRs      int
	AverageSizeMB     float64
	TopLanguage       string
	GeneratedAt       time.Time
}

// Report describes the artifacts produced by a render.
type Report struct {
	Path      string
	ChartsDir string
	Charts    []string
	Summary   Summary
}
