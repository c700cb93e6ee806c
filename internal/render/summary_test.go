package render

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

func sampleTable() domain.Table {
	return domain.Table{
		{Repository: "orgA/repo1", Stars: 10, Forks: 1, OpenIssues: 2, OpenPRs: 1, Language: "Go", SizeKB: 1024},
		{Repository: "orgB/repo2", Stars: 50, Forks: 4, OpenIssues: 0, OpenPRs: 3, Language: "Python", SizeKB: 2048},
		{Repository: "orgC/repo3", Stars: 5, Forks: 0, OpenIssues: 7, OpenPRs: 0, Language: "Go", SizeKB: 100},
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	table := sampleTable()

	s := Summarize(table, now)

	total := 0
	for _, row := range table {
		total += row.Stars
	}
	assert.Equal(t, 3, s.TotalRepositories)
	assert.Equal(t, total, s.TotalStars)
	assert.Equal(t, 5, s.TotalForks)
	assert.Equal(t, 9, s.TotalOpenIssues)
	assert.Equal(t, 4, s.TotalOpenPRs)
	assert.Equal(t, 1.03, s.AverageSizeMB)
	assert.Equal(t, "Go", s.TopLanguage)
	assert.Equal(t, now, s.GeneratedAt)
}

func TestSummarize_EmptyTable(t *testing.T) {
	s := Summarize(domain.Table{}, time.Now())
	assert.Zero(t, s.TotalRepositories)
	assert.Zero(t, s.TotalStars)
	assert.Zero(t, s.AverageSizeMB)
	assert.Equal(t, NoLanguage, s.TopLanguage)
}

func TestTopLanguage_TieResolvesAlphabetically(t *testing.T) {
	table := domain.Table{{Language: "Rust"}, {Language: "Go"}, {Language: "Rust"}, {Language: "Go"}}
	assert.Equal(t, "Go", topLanguage(table))
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		in       []float64
		expected []float64
	}{
		{name: "spread", in: []float64{10, 50, 30}, expected: []float64{0, 1, 0.5}},
		{name: "constant metric degrades to zero", in: []float64{0, 0, 0}, expected: []float64{0, 0, 0}},
		{name: "single value", in: []float64{7}, expected: []float64{0}},
		{name: "empty", in: []float64{}, expected: []float64{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			assert.InDeltaSlice(t, tc.expected, got, 1e-9)
			for _, v := range got {
				assert.False(t, math.IsNaN(v))
			}
		})
	}
}
