// Package render turns a snapshot table into the dashboard artifacts: summary
// statistics, chart images and the multi-sheet workbook that embeds them.
package render

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

// NoLanguage is reported when the table has no language data.
const NoLanguage = "N/A"

// Summarize computes the dashboard summary for table.
func Summarize(table domain.Table, generatedAt time.Time) domain.Summary {
	s := domain.Summary{
		TotalRepositories: len(table),
		TotalStars:        sumOf(table, func(r domain.RepositorySnapshot) int { return r.Stars }),
		TotalForks:        sumOf(table, func(r domain.RepositorySnapshot) int { return r.Forks }),
		TotalOpenIssues:   sumOf(table, func(r domain.RepositorySnapshot) int { return r.OpenIssues }),
		TotalOpenPRs:      sumOf(table, func(r domain.RepositorySnapshot) int { return r.OpenPRs }),
		TopLanguage:       topLanguage(table),
		GeneratedAt:       generatedAt,
	}
	if mean, err := stats.Mean(column(table, func(r domain.RepositorySnapshot) int { return r.SizeKB })); err == nil {
		if rounded, err := stats.Round(mean/1024, 2); err == nil {
			s.AverageSizeMB = rounded
		}
	}
	return s
}

func column(table domain.Table, field func(domain.RepositorySnapshot) int) stats.Float64Data {
	data := make(stats.Float64Data, len(table))
	for i, row := range table {
		data[i] = float64(field(row))
	}
	return data
}

func sumOf(table domain.Table, field func(domain.RepositorySnapshot) int) int {
	total, err := stats.Sum(column(table, field))
	if err != nil {
		return 0
	}
	return int(total)
}

// topLanguage returns the most frequent language; ties resolve alphabetically.
func topLanguage(table domain.Table) string {
	counts := make(map[string]int)
	for _, row := range table {
		if row.Language != "" {
			counts[row.Language]++
		}
	}
	if len(counts) == 0 {
		return NoLanguage
	}
	langs := make([]string, 0, len(counts))
	for lang := range counts {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	return langs[0]
}

// Normalize min-max scales values into [0,1]. A constant series maps to zeros.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	min, errMin := stats.Min(values)
	max, errMax := stats.Max(values)
	if errMin != nil || errMax != nil || max == min {
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}
