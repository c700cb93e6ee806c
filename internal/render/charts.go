package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

// Chart image file names, in embedding order.
const (
	StarsChart    = "stars_comparison.png"
	IssuesChart   = "issues_vs_prs.png"
	SizeChart     = "size_distribution.png"
	ActivityChart = "activity_heatmap.png"
)

// HeatmapMetrics are the heatmap rows, top to bottom.
var HeatmapMetrics = []string{"stars", "forks", "open_issues", "open_prs"}

type chartSpec struct {
	file string
	draw func(table domain.Table, path string) error
}

var chartSpecs = []chartSpec{
	{file: StarsChart, draw: drawStarsChart},
	{file: IssuesChart, draw: drawIssuesChart},
	{file: SizeChart, draw: drawSizeChart},
	{file: ActivityChart, draw: drawActivityHeatmap},
}

// drawSafely runs draw and converts a panic into an error so one chart cannot
// take the others down.
func drawSafely(draw func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chart rendering panicked: %v", r)
		}
	}()
	return draw()
}

// SortedByStars returns a copy of table ordered by stars, highest first.
// Rows with equal stars keep their configuration order.
func SortedByStars(table domain.Table) domain.Table {
	sorted := make(domain.Table, len(table))
	copy(sorted, table)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Stars > sorted[j].Stars })
	return sorted
}

func shortNames(table domain.Table) []string {
	names := make([]string, len(table))
	for i, row := range table {
		names[i] = row.ShortName()
	}
	return names
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	return p
}

func drawStarsChart(table domain.Table, path string) error {
	sorted := SortedByStars(table)
	values := make(plotter.Values, len(sorted))
	labels := plotter.XYLabels{XYs: make(plotter.XYs, len(sorted)), Labels: make([]string, len(sorted))}
	max := 0.0
	for i, row := range sorted {
		values[i] = float64(row.Stars)
		labels.XYs[i] = plotter.XY{X: float64(i), Y: float64(row.Stars)}
		labels.Labels[i] = humanize.Comma(int64(row.Stars))
		max = math.Max(max, float64(row.Stars))
	}

	p := newPlot("GitHub Repository Stars Comparison", "Repository", "Stars Count")
	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	valueLabels, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	for i := range valueLabels.TextStyle {
		valueLabels.TextStyle[i].XAlign = text.XCenter
		valueLabels.TextStyle[i].YAlign = text.YBottom
	}
	p.Add(bars, valueLabels)
	p.NominalX(shortNames(sorted)...)
	p.Y.Min = 0
	p.Y.Max = max*1.1 + 1
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func drawIssuesChart(table domain.Table, path string) error {
	issues := make(plotter.Values, len(table))
	prs := make(plotter.Values, len(table))
	for i, row := range table {
		issues[i] = float64(row.OpenIssues)
		prs[i] = float64(row.OpenPRs)
	}

	p := newPlot("Open Issues vs Pull Requests", "Repository", "Count")
	width := vg.Points(14)
	issueBars, err := plotter.NewBarChart(issues, width)
	if err != nil {
		return err
	}
	issueBars.Color = plotutil.Color(0)
	issueBars.Offset = -width / 2
	prBars, err := plotter.NewBarChart(prs, width)
	if err != nil {
		return err
	}
	prBars.Color = plotutil.Color(1)
	prBars.Offset = width / 2

	p.Add(issueBars, prBars)
	p.Legend.Add("Open Issues", issueBars)
	p.Legend.Add("Open PRs", prBars)
	p.Legend.Top = true
	p.NominalX(shortNames(table)...)
	p.Y.Min = 0
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func drawSizeChart(table domain.Table, path string) error {
	total := 0.0
	for _, row := range table {
		total += row.SizeMB()
	}
	if total <= 0 {
		return errors.New("no repository size data to plot")
	}
	values := make([]chart.Value, 0, len(table))
	for _, row := range table {
		mb := row.SizeMB()
		// A zero-size slice has no area and is left out of the pie.
		if mb <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: mb,
			Label: fmt.Sprintf("%s %.1f%%", row.ShortName(), mb/total*100),
		})
	}
	pie := chart.PieChart{
		Title:  "Repository Size Distribution (MB)",
		Width:  800,
		Height: 800,
		Values: values,
	}
	return writeFile(path, func(f *os.File) error { return pie.Render(chart.PNG, f) })
}

// metricGrid adapts normalized metrics to plotter.GridXYZ: columns are
// repositories, rows are metrics.
type metricGrid [][]float64

func (g metricGrid) Dims() (c, r int)    { return len(g[0]), len(g) }
func (g metricGrid) Z(c, r int) float64 { return g[r][c] }
func (g metricGrid) X(c int) float64    { return float64(c) }
func (g metricGrid) Y(r int) float64    { return float64(r) }

// activityGrid returns each heatmap metric normalized across repositories.
func activityGrid(table domain.Table) metricGrid {
	fields := []func(domain.RepositorySnapshot) int{
		func(r domain.RepositorySnapshot) int { return r.Stars },
		func(r domain.RepositorySnapshot) int { return r.Forks },
		func(r domain.RepositorySnapshot) int { return r.OpenIssues },
		func(r domain.RepositorySnapshot) int { return r.OpenPRs },
	}
	grid := make(metricGrid, len(fields))
	for i, field := range fields {
		grid[i] = Normalize(column(table, field))
	}
	return grid
}

func drawActivityHeatmap(table domain.Table, path string) error {
	if len(table) == 0 {
		return errors.New("no repositories to plot")
	}
	grid := activityGrid(table)

	p := newPlot("Repository Activity Metrics (Normalized)", "Repository", "Metrics")
	heatmap := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	heatmap.Min, heatmap.Max = 0, 1
	heatmap.NaN = color.White

	cols, rows := grid.Dims()
	cells := plotter.XYLabels{}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%.2f", grid.Z(c, r)))
		}
	}
	annotations, err := plotter.NewLabels(cells)
	if err != nil {
		return err
	}
	for i := range annotations.TextStyle {
		annotations.TextStyle[i].XAlign = text.XCenter
		annotations.TextStyle[i].YAlign = text.YCenter
	}

	p.Add(heatmap, annotations)
	p.NominalX(shortNames(table)...)
	p.NominalY(HeatmapMetrics...)
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// drawCharts renders every chart into dir. Failures are returned per file and
// do not stop the remaining charts.
func drawCharts(table domain.Table, dir string) (paths []string, failures map[string]error) {
	failures = make(map[string]error)
	for _, spec := range chartSpecs {
		path := filepath.Join(dir, spec.file)
		err := drawSafely(func() error { return spec.draw(table, path) })
		if err != nil {
			failures[spec.file] = err
			continue
		}
		paths = append(paths, path)
	}
	return paths, failures
}
