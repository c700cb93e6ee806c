package render

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/naka-gawa/repo-dashboard/internal/domain"
)

// Sheet names.
const (
	SummarySheet = "Dashboard Summary"
	DetailSheet  = "Repository Details"
	ChartsSheet  = "Visual Analytics"
)

const (
	headerColor = "366092"
	// chartRowStep is the fixed number of rows between embedded charts.
	chartRowStep = 22
	chartWidth   = 600
	chartHeight  = 400
	maxColWidth  = 50
)

// DetailColumns is the header of the detail sheet.
var DetailColumns = []string{
	"repository", "stars", "forks", "watchers", "open_prs", "closed_prs",
	"open_issues", "closed_issues", "total_prs", "total_issues", "language",
	"size_kb", "created_at", "updated_at", "fetch_timestamp",
}

type workbook struct {
	f           *excelize.File
	headerStyle int
	titleStyle  int
	logger      zerolog.Logger
}

func newWorkbook(logger zerolog.Logger) (*workbook, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16, Color: headerColor},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &workbook{f: f, headerStyle: headerStyle, titleStyle: titleStyle, logger: logger}, nil
}

func summaryRows(s domain.Summary) [][]interface{} {
	return [][]interface{}{
		{"Metric", "Value"},
		{"Total Repositories", s.TotalRepositories},
		{"Total Stars", s.TotalStars},
		{"Total Forks", s.TotalForks},
		{"Total Open Issues", s.TotalOpenIssues},
		{"Total Open PRs", s.TotalOpenPRs},
		{"Average Repository Size (MB)", s.AverageSizeMB},
		{"Most Popular Language", s.TopLanguage},
		{"Report Generated", s.GeneratedAt.Format("2006-01-02 15:04:05")},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func detailRows(table domain.Table) [][]interface{} {
	header := make([]interface{}, len(DetailColumns))
	for i, c := range DetailColumns {
		header[i] = c
	}
	rows := [][]interface{}{header}
	for _, r := range table {
		rows = append(rows, []interface{}{
			r.Repository, r.Stars, r.Forks, r.Watchers, r.OpenPRs, r.ClosedPRs,
			r.OpenIssues, r.ClosedIssues, r.TotalPRs, r.TotalIssues, r.Language,
			r.SizeKB, formatTime(r.CreatedAt), formatTime(r.UpdatedAt), formatTime(r.FetchTimestamp),
		})
	}
	return rows
}

// writeTable writes rows below a title row, styles the header row, sizes the
// columns to their content and merges the title across every used column.
func (w *workbook) writeTable(sheet, title string, rows [][]interface{}) error {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	lastCol, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(sheet, "A2", lastCol+"2", w.headerStyle); err != nil {
		return err
	}
	for c := 0; c < cols; c++ {
		width := 0
		for _, row := range rows {
			if c < len(row) {
				width = max(width, len(fmt.Sprint(row[c])))
			}
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(sheet, name, name, float64(min(width+2, maxColWidth))); err != nil {
			return err
		}
	}
	if err := w.setTitle(sheet, title); err != nil {
		return err
	}
	return w.f.MergeCell(sheet, "A1", lastCol+"1")
}

func (w *workbook) setTitle(sheet, title string) error {
	if err := w.f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}
	return w.f.SetCellStyle(sheet, "A1", "A1", w.titleStyle)
}

// addCharts embeds each chart image scaled to a fixed size. Images are placed
// chartRowStep rows apart regardless of their size. A chart that cannot be
// embedded is logged and skipped.
func (w *workbook) addCharts(sheet string, charts []string) []string {
	var embedded []string
	row := 2
	for _, path := range charts {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := w.addPicture(sheet, cell, path); err != nil {
			w.logger.Warn().Err(err).Str("chart", filepath.Base(path)).Msg("could not insert chart")
			continue
		}
		embedded = append(embedded, path)
		row += chartRowStep
	}
	return embedded
}

func (w *workbook) addPicture(sheet, cell, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read image size: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("image %s is empty", path)
	}
	return w.f.AddPicture(sheet, cell, path, &excelize.GraphicOptions{
		ScaleX: float64(chartWidth) / float64(cfg.Width),
		ScaleY: float64(chartHeight) / float64(cfg.Height),
	})
}

// writeWorkbook assembles the three sheets and saves the workbook to path.
// The file is written to a temporary sibling and renamed into place so a
// failed save never leaves a partial workbook at path.
func writeWorkbook(path string, table domain.Table, summary domain.Summary, charts []string, logger zerolog.Logger) ([]string, error) {
	w, err := newWorkbook(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create workbook: %w", err)
	}
	defer w.f.Close()

	if err := w.f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	if err := w.writeTable(SummarySheet, "IT Dashboard Summary", summaryRows(summary)); err != nil {
		return nil, fmt.Errorf("failed to write summary sheet: %w", err)
	}

	if _, err := w.f.NewSheet(DetailSheet); err != nil {
		return nil, err
	}
	if err := w.writeTable(DetailSheet, "Detailed Repository Data", detailRows(table)); err != nil {
		return nil, fmt.Errorf("failed to write detail sheet: %w", err)
	}

	if _, err := w.f.NewSheet(ChartsSheet); err != nil {
		return nil, err
	}
	embedded := w.addCharts(ChartsSheet, charts)
	if err := w.setTitle(ChartsSheet, "Visual Analytics Dashboard"); err != nil {
		return nil, err
	}
	w.f.SetActiveSheet(0)

	tmp := filepath.Join(filepath.Dir(path), ".partial-"+filepath.Base(path))
	if err := w.f.SaveAs(tmp); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}
	return embedded, nil
}
