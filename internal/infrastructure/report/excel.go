package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

const (
	sheetName   = "Incidents"
	maxColWidth = 50
	maxLinks    = 3
)

// Headers lists the report columns in order.
var Headers = []string{
	"Date of Incident",
	"Airport / Hangar Name",
	"Country / Region",
	"Brief Summary",
	"Source Link(s)",
}

// ExcelExporter writes the incident report as an .xlsx workbook.
type ExcelExporter struct {
	path string
}

var _ ports.ReportExporter = (*ExcelExporter)(nil)

// NewExcelExporter writes to path, creating parent directories on export.
func NewExcelExporter(path string) *ExcelExporter {
	if strings.TrimSpace(path) == "" {
		path = "reports/hangar_fire_report.xlsx"
	}
	return &ExcelExporter{path: path}
}

// Path returns the configured output file.
func (e *ExcelExporter) Path() string {
	return e.path
}

// Export sorts incidents by date, newest first, and overwrites the workbook.
func (e *ExcelExporter) Export(ctx context.Context, incidents []domain.Incident) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.path, e.ExportTo(e.path, incidents)
}

// ExportTo writes the workbook to an explicit path.
func (e *ExcelExporter) ExportTo(path string, incidents []domain.Incident) error {
	rows := Rows(incidents)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"BDD7EE"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Headers))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	linkStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "0000EE", Underline: "single"}})
	if err != nil {
		return fmt.Errorf("link style: %w", err)
	}

	widths := make([]int, len(Headers))
	for i, h := range Headers {
		widths[i] = utf8.RuneCountInString(h)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
			widths[i] = max(widths[i], utf8.RuneCountInString(v))
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}

		links := row[len(row)-1]
		if links == "" {
			continue
		}
		linkCell, _ := excelize.CoordinatesToCellName(len(Headers), r+2)
		first, _, _ := strings.Cut(links, ", ")
		if err := f.SetCellHyperLink(sheetName, linkCell, first, "External"); err != nil {
			return fmt.Errorf("hyperlink row %d: %w", r+2, err)
		}
		if err := f.SetCellStyle(sheetName, linkCell, linkCell, linkStyle); err != nil {
			return fmt.Errorf("link style row %d: %w", r+2, err)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, float64(min(w+2, maxColWidth))); err != nil {
			return fmt.Errorf("column width %s: %w", col, err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

// Rows renders incidents as report rows, newest first; incidents without a date go last.
func Rows(incidents []domain.Incident) [][]string {
	sorted := make([]domain.Incident, len(incidents))
	copy(sorted, incidents)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.Value(sorted[i].PublishedAt) > domain.Value(sorted[j].PublishedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, inc := range sorted {
		links := inc.URLs
		if len(links) > maxLinks {
			links = links[:maxLinks]
		}
		rows = append(rows, []string{
			domain.Value(inc.PublishedAt),
			inc.AirportHangarName,
			inc.Location,
			inc.Title,
			strings.Join(links, ", "),
		})
	}
	return rows
}
