package report

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	headerFill = "CCCCFF" // light cornflower blue
	fastFill   = "CCFFCC" // light green
	slowFill   = "FF0000" // red

	maxColumnWidth = 255
	columnPadding  = 2
)

// styles are registered once per workbook and shared by every sheet.
type styles struct {
	header int
	fast   int
	slow   int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	st.fast, err = f.NewStyle(filled(fastFill))
	if err != nil {
		return st, fmt.Errorf("fast style: %w", err)
	}
	st.slow, err = f.NewStyle(filled(slowFill))
	if err != nil {
		return st, fmt.Errorf("slow style: %w", err)
	}
	return st, nil
}

func filled(color string) *excelize.Style {
	return &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	}
}

// forLatency is green below SlowThreshold, red otherwise (+Inf included).
func (s styles) forLatency(seconds float64) int {
	if seconds < SlowThreshold {
		return s.fast
	}
	return s.slow
}

// autoSize widens every column to its longest rendered value, header included.
func (w *Workbook) autoSize(sheet string, header []string, rows []Row) error {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range rows {
		for i, c := range r.Cells() {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], utf8.RuneCountInString(renderCell(c)))
		}
	}
	for i, chars := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := math.Min(float64(chars+columnPadding), maxColumnWidth)
		if err := w.file.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set width of column %s: %w", col, err)
		}
	}
	return nil
}

func renderCell(c any) string {
	if s, ok := cellValue(c).(string); ok {
		return s
	}
	return fmt.Sprint(c)
}
