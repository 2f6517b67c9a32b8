// Package report renders latency rows into an xlsx workbook.
package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	fileNameLayout = "PrometheusData_%s.xlsx"
	defaultSheet   = "Sheet1"

	// RepositoriesSuffix names the per-application repository sheet.
	RepositoriesSuffix = "Repositories"

	// SlowThreshold in seconds; rows at or above it are highlighted red.
	SlowThreshold = 1.0

	infText = "+Inf"

	// maxSheetName is the Excel limit on sheet name length, in characters.
	maxSheetName = 31
)

var (
	ErrDuplicateSheet = errors.New("report: duplicate sheet")
	ErrClosed         = errors.New("report: workbook closed")
)

// Row is one latency sample.
type Row interface {
	// Cells are written left to right; a float64 cell is numeric.
	Cells() []any
	// Latency in seconds, +Inf for an unbounded ratio.
	Latency() float64
}

// Rows adapts a typed sample slice.
func Rows[T Row](items []T) []Row {
	out := make([]Row, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// Variant fixes the header row of a sheet.
type Variant struct {
	Name   string
	Header []string
}

var (
	HTTPLatency = Variant{
		Name:   "http",
		Header: []string{"Instance", "Method", "Status", "Outcome", "Exception", "URI", "Timestamp", "Duration (s)"},
	}
	RepositoryLatency = Variant{
		Name:   "repository",
		Header: []string{"Instance", "Repository", "Method", "State", "Exception", "Timestamp", "Duration (s)"},
	}
)

// SheetName strips the Monitoring/Application decorations from an
// application id: ("MonitoringPersistenceApplication", "4..") -> "Persistence_4..".
// Names longer than Excel allows are cut to the first 31 characters.
func SheetName(application, suffix string) string {
	short := strings.ReplaceAll(application, "Monitoring", "")
	short = strings.ReplaceAll(short, "Application", "")
	name := []rune(short + "_" + suffix)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return string(name)
}

// FileName is the report file name for the day of t.
func FileName(t time.Time) string {
	return fmt.Sprintf(fileNameLayout, t.Format(time.DateOnly))
}

// Workbook owns one xlsx file for the duration of a run. It is not safe
// for concurrent use.
type Workbook struct {
	file   *excelize.File
	log    *zap.Logger
	styles styles
	sheets []string
	closed bool
}

func NewWorkbook(log *zap.Logger) (*Workbook, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Workbook{file: f, log: log, styles: st}, nil
}

// Sheets returns sheet names in creation order.
func (w *Workbook) Sheets() []string {
	return slices.Clone(w.sheets)
}

// WriteSheet creates sheet name with the variant's header and the rows
// sorted slowest first. An empty rows slice still yields a header-only sheet.
func (w *Workbook) WriteSheet(name string, v Variant, rows []Row) error {
	if w.closed {
		return ErrClosed
	}
	if slices.Contains(w.sheets, name) {
		return fmt.Errorf("%w: %s", ErrDuplicateSheet, name)
	}
	if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheets = append(w.sheets, name)

	if err := w.writeHeader(name, v.Header); err != nil {
		return fmt.Errorf("sheet %s: %w", name, err)
	}

	sorted := SortByLatency(rows)
	for i, r := range sorted {
		if err := w.writeRow(name, i+2, r); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", name, i+1, err)
		}
	}

	if len(sorted) > 0 {
		if err := w.autoSize(name, v.Header, sorted); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	w.log.Info("sheet written", zap.String("sheet", name), zap.String("variant", v.Name), zap.Int("rows", len(sorted)))
	return nil
}

// SortByLatency returns a copy of rows ordered by descending latency.
// +Inf sorts first; equal latencies keep their input order.
func SortByLatency(rows []Row) []Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row) int {
		la, lb := a.Latency(), b.Latency()
		switch {
		case la > lb:
			return -1
		case la < lb:
			return 1
		}
		return 0
	})
	return out
}

func (w *Workbook) writeHeader(sheet string, header []string) error {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := w.file.SetSheetRow(sheet, "A1", &cells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := w.file.SetCellStyle(sheet, "A1", last, w.styles.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	// Keep the header row in view while scrolling.
	return w.file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (w *Workbook) writeRow(sheet string, rowNum int, r Row) error {
	cells := r.Cells()
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = cellValue(c)
	}
	first, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), rowNum)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, first, &values); err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, first, last, w.styles.forLatency(r.Latency()))
}

// cellValue maps +Inf to its literal text; xlsx has no infinity.
func cellValue(c any) any {
	if f, ok := c.(float64); ok && math.IsInf(f, 1) {
		return infText
	}
	return c
}

// Save removes the placeholder sheet, writes the workbook to dir/fileName
// and closes it. The workbook is closed on every return path.
func (w *Workbook) Save(dir, fileName string) (path string, err error) {
	if w.closed {
		return "", ErrClosed
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if len(w.sheets) > 0 {
		if err := w.file.DeleteSheet(defaultSheet); err != nil {
			return "", fmt.Errorf("drop placeholder sheet: %w", err)
		}
		w.file.SetActiveSheet(0)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path = filepath.Join(dir, fileName)
	if err := w.file.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook %s: %w", path, err)
	}
	w.log.Info("workbook saved", zap.String("path", path), zap.Strings("sheets", w.sheets))
	return path, nil
}

// Close releases the workbook. Safe to call more than once.
func (w *Workbook) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
