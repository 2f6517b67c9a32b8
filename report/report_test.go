package report

import (
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"
)

type testRow struct {
	name    string
	latency float64
}

func (r testRow) Cells() []any     { return []any{r.name, "GET", r.latency} }
func (r testRow) Latency() float64 { return r.latency }

var testVariant = Variant{Name: "test", Header: []string{"Name", "Method", "Duration (s)"}}

func TestSheetName(t *testing.T) {
	tests := []struct {
		app, suffix, want string
	}{
		{"MonitoringPersistenceApplication", "4..", "Persistence_4.."},
		{"MonitoringPersistenceApplication", RepositoriesSuffix, "Persistence_Repositories"},
		{"MonitoringUserConsumerApplication", "2..", "UserConsumer_2.."},
		{"MonitoringCommunicationApplication", "5..", "Communication_5.."},
		{"Billing", "5..", "Billing_5.."},
		{"MonitoringNotificationDispatcherApplication", RepositoriesSuffix, "NotificationDispatcher_Reposito"},
		{"MonitoringAbcdefghijklmnopqrstuvwxyzApplication", "2..", "Abcdefghijklmnopqrstuvwxyz_2.."},
		{"ÄÖÜäöüßÄÖÜäöüßÄÖÜäöüßÄÖÜäöüßÄÖÜ", "4..", "ÄÖÜäöüßÄÖÜäöüßÄÖÜäöüßÄÖÜäöüßÄÖÜ"},
	}
	for _, tt := range tests {
		got := SheetName(tt.app, tt.suffix)
		assert.Equal(t, tt.want, got)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), maxSheetName)
	}
}

func TestWriteSheet_LongApplicationName(t *testing.T) {
	w, err := NewWorkbook(zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	name := SheetName("MonitoringNotificationDispatcherApplication", RepositoriesSuffix)
	require.NoError(t, w.WriteSheet(name, RepositoryLatency, []Row{testRow{"r", 0.25}}))
	assert.Equal(t, []string{name}, w.Sheets())

	// Names sharing their first 31 characters collide after the cut.
	other := SheetName("MonitoringNotificationDispatcherApplication", RepositoriesSuffix+"Archive")
	require.Equal(t, name, other)
	assert.ErrorIs(t, w.WriteSheet(other, RepositoryLatency, nil), ErrDuplicateSheet)
}

func TestFileName(t *testing.T) {
	day := time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "PrometheusData_2026-10-15.xlsx", FileName(day))
}

func TestSortByLatency(t *testing.T) {
	rows := []Row{
		testRow{"a", 0.3},
		testRow{"b", math.Inf(1)},
		testRow{"c", 2.5},
		testRow{"d", 0.3},
		testRow{"e", 100},
	}
	sorted := SortByLatency(rows)

	var names []string
	for _, r := range sorted {
		names = append(names, r.(testRow).name)
	}
	assert.Equal(t, []string{"b", "e", "c", "a", "d"}, names)
	for i := 0; i+1 < len(sorted); i++ {
		assert.GreaterOrEqual(t, sorted[i].Latency(), sorted[i+1].Latency())
	}
	// input untouched
	assert.Equal(t, "a", rows[0].(testRow).name)
}

func TestStyleForLatency(t *testing.T) {
	st := styles{header: 1, fast: 2, slow: 3}
	assert.Equal(t, 2, st.forLatency(0))
	assert.Equal(t, 2, st.forLatency(0.999))
	assert.Equal(t, 3, st.forLatency(1.0))
	assert.Equal(t, 3, st.forLatency(42))
	assert.Equal(t, 3, st.forLatency(math.Inf(1)))
}

func TestWriteSheet_StylesAndOrder(t *testing.T) {
	w, err := NewWorkbook(zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	rows := []Row{
		testRow{"fast", 0.42},
		testRow{"unbounded", math.Inf(1)},
		testRow{"slow", 1.5},
	}
	require.NoError(t, w.WriteSheet("Persistence_4..", testVariant, rows))

	f := w.file
	assertCell(t, f, "Persistence_4..", "A1", "Name")
	assertCell(t, f, "Persistence_4..", "C1", "Duration (s)")
	assertCell(t, f, "Persistence_4..", "A2", "unbounded")
	assertCell(t, f, "Persistence_4..", "C2", "+Inf")
	assertCell(t, f, "Persistence_4..", "A3", "slow")
	assertCell(t, f, "Persistence_4..", "A4", "fast")
	assertCell(t, f, "Persistence_4..", "C4", "0.42")

	wantStyle := map[string]int{
		"A1": w.styles.header, "C1": w.styles.header,
		"A2": w.styles.slow, "C2": w.styles.slow,
		"B3": w.styles.slow,
		"A4": w.styles.fast, "C4": w.styles.fast,
	}
	for cell, want := range wantStyle {
		got, err := f.GetCellStyle("Persistence_4..", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	width, err := f.GetColWidth("Persistence_4..", "A")
	require.NoError(t, err)
	assert.InDelta(t, float64(len("unbounded")+columnPadding), width, 0.01)

	panes, err := f.GetPanes("Persistence_4..")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
	assert.Equal(t, 0, panes.XSplit)
	assert.Equal(t, "A2", panes.TopLeftCell)

	header, err := f.GetStyle(w.styles.header)
	require.NoError(t, err)
	require.NotNil(t, header.Font)
	assert.True(t, header.Font.Bold)
	assertFill(t, header, headerFill)

	fast, err := f.GetStyle(w.styles.fast)
	require.NoError(t, err)
	assertFill(t, fast, fastFill)

	slow, err := f.GetStyle(w.styles.slow)
	require.NoError(t, err)
	assertFill(t, slow, slowFill)
}

// assertFill checks a solid pattern fill; excelize may report the colour
// with an alpha prefix.
func assertFill(t *testing.T, st *excelize.Style, color string) {
	t.Helper()
	assert.Equal(t, "pattern", st.Fill.Type)
	assert.Equal(t, 1, st.Fill.Pattern)
	require.NotEmpty(t, st.Fill.Color)
	assert.True(t, strings.HasSuffix(strings.ToUpper(st.Fill.Color[0]), color),
		"fill %v, want %s", st.Fill.Color, color)
}

func TestWriteSheet_EmptyRowsKeepsHeader(t *testing.T) {
	w, err := NewWorkbook(nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteSheet("Communication_5..", testVariant, nil))
	got, err := w.file.GetRows("Communication_5..")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Name", "Method", "Duration (s)"}}, got)
}

func TestWriteSheet_Duplicate(t *testing.T) {
	w, err := NewWorkbook(nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.WriteSheet("X_2..", testVariant, nil))
	err = w.WriteSheet("X_2..", testVariant, nil)
	assert.ErrorIs(t, err, ErrDuplicateSheet)
}

func TestSave_RoundTrip(t *testing.T) {
	w, err := NewWorkbook(zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, w.WriteSheet("Persistence_2..", HTTPLatency, nil))
	require.NoError(t, w.WriteSheet("Persistence_Repositories", RepositoryLatency, []Row{testRow{"r", 0.25}}))
	require.NoError(t, w.WriteSheet("Communication_2..", HTTPLatency, nil))
	assert.Equal(t, []string{"Persistence_2..", "Persistence_Repositories", "Communication_2.."}, w.Sheets())

	dir := filepath.Join(t.TempDir(), "out")
	path, err := w.Save(dir, "PrometheusData_2026-10-15.xlsx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "PrometheusData_2026-10-15.xlsx"), path)

	// closed after save
	assert.ErrorIs(t, w.WriteSheet("late", testVariant, nil), ErrClosed)
	require.NoError(t, w.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Persistence_2..", "Persistence_Repositories", "Communication_2.."}, f.GetSheetList())
	assertCell(t, f, "Persistence_Repositories", "B1", "Repository")
	assertCell(t, f, "Persistence_Repositories", "A2", "r")
	assertCell(t, f, "Persistence_2..", "H1", "Duration (s)")
}

func TestSave_NoSheets(t *testing.T) {
	w, err := NewWorkbook(nil)
	require.NoError(t, err)

	path, err := w.Save(t.TempDir(), "empty.xlsx")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{defaultSheet}, f.GetSheetList())
}

func assertCell(t *testing.T, f *excelize.File, sheet, cell, want string) {
	t.Helper()
	got, err := f.GetCellValue(sheet, cell)
	require.NoError(t, err)
	assert.Equal(t, want, got, "%s!%s", sheet, cell)
}
