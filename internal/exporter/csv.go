// Package exporter writes the analysis result tables to CSV files and an
// Excel workbook. The core components only produce in-memory tables; this
// package is the output surface for callers that want files.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"brentcli/internal/changepoint"
	apperrors "brentcli/internal/errors"
	"brentcli/internal/events"
)

// Writer exports result tables into an output directory
type Writer struct {
	outDir string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at outDir. A nil logger falls back to
// slog.Default.
func NewWriter(outDir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{outDir: outDir, logger: logger}
}

// CSVOptions configures CSV writing behavior
type CSVOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // add a UTF-8 BOM for Excel compatibility
}

// writeCSV writes one CSV file under the output directory
func (w *Writer) writeCSV(name string, options CSVOptions) (string, error) {
	fullPath := filepath.Join(w.outDir, name)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", apperrors.Export(fmt.Sprintf("create directory for %s", name), err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", apperrors.Export(fmt.Sprintf("create %s", name), err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", apperrors.Export(fmt.Sprintf("write BOM to %s", name), err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", apperrors.Export(fmt.Sprintf("write headers to %s", name), err)
		}
	}
	if err := writer.WriteAll(options.Records); err != nil {
		return "", apperrors.Export(fmt.Sprintf("write records to %s", name), err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", apperrors.Export(fmt.Sprintf("flush %s", name), err)
	}

	w.logger.Info("CSV report written",
		"path", fullPath,
		"records", len(options.Records),
	)
	return fullPath, nil
}

// WriteImpactCSV writes the event-impact table
func (w *Writer) WriteImpactCSV(records []events.ImpactRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, impactRow(r))
	}
	return w.writeCSV("event_impact.csv", CSVOptions{
		Headers:   impactHeaders(),
		Records:   rows,
		BOMPrefix: true,
	})
}

// WriteTTestCSV writes the t-test table, rows sorted by event name
func (w *Writer) WriteTTestCSV(tests map[string]events.TTestResult) (string, error) {
	names := make([]string, 0, len(tests))
	for name := range tests {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, tTestRow(name, tests[name]))
	}
	return w.writeCSV("event_ttests.csv", CSVOptions{
		Headers:   tTestHeaders(),
		Records:   rows,
		BOMPrefix: true,
	})
}

// WriteBreakpointsCSV writes the detected change points, sentinel excluded
func (w *Writer) WriteBreakpointsCSV(seg *changepoint.Segmentation) (string, error) {
	rows := make([][]string, 0, len(seg.ChangeDates))
	for i, date := range seg.ChangeDates {
		rows = append(rows, []string{
			strconv.Itoa(seg.Breakpoints[i]),
			date.Format("2006-01-02"),
			strconv.Itoa(date.Year()),
		})
	}
	return w.writeCSV("breakpoints.csv", CSVOptions{
		Headers: []string{"Position", "Date", "Year"},
		Records: rows,
	})
}

func impactHeaders() []string {
	return []string{
		"Event", "Date", "Change_1M", "Change_3M", "Change_6M",
		"Cumulative Return Before", "Cumulative Return After",
	}
}

func impactRow(r events.ImpactRecord) []string {
	return []string{
		r.Event,
		r.Date.Format("2006-01-02"),
		formatOptional(r.Change1M),
		formatOptional(r.Change3M),
		formatOptional(r.Change6M),
		formatOptional(r.CumulativeReturnBefore),
		formatOptional(r.CumulativeReturnAfter),
	}
}

func tTestHeaders() []string {
	return []string{"Event", "t-statistic", "p-value", "n_before", "n_after"}
}

func tTestRow(name string, r events.TTestResult) []string {
	return []string{
		name,
		strconv.FormatFloat(r.TStatistic, 'f', 6, 64),
		strconv.FormatFloat(r.PValue, 'f', 6, 64),
		strconv.Itoa(r.NBefore),
		strconv.Itoa(r.NAfter),
	}
}

// formatOptional renders an absent value as an empty cell, never a zero
func formatOptional(v events.OptionalFloat) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', 6, 64)
}

// RunMeta carries run identification for the workbook summary sheet
type RunMeta struct {
	RunID       string
	GeneratedAt time.Time
	SeriesStart time.Time
	SeriesEnd   time.Time
	SeriesRows  int
}
