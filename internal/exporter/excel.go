package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"brentcli/internal/changepoint"
	apperrors "brentcli/internal/errors"
	"brentcli/internal/events"
)

const (
	sheetSummary     = "Summary"
	sheetImpact      = "Impact"
	sheetTTests      = "TTests"
	sheetBreakpoints = "Breakpoints"
)

// WriteWorkbook writes all result tables into one Excel workbook with a
// summary sheet carrying the run metadata. The posterior estimate may be
// nil when Bayesian detection was skipped or failed.
func (w *Writer) WriteWorkbook(meta RunMeta, records []events.ImpactRecord, tests map[string]events.TTestResult, seg *changepoint.Segmentation, posterior *changepoint.PosteriorEstimate) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummarySheet(f, meta, posterior); err != nil {
		return "", err
	}
	if err := w.writeImpactSheet(f, records); err != nil {
		return "", err
	}
	if err := w.writeTTestSheet(f, tests); err != nil {
		return "", err
	}
	if err := w.writeBreakpointsSheet(f, seg); err != nil {
		return "", err
	}

	fullPath := filepath.Join(w.outDir, "analysis_report.xlsx")
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return "", apperrors.Export("create reports directory", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", apperrors.Export("save workbook", err)
	}

	w.logger.Info("Excel report written",
		"path", fullPath,
		"impact_rows", len(records),
		"ttest_rows", len(tests),
	)
	return fullPath, nil
}

func (w *Writer) writeSummarySheet(f *excelize.File, meta RunMeta, posterior *changepoint.PosteriorEstimate) error {
	// The default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return apperrors.Export("rename summary sheet", err)
	}

	rows := [][]interface{}{
		{"Run ID", meta.RunID},
		{"Generated At", meta.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Series Start", meta.SeriesStart.Format("2006-01-02")},
		{"Series End", meta.SeriesEnd.Format("2006-01-02")},
		{"Series Rows", meta.SeriesRows},
	}
	if posterior != nil {
		rows = append(rows,
			[]interface{}{"Bayesian Break Date", posterior.BreakDate.Format("2006-01-02")},
			[]interface{}{"Bayesian Break Index", posterior.BreakIndex},
		)
	}

	for i, row := range rows {
		if err := f.SetSheetRow(sheetSummary, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return apperrors.Export("write summary row", err)
		}
	}
	return nil
}

func (w *Writer) writeImpactSheet(f *excelize.File, records []events.ImpactRecord) error {
	if _, err := f.NewSheet(sheetImpact); err != nil {
		return apperrors.Export("create impact sheet", err)
	}

	header := toInterfaces(impactHeaders())
	if err := f.SetSheetRow(sheetImpact, "A1", &header); err != nil {
		return apperrors.Export("write impact header", err)
	}
	for i, r := range records {
		row := toInterfaces(impactRow(r))
		if err := f.SetSheetRow(sheetImpact, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return apperrors.Export("write impact row", err)
		}
	}
	return nil
}

func (w *Writer) writeTTestSheet(f *excelize.File, tests map[string]events.TTestResult) error {
	if _, err := f.NewSheet(sheetTTests); err != nil {
		return apperrors.Export("create t-test sheet", err)
	}

	header := toInterfaces(tTestHeaders())
	if err := f.SetSheetRow(sheetTTests, "A1", &header); err != nil {
		return apperrors.Export("write t-test header", err)
	}

	names := make([]string, 0, len(tests))
	for name := range tests {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		row := toInterfaces(tTestRow(name, tests[name]))
		if err := f.SetSheetRow(sheetTTests, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return apperrors.Export("write t-test row", err)
		}
	}
	return nil
}

func (w *Writer) writeBreakpointsSheet(f *excelize.File, seg *changepoint.Segmentation) error {
	if _, err := f.NewSheet(sheetBreakpoints); err != nil {
		return apperrors.Export("create breakpoints sheet", err)
	}

	header := []interface{}{"Position", "Date", "Year"}
	if err := f.SetSheetRow(sheetBreakpoints, "A1", &header); err != nil {
		return apperrors.Export("write breakpoints header", err)
	}
	if seg == nil {
		return nil
	}
	for i, date := range seg.ChangeDates {
		row := []interface{}{seg.Breakpoints[i], date.Format("2006-01-02"), date.Year()}
		if err := f.SetSheetRow(sheetBreakpoints, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return apperrors.Export("write breakpoints row", err)
		}
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
