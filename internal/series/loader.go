package series

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "brentcli/internal/errors"
)

// dateLayouts are the accepted date formats, tried in order.
// The Brent historical file uses "20-May-87"; ISO dates cover exports from
// other tools.
var dateLayouts = []string{
	"2006-01-02",
	"02-Jan-06",
	"Jan 02, 2006",
	"01/02/2006",
	"2006/01/02",
}

// LoadReport summarizes what the loader did with the raw file.
// Coerced rows are the explicit record of data that could not be used as-is;
// nothing is repaired silently.
type LoadReport struct {
	RowsRead       int `json:"rows_read"`
	RowsKept       int `json:"rows_kept"`
	CoercedDates   int `json:"coerced_dates"`
	MissingPrices  int `json:"missing_prices"`
	DuplicateDates int `json:"duplicate_dates"`
}

// Load reads a price series from a CSV file with Date and Price columns.
// Header matching is case-insensitive and tolerates a UTF-8 BOM; extra
// columns are ignored. A row whose date cannot be parsed is dropped and
// counted; a row whose price cannot be parsed keeps its date with a NaN
// price. The result is sorted ascending by date.
func Load(path string, logger *slog.Logger) (*PriceSeries, LoadReport, error) {
	var report LoadReport

	file, err := os.Open(path)
	if err != nil {
		return nil, report, fmt.Errorf("open series file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, report, fmt.Errorf("read series file: %w", err)
	}
	if len(records) == 0 {
		return nil, report, apperrors.DataShape("series file %s is empty", path)
	}

	dateCol, priceCol, err := findColumns(records[0])
	if err != nil {
		return nil, report, err
	}

	points := make([]Point, 0, len(records)-1)
	for _, row := range records[1:] {
		report.RowsRead++

		if len(row) <= dateCol || len(row) <= priceCol {
			report.CoercedDates++
			continue
		}

		date, ok := parseDate(row[dateCol])
		if !ok {
			report.CoercedDates++
			continue
		}

		price := math.NaN()
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[priceCol]), 64); err == nil {
			price = v
		} else {
			report.MissingPrices++
		}

		points = append(points, Point{Date: date, Price: price})
	}
	report.RowsKept = len(points)

	s, err := New(points)
	if err != nil {
		return nil, report, err
	}
	report.DuplicateDates = s.DuplicateDates()

	logger.Info("price series loaded",
		"path", path,
		"rows_read", report.RowsRead,
		"rows_kept", report.RowsKept,
		"coerced_dates", report.CoercedDates,
		"missing_prices", report.MissingPrices,
		"first", s.First().Format("2006-01-02"),
		"last", s.Last().Format("2006-01-02"),
	)
	if report.CoercedDates > 0 {
		logger.Warn("rows with unparseable dates were dropped", "count", report.CoercedDates)
	}
	if report.DuplicateDates > 0 {
		logger.Warn("duplicate dates found in series", "count", report.DuplicateDates)
	}

	return s, report, nil
}

// findColumns locates the Date and Price columns in the header row
func findColumns(header []string) (dateCol, priceCol int, err error) {
	dateCol, priceCol = -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch name {
		case "date":
			dateCol = i
		case "price":
			priceCol = i
		}
	}
	if dateCol < 0 || priceCol < 0 {
		return 0, 0, apperrors.DataShape("series file is missing Date or Price column (header: %v)", header)
	}
	return dateCol, priceCol, nil
}

// parseDate tries the accepted layouts, normalizing to UTC midnight
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
