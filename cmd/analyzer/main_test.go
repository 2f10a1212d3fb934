package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSeriesCSV writes a daily series with a level shift halfway through
func writeSeriesCSV(t *testing.T, dir string, days int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Price\n")
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		price := 20.0
		if i >= days/2 {
			price = 60.0
		}
		price += 0.1 * float64(i%7)
		b.WriteString(fmt.Sprintf("%s,%.2f\n", date.Format("2006-01-02"), price))
		date = date.AddDate(0, 0, 1)
	}

	path := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func writeEventsYAML(t *testing.T, dir string) string {
	t.Helper()
	content := `
"Mid-Series Shock": "2020-07-19"
"Out Of Range Event": "1999-01-01"
`
	path := filepath.Join(dir, "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeSeriesCSV(t, dir, 400)
	eventsPath := writeEventsYAML(t, dir)
	outDir := filepath.Join(dir, "reports")

	err := run(dataPath, eventsPath, "", outDir, 1, true)
	require.NoError(t, err)

	for _, name := range []string{"breakpoints.csv", "event_impact.csv", "event_ttests.csv", "analysis_report.xlsx"} {
		_, statErr := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, statErr, "expected report %s", name)
	}
}

func TestRun_WithBayesianDetection(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeSeriesCSV(t, dir, 120)
	outDir := filepath.Join(dir, "reports")

	err := run(dataPath, "", "", outDir, 1, false)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(outDir, "analysis_report.xlsx"))
	assert.NoError(t, statErr)
}

func TestRun_MissingDataFile(t *testing.T) {
	dir := t.TempDir()
	err := run(filepath.Join(dir, "missing.csv"), "", "", dir, 1, true)
	assert.Error(t, err)
}

func TestRun_BadConfigFile(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeSeriesCSV(t, dir, 50)

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("detection:\n  breaks: 0\n"), 0644))

	err := run(dataPath, "", configPath, dir, 0, true)
	assert.Error(t, err)
}
