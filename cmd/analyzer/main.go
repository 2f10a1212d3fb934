// Command analyzer runs the full price analysis pipeline over a historical
// series CSV: load, inspect, change-point detection (deterministic and
// Bayesian) and event-impact analysis, then writes CSV and Excel reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"brentcli/internal/changepoint"
	"brentcli/internal/config"
	"brentcli/internal/events"
	"brentcli/internal/exporter"
	"brentcli/internal/infrastructure"
	"brentcli/internal/series"
)

func main() {
	dataPath := flag.String("data", "", "path to the price series CSV (required)")
	eventsPath := flag.String("events", "", "path to the events YAML file (name: date)")
	configPath := flag.String("config", "", "optional configuration YAML file")
	breaks := flag.Int("breaks", 0, "deterministic break count (overrides config when > 0)")
	outDir := flag.String("out", "", "output directory for reports (overrides config)")
	skipBayes := flag.Bool("skip-bayes", false, "skip the Bayesian break detection")
	flag.Parse()

	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "missing required -data flag")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*dataPath, *eventsPath, *configPath, *outDir, *breaks, *skipBayes); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(dataPath, eventsPath, configPath, outDir string, breaks int, skipBayes bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, closeLog, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer closeLog()

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	slog.SetDefault(logger)

	ctx := context.Background()
	shutdownTracing, err := infrastructure.SetupTracing(ctx, cfg.Tracing.Enabled, runID)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer shutdownTracing(ctx)

	ctx, span := infrastructure.Tracer().Start(ctx, "analysis.run")
	defer span.End()

	logger.Info("starting analysis",
		"data", dataPath,
		"events", eventsPath,
		"skip_bayes", skipBayes,
	)

	// Load and inspect
	s, _, err := series.Load(dataPath, logger)
	if err != nil {
		return fmt.Errorf("load series: %w", err)
	}
	if _, err := series.Inspect(s, logger); err != nil {
		return fmt.Errorf("inspect series: %w", err)
	}

	// Change-point detection
	detector := changepoint.NewDetector(cfg.Detection.MinSegmentSize, logger)

	nBreaks := cfg.Detection.Breaks
	if breaks > 0 {
		nBreaks = breaks
	}
	seg, err := detector.DetectBreaks(ctx, s, nBreaks)
	if err != nil {
		return fmt.Errorf("deterministic break detection: %w", err)
	}

	var posterior *changepoint.PosteriorEstimate
	if !skipBayes {
		posterior, err = detector.DetectBayesianBreak(ctx, s, changepoint.SamplerConfig{
			Draws:  cfg.Sampler.Draws,
			Tune:   cfg.Sampler.Tune,
			Chains: cfg.Sampler.Chains,
			Seed:   cfg.Sampler.Seed,
		})
		if err != nil {
			return fmt.Errorf("bayesian break detection: %w", err)
		}
	}

	// Event-impact analysis
	var impactRecords []events.ImpactRecord
	var tTests map[string]events.TTestResult
	if eventsPath != "" {
		evs, err := events.LoadEvents(eventsPath)
		if err != nil {
			return fmt.Errorf("load events: %w", err)
		}

		analyzer := events.NewAnalyzer(cfg.Events.WindowDaysBefore, cfg.Events.WindowDaysAfter, logger)
		impactRecords, tTests, err = analyzer.Run(ctx, s, evs)
		if err != nil {
			return fmt.Errorf("event impact analysis: %w", err)
		}
	}

	// Reports
	reportsDir := cfg.Paths.ReportsDir
	if outDir != "" {
		reportsDir = outDir
	}
	writer := exporter.NewWriter(reportsDir, logger)

	if _, err := writer.WriteBreakpointsCSV(seg); err != nil {
		return err
	}
	if eventsPath != "" {
		if _, err := writer.WriteImpactCSV(impactRecords); err != nil {
			return err
		}
		if _, err := writer.WriteTTestCSV(tTests); err != nil {
			return err
		}
	}

	meta := exporter.RunMeta{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		SeriesStart: s.First(),
		SeriesEnd:   s.Last(),
		SeriesRows:  s.Len(),
	}
	if _, err := writer.WriteWorkbook(meta, impactRecords, tTests, seg, posterior); err != nil {
		return err
	}

	logger.Info("analysis complete",
		"reports_dir", reportsDir,
		"breaks", len(seg.ChangeDates),
		"events_processed", len(impactRecords),
	)
	return nil
}
