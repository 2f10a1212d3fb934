package events

import (
	"context"
	"log/slog"
	"math"
	"time"

	apperrors "brentcli/internal/errors"
	"brentcli/internal/infrastructure"
	"brentcli/internal/series"
)

// Side selects which half of an event window a computation runs over
type Side int

const (
	// SideBefore covers observations with timestamp <= event date
	SideBefore Side = iota
	// SideAfter covers observations with timestamp >= event date
	SideAfter
)

// String returns the side's name
func (s Side) String() string {
	if s == SideBefore {
		return "before"
	}
	return "after"
}

// percentage-change offsets reported per event, in days
const (
	offset1M = 30
	offset3M = 90
	offset6M = 180
)

// Analyzer measures price reactions around events. Each call owns its own
// derived structures; the series itself is read-only.
type Analyzer struct {
	windowDaysBefore int
	windowDaysAfter  int
	logger           *slog.Logger
}

// NewAnalyzer creates an event-impact analyzer with symmetric window sizes
// in days (the reference analysis uses 180/180). A nil logger falls back to
// slog.Default.
func NewAnalyzer(windowDaysBefore, windowDaysAfter int, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		windowDaysBefore: windowDaysBefore,
		windowDaysAfter:  windowDaysAfter,
		logger:           logger,
	}
}

// Run processes every event independently: an event whose date is outside
// the series coverage is logged and excluded, without aborting the rest.
// The returned tables are partial results plus, per skipped event, a log
// entry; no numeric result is fabricated for missing data.
func (a *Analyzer) Run(ctx context.Context, s *series.PriceSeries, evs []Event) ([]ImpactRecord, map[string]TTestResult, error) {
	_, span := infrastructure.Tracer().Start(ctx, "events.Run")
	defer span.End()

	if s == nil || s.Len() == 0 {
		return nil, nil, apperrors.DataShape("cannot analyze events over an empty series")
	}

	start := time.Now()
	records := make([]ImpactRecord, 0, len(evs))
	tTests := make(map[string]TTestResult, len(evs))

	for _, ev := range evs {
		if !s.Covers(ev.Date) {
			oor := apperrors.OutOfRangeEvent(ev.Name, ev.Date.Format("2006-01-02"))
			a.logger.Warn("event outside series coverage, skipping",
				"event", ev.Name,
				"date", ev.Date.Format("2006-01-02"),
				"error", oor,
			)
			continue
		}

		window := s.Slice(
			ev.Date.AddDate(0, 0, -a.windowDaysBefore),
			ev.Date.AddDate(0, 0, a.windowDaysAfter),
		)

		record := ImpactRecord{
			Event:                  ev.Name,
			Date:                   ev.Date,
			Change1M:               a.PercentageChange(s, ev.Date, offset1M),
			Change3M:               a.PercentageChange(s, ev.Date, offset3M),
			Change6M:               a.PercentageChange(s, ev.Date, offset6M),
			CumulativeReturnBefore: a.CumulativeReturn(window, ev.Date, SideBefore),
			CumulativeReturnAfter:  a.CumulativeReturn(window, ev.Date, SideAfter),
		}
		records = append(records, record)

		if result, ok := a.tTest(window, ev); ok {
			tTests[ev.Name] = result
		}
	}

	a.logger.Info("event impact analysis complete",
		"events_supplied", len(evs),
		"events_processed", len(records),
		"t_tests", len(tTests),
		"elapsed", time.Since(start),
	)

	return records, tTests, nil
}

// PercentageChange returns the percentage price change between the exact
// dates (eventDate - offsetDays) and (eventDate + offsetDays). Absent dates
// and missing prices yield None: sparse or gapped series are expected, so a
// missing offset is legitimate data, not an error. A zero before-price also
// yields None rather than an infinite change, keeping exported cells empty
// instead of unrepresentable.
func (a *Analyzer) PercentageChange(s *series.PriceSeries, eventDate time.Time, offsetDays int) OptionalFloat {
	before, ok := s.PriceOn(eventDate.AddDate(0, 0, -offsetDays))
	if !ok {
		return None()
	}
	after, ok := s.PriceOn(eventDate.AddDate(0, 0, offsetDays))
	if !ok {
		return None()
	}
	if before == 0 {
		return None()
	}
	return Some((after - before) / before * 100)
}

// CumulativeReturn compounds the daily percentage changes across the chosen
// side of the window and subtracts 1. Missing prices are skipped pairwise;
// fewer than 2 usable points yields None.
func (a *Analyzer) CumulativeReturn(window []series.Point, eventDate time.Time, side Side) OptionalFloat {
	var prices []float64
	for _, p := range window {
		if side == SideBefore && p.Date.After(eventDate) {
			continue
		}
		if side == SideAfter && p.Date.Before(eventDate) {
			continue
		}
		if math.IsNaN(p.Price) {
			continue
		}
		prices = append(prices, p.Price)
	}
	if len(prices) < 2 {
		return None()
	}

	compounded := 1.0
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			return None()
		}
		compounded *= 1 + (prices[i]-prices[i-1])/prices[i-1]
	}
	return Some(compounded - 1)
}

// tTest runs a Welch two-sample t-test comparing the before and after price
// samples, missing values omitted. Returns false when either side has too
// few points or the samples are degenerate; the caller logs and moves on.
func (a *Analyzer) tTest(window []series.Point, ev Event) (TTestResult, bool) {
	var before, after []float64
	for _, p := range window {
		if math.IsNaN(p.Price) {
			continue
		}
		// The event day itself belongs to both samples
		if !p.Date.After(ev.Date) {
			before = append(before, p.Price)
		}
		if !p.Date.Before(ev.Date) {
			after = append(after, p.Price)
		}
	}

	result, err := WelchTTest(before, after)
	if err != nil {
		a.logger.Warn("t-test skipped for event",
			"event", ev.Name,
			"n_before", len(before),
			"n_after", len(after),
			"reason", err.Error(),
		)
		return TTestResult{}, false
	}
	return result, true
}
