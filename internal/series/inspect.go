package series

import (
	"log/slog"
	"math"
	"sort"

	apperrors "brentcli/internal/errors"
)

// SummaryStats describes the distribution of the price column.
// Quartiles use linear interpolation; Std is the sample standard deviation.
type SummaryStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// InspectionReport holds structural and statistical diagnostics for a series
type InspectionReport struct {
	Rows             int          `json:"rows"`
	MissingPrices    int          `json:"missing_prices"`
	DuplicateDates   int          `json:"duplicate_dates"`
	Summary          SummaryStats `json:"summary"`
	TrendCorrelation float64      `json:"trend_correlation"`
	OutlierCount     int          `json:"outlier_count"`
	OutlierLowBound  float64      `json:"outlier_low_bound"`
	OutlierHighBound float64      `json:"outlier_high_bound"`
}

// Inspect computes structural diagnostics over a loaded series: missing and
// duplicate counts, summary statistics, the Pearson correlation of price
// against elapsed days (a trend proxy; the price column is the only numeric
// column so there is no cross-column matrix to report), and the IQR outlier
// count. A nil or empty series is a DATA_SHAPE error. A series whose prices
// are all missing yields NaN summary fields rather than an error.
func Inspect(s *PriceSeries, logger *slog.Logger) (*InspectionReport, error) {
	if s == nil || s.Len() == 0 {
		return nil, apperrors.DataShape("cannot inspect an empty series")
	}

	report := &InspectionReport{
		Rows:           s.Len(),
		MissingPrices:  s.MissingPrices(),
		DuplicateDates: s.DuplicateDates(),
	}

	finite := finitePrices(s)
	report.Summary = summarize(finite)
	report.TrendCorrelation = trendCorrelation(s)

	if len(finite) > 0 {
		iqr := report.Summary.Q3 - report.Summary.Q1
		report.OutlierLowBound = report.Summary.Q1 - 1.5*iqr
		report.OutlierHighBound = report.Summary.Q3 + 1.5*iqr
		for _, v := range finite {
			if v < report.OutlierLowBound || v > report.OutlierHighBound {
				report.OutlierCount++
			}
		}
	} else {
		report.OutlierLowBound = math.NaN()
		report.OutlierHighBound = math.NaN()
	}

	logger.Info("series inspection complete",
		"rows", report.Rows,
		"missing_prices", report.MissingPrices,
		"duplicate_dates", report.DuplicateDates,
		"mean", report.Summary.Mean,
		"trend_correlation", report.TrendCorrelation,
		"outliers", report.OutlierCount,
	)
	if report.MissingPrices > 0 {
		logger.Warn("series contains missing prices", "count", report.MissingPrices)
	}

	return report, nil
}

// finitePrices returns the prices with missing values removed
func finitePrices(s *PriceSeries) []float64 {
	out := make([]float64, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if v := s.At(i).Price; !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// summarize computes summary statistics over the finite prices
func summarize(values []float64) SummaryStats {
	if len(values) == 0 {
		nan := math.NaN()
		return SummaryStats{Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := meanOf(values)
	return SummaryStats{
		Count:  len(values),
		Mean:   mean,
		Std:    sampleStd(values, mean),
		Min:    sorted[0],
		Q1:     percentile(sorted, 0.25),
		Median: percentile(sorted, 0.50),
		Q3:     percentile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
}

// trendCorrelation returns the Pearson correlation between price and days
// elapsed since the first observation. NaN when fewer than two finite prices
// exist or the prices are constant.
func trendCorrelation(s *PriceSeries) float64 {
	first := s.First()
	var xs, ys []float64
	for i := 0; i < s.Len(); i++ {
		p := s.At(i)
		if math.IsNaN(p.Price) {
			continue
		}
		xs = append(xs, p.Date.Sub(first).Hours()/24)
		ys = append(ys, p.Price)
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	mx, my := meanOf(xs), meanOf(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

// meanOf returns the arithmetic mean of values
func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd returns the sample standard deviation (n-1 denominator)
func sampleStd(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// percentile returns the p-th percentile of an already-sorted slice using
// linear interpolation, p in [0, 1]
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
