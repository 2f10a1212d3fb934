// Package series provides the price series data model, CSV ingestion and
// structural diagnostics for the analysis pipeline.
//
// A PriceSeries is an ordered sequence of (date, price) observations sorted
// ascending by date. A missing price is represented as NaN, never dropped
// silently; duplicate dates are kept and reported as an anomaly. The series
// is read-only for the detection and event-analysis components.
package series

import (
	"math"
	"sort"
	"time"

	apperrors "brentcli/internal/errors"
)

// Point is a single observation in the price series.
// A NaN price marks a row whose price could not be parsed.
type Point struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries holds observations sorted ascending by date
type PriceSeries struct {
	points []Point
	index  map[time.Time]int // date -> first occurrence
}

// New builds a PriceSeries from points, sorting them by date (stable, so
// duplicate dates keep their source order). An empty input is a DATA_SHAPE
// error.
func New(points []Point) (*PriceSeries, error) {
	if len(points) == 0 {
		return nil, apperrors.DataShape("series is empty")
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	index := make(map[time.Time]int, len(sorted))
	for i, p := range sorted {
		if _, seen := index[p.Date]; !seen {
			index[p.Date] = i
		}
	}

	return &PriceSeries{points: sorted, index: index}, nil
}

// Len returns the number of observations
func (s *PriceSeries) Len() int {
	return len(s.points)
}

// At returns the observation at position i
func (s *PriceSeries) At(i int) Point {
	return s.points[i]
}

// First returns the earliest timestamp in the series
func (s *PriceSeries) First() time.Time {
	return s.points[0].Date
}

// Last returns the latest timestamp in the series
func (s *PriceSeries) Last() time.Time {
	return s.points[len(s.points)-1].Date
}

// Covers reports whether t falls inside the series' date range (inclusive)
func (s *PriceSeries) Covers(t time.Time) bool {
	return !t.Before(s.First()) && !t.After(s.Last())
}

// PriceOn returns the price recorded exactly on the given date. The second
// return is false when the date is absent from the index or its price is
// missing. Duplicate dates resolve to the first occurrence.
func (s *PriceSeries) PriceOn(date time.Time) (float64, bool) {
	i, ok := s.index[date]
	if !ok {
		return 0, false
	}
	price := s.points[i].Price
	if math.IsNaN(price) {
		return 0, false
	}
	return price, true
}

// Prices returns a copy of the price values in date order
func (s *PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Price
	}
	return out
}

// Timestamps returns a copy of the observation dates in order
func (s *PriceSeries) Timestamps() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Date
	}
	return out
}

// Slice returns the sub-series with dates in [from, to] inclusive.
// The result may be empty; it shares no state with the receiver.
func (s *PriceSeries) Slice(from, to time.Time) []Point {
	var out []Point
	for _, p := range s.points {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Mean returns the arithmetic mean of the finite prices.
// Returns NaN when no finite price exists.
func (s *PriceSeries) Mean() float64 {
	var sum float64
	var n int
	for _, p := range s.points {
		if math.IsNaN(p.Price) {
			continue
		}
		sum += p.Price
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// CUSUM returns the cumulative sum of deviations from the series mean, one
// value per observation. Missing prices contribute nothing; their position
// repeats the running total. Used as a visual diagnostic by the plotting
// consumer, not as a detection algorithm.
func (s *PriceSeries) CUSUM() []float64 {
	mean := s.Mean()
	out := make([]float64, len(s.points))
	var running float64
	for i, p := range s.points {
		if !math.IsNaN(p.Price) {
			running += p.Price - mean
		}
		out[i] = running
	}
	return out
}

// MissingPrices returns the number of observations with a missing price
func (s *PriceSeries) MissingPrices() int {
	n := 0
	for _, p := range s.points {
		if math.IsNaN(p.Price) {
			n++
		}
	}
	return n
}

// DuplicateDates returns the number of observations sharing an earlier
// observation's date
func (s *PriceSeries) DuplicateDates() int {
	return len(s.points) - len(s.index)
}
