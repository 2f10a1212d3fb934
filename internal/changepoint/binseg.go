// Package changepoint finds points in a price series where the statistical
// regime shifts. Two detectors are provided: a deterministic binary
// segmentation over an RBF kernel cost, and a Bayesian single-break model
// sampled with a seeded Markov chain.
package changepoint

import (
	"context"
	"log/slog"
	"sort"
	"time"

	apperrors "brentcli/internal/errors"
	"brentcli/internal/infrastructure"
	"brentcli/internal/series"
)

// Detector runs change-point detection over a price series
type Detector struct {
	minSegment int
	logger     *slog.Logger
}

// NewDetector creates a detector. minSegment is the smallest admissible
// segment length (at least 2); a nil logger falls back to slog.Default.
func NewDetector(minSegment int, logger *slog.Logger) *Detector {
	if minSegment < 2 {
		minSegment = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{minSegment: minSegment, logger: logger}
}

// Segmentation is the result of deterministic break detection.
// Breakpoints are strictly increasing positions into the series; the last
// entry is always the series length, used as an end sentinel and excluded
// from the reported change dates.
type Segmentation struct {
	Breakpoints []int       `json:"breakpoints"`
	ChangeDates []time.Time `json:"change_dates"`
}

// ChangeYears returns the calendar year of each detected break, sentinel
// excluded
func (g *Segmentation) ChangeYears() []int {
	years := make([]int, len(g.ChangeDates))
	for i, d := range g.ChangeDates {
		years[i] = d.Year()
	}
	return years
}

// DetectBreaks finds up to nBreaks regime changes using binary segmentation
// with an RBF kernel cost over the price values. The search is greedy: the
// segment split yielding the largest cost reduction is applied first, then
// the two halves are searched again, until nBreaks splits are found or no
// admissible improving split remains. The result is deterministic for a
// fixed series and nBreaks.
//
// Missing prices are excluded from the cost computation; breakpoint
// positions refer to the full series.
func (d *Detector) DetectBreaks(ctx context.Context, s *series.PriceSeries, nBreaks int) (*Segmentation, error) {
	_, span := infrastructure.Tracer().Start(ctx, "changepoint.DetectBreaks")
	defer span.End()

	if s == nil || s.Len() == 0 {
		return nil, apperrors.DataShape("cannot detect breaks in an empty series")
	}
	if nBreaks < 1 {
		return nil, apperrors.DataShape("break count must be at least 1, got %d", nBreaks)
	}

	// Work on the finite prices, remembering their series positions
	values, positions := finiteValues(s)
	if len(values) < (nBreaks+1)*d.minSegment {
		return nil, apperrors.DataShape(
			"series has %d usable points, need at least %d for %d breaks",
			len(values), (nBreaks+1)*d.minSegment, nBreaks)
	}

	start := time.Now()
	cost := newRBFCost(values)

	splits := d.binarySegmentation(cost, len(values), nBreaks)
	sort.Ints(splits)

	seg := &Segmentation{}
	for _, sp := range splits {
		seg.Breakpoints = append(seg.Breakpoints, positions[sp])
		seg.ChangeDates = append(seg.ChangeDates, s.At(positions[sp]).Date)
	}
	seg.Breakpoints = append(seg.Breakpoints, s.Len())

	d.logger.Info("deterministic break detection complete",
		"requested_breaks", nBreaks,
		"found_breaks", len(splits),
		"change_years", seg.ChangeYears(),
		"elapsed", time.Since(start),
	)
	if len(splits) < nBreaks {
		d.logger.Warn("fewer breaks than requested: no further improving split exists",
			"requested", nBreaks,
			"found", len(splits),
		)
	}

	return seg, nil
}

// candidate is a segment together with its best admissible split
type candidate struct {
	left, right int // segment bounds [left, right)
	split       int
	gain        float64
}

// binarySegmentation greedily applies the highest-gain split until nBreaks
// splits are made or no candidate improves the cost
func (d *Detector) binarySegmentation(cost *rbfCost, n, nBreaks int) []int {
	var splits []int
	segments := []candidate{d.bestSplit(cost, 0, n)}

	for len(splits) < nBreaks {
		best := -1
		for i, c := range segments {
			if c.split < 0 {
				continue
			}
			if best < 0 || c.gain > segments[best].gain {
				best = i
			}
		}
		if best < 0 || segments[best].gain <= 0 {
			break
		}

		chosen := segments[best]
		splits = append(splits, chosen.split)
		segments[best] = d.bestSplit(cost, chosen.left, chosen.split)
		segments = append(segments, d.bestSplit(cost, chosen.split, chosen.right))
	}

	return splits
}

// bestSplit scans segment [left, right) for the split minimizing the summed
// cost of the two halves. split is -1 when no admissible split exists.
func (d *Detector) bestSplit(cost *rbfCost, left, right int) candidate {
	c := candidate{left: left, right: right, split: -1}
	if right-left < 2*d.minSegment {
		return c
	}

	sumTo, sumFrom := cost.splitSums(left, right)
	whole := segmentCost(sumTo[right-left], right-left)

	for t := left + d.minSegment; t <= right-d.minSegment; t++ {
		costLeft := segmentCost(sumTo[t-left], t-left)
		costRight := segmentCost(sumFrom[t-left], right-t)
		gain := whole - costLeft - costRight
		if c.split < 0 || gain > c.gain {
			c.split = t
			c.gain = gain
		}
	}
	return c
}
