package changepoint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "brentcli/internal/errors"
	"brentcli/internal/series"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stepSeries builds a series whose prices jump between the given levels,
// holding each level for segmentLen consecutive days
func stepSeries(t *testing.T, levels []float64, segmentLen int) *series.PriceSeries {
	t.Helper()
	var points []series.Point
	date := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, level := range levels {
		for i := 0; i < segmentLen; i++ {
			// Small deterministic wiggle so segments are not exactly constant
			wiggle := 0.05 * math.Sin(float64(len(points)))
			points = append(points, series.Point{Date: date, Price: level + wiggle})
			date = date.AddDate(0, 0, 1)
		}
	}
	s, err := series.New(points)
	require.NoError(t, err)
	return s
}

func TestDetectBreaks_FindsObviousBreak(t *testing.T) {
	s := stepSeries(t, []float64{10, 50}, 30)
	d := NewDetector(2, discardLogger())

	seg, err := d.DetectBreaks(context.Background(), s, 1)
	require.NoError(t, err)

	require.Len(t, seg.Breakpoints, 2)
	assert.Equal(t, s.Len(), seg.Breakpoints[len(seg.Breakpoints)-1])
	// The detected break should sit at the level change
	assert.InDelta(t, 30, seg.Breakpoints[0], 2)
}

func TestDetectBreaks_Deterministic(t *testing.T) {
	s := stepSeries(t, []float64{20, 80, 40}, 25)
	d := NewDetector(2, discardLogger())

	first, err := d.DetectBreaks(context.Background(), s, 2)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := d.DetectBreaks(context.Background(), s, 2)
		require.NoError(t, err)
		assert.Equal(t, first.Breakpoints, again.Breakpoints)
	}
}

func TestDetectBreaks_MonotonicWithSentinel(t *testing.T) {
	s := stepSeries(t, []float64{10, 60, 25, 90}, 20)
	d := NewDetector(2, discardLogger())

	seg, err := d.DetectBreaks(context.Background(), s, 3)
	require.NoError(t, err)

	for i := 1; i < len(seg.Breakpoints); i++ {
		assert.Greater(t, seg.Breakpoints[i], seg.Breakpoints[i-1])
	}
	assert.Equal(t, s.Len(), seg.Breakpoints[len(seg.Breakpoints)-1])
	// One change date per break, sentinel excluded
	assert.Len(t, seg.ChangeDates, len(seg.Breakpoints)-1)
}

func TestDetectBreaks_ChangeYears(t *testing.T) {
	// 200 days per level starting 2000-01-01: the jump lands in 2000-07
	s := stepSeries(t, []float64{15, 70}, 200)
	d := NewDetector(2, discardLogger())

	seg, err := d.DetectBreaks(context.Background(), s, 1)
	require.NoError(t, err)

	years := seg.ChangeYears()
	require.Len(t, years, 1)
	assert.Equal(t, 2000, years[0])
}

func TestDetectBreaks_ConstantSeriesHasNoImprovingSplit(t *testing.T) {
	var points []series.Point
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		points = append(points, series.Point{Date: date, Price: 42})
		date = date.AddDate(0, 0, 1)
	}
	s, err := series.New(points)
	require.NoError(t, err)

	d := NewDetector(2, discardLogger())
	seg, err := d.DetectBreaks(context.Background(), s, 3)
	require.NoError(t, err)

	// Only the end sentinel remains
	assert.Equal(t, []int{s.Len()}, seg.Breakpoints)
	assert.Empty(t, seg.ChangeDates)
}

func TestDetectBreaks_RejectsBadInput(t *testing.T) {
	d := NewDetector(2, discardLogger())
	small := stepSeries(t, []float64{10}, 5)

	t.Run("empty_series", func(t *testing.T) {
		_, err := d.DetectBreaks(context.Background(), nil, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDataShape))
	})

	t.Run("zero_breaks", func(t *testing.T) {
		_, err := d.DetectBreaks(context.Background(), small, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDataShape))
	})

	t.Run("too_few_points", func(t *testing.T) {
		_, err := d.DetectBreaks(context.Background(), small, 2)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDataShape))
	})
}

func TestMedianHeuristic_ConstantSignal(t *testing.T) {
	assert.Equal(t, 1.0, medianHeuristic([]float64{5, 5, 5, 5}))
	assert.Equal(t, 1.0, medianHeuristic([]float64{5}))
}

func TestMedianHeuristic_EvenPairCountInterpolates(t *testing.T) {
	// 4 points give 6 pairwise squared distances: [1 1 1 4 4 9],
	// whose median interpolates to (1+4)/2 = 2.5.
	gamma := medianHeuristic([]float64{0, 1, 2, 3})
	assert.InDelta(t, 1/2.5, gamma, 1e-12)
}
