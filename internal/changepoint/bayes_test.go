package changepoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "brentcli/internal/errors"
	"brentcli/internal/series"
)

func TestDetectBayesianBreak_Reproducible(t *testing.T) {
	s := stepSeries(t, []float64{10, 50}, 30)
	d := NewDetector(2, discardLogger())
	cfg := DefaultSamplerConfig()

	first, err := d.DetectBayesianBreak(context.Background(), s, cfg)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := d.DetectBayesianBreak(context.Background(), s, cfg)
		require.NoError(t, err)
		assert.Equal(t, first.BreakIndex, again.BreakIndex)
		assert.Equal(t, first.BreakDate, again.BreakDate)
		assert.Equal(t, first.Mu1, again.Mu1)
		assert.Equal(t, first.Sigma2, again.Sigma2)
	}
}

func TestDetectBayesianBreak_LocatesBreak(t *testing.T) {
	s := stepSeries(t, []float64{10, 50}, 30)
	d := NewDetector(2, discardLogger())

	// A longer budget than the default so the chains settle
	cfg := SamplerConfig{Draws: 200, Tune: 100, Chains: 2, Seed: 42}

	estimate, err := d.DetectBayesianBreak(context.Background(), s, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 30, estimate.BreakIndex, 4)
	assert.Equal(t, s.At(estimate.BreakIndex).Date, estimate.BreakDate)
	assert.Len(t, estimate.TauSamples, cfg.Draws*cfg.Chains)

	// Regime parameters should straddle the two levels
	assert.Less(t, estimate.Mu1, estimate.Mu2)
}

func TestDetectBayesianBreak_ConstantSeries(t *testing.T) {
	var points []series.Point
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		points = append(points, series.Point{Date: date, Price: 42})
		date = date.AddDate(0, 0, 1)
	}
	s, err := series.New(points)
	require.NoError(t, err)

	d := NewDetector(2, discardLogger())
	_, err = d.DetectBayesianBreak(context.Background(), s, DefaultSamplerConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInference))
}

func TestDetectBayesianBreak_RejectsBadInput(t *testing.T) {
	d := NewDetector(2, discardLogger())
	s := stepSeries(t, []float64{10, 50}, 30)

	t.Run("empty_series", func(t *testing.T) {
		_, err := d.DetectBayesianBreak(context.Background(), nil, DefaultSamplerConfig())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDataShape))
	})

	t.Run("too_few_points", func(t *testing.T) {
		tiny := stepSeries(t, []float64{10}, 3)
		_, err := d.DetectBayesianBreak(context.Background(), tiny, DefaultSamplerConfig())
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDataShape))
	})

	t.Run("zero_draws", func(t *testing.T) {
		cfg := DefaultSamplerConfig()
		cfg.Draws = 0
		_, err := d.DetectBayesianBreak(context.Background(), s, cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDataShape))
	})

	t.Run("zero_chains", func(t *testing.T) {
		cfg := DefaultSamplerConfig()
		cfg.Chains = 0
		_, err := d.DetectBayesianBreak(context.Background(), s, cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrDataShape))
	})
}

func TestMedianInt(t *testing.T) {
	assert.Equal(t, 3, medianInt([]int{1, 3, 5}))
	assert.Equal(t, 2, medianInt([]int{1, 2, 3, 4}))
	assert.Equal(t, 7, medianInt([]int{7}))
	assert.Equal(t, 5, medianInt([]int{9, 1, 5}))
}
