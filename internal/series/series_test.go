package series

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "brentcli/internal/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_SortsAndIndexes(t *testing.T) {
	s, err := New([]Point{
		{Date: day(2020, 3, 1), Price: 30},
		{Date: day(2020, 1, 1), Price: 10},
		{Date: day(2020, 2, 1), Price: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, day(2020, 1, 1), s.First())
	assert.Equal(t, day(2020, 3, 1), s.Last())
	assert.Equal(t, []float64{10, 20, 30}, s.Prices())
}

func TestNew_Empty(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDataShape))
}

func TestPriceOn(t *testing.T) {
	s, err := New([]Point{
		{Date: day(2020, 1, 1), Price: 50},
		{Date: day(2020, 1, 2), Price: math.NaN()},
	})
	require.NoError(t, err)

	price, ok := s.PriceOn(day(2020, 1, 1))
	assert.True(t, ok)
	assert.Equal(t, 50.0, price)

	// Missing price resolves to absent, not zero
	_, ok = s.PriceOn(day(2020, 1, 2))
	assert.False(t, ok)

	// Date not in the index
	_, ok = s.PriceOn(day(2020, 1, 3))
	assert.False(t, ok)
}

func TestPriceOn_DuplicateDateResolvesToFirst(t *testing.T) {
	s, err := New([]Point{
		{Date: day(2020, 1, 1), Price: 11},
		{Date: day(2020, 1, 1), Price: 99},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, s.DuplicateDates())

	price, ok := s.PriceOn(day(2020, 1, 1))
	assert.True(t, ok)
	assert.Equal(t, 11.0, price)
}

func TestSlice_Inclusive(t *testing.T) {
	s, err := New([]Point{
		{Date: day(2020, 1, 1), Price: 1},
		{Date: day(2020, 1, 2), Price: 2},
		{Date: day(2020, 1, 3), Price: 3},
		{Date: day(2020, 1, 4), Price: 4},
	})
	require.NoError(t, err)

	window := s.Slice(day(2020, 1, 2), day(2020, 1, 3))
	require.Len(t, window, 2)
	assert.Equal(t, 2.0, window[0].Price)
	assert.Equal(t, 3.0, window[1].Price)

	assert.Empty(t, s.Slice(day(2021, 1, 1), day(2021, 2, 1)))
}

func TestCovers(t *testing.T) {
	s, err := New([]Point{
		{Date: day(2020, 1, 2), Price: 1},
		{Date: day(2020, 1, 10), Price: 2},
	})
	require.NoError(t, err)

	assert.True(t, s.Covers(day(2020, 1, 2)))
	assert.True(t, s.Covers(day(2020, 1, 5)))
	assert.True(t, s.Covers(day(2020, 1, 10)))
	assert.False(t, s.Covers(day(2020, 1, 1)))
	assert.False(t, s.Covers(day(2020, 1, 11)))
}

func TestMean_SkipsMissing(t *testing.T) {
	s, err := New([]Point{
		{Date: day(2020, 1, 1), Price: 10},
		{Date: day(2020, 1, 2), Price: math.NaN()},
		{Date: day(2020, 1, 3), Price: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, 15.0, s.Mean())
	assert.Equal(t, 1, s.MissingPrices())
}

func TestCUSUM(t *testing.T) {
	s, err := New([]Point{
		{Date: day(2020, 1, 1), Price: 10},
		{Date: day(2020, 1, 2), Price: 20},
		{Date: day(2020, 1, 3), Price: 30},
	})
	require.NoError(t, err)

	cusum := s.CUSUM()
	require.Len(t, cusum, 3)
	assert.InDelta(t, -10, cusum[0], 1e-9)
	assert.InDelta(t, -10, cusum[1], 1e-9)
	assert.InDelta(t, 0, cusum[2], 1e-9)
}
