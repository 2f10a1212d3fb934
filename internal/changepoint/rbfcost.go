package changepoint

import (
	"math"
	"sort"

	"brentcli/internal/series"
)

// maxBandwidthPairs caps how many pairwise distances feed the median
// bandwidth heuristic; beyond it pairs are sampled with a fixed stride so
// the result stays deterministic.
const maxBandwidthPairs = 2_000_000

// rbfCost measures within-segment heterogeneity under a Gaussian kernel.
// For a segment [a, b) the cost is (b-a) - S(a,b)/(b-a), where S sums the
// kernel over all point pairs in the segment. The bandwidth follows the
// median heuristic over pairwise squared distances of the whole signal.
type rbfCost struct {
	values []float64
	gamma  float64
}

func newRBFCost(values []float64) *rbfCost {
	return &rbfCost{values: values, gamma: medianHeuristic(values)}
}

// k evaluates the Gaussian kernel between points i and j
func (c *rbfCost) k(i, j int) float64 {
	d := c.values[i] - c.values[j]
	return math.Exp(-c.gamma * d * d)
}

// splitSums returns, for segment [l, r), the kernel sums needed to price
// every split: sumTo[t-l] = S(l, t) and sumFrom[t-l] = S(t, r) for t in
// [l, r]. Both are built incrementally, O((r-l)^2) kernel evaluations total.
func (c *rbfCost) splitSums(l, r int) (sumTo, sumFrom []float64) {
	n := r - l
	sumTo = make([]float64, n+1)
	sumFrom = make([]float64, n+1)

	for t := l; t < r; t++ {
		row := 0.0
		for i := l; i < t; i++ {
			row += c.k(i, t)
		}
		sumTo[t-l+1] = sumTo[t-l] + 2*row + 1 // k(t,t) == 1
	}

	for t := r - 1; t >= l; t-- {
		row := 0.0
		for j := t + 1; j < r; j++ {
			row += c.k(t, j)
		}
		sumFrom[t-l] = sumFrom[t-l+1] + 2*row + 1
	}

	return sumTo, sumFrom
}

// segmentCost converts a kernel sum into the segment cost
func segmentCost(kernelSum float64, length int) float64 {
	if length <= 0 {
		return 0
	}
	return float64(length) - kernelSum/float64(length)
}

// medianHeuristic returns 1/median of the pairwise squared distances.
// Falls back to 1 for a degenerate (constant) signal.
func medianHeuristic(values []float64) float64 {
	n := len(values)
	totalPairs := n * (n - 1) / 2
	if totalPairs == 0 {
		return 1
	}

	stride := 1
	if totalPairs > maxBandwidthPairs {
		stride = totalPairs/maxBandwidthPairs + 1
	}

	dists := make([]float64, 0, totalPairs/stride+1)
	count := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if count%stride == 0 {
				d := values[i] - values[j]
				dists = append(dists, d*d)
			}
			count++
		}
	}

	sort.Float64s(dists)
	mid := len(dists) / 2
	med := dists[mid]
	if len(dists)%2 == 0 {
		med = (dists[mid-1] + dists[mid]) / 2
	}
	if med == 0 {
		return 1
	}
	return 1 / med
}

// finiteValues extracts the finite prices and their positions in the series
func finiteValues(s *series.PriceSeries) (values []float64, positions []int) {
	for i := 0; i < s.Len(); i++ {
		if v := s.At(i).Price; !math.IsNaN(v) {
			values = append(values, v)
			positions = append(positions, i)
		}
	}
	return values, positions
}
