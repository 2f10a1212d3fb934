package changepoint

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	apperrors "brentcli/internal/errors"
	"brentcli/internal/infrastructure"
	"brentcli/internal/series"
)

// SamplerConfig pins the Bayesian sampler's iteration budget and seed.
// All fields are explicit so repeated runs with the same configuration
// produce identical estimates.
type SamplerConfig struct {
	Draws  int   `json:"draws"`
	Tune   int   `json:"tune"`
	Chains int   `json:"chains"`
	Seed   int64 `json:"seed"`
}

// DefaultSamplerConfig matches the reference analysis: 20 draws, 10 tuning
// steps, 2 chains, seed 42.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{Draws: 20, Tune: 10, Chains: 2, Seed: 42}
}

// PosteriorEstimate is the result of Bayesian single-break detection.
// BreakIndex is the median of the pooled posterior samples for the break
// location; the regime parameters are posterior means, exposed for the
// plotting consumer.
type PosteriorEstimate struct {
	BreakIndex int       `json:"break_index"`
	BreakDate  time.Time `json:"break_date"`
	Mu1        float64   `json:"mu1"`
	Mu2        float64   `json:"mu2"`
	Sigma1     float64   `json:"sigma1"`
	Sigma2     float64   `json:"sigma2"`

	// TauSamples holds the pooled break-location draws, in series positions
	TauSamples []int `json:"-"`
}

// priors: regime means are Normal(series mean, muPriorSigma), regime
// standard deviations are HalfNormal(sigmaPriorSigma), matching the
// reference model.
const (
	muPriorSigma    = 5.0
	sigmaPriorSigma = 5.0
)

// DetectBayesianBreak estimates a single structural break with a
// Metropolis-within-Gibbs sampler over the model
//
//	tau      ~ DiscreteUniform(0, n-1)
//	mu1, mu2 ~ Normal(mean(prices), 5)
//	s1, s2   ~ HalfNormal(5)
//	price_i  ~ Normal(mu1, s1) if tau >= i else Normal(mu2, s2)
//
// Each chain runs cfg.Tune adaptation sweeps followed by cfg.Draws recorded
// sweeps; there is no early stopping. A degenerate series (constant prices)
// or a sampler that never finds a finite posterior surfaces an
// INFERENCE_FAILURE; no default estimate is substituted.
func (d *Detector) DetectBayesianBreak(ctx context.Context, s *series.PriceSeries, cfg SamplerConfig) (*PosteriorEstimate, error) {
	_, span := infrastructure.Tracer().Start(ctx, "changepoint.DetectBayesianBreak")
	defer span.End()

	if s == nil || s.Len() == 0 {
		return nil, apperrors.DataShape("cannot run bayesian detection on an empty series")
	}
	if cfg.Draws < 1 || cfg.Chains < 1 || cfg.Tune < 0 {
		return nil, apperrors.DataShape(
			"invalid sampler configuration: draws=%d tune=%d chains=%d",
			cfg.Draws, cfg.Tune, cfg.Chains)
	}

	values, positions := finiteValues(s)
	if len(values) < 4 {
		return nil, apperrors.DataShape("series has %d usable points, need at least 4", len(values))
	}

	priorMean := meanOf(values)
	std := stdOf(values, priorMean)
	if std == 0 {
		return nil, apperrors.Inference("series is degenerate: constant price, zero variance", nil)
	}

	start := time.Now()
	model := breakModel{values: values, priorMean: priorMean}

	var pooledTau []int
	var pooledMu1, pooledMu2, pooledS1, pooledS2 []float64
	finiteSeen := false

	for chain := 0; chain < cfg.Chains; chain++ {
		cs := model.runChain(rand.New(rand.NewSource(cfg.Seed+int64(chain))), cfg, std)
		finiteSeen = finiteSeen || cs.finiteSeen
		pooledTau = append(pooledTau, cs.tau...)
		pooledMu1 = append(pooledMu1, cs.mu1...)
		pooledMu2 = append(pooledMu2, cs.mu2...)
		pooledS1 = append(pooledS1, cs.s1...)
		pooledS2 = append(pooledS2, cs.s2...)
	}

	if !finiteSeen {
		return nil, apperrors.Inference("sampler never reached a finite posterior density", nil)
	}

	tauEstimate := medianInt(pooledTau)
	breakPos := positions[tauEstimate]

	estimate := &PosteriorEstimate{
		BreakIndex: breakPos,
		BreakDate:  s.At(breakPos).Date,
		Mu1:        meanOf(pooledMu1),
		Mu2:        meanOf(pooledMu2),
		Sigma1:     meanOf(pooledS1),
		Sigma2:     meanOf(pooledS2),
		TauSamples: mapPositions(pooledTau, positions),
	}

	d.logger.Info("bayesian break detection complete",
		"break_date", estimate.BreakDate.Format("2006-01-02"),
		"break_index", estimate.BreakIndex,
		"draws", cfg.Draws,
		"tune", cfg.Tune,
		"chains", cfg.Chains,
		"seed", cfg.Seed,
		"elapsed", time.Since(start),
	)

	return estimate, nil
}

// breakModel holds the observed data and prior center for one inference run
type breakModel struct {
	values    []float64
	priorMean float64
}

// chainSamples collects the recorded draws of one chain
type chainSamples struct {
	tau              []int
	mu1, mu2, s1, s2 []float64
	finiteSeen       bool
}

// logPosterior evaluates the unnormalized log posterior density.
// Observation i belongs to regime 1 when tau >= i.
func (m *breakModel) logPosterior(tau int, mu1, mu2, s1, s2 float64) float64 {
	if s1 <= 0 || s2 <= 0 {
		return math.Inf(-1)
	}

	lp := 0.0
	lp -= (mu1 - m.priorMean) * (mu1 - m.priorMean) / (2 * muPriorSigma * muPriorSigma)
	lp -= (mu2 - m.priorMean) * (mu2 - m.priorMean) / (2 * muPriorSigma * muPriorSigma)
	lp -= s1 * s1 / (2 * sigmaPriorSigma * sigmaPriorSigma)
	lp -= s2 * s2 / (2 * sigmaPriorSigma * sigmaPriorSigma)

	for i, x := range m.values {
		mu, sg := mu2, s2
		if tau >= i {
			mu, sg = mu1, s1
		}
		d := x - mu
		lp += -math.Log(sg) - d*d/(2*sg*sg)
	}
	return lp
}

// runChain performs cfg.Tune adaptation sweeps and cfg.Draws recorded
// sweeps of Metropolis-within-Gibbs updates. Proposal step sizes for the
// continuous parameters adapt multiplicatively during tuning only, so the
// recorded phase is a fixed-kernel Markov chain.
func (m *breakModel) runChain(rng *rand.Rand, cfg SamplerConfig, std float64) chainSamples {
	n := len(m.values)

	tau := n / 2
	mu1, mu2 := m.priorMean, m.priorMean
	s1 := math.Max(std, 1e-3)
	s2 := s1

	steps := [4]float64{std, std, std / 2, std / 2} // mu1, mu2, s1, s2
	current := m.logPosterior(tau, mu1, mu2, s1, s2)

	var out chainSamples
	for iter := 0; iter < cfg.Tune+cfg.Draws; iter++ {
		params := [4]*float64{&mu1, &mu2, &s1, &s2}
		for p := 0; p < 4; p++ {
			old := *params[p]
			*params[p] = old + rng.NormFloat64()*steps[p]
			proposed := m.logPosterior(tau, mu1, mu2, s1, s2)
			accepted := acceptMH(rng, current, proposed)
			if accepted {
				current = proposed
			} else {
				*params[p] = old
			}
			if iter < cfg.Tune {
				if accepted {
					steps[p] *= 1.1
				} else {
					steps[p] *= 0.9
				}
			}
		}

		// Independent uniform proposal for the discrete break location
		proposedTau := rng.Intn(n)
		proposed := m.logPosterior(proposedTau, mu1, mu2, s1, s2)
		if acceptMH(rng, current, proposed) {
			tau = proposedTau
			current = proposed
		}

		if iter >= cfg.Tune {
			out.tau = append(out.tau, tau)
			out.mu1 = append(out.mu1, mu1)
			out.mu2 = append(out.mu2, mu2)
			out.s1 = append(out.s1, s1)
			out.s2 = append(out.s2, s2)
			if !math.IsInf(current, -1) && !math.IsNaN(current) {
				out.finiteSeen = true
			}
		}
	}

	return out
}

// acceptMH applies the Metropolis acceptance rule
func acceptMH(rng *rand.Rand, current, proposed float64) bool {
	if math.IsNaN(proposed) {
		return false
	}
	if proposed >= current {
		return true
	}
	return math.Log(rng.Float64()) < proposed-current
}

// medianInt returns the median of values; ties on an even count truncate
// toward the lower middle, matching integer conversion of a float median
func medianInt(values []int) int {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return int(float64(sorted[mid-1]+sorted[mid]) / 2)
}

// mapPositions translates finite-value indices to series positions
func mapPositions(taus []int, positions []int) []int {
	out := make([]int, len(taus))
	for i, t := range taus {
		out[i] = positions[t]
	}
	return out
}

// meanOf returns the arithmetic mean of values
func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdOf returns the population standard deviation
func stdOf(values []float64, mean float64) float64 {
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
