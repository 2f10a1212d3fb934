package events

import (
	"errors"
	"math"
)

// WelchTTest compares two independent samples without assuming equal
// variances. The two-sided p-value comes from the Student's t distribution
// with Welch-Satterthwaite degrees of freedom. Errors indicate a sample too
// small or degenerate to test, not a pipeline failure.
func WelchTTest(sample1, sample2 []float64) (TTestResult, error) {
	n1, n2 := len(sample1), len(sample2)
	if n1 < 2 || n2 < 2 {
		return TTestResult{}, errors.New("each sample needs at least 2 points")
	}

	m1, v1 := meanVariance(sample1)
	m2, v2 := meanVariance(sample2)

	se1 := v1 / float64(n1)
	se2 := v2 / float64(n2)
	se := se1 + se2
	if se == 0 {
		return TTestResult{}, errors.New("both samples have zero variance")
	}

	t := (m1 - m2) / math.Sqrt(se)

	// Welch-Satterthwaite degrees of freedom
	df := se * se / (se1*se1/float64(n1-1) + se2*se2/float64(n2-1))

	return TTestResult{
		TStatistic: t,
		PValue:     studentTTwoSided(t, df),
		NBefore:    n1,
		NAfter:     n2,
	}, nil
}

// meanVariance returns the mean and sample variance (n-1 denominator)
func meanVariance(values []float64) (mean, variance float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values) - 1)
	return mean, variance
}

// studentTTwoSided returns P(|T| >= |t|) for a Student's t distribution
// with df degrees of freedom, via the regularized incomplete beta function:
// P(|T| >= t) = I_x(df/2, 1/2) with x = df/(df + t^2).
func studentTTwoSided(t, df float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return math.NaN()
	}
	x := df / (df + t*t)
	return regIncompleteBeta(df/2, 0.5, x)
}

// regIncompleteBeta computes the regularized incomplete beta function
// I_x(a, b) using the continued-fraction expansion, switching to the
// symmetric form where the fraction converges fastest.
func regIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lg1, _ := math.Lgamma(a + b)
	lg2, _ := math.Lgamma(a)
	lg3, _ := math.Lgamma(b)
	front := math.Exp(lg1 - lg2 - lg3 + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

// betaContinuedFraction evaluates the incomplete beta continued fraction
// with the modified Lentz method
func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIterations = 200
		epsilon       = 3e-14
		tiny          = 1e-30
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIterations; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < epsilon {
			break
		}
	}
	return h
}
