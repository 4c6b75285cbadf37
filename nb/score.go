package nb

import (
	"math"
)

// ThetaScore returns the derivative of the negative binomial
// log-likelihood with respect to the dispersion parameter theta, for
// counts y with fitted means mu (aligned by index, mu[i] > 0) at the
// given theta > 0.
//
// If fast is true, the digamma terms are aggregated over a lookup
// table of distinct count values, evaluating digamma once per
// distinct value instead of once per observation.  The two modes are
// mathematically identical and agree to within floating point
// tolerance for any input.
//
// The inputs are not validated; out-of-domain values yield NaN/Inf in
// the returned sum.
func ThetaScore(y, mu []float64, theta float64, fast bool) float64 {

	n := float64(len(y))

	var dgsum float64
	if fast {
		for _, b := range countTable(y) {
			dgsum += digamma(float64(b.val)+theta) * float64(b.n)
		}
	} else {
		for _, v := range y {
			dgsum += digamma(v + theta)
		}
	}
	dgsum -= n * digamma(theta)

	var s float64
	lt := math.Log(theta)
	for i, v := range y {
		s += lt - math.Log(mu[i]+theta) + 1 - (v+theta)/(mu[i]+theta)
	}

	return dgsum + s
}

// ThetaHessian returns the second derivative of the negative binomial
// log-likelihood with respect to theta.  The input contract and the
// fast/exact duality are the same as for ThetaScore, with trigamma in
// place of digamma.
func ThetaHessian(y, mu []float64, theta float64, fast bool) float64 {

	n := float64(len(y))

	var tgsum float64
	if fast {
		for _, b := range countTable(y) {
			tgsum += trigamma(float64(b.val)+theta) * float64(b.n)
		}
	} else {
		for _, v := range y {
			tgsum += trigamma(v + theta)
		}
	}
	tgsum -= n * trigamma(theta)

	var s float64
	for i, v := range y {
		d := mu[i] + theta
		s += (v+theta)/(d*d) + 1/theta - 2/d
	}

	return tgsum + s
}
