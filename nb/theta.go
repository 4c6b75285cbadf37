package nb

import (
	"math"
)

// ThetaStatus indicates how theta estimation terminated.
type ThetaStatus uint8

// ThetaConverged indicates that the Newton-Raphson update fell below
// the tolerance.  ThetaUnbounded indicates that the log-likelihood
// has no finite maximum in theta, so the data are effectively Poisson
// and the estimate is +Inf; this is a legitimate model outcome, not
// an error.  ThetaMaxIter indicates that the iteration limit was
// reached; the returned value is a best-effort estimate with no
// convergence guarantee.
const (
	ThetaConverged ThetaStatus = iota
	ThetaUnbounded
	ThetaMaxIter
)

func (s ThetaStatus) String() string {
	switch s {
	case ThetaConverged:
		return "converged"
	case ThetaUnbounded:
		return "unbounded"
	case ThetaMaxIter:
		return "maxiter"
	default:
		return "unknown"
	}
}

// ThetaResult holds the estimated dispersion parameter for one
// feature.
type ThetaResult struct {

	// The estimated dispersion; +Inf when the status is
	// ThetaUnbounded.
	Theta float64

	// How the estimation terminated
	Status ThetaStatus

	// The number of Newton-Raphson iterations performed
	Iter int
}

// Default iteration controls for FitTheta.
const (
	DefaultThetaMaxIter = 20
	DefaultThetaTol     = 1e-4
)

// FitTheta estimates the negative binomial dispersion parameter theta
// by maximum likelihood, given counts y and fitted means mu (aligned
// by index, mu[i] > 0).  The starting value is the method of moments
// estimate; each Newton-Raphson step updates theta by the ratio of
// the score to the Hessian of the log-likelihood until the update
// falls below tol or maxIter iterations are used.
//
// If the score is negative at the current point, the log-likelihood
// has no interior maximum reachable by ascent and theta is reported
// as unbounded.  A negative theta after the iteration limit is
// treated the same way.
//
// The inputs are not validated.  A mean vector equal to y makes the
// moment estimate undefined, and non-positive mu values corrupt the
// likelihood; both are caller preconditions.
func FitTheta(y, mu []float64, maxIter int, tol float64) ThetaResult {

	var d float64
	for i := range y {
		r := y[i]/mu[i] - 1
		d += r * r
	}
	theta := float64(len(y)) / d

	for iter := 0; iter < maxIter; iter++ {

		// A Newton step can overshoot into negative territory;
		// fold it back into the valid domain.
		theta = math.Abs(theta)

		score := ThetaScore(y, mu, theta, true)
		if score < 0 {
			return ThetaResult{
				Theta:  math.Inf(1),
				Status: ThetaUnbounded,
				Iter:   iter,
			}
		}

		delta := score / ThetaHessian(y, mu, theta, true)
		theta -= delta

		if math.Abs(delta) <= tol {
			return ThetaResult{
				Theta:  theta,
				Status: ThetaConverged,
				Iter:   iter + 1,
			}
		}
	}

	if theta < 0 {
		return ThetaResult{
			Theta:  math.Inf(1),
			Status: ThetaUnbounded,
			Iter:   maxIter,
		}
	}

	return ThetaResult{
		Theta:  theta,
		Status: ThetaMaxIter,
		Iter:   maxIter,
	}
}

// ThetaML estimates the dispersion parameter with the default
// iteration controls, returning only the estimate.  The returned
// value lies in (0, +Inf], with +Inf indicating that no finite
// maximum likelihood estimate exists (no overdispersion).
func ThetaML(y, mu []float64) float64 {
	return FitTheta(y, mu, DefaultThetaMaxIter, DefaultThetaTol).Theta
}
