package nb

import (
	"gonum.org/v1/gonum/mathext"
)

// digamma is the logarithmic derivative of the Gamma function.
// Out-of-domain arguments propagate NaN/Inf to the caller.
func digamma(x float64) float64 {
	return mathext.Digamma(x)
}

// trigamma is the second logarithmic derivative of the Gamma
// function, computed as the Hurwitz zeta function at s=2.
func trigamma(x float64) float64 {
	return mathext.Zeta(2, x)
}
