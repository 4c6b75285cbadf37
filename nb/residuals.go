package nb

import (
	"math"
)

// PearsonResiduals computes negative binomial Pearson residuals
// (y-mu)/sqrt(mu + mu^2/theta), storing them in resid.  With
// theta=+Inf the variance degenerates to the Poisson variance mu.
func PearsonResiduals(y, mu []float64, theta float64, resid []float64) {

	for i := range y {
		va := mu[i]
		if !math.IsInf(theta, 1) {
			va += mu[i] * mu[i] / theta
		}
		resid[i] = (y[i] - mu[i]) / math.Sqrt(va)
	}
}
