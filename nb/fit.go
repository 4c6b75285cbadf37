package nb

import (
	"fmt"

	"github.com/kshedden/nbreg/glm"
)

// MeanResult holds the fitted Poisson mean model for one feature.
type MeanResult struct {

	// Coefficients of the covariates in the mean model
	Coeff []float64

	// Fitted mean values, aligned with the count vector
	Mu []float64
}

// EstimateMean fits a Poisson generalized linear model (log link) of
// the counts y on the columns of the model matrix xmat, returning the
// coefficients and the full fitted-mean vector.  Each column of xmat
// must have the same length as y.  A failure of the underlying solver
// is returned as an error.
func EstimateMean(y []float64, xmat [][]float64) (*MeanResult, error) {

	data := make([][]float64, 0, len(xmat)+1)
	names := make([]string, 0, len(xmat)+1)

	data = append(data, y)
	names = append(names, "y")
	for j, x := range xmat {
		data = append(data, x)
		names = append(names, fmt.Sprintf("x%d", j))
	}

	model := glm.NewGLM(data, names, "y").Family(glm.NewFamily(glm.PoissonFamily)).Done()

	rslt, err := model.Fit()
	if err != nil {
		return nil, err
	}

	return &MeanResult{
		Coeff: rslt.Params(),
		Mu:    rslt.Mean(),
	}, nil
}

// EstimateDispersion estimates the negative binomial dispersion
// parameter for counts y with fitted means mu, returning a value in
// (0, +Inf].  +Inf indicates that no finite maximum likelihood
// estimate exists.  See FitTheta for the iteration controls and for
// a result that also reports how the estimation terminated.
func EstimateDispersion(y, mu []float64, maxIter int, tol float64) float64 {
	return FitTheta(y, mu, maxIter, tol).Theta
}
