package glm

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// GLMResults describes the results of a fitted generalized linear
// model.
type GLMResults struct {
	model   *GLM
	loglike float64
	params  []float64
	xnames  []string
	vcov    []float64
	scale   float64

	stderr  []float64
	zscores []float64
	pvalues []float64
}

// Model returns the model that produced the results.
func (rslt *GLMResults) Model() *GLM {
	return rslt.model
}

// Names returns the covariate names.
func (rslt *GLMResults) Names() []string {
	return rslt.xnames
}

// Params returns the fitted coefficients.
func (rslt *GLMResults) Params() []float64 {
	return rslt.params
}

// LogLike returns the log-likelihood at the fitted coefficients.
func (rslt *GLMResults) LogLike() float64 {
	return rslt.loglike
}

// Scale returns the estimated scale parameter.
func (rslt *GLMResults) Scale() float64 {
	return rslt.scale
}

// VCov returns the sampling variance/covariance matrix of the
// coefficient estimates, in vectorized form.  It is nil if the
// Hessian was singular at the fitted coefficients.
func (rslt *GLMResults) VCov() []float64 {
	return rslt.vcov
}

// StdErr returns the standard errors of the coefficient estimates, or
// nil if they are not available.
func (rslt *GLMResults) StdErr() []float64 {

	if rslt.vcov == nil {
		return nil
	}
	if rslt.stderr != nil {
		return rslt.stderr
	}

	p := rslt.model.NumParams()
	rslt.stderr = make([]float64, p)
	for i := range rslt.stderr {
		rslt.stderr[i] = math.Sqrt(rslt.vcov[i*p+i])
	}

	return rslt.stderr
}

// ZScores returns the Z-scores of the coefficient estimates, or nil
// if they are not available.
func (rslt *GLMResults) ZScores() []float64 {

	std := rslt.StdErr()
	if std == nil {
		return nil
	}
	if rslt.zscores != nil {
		return rslt.zscores
	}

	rslt.zscores = make([]float64, len(std))
	for i := range std {
		rslt.zscores[i] = rslt.params[i] / std[i]
	}

	return rslt.zscores
}

func normcdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt(2))
}

// PValues returns the two-sided p-values for the coefficient
// estimates, or nil if they are not available.
func (rslt *GLMResults) PValues() []float64 {

	zs := rslt.ZScores()
	if zs == nil {
		return nil
	}
	if rslt.pvalues != nil {
		return rslt.pvalues
	}

	rslt.pvalues = make([]float64, len(zs))
	for i, z := range zs {
		rslt.pvalues[i] = 2 * normcdf(-math.Abs(z))
	}

	return rslt.pvalues
}

// Fitted returns the fitted linear predictor, including the offset if
// present.
func (rslt *GLMResults) Fitted() []float64 {

	glm := rslt.model
	lp := make([]float64, glm.NumObs())
	glm.linpred(rslt.params, lp)

	return lp
}

// Mean returns the fitted mean values, obtained by applying the
// inverse link function to the fitted linear predictor.
func (rslt *GLMResults) Mean() []float64 {

	glm := rslt.model
	mn := rslt.Fitted()
	glm.link.InvLink(mn, mn)

	return mn
}

// vcov returns the sampling variance/covariance matrix of the
// coefficient estimates, obtained by inverting the expected Hessian.
func vcov(glm *GLM, params *GLMParams) ([]float64, error) {

	nvar := glm.NumParams()
	hess := make([]float64, nvar*nvar)
	glm.Hessian(params, ExpHess, hess)

	hmat := mat.NewDense(nvar, nvar, hess)
	himat := mat.NewDense(nvar, nvar, nil)
	if err := himat.Inverse(hmat); err != nil {
		return nil, err
	}
	himat.Scale(-1, himat)

	return himat.RawMatrix().Data, nil
}

// Summary returns a string that holds a table of coefficients,
// standard errors, Z-scores, and p-values for the fitted model.
func (rslt *GLMResults) Summary() string {

	glm := rslt.model
	p := len(rslt.params)

	var buf bytes.Buffer
	tw := 66

	buf.WriteString("Generalized linear model analysis\n")
	buf.WriteString(fmt.Sprintf("Family:   %s\n", glm.fam.Name))
	buf.WriteString(fmt.Sprintf("Link:     %s\n", glm.link.Name))
	buf.WriteString(fmt.Sprintf("Num obs:  %d\n", glm.NumObs()))
	buf.WriteString(fmt.Sprintf("Scale:    %f\n", rslt.scale))

	buf.WriteString(strings.Repeat("-", tw))
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("%-12s  %12s  %12s  %12s  %12s\n",
		"Variable", "Coefficient", "StdErr", "Z-score", "P-value"))
	buf.WriteString(strings.Repeat("-", tw))
	buf.WriteString("\n")

	std := rslt.StdErr()
	zs := rslt.ZScores()
	pv := rslt.PValues()

	for j := 0; j < p; j++ {
		if std != nil {
			buf.WriteString(fmt.Sprintf("%-12s  %12.4f  %12.4f  %12.4f  %12.4f\n",
				rslt.xnames[j], rslt.params[j], std[j], zs[j], pv[j]))
		} else {
			buf.WriteString(fmt.Sprintf("%-12s  %12.4f\n", rslt.xnames[j], rslt.params[j]))
		}
	}

	buf.WriteString(strings.Repeat("-", tw))
	buf.WriteString("\n")

	return buf.String()
}
