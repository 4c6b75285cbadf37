package glm

import (
	"fmt"
	"log"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// HessType indicates the type of a log-likelihood Hessian matrix.
type HessType int

// ObsHess (observed Hessian) and ExpHess (expected Hessian) are the two
// types of log-likelihood Hessian matrices.
const (
	ObsHess HessType = iota
	ExpHess
)

// GLM represents a generalized linear model.  The data are held as
// columns, one per variable, all of the same length.
type GLM struct {

	// The data columns, aligned with names
	data  [][]float64
	names []string

	// Positions of the covariates
	xpos []int

	// Name and position of the outcome variable
	yname string
	ypos  int

	// Name and position of the offset variable, if present.
	offsetname string
	offsetpos  int

	// Name and position of the case weight variable, if present.
	weightname string
	weightpos  int

	// The GLM family
	fam *Family

	// The GLM link function
	link *Link

	// The GLM variance function
	vari *Variance

	// Either irls (default) or gradient.
	fitMethod string

	// Starting values, optional
	start []float64

	// Optimization settings, used by the gradient fit method
	settings *optimize.Settings

	// Optimization method, used by the gradient fit method
	method optimize.Method

	// If not nil, write log messages here
	log *log.Logger

	// Use concurrent calculations in IRLS if the data set has at
	// least this many rows.
	concurrentIRLS int
}

// GLMParams represents the model parameters for a GLM.
type GLMParams struct {
	coeff []float64
	scale float64
}

// GetCoeff returns the coefficients (slopes for individual covariates)
// from the parameter.
func (p *GLMParams) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the coefficients (slopes for individual covariates)
// for the parameter.
func (p *GLMParams) SetCoeff(coeff []float64) {
	p.coeff = coeff
}

// NewGLM creates a new GLM for the given data columns.  The names
// slice is aligned with the columns of data, and yname names the
// outcome variable.  All remaining columns except the offset and
// weight columns, if named, are treated as covariates.
func NewGLM(data [][]float64, names []string, yname string) *GLM {

	if len(data) != len(names) {
		msg := fmt.Sprintf("GLM: %d data columns but %d names.\n", len(data), len(names))
		panic(msg)
	}

	return &GLM{
		data:           data,
		names:          names,
		yname:          yname,
		fitMethod:      "irls",
		concurrentIRLS: 1000,
	}
}

// Log takes a Logger value that will be used to log progress during
// fitting.
func (glm *GLM) Log(log *log.Logger) *GLM {
	glm.log = log
	return glm
}

// NumParams returns the number of covariates in the model.
func (glm *GLM) NumParams() int {
	return len(glm.xpos)
}

// NumObs returns the number of observations in the data set.
func (glm *GLM) NumObs() int {
	return len(glm.data[glm.ypos])
}

// ConcurrentIRLS sets the minimum data size for which concurrent
// calculations are used during IRLS.
func (glm *GLM) ConcurrentIRLS(n int) *GLM {
	glm.concurrentIRLS = n
	return glm
}

// FitMethod sets the fitting method, either irls or gradient.
func (glm *GLM) FitMethod(method string) *GLM {
	lmethod := strings.ToLower(method)
	if lmethod != "irls" && lmethod != "gradient" {
		msg := fmt.Sprintf("GLM fitting method %s not allowed.\n", method)
		panic(msg)
	}
	glm.fitMethod = lmethod
	return glm
}

// Offset sets the name of the offset variable.
func (glm *GLM) Offset(name string) *GLM {
	glm.offsetname = name
	return glm
}

// Weight sets the name of the case weight variable.
func (glm *GLM) Weight(name string) *GLM {
	glm.weightname = name
	return glm
}

// Family sets the GLM family.
func (glm *GLM) Family(fam *Family) *GLM {
	glm.fam = fam
	return glm
}

// Start sets starting values for the fitting algorithm.
func (glm *GLM) Start(start []float64) *GLM {
	glm.start = start
	return glm
}

// Link sets the link function.
func (glm *GLM) Link(link *Link) *GLM {

	if glm.fam == nil {
		panic("GLM: must set family before setting link.\n")
	}
	if !glm.fam.IsValidLink(link) {
		panic("GLM: invalid link")
	}
	glm.link = link

	if glm.fam.TypeCode == NegBinomFamily {
		// The negative binomial family value holds the link,
		// so it must be rebuilt when the link changes.
		glm.fam = NewNegBinomFamily(glm.fam.alpha, link)
	}

	return glm
}

// VarFunc sets the GLM variance function.
func (glm *GLM) VarFunc(va *Variance) *GLM {
	glm.vari = va
	return glm
}

func (glm *GLM) findvars() {

	glm.offsetpos = -1
	glm.weightpos = -1
	glm.ypos = -1
	glm.xpos = glm.xpos[0:0]

	for k, na := range glm.names {
		switch na {
		case glm.yname:
			glm.ypos = k
		case glm.weightname:
			glm.weightpos = k
		case glm.offsetname:
			glm.offsetpos = k
		default:
			glm.xpos = append(glm.xpos, k)
		}
	}

	if glm.ypos == -1 {
		msg := fmt.Sprintf("Outcome variable '%s' not found.", glm.yname)
		panic(msg)
	}
	if glm.weightpos == -1 && glm.weightname != "" {
		msg := fmt.Sprintf("Weight variable '%s' not found.", glm.weightname)
		panic(msg)
	}
	if glm.offsetpos == -1 && glm.offsetname != "" {
		msg := fmt.Sprintf("Offset variable '%s' not found.", glm.offsetname)
		panic(msg)
	}
}

func (glm *GLM) setup() {

	if glm.link == nil {
		glm.link = NewLink(glm.fam.validLinks[0])
	}

	if glm.vari == nil {
		switch glm.fam.TypeCode {
		case PoissonFamily:
			glm.vari = NewVariance(IdentityVar)
		case QuasiPoissonFamily:
			glm.vari = NewVariance(IdentityVar)
		case NegBinomFamily:
			glm.vari = NewNegBinomVariance(glm.fam.alpha)
		default:
			msg := fmt.Sprintf("Unknown GLM family: %s\n", glm.fam.Name)
			panic(msg)
		}
	}
}

// Done completes definition of a GLM.  After calling Done the GLM can
// be fit by calling the Fit method.
func (glm *GLM) Done() *GLM {

	if glm.fam == nil {
		panic("GLM: the family must be defined before calling Done.\n")
	}

	glm.findvars()
	glm.setup()

	if len(glm.start) == 0 {
		glm.start = make([]float64, glm.NumParams())
	}

	return glm
}

// linpred computes the linear predictor at the given coefficients,
// including the offset if present, storing the result in lp.
func (glm *GLM) linpred(coeff, lp []float64) {

	zero(lp)
	for j, k := range glm.xpos {
		floats.AddScaled(lp, coeff[j], glm.data[k])
	}
	if glm.offsetpos != -1 {
		floats.Add(lp, glm.data[glm.offsetpos])
	}
}

// LogLike returns the log-likelihood value for the generalized linear
// model at the given parameter values.  If exact is false, terms that
// are constant with respect to the mean may be omitted.
func (glm *GLM) LogLike(params *GLMParams, exact bool) float64 {

	yda := glm.data[glm.ypos]
	n := len(yda)

	var wgts []float64
	if glm.weightpos != -1 {
		wgts = glm.data[glm.weightpos]
	}

	lp := make([]float64, n)
	mn := make([]float64, n)

	glm.linpred(params.coeff, lp)
	glm.link.InvLink(lp, mn)

	return glm.fam.LogLike(yda, mn, wgts, params.scale, exact)
}

func scoreFactor(yda, mn, deriv, va, sfac []float64) {
	for i, y := range yda {
		sfac[i] = (y - mn[i]) / (deriv[i] * va[i])
	}
}

// Score computes the score vector for the generalized linear model at
// the given parameter values, storing the result in score.
func (glm *GLM) Score(params *GLMParams, score []float64) {

	yda := glm.data[glm.ypos]
	n := len(yda)

	var wgts []float64
	if glm.weightpos != -1 {
		wgts = glm.data[glm.weightpos]
	}

	lp := make([]float64, n)
	mn := make([]float64, n)
	deriv := make([]float64, n)
	va := make([]float64, n)
	fac := make([]float64, n)

	glm.linpred(params.coeff, lp)
	glm.link.InvLink(lp, mn)
	glm.link.Deriv(mn, deriv)
	glm.vari.Var(mn, va)

	scoreFactor(yda, mn, deriv, va, fac)
	if wgts != nil {
		floats.Mul(fac, wgts)
	}

	for j, k := range glm.xpos {
		score[j] = floats.Dot(fac, glm.data[k])
	}
}

// Hessian computes the Hessian matrix for the model at the given
// parameter values.  The Hessian is stored in hess in vectorized form.
// Either the observed or expected Hessian can be calculated.
func (glm *GLM) Hessian(params *GLMParams, ht HessType, hess []float64) {

	yda := glm.data[glm.ypos]
	n := len(yda)
	nvar := glm.NumParams()

	var wgts []float64
	if glm.weightpos != -1 {
		wgts = glm.data[glm.weightpos]
	}

	lp := make([]float64, n)
	mn := make([]float64, n)
	lderiv := make([]float64, n)
	va := make([]float64, n)
	fac := make([]float64, n)

	glm.linpred(params.coeff, lp)
	glm.link.InvLink(lp, mn)
	glm.link.Deriv(mn, lderiv)
	glm.vari.Var(mn, va)

	// Factor for the expected Hessian
	for i := 0; i < n; i++ {
		fac[i] = 1 / (lderiv[i] * lderiv[i] * va[i])
	}

	// Adjust the factor for the observed Hessian
	if ht == ObsHess {
		vad := make([]float64, n)
		lderiv2 := make([]float64, n)
		sfac := make([]float64, n)
		glm.link.Deriv2(mn, lderiv2)
		glm.vari.Deriv(mn, vad)
		scoreFactor(yda, mn, lderiv, va, sfac)

		for i := range fac {
			h := va[i]*lderiv2[i] + lderiv[i]*vad[i]
			h *= sfac[i] * fac[i]
			if wgts != nil {
				h *= wgts[i]
			}
			fac[i] *= 1 + h
		}
	}

	if wgts != nil {
		floats.Mul(fac, wgts)
	}

	zero(hess)
	for j1 := range glm.xpos {
		x1 := glm.data[glm.xpos[j1]]
		for j2 := 0; j2 <= j1; j2++ {
			x2 := glm.data[glm.xpos[j2]]
			var u float64
			for i := range x1 {
				u -= fac[i] * x1[i] * x2[i]
			}
			hess[j1*nvar+j2] = u
		}
	}

	// Fill in the upper triangle
	for j1 := range glm.xpos {
		for j2 := 0; j2 < j1; j2++ {
			hess[j2*nvar+j1] = hess[j1*nvar+j2]
		}
	}
}

// Fit estimates the parameters of the GLM and returns a results
// object.  An error is returned if the fitting algorithm fails.
func (glm *GLM) Fit() (*GLMResults, error) {

	nvar := glm.NumParams()
	maxiter := 20

	start := make([]float64, nvar)
	copy(start, glm.start)

	var params []float64
	var err error

	if glm.fitMethod == "gradient" {
		if glm.log != nil {
			glm.log.Print("fitting using gradient optimization\n")
		}
		params, err = glm.fitGradient(start)
	} else {
		if glm.log != nil {
			glm.log.Print("fitting using IRLS\n")
		}
		params, err = glm.fitIRLS(start, maxiter)
	}
	if err != nil {
		return nil, err
	}

	scale := glm.EstimateScale(params)

	// A singular Hessian leaves the results without standard errors.
	vc, _ := vcov(glm, &GLMParams{params, scale})
	if vc != nil {
		floats.Scale(scale, vc)
	}

	ll := glm.LogLike(&GLMParams{params, scale}, true)

	var xna []string
	for _, j := range glm.xpos {
		xna = append(xna, glm.names[j])
	}

	results := &GLMResults{
		model:   glm,
		loglike: ll,
		params:  params,
		xnames:  xna,
		vcov:    vc,
		scale:   scale,
	}

	return results, nil
}

// fitGradient uses gradient-based optimization to obtain the fitted
// GLM parameters.
func (glm *GLM) fitGradient(start []float64) ([]float64, error) {

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -glm.LogLike(&GLMParams{x, 1}, false)
		},
		Grad: func(grad, x []float64) {
			glm.Score(&GLMParams{x, 1}, grad)
			floats.Scale(-1, grad)
		},
	}

	if glm.settings == nil {
		glm.settings = &optimize.Settings{
			GradientThreshold: 1e-6,
		}
	}

	if glm.method == nil {
		glm.method = &optimize.BFGS{}
	}

	optrslt, err := optimize.Minimize(p, start, glm.settings, glm.method)
	if err != nil {
		return nil, fmt.Errorf("glm: gradient optimization failed: %v", err)
	}
	if err := optrslt.Status.Err(); err != nil {
		return nil, fmt.Errorf("glm: gradient optimization failed: %v", err)
	}

	params := make([]float64, len(optrslt.X))
	copy(params, optrslt.X)

	return params, nil
}

// OptSettings allows the caller to provide an optimization settings
// value, used when fitting with the gradient method.
func (glm *GLM) OptSettings(s *optimize.Settings) *GLM {
	glm.settings = s
	return glm
}

// OptMethod sets the optimization method from gonum optimize, used
// when fitting with the gradient method.
func (glm *GLM) OptMethod(method optimize.Method) *GLM {
	glm.method = method
	return glm
}

// EstimateScale returns an estimate of the GLM scale parameter at the
// given parameter values.  For families with a fixed dispersion the
// default value is returned, otherwise the Pearson estimate is used.
func (glm *GLM) EstimateScale(params []float64) float64 {

	if glm.fam.dispersionMethod == DispersionFixed {
		return glm.fam.dispersionValue
	}

	yda := glm.data[glm.ypos]
	n := len(yda)
	nvar := glm.NumParams()

	var wgt []float64
	if glm.weightpos != -1 {
		wgt = glm.data[glm.weightpos]
	}

	lp := make([]float64, n)
	mn := make([]float64, n)
	va := make([]float64, n)

	glm.linpred(params, lp)
	glm.link.InvLink(lp, mn)
	glm.vari.Var(mn, va)

	var scale, ws float64
	for i, y := range yda {
		r := y - mn[i]
		if wgt == nil {
			scale += r * r / va[i]
			ws++
		} else {
			scale += wgt[i] * r * r / va[i]
			ws += wgt[i]
		}
	}

	scale /= ws - float64(nvar)

	return scale
}

// zero sets all elements of the slice to 0
func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

// one sets all elements of the slice to 1
func one(x []float64) {
	for i := range x {
		x[i] = 1
	}
}
