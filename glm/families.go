package glm

import (
	"fmt"
	"math"
)

// FamilyType is the type of GLM family used in a model.
type FamilyType uint8

// PoissonFamily, ... are families for a GLM.
const (
	PoissonFamily FamilyType = iota
	QuasiPoissonFamily
	NegBinomFamily
)

// DispersionForm indicates how the dispersion parameter of a family
// is handled when fitting.
type DispersionForm uint8

// DispersionFixed indicates that the dispersion is held at a fixed
// value, DispersionFree that it is estimated from the data.
const (
	DispersionFixed DispersionForm = iota
	DispersionFree
)

// LogLikeFunc evaluates and returns the log-likelihood for a GLM.  The
// arguments are the data, the mean values, the weights, the scale
// parameter, and the exact flag.  If the exact flag is false,
// additive terms that are constant with respect to the mean may be
// omitted.  The weights may be nil in which case all weights are
// taken to be 1.
type LogLikeFunc func([]float64, []float64, []float64, float64, bool) float64

// DevianceFunc evaluates and returns the deviance for a GLM.  The
// arguments are the data, the mean values, the weights, and the scale
// parameter.  The weights may be nil in which case all weights are
// taken to be 1.
type DevianceFunc func([]float64, []float64, []float64, float64) float64

// Family represents a generalized linear model family.
type Family struct {

	// The name of the family
	Name string

	// The numeric code for the family
	TypeCode FamilyType

	// The log-likelihood function for the family
	LogLike LogLikeFunc

	// The deviance function for the family
	Deviance DevianceFunc

	// The approach for handling the dispersion
	dispersionMethod DispersionForm

	// The dispersion value for a fixed dispersion
	dispersionValue float64

	// The names of valid links for this family.  The first listed
	// link is the canonical link.
	validLinks []LinkType

	// The link in use by the family, only specified for the
	// negative binomial family.
	link *Link

	// Auxiliary parameter: the negative binomial dispersion
	alpha float64
}

// NewFamily returns a family object corresponding to the given type.
// Supported types are PoissonFamily and QuasiPoissonFamily; use
// NewNegBinomFamily for the negative binomial family.
func NewFamily(fam FamilyType) *Family {

	switch fam {
	case PoissonFamily:
		return &poisson
	case QuasiPoissonFamily:
		return &quasiPoisson
	default:
		msg := fmt.Sprintf("Unknown family: %v\n", fam)
		panic(msg)
	}
}

var poisson = Family{
	Name:             "Poisson",
	TypeCode:         PoissonFamily,
	LogLike:          poissonLogLike,
	Deviance:         poissonDeviance,
	validLinks:       []LinkType{LogLink, IdentityLink},
	dispersionMethod: DispersionFixed,
	dispersionValue:  1,
}

// QuasiPoisson is the same as Poisson, except that the scale
// parameter is estimated.
var quasiPoisson = Family{
	Name:             "QuasiPoisson",
	TypeCode:         QuasiPoissonFamily,
	LogLike:          poissonLogLike,
	Deviance:         poissonDeviance,
	validLinks:       []LinkType{LogLink, IdentityLink},
	dispersionMethod: DispersionFree,
	dispersionValue:  1,
}

// IsValidLink returns true or false based on whether the link is
// valid for the family.
func (fam *Family) IsValidLink(link *Link) bool {

	for _, q := range fam.validLinks {
		if link.TypeCode == q {
			return true
		}
	}

	return false
}

func poissonLogLike(y []float64, mn []float64, wt []float64, scale float64, exact bool) float64 {

	var ll float64
	var w float64 = 1
	for i := range y {
		if wt != nil {
			w = wt[i]
		}
		ll += w * (y[i]*math.Log(mn[i]) - mn[i])
	}

	if exact {
		for i := range y {
			if wt != nil {
				w = wt[i]
			}
			g, _ := math.Lgamma(y[i] + 1)
			ll -= w * g
		}
	}

	return ll
}

func poissonDeviance(y []float64, mn []float64, wgt []float64, scale float64) float64 {

	var dev float64
	var w float64 = 1

	for i := range y {
		if wgt != nil {
			w = wgt[i]
		}

		if y[i] > 0 {
			dev += 2 * w * y[i] * math.Log(y[i]/mn[i])
		}
	}
	dev /= scale

	return dev
}

// NewNegBinomFamily returns a new family object for the negative
// binomial family, using the given link function.  The parameter
// alpha determines the mean/variance relationship,
// variance = mean + alpha*mean^2; it is the reciprocal of the
// dispersion parameter theta.
func NewNegBinomFamily(alpha float64, link *Link) *Family {

	loglike := func(y []float64, mn []float64, wt []float64, scale float64, exact bool) float64 {

		var ll float64
		var w float64 = 1

		lp := make([]float64, len(y))
		link.Link(mn, lp)
		c3, _ := math.Lgamma(1 / alpha)

		for i := range y {

			if wt != nil {
				w = wt[i]
			}

			elp := math.Exp(lp[i])

			c1, _ := math.Lgamma(y[i] + 1/alpha)
			c2, _ := math.Lgamma(y[i] + 1)
			c := c1 - c2 - c3

			v := y[i] * math.Log(alpha*elp/(1+alpha*elp))
			v -= math.Log(1+alpha*elp) / alpha

			ll += w * (v + c)
		}

		return ll
	}

	deviance := func(y []float64, mn []float64, wt []float64, scale float64) float64 {

		var dev float64
		var w float64 = 1

		for i := range y {
			if wt != nil {
				w = wt[i]
			}

			if y[i] > 0 {
				z1 := y[i] * math.Log(y[i]/mn[i])
				z2 := (1 + alpha*y[i]) / alpha
				z2 *= math.Log((1 + alpha*y[i]) / (1 + alpha*mn[i]))
				dev += 2 * w * (z1 - z2)
			} else {
				dev += 2 * w * math.Log(1+alpha*mn[i]) / alpha
			}
		}
		dev /= scale

		return dev
	}

	return &Family{
		Name:             "NegBinom",
		TypeCode:         NegBinomFamily,
		LogLike:          loglike,
		Deviance:         deviance,
		alpha:            alpha,
		validLinks:       []LinkType{LogLink, IdentityLink},
		link:             link,
		dispersionMethod: DispersionFree,
	}
}
