package glm

import (
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

type gradCase struct {
	data   [][]float64
	names  []string
	fam    *Family
	weight bool
	offset bool
	params [][]float64
}

// Compare the analytic score vector to a numeric gradient of the
// log-likelihood.
func TestGrad(t *testing.T) {

	var cases []gradCase

	da, na := data1(false)
	cases = append(cases, gradCase{
		data:   da,
		names:  na,
		fam:    NewFamily(PoissonFamily),
		params: [][]float64{{1, 0}, {0, 1}, {-0.5, 0.5}},
	})
	cases = append(cases, gradCase{
		data:   da,
		names:  na,
		fam:    NewFamily(QuasiPoissonFamily),
		params: [][]float64{{0.5, 0.1}},
	})

	da, na = data1(true)
	cases = append(cases, gradCase{
		data:   da,
		names:  na,
		fam:    NewFamily(PoissonFamily),
		weight: true,
		params: [][]float64{{1, 0}, {0.2, -0.2}},
	})

	da, na = data4(false)
	cases = append(cases, gradCase{
		data:   da,
		names:  na,
		fam:    NewNegBinomFamily(1.5, NewLink(LogLink)),
		params: [][]float64{{1, 0, -1}, {0.5, 0.1, 0}},
	})

	da, na = data5(true)
	cases = append(cases, gradCase{
		data:   da,
		names:  na,
		fam:    NewFamily(PoissonFamily),
		weight: true,
		offset: true,
		params: [][]float64{{0.5, -0.1}},
	})

	for _, c := range cases {

		model := NewGLM(c.data, c.names, "y").Family(c.fam)
		if c.weight {
			model = model.Weight("w")
		}
		if c.offset {
			model = model.Offset("off")
		}
		glm := model.Done()

		p := glm.NumParams()
		score := make([]float64, p)
		ngrad := make([]float64, p)

		loglike := func(x []float64) float64 {
			return glm.LogLike(&GLMParams{x, 1}, false)
		}

		for _, params := range c.params {
			glm.Score(&GLMParams{params, 1}, score)
			fd.Gradient(ngrad, loglike, params, nil)

			if !floats.EqualApprox(score, ngrad, 1e-5) {
				t.Errorf("%s at %v: analytic %v, numeric %v",
					c.fam.Name, params, score, ngrad)
			}
		}
	}
}
