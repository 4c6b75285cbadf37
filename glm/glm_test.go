package glm

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

func scalarClose(x, y, eps float64) bool {
	return math.Abs(x-y) <= eps
}

func data1(wgt bool) ([][]float64, []string) {

	y := []float64{0, 1, 3, 2, 1, 1, 0}
	x1 := []float64{1, 1, 1, 1, 1, 1, 1}
	x2 := []float64{4, 1, -1, 3, 5, -5, 3}
	w := []float64{1, 2, 2, 3, 1, 3, 2}
	da := [][]float64{y, x1, x2}
	na := []string{"y", "x1", "x2"}

	if wgt {
		da = append(da, w)
		na = append(na, "w")
	}

	return da, na
}

func data4(wgt bool) ([][]float64, []string) {

	y := []float64{3, 1, 5, 4, 2, 3, 6}
	x1 := []float64{1, 1, 1, 1, 1, 1, 1}
	x2 := []float64{4, 1, -1, 3, 5, -5, 3}
	x3 := []float64{1, -1, 1, 1, 2, 5, -1}
	w := []float64{3, 3, 2, 3, 1, 3, 2}
	da := [][]float64{y, x1, x2, x3}
	na := []string{"y", "x1", "x2", "x3"}

	if wgt {
		da = append(da, w)
		na = append(na, "w")
	}

	return da, na
}

func data5(wgt bool) ([][]float64, []string) {

	y := []float64{0, 1, 3, 2, 1, 1, 0}
	x1 := []float64{1, 1, 1, 1, 1, 1, 1}
	x2 := []float64{4, 1, -1, 3, 5, -5, 3}
	off := []float64{0, 0, 1, 1, 0, 0, 0}
	w := []float64{1, 2, 2, 3, 1, 3, 2}
	da := [][]float64{y, x1, x2, off}
	na := []string{"y", "x1", "x2", "off"}

	if wgt {
		da = append(da, w)
		na = append(na, "w")
	}

	return da, na
}

func TestPoissonInterceptOnly(t *testing.T) {

	y := []float64{0, 1, 3, 2, 1, 1, 0}
	icept := []float64{1, 1, 1, 1, 1, 1, 1}

	model := NewGLM([][]float64{y, icept}, []string{"y", "icept"}, "y")
	model = model.Family(NewFamily(PoissonFamily)).Done()

	rslt, err := model.Fit()
	if err != nil {
		t.Fatal(err)
	}

	mean := 8.0 / 7

	if !scalarClose(rslt.Params()[0], math.Log(mean), 1e-6) {
		t.Errorf("intercept: got %v, want %v", rslt.Params()[0], math.Log(mean))
	}

	for _, m := range rslt.Mean() {
		if !scalarClose(m, mean, 1e-6) {
			t.Errorf("fitted mean: got %v, want %v", m, mean)
		}
	}

	if rslt.Scale() != 1 {
		t.Errorf("scale: got %v, want 1", rslt.Scale())
	}

	// The standard error of the log mean is 1/sqrt(sum of fitted means).
	se := 1 / math.Sqrt(7*mean)
	if !scalarClose(rslt.StdErr()[0], se, 1e-4) {
		t.Errorf("stderr: got %v, want %v", rslt.StdErr()[0], se)
	}
}

func TestPoissonOffset(t *testing.T) {

	y := []float64{0, 1, 3, 2, 1, 1, 0}
	icept := []float64{1, 1, 1, 1, 1, 1, 1}
	off := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}

	model := NewGLM([][]float64{y, icept, off}, []string{"y", "icept", "off"}, "y")
	model = model.Family(NewFamily(PoissonFamily)).Offset("off").Done()

	rslt, err := model.Fit()
	if err != nil {
		t.Fatal(err)
	}

	mean := 8.0 / 7

	if !scalarClose(rslt.Params()[0], math.Log(mean)-0.5, 1e-6) {
		t.Errorf("intercept: got %v, want %v", rslt.Params()[0], math.Log(mean)-0.5)
	}

	for _, m := range rslt.Mean() {
		if !scalarClose(m, mean, 1e-6) {
			t.Errorf("fitted mean: got %v, want %v", m, mean)
		}
	}
}

// A case weight of 2 must be equivalent to duplicating the observation.
func TestWeightsDuplicate(t *testing.T) {

	y := []float64{0, 1, 3, 2}
	x1 := []float64{1, 1, 1, 1}
	x2 := []float64{0.5, -0.2, 0.1, 0.4}
	w := []float64{2, 1, 2, 1}

	wmodel := NewGLM([][]float64{y, x1, x2, w}, []string{"y", "x1", "x2", "w"}, "y")
	wmodel = wmodel.Family(NewFamily(PoissonFamily)).Weight("w").Done()
	wrslt, err := wmodel.Fit()
	if err != nil {
		t.Fatal(err)
	}

	yd := []float64{0, 0, 1, 3, 3, 2}
	x1d := []float64{1, 1, 1, 1, 1, 1}
	x2d := []float64{0.5, 0.5, -0.2, 0.1, 0.1, 0.4}

	dmodel := NewGLM([][]float64{yd, x1d, x2d}, []string{"y", "x1", "x2"}, "y")
	dmodel = dmodel.Family(NewFamily(PoissonFamily)).Done()
	drslt, err := dmodel.Fit()
	if err != nil {
		t.Fatal(err)
	}

	if !floats.EqualApprox(wrslt.Params(), drslt.Params(), 1e-5) {
		t.Errorf("weighted %v != duplicated %v", wrslt.Params(), drslt.Params())
	}

	if !scalarClose(wrslt.LogLike(), drslt.LogLike(), 1e-5) {
		t.Errorf("loglike: weighted %v != duplicated %v", wrslt.LogLike(), drslt.LogLike())
	}
}

// IRLS and gradient optimization agree, and both recover the
// generating coefficients on simulated data.
func TestFitMethodsAgree(t *testing.T) {

	src := rand.NewPCG(42, 0)
	rng := rand.New(src)

	n := 2000
	icept := make([]float64, n)
	x := make([]float64, n)
	y := make([]float64, n)

	for i := 0; i < n; i++ {
		icept[i] = 1
		x[i] = 2*rng.Float64() - 1
		lam := math.Exp(0.5 + 0.2*x[i])
		po := distuv.Poisson{Lambda: lam, Src: src}
		y[i] = po.Rand()
	}

	da := [][]float64{y, icept, x}
	na := []string{"y", "icept", "x"}

	imodel := NewGLM(da, na, "y").Family(NewFamily(PoissonFamily)).Done()
	irslt, err := imodel.Fit()
	if err != nil {
		t.Fatal(err)
	}

	gmodel := NewGLM(da, na, "y").Family(NewFamily(PoissonFamily)).FitMethod("gradient").Done()
	grslt, err := gmodel.Fit()
	if err != nil {
		t.Fatal(err)
	}

	if !floats.EqualApprox(irslt.Params(), grslt.Params(), 1e-3) {
		t.Errorf("IRLS %v != gradient %v", irslt.Params(), grslt.Params())
	}

	truth := []float64{0.5, 0.2}
	for j := range truth {
		if !scalarClose(irslt.Params()[j], truth[j], 0.15) {
			t.Errorf("parameter %d: got %v, want %v", j, irslt.Params()[j], truth[j])
		}
	}
}

// The quasi-Poisson scale estimate for an intercept-only model is the
// Pearson statistic over n-1; for this data it is exactly 1.
func TestQuasiPoissonScale(t *testing.T) {

	y := []float64{0, 1, 3, 2, 1, 1, 0}
	icept := []float64{1, 1, 1, 1, 1, 1, 1}

	model := NewGLM([][]float64{y, icept}, []string{"y", "icept"}, "y")
	model = model.Family(NewFamily(QuasiPoissonFamily)).Done()

	rslt, err := model.Fit()
	if err != nil {
		t.Fatal(err)
	}

	if !scalarClose(rslt.Scale(), 1, 1e-6) {
		t.Errorf("scale: got %v, want 1", rslt.Scale())
	}
}

// As alpha goes to zero the negative binomial log-likelihood
// approaches the Poisson log-likelihood.
func TestNegBinomPoissonLimit(t *testing.T) {

	y := []float64{3, 1, 5, 4, 2, 3, 6}
	mn := []float64{2.5, 1.2, 4.0, 3.3, 2.2, 2.8, 5.5}

	pois := NewFamily(PoissonFamily)
	negbin := NewNegBinomFamily(1e-6, NewLink(LogLink))

	pll := pois.LogLike(y, mn, nil, 1, true)
	nll := negbin.LogLike(y, mn, nil, 1, true)

	if !scalarClose(pll, nll, 1e-4) {
		t.Errorf("Poisson %v, NegBinom limit %v", pll, nll)
	}
}

func TestSummary(t *testing.T) {

	da, na := data1(false)
	model := NewGLM(da, na, "y").Family(NewFamily(PoissonFamily)).Done()

	rslt, err := model.Fit()
	if err != nil {
		t.Fatal(err)
	}

	s := rslt.Summary()
	if !strings.Contains(s, "Poisson") || !strings.Contains(s, "x2") {
		t.Errorf("malformed summary:\n%s", s)
	}
}
