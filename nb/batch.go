package nb

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/kshedden/nbreg/glm"
)

// FitResult describes the negative binomial fit for a single feature.
type FitResult struct {

	// Coefficients of the Poisson mean model
	Coeff []float64

	// Fitted mean values
	Mu []float64

	// The dispersion estimate
	Theta ThetaResult

	// The negative binomial log-likelihood at the estimates; the
	// Poisson log-likelihood when theta is unbounded.
	LogLike float64

	// Mean model failure for this feature, if any.  The other
	// fields are zero when Err is set.
	Err error
}

// BatchOpts configures FitSet.
type BatchOpts struct {

	// Number of concurrent fits; runtime.NumCPU() if zero.
	Workers int

	// Show a progress bar while fitting.
	Progress bool

	// Newton-Raphson iteration controls for the dispersion
	// estimate; DefaultThetaMaxIter and DefaultThetaTol if zero.
	MaxIter int
	Tol     float64
}

// FitSet fits an independent negative binomial regression to every
// feature in counts.  Each element of counts is the count vector of
// one feature across samples; xmat holds the columns of a model
// matrix shared by all features.  Fits are run concurrently, and a
// mean model failure for one feature is recorded in its result
// without aborting the batch.
func FitSet(counts [][]float64, xmat [][]float64, opts *BatchOpts) []FitResult {

	if opts == nil {
		opts = &BatchOpts{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultThetaMaxIter
	}
	tol := opts.Tol
	if tol <= 0 {
		tol = DefaultThetaTol
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.New(len(counts))
	}

	rslt := make([]FitResult, len(counts))

	gch := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range gch {
				rslt[g] = fitOne(counts[g], xmat, maxIter, tol)
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}

	for g := range counts {
		gch <- g
	}
	close(gch)
	wg.Wait()

	return rslt
}

func fitOne(y []float64, xmat [][]float64, maxIter int, tol float64) FitResult {

	mr, err := EstimateMean(y, xmat)
	if err != nil {
		return FitResult{Err: fmt.Errorf("nb: mean model fit failed: %w", err)}
	}

	th := FitTheta(y, mr.Mu, maxIter, tol)

	return FitResult{
		Coeff:   mr.Coeff,
		Mu:      mr.Mu,
		Theta:   th,
		LogLike: nbLogLike(y, mr.Mu, th.Theta),
	}
}

// nbLogLike evaluates the negative binomial log-likelihood at the
// fitted means and dispersion, degenerating to the Poisson
// log-likelihood in the unbounded (no overdispersion) case.
func nbLogLike(y, mu []float64, theta float64) float64 {

	if math.IsInf(theta, 1) {
		fam := glm.NewFamily(glm.PoissonFamily)
		return fam.LogLike(y, mu, nil, 1, true)
	}

	fam := glm.NewNegBinomFamily(1/theta, glm.NewLink(glm.LogLink))
	return fam.LogLike(y, mu, nil, 1, true)
}
