package windfield

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rbfKernel is a squared-exponential covariance over altitude. Values are in
// normalized target units: signal variance is fixed at 1 and the white-noise
// term is relative to the (normalized) unit variance of the training targets.
type rbfKernel struct {
	LengthScale float64 // meters
	NoiseVar    float64 // observation noise variance, normalized units
}

func (k rbfKernel) cov(a, b float64) float64 {
	d := (a - b) / k.LengthScale
	return math.Exp(-0.5 * d * d)
}

// priorVar is the marginal predictive variance far from any training point:
// unit signal variance plus the observation noise.
func (k rbfKernel) priorVar() float64 {
	return 1.0 + k.NoiseVar
}

// regressor is a fitted 1-D Gaussian process for a single wind component.
// All fields are read-only after fitRegressor returns; concurrent Predict
// calls are safe.
type regressor struct {
	kernel rbfKernel
	alts   []float64 // training altitudes, meters
	alpha  []float64 // K^-1 y in normalized units
	chol   *mat.Cholesky
	yMean  float64
	yScale float64
	lml    float64 // log marginal likelihood of the fit
}

// fitRegressor solves the GP regression for one component at a fixed kernel.
// Targets are normalized to zero mean / unit variance before the solve, the
// way the reference model configures normalize_y, so the kernel
// hyperparameters are scale-free.
func fitRegressor(alts, ys []float64, kernel rbfKernel) (*regressor, error) {
	n := len(alts)
	if n == 0 || n != len(ys) {
		return nil, fmt.Errorf("regressor: %d altitudes, %d targets", n, len(ys))
	}

	yMean := stat.Mean(ys, nil)
	yScale := stat.StdDev(ys, nil)
	if yScale <= 0 || math.IsNaN(yScale) {
		// Constant (or single) target: keep the raw scale so the prior
		// std is still meaningful in m/s.
		yScale = 1.0
	}
	yNorm := make([]float64, n)
	for i, y := range ys {
		yNorm[i] = (y - yMean) / yScale
	}

	// Gram matrix with noise on the diagonal. The jitter term keeps the
	// factorization positive-definite when samples share an altitude.
	const jitter = 1e-10
	gram := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := kernel.cov(alts[i], alts[j])
			if i == j {
				c += kernel.NoiseVar + jitter
			}
			gram.SetSym(i, j, c)
		}
	}

	chol := &mat.Cholesky{}
	if ok := chol.Factorize(gram); !ok {
		return nil, fmt.Errorf("regressor: gram matrix not positive definite (length scale %.1f m)", kernel.LengthScale)
	}

	alphaVec := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alphaVec, mat.NewVecDense(n, yNorm)); err != nil {
		return nil, fmt.Errorf("regressor: solving for weights: %w", err)
	}
	alpha := make([]float64, n)
	copy(alpha, alphaVec.RawVector().Data)

	// Log marginal likelihood, used to rank candidate length scales:
	// -0.5 y^T alpha - 0.5 log|K| - n/2 log(2 pi)
	lml := -0.5*floats.Dot(yNorm, alpha) - 0.5*chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)

	r := &regressor{
		kernel: kernel,
		alts:   make([]float64, n),
		alpha:  alpha,
		chol:   chol,
		yMean:  yMean,
		yScale: yScale,
		lml:    lml,
	}
	copy(r.alts, alts)
	return r, nil
}

// predict returns the posterior mean and standard deviation at one altitude,
// in the original target units. The variance includes the observation-noise
// term, so far from any training point it saturates at the prior marginal
// rather than collapsing toward zero.
func (r *regressor) predict(altitude float64) (mean, std float64) {
	n := len(r.alts)
	kstar := make([]float64, n)
	for i, a := range r.alts {
		kstar[i] = r.kernel.cov(altitude, a)
	}

	meanNorm := floats.Dot(kstar, r.alpha)

	w := mat.NewVecDense(n, nil)
	variance := r.kernel.priorVar()
	if err := r.chol.SolveVecTo(w, mat.NewVecDense(n, kstar)); err == nil {
		variance -= floats.Dot(kstar, w.RawVector().Data)
	}
	if variance < 0 {
		variance = 0
	}

	return r.yMean + r.yScale*meanNorm, r.yScale * math.Sqrt(variance)
}
