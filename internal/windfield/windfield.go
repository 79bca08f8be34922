// Package windfield fits a probabilistic wind model over altitude. Each wind
// component (eastward u, northward v) gets an independent Gaussian process
// regressor mapping altitude to a calibrated (mean, std) pair, so sparse
// sounding data becomes a continuous wind function with honest uncertainty.
package windfield

import (
	"fmt"
	"math"
	"slices"

	"github.com/stratodrop/driftcast/internal/types"
)

// InsufficientDataError indicates a fit was attempted with fewer than two
// distinct altitudes; a variance structure cannot be estimated from one point.
type InsufficientDataError struct {
	DistinctAltitudes int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("windfield: need at least 2 distinct altitudes to fit, got %d", e.DistinctAltitudes)
}

// Options tune the fit. Zero values select the defaults.
type Options struct {
	// LengthScaleMin/Max clamp the candidate RBF length scales (meters).
	LengthScaleMin float64
	LengthScaleMax float64
	// NoiseVar is the white-noise kernel term in normalized target units.
	NoiseVar float64
}

// DefaultOptions mirror the reference kernel: a smooth RBF prior with length
// scales bounded to stratospheric structure sizes, plus moderate observation
// noise.
func DefaultOptions() Options {
	return Options{
		LengthScaleMin: 1000,  // 1 km
		LengthScaleMax: 30000, // 30 km
		NoiseVar:       0.1,
	}
}

// Model is a fitted wind-field model. It is immutable after Fit and safe for
// concurrent Predict calls; re-fitting produces a new Model rather than
// mutating this one.
type Model struct {
	u, v    *regressor
	minAlt  float64
	maxAlt  float64
	opts    Options
	samples []types.WindSample
}

// Fit builds a wind-field model from a snapshot of wind samples. The sample
// slice is not retained or mutated; duplicates at the same altitude are kept
// as independent noisy observations. Candidate length scales are ranked by
// log marginal likelihood, independently per component.
func Fit(samples []types.WindSample, opts Options) (*Model, error) {
	if opts == (Options{}) {
		opts = DefaultOptions()
	}

	distinct := countDistinctAltitudes(samples)
	if distinct < 2 {
		return nil, &InsufficientDataError{DistinctAltitudes: distinct}
	}

	n := len(samples)
	alts := make([]float64, n)
	us := make([]float64, n)
	vs := make([]float64, n)
	for i, s := range samples {
		alts[i] = s.Altitude
		us[i] = s.U
		vs[i] = s.V
	}
	minAlt := slices.Min(alts)
	maxAlt := slices.Max(alts)

	scales := candidateLengthScales(maxAlt-minAlt, opts)

	u, err := fitBestScale(alts, us, scales, opts.NoiseVar)
	if err != nil {
		return nil, fmt.Errorf("windfield: fitting u component: %w", err)
	}
	v, err := fitBestScale(alts, vs, scales, opts.NoiseVar)
	if err != nil {
		return nil, fmt.Errorf("windfield: fitting v component: %w", err)
	}

	m := &Model{
		u:       u,
		v:       v,
		minAlt:  minAlt,
		maxAlt:  maxAlt,
		opts:    opts,
		samples: make([]types.WindSample, n),
	}
	copy(m.samples, samples)
	return m, nil
}

// fitBestScale fits one regressor per candidate length scale and keeps the
// one with the highest log marginal likelihood.
func fitBestScale(alts, ys, scales []float64, noiseVar float64) (*regressor, error) {
	var best *regressor
	for _, ls := range scales {
		r, err := fitRegressor(alts, ys, rbfKernel{LengthScale: ls, NoiseVar: noiseVar})
		if err != nil {
			continue
		}
		if best == nil || r.lml > best.lml {
			best = r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no candidate length scale produced a valid fit")
	}
	return best, nil
}

// candidateLengthScales derives a small ladder of length scales from the
// altitude span of the data, clamped to the configured bounds.
func candidateLengthScales(span float64, opts Options) []float64 {
	if span <= 0 {
		span = opts.LengthScaleMax
	}
	raw := []float64{span / 8, span / 4, span / 2, span}
	scales := make([]float64, 0, len(raw))
	for _, ls := range raw {
		ls = math.Min(math.Max(ls, opts.LengthScaleMin), opts.LengthScaleMax)
		if len(scales) == 0 || scales[len(scales)-1] != ls {
			scales = append(scales, ls)
		}
	}
	return scales
}

func countDistinctAltitudes(samples []types.WindSample) int {
	seen := make(map[float64]struct{}, len(samples))
	for _, s := range samples {
		seen[s.Altitude] = struct{}{}
	}
	return len(seen)
}

// Predict returns the model's belief at one altitude. It is defined for any
// altitude, including far outside the training range, where the standard
// deviation saturates at the prior marginal instead of erroring.
func (m *Model) Predict(altitude float64) types.WindPrediction {
	meanU, stdU := m.u.predict(altitude)
	meanV, stdV := m.v.predict(altitude)
	return types.WindPrediction{MeanU: meanU, MeanV: meanV, StdU: stdU, StdV: stdV}
}

// PredictBatch evaluates the model at each altitude; result order matches
// input order.
func (m *Model) PredictBatch(altitudes []float64) []types.WindPrediction {
	preds := make([]types.WindPrediction, len(altitudes))
	for i, alt := range altitudes {
		preds[i] = m.Predict(alt)
	}
	return preds
}

// TrainingRange reports the altitude span of the fitted samples.
func (m *Model) TrainingRange() (min, max float64) {
	return m.minAlt, m.maxAlt
}

// SampleCount reports how many observations the model was fitted on.
func (m *Model) SampleCount() int {
	return len(m.samples)
}
