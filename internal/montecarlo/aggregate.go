package montecarlo

import (
	"math"

	"github.com/stratodrop/driftcast/internal/types"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// aggregate computes the sample mean, sample covariance, and analytic
// confidence ellipses over the completed landing points. Ellipses come from
// the covariance eigenstructure scaled by the chi-squared(2 dof) quantile of
// each level, so zones at higher levels strictly contain lower ones.
func aggregate(points []types.LandingPoint, levels []float64) *types.LandingDistribution {
	n := len(points)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}

	meanX := stat.Mean(xs, nil)
	meanY := stat.Mean(ys, nil)
	varX := stat.Variance(xs, nil)
	varY := stat.Variance(ys, nil)
	covXY := stat.Covariance(xs, ys, nil)

	dist := &types.LandingDistribution{
		Points:     points,
		MeanX:      meanX,
		MeanY:      meanY,
		Covariance: [4]float64{varX, covXY, covXY, varY},
	}

	semiMajor, semiMinor, orientation := covarianceAxes(varX, varY, covXY)
	chi2 := distuv.ChiSquared{K: 2}
	for _, level := range levels {
		scale := math.Sqrt(chi2.Quantile(level))
		dist.Zones = append(dist.Zones, types.ConfidenceZone{
			Level:       level,
			CenterX:     meanX,
			CenterY:     meanY,
			SemiMajor:   semiMajor * scale,
			SemiMinor:   semiMinor * scale,
			Orientation: orientation,
		})
	}
	return dist
}

// covarianceAxes returns the unit-quantile ellipse axes (square roots of the
// covariance eigenvalues) and the major-axis orientation.
func covarianceAxes(varX, varY, covXY float64) (semiMajor, semiMinor, orientation float64) {
	cov := mat.NewSymDense(2, []float64{varX, covXY, covXY, varY})

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		// Degenerate covariance (e.g. all points identical); fall back to
		// axis-aligned radii.
		return math.Sqrt(math.Max(varX, varY)), math.Sqrt(math.Min(varX, varY)), 0
	}

	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// EigenSym returns eigenvalues in ascending order.
	major, minor := vals[1], vals[0]
	if major < 0 {
		major = 0
	}
	if minor < 0 {
		minor = 0
	}
	orientation = math.Atan2(vecs.At(1, 1), vecs.At(0, 1))

	return math.Sqrt(major), math.Sqrt(minor), orientation
}

// InZone reports whether a point falls inside the given confidence zone.
// Used by tests and callers checking nesting.
func InZone(zone types.ConfidenceZone, p types.LandingPoint) bool {
	if zone.SemiMajor == 0 || zone.SemiMinor == 0 {
		return p.X == zone.CenterX && p.Y == zone.CenterY
	}
	dx := p.X - zone.CenterX
	dy := p.Y - zone.CenterY
	cos := math.Cos(zone.Orientation)
	sin := math.Sin(zone.Orientation)
	// Rotate into the ellipse frame.
	a := (dx*cos + dy*sin) / zone.SemiMajor
	b := (-dx*sin + dy*cos) / zone.SemiMinor
	return a*a+b*b <= 1
}
