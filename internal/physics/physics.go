// Package physics implements the payload descent model: a pure trajectory
// derivative driven by the wind belief at the current altitude, and an
// altitude-dependent terminal descent rate from an exponential atmosphere.
package physics

import (
	"fmt"
	"math"

	"github.com/stratodrop/driftcast/internal/types"
)

// scaleHeight is the e-folding height of the exponential atmosphere, meters.
const scaleHeight = 8500.0

// InvalidProfileError reports a descent profile rejected at construction.
type InvalidProfileError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("physics: invalid descent profile: %s=%g (%s)", e.Field, e.Value, e.Reason)
}

// NewDescentProfile validates and builds a descent profile. Validation
// happens here, once, so the derivative and the integrator never re-check.
func NewDescentProfile(initialAltitude, releaseX, releaseY, terminalDescentRate, dragCoefficient float64) (types.DescentProfile, error) {
	switch {
	case math.IsNaN(initialAltitude) || math.IsInf(initialAltitude, 0) || initialAltitude < 0:
		return types.DescentProfile{}, &InvalidProfileError{"initial_altitude", initialAltitude, "must be finite and >= 0"}
	case !isFinite(releaseX) || !isFinite(releaseY):
		return types.DescentProfile{}, &InvalidProfileError{"release_point", releaseX, "coordinates must be finite"}
	case !isFinite(terminalDescentRate) || terminalDescentRate <= 0:
		return types.DescentProfile{}, &InvalidProfileError{"terminal_descent_rate", terminalDescentRate, "must be finite and > 0"}
	case !isFinite(dragCoefficient) || dragCoefficient <= 0:
		return types.DescentProfile{}, &InvalidProfileError{"drag_coefficient", dragCoefficient, "must be finite and > 0"}
	}
	return types.DescentProfile{
		InitialAltitude:     initialAltitude,
		ReleaseX:            releaseX,
		ReleaseY:            releaseY,
		TerminalDescentRate: terminalDescentRate,
		DragCoefficient:     dragCoefficient,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DescentRate returns the downward speed (m/s, positive) at the given
// altitude: v(z) = vT * (rho0/rho(z))^(Cd/2) with rho(z) = rho0*exp(-z/H).
// Thinner air aloft means a faster fall; as z approaches zero the rate
// approaches the configured near-ground terminal velocity.
func DescentRate(profile types.DescentProfile, altitude float64) float64 {
	if altitude < 0 {
		altitude = 0
	}
	return profile.TerminalDescentRate * math.Exp(altitude*profile.DragCoefficient/(2*scaleHeight))
}

// Derivative computes the instantaneous rate of change of position and
// altitude. epsU and epsV are noise draws made by the caller, scaled by the
// prediction's standard deviations; this function is pure and never samples.
func Derivative(state types.PayloadState, wind types.WindPrediction, profile types.DescentProfile, epsU, epsV float64) (dxdt, dydt, dzdt float64) {
	dxdt = wind.MeanU + epsU
	dydt = wind.MeanV + epsV
	dzdt = -DescentRate(profile, state.Z)
	return dxdt, dydt, dzdt
}
