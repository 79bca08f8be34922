// Package trajectory integrates the descent physics from release altitude to
// ground with a fixed-step explicit Euler scheme, drawing one wind
// realization per step from a fitted wind-field model.
package trajectory

import (
	"fmt"
	"math/rand"

	"github.com/stratodrop/driftcast/internal/physics"
	"github.com/stratodrop/driftcast/internal/types"
)

// DefaultMaxSteps caps a single rollout. A 30 km drop at 1 m/s and dt=1s is
// 30k steps; anything past the cap indicates a near-zero descent rate.
const DefaultMaxSteps = 200000

// WindPredictor is the read-only view of the wind model the integrator
// needs. A fitted windfield.Model satisfies it.
type WindPredictor interface {
	Predict(altitude float64) types.WindPrediction
}

// TerminationError reports a rollout that exceeded the step ceiling without
// reaching the ground. It is fatal to that rollout only; the Monte Carlo
// engine discards the rollout and carries on.
type TerminationError struct {
	Steps    int
	Altitude float64
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("trajectory: exceeded %d steps at %.1f m without landing", e.Steps, e.Altitude)
}

// Run integrates one descent and returns the full path, release state first,
// final state exactly at ground level. rng is the rollout's private noise
// stream; two standard-normal draws are consumed per step, scaled by the
// predicted wind standard deviations. maxSteps <= 0 selects DefaultMaxSteps.
func Run(profile types.DescentProfile, model WindPredictor, rng *rand.Rand, dt float64, maxSteps int) ([]types.PayloadState, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	state := types.PayloadState{
		X:  profile.ReleaseX,
		Y:  profile.ReleaseY,
		Z:  profile.InitialAltitude,
		VZ: -physics.DescentRate(profile, profile.InitialAltitude),
	}

	path := []types.PayloadState{state}
	if state.Z <= 0 {
		// Released at (or below) ground level: lands where it started.
		return path, nil
	}

	for step := 0; ; step++ {
		if step >= maxSteps {
			return nil, &TerminationError{Steps: maxSteps, Altitude: state.Z}
		}

		wind := model.Predict(state.Z)
		epsU := rng.NormFloat64() * wind.StdU
		epsV := rng.NormFloat64() * wind.StdV
		dx, dy, dz := physics.Derivative(state, wind, profile, epsU, epsV)

		nextZ := state.Z + dz*dt
		if nextZ <= 0 {
			// Clip the final step so the last state lands exactly at
			// z=0 instead of overshooting below ground.
			frac := state.Z / (state.Z - nextZ)
			state.X += dx * dt * frac
			state.Y += dy * dt * frac
			state.Z = 0
			state.Elapsed += dt * frac
			state.VZ = dz
			path = append(path, state)
			return path, nil
		}

		state.X += dx * dt
		state.Y += dy * dt
		state.Z = nextZ
		state.Elapsed += dt
		state.VZ = dz
		path = append(path, state)
	}
}
