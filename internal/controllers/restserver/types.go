package restserver

import "github.com/stratodrop/driftcast/internal/types"

// WindResponse wraps a wind prediction with the altitude it was queried at
// and whether that altitude lies outside the training range (extrapolation).
type WindResponse struct {
	Altitude      float64              `json:"altitude_m"`
	Prediction    types.WindPrediction `json:"prediction"`
	Extrapolated  bool                 `json:"extrapolated"`
	TrainingRange [2]float64           `json:"training_range_m"`
}

// SimulateRequest is the POST /api/simulate body.
type SimulateRequest struct {
	InitialAltitude     float64   `json:"initial_altitude_m"`
	ReleaseX            float64   `json:"release_x_m"`
	ReleaseY            float64   `json:"release_y_m"`
	TerminalDescentRate float64   `json:"terminal_descent_rate_ms"`
	DragCoefficient     float64   `json:"drag_coefficient"`
	Rollouts            int       `json:"n_rollouts"`
	DT                  float64   `json:"dt_s"`
	Seed                *int64    `json:"seed,omitempty"`
	ConfidenceLevels    []float64 `json:"confidence_levels,omitempty"`
	IncludeTrajectory   bool      `json:"include_trajectory,omitempty"`
}

// SimulateResponse is the POST /api/simulate reply.
type SimulateResponse struct {
	RunID        string                     `json:"run_id"`
	Distribution *types.LandingDistribution `json:"landing_distribution"`
	Trajectory   []types.PayloadState       `json:"trajectory,omitempty"`
	ElapsedMS    int64                      `json:"elapsed_ms"`
}

// SamplesResponse summarizes the training snapshot behind the current model.
type SamplesResponse struct {
	SampleCount   int        `json:"sample_count"`
	TrainingRange [2]float64 `json:"training_range_m"`
}
