// Package types contains the shared data model for wind-field regression and
// payload descent simulation.
package types

import "math"

// WindSample is a single altitude-indexed wind observation. Altitude is in
// meters above ground; u and v are the eastward and northward wind components
// in m/s. Samples need not be sorted or evenly spaced, and duplicate altitudes
// are treated as independent noisy observations.
type WindSample struct {
	Altitude float64 `json:"altitude_m"`
	U        float64 `json:"u_wind"`
	V        float64 `json:"v_wind"`
}

// WindPrediction is the model's belief about the wind at one altitude: mean
// and standard deviation per component. Stds are always non-negative and grow
// with distance from the nearest training altitude.
type WindPrediction struct {
	MeanU float64 `json:"mean_u"`
	MeanV float64 `json:"mean_v"`
	StdU  float64 `json:"std_u"`
	StdV  float64 `json:"std_v"`
}

// PayloadState is one integration step of a descent trajectory, in a local
// ENU frame centered on the release point. VZ is the signed vertical rate
// (negative while descending).
type PayloadState struct {
	X       float64 `json:"x_m"`
	Y       float64 `json:"y_m"`
	Z       float64 `json:"altitude_m"`
	Elapsed float64 `json:"t_s"`
	VZ      float64 `json:"vz_ms"`
}

// DescentProfile configures one simulation run. Immutable once constructed.
// TerminalDescentRate is the near-ground terminal velocity in m/s (positive,
// downward); DragCoefficient shapes how quickly the descent rate grows with
// altitude as air density thins.
type DescentProfile struct {
	InitialAltitude     float64 `json:"initial_altitude_m"`
	ReleaseX            float64 `json:"release_x_m"`
	ReleaseY            float64 `json:"release_y_m"`
	TerminalDescentRate float64 `json:"terminal_descent_rate_ms"`
	DragCoefficient     float64 `json:"drag_coefficient"`
}

// LandingPoint is the terminal (x, y) of one completed rollout.
type LandingPoint struct {
	X float64 `json:"x_m"`
	Y float64 `json:"y_m"`
}

// ConfidenceZone is an ellipse on the landing plane expected to contain the
// given fraction of landing points. Axes are the ellipse semi-axis lengths in
// meters; Orientation is the angle of the major axis from the +x axis in
// radians.
type ConfidenceZone struct {
	Level       float64 `json:"level"`
	CenterX     float64 `json:"center_x_m"`
	CenterY     float64 `json:"center_y_m"`
	SemiMajor   float64 `json:"semi_major_m"`
	SemiMinor   float64 `json:"semi_minor_m"`
	Orientation float64 `json:"orientation_rad"`
}

// Area returns the ellipse area in square meters.
func (z ConfidenceZone) Area() float64 {
	return math.Pi * z.SemiMajor * z.SemiMinor
}

// LandingDistribution aggregates the terminal points of a Monte Carlo run.
// Points are ordered by rollout index so that a seeded run is reproducible
// bit-for-bit. Covariance is the 2x2 sample covariance in row-major order
// [xx, xy, yx, yy]. Zones are sorted by ascending confidence level and are
// nested (a higher-level zone always contains a lower-level one).
type LandingDistribution struct {
	Points     []LandingPoint   `json:"points"`
	MeanX      float64          `json:"mean_x_m"`
	MeanY      float64          `json:"mean_y_m"`
	Covariance [4]float64       `json:"covariance"`
	Zones      []ConfidenceZone `json:"confidence_zones"`
	Completed  int              `json:"completed_rollouts"`
	Discarded  int              `json:"discarded_rollouts"`
}
