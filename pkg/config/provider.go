// Package config defines the service configuration model and its YAML and
// SQLite backends.
package config

import "fmt"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Station    StationData    `json:"station"`
	WindModel  WindModelData  `json:"wind_model,omitempty"`
	Simulation SimulationData `json:"simulation,omitempty"`
	RESTServer RESTServerData `json:"rest,omitempty"`
}

// StationData identifies the launch site and its operating envelope.
type StationData struct {
	Name           string  `json:"name"`
	ServiceCeiling float64 `json:"service_ceiling_m,omitempty"`
	SamplesCSV     string  `json:"samples_csv,omitempty"`
	DatabasePath   string  `json:"database_path,omitempty"`
}

// WindModelData holds the wind-field regression priors.
type WindModelData struct {
	LengthScaleMin float64 `json:"length_scale_min_m,omitempty"`
	LengthScaleMax float64 `json:"length_scale_max_m,omitempty"`
	NoiseVar       float64 `json:"noise_var,omitempty"`
}

// SimulationData holds the Monte Carlo engine defaults.
type SimulationData struct {
	DefaultRollouts    int       `json:"default_rollouts,omitempty"`
	DefaultDT          float64   `json:"default_dt_s,omitempty"`
	MinRollouts        int       `json:"min_rollouts,omitempty"`
	MaxDiscardFraction float64   `json:"max_discard_fraction,omitempty"`
	MaxSteps           int       `json:"max_steps,omitempty"`
	Workers            int       `json:"workers,omitempty"`
	ConfidenceLevels   []float64 `json:"confidence_levels,omitempty"`
	TimeoutSeconds     float64   `json:"timeout_seconds,omitempty"`
}

// RESTServerData holds the configuration for the REST server
type RESTServerData struct {
	ListenAddr         string `json:"listen_addr,omitempty"`
	Port               int    `json:"port,omitempty"`
	ReadTimeoutSec     int    `json:"read_timeout_sec,omitempty"`
	WriteTimeoutSec    int    `json:"write_timeout_sec,omitempty"`
	EnableTrajectories bool   `json:"enable_trajectories,omitempty"`
}

// ApplyDefaults fills zero-valued fields with service defaults.
func (c *ConfigData) ApplyDefaults() {
	if c.Station.ServiceCeiling == 0 {
		c.Station.ServiceCeiling = 30000
	}
	if c.WindModel.LengthScaleMin == 0 {
		c.WindModel.LengthScaleMin = 1000
	}
	if c.WindModel.LengthScaleMax == 0 {
		c.WindModel.LengthScaleMax = 30000
	}
	if c.WindModel.NoiseVar == 0 {
		c.WindModel.NoiseVar = 0.1
	}
	if c.Simulation.DefaultRollouts == 0 {
		c.Simulation.DefaultRollouts = 1000
	}
	if c.Simulation.DefaultDT == 0 {
		c.Simulation.DefaultDT = 1.0
	}
	if c.Simulation.MinRollouts == 0 {
		c.Simulation.MinRollouts = 30
	}
	if c.Simulation.MaxDiscardFraction == 0 {
		c.Simulation.MaxDiscardFraction = 0.5
	}
	if len(c.Simulation.ConfidenceLevels) == 0 {
		c.Simulation.ConfidenceLevels = []float64{0.68, 0.95}
	}
	if c.RESTServer.Port == 0 {
		c.RESTServer.Port = 8080
	}
	if c.RESTServer.ReadTimeoutSec == 0 {
		c.RESTServer.ReadTimeoutSec = 10
	}
	if c.RESTServer.WriteTimeoutSec == 0 {
		c.RESTServer.WriteTimeoutSec = 60
	}
}

// Validate rejects configurations the service cannot run with.
func (c *ConfigData) Validate() error {
	if c.Station.Name == "" {
		return fmt.Errorf("config: station.name is required")
	}
	if c.Station.ServiceCeiling <= 0 {
		return fmt.Errorf("config: station.service_ceiling_m must be > 0")
	}
	if c.WindModel.LengthScaleMin <= 0 || c.WindModel.LengthScaleMax < c.WindModel.LengthScaleMin {
		return fmt.Errorf("config: wind_model length-scale bounds must satisfy 0 < min <= max")
	}
	if c.WindModel.NoiseVar <= 0 {
		return fmt.Errorf("config: wind_model.noise_var must be > 0")
	}
	if c.Simulation.DefaultDT <= 0 {
		return fmt.Errorf("config: simulation.default_dt_s must be > 0")
	}
	if c.Simulation.MinRollouts < 2 {
		return fmt.Errorf("config: simulation.min_rollouts must be >= 2")
	}
	if c.Simulation.MaxDiscardFraction <= 0 || c.Simulation.MaxDiscardFraction >= 1 {
		return fmt.Errorf("config: simulation.max_discard_fraction must be in (0, 1)")
	}
	for _, level := range c.Simulation.ConfidenceLevels {
		if level <= 0 || level >= 1 {
			return fmt.Errorf("config: confidence level %g outside (0, 1)", level)
		}
	}
	if c.RESTServer.Port <= 0 || c.RESTServer.Port > 65535 {
		return fmt.Errorf("config: rest.port must be a valid TCP port")
	}
	return nil
}
