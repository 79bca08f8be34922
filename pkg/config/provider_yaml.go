package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// yaml mirror structs; the JSON-tagged ConfigData stays the canonical model.
type yamlConfig struct {
	Station    yamlStation    `yaml:"station"`
	WindModel  yamlWindModel  `yaml:"wind_model"`
	Simulation yamlSimulation `yaml:"simulation"`
	RESTServer yamlRESTServer `yaml:"rest"`
}

type yamlStation struct {
	Name           string  `yaml:"name"`
	ServiceCeiling float64 `yaml:"service_ceiling_m"`
	SamplesCSV     string  `yaml:"samples_csv"`
	DatabasePath   string  `yaml:"database_path"`
}

type yamlWindModel struct {
	LengthScaleMin float64 `yaml:"length_scale_min_m"`
	LengthScaleMax float64 `yaml:"length_scale_max_m"`
	NoiseVar       float64 `yaml:"noise_var"`
}

type yamlSimulation struct {
	DefaultRollouts    int       `yaml:"default_rollouts"`
	DefaultDT          float64   `yaml:"default_dt_s"`
	MinRollouts        int       `yaml:"min_rollouts"`
	MaxDiscardFraction float64   `yaml:"max_discard_fraction"`
	MaxSteps           int       `yaml:"max_steps"`
	Workers            int       `yaml:"workers"`
	ConfidenceLevels   []float64 `yaml:"confidence_levels"`
	TimeoutSeconds     float64   `yaml:"timeout_seconds"`
}

type yamlRESTServer struct {
	ListenAddr         string `yaml:"listen_addr"`
	Port               int    `yaml:"port"`
	ReadTimeoutSec     int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec    int    `yaml:"write_timeout_sec"`
	EnableTrajectories bool   `yaml:"enable_trajectories"`
}

// LoadConfig loads the complete configuration from a YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(cfgFile, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", y.filename, err)
	}

	cfg := &ConfigData{
		Station: StationData{
			Name:           raw.Station.Name,
			ServiceCeiling: raw.Station.ServiceCeiling,
			SamplesCSV:     raw.Station.SamplesCSV,
			DatabasePath:   raw.Station.DatabasePath,
		},
		WindModel: WindModelData{
			LengthScaleMin: raw.WindModel.LengthScaleMin,
			LengthScaleMax: raw.WindModel.LengthScaleMax,
			NoiseVar:       raw.WindModel.NoiseVar,
		},
		Simulation: SimulationData{
			DefaultRollouts:    raw.Simulation.DefaultRollouts,
			DefaultDT:          raw.Simulation.DefaultDT,
			MinRollouts:        raw.Simulation.MinRollouts,
			MaxDiscardFraction: raw.Simulation.MaxDiscardFraction,
			MaxSteps:           raw.Simulation.MaxSteps,
			Workers:            raw.Simulation.Workers,
			ConfidenceLevels:   raw.Simulation.ConfidenceLevels,
			TimeoutSeconds:     raw.Simulation.TimeoutSeconds,
		},
		RESTServer: RESTServerData{
			ListenAddr:         raw.RESTServer.ListenAddr,
			Port:               raw.RESTServer.Port,
			ReadTimeoutSec:     raw.RESTServer.ReadTimeoutSec,
			WriteTimeoutSec:    raw.RESTServer.WriteTimeoutSec,
			EnableTrajectories: raw.RESTServer.EnableTrajectories,
		},
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsReadOnly returns true; YAML files are not written by the service.
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML providers.
func (y *YAMLProvider) Close() error {
	return nil
}
