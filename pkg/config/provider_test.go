package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	path := writeYAML(t, `
station:
  name: white-sands
  service_ceiling_m: 25000
  samples_csv: sounding.csv
wind_model:
  length_scale_min_m: 500
  noise_var: 0.2
simulation:
  default_rollouts: 2000
  confidence_levels: [0.5, 0.9]
rest:
  port: 9090
  enable_trajectories: true
`)

	provider := NewYAMLProvider(path)
	cfg, err := provider.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "white-sands", cfg.Station.Name)
	assert.Equal(t, 25000.0, cfg.Station.ServiceCeiling)
	assert.Equal(t, "sounding.csv", cfg.Station.SamplesCSV)
	assert.Equal(t, 500.0, cfg.WindModel.LengthScaleMin)
	assert.Equal(t, 0.2, cfg.WindModel.NoiseVar)
	assert.Equal(t, 2000, cfg.Simulation.DefaultRollouts)
	assert.Equal(t, []float64{0.5, 0.9}, cfg.Simulation.ConfidenceLevels)
	assert.Equal(t, 9090, cfg.RESTServer.Port)
	assert.True(t, cfg.RESTServer.EnableTrajectories)

	// Omitted fields pick up defaults.
	assert.Equal(t, 30000.0, cfg.WindModel.LengthScaleMax)
	assert.Equal(t, 1.0, cfg.Simulation.DefaultDT)
	assert.Equal(t, 30, cfg.Simulation.MinRollouts)
	assert.Equal(t, 0.5, cfg.Simulation.MaxDiscardFraction)

	assert.True(t, provider.IsReadOnly())
	assert.NoError(t, provider.Close())
}

func TestYAMLProviderMissingFile(t *testing.T) {
	_, err := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml")).LoadConfig()
	assert.Error(t, err)
}

func TestYAMLProviderMalformed(t *testing.T) {
	path := writeYAML(t, "station: [not: a: map\n")
	_, err := NewYAMLProvider(path).LoadConfig()
	assert.ErrorContains(t, err, "parsing")
}

func TestYAMLProviderValidation(t *testing.T) {
	// Missing station name fails validation even after defaults.
	path := writeYAML(t, "rest:\n  port: 8080\n")
	_, err := NewYAMLProvider(path).LoadConfig()
	assert.ErrorContains(t, err, "station.name")
}

func TestValidate(t *testing.T) {
	base := func() *ConfigData {
		cfg := &ConfigData{Station: StationData{Name: "test"}}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*ConfigData)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*ConfigData) {},
		},
		{
			name:    "length scale bounds inverted",
			mutate:  func(c *ConfigData) { c.WindModel.LengthScaleMin = 40000 },
			wantErr: "length-scale",
		},
		{
			name:    "zero noise variance",
			mutate:  func(c *ConfigData) { c.WindModel.NoiseVar = -1 },
			wantErr: "noise_var",
		},
		{
			name:    "negative dt",
			mutate:  func(c *ConfigData) { c.Simulation.DefaultDT = -0.5 },
			wantErr: "default_dt_s",
		},
		{
			name:    "min rollouts below floor",
			mutate:  func(c *ConfigData) { c.Simulation.MinRollouts = 1 },
			wantErr: "min_rollouts",
		},
		{
			name:    "discard fraction at one",
			mutate:  func(c *ConfigData) { c.Simulation.MaxDiscardFraction = 1 },
			wantErr: "max_discard_fraction",
		},
		{
			name:    "confidence level out of range",
			mutate:  func(c *ConfigData) { c.Simulation.ConfidenceLevels = []float64{0.68, 1.0} },
			wantErr: "confidence level",
		},
		{
			name:    "port out of range",
			mutate:  func(c *ConfigData) { c.RESTServer.Port = 70000 },
			wantErr: "port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
