package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the SQLite database. The
// config table is a flat key/value store, one row per setting, section-prefixed
// keys ("station.name", "simulation.default_rollouts", ...).
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	rows, err := s.db.Query(`SELECT key, value FROM config`)
	if err != nil {
		return nil, fmt.Errorf("failed to load config table: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config table: %w", err)
	}

	cfg := &ConfigData{}
	cfg.Station.Name = kv["station.name"]
	cfg.Station.SamplesCSV = kv["station.samples_csv"]
	cfg.Station.DatabasePath = kv["station.database_path"]

	var parseErr error
	getFloat := func(key string, dst *float64) {
		if v, ok := kv[key]; ok && parseErr == nil {
			if _, err := fmt.Sscanf(v, "%g", dst); err != nil {
				parseErr = fmt.Errorf("config key %s: invalid number %q", key, v)
			}
		}
	}
	getInt := func(key string, dst *int) {
		if v, ok := kv[key]; ok && parseErr == nil {
			if _, err := fmt.Sscanf(v, "%d", dst); err != nil {
				parseErr = fmt.Errorf("config key %s: invalid integer %q", key, v)
			}
		}
	}

	getFloat("station.service_ceiling_m", &cfg.Station.ServiceCeiling)
	getFloat("wind_model.length_scale_min_m", &cfg.WindModel.LengthScaleMin)
	getFloat("wind_model.length_scale_max_m", &cfg.WindModel.LengthScaleMax)
	getFloat("wind_model.noise_var", &cfg.WindModel.NoiseVar)
	getInt("simulation.default_rollouts", &cfg.Simulation.DefaultRollouts)
	getFloat("simulation.default_dt_s", &cfg.Simulation.DefaultDT)
	getInt("simulation.min_rollouts", &cfg.Simulation.MinRollouts)
	getFloat("simulation.max_discard_fraction", &cfg.Simulation.MaxDiscardFraction)
	getInt("simulation.max_steps", &cfg.Simulation.MaxSteps)
	getInt("simulation.workers", &cfg.Simulation.Workers)
	getFloat("simulation.timeout_seconds", &cfg.Simulation.TimeoutSeconds)
	cfg.RESTServer.ListenAddr = kv["rest.listen_addr"]
	getInt("rest.port", &cfg.RESTServer.Port)
	getInt("rest.read_timeout_sec", &cfg.RESTServer.ReadTimeoutSec)
	getInt("rest.write_timeout_sec", &cfg.RESTServer.WriteTimeoutSec)
	if kv["rest.enable_trajectories"] == "true" {
		cfg.RESTServer.EnableTrajectories = true
	}
	if parseErr != nil {
		return nil, parseErr
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsReadOnly returns false; SQLite-backed configuration can be updated.
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
