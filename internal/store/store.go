// Package store persists wind-sample snapshots and fitted wind-field models
// in a local SQLite database. Models are stored as opaque msgpack blobs; a
// loaded model reproduces the original's predictions bit-for-bit.
package store

import (
	"database/sql"
	"fmt"

	"github.com/stratodrop/driftcast/internal/types"
	"github.com/stratodrop/driftcast/internal/windfield"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sample_sets (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT UNIQUE NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS wind_samples (
	set_id     INTEGER NOT NULL REFERENCES sample_sets(id) ON DELETE CASCADE,
	altitude_m REAL NOT NULL,
	u_wind     REAL NOT NULL,
	v_wind     REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS wind_models (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT UNIQUE NOT NULL,
	snapshot   BLOB NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: opening SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSampleSet stores a named snapshot of wind samples, replacing any
// existing set with the same name.
func (s *Store) SaveSampleSet(name string, samples []types.WindSample) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM wind_samples WHERE set_id IN (SELECT id FROM sample_sets WHERE name = ?)`, name); err != nil {
		return fmt.Errorf("store: clearing samples for %q: %w", name, err)
	}
	if _, err := tx.Exec(`DELETE FROM sample_sets WHERE name = ?`, name); err != nil {
		return fmt.Errorf("store: clearing sample set %q: %w", name, err)
	}

	res, err := tx.Exec(`INSERT INTO sample_sets (name) VALUES (?)`, name)
	if err != nil {
		return fmt.Errorf("store: inserting sample set %q: %w", name, err)
	}
	setID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: sample set id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO wind_samples (set_id, altitude_m, u_wind, v_wind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: preparing sample insert: %w", err)
	}
	defer stmt.Close()
	for _, smp := range samples {
		if _, err := stmt.Exec(setID, smp.Altitude, smp.U, smp.V); err != nil {
			return fmt.Errorf("store: inserting sample: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSampleSet returns the samples of a named set, in insertion order.
func (s *Store) LoadSampleSet(name string) ([]types.WindSample, error) {
	rows, err := s.db.Query(`
		SELECT ws.altitude_m, ws.u_wind, ws.v_wind
		FROM wind_samples ws
		JOIN sample_sets ss ON ss.id = ws.set_id
		WHERE ss.name = ?
		ORDER BY ws.rowid`, name)
	if err != nil {
		return nil, fmt.Errorf("store: querying sample set %q: %w", name, err)
	}
	defer rows.Close()

	var samples []types.WindSample
	for rows.Next() {
		var smp types.WindSample
		if err := rows.Scan(&smp.Altitude, &smp.U, &smp.V); err != nil {
			return nil, fmt.Errorf("store: scanning sample: %w", err)
		}
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: reading sample set %q: %w", name, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("store: sample set %q not found", name)
	}
	return samples, nil
}

// SaveModel stores a fitted model under a name, replacing any previous one.
func (s *Store) SaveModel(name string, model *windfield.Model) error {
	blob, err := model.MarshalBinary()
	if err != nil {
		return fmt.Errorf("store: encoding model %q: %w", name, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO wind_models (name, snapshot) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET snapshot = excluded.snapshot, created_at = CURRENT_TIMESTAMP`,
		name, blob)
	if err != nil {
		return fmt.Errorf("store: saving model %q: %w", name, err)
	}
	return nil
}

// LoadModel restores a fitted model by name.
func (s *Store) LoadModel(name string) (*windfield.Model, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT snapshot FROM wind_models WHERE name = ?`, name).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: model %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: loading model %q: %w", name, err)
	}
	model, err := windfield.UnmarshalModel(blob)
	if err != nil {
		return nil, fmt.Errorf("store: decoding model %q: %w", name, err)
	}
	return model, nil
}
