// Package ingest loads wind-sample snapshots from CSV files and validates
// them before they reach the wind-field fit.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/stratodrop/driftcast/internal/types"
)

// LoadCSV reads wind samples from a CSV file. The header must name an
// altitude column ("altitude_m" or "altitude_km") and the wind columns
// "u_wind" and "v_wind". Kilometer altitudes are converted to meters.
func LoadCSV(path string) ([]types.WindSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening %s: %w", path, err)
	}
	defer f.Close()

	samples, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	return samples, nil
}

// ReadCSV parses and validates wind samples from a CSV stream.
func ReadCSV(r io.Reader) ([]types.WindSample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	altIdx, uIdx, vIdx := -1, -1, -1
	altScale := 1.0
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "altitude_m":
			altIdx = i
		case "altitude_km":
			altIdx = i
			altScale = 1000.0
		case "u_wind":
			uIdx = i
		case "v_wind":
			vIdx = i
		}
	}
	if altIdx < 0 || uIdx < 0 || vIdx < 0 {
		return nil, fmt.Errorf("header must contain altitude_m (or altitude_km), u_wind, and v_wind columns, got %v", header)
	}

	var samples []types.WindSample
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		altitude, err := parseField(record, altIdx, "altitude")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		u, err := parseField(record, uIdx, "u_wind")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		v, err := parseField(record, vIdx, "v_wind")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		altitude *= altScale
		if altitude <= 0 {
			return nil, fmt.Errorf("row %d: altitude must be > 0, got %g", row, altitude)
		}

		samples = append(samples, types.WindSample{Altitude: altitude, U: u, V: v})
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return samples, nil
}

func parseField(record []string, idx int, name string) (float64, error) {
	if idx >= len(record) {
		return 0, fmt.Errorf("missing %s column", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", name, record[idx], err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be finite, got %g", name, v)
	}
	return v, nil
}
