// drop-sim fits a wind model from a CSV sounding and runs a payload-drop
// simulation offline, printing the landing distribution summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/stratodrop/driftcast/internal/ingest"
	"github.com/stratodrop/driftcast/internal/montecarlo"
	"github.com/stratodrop/driftcast/internal/physics"
	"github.com/stratodrop/driftcast/internal/windfield"
)

func main() {
	var (
		csvPath     = flag.String("csv", "wind_samples.csv", "Path to wind sample CSV (altitude_m,u_wind,v_wind)")
		altitude    = flag.Float64("altitude", 20000, "Release altitude in meters")
		releaseX    = flag.Float64("x", 0, "Release X coordinate in meters (ENU)")
		releaseY    = flag.Float64("y", 0, "Release Y coordinate in meters (ENU)")
		descentRate = flag.Float64("descent-rate", 5.0, "Near-ground terminal descent rate in m/s")
		dragCoeff   = flag.Float64("drag", 1.0, "Drag coefficient")
		rollouts    = flag.Int("rollouts", 1000, "Number of Monte Carlo rollouts")
		dt          = flag.Float64("dt", 1.0, "Integration step in seconds")
		seed        = flag.Int64("seed", 0, "RNG seed; 0 draws one from the entropy source")
		levelsFlag  = flag.String("levels", "0.68,0.95", "Comma-separated confidence levels")
	)
	flag.Parse()

	samples, err := ingest.LoadCSV(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading wind samples: %v\n", err)
		os.Exit(1)
	}

	model, err := windfield.Fit(samples, windfield.DefaultOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fitting wind model: %v\n", err)
		os.Exit(1)
	}

	profile, err := physics.NewDescentProfile(*altitude, *releaseX, *releaseY, *descentRate, *dragCoeff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building descent profile: %v\n", err)
		os.Exit(1)
	}

	levels, err := parseLevels(*levelsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing confidence levels: %v\n", err)
		os.Exit(1)
	}

	req := montecarlo.Request{
		Profile:          profile,
		Rollouts:         *rollouts,
		DT:               *dt,
		ConfidenceLevels: levels,
	}
	if *seed != 0 {
		req.Seed = seed
	}

	engine := montecarlo.NewEngine(montecarlo.Config{}, nil, nil)
	result, err := engine.Run(context.Background(), model, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation failed: %v\n", err)
		os.Exit(1)
	}

	minAlt, maxAlt := model.TrainingRange()
	dist := result.Distribution

	fmt.Printf("Payload Drop Simulation\n")
	fmt.Printf("=======================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Wind samples:     %d (%.0f - %.0f m)\n", len(samples), minAlt, maxAlt)
	fmt.Printf("  Release altitude: %.0f m at (%.0f, %.0f)\n", *altitude, *releaseX, *releaseY)
	fmt.Printf("  Descent rate:     %.2f m/s (drag %.2f)\n", *descentRate, *dragCoeff)
	fmt.Printf("  Rollouts:         %d (dt = %.2f s)\n\n", *rollouts, *dt)

	fmt.Printf("Landing Distribution (run %s)\n", result.RunID)
	fmt.Printf("  Completed: %d   Discarded: %d   Elapsed: %v\n", dist.Completed, dist.Discarded, result.Elapsed)
	fmt.Printf("  Mean landing point: (%.1f, %.1f) m\n", dist.MeanX, dist.MeanY)
	fmt.Printf("  Drift distance:     %.1f m\n", math.Hypot(dist.MeanX-*releaseX, dist.MeanY-*releaseY))
	fmt.Printf("  Covariance:         [%.1f %.1f; %.1f %.1f] m²\n\n",
		dist.Covariance[0], dist.Covariance[1], dist.Covariance[2], dist.Covariance[3])

	fmt.Printf("%-8s | %12s | %12s | %10s | %14s\n", "Level", "Semi-major", "Semi-minor", "Orient.", "Area")
	fmt.Printf("---------+--------------+--------------+------------+---------------\n")
	for _, zone := range dist.Zones {
		fmt.Printf("%-8.2f | %10.1f m | %10.1f m | %8.1f° | %11.0f m²\n",
			zone.Level, zone.SemiMajor, zone.SemiMinor, zone.Orientation*180/math.Pi, zone.Area())
	}
}

func parseLevels(s string) ([]float64, error) {
	var levels []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		level, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid level %q", part)
		}
		levels = append(levels, level)
	}
	return levels, nil
}
