package montecarlo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stratodrop/driftcast/internal/physics"
	"github.com/stratodrop/driftcast/internal/types"
	"github.com/stratodrop/driftcast/internal/windfield"
)

// constWind is a deterministic WindPredictor for engine tests.
type constWind struct {
	pred types.WindPrediction
}

func (c constWind) Predict(float64) types.WindPrediction {
	return c.pred
}

func scenarioModel(t *testing.T) *windfield.Model {
	t.Helper()
	model, err := windfield.Fit([]types.WindSample{
		{Altitude: 1000, U: 5, V: 0},
		{Altitude: 20000, U: 25, V: 10},
	}, windfield.DefaultOptions())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	return model
}

func scenarioProfile(t *testing.T) types.DescentProfile {
	t.Helper()
	profile, err := physics.NewDescentProfile(20000, 0, 0, 5, 1)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	return profile
}

func seedPtr(v int64) *int64 {
	return &v
}

func TestScenarioDownwindDrift(t *testing.T) {
	engine := NewEngine(Config{}, nil, nil)
	result, err := engine.Run(context.Background(), scenarioModel(t), Request{
		Profile:          scenarioProfile(t),
		Rollouts:         1000,
		DT:               1,
		Seed:             seedPtr(7),
		ConfidenceLevels: []float64{0.68, 0.95},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	dist := result.Distribution
	if dist.Completed != 1000 || dist.Discarded != 0 {
		t.Fatalf("completed %d discarded %d, want 1000/0", dist.Completed, dist.Discarded)
	}
	if len(dist.Points) != 1000 {
		t.Fatalf("collected %d points, want 1000", len(dist.Points))
	}

	// The wind blows in +u at every altitude, so the ensemble must drift east.
	if dist.MeanX <= 0 {
		t.Errorf("mean landing x = %g, want > 0 (downwind drift)", dist.MeanX)
	}

	if len(dist.Zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(dist.Zones))
	}
	z68, z95 := dist.Zones[0], dist.Zones[1]
	if z68.Level != 0.68 || z95.Level != 0.95 {
		t.Fatalf("zones not sorted by level: %g, %g", z68.Level, z95.Level)
	}
	if z95.Area() <= z68.Area() {
		t.Errorf("95%% zone area %g not strictly larger than 68%% zone area %g", z95.Area(), z68.Area())
	}
}

func TestSeededRunsAreBitIdentical(t *testing.T) {
	engine := NewEngine(Config{}, nil, nil)
	req := Request{
		Profile:  scenarioProfile(t),
		Rollouts: 200,
		DT:       1,
		Seed:     seedPtr(42),
	}
	model := scenarioModel(t)

	a, err := engine.Run(context.Background(), model, req)
	if err != nil {
		t.Fatalf("run a: %v", err)
	}
	b, err := engine.Run(context.Background(), model, req)
	if err != nil {
		t.Fatalf("run b: %v", err)
	}

	if len(a.Distribution.Points) != len(b.Distribution.Points) {
		t.Fatalf("point counts differ: %d vs %d", len(a.Distribution.Points), len(b.Distribution.Points))
	}
	for i := range a.Distribution.Points {
		if a.Distribution.Points[i] != b.Distribution.Points[i] {
			t.Fatalf("point %d differs: %+v vs %+v", i, a.Distribution.Points[i], b.Distribution.Points[i])
		}
	}
	if a.Distribution.MeanX != b.Distribution.MeanX || a.Distribution.MeanY != b.Distribution.MeanY {
		t.Error("means differ between identically seeded runs")
	}
}

func TestZoneNesting(t *testing.T) {
	engine := NewEngine(Config{}, nil, nil)
	result, err := engine.Run(context.Background(), scenarioModel(t), Request{
		Profile:          scenarioProfile(t),
		Rollouts:         500,
		DT:               1,
		Seed:             seedPtr(11),
		ConfidenceLevels: []float64{0.68, 0.95},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	z68, z95 := result.Distribution.Zones[0], result.Distribution.Zones[1]
	for i, p := range result.Distribution.Points {
		if InZone(z68, p) && !InZone(z95, p) {
			t.Errorf("point %d (%+v) inside the 68%% zone but outside the 95%% zone", i, p)
		}
	}
}

func TestRejectsTooFewRollouts(t *testing.T) {
	engine := NewEngine(Config{}, nil, nil)
	_, err := engine.Run(context.Background(), constWind{}, Request{
		Profile:  scenarioProfile(t),
		Rollouts: 10,
		DT:       1,
	})
	var insufficient *InsufficientRolloutsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientRolloutsError, got %v", err)
	}
	if insufficient.Requested != 10 {
		t.Errorf("error reports %d requested, want 10", insufficient.Requested)
	}
}

func TestRejectsInvalidConfidenceLevel(t *testing.T) {
	engine := NewEngine(Config{}, nil, nil)
	_, err := engine.Run(context.Background(), constWind{}, Request{
		Profile:          scenarioProfile(t),
		Rollouts:         100,
		DT:               1,
		ConfidenceLevels: []float64{1.5},
	})
	if err == nil {
		t.Fatal("expected error for confidence level outside (0, 1)")
	}
}

func TestZeroDescentRateDiscardsEverything(t *testing.T) {
	// Built as a literal to bypass profile validation: every rollout spins
	// to the step ceiling, and the run fails on the discard rate.
	profile := types.DescentProfile{
		InitialAltitude:     1000,
		TerminalDescentRate: 0,
		DragCoefficient:     1,
	}

	engine := NewEngine(Config{}, nil, nil)
	_, err := engine.Run(context.Background(), constWind{}, Request{
		Profile:  profile,
		Rollouts: 40,
		DT:       1,
		MaxSteps: 100,
	})
	var insufficient *InsufficientRolloutsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientRolloutsError, got %v", err)
	}
	if insufficient.Discarded != 40 || insufficient.Completed != 0 {
		t.Errorf("error reports completed=%d discarded=%d, want 0/40", insufficient.Completed, insufficient.Discarded)
	}
}

// deadlineWind counts rollout starts (the first prediction of every rollout
// is at the release altitude) and fires a callback when the configured start
// is reached. Only safe with a single worker.
type deadlineWind struct {
	initialAltitude float64
	triggerStart    int
	starts          int
	onTrigger       func()
}

func (d *deadlineWind) Predict(altitude float64) types.WindPrediction {
	if altitude == d.initialAltitude {
		d.starts++
		if d.starts == d.triggerStart {
			d.onTrigger()
		}
	}
	return types.WindPrediction{MeanU: 4, MeanV: 2}
}

func TestDeadlineMidRunAggregatesCompletions(t *testing.T) {
	profile, err := physics.NewDescentProfile(2000, 0, 0, 5, 1)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}

	// The fake clock expires the request deadline while the 51st rollout is
	// in flight. The rollouts already finished are enough for an aggregate,
	// so the run must succeed with a partial ensemble.
	fc := clockwork.NewFakeClock()
	timeout := time.Minute
	wind := &deadlineWind{
		initialAltitude: profile.InitialAltitude,
		triggerStart:    51,
		onTrigger:       func() { fc.Advance(2 * timeout) },
	}

	engine := NewEngine(Config{Workers: 1, Clock: fc}, nil, nil)
	result, err := engine.Run(context.Background(), wind, Request{
		Profile:  profile,
		Rollouts: 100,
		DT:       1,
		Timeout:  timeout,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	dist := result.Distribution
	if dist.Completed < DefaultMinRollouts {
		t.Fatalf("completed %d, want at least the minimum of %d", dist.Completed, DefaultMinRollouts)
	}
	if dist.Completed >= 100 {
		t.Fatalf("completed %d rollouts, want fewer than requested after the deadline", dist.Completed)
	}
	if dist.Discarded != 0 {
		t.Errorf("discarded %d, want 0 (abandoned rollouts are not discards)", dist.Discarded)
	}
	if len(dist.Points) != dist.Completed {
		t.Errorf("collected %d points for %d completions", len(dist.Points), dist.Completed)
	}
	if dist.MeanX <= 0 {
		t.Errorf("mean landing x = %g, want > 0 under a +u wind", dist.MeanX)
	}
	if result.Elapsed < timeout {
		t.Errorf("elapsed %v, want at least the %v deadline", result.Elapsed, timeout)
	}
}

func TestCancelledContextLeavesTooFewCompletions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(Config{}, nil, nil)
	_, err := engine.Run(ctx, constWind{}, Request{
		Profile:  scenarioProfile(t),
		Rollouts: 100,
		DT:       1,
	})
	var insufficient *InsufficientRolloutsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientRolloutsError, got %v", err)
	}
}

func TestDegenerateSpreadProducesZeroAreaZones(t *testing.T) {
	// A noiseless wind model lands every rollout on the same point; the
	// aggregate must stay finite with zero-size zones.
	engine := NewEngine(Config{}, nil, nil)
	result, err := engine.Run(context.Background(), constWind{types.WindPrediction{MeanU: 4, MeanV: 2}}, Request{
		Profile:  scenarioProfile(t),
		Rollouts: 50,
		DT:       1,
		Seed:     seedPtr(1),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	dist := result.Distribution
	first := dist.Points[0]
	for _, p := range dist.Points {
		if p != first {
			t.Fatalf("noiseless rollouts landed at different points: %+v vs %+v", first, p)
		}
	}
	for _, zone := range dist.Zones {
		if zone.Area() != 0 {
			t.Errorf("zone %g has area %g, want 0 for a degenerate spread", zone.Level, zone.Area())
		}
	}
}

func TestRolloutSeedsAreIndependent(t *testing.T) {
	seen := make(map[int64]struct{})
	for i := 0; i < 1000; i++ {
		s := rolloutSeed(7, i)
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate rollout seed at index %d", i)
		}
		seen[s] = struct{}{}
	}
}
