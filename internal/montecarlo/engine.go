// Package montecarlo runs ensembles of stochastic descent rollouts and turns
// the terminal points into a landing distribution with confidence ellipses.
package montecarlo

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stratodrop/driftcast/internal/observability"
	"github.com/stratodrop/driftcast/internal/trajectory"
	"github.com/stratodrop/driftcast/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMinRollouts is the smallest ensemble for which the sample covariance
// and the confidence-zone claims are considered meaningful.
const DefaultMinRollouts = 30

// DefaultMaxDiscardFraction is the discard rate above which a run is treated
// as a systemic profile problem rather than isolated bad luck.
const DefaultMaxDiscardFraction = 0.5

// DefaultConfidenceLevels are used when a request names none.
var DefaultConfidenceLevels = []float64{0.68, 0.95}

// InsufficientRolloutsError reports a simulate call that could not produce a
// statistically usable ensemble: too few rollouts requested, too many
// discarded, or a deadline that left too few completions.
type InsufficientRolloutsError struct {
	Requested int
	Completed int
	Discarded int
	Reason    string
}

func (e *InsufficientRolloutsError) Error() string {
	return fmt.Sprintf("montecarlo: %s (requested %d, completed %d, discarded %d)",
		e.Reason, e.Requested, e.Completed, e.Discarded)
}

// Config tunes the engine. Zero values select the defaults.
type Config struct {
	MinRollouts        int
	MaxDiscardFraction float64
	Workers            int
	Clock              clockwork.Clock
}

// Engine executes independent rollouts on a worker pool. Rollouts share
// nothing but read-only access to the fitted wind model, so completion order
// is irrelevant and the aggregate is order-independent.
type Engine struct {
	cfg     Config
	metrics *observability.Metrics
	logger  *zap.SugaredLogger
}

// NewEngine builds an engine. metrics may be nil; logger may be nil.
func NewEngine(cfg Config, metrics *observability.Metrics, logger *zap.SugaredLogger) *Engine {
	if cfg.MinRollouts <= 0 {
		cfg.MinRollouts = DefaultMinRollouts
	}
	if cfg.MaxDiscardFraction <= 0 {
		cfg.MaxDiscardFraction = DefaultMaxDiscardFraction
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{cfg: cfg, metrics: metrics, logger: logger}
}

// Request describes one simulate call.
type Request struct {
	Profile  types.DescentProfile
	Rollouts int
	DT       float64
	// Seed, when non-nil, makes the run reproducible: rollout i draws from
	// a private stream derived from (*Seed, i). When nil, the base seed
	// comes from the process entropy source.
	Seed             *int64
	ConfidenceLevels []float64
	// MaxSteps caps each rollout; <= 0 selects trajectory.DefaultMaxSteps.
	MaxSteps int
	// Timeout, when positive, bounds the whole run. Rollouts still queued
	// when it expires are abandoned; the aggregate covers whatever
	// completed, provided the minimum-rollout threshold is met.
	Timeout time.Duration
}

// Result is a completed simulate call.
type Result struct {
	RunID        string
	Distribution *types.LandingDistribution
	// SampleTrajectory is the path of the first successful rollout, for
	// plotting. Nil if rollout 0 was discarded.
	SampleTrajectory []types.PayloadState
	Elapsed          time.Duration
}

// Run executes the ensemble and aggregates the landing distribution.
func (e *Engine) Run(ctx context.Context, model trajectory.WindPredictor, req Request) (*Result, error) {
	if req.Rollouts < e.cfg.MinRollouts {
		return nil, &InsufficientRolloutsError{
			Requested: req.Rollouts,
			Reason:    fmt.Sprintf("n_rollouts below minimum of %d", e.cfg.MinRollouts),
		}
	}
	if req.DT <= 0 {
		return nil, fmt.Errorf("montecarlo: dt must be > 0, got %g", req.DT)
	}
	levels, err := normalizeLevels(req.ConfidenceLevels)
	if err != nil {
		return nil, err
	}

	base := baseSeed(req.Seed)
	start := e.cfg.Clock.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if req.Timeout > 0 {
		timer := e.cfg.Clock.AfterFunc(req.Timeout, cancel)
		defer timer.Stop()
	}

	landings := make([]*types.LandingPoint, req.Rollouts)
	var samplePath []types.PayloadState
	var sampleMu sync.Mutex
	var discarded atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := 0; i < req.Rollouts; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rng := mathrand.New(mathrand.NewSource(rolloutSeed(base, i)))
			path, err := trajectory.Run(req.Profile, model, rng, req.DT, req.MaxSteps)
			if err != nil {
				discarded.Add(1)
				e.count("discarded")
				return nil
			}
			last := path[len(path)-1]
			landings[i] = &types.LandingPoint{X: last.X, Y: last.Y}
			e.count("completed")
			if i == 0 {
				sampleMu.Lock()
				samplePath = path
				sampleMu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	points := make([]types.LandingPoint, 0, req.Rollouts)
	for _, p := range landings {
		if p != nil {
			points = append(points, *p)
		}
	}
	completed := len(points)
	nDiscarded := int(discarded.Load())
	attempted := completed + nDiscarded

	if attempted > 0 && float64(nDiscarded) > e.cfg.MaxDiscardFraction*float64(attempted) {
		return nil, &InsufficientRolloutsError{
			Requested: req.Rollouts,
			Completed: completed,
			Discarded: nDiscarded,
			Reason:    fmt.Sprintf("discard rate %.0f%% exceeds limit of %.0f%%", 100*float64(nDiscarded)/float64(attempted), 100*e.cfg.MaxDiscardFraction),
		}
	}
	if completed < e.cfg.MinRollouts {
		return nil, &InsufficientRolloutsError{
			Requested: req.Rollouts,
			Completed: completed,
			Discarded: nDiscarded,
			Reason:    fmt.Sprintf("only %d rollouts completed before the deadline, need %d", completed, e.cfg.MinRollouts),
		}
	}

	dist := aggregate(points, levels)
	dist.Completed = completed
	dist.Discarded = nDiscarded

	elapsed := e.cfg.Clock.Since(start)
	if e.metrics != nil {
		e.metrics.SimulationDuration.Observe(elapsed.Seconds())
	}
	e.logger.Infow("simulation complete",
		"rollouts", req.Rollouts, "completed", completed, "discarded", nDiscarded,
		"mean_x", dist.MeanX, "mean_y", dist.MeanY, "elapsed", elapsed)

	return &Result{
		RunID:            uuid.NewString(),
		Distribution:     dist,
		SampleTrajectory: samplePath,
		Elapsed:          elapsed,
	}, nil
}

func (e *Engine) count(result string) {
	if e.metrics != nil {
		e.metrics.Rollouts.WithLabelValues(result).Inc()
	}
}

func normalizeLevels(levels []float64) ([]float64, error) {
	if len(levels) == 0 {
		levels = DefaultConfidenceLevels
	}
	out := make([]float64, len(levels))
	copy(out, levels)
	for _, l := range out {
		if l <= 0 || l >= 1 {
			return nil, fmt.Errorf("montecarlo: confidence level %g outside (0, 1)", l)
		}
	}
	sort.Float64s(out)
	return out, nil
}

func baseSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Entropy read failures are effectively impossible; fall back to
		// the wall clock rather than aborting the run.
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// rolloutSeed derives independent per-rollout streams from the base seed
// with a SplitMix64 finalizer, so neighboring indices do not produce
// correlated math/rand sources.
func rolloutSeed(base int64, i int) int64 {
	z := uint64(base) + uint64(i+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}
