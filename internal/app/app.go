// Package app wires configuration, the sample store, the wind model, and the
// REST controller into a running service.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stratodrop/driftcast/internal/controllers/restserver"
	"github.com/stratodrop/driftcast/internal/ingest"
	"github.com/stratodrop/driftcast/internal/log"
	"github.com/stratodrop/driftcast/internal/montecarlo"
	"github.com/stratodrop/driftcast/internal/observability"
	"github.com/stratodrop/driftcast/internal/store"
	"github.com/stratodrop/driftcast/internal/types"
	"github.com/stratodrop/driftcast/internal/windfield"
	"github.com/stratodrop/driftcast/pkg/config"
	"go.uber.org/zap"
)

// currentModelName is the store key for the active model and sample set.
const currentModelName = "current"

// App represents the main application
type App struct {
	cfg     *config.ConfigData
	logger  *zap.SugaredLogger
	metrics *observability.Metrics
	model   atomic.Pointer[windfield.Model]
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
	}
}

// Model returns the currently fitted wind model, or nil before the first fit.
// Satisfies restserver.ModelSource.
func (a *App) Model() *windfield.Model {
	return a.model.Load()
}

// Refit fits a new model from the given samples and atomically swaps it in.
// Concurrent readers keep predicting against the old instance.
func (a *App) Refit(samples []types.WindSample) error {
	opts := windfield.Options{
		LengthScaleMin: a.cfg.WindModel.LengthScaleMin,
		LengthScaleMax: a.cfg.WindModel.LengthScaleMax,
		NoiseVar:       a.cfg.WindModel.NoiseVar,
	}
	start := time.Now()
	model, err := windfield.Fit(samples, opts)
	if err != nil {
		return err
	}
	a.metrics.FitDuration.Observe(time.Since(start).Seconds())
	a.metrics.ModelSamples.Set(float64(model.SampleCount()))
	a.model.Store(model)
	return nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.loadAndFit(); err != nil {
		return err
	}

	engine := montecarlo.NewEngine(montecarlo.Config{
		MinRollouts:        a.cfg.Simulation.MinRollouts,
		MaxDiscardFraction: a.cfg.Simulation.MaxDiscardFraction,
		Workers:            a.cfg.Simulation.Workers,
		Clock:              clockwork.NewRealClock(),
	}, a.metrics, a.logger)

	restController, err := restserver.NewController(ctx, &wg, a.cfg, a, engine, a.metrics, a.logger)
	if err != nil {
		return err
	}
	if err := restController.StartController(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// loadAndFit obtains the wind snapshot (CSV when configured, otherwise the
// persisted model) and fits the initial model.
func (a *App) loadAndFit() error {
	var st *store.Store
	if a.cfg.Station.DatabasePath != "" {
		var err error
		st, err = store.Open(a.cfg.Station.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	if a.cfg.Station.SamplesCSV != "" {
		samples, err := ingest.LoadCSV(a.cfg.Station.SamplesCSV)
		if err != nil {
			return err
		}
		if err := a.Refit(samples); err != nil {
			return err
		}
		a.logger.Infof("fitted wind model from %s (%d samples)", a.cfg.Station.SamplesCSV, len(samples))

		if st != nil {
			if err := st.SaveSampleSet(currentModelName, samples); err != nil {
				return err
			}
			if err := st.SaveModel(currentModelName, a.Model()); err != nil {
				return err
			}
			a.logger.Infof("persisted samples and model to %s", a.cfg.Station.DatabasePath)
		}
		return nil
	}

	if st != nil {
		model, err := st.LoadModel(currentModelName)
		if err != nil {
			return fmt.Errorf("no samples_csv configured and no persisted model: %w", err)
		}
		a.model.Store(model)
		a.metrics.ModelSamples.Set(float64(model.SampleCount()))
		a.logger.Infof("loaded persisted wind model from %s (%d samples)", a.cfg.Station.DatabasePath, model.SampleCount())
		return nil
	}

	return fmt.Errorf("app: either station.samples_csv or station.database_path must be configured")
}
