// Package restserver exposes the wind model and the Monte Carlo engine over
// HTTP: wind predictions, drop simulations, health, and metrics.
package restserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stratodrop/driftcast/internal/montecarlo"
	"github.com/stratodrop/driftcast/internal/observability"
	"github.com/stratodrop/driftcast/internal/windfield"
	"github.com/stratodrop/driftcast/pkg/config"
	"go.uber.org/zap"
)

// ModelSource supplies the current fitted wind model. The app swaps the
// model atomically on re-fit, so handlers always see a consistent instance.
type ModelSource interface {
	Model() *windfield.Model
}

// Controller represents the REST server controller
type Controller struct {
	ctx           context.Context
	wg            *sync.WaitGroup
	stationConfig config.StationData
	restConfig    config.RESTServerData
	simConfig     config.SimulationData
	Server     http.Server
	models     ModelSource
	engine     *montecarlo.Engine
	metrics    *observability.Metrics
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, models ModelSource, engine *montecarlo.Engine, metrics *observability.Metrics, logger *zap.SugaredLogger) (*Controller, error) {
	if models == nil {
		return nil, fmt.Errorf("restserver: a model source is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("restserver: a simulation engine is required")
	}

	ctrl := &Controller{
		ctx:           ctx,
		wg:            wg,
		stationConfig: cfg.Station,
		restConfig:    cfg.RESTServer,
		simConfig:     cfg.Simulation,
		models:        models,
		engine:        engine,
		metrics:       metrics,
		logger:        logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	router := mux.NewRouter()
	router.HandleFunc("/api/wind", ctrl.handlers.GetWindPrediction).Methods(http.MethodGet)
	router.HandleFunc("/api/simulate", ctrl.handlers.PostSimulate).Methods(http.MethodPost)
	router.HandleFunc("/api/samples", ctrl.handlers.GetSamples).Methods(http.MethodGet)
	router.HandleFunc("/healthz", ctrl.handlers.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Use(ctrl.requestLogger)

	ctrl.Server = http.Server{
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.RESTServer.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.RESTServer.WriteTimeoutSec) * time.Second,
	}

	return ctrl, nil
}

// StartController starts the REST server and blocks until the parent context
// is cancelled.
func (c *Controller) StartController() error {
	addr := net.JoinHostPort(c.restConfig.ListenAddr, strconv.Itoa(c.restConfig.Port))
	c.Server.Addr = addr

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("restserver: listening on %s: %w", addr, err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Infof("REST server listening on %s", addr)
		if err := c.Server.Serve(listener); err != nil && err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Server.Shutdown(shutdownCtx); err != nil {
			c.logger.Errorf("REST server shutdown error: %v", err)
		}
	}()

	return nil
}

// Router exposes the handler for tests.
func (c *Controller) Router() http.Handler {
	return c.Server.Handler
}

func (c *Controller) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		c.logger.Debugw("http request",
			"method", req.Method, "path", req.URL.Path, "duration", time.Since(start))
	})
}
