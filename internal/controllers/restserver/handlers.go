package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/stratodrop/driftcast/internal/montecarlo"
	"github.com/stratodrop/driftcast/internal/physics"
	"github.com/stratodrop/driftcast/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetWindPrediction handles GET /api/wind?altitude=<meters>.
func (h *Handlers) GetWindPrediction(w http.ResponseWriter, req *http.Request) {
	altStr := req.URL.Query().Get("altitude")
	if altStr == "" {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "missing altitude query parameter")
		return
	}
	altitude, err := strconv.ParseFloat(altStr, 64)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, "altitude must be a number")
		return
	}

	model := h.controller.models.Model()
	if model == nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no wind model fitted yet")
		return
	}

	// The station's operating range is [0, service ceiling]; queries outside
	// it are served but flagged, like queries beyond the training range.
	ceiling := h.controller.stationConfig.ServiceCeiling
	minAlt, maxAlt := model.TrainingRange()
	resp := WindResponse{
		Altitude:      altitude,
		Prediction:    model.Predict(altitude),
		Extrapolated:  altitude < minAlt || altitude > maxAlt || altitude < 0 || altitude > ceiling,
		TrainingRange: [2]float64{minAlt, maxAlt},
	}
	h.formatter.WriteResponse(w, req, resp)
}

// PostSimulate handles POST /api/simulate.
func (h *Handlers) PostSimulate(w http.ResponseWriter, req *http.Request) {
	var body SimulateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		h.countSimulation("invalid_request")
		h.formatter.WriteError(w, req, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	model := h.controller.models.Model()
	if model == nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no wind model fitted yet")
		return
	}

	if ceiling := h.controller.stationConfig.ServiceCeiling; body.InitialAltitude > ceiling {
		h.countSimulation("invalid_request")
		h.formatter.WriteError(w, req, http.StatusUnprocessableEntity,
			fmt.Sprintf("initial_altitude_m %g exceeds the service ceiling of %g m", body.InitialAltitude, ceiling))
		return
	}

	profile, err := physics.NewDescentProfile(
		body.InitialAltitude, body.ReleaseX, body.ReleaseY,
		body.TerminalDescentRate, body.DragCoefficient)
	if err != nil {
		var invalidProfile *physics.InvalidProfileError
		if errors.As(err, &invalidProfile) {
			h.countSimulation("invalid_request")
			h.formatter.WriteError(w, req, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.formatter.WriteError(w, req, http.StatusInternalServerError, err.Error())
		return
	}

	simCfg := h.controller.simConfig
	mcReq := montecarlo.Request{
		Profile:          profile,
		Rollouts:         body.Rollouts,
		DT:               body.DT,
		Seed:             body.Seed,
		ConfidenceLevels: body.ConfidenceLevels,
		MaxSteps:         simCfg.MaxSteps,
		Timeout:          time.Duration(simCfg.TimeoutSeconds * float64(time.Second)),
	}
	if mcReq.Rollouts == 0 {
		mcReq.Rollouts = simCfg.DefaultRollouts
	}
	if mcReq.DT == 0 {
		mcReq.DT = simCfg.DefaultDT
	}
	if len(mcReq.ConfidenceLevels) == 0 {
		mcReq.ConfidenceLevels = simCfg.ConfidenceLevels
	}

	result, err := h.controller.engine.Run(req.Context(), model, mcReq)
	if err != nil {
		var insufficient *montecarlo.InsufficientRolloutsError
		if errors.As(err, &insufficient) {
			h.countSimulation("insufficient_rollouts")
			h.formatter.WriteError(w, req, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.countSimulation("invalid_request")
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	resp := SimulateResponse{
		RunID:        result.RunID,
		Distribution: result.Distribution,
		ElapsedMS:    result.Elapsed.Milliseconds(),
	}
	if body.IncludeTrajectory && h.controller.restConfig.EnableTrajectories {
		resp.Trajectory = result.SampleTrajectory
	}
	h.countSimulation("ok")
	h.formatter.WriteResponse(w, req, resp)
}

// GetSamples handles GET /api/samples.
func (h *Handlers) GetSamples(w http.ResponseWriter, req *http.Request) {
	model := h.controller.models.Model()
	if model == nil {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable, "no wind model fitted yet")
		return
	}
	minAlt, maxAlt := model.TrainingRange()
	h.formatter.WriteResponse(w, req, SamplesResponse{
		SampleCount:   model.SampleCount(),
		TrainingRange: [2]float64{minAlt, maxAlt},
	})
}

// GetHealth handles GET /healthz.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	status := map[string]string{"status": "healthy"}
	if h.controller.models.Model() == nil {
		status["status"] = "degraded"
		status["detail"] = "no wind model fitted"
	}
	h.formatter.WriteResponse(w, req, status)
}

func (h *Handlers) countSimulation(outcome string) {
	if h.controller.metrics != nil {
		h.controller.metrics.Simulations.WithLabelValues(outcome).Inc()
	}
}
