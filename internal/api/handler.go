package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/pipesched/internal/config"
	"github.com/gyaneshwarpardhi/pipesched/internal/engine"
	"github.com/gyaneshwarpardhi/pipesched/internal/job"
	"github.com/gyaneshwarpardhi/pipesched/internal/metrics"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

const maxBodyBytes = 4 << 20

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/optimize", h.optimize)
	h.mux.HandleFunc("GET /v1/config", h.showConfig)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// optimizeRequest carries one graph in DOT text. Unset fields fall back to
// the server configuration.
type optimizeRequest struct {
	Name        string         `json:"name"`
	Graph       string         `json:"graph"`
	Constraints *resource.File `json:"constraints"`
	Quality     *int           `json:"quality"`
	Cost        string         `json:"cost"`
	Seed        *uint64        `json:"seed"`
}

// POST /v1/optimize: retime and schedule one graph synchronously.
func (h *Handler) optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Graph == "" {
		writeError(w, r, http.StatusBadRequest, "graph is required")
		return
	}

	cfg := h.loader.Config()
	settings := job.Settings{
		Quality:           cfg.Retime.Quality,
		Cost:              cfg.Retime.Cost,
		Seed:              cfg.Retime.Seed,
		DirChangeInterval: cfg.Retime.DirChangeInterval,
	}
	if req.Quality != nil {
		if *req.Quality < 0 {
			writeError(w, r, http.StatusBadRequest, "quality must not be negative")
			return
		}
		settings.Quality = *req.Quality
	}
	if req.Cost != "" {
		settings.Cost = req.Cost
	}
	if req.Seed != nil {
		settings.Seed = *req.Seed
	}

	lib, rc, err := h.constraints(req.Constraints, cfg)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.eng.ProcessSync(r.Context(), job.FromSource(req.Name, req.Graph, settings, lib, rc))
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, r, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	if res.Status == engine.StatusFailed {
		writeJSON(w, r, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) constraints(inline *resource.File, cfg *config.RunConfig) (*resource.Library, *resource.Constraints, error) {
	if inline != nil {
		return inline.Compile()
	}
	if cfg.Constraints == "" {
		return nil, nil, fmt.Errorf("constraints are required: none in request or server config")
	}
	return resource.Load(cfg.Constraints)
}

// GET /v1/config: current run configuration.
func (h *Handler) showConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.loader.Config()
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"version":     cfg.Version,
		"constraints": cfg.Constraints,
		"retime":      cfg.Retime,
		"engine":      cfg.Engine,
	})
}

// POST /v1/config/reload: re-read the config file from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"quality":  cfg.Retime.Quality,
		"cost":     cfg.Retime.Cost,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if job queue >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
