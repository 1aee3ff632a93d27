package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"go-db-replicator/internal/model"
	"go-db-replicator/internal/pipeline"
	"go-db-replicator/internal/store"
	"go-db-replicator/internal/trigger"
	"go-db-replicator/pkg/router"
)

// Handler exposes the orchestrator over HTTP.
type Handler struct {
	Orch *trigger.Orchestrator
}

// RunRequest is the body of POST /api/v1/runs. Everything beyond the action
// is an optional override of the orchestrator's configured scope.
type RunRequest struct {
	Action       model.TriggerAction `json:"action"`
	Source       string              `json:"source,omitempty"`
	Destination  string              `json:"destination,omitempty"`
	Formats      []string            `json:"formats,omitempty"`
	Exclude      []string            `json:"exclude,omitempty"`
	ExistsPolicy model.ExistsPolicy  `json:"existsPolicy,omitempty"`
}

// ExportRequest is the body of POST /api/v1/exports.
type ExportRequest struct {
	Source  string   `json:"source"`
	Table   string   `json:"table"`
	Query   string   `json:"query,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Formats []string `json:"formats"`
}

// CreateRun starts a pipeline run
// @Summary Start a run
// @Description Start an exportAll or copyAll run across the configured connections
// @Tags runs
// @Accept json
// @Produce json
// @Param run body RunRequest true "Run request"
// @Success 202 {object} map[string]interface{} "Run accepted"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Router /runs [post]
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Action != model.ActionExportAll && req.Action != model.ActionCopyAll {
		http.Error(w, "action must be exportAll or copyAll", http.StatusBadRequest)
		return
	}

	orch, err := h.scopedOrchestrator(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()
	go func() {
		// RunActionWithID records failures in the run history itself
		if err := orch.RunActionWithID(context.Background(), runID, req.Action, "api"); err != nil {
			fmt.Printf("❌ Run %s failed: %v\n", runID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "Run accepted",
		"runID":     runID,
		"action":    req.Action,
		"startedAt": time.Now().UTC(),
	})
}

// ListRuns retrieves all runs
// @Summary List runs
// @Description Get every recorded run, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one run's summary
// @Summary Get a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := router.PathParam(r.URL.Path, "/api/v1/runs/*", 0)
	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if results, err := store.GetRunResults(runID); err == nil {
		run["results"] = results
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRunResults retrieves one run's per-table outcomes
// @Summary Get run results
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.TableResult
// @Router /runs/{id}/results [get]
func (h *Handler) GetRunResults(w http.ResponseWriter, r *http.Request) {
	runID := router.PathParam(r.URL.Path, "/api/v1/runs/*/results", 0)
	results, err := store.GetRunResults(runID)
	if err != nil {
		http.Error(w, "Failed to load results", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []model.TableResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetRunErrors retrieves one run's errors
// @Summary Get run errors
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} map[string]interface{}
// @Router /runs/{id}/errors [get]
func (h *Handler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID := router.PathParam(r.URL.Path, "/api/v1/runs/*/errors", 0)
	errs, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to load errors", http.StatusInternalServerError)
		return
	}
	if errs == nil {
		errs = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, errs)
}

// ListConnections lists registered connection names per role
// @Summary List connections
// @Tags connections
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /connections [get]
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	reg := h.Orch.Pipeline.Registry
	writeJSON(w, http.StatusOK, map[string][]string{
		"sources":      orEmpty(reg.Names(model.RoleSource)),
		"destinations": orEmpty(reg.Names(model.RoleDestination)),
	})
}

// ExportTable synchronously exports one table to files
// @Summary Export a table
// @Description Extract a table or query result and write the requested formats
// @Tags exports
// @Accept json
// @Produce json
// @Param export body ExportRequest true "Export request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Router /exports [post]
func (h *Handler) ExportTable(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.Source == "" || (req.Table == "" && req.Query == "") {
		http.Error(w, "source and table (or query) are required", http.StatusBadRequest)
		return
	}

	formats := h.Orch.Formats
	if len(req.Formats) > 0 {
		var err error
		formats, err = pipeline.FormatsFromStrings(req.Formats)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	spec := model.TableSpec{Table: req.Table, Query: req.Query, Columns: req.Columns}
	artifacts, err := h.Orch.Pipeline.ExportTableToFiles(r.Context(), req.Source, spec, formats)
	if err != nil {
		status := http.StatusInternalServerError
		if _, ok := err.(*model.ConfigurationError); ok {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"table":     req.Table,
		"artifacts": artifacts,
	})
}

// scopedOrchestrator applies the request's overrides on top of the
// configured scope. The shared orchestrator is never mutated.
func (h *Handler) scopedOrchestrator(req RunRequest) (*trigger.Orchestrator, error) {
	if req.Source == "" && req.Destination == "" && len(req.Formats) == 0 &&
		len(req.Exclude) == 0 && req.ExistsPolicy == "" {
		return h.Orch, nil
	}

	sources := h.Orch.Sources
	if req.Source != "" {
		sources = []string{req.Source}
	}
	destinations := h.Orch.Destinations
	if req.Destination != "" {
		destinations = []string{req.Destination}
	}

	formats := h.Orch.Formats
	if len(req.Formats) > 0 {
		var err error
		formats, err = pipeline.FormatsFromStrings(req.Formats)
		if err != nil {
			return nil, err
		}
	}

	exclude := h.Orch.Exclude
	if len(req.Exclude) > 0 {
		exclude = make(map[string]bool, len(req.Exclude))
		for _, t := range req.Exclude {
			exclude[t] = true
		}
	}

	p := h.Orch.Pipeline
	if req.ExistsPolicy != "" {
		if req.ExistsPolicy != model.ExistsReplace && req.ExistsPolicy != model.ExistsFail {
			return nil, fmt.Errorf("existsPolicy must be replace or fail")
		}
		scoped := *p
		scoped.ExistsPolicy = req.ExistsPolicy
		p = &scoped
	}

	return trigger.NewOrchestrator(p, sources, destinations, formats, exclude), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func orEmpty(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
