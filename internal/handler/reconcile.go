package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/sif/internal/catalog"
	"github.com/dukerupert/sif/internal/domain"
	"github.com/dukerupert/sif/internal/router"
	"github.com/dukerupert/sif/internal/service"
	"github.com/dukerupert/sif/internal/tabular"
	"github.com/go-playground/validator/v10"
)

// ReconcileHandler exposes the reconciliation workflow as a JSON API.
// It is a thin shell: all sequencing and failure handling lives in the
// service layer.
type ReconcileHandler struct {
	sessions service.ReconciliationService
	gateway  catalog.Gateway
	validate *validator.Validate
	logger   *slog.Logger
}

// NewReconcileHandler creates the workflow handler.
func NewReconcileHandler(sessions service.ReconciliationService, gateway catalog.Gateway, logger *slog.Logger) *ReconcileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileHandler{
		sessions: sessions,
		gateway:  gateway,
		validate: validator.New(),
		logger:   logger,
	}
}

// Routes registers the workflow endpoints.
func (h *ReconcileHandler) Routes(r *router.Router) {
	r.Post("/api/sessions", h.CreateSession)
	r.Get("/api/sessions/{id}", h.GetSession)
	r.Delete("/api/sessions/{id}", h.DeleteSession)
	r.Put("/api/sessions/{id}/mapping", h.SetMapping)
	r.Post("/api/sessions/{id}/lookup", h.StartLookup)
	r.Patch("/api/sessions/{id}/items/{variantId}/price", h.SetPrice)
	r.Post("/api/sessions/{id}/items/{variantId}/toggle", h.ToggleInclude)
	r.Put("/api/sessions/{id}/included", h.SetIncludedSet)
	r.Put("/api/sessions/{id}/threshold", h.SetThreshold)
	r.Put("/api/sessions/{id}/filter", h.SetFilter)
	r.Post("/api/sessions/{id}/commit", h.StartCommit)
	r.Get("/api/sessions/{id}/run", h.GetRunState)
	r.Get("/api/locations", h.ListLocations)
}

type createSessionRequest struct {
	CSV string `json:"csv" validate:"required"`
}

// CreateSession handles POST /api/sessions: parse an uploaded file into a
// fresh workflow session.
func (h *ReconcileHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.sessions.CreateSession(req.CSV)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /api/sessions/{id}: the full session view with the
// filtered item list, stats, and run state.
func (h *ReconcileHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.View(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// DeleteSession handles DELETE /api/sessions/{id} (workflow restart).
func (h *ReconcileHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.DeleteSession(r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setMappingRequest struct {
	Field string `json:"field" validate:"required,oneof=identifier cost stock"`

	// Column is the zero-based column index; nil unsets the field.
	Column *int `json:"column"`

	// None declares the file has no stock column. Stock field only.
	None bool `json:"none"`
}

// SetMapping handles PUT /api/sessions/{id}/mapping: one typed
// {field, value} command per call.
func (h *ReconcileHandler) SetMapping(w http.ResponseWriter, r *http.Request) {
	var req setMappingRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	value := tabular.Unset
	switch {
	case req.None:
		value = tabular.NoStock
	case req.Column != nil:
		value = *req.Column
	}

	view, err := h.sessions.SetMappingField(r.PathValue("id"), tabular.Field(req.Field), value)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

type startLookupRequest struct {
	// Threshold overrides the session threshold when present; omitting it
	// keeps the current value. Zero is a valid threshold.
	Threshold  *float64 `json:"threshold" validate:"omitempty,gte=0"`
	LocationID string   `json:"locationId"`
}

// StartLookup handles POST /api/sessions/{id}/lookup: extract supplier
// records and reconcile them against the catalog.
func (h *ReconcileHandler) StartLookup(w http.ResponseWriter, r *http.Request) {
	var req startLookupRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.sessions.StartLookup(r.Context(), r.PathValue("id"), service.StartLookupParams{
		Threshold:  req.Threshold,
		LocationID: req.LocationID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type setPriceRequest struct {
	Price float64 `json:"price" validate:"gte=0"`
}

// SetPrice handles PATCH /api/sessions/{id}/items/{variantId}/price.
func (h *ReconcileHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.sessions.SetPrice(r.PathValue("id"), r.PathValue("variantId"), req.Price); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleInclude handles POST /api/sessions/{id}/items/{variantId}/toggle.
func (h *ReconcileHandler) ToggleInclude(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.ToggleInclude(r.PathValue("id"), r.PathValue("variantId")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setIncludedSetRequest struct {
	VariantIDs []string `json:"variantIds" validate:"required"`
}

// SetIncludedSet handles PUT /api/sessions/{id}/included: include exactly
// the listed variants and exclude the rest.
func (h *ReconcileHandler) SetIncludedSet(w http.ResponseWriter, r *http.Request) {
	var req setIncludedSetRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.sessions.SetIncludedSet(r.PathValue("id"), req.VariantIDs); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setThresholdRequest struct {
	Threshold float64 `json:"threshold" validate:"gte=0"`
}

// SetThreshold handles PUT /api/sessions/{id}/threshold.
func (h *ReconcileHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	var req setThresholdRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.sessions.SetThreshold(r.PathValue("id"), req.Threshold); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setFilterRequest struct {
	Filter string `json:"filter" validate:"required,oneof=all medium negative"`
}

// SetFilter handles PUT /api/sessions/{id}/filter.
func (h *ReconcileHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var req setFilterRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.sessions.SetFilter(r.PathValue("id"), domain.StatusFilter(req.Filter)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartCommit handles POST /api/sessions/{id}/commit: kick off an
// asynchronous commit run. The host polls the run state for progress and
// outcomes.
func (h *ReconcileHandler) StartCommit(w http.ResponseWriter, r *http.Request) {
	var req service.CommitRequest
	if err := decodeBody(r, h.validate, &req); err != nil {
		respondError(w, r, err)
		return
	}

	runID, err := h.sessions.StartCommit(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

// GetRunState handles GET /api/sessions/{id}/run: the live batch counter
// and accumulated outcomes.
func (h *ReconcileHandler) GetRunState(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.RunState(r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// ListLocations handles GET /api/locations: the store's stock locations,
// for the host's location picker.
func (h *ReconcileHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.gateway.LookupLocations(r.Context())
	if err != nil {
		respondError(w, r, domain.WrapError(err, domain.EUNAVAILABLE, "handler.locations", "Location lookup failed"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"locations": locations})
}
