package caseupdate

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eden-hr/casetracker/internal/shared/auth"
	"github.com/eden-hr/casetracker/internal/shared/httpx"
)

// Handler provides HTTP handlers for case updates
type Handler struct {
	svc *Service
}

// NewHandler creates a new case update handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the case update routes. Mount under /incidents/{incidentID}/updates.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListUpdates)
	r.Post("/", h.AddUpdate)

	return r
}

// ListUpdates lists an incident's case updates
func (h *Handler) ListUpdates(w http.ResponseWriter, r *http.Request) {
	incidentID, err := httpx.PathID(r, "incidentID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	updates, err := h.svc.ListUpdates(r.Context(), incidentID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": updates})
}

// AddUpdate adds a case update
func (h *Handler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	incidentID, err := httpx.PathID(r, "incidentID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	var req updateInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}

	u, err := h.svc.AddUpdate(r.Context(), auth.ActorID(r.Context()), incidentID, req.Note, req.Documents)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, u)
}
