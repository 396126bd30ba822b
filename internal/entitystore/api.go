package entitystore

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/shared/auth"
	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
	"github.com/eden-hr/casetracker/internal/shared/httpx"
)

// Handler provides HTTP handlers for records
type Handler struct {
	svc *Service
}

// NewHandler creates a new record handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the record routes. Mount under /records.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{kind}", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Put("/status", h.SetStatus)
			r.Get("/revisions", h.Revisions)
		})
	})

	return r
}

// reserved query parameters; everything else is a filter.
var listParams = map[string]bool{
	"search": true, "status": true, "sort": true, "desc": true, "limit": true, "offset": true,
}

func pathKind(r *http.Request) (domain.Kind, error) {
	return domain.ParseKind(strings.TrimSuffix(chi.URLParam(r, "kind"), "s"))
}

// List lists records of one kind
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	q, err := parseListQuery(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	recs, total, err := h.svc.List(r.Context(), kind, q)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if recs == nil {
		recs = []domain.Record{}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":  recs,
		"total": total,
	})
}

func parseListQuery(r *http.Request) (domain.ListQuery, error) {
	values := r.URL.Query()
	q := domain.ListQuery{
		Search:  values.Get("search"),
		Sort:    values.Get("sort"),
		Filters: map[string]string{},
	}

	var err error
	if q.Status, err = httpx.QueryBool(r, "status"); err != nil {
		return q, err
	}
	if desc, err := httpx.QueryBool(r, "desc"); err != nil {
		return q, err
	} else if desc != nil {
		q.Desc = *desc
	}
	if q.Limit, err = httpx.QueryInt(r, "limit", 0); err != nil {
		return q, err
	}
	if q.Offset, err = httpx.QueryInt(r, "offset", 0); err != nil {
		return q, err
	}

	for name := range values {
		if !listParams[name] {
			q.Filters[name] = values.Get(name)
		}
	}
	return q, nil
}

// Create creates a record
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	rec := domain.MustNew(kind)
	if err := httpx.Decode(r, rec); err != nil {
		httpx.Error(w, r, err)
		return
	}

	created, err := h.svc.Create(r.Context(), auth.ActorID(r.Context()), rec)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, created)
}

// Get gets a record by ID
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	rec, err := h.svc.Get(r.Context(), kind, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, rec)
}

// Update replaces a record's editable fields
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	rec := domain.MustNew(kind)
	if err := httpx.Decode(r, rec); err != nil {
		httpx.Error(w, r, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), auth.ActorID(r.Context()), id, rec)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, updated)
}

type setStatusRequest struct {
	Status *bool `json:"status"`
}

// SetStatus publishes or unpublishes a record
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	var req setStatusRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if req.Status == nil {
		httpx.Error(w, r, apperrors.FieldError("status", "required"))
		return
	}

	rec, err := h.svc.SetStatus(r.Context(), auth.ActorID(r.Context()), kind, id, *req.Status)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, rec)
}

// Delete deletes a record
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), auth.ActorID(r.Context()), kind, id); err != nil {
		httpx.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Revisions lists a record's revision history
func (h *Handler) Revisions(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	revs, err := h.svc.Revisions(r.Context(), kind, id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if revs == nil {
		revs = []domain.Revision{}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": revs})
}
