package lookup

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/shared/httpx"
)

// Handler provides HTTP handlers for lookups
type Handler struct {
	svc *Service
}

// NewHandler creates a new lookup handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the lookup routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Search)
	r.Get("/{kind}", h.Autocomplete)

	return r
}

// Autocomplete suggests records of one kind
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(strings.TrimSuffix(chi.URLParam(r, "kind"), "s"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", domain.DefaultSuggestLimit)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	results, err := h.svc.Autocomplete(r.Context(), kind, r.URL.Query().Get("q"), limit)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": results})
}

// Search searches every kind
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": groups})
}
