package relationship

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eden-hr/casetracker/internal/record/domain"
	"github.com/eden-hr/casetracker/internal/shared/auth"
	"github.com/eden-hr/casetracker/internal/shared/httpx"
	"github.com/eden-hr/casetracker/internal/shared/types"
)

// Handler provides HTTP handlers for incident relationships
type Handler struct {
	svc *Service
}

// NewHandler creates a new relationship handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the relationship routes. Mount under /incidents/{incidentID}.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/victims", h.ListVictims)
	r.Post("/victims", h.LinkVictimWithViolations)
	r.Route("/victims/{victimID}", func(r chi.Router) {
		r.Put("/", h.LinkVictim)
		r.Delete("/", h.UnlinkVictim)
		r.Put("/violations/{violationID}", h.LinkViolation)
		r.Delete("/violations/{violationID}", h.UnlinkViolation)
	})

	r.Get("/perpetrators", h.ListPerpetrators)
	r.Put("/perpetrators/{perpetratorID}", h.LinkPerpetrator)
	r.Delete("/perpetrators/{perpetratorID}", h.UnlinkPerpetrator)

	return r
}

// pathIDs parses the named URL parameters in order.
func pathIDs(r *http.Request, names ...string) ([]types.ID, error) {
	ids := make([]types.ID, len(names))
	for i, name := range names {
		id, err := httpx.PathID(r, name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// ListVictims lists an incident's victims
func (h *Handler) ListVictims(w http.ResponseWriter, r *http.Request) {
	incidentID, err := httpx.PathID(r, "incidentID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	victims, err := h.svc.IncidentVictims(r.Context(), incidentID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": victims})
}

type linkVictimRequest struct {
	VictimID   types.ID          `json:"victim_id"`
	Detention  *domain.Detention `json:"detention"`
	Violations []ViolationLink   `json:"violations"`
}

// LinkVictimWithViolations links a victim with its violations
func (h *Handler) LinkVictimWithViolations(w http.ResponseWriter, r *http.Request) {
	incidentID, err := httpx.PathID(r, "incidentID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	var req linkVictimRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}

	lv, err := h.svc.LinkVictimWithViolations(r.Context(), auth.ActorID(r.Context()), incidentID, req.VictimID, req.Detention, req.Violations)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, lv)
}

// LinkVictim links a victim or updates its detention details
func (h *Handler) LinkVictim(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "incidentID", "victimID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	var det *domain.Detention
	if r.ContentLength != 0 {
		det = &domain.Detention{}
		if err := httpx.Decode(r, det); err != nil {
			httpx.Error(w, r, err)
			return
		}
	}

	iv, err := h.svc.LinkVictim(r.Context(), auth.ActorID(r.Context()), ids[0], ids[1], det)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, iv)
}

// UnlinkVictim unlinks a victim
func (h *Handler) UnlinkVictim(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "incidentID", "victimID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	if err := h.svc.UnlinkVictim(r.Context(), auth.ActorID(r.Context()), ids[0], ids[1]); err != nil {
		httpx.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type descriptionRequest struct {
	Description string `json:"description"`
}

func decodeDescription(r *http.Request) (string, error) {
	var req descriptionRequest
	if r.ContentLength == 0 {
		return "", nil
	}
	if err := httpx.Decode(r, &req); err != nil {
		return "", err
	}
	return req.Description, nil
}

// LinkViolation records a violation against a linked victim
func (h *Handler) LinkViolation(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "incidentID", "victimID", "violationID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	description, err := decodeDescription(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	v, err := h.svc.LinkViolation(r.Context(), auth.ActorID(r.Context()), ids[0], ids[1], ids[2], description)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, v)
}

// UnlinkViolation removes a violation, cascading to the victim link
func (h *Handler) UnlinkViolation(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "incidentID", "victimID", "violationID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	result, err := h.svc.UnlinkViolation(r.Context(), auth.ActorID(r.Context()), ids[0], ids[1], ids[2])
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, result)
}

// ListPerpetrators lists an incident's perpetrators
func (h *Handler) ListPerpetrators(w http.ResponseWriter, r *http.Request) {
	incidentID, err := httpx.PathID(r, "incidentID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	perpetrators, err := h.svc.IncidentPerpetrators(r.Context(), incidentID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"data": perpetrators})
}

// LinkPerpetrator links a perpetrator
func (h *Handler) LinkPerpetrator(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "incidentID", "perpetratorID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	description, err := decodeDescription(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	ip, err := h.svc.LinkPerpetrator(r.Context(), auth.ActorID(r.Context()), ids[0], ids[1], description)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, ip)
}

// UnlinkPerpetrator unlinks a perpetrator
func (h *Handler) UnlinkPerpetrator(w http.ResponseWriter, r *http.Request) {
	ids, err := pathIDs(r, "incidentID", "perpetratorID")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	if err := h.svc.UnlinkPerpetrator(r.Context(), auth.ActorID(r.Context()), ids[0], ids[1]); err != nil {
		httpx.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
