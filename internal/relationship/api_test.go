package relationship

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/eden-hr/casetracker/internal/shared/auth"
)

func newRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	r.Mount("/incidents/{incidentID}", NewHandler(f.svc).Routes())
	return r
}

func serve(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(auth.WithActor(req.Context(), &auth.Actor{ID: actor}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlerVictimFlow(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)
	base := "/incidents/" + f.incident.ID.String()

	w := serve(h, http.MethodPost, base+"/victims", map[string]any{
		"victim_id":  f.victim.ID,
		"detention":  map[string]any{"place_of_arrest": "Palo"},
		"violations": []map[string]any{{"violation_id": f.torture.ID, "description": "beaten"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body)
	}

	w = serve(h, http.MethodGet, base+"/victims", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}
	var list struct {
		Data []struct {
			Victim struct {
				FullName string `json:"full_name"`
			} `json:"victim"`
			Violations []json.RawMessage `json:"violations"`
		} `json:"data"`
	}
	json.NewDecoder(w.Body).Decode(&list)
	if len(list.Data) != 1 || len(list.Data[0].Violations) != 1 {
		t.Fatalf("Expected 1 victim with 1 violation, got %+v", list.Data)
	}
	if list.Data[0].Victim.FullName != "Juan dela Cruz" {
		t.Errorf("Expected Juan dela Cruz, got %q", list.Data[0].Victim.FullName)
	}

	victimPath := base + "/victims/" + f.victim.ID.String()
	w = serve(h, http.MethodDelete, victimPath, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 while violations remain, got %d", w.Code)
	}

	w = serve(h, http.MethodDelete, victimPath+"/violations/"+f.torture.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}
	var result UnlinkResult
	json.NewDecoder(w.Body).Decode(&result)
	if !result.VictimUnlinked {
		t.Error("Expected victim_unlinked to be true")
	}
}

func TestHandlerPerpetrators(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)
	path := "/incidents/" + f.incident.ID.String() + "/perpetrators/" + f.perpetrator.ID.String()

	w := serve(h, http.MethodPut, path, map[string]any{"description": "led the raid"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	w = serve(h, http.MethodDelete, path, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d: %s", w.Code, w.Body)
	}
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)
	incident := "/incidents/" + f.incident.ID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad incident id", http.MethodGet, "/incidents/nope/victims", nil, http.StatusBadRequest},
		{"no violations", http.MethodPost, incident + "/victims", map[string]any{"victim_id": f.victim.ID}, http.StatusBadRequest},
		{"unknown victim", http.MethodPut, incident + "/victims/" + f.torture.ID.String(), nil, http.StatusNotFound},
		{"unlinked perpetrator", http.MethodDelete, incident + "/perpetrators/" + f.perpetrator.ID.String(), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, w.Code, w.Body)
			}
		})
	}
}
