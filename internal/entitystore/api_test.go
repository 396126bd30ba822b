package entitystore

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eden-hr/casetracker/internal/record/infrastructure"
	"github.com/eden-hr/casetracker/internal/shared/auth"
)

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

func TestHandlerLifecycle(t *testing.T) {
	svc, _ := newTestService(infrastructure.NewMemoryStore())
	h := NewHandler(svc).Routes()

	w := serve(h, http.MethodPost, "/locations", map[string]any{
		"town": "Ormoc", "province": "Leyte", "region": "Eastern Visayas",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body)
	}
	var loc struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	json.NewDecoder(w.Body).Decode(&loc)
	if loc.Label != "Ormoc, Leyte, Eastern Visayas" {
		t.Errorf("Expected label, got %q", loc.Label)
	}

	w = serve(h, http.MethodGet, "/locations?province=Leyte&sort=town", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body)
	}
	var page struct {
		Total int `json:"total"`
	}
	json.NewDecoder(w.Body).Decode(&page)
	if page.Total != 1 {
		t.Errorf("Expected 1 location, got %d", page.Total)
	}

	w = serve(h, http.MethodPut, "/locations/"+loc.ID+"/status", map[string]any{"status": false})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body)
	}

	w = serve(h, http.MethodGet, "/locations/"+loc.ID+"/revisions", nil)
	var revs struct {
		Data []json.RawMessage `json:"data"`
	}
	json.NewDecoder(w.Body).Decode(&revs)
	if len(revs.Data) != 2 {
		t.Errorf("Expected 2 revisions, got %d", len(revs.Data))
	}

	w = serve(h, http.MethodDelete, "/locations/"+loc.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d: %s", w.Code, w.Body)
	}
}

func TestHandlerErrors(t *testing.T) {
	svc, _ := newTestService(infrastructure.NewMemoryStore())
	h := NewHandler(svc).Routes()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown kind", http.MethodGet, "/widgets", nil, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/victims/42", nil, http.StatusBadRequest},
		{"missing", http.MethodGet, "/victims/8c3f2b4e-4f1a-4b7e-9a4c-1d2e3f4a5b6c", nil, http.StatusNotFound},
		{"invalid body", http.MethodPost, "/sectors", map[string]any{"name": ""}, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/sectors?limit=ten", nil, http.StatusBadRequest},
		{"unknown sort", http.MethodGet, "/sectors?sort=salary", nil, http.StatusBadRequest},
		{"delete disabled", http.MethodDelete, "/incidents/8c3f2b4e-4f1a-4b7e-9a4c-1d2e3f4a5b6c", nil, http.StatusForbidden},
		{"status required", http.MethodPut, "/sectors/8c3f2b4e-4f1a-4b7e-9a4c-1d2e3f4a5b6c/status", map[string]any{}, http.StatusBadRequest},
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
