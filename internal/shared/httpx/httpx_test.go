package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/eden-hr/casetracker/internal/shared/errors"
)

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperrors.FieldError("title", "required"), http.StatusBadRequest, apperrors.CodeValidation},
		{"wrapped not found", errors.Join(errors.New("ctx"), apperrors.NotFound("victim", "1")), http.StatusNotFound, apperrors.CodeNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Expected JSON body, got %v", err)
			}
			if body.Error.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, body.Error.Code)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	r := chi.NewRouter()
	var got error
	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, got = PathID(r, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/not-a-uuid", nil))
	if !apperrors.HasCode(got, apperrors.CodeBadRequest) {
		t.Errorf("Expected bad request, got %v", got)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/8c3f2b4e-4f1a-4b7e-9a4c-1d2e3f4a5b6c", nil))
	if got != nil {
		t.Errorf("Expected no error, got %v", got)
	}
}

func TestQueryParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=5&status=false&bad=x", nil)

	if n, err := QueryInt(r, "limit", 10); err != nil || n != 5 {
		t.Errorf("Expected 5, got %d (%v)", n, err)
	}
	if n, _ := QueryInt(r, "offset", 7); n != 7 {
		t.Errorf("Expected default 7, got %d", n)
	}
	if _, err := QueryInt(r, "bad", 0); err == nil {
		t.Error("Expected error for non-integer")
	}
	if b, err := QueryBool(r, "status"); err != nil || b == nil || *b {
		t.Errorf("Expected false, got %v (%v)", b, err)
	}
	if b, _ := QueryBool(r, "missing"); b != nil {
		t.Errorf("Expected nil, got %v", *b)
	}
}
