package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/victims/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/victims/{id}", "418"))

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/victims/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/victims/{id}", "418"))
	if after-before != 2 {
		t.Errorf("Expected 2 requests under the route pattern, got %v", after-before)
	}
}

func TestRecordRelationshipOp(t *testing.T) {
	okBefore := testutil.ToFloat64(relationshipOps.WithLabelValues("link_victim", "ok"))
	errBefore := testutil.ToFloat64(relationshipOps.WithLabelValues("link_victim", "error"))

	RecordRelationshipOp("link_victim", nil)
	RecordRelationshipOp("link_victim", errors.New("boom"))

	if got := testutil.ToFloat64(relationshipOps.WithLabelValues("link_victim", "ok")) - okBefore; got != 1 {
		t.Errorf("Expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(relationshipOps.WithLabelValues("link_victim", "error")) - errBefore; got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
}

func TestRecordCaseUpdate(t *testing.T) {
	before := testutil.ToFloat64(caseUpdateDocuments)
	RecordCaseUpdate(3)
	if got := testutil.ToFloat64(caseUpdateDocuments) - before; got != 3 {
		t.Errorf("Expected 3 documents counted, got %v", got)
	}
}
