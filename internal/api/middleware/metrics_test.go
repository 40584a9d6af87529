package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMetricsCountsByRoute(t *testing.T) {
	var m Metrics
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/statements" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/statements", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/ledger/3f2c/resolve", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/gate/check", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/facts", nil))

	if got := m.Requests.Load(); got != 4 {
		t.Errorf("requests = %d, want 4", got)
	}
	if got := m.Errors.Load(); got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
	if got := m.Statements.Load(); got != 1 {
		t.Errorf("statements = %d, want 1", got)
	}
	if got := m.Resolutions.Load(); got != 1 {
		t.Errorf("resolutions = %d, want 1", got)
	}
	if got := m.GateChecks.Load(); got != 1 {
		t.Errorf("gate checks = %d, want 1", got)
	}
}

func TestMetricsGetDoesNotCountOperations(t *testing.T) {
	var m Metrics
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/gate/check", nil))

	if got := m.GateChecks.Load(); got != 0 {
		t.Errorf("gate checks = %d, want 0", got)
	}
}
