package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PratikDhanave/epcis-query-service/internal/config"
	"github.com/PratikDhanave/epcis-query-service/internal/metrics"
	"github.com/PratikDhanave/epcis-query-service/internal/store"
)

type downStore struct {
	*store.MemoryStore
}

func (downStore) Ping(context.Context) error {
	return context.DeadlineExceeded
}

func TestRouter_PublicAndAuthenticated(t *testing.T) {
	metrics.Register()
	cfg := config.Config{APIKeys: map[string]string{"k1": "alice"}}
	r := NewRouter(cfg, store.NewMemoryStore(), nil)

	cases := []struct {
		target string
		key    string
		status int
	}{
		{"/health", "", http.StatusOK},
		{"/ready", "", http.StatusOK},
		{"/metrics", "", http.StatusOK},
		{"/events", "", http.StatusUnauthorized},
		{"/events", "k1", http.StatusOK},
		{"/queries/SimpleEventQuery/events", "k1", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		if tc.key != "" {
			req.Header.Set("X-API-Key", tc.key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.target, tc.status, w.Code)
		}
	}
}

func TestRouter_MetricsExposeCollectors(t *testing.T) {
	metrics.Register()
	metrics.ParameterErrorsTotal.WithLabelValues("invalid").Add(0)
	r := NewRouter(config.Config{}, store.NewMemoryStore(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "epcis_query_parameter_errors_total") {
		t.Fatal("expected epcis collectors on /metrics")
	}
}

func TestRouter_NotReady(t *testing.T) {
	r := NewRouter(config.Config{}, downStore{store.NewMemoryStore()}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", w.Code)
	}
}
