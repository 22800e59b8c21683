package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/clinsim/clinsim/internal/audit"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordDecision(audit.KindAuthSuccess, audit.OutcomeAllow)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "clinsim_auth_decisions_total") {
		t.Fatalf("expected body to contain clinsim_auth_decisions_total, got: %s", rr.Body.String())
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/cases/{caseID}")

	req := httptest.NewRequest(http.MethodGet, "/api/cases/c1", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := metricsRR.Body.String()
	if !strings.Contains(body, `clinsim_http_requests_total{code="403",route="/api/cases/{caseID}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `clinsim_http_request_duration_seconds_bucket{route="/api/cases/{caseID}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestDecisionSinkCountsAndDelegates(t *testing.T) {
	metrics := NewMetrics()
	recorder := audit.NewRecorder()
	sink := NewDecisionSink(recorder, metrics)

	event := audit.New(audit.KindAuthzDeny, "u1")
	event.Outcome = audit.OutcomeDeny
	if err := sink.Record(context.Background(), event); err != nil {
		t.Fatalf("record: %v", err)
	}

	if len(recorder.Events()) != 1 {
		t.Fatalf("expected event to reach the wrapped sink")
	}

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), `clinsim_auth_decisions_total{kind="AUTHZ_DENIED",outcome="deny"} 1`) {
		t.Fatalf("expected decision counter, got: %s", rr.Body.String())
	}
}
