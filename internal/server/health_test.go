package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func healthGet(t *testing.T, handler http.Handler) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	return rec.Code, body
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil)

	code, body := healthGet(t, h.LivenessHandler())
	if code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", code)
	}
	if body.Status != healthStatusOK {
		t.Errorf("liveness body status = %q, want %q", body.Status, healthStatusOK)
	}
	if body.Uptime == "" {
		t.Error("liveness response missing uptime")
	}
}

func TestReadinessHandler(t *testing.T) {
	h := NewHealthChecker(nil)

	code, body := healthGet(t, h.ReadinessHandler())
	if code != http.StatusOK {
		t.Errorf("readiness status = %d, want 200", code)
	}
	if body.Status != healthStatusOK {
		t.Errorf("readiness body status = %q, want %q", body.Status, healthStatusOK)
	}

	h.SetReady(false)
	code, body = healthGet(t, h.ReadinessHandler())
	if code != http.StatusServiceUnavailable {
		t.Errorf("not-ready status = %d, want 503", code)
	}
	if body.Status != healthStatusNotReady {
		t.Errorf("not-ready body status = %q, want %q", body.Status, healthStatusNotReady)
	}
	if h.IsReady() {
		t.Error("IsReady() = true after SetReady(false)")
	}
}

func TestReadinessHandlerShutdown(t *testing.T) {
	sc := testServerContext(t, nil)
	h := NewHealthChecker(sc)

	sc.Shutdown()
	code, body := healthGet(t, h.ReadinessHandler())
	if code != http.StatusServiceUnavailable {
		t.Errorf("shutdown status = %d, want 503", code)
	}
	if body.Status != healthStatusShuttingDown {
		t.Errorf("shutdown body status = %q, want %q", body.Status, healthStatusShuttingDown)
	}
}
