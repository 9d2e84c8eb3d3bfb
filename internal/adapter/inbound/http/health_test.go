package http

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker("test-version",
		NamedCheck{Name: "notary", Probe: func() (string, error) { return "ok", nil }},
		NamedCheck{Name: "publisher", Probe: func() (string, error) { return "ok", nil }},
	)

	resp := hc.Check()
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Checks["notary"] != "ok" {
		t.Errorf("checks[notary] = %q, want ok", resp.Checks["notary"])
	}
	if resp.Version != "test-version" {
		t.Errorf("Version = %q, want test-version", resp.Version)
	}
}

func TestHealthChecker_DegradedComponent(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker("v1",
		NamedCheck{Name: "notary", Probe: func() (string, error) { return "", errors.New("dial timeout") }},
	)

	resp := hc.Check()
	if resp.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy", resp.Status)
	}
	if resp.Checks["notary"] == "" {
		t.Error("checks[notary] should describe the failure")
	}
}

func TestHealthChecker_Handler_WritesStatusCode(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker("v1",
		NamedCheck{Name: "notary", Probe: func() (string, error) { return "", errors.New("down") }},
	)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, req)

	if rec.Code != 503 {
		t.Errorf("status code = %d, want 503", rec.Code)
	}

	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "unhealthy" {
		t.Errorf("body.Status = %q, want unhealthy", body.Status)
	}
}

func TestHealthChecker_Handler_HealthyReturns200(t *testing.T) {
	t.Parallel()

	hc := NewHealthChecker("v1")

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	hc.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Errorf("status code = %d, want 200", rec.Code)
	}
}
