package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	var gotID string
	handler := RequestIDMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/proxy", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID == "" {
		t.Error("expected a generated request ID in context")
	}
	if rec.Header().Get("X-Request-ID") != gotID {
		t.Error("X-Request-ID response header should match context value")
	}
}

func TestRequestIDMiddleware_PreservesIncomingID(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	var gotID string
	handler := RequestIDMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest("POST", "/proxy", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID != "caller-supplied-id" {
		t.Errorf("gotID = %q, want caller-supplied-id", gotID)
	}
}

func TestRealIPMiddleware_PrefersXForwardedFor(t *testing.T) {
	t.Parallel()

	var gotIP string
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP, _ = r.Context().Value(IPAddressKey).(string)
	}))

	req := httptest.NewRequest("POST", "/proxy", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotIP != "203.0.113.5" {
		t.Errorf("gotIP = %q, want 203.0.113.5", gotIP)
	}
}

func TestRealIPMiddleware_FallsBackToRemoteAddr(t *testing.T) {
	t.Parallel()

	var gotIP string
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP, _ = r.Context().Value(IPAddressKey).(string)
	}))

	req := httptest.NewRequest("POST", "/proxy", nil)
	req.RemoteAddr = "192.0.2.1:54321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotIP != "192.0.2.1" {
		t.Errorf("gotIP = %q, want 192.0.2.1", gotIP)
	}
}
