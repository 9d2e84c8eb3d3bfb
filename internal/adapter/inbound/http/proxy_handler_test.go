package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/summitto/tlsn-prover-gateway/internal/config"
	"github.com/summitto/tlsn-prover-gateway/internal/service"
)

func TestProxyHandler_MissingProxyURLHeaderIs400(t *testing.T) {
	t.Parallel()

	svc := service.New(
		config.NotaryConfig{Addr: "127.0.0.1:1", CertDomain: "x"},
		config.TimeoutConfig{NotaryDial: time.Millisecond},
		config.PublisherConfig{},
		nil, nil, nil, nil,
	)
	h := NewProxyHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/proxy", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestProxyHandler_UnreachableNotaryIs502(t *testing.T) {
	t.Parallel()

	svc := service.New(
		config.NotaryConfig{Addr: "127.0.0.1:1", CertDomain: "tlsnotaryserver.io"},
		config.TimeoutConfig{NotaryDial: 200 * time.Millisecond},
		config.PublisherConfig{},
		nil, nil, nil, nil,
	)
	h := NewProxyHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/proxy", nil)
	req.Header.Set(headerProxyURL, "http://example.com/path")
	req = req.WithContext(context.Background())
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
