package shaper

import (
	"testing"

	"github.com/summitto/tlsn-prover-gateway/internal/domain/proxyreq"
)

func mustRequest(t *testing.T, headers []proxyreq.Header) *proxyreq.ProxyRequest {
	t.Helper()
	req, err := proxyreq.New("GET", "https://example.com/resource", headers, "", "", "", "")
	if err != nil {
		t.Fatalf("proxyreq.New() error: %v", err)
	}
	return req
}

func TestShape_S5_ForbiddenHeaderStripping(t *testing.T) {
	t.Parallel()

	// host/user-agent/t-proxy-url are already stripped by proxyreq.New;
	// the shaper contributes its own fixed set and forwards the rest.
	req := mustRequest(t, []proxyreq.Header{{Name: "x-custom", Value: "keep"}})

	shaped, err := Shape(req, nil)
	if err != nil {
		t.Fatalf("Shape() error: %v", err)
	}

	var foundCustom, foundHost bool
	for _, h := range shaped.Headers {
		if h.Name == "x-custom" {
			foundCustom = true
		}
		if h.Name == "Host" {
			foundHost = true
			if h.Value != "example.com" {
				t.Errorf("Host header = %q, want example.com", h.Value)
			}
		}
	}
	if !foundCustom {
		t.Error("expected x-custom to survive shaping")
	}
	if !foundHost {
		t.Error("expected shaper to set its own Host header")
	}
}

func TestShape_AlwaysDisablesCompression(t *testing.T) {
	t.Parallel()

	req := mustRequest(t, nil)
	shaped, err := Shape(req, nil)
	if err != nil {
		t.Fatalf("Shape() error: %v", err)
	}

	for _, h := range shaped.Headers {
		if h.Name == "Accept-Encoding" {
			if h.Value != "identity" {
				t.Errorf("Accept-Encoding = %q, want identity", h.Value)
			}
			return
		}
	}
	t.Error("expected Accept-Encoding: identity header")
}

type dropAllPolicy struct{}

func (dropAllPolicy) ShouldDrop(string, string) (bool, error) { return true, nil }

func TestShape_AdditivePolicyDropsHeader(t *testing.T) {
	t.Parallel()

	req := mustRequest(t, []proxyreq.Header{{Name: "x-custom", Value: "v"}})
	shaped, err := Shape(req, dropAllPolicy{})
	if err != nil {
		t.Fatalf("Shape() error: %v", err)
	}

	var foundHost bool
	for _, h := range shaped.Headers {
		if h.Name == "x-custom" {
			t.Error("expected x-custom to be dropped by the additive policy")
		}
		if h.Name == "Host" {
			foundHost = true
		}
	}
	if !foundHost {
		t.Error("additive policy must not reach the shaper's own mandatory headers")
	}
}

func TestNewHTTPRequest_AppliesHeaders(t *testing.T) {
	t.Parallel()

	req := mustRequest(t, []proxyreq.Header{{Name: "x-custom", Value: "v"}})
	shaped, err := Shape(req, nil)
	if err != nil {
		t.Fatalf("Shape() error: %v", err)
	}

	httpReq, err := shaped.NewHTTPRequest()
	if err != nil {
		t.Fatalf("NewHTTPRequest() error: %v", err)
	}
	if httpReq.Header.Get("X-Custom") != "v" {
		t.Errorf("X-Custom header = %q, want v", httpReq.Header.Get("X-Custom"))
	}
}
