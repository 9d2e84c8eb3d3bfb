// Package shaper builds the upstream HTTP request from a ProxyRequest (C7),
// enforcing the fixed blocked-header set and an optional, strictly additive
// CEL-evaluated header admission policy layered on top of it.
package shaper

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/summitto/tlsn-prover-gateway/internal/domain/proxyreq"
)

// Request is the shaped, ready-to-send upstream request.
type Request struct {
	Method  string
	URL     string
	Host    string
	Headers []proxyreq.Header
	Body    string
}

// HeaderPolicy evaluates additional, deployment-specific header drop rules
// on top of the mandatory blocked-header set. It never relaxes that set —
// only narrows further what reaches the upstream.
type HeaderPolicy interface {
	// ShouldDrop reports whether header (name, value) should be dropped.
	ShouldDrop(name, value string) (bool, error)
}

// NoopPolicy drops nothing beyond the mandatory blocked-header set.
type NoopPolicy struct{}

// ShouldDrop always returns false.
func (NoopPolicy) ShouldDrop(string, string) (bool, error) { return false, nil }

// Shape builds the upstream request, always setting Host, Accept,
// Cache-Control, Connection, and Accept-Encoding, then appending every
// surviving header from req.Headers. Compression is always disabled: the
// MPC transcript layer cannot interpret compressed payloads.
func Shape(req *proxyreq.ProxyRequest, policy HeaderPolicy) (*Request, error) {
	if policy == nil {
		policy = NoopPolicy{}
	}

	shaped := &Request{
		Method: req.Method,
		URL:    req.URL.String(),
		Host:   req.Host,
		Body:   req.Body,
		Headers: []proxyreq.Header{
			{Name: "Host", Value: req.Host},
			{Name: "Accept", Value: "*/*"},
			{Name: "Cache-Control", Value: "no-cache"},
			{Name: "Connection", Value: "close"},
			{Name: "Accept-Encoding", Value: "identity"},
		},
	}

	for _, h := range req.Headers {
		drop, err := policy.ShouldDrop(h.Name, h.Value)
		if err != nil {
			return nil, fmt.Errorf("shaper: evaluating header policy for %s: %w", h.Name, err)
		}
		if drop {
			continue
		}
		shaped.Headers = append(shaped.Headers, h)
	}

	return shaped, nil
}

// NewHTTPRequest builds a *http.Request from a shaped Request, ready to be
// sent over the prover's logical TLS connection by C4.
func (r *Request) NewHTTPRequest() (*http.Request, error) {
	httpReq, err := http.NewRequest(r.Method, r.URL, strings.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("shaper: building http.Request: %w", err)
	}
	httpReq.Header = make(http.Header, len(r.Headers))
	for _, h := range r.Headers {
		httpReq.Header.Add(h.Name, h.Value)
	}
	return httpReq, nil
}
