// Package proxyreq defines the normalized view of a client-originated
// request the gateway reissues to an upstream server over MPC-TLS.
package proxyreq

import (
	"fmt"
	"net/url"
	"strings"
)

// Header is a single (name, value) pair. ProxyRequest keeps headers as an
// ordered list rather than a map so the shaper (C7) forwards them verbatim
// in list order. The ingress handler builds that list by ranging over a
// net/http.Header map, so its order is not the order the client sent.
type Header struct {
	Name  string
	Value string
}

// BlockedHeaders is the fixed set of header names never forwarded to the
// upstream server: gateway control headers plus anything the shaper (C7)
// sets unconditionally. Keys are lowercase; lookups normalize case.
var BlockedHeaders = map[string]struct{}{
	"host":             {},
	"user-agent":       {},
	"postman-token":    {},
	"accept-encoding":  {},
	"cache-control":    {},
	"content-length":   {},
	"accept":           {},
	"connection":       {},
	"t-proxy-url":      {},
	"t-redacted":       {},
	"t-store":          {},
	"t-publish":        {},
}

// IsBlocked reports whether name is in BlockedHeaders, case-insensitively.
func IsBlocked(name string) bool {
	_, blocked := BlockedHeaders[strings.ToLower(name)]
	return blocked
}

// ProxyRequest is a normalized view of the request to be proxied. It is
// constructed once by the ingress shim, treated as immutable thereafter,
// and consumed twice: once to shape the upstream dispatch (C7), once to
// extract secrets from the sent transcript (C1). Clone gives callers that
// second, independent copy.
type ProxyRequest struct {
	// URL is the absolute upstream URL carried in T-PROXY-URL.
	URL *url.URL
	// Method is the client's HTTP method (GET, POST, PUT, PATCH, DELETE).
	Method string
	// Host is the upstream authority; must match URL.Host (see New).
	Host string
	// Headers excludes every name in BlockedHeaders.
	Headers []Header
	// Body is the raw request body, or "" if the client sent none.
	Body string
	// RedactSelectors is the raw, unsplit T-REDACTED header value.
	RedactSelectors string
	// StoreKey is the opaque T-STORE value placed in the published proof's stream field.
	StoreKey string
	// PublishTag is the opaque T-PUBLISH value placed in the published proof's process field.
	PublishTag string
}

// New builds a ProxyRequest from raw ingress fields, stripping any blocked
// header before the record is ever handed to downstream components. It
// fails if rawURL does not parse or lacks a host.
func New(method, rawURL string, rawHeaders []Header, body, redact, store, publish string) (*ProxyRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("proxyreq: invalid T-PROXY-URL %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxyreq: T-PROXY-URL %q has no host", rawURL)
	}

	headers := make([]Header, 0, len(rawHeaders))
	for _, h := range rawHeaders {
		if IsBlocked(h.Name) {
			continue
		}
		headers = append(headers, h)
	}

	return &ProxyRequest{
		URL:             u,
		Method:          strings.ToUpper(method),
		Host:            u.Host,
		Headers:         headers,
		Body:            body,
		RedactSelectors: redact,
		StoreKey:        store,
		PublishTag:      publish,
	}, nil
}

// Clone returns an independent copy safe for a second, concurrent consumer.
func (p *ProxyRequest) Clone() *ProxyRequest {
	u := *p.URL
	headers := make([]Header, len(p.Headers))
	copy(headers, p.Headers)

	clone := *p
	clone.URL = &u
	clone.Headers = headers
	return &clone
}

// HeaderMap returns the headers as a map keyed by lowercase name, the shape
// the redactor (C1) expects. Later duplicates win, leaving a single value
// per name (net/http.Header.Get, by contrast, returns the first value).
func (p *ProxyRequest) HeaderMap() map[string]string {
	m := make(map[string]string, len(p.Headers))
	for _, h := range p.Headers {
		m[strings.ToLower(h.Name)] = h.Value
	}
	return m
}
