package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/summitto/tlsn-prover-gateway/internal/domain/proxyreq"
	"github.com/summitto/tlsn-prover-gateway/internal/service"
)

// Request control headers the ingress route reads and strips before the
// proxied request is ever built.
const (
	headerProxyURL = "T-PROXY-URL"
	headerRedacted = "T-REDACTED"
	headerStore    = "T-STORE"
	headerPublish  = "T-PUBLISH"
)

// ProxyHandler serves ANY /proxy: normalize the ingress request into a
// ProxyRequest, run it through the notarization pipeline, and return the
// upstream's response to the caller unchanged (C8's caller-side clone).
type ProxyHandler struct {
	svc *service.NotarizationService
}

// NewProxyHandler creates a ProxyHandler bound to svc.
func NewProxyHandler(svc *service.NotarizationService) *ProxyHandler {
	return &ProxyHandler{svc: svc}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := LoggerFromContext(r.Context())

	rawURL := r.Header.Get(headerProxyURL)
	if rawURL == "" {
		writeProxyError(w, http.StatusBadRequest, "missing "+headerProxyURL+" header")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProxyError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}
	r.Body.Close()

	headers := make([]proxyreq.Header, 0, len(r.Header))
	for name, values := range r.Header {
		for _, v := range values {
			headers = append(headers, proxyreq.Header{Name: name, Value: v})
		}
	}

	req, err := proxyreq.New(
		r.Method, rawURL, headers, string(body),
		r.Header.Get(headerRedacted), r.Header.Get(headerStore), r.Header.Get(headerPublish),
	)
	if err != nil {
		writeProxyError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.svc.Notarize(r.Context(), req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	logger.Info("proxy request",
		"host", req.Host,
		"store", req.StoreKey,
		"publish", req.PublishTag,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err != nil {
		writeProxyError(w, classifyStatus(err), err.Error())
		return
	}
	defer result.Response.Body.Close()

	for key, values := range result.Response.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(result.Response.StatusCode)
	if _, err := io.Copy(w, result.Response.Body); err != nil {
		logger.Debug("error copying proxied response body", "error", err)
	}
}

// classifyStatus maps a Notarize error onto an HTTP status class per §7:
// notary/upstream/prover failures are fatal (5xx); anything else is
// treated as a malformed request (4xx).
func classifyStatus(err error) int {
	switch {
	case service.IsNotaryUnreachable(err), service.IsUpstreamFailure(err), service.IsProverFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func writeProxyError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
