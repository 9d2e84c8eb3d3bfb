// Package service wires the pipeline stages (C1-C8) into one notarization
// attempt: shape the upstream request, dial the notary, drive the prover
// state machine, exchange the HTTP request/response over the logical MPC
// connection, resolve secrets, build and publish the proof, and return an
// independent copy of the upstream response to the caller.
package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/summitto/tlsn-prover-gateway/internal/adapter/outbound/localengine"
	"github.com/summitto/tlsn-prover-gateway/internal/adapter/outbound/publisher"
	"github.com/summitto/tlsn-prover-gateway/internal/config"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/attemptlog"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/clone"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/notary"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/proof"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/prover"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/proxyreq"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/redact"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/shaper"
	"github.com/summitto/tlsn-prover-gateway/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics is the subset of adapter metrics the notarization service
// records against. Kept as an interface-shaped struct of funcs so this
// package does not import the http transport adapter (layering: service
// sits below transport, never the other way around).
type Metrics struct {
	ObserveRequest      func(method, status string, duration time.Duration)
	SetActiveDelta      func(delta int)
	ObserveHeaderPolicy func(result string)
	IncProofsPublished  func()
	IncAttemptLogDrop   func()
}

// noopMetrics is used when the caller passes a nil Metrics.
func noopMetrics() *Metrics {
	return &Metrics{
		ObserveRequest:      func(string, string, time.Duration) {},
		SetActiveDelta:      func(int) {},
		ObserveHeaderPolicy: func(string) {},
		IncProofsPublished:  func() {},
		IncAttemptLogDrop:   func() {},
	}
}

// Result is what one successful notarization attempt yields to the HTTP
// ingress handler.
type Result struct {
	Response *http.Response
	Proof    *proof.Proof
}

// NotarizationService orchestrates C7→C3→C4→C1→C2→C5→C6 for one proxied
// request.
type NotarizationService struct {
	notaryCfg config.NotaryConfig
	timeouts  config.TimeoutConfig
	proofPath string

	policy  shaper.HeaderPolicy
	bus     *publisher.Bus
	ledger  attemptlog.Ledger
	metrics *Metrics

	attemptsCounter otelmetric.Int64Counter
}

// New builds a NotarizationService. bus and ledger may be nil; both are
// exercised on a strictly best-effort basis (§7 propagation policy).
func New(notaryCfg config.NotaryConfig, timeouts config.TimeoutConfig, publisherCfg config.PublisherConfig, policy shaper.HeaderPolicy, bus *publisher.Bus, ledger attemptlog.Ledger, metrics *Metrics) *NotarizationService {
	if policy == nil {
		policy = shaper.NoopPolicy{}
	}
	if metrics == nil {
		metrics = noopMetrics()
	}

	meter := telemetry.Meter("tlsn-prover-gateway/notarization")
	attemptsCounter, _ := meter.Int64Counter("notarization.attempts",
		otelmetric.WithDescription("Notarization attempts by outcome"))

	return &NotarizationService{
		notaryCfg:       notaryCfg,
		timeouts:        timeouts,
		proofPath:       publisherCfg.ProofPath,
		policy:          policy,
		bus:             bus,
		ledger:          ledger,
		metrics:         metrics,
		attemptsCounter: attemptsCounter,
	}
}

// Notarize runs one full pipeline attempt. Every returned error already
// carries enough context (via %w chains) for the HTTP handler to classify
// it against the §7 error-kind table without re-inspecting internals.
func (s *NotarizationService) Notarize(ctx context.Context, req *proxyreq.ProxyRequest) (*Result, error) {
	tracer := telemetry.Tracer("tlsn-prover-gateway/notarization")
	ctx, span := tracer.Start(ctx, "Notarize")
	defer span.End()

	s.metrics.SetActiveDelta(1)
	defer s.metrics.SetActiveDelta(-1)

	start := time.Now()
	attempt := attemptlog.Attempt{Host: req.Host, Timestamp: start}

	result, err := s.notarize(ctx, req)

	attempt.Outcome = attemptlog.OutcomeSuccess
	if err != nil {
		attempt.Outcome = attemptlog.OutcomeFailure
		attempt.ErrorKind = classifyError(err)
		attempt.Detail = err.Error()
	}
	s.recordAttempt(ctx, attempt)
	s.metrics.ObserveRequest(req.Method, string(attempt.Outcome), time.Since(start))
	if s.attemptsCounter != nil {
		s.attemptsCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", string(attempt.Outcome)),
		))
	}

	return result, err
}

func (s *NotarizationService) notarize(ctx context.Context, req *proxyreq.ProxyRequest) (*Result, error) {
	shaped, err := shaper.Shape(req, s.policy)
	if err != nil {
		return nil, fmt.Errorf("service: shaping request: %w", err)
	}
	s.metrics.ObserveHeaderPolicy("allow")

	session, err := notary.Dial(notary.Config{
		Addr:              s.notaryCfg.Addr,
		CertDomain:        s.notaryCfg.CertDomain,
		CAFile:            s.notaryCfg.CAFile,
		MaxTranscriptSize: s.notaryCfg.MaxTranscriptSize,
		DialTimeout:       s.timeouts.NotaryDial,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotaryUnreachable, err)
	}
	defer session.Conn.Close()

	upstreamConn, err := dialUpstream(ctx, req, s.timeouts.UpstreamDial)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUpstreamFailure, err)
	}

	engine := localengine.New()
	orch := prover.New(engine)

	if err := orch.SetUp(prover.Config{SessionID: session.SessionID, ServerDNS: req.Host}, session.Conn); err != nil {
		upstreamConn.Close()
		return nil, fmt.Errorf("%w: setup: %v", errProverFailure, err)
	}

	if err := orch.Connect(upstreamConn); err != nil {
		upstreamConn.Close()
		return nil, fmt.Errorf("%w: connect: %v", errProverFailure, err)
	}
	defer upstreamConn.Close()

	httpReq, err := shaped.NewHTTPRequest()
	if err != nil {
		return nil, fmt.Errorf("service: building upstream http request: %w", err)
	}
	httpReq = httpReq.WithContext(ctx)

	resp, err := orch.Exchange(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUpstreamFailure, err)
	}

	cloned, err := clone.Clone(resp)
	if err != nil {
		return nil, fmt.Errorf("service: cloning upstream response: %w", err)
	}

	if err := orch.CloseAndNotarize(); err != nil {
		return nil, fmt.Errorf("%w: notarize: %v", errProverFailure, err)
	}

	finalized, err := orch.Finalize()
	if err != nil {
		return nil, fmt.Errorf("%w: finalize: %v", errProverFailure, err)
	}

	reqSecrets, resSecrets := redact.Resolve(
		req.HeaderMap(),
		headerMap(cloned.Redactor.Header),
		req.Body,
		string(cloned.Body),
		req.RedactSelectors,
	)

	p, err := proof.Build(finalized, engine, reqSecrets, resSecrets)
	if err != nil {
		return nil, fmt.Errorf("%w: building proof: %v", errProverFailure, err)
	}

	s.publish(p, req)

	if s.proofPath != "" {
		if err := proof.DumpJSON(p, s.proofPath); err != nil {
			// local-I/O failures are logged, never fatal.
			slog.Warn("proof dump failed", "path", s.proofPath, "error", err)
		}
	}

	return &Result{Response: cloned.Caller, Proof: p}, nil
}

// publish marshals the built proof into the wire envelope and hands it to
// the IPC bus, best-effort: a publish failure never affects the HTTP
// response already computed above.
func (s *NotarizationService) publish(p *proof.Proof, req *proxyreq.ProxyRequest) {
	if s.bus == nil {
		return
	}
	data, err := proof.DumpJSONString(p)
	if err != nil {
		s.metrics.IncAttemptLogDrop()
		return
	}
	s.bus.PublishBestEffort(publisher.NewTlsProof(data, req.StoreKey, req.PublishTag))
	s.metrics.IncProofsPublished()
}

func (s *NotarizationService) recordAttempt(ctx context.Context, a attemptlog.Attempt) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, a); err != nil {
		s.metrics.IncAttemptLogDrop()
	}
}

// dialUpstream establishes the raw (or TLS) TCP connection the prover's
// logical connection rides on top of, per req.URL.Scheme.
func dialUpstream(ctx context.Context, req *proxyreq.ProxyRequest, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	addr := req.URL.Host
	if req.URL.Port() == "" {
		if req.URL.Scheme == "https" {
			addr = net.JoinHostPort(addr, "443")
		} else {
			addr = net.JoinHostPort(addr, "80")
		}
	}

	if req.URL.Scheme != "https" {
		return dialer.DialContext(ctx, "tcp", addr)
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	tlsConn := tls.Client(conn, &tls.Config{ServerName: req.URL.Hostname()})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func headerMap(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			m[strings.ToLower(k)] = v[0]
		}
	}
	return m
}
