// Package prover drives the MPC-TLS prover state machine (C4): it bridges
// the HTTP client dialog and the notary byte stream, enforcing the
// response-status gate and the ordering guarantee that the upstream
// connection is fully drained and closed before the prover driver is
// joined.
package prover

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
)

// State is a state of the MPC-TLS prover state machine.
type State int

const (
	StateUninitialized State = iota
	StateSetUp
	StateConnected
	StateExchanged
	StateNotarizing
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSetUp:
		return "set_up"
	case StateConnected:
		return "connected"
	case StateExchanged:
		return "exchanged"
	case StateNotarizing:
		return "notarizing"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Config carries the per-session prover configuration: the notary session
// ID and the upstream server name presented over MPC-TLS.
type Config struct {
	SessionID string
	ServerDNS string
}

// FinalizedSession is what a finalized prover yields to the proof builder (C5).
type FinalizedSession struct {
	SentTranscript []byte
	RecvTranscript []byte
	// SessionProof is the notary's opaque, serialized session attestation.
	SessionProof []byte
}

// Engine abstracts the MPC-TLS protocol operations a concrete prover
// library provides. No production-grade pure-Go MPC-TLS implementation
// exists to depend on directly, so the orchestrator is written against
// this seam — a deployment links in whatever prover library it trusts.
type Engine interface {
	// Setup binds the engine to a notary byte stream and session config.
	Setup(cfg Config, notaryConn net.Conn) error
	// Connect opens the logical TLS connection to the upstream over
	// upstreamConn and returns a driver function that must be run to
	// completion (typically in a goroutine) to advance the MPC protocol.
	Connect(upstreamConn net.Conn) (logicalConn net.Conn, driver func(context.Context) error, err error)
	// StartNotarize transitions the engine into the notarize phase. Called
	// only after the driver future has completed.
	StartNotarize() error
	// Finalize completes the protocol and returns the transcripts plus the
	// notary's session attestation.
	Finalize() (FinalizedSession, error)
}

// Orchestrator drives one notarization attempt's state machine. It is not
// safe for concurrent use by multiple goroutines beyond the internal
// driver/Exchange interleaving the state machine itself requires.
type Orchestrator struct {
	engine Engine

	mu    sync.Mutex
	state State

	logicalConn  net.Conn
	upstreamConn net.Conn
	driverErrCh  chan error
}

// New creates an Orchestrator over the given Engine.
func New(engine Engine) *Orchestrator {
	return &Orchestrator{engine: engine, state: StateUninitialized}
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) transition(from, to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != from {
		return fmt.Errorf("prover: invalid transition %s->%s from state %s", from, to, o.state)
	}
	o.state = to
	return nil
}

// SetUp constructs the prover configuration and binds it to the notary
// stream (Uninitialized -> SetUp).
func (o *Orchestrator) SetUp(cfg Config, notaryConn net.Conn) error {
	if err := o.engine.Setup(cfg, notaryConn); err != nil {
		return fmt.Errorf("prover: setup: %w", err)
	}
	return o.transition(StateUninitialized, StateSetUp)
}

// Connect opens the logical TLS connection to upstreamConn and spawns the
// prover driver future (SetUp -> Connected).
func (o *Orchestrator) Connect(upstreamConn net.Conn) error {
	logicalConn, driver, err := o.engine.Connect(upstreamConn)
	if err != nil {
		return fmt.Errorf("prover: connect: %w", err)
	}

	o.upstreamConn = upstreamConn
	o.logicalConn = logicalConn
	o.driverErrCh = make(chan error, 1)

	go func() {
		o.driverErrCh <- driver(context.Background())
	}()

	return o.transition(StateSetUp, StateConnected)
}

// Exchange runs a minimal HTTP/1.1 client dialog over the logical TLS
// connection and asserts the response status is 200 or 201 — any other
// status aborts the pipeline as fatal (Connected -> Exchanged).
func (o *Orchestrator) Exchange(req *http.Request) (*http.Response, error) {
	if s := o.State(); s != StateConnected {
		return nil, fmt.Errorf("prover: invalid transition %s->%s from state %s", StateConnected, StateExchanged, s)
	}
	if err := req.Write(o.logicalConn); err != nil {
		return nil, fmt.Errorf("prover: writing upstream request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(o.logicalConn), req)
	if err != nil {
		return nil, fmt.Errorf("prover: reading upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("prover: upstream status %d not in {200,201}", resp.StatusCode)
	}

	if err := o.transition(StateConnected, StateExchanged); err != nil {
		return nil, err
	}
	return resp, nil
}

// CloseAndNotarize shuts the upstream TCP connection down cleanly, then —
// only once that is done — joins the prover driver future and starts the
// notarize phase (Exchanged -> Notarizing). This ordering is load-bearing:
// the prover cannot advance to notarize while the upstream socket is still
// open.
func (o *Orchestrator) CloseAndNotarize() error {
	if err := closeWrite(o.upstreamConn); err != nil {
		return fmt.Errorf("prover: closing upstream write side: %w", err)
	}

	if err := <-o.driverErrCh; err != nil {
		return fmt.Errorf("prover: driver future: %w", err)
	}

	if err := o.engine.StartNotarize(); err != nil {
		return fmt.Errorf("prover: start_notarize: %w", err)
	}

	return o.transition(StateExchanged, StateNotarizing)
}

// Finalize completes the protocol (Notarizing -> Finalized).
func (o *Orchestrator) Finalize() (FinalizedSession, error) {
	session, err := o.engine.Finalize()
	if err != nil {
		return FinalizedSession{}, fmt.Errorf("prover: finalize: %w", err)
	}
	if err := o.transition(StateNotarizing, StateFinalized); err != nil {
		return FinalizedSession{}, err
	}
	return session, nil
}

// closeWriter is implemented by connections that support a half-close,
// e.g. *net.TCPConn. Falls back to a full Close for connections that don't.
type closeWriter interface {
	CloseWrite() error
}

func closeWrite(conn net.Conn) error {
	if cw, ok := conn.(closeWriter); ok {
		return cw.CloseWrite()
	}
	return conn.Close()
}
