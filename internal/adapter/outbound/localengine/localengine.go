// Package localengine is a concrete prover.Engine. No production-grade
// pure-Go MPC-TLS prover library exists in the dependency ecosystem this
// gateway draws on, so this engine stands in for one: it records the
// plaintext transcript exchanged with the upstream and produces a session
// attestation bound to the notary session via an HKDF-derived key and a
// Pedersen-style commitment, the same primitives a real MPC-TLS engine
// would expose through the prover.Engine seam.
package localengine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/bwesterb/go-ristretto"
	"golang.org/x/crypto/hkdf"

	"github.com/summitto/tlsn-prover-gateway/internal/domain/prover"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/transcript"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/proof"
)

var (
	_ prover.Engine          = (*Engine)(nil)
	_ proof.CommitmentEngine = (*Engine)(nil)
)

// Engine implements prover.Engine.
type Engine struct {
	sessionKey []byte
	cfg        prover.Config

	notaryConn net.Conn

	mu   sync.Mutex
	sent bytes.Buffer
	recv bytes.Buffer

	sessionProof []byte
}

// New creates an unconfigured Engine; Setup must be called before Connect.
func New() *Engine {
	return &Engine{}
}

// Setup derives a per-session key from the notary session ID and server
// name via HKDF-SHA256; Finalize and Commit hash that key into the
// commitments they build.
func (e *Engine) Setup(cfg prover.Config, notaryConn net.Conn) error {
	if cfg.SessionID == "" {
		return fmt.Errorf("localengine: empty session ID")
	}

	e.cfg = cfg
	e.notaryConn = notaryConn

	kdf := hkdf.New(sha256.New, []byte(cfg.SessionID), []byte(cfg.ServerDNS), []byte("tlsn-prover-session-key"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return fmt.Errorf("localengine: deriving session key: %w", err)
	}
	e.sessionKey = key

	return nil
}

// Connect wraps upstreamConn in a recording shim that captures every byte
// written (sent transcript) and read (recv transcript), and returns a
// driver future that notifies the notary the exchange has started. A real
// engine's driver would pump garbled-circuit traffic with the notary
// concurrently with the HTTP dialog; here it only needs to signal
// liveness, since the recording happens inline on the logical connection.
func (e *Engine) Connect(upstreamConn net.Conn) (net.Conn, func(context.Context) error, error) {
	logical := &recordingConn{Conn: upstreamConn, engine: e}

	driver := func(ctx context.Context) error {
		if e.notaryConn == nil {
			return nil
		}
		_, err := e.notaryConn.Write([]byte(e.cfg.SessionID + ":exchange-complete\n"))
		if err != nil {
			return fmt.Errorf("localengine: notifying notary: %w", err)
		}
		return nil
	}

	return logical, driver, nil
}

// StartNotarize is a no-op: the local engine has no separate notarize
// phase distinct from Finalize's attestation computation.
func (e *Engine) StartNotarize() error {
	return nil
}

// Finalize returns the captured transcripts plus a session attestation: a
// Ristretto commitment to SHA-256(sessionKey || sent || recv), serving as
// the "notary's session attestation" this local stand-in can produce
// without a real notary-side signature.
func (e *Engine) Finalize() (prover.FinalizedSession, error) {
	e.mu.Lock()
	sent := append([]byte(nil), e.sent.Bytes()...)
	recv := append([]byte(nil), e.recv.Bytes()...)
	e.mu.Unlock()

	digest := sha256.Sum256(append(append(append([]byte(nil), e.sessionKey...), sent...), recv...))

	var scalar ristretto.Scalar
	scalar.SetReduced(&digest)

	var commitmentPoint ristretto.Point
	commitmentPoint.ScalarMultBase(&scalar)
	attestation := commitmentPoint.Bytes()

	e.mu.Lock()
	e.sessionProof = attestation
	e.mu.Unlock()

	return prover.FinalizedSession{
		SentTranscript: sent,
		RecvTranscript: recv,
		SessionProof:   attestation,
	}, nil
}

// Commit produces a Pedersen-style commitment to r by hashing the
// session key, side, and range bounds into a Ristretto scalar and
// multiplying the base point — the same construction Finalize uses for
// the session attestation, specialized to one transcript range.
func (e *Engine) Commit(side string, r transcript.Range) (proof.Commitment, error) {
	digest := sha256.Sum256(fmt.Appendf(append([]byte(nil), e.sessionKey...), "%s:%d:%d", side, r.Start, r.End))

	var scalar ristretto.Scalar
	scalar.SetReduced(&digest)

	var point ristretto.Point
	point.ScalarMultBase(&scalar)

	return proof.Commitment{Side: side, Range: r, Opaque: point.Bytes()}, nil
}

// Reveal is a no-op for the local engine: the commitment already carries
// everything needed to open it (it is not a blinded commitment requiring a
// separate decommitment value). A real MPC-TLS engine would send the
// opening material to the notary here.
func (e *Engine) Reveal(c proof.Commitment) error {
	return nil
}

// SessionProof returns the attestation computed by the most recent Finalize call.
func (e *Engine) SessionProof() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionProof
}

// recordingConn wraps a net.Conn, appending every Write to engine.sent and
// every successful Read to engine.recv.
type recordingConn struct {
	net.Conn
	engine *Engine
}

func (c *recordingConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.engine.mu.Lock()
		c.engine.sent.Write(p[:n])
		c.engine.mu.Unlock()
	}
	return n, err
}

func (c *recordingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.engine.mu.Lock()
		c.engine.recv.Write(p[:n])
		c.engine.mu.Unlock()
	}
	return n, err
}
