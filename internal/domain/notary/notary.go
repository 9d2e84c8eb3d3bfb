// Package notary implements the notary session client (C3): dialing the
// notary over TLS, negotiating a session ID, and upgrading the connection
// to a raw byte stream handed off to the prover.
package notary

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"crypto/x509"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

//go:embed assets/notary-ca.pem
var embeddedCA []byte

// Session is the notary session handed off to the prover: a raw duplex
// byte stream exclusively owned by the prover from this point on, plus the
// session identifier threaded into the prover configuration.
type Session struct {
	Conn      net.Conn
	SessionID string
}

// Config is the subset of configuration the notary dialer needs, mirrored
// from config.NotaryConfig so this package does not import the config
// package directly (kept free of upward dependencies, the same layering the
// teacher's adapters use against internal/domain).
type Config struct {
	Addr              string
	CertDomain        string
	CAFile            string
	MaxTranscriptSize int
	DialTimeout       time.Duration
}

// Dial performs the full C3 contract: TCP dial, TLS handshake against the
// notary CA, POST /session, GET /notarize with an Upgrade handover, and
// returns the reclaimed raw byte stream plus session ID.
//
// Any network error, TLS handshake failure, non-2xx on POST /session, or
// non-101 on GET /notarize is fatal to the notarization attempt.
func Dial(cfg Config) (*Session, error) {
	pool, err := loadCAPool(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("notary: loading CA pool: %w", err)
	}

	dialer := &net.Dialer{Timeout: nonZero(cfg.DialTimeout, 10*time.Second)}
	tcpConn, err := dialer.Dial("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("notary: dialing %s: %w", cfg.Addr, err)
	}

	tlsConn := tls.Client(tcpConn, &tls.Config{
		RootCAs:    pool,
		ServerName: cfg.CertDomain,
		MinVersion: tls.VersionTLS12,
	})
	if err := tlsConn.Handshake(); err != nil {
		tcpConn.Close()
		return nil, fmt.Errorf("notary: TLS handshake with %s: %w", cfg.CertDomain, err)
	}

	sessionID, err := requestSession(tlsConn, cfg.MaxTranscriptSize)
	if err != nil {
		tlsConn.Close()
		return nil, err
	}

	conn, err := upgradeToStream(tlsConn, sessionID)
	if err != nil {
		tlsConn.Close()
		return nil, err
	}

	return &Session{Conn: conn, SessionID: sessionID}, nil
}

// requestSession issues POST /session and returns the sessionId from a 200 response.
func requestSession(conn net.Conn, maxTranscriptSize int) (string, error) {
	if maxTranscriptSize <= 0 {
		maxTranscriptSize = 16384
	}
	body, err := json.Marshal(map[string]any{
		"clientType":        "Tcp",
		"maxTranscriptSize": maxTranscriptSize,
	})
	if err != nil {
		return "", fmt.Errorf("notary: marshaling session request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, "/session", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("notary: building session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(len(body))

	if err := req.Write(conn); err != nil {
		return "", fmt.Errorf("notary: writing session request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return "", fmt.Errorf("notary: reading session response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("notary: POST /session returned %s", resp.Status)
	}

	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("notary: decoding session response: %w", err)
	}
	if payload.SessionID == "" {
		return "", fmt.Errorf("notary: session response carried no sessionId")
	}
	return payload.SessionID, nil
}

// upgradeToStream issues GET /notarize?sessionId=... with an Upgrade:TCP
// header and, on 101, reclaims the underlying connection for raw use —
// including any bytes the response reader had already buffered past the
// header boundary.
func upgradeToStream(conn net.Conn, sessionID string) (net.Conn, error) {
	req, err := http.NewRequest(http.MethodGet, "/notarize?sessionId="+sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("notary: building notarize request: %w", err)
	}
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "TCP")

	if err := req.Write(conn); err != nil {
		return nil, fmt.Errorf("notary: writing notarize request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return nil, fmt.Errorf("notary: reading notarize response: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		return nil, fmt.Errorf("notary: GET /notarize returned %s, want 101", resp.Status)
	}

	return newPrebufferedConn(conn, br), nil
}

// prebufferedConn wraps a net.Conn whose http.Response reader may have
// over-read past the header boundary into its own buffer; Read drains that
// buffer before falling through to the underlying connection, so no bytes
// of the post-upgrade stream are lost.
type prebufferedConn struct {
	net.Conn
	br *bufio.Reader
}

func newPrebufferedConn(conn net.Conn, br *bufio.Reader) net.Conn {
	if br.Buffered() == 0 {
		return conn
	}
	return &prebufferedConn{Conn: conn, br: br}
}

func (c *prebufferedConn) Read(p []byte) (int, error) {
	if c.br.Buffered() > 0 {
		return c.br.Read(p)
	}
	return c.Conn.Read(p)
}

// loadCAPool returns a cert pool from caFile if given, otherwise from the
// embedded notary CA certificate.
func loadCAPool(caFile string) (*x509.CertPool, error) {
	pem := embeddedCA
	if caFile != "" {
		data, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file %s: %w", caFile, err)
		}
		pem = data
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from CA PEM")
	}
	return pool, nil
}

func nonZero(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

var _ io.Closer = (*Session)(nil)

// Close closes the underlying connection.
func (s *Session) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}
