package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-zeromq/zmq4"
)

// proofsTopic is the fixed publication topic for notarized proofs.
const proofsTopic = "subscribeToProofs"

// minFrameLen is the shortest valid ROUTER request frame:
// [identity, <empty>, request_id, method_name, payload] with an
// empty-string payload still yields 5 frames.
const minFrameLen = 5

// Bus is the brokerless PUB/ROUTER IPC bus: one-way fan-out of published
// proofs, and request/reply RPCs dispatched through a HandlerSet.
type Bus struct {
	pub    zmq4.Socket
	router zmq4.Socket

	handlers *HandlerSet
	logger   *slog.Logger

	onPublishError func(error)
}

// Config carries the two IPC socket paths.
type Config struct {
	SocketDir string
	PubName   string
	ReqName   string
}

// NewBus creates the PUB and ROUTER sockets under cfg.SocketDir, creating
// the directory if missing, and binds both endpoints.
func NewBus(ctx context.Context, cfg Config, handlers *HandlerSet, logger *slog.Logger) (*Bus, error) {
	if err := os.MkdirAll(cfg.SocketDir, 0o755); err != nil {
		return nil, fmt.Errorf("publisher: creating socket dir %s: %w", cfg.SocketDir, err)
	}

	pubPath := filepath.Join(cfg.SocketDir, cfg.PubName)
	reqPath := filepath.Join(cfg.SocketDir, cfg.ReqName)

	// ipc:// sockets fail to bind over a stale file from a previous run.
	_ = os.Remove(pubPath)
	_ = os.Remove(reqPath)

	pub := zmq4.NewPub(ctx)
	if err := pub.Listen("ipc://" + pubPath); err != nil {
		return nil, fmt.Errorf("publisher: binding PUB socket %s: %w", pubPath, err)
	}

	router := zmq4.NewRouter(ctx)
	if err := router.Listen("ipc://" + reqPath); err != nil {
		pub.Close()
		return nil, fmt.Errorf("publisher: binding ROUTER socket %s: %w", reqPath, err)
	}

	if handlers == nil {
		handlers = NewHandlerSet()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Bus{pub: pub, router: router, handlers: handlers, logger: logger}, nil
}

// Close shuts down both sockets.
func (b *Bus) Close() error {
	err1 := b.pub.Close()
	err2 := b.router.Close()
	return errors.Join(err1, err2)
}

// Publish serializes proof and publishes it as [topic, payload] on the PUB
// endpoint, returning any failure. PublishBestEffort is the variant that
// routes a failure to onPublishError instead, so it never alters a caller's
// HTTP response — the pipeline treats publication as best-effort (§5
// ordering guarantees).
func (b *Bus) Publish(proof *TlsProof) error {
	payload, err := Marshal(proof)
	if err != nil {
		return fmt.Errorf("publisher: marshaling proof: %w", err)
	}

	msg := zmq4.NewMsgFrom([]byte(proofsTopic), payload)
	if err := b.pub.Send(msg); err != nil {
		return fmt.Errorf("publisher: sending on PUB socket: %w", err)
	}
	return nil
}

// OnPublishError registers a callback invoked whenever PublishBestEffort's
// call to Publish fails, so
// the caller can log the failure without Publish's error needing to
// propagate back into the HTTP response path.
func (b *Bus) OnPublishError(fn func(error)) {
	b.onPublishError = fn
}

// PublishBestEffort calls Publish and routes any error to the registered
// OnPublishError callback instead of returning it.
func (b *Bus) PublishBestEffort(proof *TlsProof) {
	if err := b.Publish(proof); err != nil && b.onPublishError != nil {
		b.onPublishError(err)
	}
}

// Serve runs the ROUTER listener loop until ctx is cancelled. Rather than
// the zero-timeout poll-and-sleep the original design mixed with async
// tasks, this blocks on Recv in its own goroutine — the "fully
// asynchronous socket abstraction" the design notes recommend as the
// preferred rewrite, while preserving the exact frame contract.
func (b *Bus) Serve(ctx context.Context) error {
	for {
		msg, err := b.router.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("publisher: ROUTER recv: %w", err)
		}

		if len(msg.Frames) < minFrameLen {
			continue // malformed frame dropped silently, per the frame contract
		}

		go b.handleRequest(msg.Frames)
	}
}

// handleRequest dispatches one [identity, <empty>, request_id, method, payload]
// frame and sends back [identity, request_id, result_bytes].
func (b *Bus) handleRequest(frames [][]byte) {
	identity := frames[0]
	requestID := frames[2]
	method := string(frames[3])
	payload := frames[4]

	var result []byte
	if !b.handlers.Has(method) {
		result = []byte("Method not found")
	} else {
		out, err := b.handlers.Call(method, payload)
		if err != nil {
			b.logger.Warn("publisher: handler error", "method", method, "error", err)
			result = []byte(err.Error())
		} else {
			result = out
		}
	}

	reply := zmq4.NewMsgFrom(identity, requestID, result)
	if err := b.router.Send(reply); err != nil {
		b.logger.Warn("publisher: ROUTER reply send failed", "method", method, "error", err)
	}
}
