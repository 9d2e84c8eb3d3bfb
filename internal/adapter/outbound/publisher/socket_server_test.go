package publisher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-zeromq/zmq4"
)

func newTestBus(t *testing.T) (*Bus, Config) {
	t.Helper()

	dir := t.TempDir()
	cfg := Config{
		SocketDir: filepath.Join(dir, "sockets"),
		PubName:   "proofs.ipc",
		ReqName:   "rpc.ipc",
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus, err := NewBus(ctx, cfg, NewHandlerSet(), nil)
	if err != nil {
		t.Fatalf("NewBus() error: %v", err)
	}
	t.Cleanup(func() { bus.Close() })

	go bus.Serve(ctx)

	return bus, cfg
}

func TestNewBus_CreatesSocketDirectory(t *testing.T) {
	t.Parallel()

	_, cfg := newTestBus(t)

	if _, err := os.Stat(cfg.SocketDir); err != nil {
		t.Fatalf("expected socket dir to exist: %v", err)
	}
}

func TestPublish_DeliversToSubscriber(t *testing.T) {
	t.Parallel()

	bus, cfg := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := zmq4.NewSub(ctx)
	defer sub.Close()

	if err := sub.Dial("ipc://" + filepath.Join(cfg.SocketDir, cfg.PubName)); err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	if err := sub.SetOption(zmq4.OptionSubscribe, proofsTopic); err != nil {
		t.Fatalf("SetOption() error: %v", err)
	}

	// give the subscriber time to complete its connection handshake
	time.Sleep(100 * time.Millisecond)

	want := NewTlsProof("payload-data", "stream-1", "proc-1")
	if err := bus.Publish(want); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	msg, err := sub.Recv()
	if err != nil {
		t.Fatalf("Recv() error: %v", err)
	}
	if len(msg.Frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(msg.Frames))
	}
	if string(msg.Frames[0]) != proofsTopic {
		t.Errorf("topic = %q, want %q", msg.Frames[0], proofsTopic)
	}

	var got TlsProof
	if err := Unmarshal(msg.Frames[1], &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.Data != want.Data || got.Id != want.Id {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestServe_UnknownMethodRepliesMethodNotFound(t *testing.T) {
	t.Parallel()

	_, cfg := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dealer := zmq4.NewDealer(ctx)
	defer dealer.Close()

	if err := dealer.Dial("ipc://" + filepath.Join(cfg.SocketDir, cfg.ReqName)); err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	req := zmq4.NewMsgFrom([]byte{}, []byte("req-1"), []byte("does-not-exist"), []byte("payload"))
	if err := dealer.Send(req); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	reply, err := dealer.Recv()
	if err != nil {
		t.Fatalf("Recv() error: %v", err)
	}
	if len(reply.Frames) != 2 {
		t.Fatalf("got %d frames, want 2 ([request_id, result])", len(reply.Frames))
	}
	if string(reply.Frames[1]) != "Method not found" {
		t.Errorf("result = %q, want %q", reply.Frames[1], "Method not found")
	}
}

func TestServe_KeepsRunningWhileIdle(t *testing.T) {
	t.Parallel()

	bus, _ := newTestBus(t)

	done := make(chan error, 1)
	go func() { done <- bus.Serve(context.Background()) }()

	select {
	case err := <-done:
		t.Fatalf("Serve() returned unexpectedly: %v", err)
	case <-time.After(50 * time.Millisecond):
		// still running, as expected
	}
}

func TestHandleRequest_ValidateHandlerRoundTrip(t *testing.T) {
	t.Parallel()

	bus, cfg := newTestBus(t)
	_ = bus

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dealer := zmq4.NewDealer(ctx)
	defer dealer.Close()

	if err := dealer.Dial("ipc://" + filepath.Join(cfg.SocketDir, cfg.ReqName)); err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	proof := NewTlsProof("some-data", "s", "p")
	payload, err := Marshal(proof)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	req := zmq4.NewMsgFrom([]byte{}, []byte("req-2"), []byte("validate"), payload)
	if err := dealer.Send(req); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	reply, err := dealer.Recv()
	if err != nil {
		t.Fatalf("Recv() error: %v", err)
	}

	var result ValidationResult
	if err := Unmarshal(reply.Frames[1], &result); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected Valid = true, got %+v", result)
	}
}
