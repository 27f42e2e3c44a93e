package video

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func sendTo(t *testing.T, addr net.Addr, payloads ...[]byte) {
	t.Helper()
	conn, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	for _, p := range payloads {
		if _, err := conn.Write(p); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestIngest_ForwardsPackets(t *testing.T) {
	out := &syncBuffer{}
	in, err := ListenIngest("127.0.0.1:0", out, IngestConfig{ReadTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("ListenIngest: %v", err)
	}
	defer in.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	sendTo(t, in.Addr(), []byte("abc"), []byte("def"), []byte("g"))
	waitFor(t, time.Second, func() bool { return in.Stats().Packets == 3 })

	if got := string(out.Bytes()); got != "abcdefg" {
		t.Errorf("forwarded bytes: got %q, want %q", got, "abcdefg")
	}
	if in.Stats().Bytes != 7 {
		t.Errorf("Bytes: got %d, want 7", in.Stats().Bytes)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after cancel: got %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestIngest_TimeoutIsNotFatal(t *testing.T) {
	out := &syncBuffer{}
	in, err := ListenIngest("127.0.0.1:0", out, IngestConfig{ReadTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("ListenIngest: %v", err)
	}
	defer in.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return in.Stats().Timeouts >= 2 })

	// Still alive after timeouts.
	sendTo(t, in.Addr(), []byte("late"))
	waitFor(t, time.Second, func() bool { return in.Stats().Packets == 1 })

	select {
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	default:
	}
}

func TestIngest_DecoderWriteErrorEndsLoop(t *testing.T) {
	in, err := ListenIngest("127.0.0.1:0", failingWriter{}, IngestConfig{ReadTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("ListenIngest: %v", err)
	}
	defer in.Close()

	done := make(chan error, 1)
	go func() { done <- in.Run(context.Background()) }()

	sendTo(t, in.Addr(), []byte("x"))

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error from broken decoder")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on write error")
	}
}

func TestIngest_ClosedSocketEndsLoop(t *testing.T) {
	in, err := ListenIngest("127.0.0.1:0", &syncBuffer{}, IngestConfig{ReadTimeout: time.Second})
	if err != nil {
		t.Fatalf("ListenIngest: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- in.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	in.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected socket error after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after socket close")
	}
}
