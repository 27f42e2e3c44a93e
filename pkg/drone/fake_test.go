package drone

import (
	"image"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-tello/pkg/tracking/detection"
	"github.com/teslashibe/go-tello/pkg/video"
)

type received struct {
	command string
	at      time.Time
}

// fakeDrone answers "ok" to every command after a delay and flags any
// command that arrives while a previous one is still unanswered.
type fakeDrone struct {
	conn   net.PacketConn
	delay  time.Duration
	silent atomic.Bool

	mu       sync.Mutex
	log      []received
	busy     bool
	overlaps int
}

func newFakeDrone(t *testing.T, delay time.Duration) *fakeDrone {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen fake drone: %v", err)
	}
	f := &fakeDrone{conn: conn, delay: delay}
	go f.serve()
	t.Cleanup(func() { conn.Close() })
	return f
}

func (f *fakeDrone) port() int {
	return f.conn.LocalAddr().(*net.UDPAddr).Port
}

func (f *fakeDrone) serve() {
	buf := make([]byte, 1024)
	for {
		n, addr, err := f.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])

		f.mu.Lock()
		if f.busy {
			f.overlaps++
		}
		f.busy = true
		f.log = append(f.log, received{cmd, time.Now()})
		f.mu.Unlock()

		go func() {
			time.Sleep(f.delay)
			f.mu.Lock()
			f.busy = false
			f.mu.Unlock()
			if !f.silent.Load() {
				f.conn.WriteTo([]byte("ok"), addr)
			}
		}()
	}
}

func (f *fakeDrone) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.log))
	for i, r := range f.log {
		out[i] = r.command
	}
	return out
}

func (f *fakeDrone) history() []received {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]received(nil), f.log...)
}

func (f *fakeDrone) overlapCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlaps
}

func (f *fakeDrone) has(prefix string) bool {
	for _, c := range f.commands() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// pipeDecoder passes video bytes straight through as raw frames.
type pipeDecoder struct {
	pr *io.PipeReader
	pw *io.PipeWriter
}

func newPipeDecoder() *pipeDecoder {
	pr, pw := io.Pipe()
	return &pipeDecoder{pr: pr, pw: pw}
}

func (d *pipeDecoder) Write(p []byte) (int, error) { return d.pw.Write(p) }
func (d *pipeDecoder) Read(p []byte) (int, error)  { return d.pr.Read(p) }

func (d *pipeDecoder) Close() error {
	d.pw.Close()
	return d.pr.Close()
}

type stubDetector struct {
	mu     sync.Mutex
	dets   []detection.Detection
	calls  int
	closed bool
}

func (s *stubDetector) Detect(video.Frame) ([]detection.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.dets, nil
}

func (s *stubDetector) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type stubEncoder struct {
	mu      sync.Mutex
	regions [][]image.Rectangle
}

func (s *stubEncoder) Encode(frame video.Frame, regions []image.Rectangle) ([]byte, error) {
	s.mu.Lock()
	s.regions = append(s.regions, regions)
	s.mu.Unlock()
	return []byte("jpeg"), nil
}

func (s *stubEncoder) annotated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if len(r) > 0 {
			return true
		}
	}
	return false
}

func testConfig(droneport int) Config {
	cfg := DefaultConfig()
	cfg.HostIP = "127.0.0.1"
	cfg.HostPort = 0
	cfg.DroneIP = "127.0.0.1"
	cfg.DronePort = droneport
	cfg.VideoPort = 0
	cfg.PollInterval = 10 * time.Millisecond
	cfg.PatrolDwell = 40 * time.Millisecond
	cfg.StopInterval = 10 * time.Millisecond
	cfg.StopRetries = 100
	cfg.PatrolStopRetries = 100
	cfg.Ingest.ReadTimeout = 20 * time.Millisecond
	cfg.Decoder.Width = 8
	cfg.Decoder.Height = 4
	return cfg
}

func startManager(t *testing.T, cfg Config, det detection.Detector, opts ...Option) *Manager {
	t.Helper()
	if det == nil {
		det = &stubDetector{}
	}
	opts = append([]Option{WithDetector(det), WithDecoder(newPipeDecoder())}, opts...)
	m, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.Stop)
	return m
}

func waitFor(t *testing.T, what string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
