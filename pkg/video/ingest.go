package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-tello/internal/log"
)

// DefaultVideoPort is the UDP port the drone streams video to.
const DefaultVideoPort = 11111

// IngestConfig holds the video socket settings.
type IngestConfig struct {
	ReadTimeout time.Duration // Per-receive deadline so cancellation is observed
	BufferSize  int           // Largest datagram accepted
}

// DefaultIngestConfig returns the settings used for the drone feed.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		ReadTimeout: 500 * time.Millisecond,
		BufferSize:  2048,
	}
}

// IngestStats counts forwarded traffic.
type IngestStats struct {
	Packets  uint64
	Bytes    uint64
	Timeouts uint64
}

// Ingest receives video datagrams and forwards them byte-for-byte to a decoder.
type Ingest struct {
	conn net.PacketConn
	out  io.Writer
	cfg  IngestConfig

	packets  atomic.Uint64
	bytes    atomic.Uint64
	timeouts atomic.Uint64
}

// ListenIngest binds the video socket on addr ("host:port") and returns an
// Ingest forwarding into out.
func ListenIngest(addr string, out io.Writer, cfg IngestConfig) (*Ingest, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen video %s: %w", addr, err)
	}
	return NewIngest(conn, out, cfg), nil
}

// NewIngest wraps an already bound socket.
func NewIngest(conn net.PacketConn, out io.Writer, cfg IngestConfig) *Ingest {
	def := DefaultIngestConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &Ingest{conn: conn, out: out, cfg: cfg}
}

// Addr returns the bound video address.
func (i *Ingest) Addr() net.Addr {
	return i.conn.LocalAddr()
}

// Stats returns a snapshot of the forwarded traffic.
func (i *Ingest) Stats() IngestStats {
	return IngestStats{
		Packets:  i.packets.Load(),
		Bytes:    i.bytes.Load(),
		Timeouts: i.timeouts.Load(),
	}
}

// Run forwards packets until ctx is cancelled (returns nil) or a socket or
// decoder write error ends the loop (returns the error). Receive timeouts
// are not errors.
func (i *Ingest) Run(ctx context.Context) error {
	buf := make([]byte, i.cfg.BufferSize)

	for ctx.Err() == nil {
		if err := i.conn.SetReadDeadline(time.Now().Add(i.cfg.ReadTimeout)); err != nil {
			return i.fail(ctx, "set deadline", err)
		}

		n, _, err := i.conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				i.timeouts.Add(1)
				log.Debug("receive video timeout")
				continue
			}
			return i.fail(ctx, "receive video", err)
		}

		if _, err := i.out.Write(buf[:n]); err != nil {
			return i.fail(ctx, "write decoder", err)
		}
		i.packets.Add(1)
		i.bytes.Add(uint64(n))
	}
	return nil
}

// fail logs a loop-ending error, unless it was caused by shutdown.
func (i *Ingest) fail(ctx context.Context, action string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	log.Error(action, "err", err)
	return fmt.Errorf("%s: %w", action, err)
}

// Close releases the video socket.
func (i *Ingest) Close() error {
	return i.conn.Close()
}
