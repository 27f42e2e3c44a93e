package drone

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/teslashibe/go-tello/internal/log"
)

// slot holds the most recent reply datagram. The listener writes it, the
// channel reads and clears it.
type slot struct {
	mu   sync.Mutex
	data []byte
}

func (s *slot) store(p []byte) {
	s.mu.Lock()
	data := make([]byte, len(p))
	copy(data, p)
	s.data = data
	s.mu.Unlock()
}

func (s *slot) take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return "", false
	}
	reply := string(s.data)
	s.data = nil
	return reply, true
}

func (s *slot) clear() {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
}

// channel serializes commands over the command socket. At most one command
// is in flight; its reply is the next datagram stored in the slot.
type channel struct {
	conn  net.PacketConn
	drone net.Addr
	slot  *slot
	sem   *semaphore.Weighted

	pollInterval time.Duration
	maxPolls     int
}

func newChannel(conn net.PacketConn, drone net.Addr, s *slot, pollInterval time.Duration, maxPolls int) *channel {
	return &channel{
		conn:         conn,
		drone:        drone,
		slot:         s,
		sem:          semaphore.NewWeighted(1),
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// Send transmits command and waits for its reply. A blocking send waits for
// the permit; a non-blocking send returns ErrNotAcquired when it is held.
// A drone that stays silent for the whole poll budget yields ok=false and no
// error.
func (c *channel) Send(ctx context.Context, command string, blocking bool) (reply string, ok bool, err error) {
	if blocking {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", false, err
		}
	} else if !c.sem.TryAcquire(1) {
		log.Warn("send command", "command", command, "status", "not_acquired")
		return "", false, ErrNotAcquired
	}
	defer c.sem.Release(1)

	c.slot.clear()
	log.Info("send command", "command", command)
	if _, err := c.conn.WriteTo([]byte(command), c.drone); err != nil {
		return "", false, fmt.Errorf("send %q: %w", command, err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for range c.maxPolls {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-ticker.C:
		}
		if reply, ok := c.slot.take(); ok {
			return reply, true, nil
		}
	}

	log.Warn("no reply", "command", command, "polls", c.maxPolls)
	return "", false, nil
}
