package drone

import (
	"context"

	"github.com/teslashibe/go-tello/internal/log"
)

const replyBufferSize = 3000

// listen stores every datagram received on the command socket in the slot
// until the socket fails or is closed.
func (m *Manager) listen(ctx context.Context) {
	defer close(m.listenerDone)

	buf := make([]byte, replyBufferSize)
	for {
		n, addr, err := m.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("response listener stopped")
			} else {
				log.Error("receive response", "err", err)
			}
			return
		}
		log.Info("receive response", "reply", string(buf[:n]), "from", addr.String())
		m.slot.store(buf[:n])
	}
}
