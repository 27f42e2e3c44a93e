package video

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-tello/internal/log"
)

// FrameReader slices the decoder's output stream into fixed-size frames.
type FrameReader struct {
	r      io.Reader
	width  int
	height int

	// RetryDelay is the pause after an empty read or a read error.
	RetryDelay time.Duration

	busy   atomic.Bool
	frames atomic.Uint64
}

// NewFrameReader reads width x height BGR24 frames from r.
func NewFrameReader(r io.Reader, width, height int) *FrameReader {
	return &FrameReader{
		r:          r,
		width:      width,
		height:     height,
		RetryDelay: 10 * time.Millisecond,
	}
}

// Count returns how many frames have been produced.
func (fr *FrameReader) Count() uint64 {
	return fr.frames.Load()
}

// Frames returns a lazy, infinite sequence of frames. The stream is not
// restartable: a later iteration continues where the previous one stopped,
// and only one iteration may run at a time. The yielded Frame's Data is
// reused for the next frame.
//
// Short reads are accumulated until a full frame is available. EOF and read
// errors are logged and retried; the sequence only ends when ctx is
// cancelled or the consumer stops.
func (fr *FrameReader) Frames(ctx context.Context) iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		if !fr.busy.CompareAndSwap(false, true) {
			log.Warn("frame reader already in use")
			return
		}
		defer fr.busy.Store(false)

		size := FrameSize(fr.width, fr.height)
		buf := make([]byte, size)
		filled := 0
		var lastErr error

		for ctx.Err() == nil {
			n, err := fr.r.Read(buf[filled:])
			filled += n

			if filled == size {
				filled = 0
				lastErr = nil
				fr.frames.Add(1)
				if !yield(Frame{Width: fr.width, Height: fr.height, Data: buf}) {
					return
				}
				continue
			}

			if err == nil && n > 0 {
				continue
			}

			if err != nil && (lastErr == nil || err.Error() != lastErr.Error()) {
				if errors.Is(err, io.EOF) {
					log.Warn("video stream drained", "buffered", filled)
				} else {
					log.Error("read frame", "err", err)
				}
			}
			lastErr = err

			select {
			case <-ctx.Done():
				return
			case <-time.After(fr.RetryDelay):
			}
		}
	}
}
