package video

import (
	"bytes"
	"context"
	"io"
	"testing"
	"testing/iotest"
	"time"
)

func patternFrames(n, width, height int) []byte {
	size := FrameSize(width, height)
	data := make([]byte, n*size)
	for i := 0; i < n; i++ {
		for j := 0; j < size; j++ {
			data[i*size+j] = byte(i + 1)
		}
	}
	return data
}

func TestFrameReader_AccumulatesShortReads(t *testing.T) {
	const w, h = 4, 2
	data := patternFrames(3, w, h)

	// OneByteReader forces every read to be short.
	fr := NewFrameReader(iotest.OneByteReader(bytes.NewReader(data)), w, h)
	fr.RetryDelay = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []byte
	count := 0
	for frame := range fr.Frames(ctx) {
		if !frame.Valid() {
			t.Fatalf("frame %d invalid: %d bytes", count, len(frame.Data))
		}
		got = append(got, frame.Data[0])
		count++
		if count == 3 {
			break
		}
	}

	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("frame markers: got %v, want [1 2 3]", got)
	}
	if fr.Count() != 3 {
		t.Errorf("Count: got %d, want 3", fr.Count())
	}
}

func TestFrameReader_PartialFrameIsNotEmitted(t *testing.T) {
	const w, h = 4, 4
	size := FrameSize(w, h)
	pr, pw := io.Pipe()
	defer pw.Close()

	fr := NewFrameReader(pr, w, h)
	fr.RetryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan Frame, 1)
	go func() {
		for frame := range fr.Frames(ctx) {
			frames <- frame.Clone()
		}
		close(frames)
	}()

	pw.Write(make([]byte, size/2))
	select {
	case <-frames:
		t.Fatal("half frame should not be emitted")
	case <-time.After(50 * time.Millisecond):
	}

	pw.Write(bytes.Repeat([]byte{7}, size-size/2))
	select {
	case frame := <-frames:
		if len(frame.Data) != size {
			t.Errorf("frame size: got %d, want %d", len(frame.Data), size)
		}
		if frame.Data[size-1] != 7 {
			t.Errorf("last byte: got %d, want 7", frame.Data[size-1])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completed frame")
	}

	cancel()
	pw.Close()
}

func TestFrameReader_RetriesAfterEOF(t *testing.T) {
	const w, h = 2, 2
	size := FrameSize(w, h)

	// Drained first, then data shows up.
	r := &scriptedReader{chunks: [][]byte{nil, nil, bytes.Repeat([]byte{9}, size)}}
	fr := NewFrameReader(r, w, h)
	fr.RetryDelay = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for frame := range fr.Frames(ctx) {
		if frame.Data[0] != 9 {
			t.Errorf("frame data: got %d, want 9", frame.Data[0])
		}
		return
	}
	t.Fatal("no frame produced after EOF retries")
}

func TestFrameReader_StopsOnCancel(t *testing.T) {
	fr := NewFrameReader(&emptyReader{}, 2, 2)
	fr.RetryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		for range fr.Frames(ctx) {
		}
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Frames did not stop after cancel")
	}
}

func TestFrameReader_SingleConsumer(t *testing.T) {
	fr := NewFrameReader(&emptyReader{}, 2, 2)
	fr.RetryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for range fr.Frames(ctx) {
		}
	}()

	// Wait for the first iteration to claim the reader.
	deadline := time.Now().Add(time.Second)
	for !fr.busy.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	n := 0
	for range fr.Frames(ctx) {
		n++
	}
	if n != 0 {
		t.Errorf("second iteration yielded %d frames, want 0", n)
	}
}

// scriptedReader returns io.EOF for nil chunks and the chunk otherwise.
type scriptedReader struct {
	chunks [][]byte
}

func (s *scriptedReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	c := s.chunks[0]
	if c == nil {
		s.chunks = s.chunks[1:]
		return 0, io.EOF
	}
	n := copy(p, c)
	if n == len(c) {
		s.chunks = s.chunks[1:]
	} else {
		s.chunks[0] = c[n:]
	}
	return n, nil
}

// emptyReader never produces data.
type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, nil }
