// Package video ingests the drone's UDP video feed, pipes it through an
// external raw-frame decoder and hands out fixed-size BGR frames.
package video

import (
	"gocv.io/x/gocv"
)

// Default decoded frame geometry: a third of the 960x720 camera resolution.
const (
	DefaultWidth  = 960 / 3
	DefaultHeight = 720 / 3
	Channels      = 3
)

// FrameSize returns the byte length of a BGR24 frame.
func FrameSize(width, height int) int {
	return width * height * Channels
}

// Frame is one decoded BGR24 image, row-major.
// Data is owned by the frame reader and is only valid until the next frame
// is produced; use Clone to keep it.
type Frame struct {
	Width  int
	Height int
	Data   []byte
}

// Area returns the frame area in pixels.
func (f Frame) Area() int {
	return f.Width * f.Height
}

// Center returns the frame center in pixel coordinates.
func (f Frame) Center() (x, y float64) {
	return float64(f.Width) / 2, float64(f.Height) / 2
}

// Valid reports whether Data holds exactly one full frame.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == FrameSize(f.Width, f.Height)
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return Frame{Width: f.Width, Height: f.Height, Data: data}
}

// Mat wraps the frame as a 3-channel OpenCV matrix. The caller must Close it.
func (f Frame) Mat() (gocv.Mat, error) {
	if !f.Valid() {
		return gocv.Mat{}, ErrInvalidFrame
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
}
