// Package detection finds faces in decoded video frames.
package detection

import (
	"fmt"
	"image"

	"github.com/teslashibe/go-tello/pkg/video"
)

// Detection is a detected region in pixel coordinates of the input frame.
type Detection struct {
	X, Y       int     // Top-left corner
	W, H       int     // Width and height
	Confidence float64 // Detector score, 1 when the backend has none
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return float64(d.X) + float64(d.W)/2, float64(d.Y) + float64(d.H)/2
}

// Area returns the area of the bounding box in pixels
func (d Detection) Area() int {
	return d.W * d.H
}

// Rect returns the detection as an image rectangle.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.W, d.Y+d.H)
}

// Detector is the interface for face detection backends
type Detector interface {
	// Detect returns zero or more faces found in the frame
	Detect(frame video.Frame) ([]Detection, error)

	// Close releases resources
	Close() error
}

// Backend names accepted in Config.Backend.
const (
	BackendHaar  = "haar"
	BackendYuNet = "yunet"
)

// Config holds detector configuration
type Config struct {
	Backend   string // "haar" or "yunet"
	ModelPath string // Cascade XML or ONNX model

	// Haar cascade parameters
	ScaleFactor  float64
	MinNeighbors int

	// YuNet parameters
	ConfidenceThresh float64
}

// DefaultConfig returns the frontal-face Haar cascade used for tracking.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendHaar,
		ModelPath:        "models/haarcascade_frontalface_default.xml",
		ScaleFactor:      1.3,
		MinNeighbors:     5,
		ConfidenceThresh: 0.5,
	}
}

// New builds the detector selected by cfg.Backend. A missing model file is
// reported as ErrModelNotFound.
func New(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case BackendHaar, "":
		return NewHaar(cfg)
	case BackendYuNet:
		return NewYuNet(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// SelectFirst returns the first detection, or nil when there is none.
// Only one face is tracked at a time.
func SelectFirst(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}
	return &dets[0]
}
