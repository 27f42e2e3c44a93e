package video

import "errors"

// Sentinel errors for the video pipeline.
var (
	// ErrDecoderNotFound is returned when the decoder binary is not on PATH.
	ErrDecoderNotFound = errors.New("video: decoder executable not found")

	// ErrDecoderClosed is returned when writing to a closed decoder.
	ErrDecoderClosed = errors.New("video: decoder closed")

	// ErrInvalidFrame is returned when a frame buffer does not match its geometry.
	ErrInvalidFrame = errors.New("video: invalid frame")
)
