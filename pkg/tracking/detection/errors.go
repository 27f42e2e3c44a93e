package detection

import "errors"

var (
	// ErrModelNotFound is returned when the detector's model file is absent.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrModelLoad is returned when the model file exists but cannot be loaded.
	ErrModelLoad = errors.New("detection: model failed to load")

	// ErrUnknownBackend is returned for an unsupported Config.Backend.
	ErrUnknownBackend = errors.New("detection: unknown backend")

	// ErrEmptyFrame is returned when a frame carries no pixels.
	ErrEmptyFrame = errors.New("detection: empty frame")

	// ErrClosed is returned by Detect after Close.
	ErrClosed = errors.New("detection: detector closed")
)
