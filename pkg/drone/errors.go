package drone

import "errors"

var (
	// ErrNotAcquired is returned by non-blocking sends while another command
	// holds the link.
	ErrNotAcquired = errors.New("drone: command permit busy")

	// ErrStopped is returned for commands issued after Stop.
	ErrStopped = errors.New("drone: manager stopped")

	// ErrInvalidConfig is returned by New when the configuration is unusable.
	ErrInvalidConfig = errors.New("drone: invalid config")

	// ErrInvalidDirection is returned by Move for an unknown direction.
	ErrInvalidDirection = errors.New("drone: invalid direction")
)
