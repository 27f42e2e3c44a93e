package web

import "errors"

var (
	// ErrUnknownCommand is returned for command names the API does not map.
	ErrUnknownCommand = errors.New("web: unknown command")

	// ErrMissingCommand is returned when a request names no command.
	ErrMissingCommand = errors.New("web: missing command")
)
