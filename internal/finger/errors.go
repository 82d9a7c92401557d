package finger

import "errors"

var (
	// ErrServerStarted is returned by Start on a server that is already
	// listening. Stop it first.
	ErrServerStarted = errors.New("finger: server already started")

	// ErrResponseClosed is returned by Emit and Complete once a response
	// has been completed.
	ErrResponseClosed = errors.New("finger: response already completed")
)
