package idle

import "errors"

var (
	// ErrInvalidInput indicates malformed heartbeat or policy input.
	ErrInvalidInput = errors.New("invalid idle tracking input")
)
