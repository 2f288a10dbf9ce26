package domain

import "errors"

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrRelayStopped   = errors.New("relay stopped")
	ErrSessionClosed  = errors.New("session closed")
)
