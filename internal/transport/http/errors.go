package http

import "errors"

var (
	errUnsupported    = errors.New("unsupported message type")
	errInvalidPayload = errors.New("invalid payload")
)
