package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is returned for a malformed template request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownTemplate is returned for a template type absent from the slot schema registry.
	ErrUnknownTemplate = errors.New("unknown template type")
)
