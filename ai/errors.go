package ai

import "errors"

var (
	// ErrEmptyResponse is returned when the model produced no usable text.
	ErrEmptyResponse = errors.New("oracle returned an empty response")

	// ErrOracleClosed is returned when an oracle is used after its provider was closed.
	ErrOracleClosed = errors.New("oracle is closed")
)
