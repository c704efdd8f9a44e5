package application

import "errors"

var (
	// ErrEmptyPayload is returned when a custom message has no body
	ErrEmptyPayload = errors.New("custom payload is empty")

	// ErrInvalidOffset is returned when a seek offset cannot be parsed or is negative
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrPoolNotStarted is returned when the consumer pool is used before Start
	ErrPoolNotStarted = errors.New("consumer pool not started")

	// ErrPoolStarted is returned when Start is called on a running pool
	ErrPoolStarted = errors.New("consumer pool already started")
)
