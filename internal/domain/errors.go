package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so transports can map to status codes or ack errors
// without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	// ErrDelivery marks a push transport rejection or network failure.
	// Logged per recipient, never propagated past the fanout.
	ErrDelivery = errors.New("delivery failed")
)
