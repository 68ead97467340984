package model

import "errors"

// Sentinel errors shared by the lock subsystem.  Handlers map them to HTTP
// status codes and the API client maps status codes back to them, so both
// sides of the wire can use errors.Is.

// ErrUnknownRoom is returned for a room id outside the registry (404).
var ErrUnknownRoom = errors.New("unknown room")

// ErrValidation is returned for a malformed duration or reason (400).
var ErrValidation = errors.New("validation error")

// ErrActuator is returned when the network actuator fails or times out.
// The lock state is left untouched when this error is returned (502).
var ErrActuator = errors.New("actuator error")

// ErrUnauthorized is returned for a missing, invalid or expired bearer
// token (401).  Callers must not retry it silently.
var ErrUnauthorized = errors.New("unauthorized")

// ErrUnavailable is returned while the lock store or manager is not ready,
// or when the store cannot be reached (503).
var ErrUnavailable = errors.New("unavailable")
