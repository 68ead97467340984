// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the lock manager to distinguish between different failure
// scenarios.
package repository

import "errors"

// ErrLockNotFound is returned when a room has no row in room_locks.
// After startup this only happens for ids outside the registry.
var ErrLockNotFound = errors.New("room lock not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrRefreshInvalid is returned for a refresh token that is unknown,
// expired or revoked.
var ErrRefreshInvalid = errors.New("refresh token invalid")
