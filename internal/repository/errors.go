// Package repository defines error types that are reused across the
// MySQL persistence layer. Sentinels owned by the engine contract
// (ErrTicketNotFound, ErrVersionConflict, ErrDuplicateNonce) live in the
// engine package; only failures specific to this layer are declared here.
package repository

import "errors"

// ErrDeviceExists is returned when registering a device id that is
// already taken. Handlers should translate this into an HTTP 409.
var ErrDeviceExists = errors.New("device already exists")
