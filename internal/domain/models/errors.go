package models

import "errors"

// Storage-level sentinels shared by every repository implementation.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicateName   = errors.New("name already in use")
)

// ErrIdempotencyKeyReused is returned by idempotency stores when a key comes
// back with a different request than the one that claimed it.
var ErrIdempotencyKeyReused = errors.New("idempotency key already used for a different request")
