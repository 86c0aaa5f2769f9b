// Package common defines shared sentinel errors used across sharegate
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorInvalidInput = errors.New("invalid input")

	// Redemption errors.
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorExpired       = errors.New("share expired")
	ErrorQuotaExceeded = errors.New("download quota exceeded")

	// File registration errors.
	ErrorPermissionDenied = errors.New("permission denied")

	// Slug allocation ran out of attempts. Transient: the whole create
	// call is safe to retry.
	ErrorSlugExhausted = errors.New("slug allocation exhausted")
)
