// Package common defines shared constants and sentinel errors used across
// tokenbank components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Ledger errors.
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateReference  = errors.New("duplicate payment reference")

	// Auth errors. ErrInvalidToken covers malformed, unknown, expired and
	// already-used tokens; the HTTP layer must not distinguish the
	// sub-reason to the end user.
	ErrInvalidToken = errors.New("invalid token")
)
