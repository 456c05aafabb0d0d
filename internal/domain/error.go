package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrConflict         = errors.New("entity conflict")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrTransportFailure = errors.New("chat transport failure")

	// Linking codes
	ErrCodeNotFound    = fmt.Errorf("linking code: %w", ErrNotFound)
	ErrCodeExpired     = errors.New("linking code expired")
	ErrCodeAlreadyUsed = errors.New("linking code already used")

	// Account links
	ErrLinkNotFound  = fmt.Errorf("account link: %w", ErrNotFound)
	ErrAlreadyLinked = fmt.Errorf("account already linked: %w", ErrConflict)

	// Infra
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// Reason returns the machine readable reason used by the HTTP layer.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrCodeAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrAlreadyLinked):
		return "already_linked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidArgument):
		return "input_invalid"
	case errors.Is(err, ErrTransportFailure):
		return "transport_failure"
	default:
		return "internal"
	}
}
