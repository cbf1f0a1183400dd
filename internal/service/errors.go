package service

import "errors"

// Fault taxonomy surfaced to the API layer. Store-level ErrNotFound and
// ErrDuplicate pass through unwrapped; anything else is a server fault.
var (
	ErrValidation         = errors.New("validation failed")
	ErrPermission         = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
)
