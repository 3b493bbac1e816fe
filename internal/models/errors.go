package models

import "errors"

// Error kinds shared by the services and the store. Callers branch with errors.Is.
var (
	ErrVerificationRequired    = errors.New("verification required")
	ErrInvalidTierTransition   = errors.New("invalid tier transition")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrUnsupportedLocationType = errors.New("unsupported location type")
	ErrUnsupportedDuration     = errors.New("unsupported duration")
	ErrAlreadyUnlocked         = errors.New("already unlocked")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrConflict                = errors.New("concurrent modification")
	ErrNotFound                = errors.New("not found")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidRequest          = errors.New("invalid request")
)
