package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrAlreadyExists    = errors.New("entity already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthorized     = errors.New("invalid or missing credential")
	ErrSessionInactive  = errors.New("session is not active")
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrGenerationFailed = errors.New("response generation failed")
	ErrRateLimited      = errors.New("too many messages")
)
