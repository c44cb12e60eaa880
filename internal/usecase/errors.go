package usecase

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveAccount    = errors.New("account is deactivated")
	ErrInvalidToken       = errors.New("invalid or expired session")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrBridgeUnavailable  = errors.New("chat bridge unavailable")
)
