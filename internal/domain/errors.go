package domain

import "errors"

// Domain errors
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrIdentityValidation = errors.New("identity validation failed")
	ErrDuplicateUser      = errors.New("user already exists")
)

// Validation constants
const (
	MaxEmailLength = 255
)
