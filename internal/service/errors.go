package service

import "errors"

// Sentinel errors the API layer maps to HTTP statuses.
var (
	ErrEmptyCart              = errors.New("empty cart")
	ErrValidation             = errors.New("validation failed")
	ErrCategoryNotFound       = errors.New("category not found")
	ErrInvalidPaymentAmount   = errors.New("invalid payment amount")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrConcurrentModification = errors.New("concurrent modification")
)
