// Package common defines shared constants and sentinel errors used across
// mangakeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorTransient marks blob store and download failures the caller may retry.
	ErrorTransient = errors.New("transient storage failure")

	// ErrorCorrupted marks archive bytes or members that cannot be decoded.
	ErrorCorrupted = errors.New("corrupted archive")

	// Upload validation errors.
	ErrorValidation           = errors.New("validation error")
	ErrorNotArchive           = errors.New("not a zip archive")
	ErrorNoImages             = errors.New("no image files found in archive")
	ErrorTooLarge             = errors.New("upload too large")
	ErrorStorageMisconfigured = errors.New("storage is not configured")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
