// Package common defines shared constants and sentinel errors used across
// client and server layers of feedhub. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Input rejected before any write.
	ErrorValidation = errors.New("validation error")

	// The post document exists but its image could not be stored.
	ErrorImageUpload = errors.New("image upload failed")

	// The second write of a mirrored pair (follows/followers,
	// user/post favorities) failed.
	ErrorPartialMirror = errors.New("mirrored update failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
