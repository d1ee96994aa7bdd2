package apperrors

import (
	"errors"
)

var (
	// Upstream auth API said the credentials are no good. Terminal:
	// the whole credential set must be torn down, no retries.
	ErrUnauthorized = errors.New("unauthorized")

	ErrRefreshTokenExpired = errors.New("refresh token is expired")

	ErrUpstreamUnavailable = errors.New("upstream api unavailable")
)
