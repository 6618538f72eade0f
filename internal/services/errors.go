package services

import "errors"

var (
	// ErrInvalidGrant: the presented code or refresh token matches no user
	// record (or was consumed by a concurrent exchange).
	ErrInvalidGrant = errors.New("invalid_grant")

	// ErrMissingGrant: the token request carried neither a code nor a
	// refresh token.
	ErrMissingGrant = errors.New("missing code or refresh_token")

	// ErrUnauthorized: missing, unknown or expired bearer token on a
	// device-discovery request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoUserData: the store holds no user records at all.
	ErrNoUserData = errors.New("no user data found")
)
