// Package auth abstracts how a login is verified. The rest of the system
// treats authentication as an opaque authenticate(email, password) -> uid
// call: the local provider checks bcrypt hashes stored in the user document,
// the HTTP API provider delegates to an external identity service.
package auth

import "context"

// Result carries the outcome of a successful authentication.
type Result struct {
	UID   string
	Email string
}

// Provider verifies a user's credentials and resolves their user id.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*Result, error)

	// Name returns provider name for logging
	Name() string
}
