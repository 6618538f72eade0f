package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-homelink/homelink/internal/store"
)

// LocalProvider verifies credentials against bcrypt hashes kept in the user
// documents themselves. Lets the service run without an external identity
// provider (development, self-hosted installs).
type LocalProvider struct {
	store store.Store
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(s store.Store) *LocalProvider {
	return &LocalProvider{store: s}
}

// Authenticate verifies credentials against the backing store.
func (p *LocalProvider) Authenticate(
	ctx context.Context,
	email, password string,
) (*Result, error) {
	uid, rec, err := p.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}
	if rec.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(rec.PasswordHash),
		[]byte(password),
	); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Result{UID: uid, Email: rec.Email}, nil
}

// Name returns provider name for logging
func (p *LocalProvider) Name() string {
	return "local"
}
