// Package store abstracts the hierarchical user-document store backing skill
// linking and device discovery. Implementations persist one document per user
// id (link tokens under alexa, the home tree under homes) and are injected
// into the services so tests can substitute the in-memory adapter.
package store

import (
	"context"

	"github.com/go-homelink/homelink/internal/models"
)

// Store is the capability the services program against.
//
// Token lookups are equality scans over the full user set. That is O(n) in
// the number of users and acceptable at household scale; production scale
// would need a secondary token->uid index maintained atomically alongside
// the primary record.
type Store interface {
	// GetUserRecord fetches the full document for uid. ErrNotFound when the
	// user does not exist.
	GetUserRecord(ctx context.Context, uid string) (*models.UserRecord, error)

	// PutUserRecord writes the full document for uid (seeding, tests).
	PutUserRecord(ctx context.Context, uid string, rec *models.UserRecord) error

	// ListUserIDs returns all known user ids.
	ListUserIDs(ctx context.Context) ([]string, error)

	// FindUserByToken scans user records for one whose stored link field
	// (models.FieldAuthorizationCode, FieldAccessToken or FieldRefreshToken)
	// equals value. ErrNotFound when no record matches.
	FindUserByToken(ctx context.Context, field, value string) (string, *models.UserRecord, error)

	// FindUserByEmail scans user records for a matching email (local auth).
	FindUserByEmail(ctx context.Context, email string) (string, *models.UserRecord, error)

	// UpdateLinkFields merges fields into the user's alexa record. Values are
	// strings for token fields and int64 for the timestamp fields; an empty
	// string or zero clears the field.
	UpdateLinkFields(ctx context.Context, uid string, fields map[string]any) error

	// CompareAndSwapLink merges fields like UpdateLinkFields, but only if the
	// guarded link field still equals expect at write time. ErrConflict when
	// the guard fails. This is what makes code consumption and refresh-token
	// rotation race-safe: two exchanges racing on the same value cannot both
	// succeed.
	CompareAndSwapLink(ctx context.Context, uid, field, expect string, fields map[string]any) error

	// GetHome fetches a single home subtree of ownerID, used to resolve guest
	// access grants. ErrNotFound when owner or home is missing.
	GetHome(ctx context.Context, ownerID, homeID string) (*models.Home, error)

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error

	// Close releases the underlying connection, if any.
	Close() error
}

// applyLinkFields merges a field map into a link record. Shared by adapters.
func applyLinkFields(t *models.LinkTokens, fields map[string]any) {
	for name, value := range fields {
		switch name {
		case models.FieldAuthorizationCode:
			t.AuthorizationCode, _ = value.(string)
		case models.FieldAccessToken:
			t.AccessToken, _ = value.(string)
		case models.FieldRefreshToken:
			t.RefreshToken, _ = value.(string)
		case models.FieldCodeIssuedAt:
			t.CodeIssuedAt = asInt64(value)
		case models.FieldAccessTokenExpiresAt:
			t.AccessTokenExpiresAt = asInt64(value)
		}
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
