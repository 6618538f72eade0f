package models

import "time"

// Token field names as persisted under users/<uid>/alexa. Handlers, services
// and the store all refer to link-record fields by these names.
const (
	FieldAuthorizationCode    = "authorization_code"
	FieldAccessToken          = "access_token"
	FieldRefreshToken         = "refresh_token"
	FieldCodeIssuedAt         = "code_issued_at"
	FieldAccessTokenExpiresAt = "access_token_expires_at"
)

// LinkTokens is the per-user skill-link record. At most one live value of
// each class exists per user; every mint overwrites the prior value, no
// history is retained.
type LinkTokens struct {
	// AuthorizationCode is present only between login and first exchange.
	AuthorizationCode string `json:"authorization_code,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	RefreshToken      string `json:"refresh_token,omitempty"`

	// CodeIssuedAt and AccessTokenExpiresAt are unix seconds. Both are
	// optional: records written by older deployments carry neither, and
	// enforcement is config-gated (a zero TTL disables the check).
	CodeIssuedAt         int64 `json:"code_issued_at,omitempty"`
	AccessTokenExpiresAt int64 `json:"access_token_expires_at,omitempty"`
}

// AccessTokenExpired reports whether the access token carries an expiry
// stamp that has passed. Records without a stamp never expire.
func (t *LinkTokens) AccessTokenExpired(now time.Time) bool {
	return t.AccessTokenExpiresAt > 0 && now.Unix() > t.AccessTokenExpiresAt
}

// CodeExpired reports whether the authorization code is older than ttl.
// A zero ttl disables the check, as does a record without an issue stamp.
func (t *LinkTokens) CodeExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || t.CodeIssuedAt == 0 {
		return false
	}
	return now.Unix() > t.CodeIssuedAt+int64(ttl.Seconds())
}

// UserRecord is the document stored per user id. Email and PasswordHash are
// only populated when the local auth provider manages identities; under
// AUTH_MODE=http_api the external identity provider owns credentials and
// these fields stay empty.
type UserRecord struct {
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"password_hash,omitempty"`
	Alexa        LinkTokens `json:"alexa"`
	Homes        HomeSet    `json:"homes"`
}

// TokenValue returns the stored value for one of the three token classes.
func (u *UserRecord) TokenValue(field string) string {
	switch field {
	case FieldAuthorizationCode:
		return u.Alexa.AuthorizationCode
	case FieldAccessToken:
		return u.Alexa.AccessToken
	case FieldRefreshToken:
		return u.Alexa.RefreshToken
	}
	return ""
}
