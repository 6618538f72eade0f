package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-homelink/homelink/internal/config"
	"github.com/go-homelink/homelink/internal/metrics"
	"github.com/go-homelink/homelink/internal/models"
	"github.com/go-homelink/homelink/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		AccessTokenTTL: time.Hour,
		AuthCodeTTL:    10 * time.Minute,
	}
}

func setupLinkService(t *testing.T) (*LinkService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewLinkService(s, testConfig(), metrics.NewNoopMetrics()), s
}

func seedUser(t *testing.T, s *store.MemoryStore, uid string) {
	t.Helper()
	err := s.PutUserRecord(context.Background(), uid, &models.UserRecord{
		Email: uid + "@example.com",
	})
	require.NoError(t, err)
}

func TestIssueAuthorizationCode(t *testing.T) {
	svc, s := setupLinkService(t)
	ctx := context.Background()
	seedUser(t, s, "uid1")

	code, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)
	assert.Len(t, code, 16)

	rec, err := s.GetUserRecord(ctx, "uid1")
	require.NoError(t, err)
	assert.Equal(t, code, rec.Alexa.AuthorizationCode)
	assert.NotZero(t, rec.Alexa.CodeIssuedAt)
}

func TestIssueAuthorizationCode_OverwritesPriorCode(t *testing.T) {
	svc, s := setupLinkService(t)
	ctx := context.Background()
	seedUser(t, s, "uid1")

	first, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)
	second, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Only the latest code is exchangeable
	_, err = svc.ExchangeCode(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidGrant)

	pair, err := svc.ExchangeCode(ctx, second)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
}

func TestExchangeCode(t *testing.T) {
	svc, s := setupLinkService(t)
	ctx := context.Background()
	seedUser(t, s, "uid1")

	code, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)

	pair, err := svc.ExchangeCode(ctx, code)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pair.AccessToken, "Atza1|"))
	assert.True(t, strings.HasPrefix(pair.RefreshToken, "Atzr1|"))
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, 3600, pair.ExpiresIn)

	// The code is consumed in the same write as the token mint
	rec, err := s.GetUserRecord(ctx, "uid1")
	require.NoError(t, err)
	assert.Empty(t, rec.Alexa.AuthorizationCode)
	assert.Zero(t, rec.Alexa.CodeIssuedAt)
	assert.Equal(t, pair.AccessToken, rec.Alexa.AccessToken)
	assert.Equal(t, pair.RefreshToken, rec.Alexa.RefreshToken)
	assert.Greater(t, rec.Alexa.AccessTokenExpiresAt, time.Now().Unix())
}

func TestExchangeCode_SingleUse(t *testing.T) {
	svc, s := setupLinkService(t)
	ctx := context.Background()
	seedUser(t, s, "uid1")

	code, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)

	_, err = svc.ExchangeCode(ctx, code)
	require.NoError(t, err)

	_, err = svc.ExchangeCode(ctx, code)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeCode_UnknownCode(t *testing.T) {
	svc, s := setupLinkService(t)
	seedUser(t, s, "uid1")

	_, err := svc.ExchangeCode(context.Background(), "doesnotexist1234")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeCode_Expired(t *testing.T) {
	svc, s := setupLinkService(t)
	ctx := context.Background()
	seedUser(t, s, "uid1")

	code, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)

	// Backdate the issue stamp past the TTL
	err = s.UpdateLinkFields(ctx, "uid1", map[string]any{
		models.FieldCodeIssuedAt: time.Now().Add(-time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = svc.ExchangeCode(ctx, code)
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchangeRefreshToken_Rotation(t *testing.T) {
	svc, s := setupLinkService(t)
	ctx := context.Background()
	seedUser(t, s, "uid1")

	code, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)
	first, err := svc.ExchangeCode(ctx, code)
	require.NoError(t, err)

	second, err := svc.ExchangeRefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Rotation is mandatory: the spent refresh token cannot be replayed
	_, err = svc.ExchangeRefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidGrant)

	// The rotated one works
	third, err := svc.ExchangeRefreshToken(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, third.AccessToken)
}

func TestExchangeRefreshToken_Unknown(t *testing.T) {
	svc, s := setupLinkService(t)
	seedUser(t, s, "uid1")

	_, err := svc.ExchangeRefreshToken(context.Background(), "Atzr1|neverissued")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestExchange_Dispatch(t *testing.T) {
	svc, s := setupLinkService(t)
	ctx := context.Background()
	seedUser(t, s, "uid1")

	_, err := svc.Exchange(ctx, GrantRequest{})
	assert.ErrorIs(t, err, ErrMissingGrant)

	code, err := svc.IssueAuthorizationCode(ctx, "uid1")
	require.NoError(t, err)
	pair, err := svc.Exchange(ctx, GrantRequest{Code: code})
	require.NoError(t, err)

	// refresh_token wins when both are present
	rotated, err := svc.Exchange(ctx, GrantRequest{
		Code:         "staleorbrokencode",
		RefreshToken: pair.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
}
