package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-homelink/homelink/internal/config"
	"github.com/go-homelink/homelink/internal/metrics"
	"github.com/go-homelink/homelink/internal/models"
	"github.com/go-homelink/homelink/internal/store"
	"github.com/go-homelink/homelink/internal/token"
)

// Grant type labels used for metrics and dispatch.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	grantNone              = "none"
)

// GrantRequest is a token-endpoint request body: exactly one of Code or
// RefreshToken is expected.
type GrantRequest struct {
	Code         string `json:"code" form:"code"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// TokenPair is a successful exchange response.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
}

// LinkService is the token-exchange state machine. Per user it moves
// Unauthenticated -> CodeIssued (login) -> TokenIssued (code exchange), with
// refresh exchanges looping inside TokenIssued. All state lives in the
// injected store; the service itself is stateless and safe for concurrent
// use.
type LinkService struct {
	store   store.Store
	config  *config.Config
	metrics metrics.Recorder
}

// NewLinkService creates the token-exchange service.
func NewLinkService(s store.Store, cfg *config.Config, m metrics.Recorder) *LinkService {
	return &LinkService{store: s, config: cfg, metrics: m}
}

// IssueAuthorizationCode mints a code for uid and persists it, overwriting
// any prior code. Persistence failure is logged but tolerated: the code is
// still handed to the caller, and a later exchange of an unpersisted code
// simply fails as invalid_grant.
func (s *LinkService) IssueAuthorizationCode(ctx context.Context, uid string) (string, error) {
	code, err := token.NewAuthorizationCode()
	if err != nil {
		s.metrics.RecordCodeIssued(false)
		return "", fmt.Errorf("failed to mint authorization code: %w", err)
	}

	err = s.store.UpdateLinkFields(ctx, uid, map[string]any{
		models.FieldAuthorizationCode: code,
		models.FieldCodeIssuedAt:      time.Now().Unix(),
	})
	if err != nil {
		log.Printf("[Link] failed to persist authorization code for uid=%s: %v", uid, err)
		s.metrics.RecordStoreError("update_link_fields")
	}

	s.metrics.RecordCodeIssued(true)
	return code, nil
}

// Exchange dispatches a grant request: refresh_token wins when present, then
// code; neither is ErrMissingGrant.
func (s *LinkService) Exchange(ctx context.Context, req GrantRequest) (*TokenPair, error) {
	start := time.Now()

	switch {
	case req.RefreshToken != "":
		pair, err := s.ExchangeRefreshToken(ctx, req.RefreshToken)
		s.recordExchange(GrantRefreshToken, err, start)
		return pair, err
	case req.Code != "":
		pair, err := s.ExchangeCode(ctx, req.Code)
		s.recordExchange(GrantAuthorizationCode, err, start)
		return pair, err
	default:
		s.recordExchange(grantNone, ErrMissingGrant, start)
		return nil, ErrMissingGrant
	}
}

// ExchangeCode trades an authorization code for a fresh access/refresh token
// pair. Matching is an equality scan over all user records (O(n), see the
// store contract). The code is consumed atomically: the store write is
// guarded on the code still being in place, so two exchanges racing on the
// same code cannot both succeed.
func (s *LinkService) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	uid, rec, err := s.store.FindUserByToken(ctx, models.FieldAuthorizationCode, code)
	if err != nil {
		return nil, s.lookupError("find_by_code", err)
	}

	if rec.Alexa.CodeExpired(time.Now(), s.config.AuthCodeTTL) {
		return nil, ErrInvalidGrant
	}

	pair, fields, err := s.mintTokenPair()
	if err != nil {
		return nil, err
	}
	// Consume the code in the same write.
	fields[models.FieldAuthorizationCode] = ""
	fields[models.FieldCodeIssuedAt] = int64(0)

	err = s.store.CompareAndSwapLink(ctx, uid, models.FieldAuthorizationCode, code, fields)
	if err != nil {
		return nil, s.swapError("exchange_code", err)
	}

	return pair, nil
}

// ExchangeRefreshToken trades a refresh token for a new access token and a
// rotated refresh token. Rotation is mandatory: the presented token is
// overwritten in the same guarded write, so it cannot be replayed.
func (s *LinkService) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	uid, _, err := s.store.FindUserByToken(ctx, models.FieldRefreshToken, refreshToken)
	if err != nil {
		return nil, s.lookupError("find_by_refresh_token", err)
	}

	pair, fields, err := s.mintTokenPair()
	if err != nil {
		return nil, err
	}

	err = s.store.CompareAndSwapLink(ctx, uid, models.FieldRefreshToken, refreshToken, fields)
	if err != nil {
		return nil, s.swapError("exchange_refresh_token", err)
	}

	return pair, nil
}

// mintTokenPair generates a new access/refresh pair plus the link-field map
// that persists it.
func (s *LinkService) mintTokenPair() (*TokenPair, map[string]any, error) {
	accessToken, err := token.NewAccessToken()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mint access token: %w", err)
	}
	refreshToken, err := token.NewRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mint refresh token: %w", err)
	}

	var expiresAt int64
	if ttl := s.config.AccessTokenTTL; ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}

	pair := &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.config.ExpiresIn(),
	}
	fields := map[string]any{
		models.FieldAccessToken:          accessToken,
		models.FieldRefreshToken:         refreshToken,
		models.FieldAccessTokenExpiresAt: expiresAt,
	}
	return pair, fields, nil
}

// lookupError maps store errors on the read path: not-found is an invalid
// grant; I/O failure surfaces as-is, never downgraded.
func (s *LinkService) lookupError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidGrant
	}
	s.metrics.RecordStoreError(op)
	return err
}

// swapError maps store errors on the guarded write: a lost race or vanished
// record means the grant is no longer valid.
func (s *LinkService) swapError(op string, err error) error {
	if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
		return ErrInvalidGrant
	}
	s.metrics.RecordStoreError(op)
	return err
}

func (s *LinkService) recordExchange(grantType string, err error, start time.Time) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidGrant):
		result = "invalid_grant"
	case errors.Is(err, ErrMissingGrant):
		result = "missing_grant"
	default:
		result = "store_error"
	}
	s.metrics.RecordGrantExchange(grantType, result, time.Since(start))
}
