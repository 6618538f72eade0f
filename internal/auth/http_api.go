package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	retry "github.com/appleboy/go-httpretry"

	"github.com/go-homelink/homelink/internal/config"
)

// HTTPAPIProvider delegates authentication to an external identity service
// over HTTP. The request/response shape mirrors the provider contract:
// authenticate(email, password) -> uid | error.
type HTTPAPIProvider struct {
	config      *config.Config
	retryClient *retry.Client
}

// NewHTTPAPIProvider creates a new HTTP API authentication provider.
func NewHTTPAPIProvider(cfg *config.Config, retryClient *retry.Client) *HTTPAPIProvider {
	return &HTTPAPIProvider{
		config:      cfg,
		retryClient: retryClient,
	}
}

// APIAuthRequest is the request payload sent to the external API.
type APIAuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// APIAuthResponse is the expected response from the external API.
type APIAuthResponse struct {
	Success bool   `json:"success"`
	UID     string `json:"uid,omitempty"`
	Message string `json:"message,omitempty"`
}

// Authenticate verifies credentials against the external HTTP API.
func (p *HTTPAPIProvider) Authenticate(
	ctx context.Context,
	email, password string,
) (*Result, error) {
	reqBody := APIAuthRequest{
		Email:    email,
		Password: password,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Authentication headers and retries are handled by the HTTP client
	resp, err := p.retryClient.Post(
		ctx,
		p.config.HTTPAPIURL,
		retry.WithBody("application/json", bytes.NewBuffer(jsonData)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrHTTPAPIInvalidResp)
	}

	// Check HTTP status code before attempting to parse JSON
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var authResp APIAuthResponse
		if err := json.Unmarshal(body, &authResp); err == nil && authResp.Message != "" {
			return nil, fmt.Errorf(
				"%w: HTTP %d - %s",
				ErrHTTPAPIAuthFailed,
				resp.StatusCode,
				authResp.Message,
			)
		}
		// Non-JSON or missing message; limit body preview to keep logs sane
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		return nil, fmt.Errorf(
			"%w: HTTP %d - %s",
			ErrHTTPAPIInvalidResp,
			resp.StatusCode,
			bodyPreview,
		)
	}

	var authResp APIAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPAPIInvalidResp, err)
	}

	if !authResp.Success {
		return nil, ErrHTTPAPIAuthFailed
	}

	if authResp.UID == "" {
		return nil, fmt.Errorf(
			"%w: external API returned success=true but missing uid",
			ErrHTTPAPIInvalidResp,
		)
	}

	return &Result{UID: authResp.UID, Email: email}, nil
}

// Name returns provider name for logging
func (p *HTTPAPIProvider) Name() string {
	return "http_api"
}
