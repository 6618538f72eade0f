package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-homelink/homelink/internal/client"
	"github.com/go-homelink/homelink/internal/config"
)

// httpAPIConfig creates a config for testing with retries disabled
func httpAPIConfig(url string) *config.Config {
	return &config.Config{
		HTTPAPIURL:        url,
		HTTPAPITimeout:    10 * time.Second,
		HTTPAPIAuthMode:   "none",
		HTTPAPIAuthHeader: "X-API-Secret",
		HTTPAPIMaxRetries: 0, // predictable test behavior
	}
}

func createTestProvider(t *testing.T, cfg *config.Config) *HTTPAPIProvider {
	t.Helper()
	retryClient, err := client.CreateRetryClient(
		cfg.HTTPAPIAuthMode,
		cfg.HTTPAPIAuthSecret,
		cfg.HTTPAPITimeout,
		cfg.HTTPAPIInsecureSkipVerify,
		cfg.HTTPAPIMaxRetries,
		cfg.HTTPAPIRetryDelay,
		cfg.HTTPAPIMaxRetryDelay,
		cfg.HTTPAPIAuthHeader,
	)
	require.NoError(t, err)
	return NewHTTPAPIProvider(cfg, retryClient)
}

func TestHTTPAPIProvider_Authenticate_Success(t *testing.T) {
	// Mock external identity service
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req APIAuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user@example.com", req.Email)
		assert.Equal(t, "password123", req.Password)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(APIAuthResponse{
			Success: true,
			UID:     "ext-user-123",
		})
	}))
	defer server.Close()

	provider := createTestProvider(t, httpAPIConfig(server.URL))
	result, err := provider.Authenticate(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	assert.Equal(t, "ext-user-123", result.UID)
	assert.Equal(t, "user@example.com", result.Email)
}

func TestHTTPAPIProvider_Authenticate_MissingUID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(APIAuthResponse{Success: true})
	}))
	defer server.Close()

	provider := createTestProvider(t, httpAPIConfig(server.URL))
	result, err := provider.Authenticate(context.Background(), "user@example.com", "pw")

	assert.ErrorIs(t, err, ErrHTTPAPIInvalidResp)
	assert.Nil(t, result)
}

func TestHTTPAPIProvider_Authenticate_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(APIAuthResponse{
			Success: false,
			Message: "bad credentials",
		})
	}))
	defer server.Close()

	provider := createTestProvider(t, httpAPIConfig(server.URL))
	_, err := provider.Authenticate(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrHTTPAPIAuthFailed)
}

func TestHTTPAPIProvider_Authenticate_HTTPErrorWithMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(APIAuthResponse{
			Success: false,
			Message: "account locked",
		})
	}))
	defer server.Close()

	provider := createTestProvider(t, httpAPIConfig(server.URL))
	_, err := provider.Authenticate(context.Background(), "user@example.com", "pw")

	require.ErrorIs(t, err, ErrHTTPAPIAuthFailed)
	assert.Contains(t, err.Error(), "account locked")
}

func TestHTTPAPIProvider_Authenticate_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html>not here</html>"))
	}))
	defer server.Close()

	provider := createTestProvider(t, httpAPIConfig(server.URL))
	_, err := provider.Authenticate(context.Background(), "user@example.com", "pw")

	require.ErrorIs(t, err, ErrHTTPAPIInvalidResp)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPAPIProvider_Authenticate_ConnectionError(t *testing.T) {
	// Closed server: connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	provider := createTestProvider(t, httpAPIConfig(serverURL))
	_, err := provider.Authenticate(context.Background(), "user@example.com", "pw")
	assert.ErrorIs(t, err, ErrHTTPAPIConnection)
}

func TestHTTPAPIProvider_Name(t *testing.T) {
	provider := createTestProvider(t, httpAPIConfig("http://localhost:0"))
	assert.Equal(t, "http_api", provider.Name())
}
