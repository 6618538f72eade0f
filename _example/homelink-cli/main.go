package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var serverURL string

func init() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	serverURL = getEnv("SERVER_URL", "http://localhost:8080")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
}

type deviceListing struct {
	Names     []string `json:"name"`
	DeviceIDs []string `json:"device_id"`
}

func main() {
	fmt.Println("=== HomeLink Skill-Link Flow Demo ===")

	if len(os.Args) < 2 {
		fmt.Println("\nUsage: homelink-cli <authorization-code>")
		fmt.Printf("\nOpen %s/?state=demo in a browser, sign in, and copy the\n", serverURL)
		fmt.Println("code query parameter from the redirect URL.")
		os.Exit(1)
	}
	code := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Step 1: Exchange the authorization code
	fmt.Println("\nStep 1: Exchanging authorization code...")
	token, err := exchange(ctx, url.Values{"code": {code}})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Access Token: %s\n", token.AccessToken)
	fmt.Printf("Token Type: %s, Expires In: %ds\n", token.TokenType, token.ExpiresIn)

	// Step 2: List devices
	fmt.Println("\nStep 2: Listing devices...")
	listing, err := listDevices(ctx, token.AccessToken)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if len(listing.Names) == 0 {
		fmt.Println("No devices found.")
	}
	for i, name := range listing.Names {
		fmt.Printf("  %-20s %s\n", name, listing.DeviceIDs[i])
	}

	// Step 3: Rotate the refresh token
	fmt.Println("\nStep 3: Refreshing tokens...")
	rotated, err := exchange(ctx, url.Values{"refresh_token": {token.RefreshToken}})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("New Access Token: %s\n", rotated.AccessToken)

	// The old refresh token is spent now; prove it
	if _, err := exchange(ctx, url.Values{"refresh_token": {token.RefreshToken}}); err != nil {
		fmt.Println("Old refresh token rejected after rotation, as expected.")
	}

	fmt.Println("\nDone.")
}

func exchange(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		serverURL+"/access-token",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("unexpected response: %s", body)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, token.Error)
	}
	return &token, nil
}

func listDevices(ctx context.Context, accessToken string) (*deviceListing, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		serverURL+"/get_device_details",
		nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	var listing deviceListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}
