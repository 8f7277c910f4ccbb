package clients

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SessionClient fetches counterparty session public keys. These calls
// are what bootstrap request signing, so they are the one client that
// goes out unsigned.
type SessionClient struct {
	httpClient *http.Client
	host       string
}

// NewSessionClient creates a new session key client
func NewSessionClient(host string, timeout time.Duration) *SessionClient {
	return &SessionClient{
		httpClient: &http.Client{Timeout: timeout},
		host:       host,
	}
}

// FetchPublicKey retrieves the Ed25519 public key of a counterparty.
func (c *SessionClient) FetchPublicKey(ctx context.Context, userID string) (ed25519.PublicKey, error) {
	path := "/sessions/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env struct {
		Data struct {
			UserID    string `json:"user_id"`
			PublicKey string `json:"public_key"`
		} `json:"data"`
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return nil, env.Error
	}

	key, err := base64.RawURLEncoding.DecodeString(env.Data.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("malformed public key for %s: %w", userID, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key for %s has %d bytes, want %d", userID, len(key), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(key), nil
}
