// Package clients provides HTTP clients for the upstream oracle APIs.
// Every request is authenticated with the per-request signature
// produced by internal/signing; retry policy stays out of this layer.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"paylink-backend/internal/metrics"
	"paylink-backend/internal/signing"
)

// apiError is the error object of the oracle response envelope.
type apiError struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("oracle error %d: %s", e.Code, e.Description)
}

// envelope is the common response wrapper of the oracle APIs.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

// signedRequest performs one signed HTTP call and decodes the data
// field of the response envelope into out.
func signedRequest(
	ctx context.Context,
	httpClient *http.Client,
	signer *signing.Signer,
	counterpartyID string,
	method, host, path string,
	body []byte,
	out interface{},
) error {
	sig, err := signer.Sign(ctx, counterpartyID, method, path, body, false)
	if err != nil {
		return err
	}
	metrics.SignedRequestTotal.WithLabelValues(method).Inc()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, host+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(signing.HeaderSignature, sig.Signature)
	req.Header.Set(signing.HeaderTimestamp, sig.Timestamp)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return env.Error
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
