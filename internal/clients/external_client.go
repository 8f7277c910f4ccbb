package clients

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"paylink-backend/internal/resolver"
	"paylink-backend/internal/signing"
)

// ExternalClient calls the external chain oracle, which independently
// validates withdrawal destinations against the target network.
type ExternalClient struct {
	httpClient     *http.Client
	host           string
	signer         *signing.Signer
	counterpartyID string
}

// NewExternalClient creates a new external oracle client
func NewExternalClient(host string, timeout time.Duration, signer *signing.Signer, counterpartyID string) *ExternalClient {
	return &ExternalClient{
		httpClient:     &http.Client{Timeout: timeout},
		host:           host,
		signer:         signer,
		counterpartyID: counterpartyID,
	}
}

// CheckAddress asks the oracle to validate a destination for an asset.
// The oracle echoes back its canonical destination and tag; the
// resolver compares them against what the user supplied.
func (c *ExternalClient) CheckAddress(ctx context.Context, chainID, assetID, destination, tag string) (*resolver.CheckedAddress, error) {
	query := url.Values{}
	query.Set("chain", chainID)
	query.Set("asset", assetID)
	query.Set("destination", destination)
	if tag != "" {
		query.Set("tag", tag)
	}
	path := "/external/addresses/check?" + query.Encode()

	var checked resolver.CheckedAddress
	if err := signedRequest(ctx, c.httpClient, c.signer, c.counterpartyID, http.MethodGet, c.host, path, nil, &checked); err != nil {
		return nil, err
	}
	return &checked, nil
}
