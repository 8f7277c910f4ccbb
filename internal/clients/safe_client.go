package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"paylink-backend/internal/models"
	"paylink-backend/internal/signing"
)

// WithdrawFee is one fee candidate offered by the fee oracle, in the
// oracle's preference order.
type WithdrawFee struct {
	AssetID string `json:"asset_id"`
	Amount  string `json:"amount"`
}

// assetResponse is the wire form of a token record.
type assetResponse struct {
	AssetID   string `json:"asset_id"`
	ChainID   string `json:"chain_id"`
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	AssetKey  string `json:"asset_key"`
	Precision int32  `json:"precision"`
	PriceUSD  string `json:"price_usd"`
}

// SafeClient calls the asset/fee oracle.
type SafeClient struct {
	httpClient     *http.Client
	host           string
	signer         *signing.Signer
	counterpartyID string
}

// NewSafeClient creates a new asset/fee oracle client
func NewSafeClient(host string, timeout time.Duration, signer *signing.Signer, counterpartyID string) *SafeClient {
	return &SafeClient{
		httpClient:     &http.Client{Timeout: timeout},
		host:           host,
		signer:         signer,
		counterpartyID: counterpartyID,
	}
}

// FetchAsset retrieves the canonical token record for an asset id.
func (c *SafeClient) FetchAsset(ctx context.Context, assetID string) (*models.Token, error) {
	var asset assetResponse
	path := "/safe/assets/" + url.PathEscape(assetID)
	if err := signedRequest(ctx, c.httpClient, c.signer, c.counterpartyID, http.MethodGet, c.host, path, nil, &asset); err != nil {
		return nil, err
	}

	price := decimal.Zero
	if asset.PriceUSD != "" {
		parsed, err := decimal.NewFromString(asset.PriceUSD)
		if err != nil {
			return nil, fmt.Errorf("invalid usd price %q for asset %s", asset.PriceUSD, assetID)
		}
		price = parsed
	}
	return &models.Token{
		AssetID:   asset.AssetID,
		ChainID:   asset.ChainID,
		Symbol:    asset.Symbol,
		Name:      asset.Name,
		AssetKey:  asset.AssetKey,
		Precision: asset.Precision,
		USDPrice:  price,
	}, nil
}

// FetchFees retrieves the ordered fee candidates for withdrawing an
// asset to a destination. Order is the oracle's preference; callers
// must not re-sort it.
func (c *SafeClient) FetchFees(ctx context.Context, assetID, destination string) ([]WithdrawFee, error) {
	query := url.Values{}
	query.Set("destination", destination)
	path := "/safe/assets/" + url.PathEscape(assetID) + "/fees?" + query.Encode()

	var fees []WithdrawFee
	if err := signedRequest(ctx, c.httpClient, c.signer, c.counterpartyID, http.MethodGet, c.host, path, nil, &fees); err != nil {
		return nil, err
	}
	return fees, nil
}
