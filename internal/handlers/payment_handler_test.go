package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paylink-backend/internal/clients"
	"paylink-backend/internal/models"
	"paylink-backend/internal/resolver"
	"paylink-backend/internal/services"
)

const (
	testBTCAssetID = "c6d0c728-2624-429b-8e0d-d9d19b6592fa"
	testBTCAddress = "1BitcoinEaterAddressDontSendf59kuE"
)

type stubTokenRepo struct {
	token *models.Token
}

func (s *stubTokenRepo) GetByAssetID(_ context.Context, assetID string) (*models.Token, error) {
	if s.token != nil && s.token.AssetID == assetID {
		return s.token, nil
	}
	return nil, nil
}

func (s *stubTokenRepo) GetByAssetKey(_ context.Context, _ string) (*models.Token, error) {
	return nil, nil
}

func (s *stubTokenRepo) Save(_ context.Context, _ *models.Token) error { return nil }

func (s *stubTokenRepo) AvailableBalance(_ context.Context, assetID string) (decimal.Decimal, error) {
	if s.token != nil && s.token.AssetID == assetID {
		return s.token.Balance, nil
	}
	return decimal.Zero, nil
}

type stubWalletRepo struct{}

func (stubWalletRepo) WalletByDestination(_ context.Context, _, _ string) (*models.InternalWallet, error) {
	return nil, nil
}

func (stubWalletRepo) AddressBookEntry(_ context.Context, _, _, _ string) (*models.AddressBookEntry, error) {
	return nil, nil
}

func (stubWalletRepo) SaveAddressBookEntry(_ context.Context, _ *models.AddressBookEntry) error {
	return nil
}

type stubAssetSource struct{}

func (stubAssetSource) FetchAsset(_ context.Context, _ string) (*models.Token, error) {
	return nil, context.DeadlineExceeded
}

type stubFeeSource struct {
	fees []clients.WithdrawFee
}

func (s stubFeeSource) FetchFees(_ context.Context, _, _ string) ([]clients.WithdrawFee, error) {
	return s.fees, nil
}

type echoChecker struct{}

func (echoChecker) CheckAddress(_ context.Context, _, _, destination, tag string) (*resolver.CheckedAddress, error) {
	return &resolver.CheckedAddress{Destination: destination, Tag: tag}, nil
}

func testRouter(balance string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tokens := &stubTokenRepo{token: &models.Token{
		AssetID:   testBTCAssetID,
		ChainID:   testBTCAssetID,
		Symbol:    "BTC",
		Precision: 8,
		Balance:   decimal.RequireFromString(balance),
	}}
	svc := services.NewPaymentService(
		tokens, stubWalletRepo{}, stubAssetSource{},
		stubFeeSource{fees: []clients.WithdrawFee{{AssetID: testBTCAssetID, Amount: "0.0001"}}},
		echoChecker{}, nil, nil, logger,
	)
	handler := NewPaymentHandler(svc)

	r := gin.New()
	r.POST("/payments/parse", handler.ParseLinkHandler)
	r.POST("/payments/resolve", handler.ResolvePaymentHandler)
	r.POST("/addresses/validate", handler.ValidateAddressHandler)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestParseLinkHandlerOK(t *testing.T) {
	r := testRouter("1")
	w := postJSON(t, r, "/payments/parse", `{"link":"bitcoin:`+testBTCAddress+`?amount=0.5"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testBTCAssetID)
	assert.Contains(t, w.Body.String(), `"amount":"0.5"`)
}

func TestParseLinkHandlerRejectsNonLink(t *testing.T) {
	r := testRouter("1")
	w := postJSON(t, r, "/payments/parse", `{"link":"`+testBTCAddress+`"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_TRANSFER_LINK")
}

func TestParseLinkHandlerRequiresBody(t *testing.T) {
	r := testRouter("1")
	w := postJSON(t, r, "/payments/parse", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolvePaymentHandlerOK(t *testing.T) {
	r := testRouter("1")
	w := postJSON(t, r, "/payments/resolve", `{"link":"bitcoin:`+testBTCAddress+`?amount=0.5"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trace_id"`)
	assert.Contains(t, w.Body.String(), `"address_only":false`)
}

func TestResolvePaymentHandlerInsufficientBalance(t *testing.T) {
	r := testRouter("0.1")
	w := postJSON(t, r, "/payments/resolve", `{"link":"bitcoin:`+testBTCAddress+`?amount=0.5"}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_BALANCE")
	assert.Contains(t, w.Body.String(), `"required":"0.5001"`)
}

func TestValidateAddressHandlerTemporary(t *testing.T) {
	r := testRouter("1")
	w := postJSON(t, r, "/addresses/validate",
		`{"chain_id":"`+testBTCAssetID+`","asset_id":"`+testBTCAssetID+`","destination":"`+testBTCAddress+`"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"temporary"`)
}
