package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paylink-backend/internal/clients"
	"paylink-backend/internal/models"
	"paylink-backend/internal/payment"
	"paylink-backend/internal/resolver"
	"paylink-backend/internal/transferlink"
)

const (
	testBTCAssetID  = "c6d0c728-2624-429b-8e0d-d9d19b6592fa"
	testFeeAssetID  = "43d61dcd-e413-450d-80b8-101d5e903357"
	testBTCAddress  = "1BitcoinEaterAddressDontSendf59kuE"
	testWalletOwner = "773e5e77-4107-45c2-b648-8fc722ed77f5"
)

type fakeTokenRepo struct {
	byID    map[string]*models.Token
	saved   []*models.Token
	keyErr  error
	balance map[string]decimal.Decimal
}

func (f *fakeTokenRepo) GetByAssetID(_ context.Context, assetID string) (*models.Token, error) {
	return f.byID[assetID], nil
}

func (f *fakeTokenRepo) GetByAssetKey(_ context.Context, assetKey string) (*models.Token, error) {
	if f.keyErr != nil {
		return nil, f.keyErr
	}
	for _, token := range f.byID {
		if token.AssetKey == assetKey {
			return token, nil
		}
	}
	return nil, nil
}

func (f *fakeTokenRepo) Save(_ context.Context, token *models.Token) error {
	if f.byID == nil {
		f.byID = make(map[string]*models.Token)
	}
	f.byID[token.AssetID] = token
	f.saved = append(f.saved, token)
	return nil
}

func (f *fakeTokenRepo) AvailableBalance(_ context.Context, assetID string) (decimal.Decimal, error) {
	return f.balance[assetID], nil
}

type fakeWalletRepo struct {
	wallet *models.InternalWallet
	entry  *models.AddressBookEntry
}

func (f *fakeWalletRepo) WalletByDestination(_ context.Context, destination, chainID string) (*models.InternalWallet, error) {
	if f.wallet != nil && f.wallet.Destination == destination && f.wallet.ChainID == chainID {
		return f.wallet, nil
	}
	return nil, nil
}

func (f *fakeWalletRepo) AddressBookEntry(_ context.Context, chainID, destination, tag string) (*models.AddressBookEntry, error) {
	if f.entry != nil && f.entry.ChainID == chainID && f.entry.Destination == destination && f.entry.Tag == tag {
		return f.entry, nil
	}
	return nil, nil
}

func (f *fakeWalletRepo) SaveAddressBookEntry(_ context.Context, _ *models.AddressBookEntry) error {
	return nil
}

type fakeAssetSource struct {
	tokens map[string]*models.Token
	calls  int
}

func (f *fakeAssetSource) FetchAsset(_ context.Context, assetID string) (*models.Token, error) {
	f.calls++
	token, ok := f.tokens[assetID]
	if !ok {
		return nil, errors.New("asset not found")
	}
	copied := *token
	return &copied, nil
}

type fakeFeeSource struct {
	fees  []clients.WithdrawFee
	err   error
	calls int
}

func (f *fakeFeeSource) FetchFees(_ context.Context, _, _ string) ([]clients.WithdrawFee, error) {
	f.calls++
	return f.fees, f.err
}

type fakeChecker struct {
	checked *resolver.CheckedAddress
	err     error
}

func (f *fakeChecker) CheckAddress(_ context.Context, _, _, destination, tag string) (*resolver.CheckedAddress, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.checked != nil {
		return f.checked, nil
	}
	return &resolver.CheckedAddress{Destination: destination, Tag: tag}, nil
}

func btcToken(balance string) *models.Token {
	return &models.Token{
		AssetID:   testBTCAssetID,
		ChainID:   testBTCAssetID,
		Symbol:    "BTC",
		Precision: 8,
		Balance:   decimal.RequireFromString(balance),
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(tokens *fakeTokenRepo, wallets *fakeWalletRepo, assets *fakeAssetSource, fees *fakeFeeSource, checker *fakeChecker) *PaymentService {
	return NewPaymentService(tokens, wallets, assets, fees, checker, nil, nil, quietLogger())
}

func TestResolvePaymentFromLink(t *testing.T) {
	token := btcToken("2")
	tokens := &fakeTokenRepo{
		byID:    map[string]*models.Token{testBTCAssetID: token},
		balance: map[string]decimal.Decimal{testBTCAssetID: token.Balance},
	}
	fees := &fakeFeeSource{fees: []clients.WithdrawFee{{AssetID: testBTCAssetID, Amount: "0.0001"}}}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, fees, &fakeChecker{})

	result, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link: "bitcoin:" + testBTCAddress + "?amount=0.5",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Payment)

	assert.False(t, result.AddressOnly)
	assert.Equal(t, testBTCAssetID, result.Payment.Token.AssetID)
	assert.Equal(t, "0.5", result.Payment.Amount.String())
	assert.Equal(t, resolver.KindTemporaryAddress, result.Payment.Destination.Kind)
	require.NotNil(t, result.Payment.Fee)
	assert.Equal(t, "0.0001", result.Payment.Fee.Amount.String())
	assert.NotEmpty(t, result.Payment.TraceID)
	assert.Equal(t, 1, fees.calls)
}

func TestResolvePaymentAddressOnlyLink(t *testing.T) {
	token := btcToken("0")
	tokens := &fakeTokenRepo{byID: map[string]*models.Token{testBTCAssetID: token}}
	fees := &fakeFeeSource{}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, fees, &fakeChecker{})

	result, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link: "bitcoin:" + testBTCAddress,
	})
	require.NoError(t, err)

	assert.True(t, result.AddressOnly)
	assert.Nil(t, result.Payment)
	require.NotNil(t, result.Destination)
	assert.Equal(t, resolver.KindTemporaryAddress, result.Destination.Kind)
	assert.Equal(t, 0, fees.calls, "address-only links need no fee quote")
}

func TestResolvePaymentRawDestinationFallback(t *testing.T) {
	token := btcToken("1")
	tokens := &fakeTokenRepo{
		byID:    map[string]*models.Token{testBTCAssetID: token},
		balance: map[string]decimal.Decimal{testBTCAssetID: token.Balance},
	}
	fees := &fakeFeeSource{fees: []clients.WithdrawFee{{AssetID: testBTCAssetID, Amount: "0.0001"}}}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, fees, &fakeChecker{})

	result, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link:    testBTCAddress,
		AssetID: testBTCAssetID,
		Amount:  "0.25",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, "0.25", result.Payment.Amount.String())
}

func TestResolvePaymentRawDestinationWithoutAssetFails(t *testing.T) {
	svc := newTestService(&fakeTokenRepo{}, &fakeWalletRepo{}, &fakeAssetSource{}, &fakeFeeSource{}, &fakeChecker{})

	_, err := svc.ResolvePayment(context.Background(), ResolveParams{Link: testBTCAddress})
	assert.ErrorIs(t, err, transferlink.ErrNotTransferLink)
}

func TestResolvePaymentMissingInput(t *testing.T) {
	svc := newTestService(&fakeTokenRepo{}, &fakeWalletRepo{}, &fakeAssetSource{}, &fakeFeeSource{}, &fakeChecker{})

	_, err := svc.ResolvePayment(context.Background(), ResolveParams{AssetID: testBTCAssetID})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestResolvePaymentInternalTransferSkipsOracle(t *testing.T) {
	token := btcToken("5")
	tokens := &fakeTokenRepo{
		byID:    map[string]*models.Token{testBTCAssetID: token},
		balance: map[string]decimal.Decimal{testBTCAssetID: token.Balance},
	}
	fees := &fakeFeeSource{}
	checker := &fakeChecker{err: errors.New("oracle must not be called")}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, fees, checker)

	link := "paylink://transfer?recipient=" + testWalletOwner + "&asset=" + testBTCAssetID + "&amount=1&memo=rent"
	result, err := svc.ResolvePayment(context.Background(), ResolveParams{Link: link})
	require.NoError(t, err)
	require.NotNil(t, result.Payment)

	assert.Equal(t, resolver.KindInternalWallet, result.Payment.Destination.Kind)
	assert.Equal(t, testWalletOwner, result.Payment.Destination.Wallet.WalletID)
	assert.Equal(t, "rent", result.Payment.Memo)
	assert.Nil(t, result.Payment.Fee, "in-network transfers carry no withdrawal fee")
	assert.Equal(t, 0, fees.calls)
}

func TestResolvePaymentSyncsUnknownToken(t *testing.T) {
	remote := btcToken("0")
	tokens := &fakeTokenRepo{balance: map[string]decimal.Decimal{testBTCAssetID: decimal.NewFromInt(3)}}
	assets := &fakeAssetSource{tokens: map[string]*models.Token{testBTCAssetID: remote}}
	fees := &fakeFeeSource{fees: []clients.WithdrawFee{{AssetID: testBTCAssetID, Amount: "0.0001"}}}
	svc := newTestService(tokens, &fakeWalletRepo{}, assets, fees, &fakeChecker{})

	result, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link: "bitcoin:" + testBTCAddress + "?amount=0.5",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Payment)
	assert.Equal(t, 1, assets.calls)
	require.Len(t, tokens.saved, 1)
	assert.Equal(t, testBTCAssetID, tokens.saved[0].AssetID)
}

func TestResolvePaymentInsufficientBalance(t *testing.T) {
	token := btcToken("0.4")
	tokens := &fakeTokenRepo{
		byID:    map[string]*models.Token{testBTCAssetID: token},
		balance: map[string]decimal.Decimal{testBTCAssetID: token.Balance},
	}
	fees := &fakeFeeSource{fees: []clients.WithdrawFee{{AssetID: testBTCAssetID, Amount: "0.0001"}}}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, fees, &fakeChecker{})

	_, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link: "bitcoin:" + testBTCAddress + "?amount=0.5",
	})

	var insufficient *payment.InsufficiencyError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortfalls, 1)
	assert.Equal(t, testBTCAssetID, insufficient.Shortfalls[0].Token.AssetID)
}

func TestResolvePaymentFeeInOtherAsset(t *testing.T) {
	token := btcToken("1")
	feeToken := &models.Token{AssetID: testFeeAssetID, ChainID: testFeeAssetID, Symbol: "ETH", Precision: 8}
	tokens := &fakeTokenRepo{
		byID: map[string]*models.Token{testBTCAssetID: token, testFeeAssetID: feeToken},
		balance: map[string]decimal.Decimal{
			testBTCAssetID: decimal.NewFromInt(1),
			testFeeAssetID: decimal.RequireFromString("0.01"),
		},
	}
	fees := &fakeFeeSource{fees: []clients.WithdrawFee{{AssetID: testFeeAssetID, Amount: "0.005"}}}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, fees, &fakeChecker{})

	result, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link: "bitcoin:" + testBTCAddress + "?amount=1",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Payment.Fee)
	assert.Equal(t, testFeeAssetID, result.Payment.Fee.Token.AssetID)
}

func TestResolvePaymentDestinationMismatch(t *testing.T) {
	token := btcToken("1")
	tokens := &fakeTokenRepo{byID: map[string]*models.Token{testBTCAssetID: token}}
	checker := &fakeChecker{checked: &resolver.CheckedAddress{Destination: "somewhere-else"}}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, &fakeFeeSource{}, checker)

	_, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link: "bitcoin:" + testBTCAddress,
	})
	assert.ErrorIs(t, err, resolver.ErrMismatchedDestination)
}

func TestResolvePaymentInFlightAssetMismatch(t *testing.T) {
	token := btcToken("2")
	other := &models.Token{AssetID: testFeeAssetID, ChainID: testFeeAssetID, Symbol: "ETH", Precision: 8}
	tokens := &fakeTokenRepo{
		byID:    map[string]*models.Token{testBTCAssetID: token, testFeeAssetID: other},
		balance: map[string]decimal.Decimal{testBTCAssetID: token.Balance},
	}
	fees := &fakeFeeSource{fees: []clients.WithdrawFee{{AssetID: testBTCAssetID, Amount: "0.0001"}}}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, fees, &fakeChecker{})

	_, err := svc.ResolvePayment(context.Background(), ResolveParams{
		Link:            "bitcoin:" + testBTCAddress + "?amount=0.5",
		InFlightAssetID: testFeeAssetID,
	})

	var mismatch *payment.MismatchedAssetError
	assert.ErrorAs(t, err, &mismatch)
}

func TestValidateAddressFindsInternalWallet(t *testing.T) {
	wallets := &fakeWalletRepo{wallet: &models.InternalWallet{
		WalletID:    testWalletOwner,
		ChainID:     testBTCAssetID,
		Destination: testBTCAddress,
	}}
	svc := newTestService(&fakeTokenRepo{}, wallets, &fakeAssetSource{}, &fakeFeeSource{}, &fakeChecker{})

	dest, err := svc.ValidateAddress(context.Background(), testBTCAssetID, testBTCAssetID, testBTCAddress, "", false)
	require.NoError(t, err)
	assert.Equal(t, resolver.KindInternalWallet, dest.Kind)
	assert.Equal(t, testWalletOwner, dest.Wallet.WalletID)
}

func TestParseLinkUsesLocalAssetKeys(t *testing.T) {
	usdc := &models.Token{
		AssetID:  "9b180ab6-6abe-3dc0-a13f-04169eb34bfa",
		ChainID:  testFeeAssetID,
		Symbol:   "USDC",
		AssetKey: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
	}
	tokens := &fakeTokenRepo{byID: map[string]*models.Token{usdc.AssetID: usdc}}
	svc := newTestService(tokens, &fakeWalletRepo{}, &fakeAssetSource{}, &fakeFeeSource{}, &fakeChecker{})

	intent, err := svc.ParseLink(context.Background(), "ethereum:0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48@1/transfer?address=0x1b649b21C1813EB50e82a46F2A2125C4333b8B32&amount=5")
	require.NoError(t, err)
	assert.Equal(t, usdc.AssetID, intent.AssetID)
	assert.Equal(t, "5", intent.Amount.String())
}
