package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paylink-backend/internal/models"
)

type fakeWalletStore struct {
	wallets map[string]*models.InternalWallet // keyed by destination
}

func (s *fakeWalletStore) WalletByDestination(ctx context.Context, destination, chainID string) (*models.InternalWallet, error) {
	w := s.wallets[destination]
	if w != nil && w.ChainID != chainID {
		return nil, nil
	}
	return w, nil
}

type fakeAddressBook struct {
	entries map[string]*models.AddressBookEntry // keyed by destination|tag
}

func (s *fakeAddressBook) Entry(ctx context.Context, chainID, destination, tag string) (*models.AddressBookEntry, error) {
	return s.entries[destination+"|"+tag], nil
}

type fakeChecker struct {
	response *CheckedAddress
	err      error
	calls    int
}

func (c *fakeChecker) CheckAddress(ctx context.Context, chainID, assetID, destination, tag string) (*CheckedAddress, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

const (
	testChain = "43d61dcd-e413-450d-80b8-101d5e903357"
	testAsset = "43d61dcd-e413-450d-80b8-101d5e903357"
)

func newTestResolver(wallets *fakeWalletStore, book *fakeAddressBook, checker *fakeChecker) *Resolver {
	if wallets == nil {
		wallets = &fakeWalletStore{}
	}
	if book == nil {
		book = &fakeAddressBook{}
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(wallets, book, checker, logger)
}

func TestResolveInternalWallet(t *testing.T) {
	wallets := &fakeWalletStore{wallets: map[string]*models.InternalWallet{
		"0xabc": {WalletID: "w1", ChainID: testChain, Destination: "0xabc"},
	}}
	checker := &fakeChecker{}
	r := newTestResolver(wallets, nil, checker)

	dest, err := r.Resolve(context.Background(), testChain, testAsset, "0xabc", "")
	require.NoError(t, err)
	assert.Equal(t, KindInternalWallet, dest.Kind)
	assert.Equal(t, "w1", dest.Wallet.WalletID)
	assert.Zero(t, checker.calls, "local match must not hit the oracle")
}

func TestResolveAddressBookEntry(t *testing.T) {
	book := &fakeAddressBook{entries: map[string]*models.AddressBookEntry{
		"rAddr|12345": {AddressID: "a1", ChainID: testChain, Destination: "rAddr", Tag: "12345", Label: "exchange"},
	}}
	checker := &fakeChecker{}
	r := newTestResolver(nil, book, checker)

	dest, err := r.Resolve(context.Background(), testChain, testAsset, "rAddr", "12345")
	require.NoError(t, err)
	assert.Equal(t, KindAddressBookEntry, dest.Kind)
	assert.Equal(t, "exchange", dest.Entry.Label)
	assert.Zero(t, checker.calls)
}

func TestResolveTemporaryAddress(t *testing.T) {
	checker := &fakeChecker{response: &CheckedAddress{Destination: "0xAbC", Tag: ""}}
	r := newTestResolver(nil, nil, checker)

	// Case-insensitive destination equality is accepted.
	dest, err := r.Resolve(context.Background(), testChain, testAsset, "0xabc", "")
	require.NoError(t, err)
	assert.Equal(t, KindTemporaryAddress, dest.Kind)
	assert.Equal(t, "0xAbC", dest.Temporary.Destination)
	assert.Equal(t, 1, checker.calls)
}

func TestResolveMismatchedDestination(t *testing.T) {
	checker := &fakeChecker{response: &CheckedAddress{Destination: "0xabd"}}
	r := newTestResolver(nil, nil, checker)

	_, err := r.Resolve(context.Background(), testChain, testAsset, "0xabc", "")
	assert.ErrorIs(t, err, ErrMismatchedDestination)
}

func TestResolveMismatchedTag(t *testing.T) {
	checker := &fakeChecker{response: &CheckedAddress{Destination: "rAddr", Tag: "999"}}
	r := newTestResolver(nil, nil, checker)

	_, err := r.Resolve(context.Background(), testChain, testAsset, "rAddr", "12345")
	assert.ErrorIs(t, err, ErrMismatchedTag)

	// Absent tags on both sides are equivalent.
	checker.response = &CheckedAddress{Destination: "rAddr", Tag: ""}
	dest, err := r.Resolve(context.Background(), testChain, testAsset, "rAddr", "")
	require.NoError(t, err)
	assert.Equal(t, KindTemporaryAddress, dest.Kind)
}

func TestResolveSkippingTag(t *testing.T) {
	checker := &fakeChecker{response: &CheckedAddress{Destination: "rAddr", Tag: "oracle-tag"}}
	r := newTestResolver(nil, nil, checker)

	dest, err := r.ResolveSkippingTag(context.Background(), testChain, testAsset, "rAddr")
	require.NoError(t, err)
	assert.Equal(t, KindTemporaryAddress, dest.Kind)
	assert.Equal(t, "oracle-tag", dest.Temporary.Tag)
}

func TestResolveOracleError(t *testing.T) {
	oracleErr := errors.New("oracle unavailable")
	checker := &fakeChecker{err: oracleErr}
	r := newTestResolver(nil, nil, checker)

	_, err := r.Resolve(context.Background(), testChain, testAsset, "rAddr", "")
	assert.ErrorIs(t, err, oracleErr)
}
