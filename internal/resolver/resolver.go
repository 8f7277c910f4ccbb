package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"paylink-backend/internal/models"
)

// Resolution errors. A mismatch between what the caller supplied and
// what the check-address oracle echoed back is always terminal; the
// oracle's value is never silently substituted, since that could
// redirect funds.
var (
	ErrMismatchedDestination = errors.New("destination does not match checked address")
	ErrMismatchedTag         = errors.New("tag does not match checked address")
)

// WalletStore looks up wallets managed inside this deployment.
type WalletStore interface {
	WalletByDestination(ctx context.Context, destination, chainID string) (*models.InternalWallet, error)
}

// AddressBookStore looks up saved withdrawal addresses.
type AddressBookStore interface {
	Entry(ctx context.Context, chainID, destination, tag string) (*models.AddressBookEntry, error)
}

// CheckedAddress is the canonical destination and tag echoed back by
// the remote check-address oracle.
type CheckedAddress struct {
	Destination string `json:"destination"`
	Tag         string `json:"tag"`
}

// AddressChecker validates a destination against the remote oracle.
type AddressChecker interface {
	CheckAddress(ctx context.Context, chainID, assetID, destination, tag string) (*CheckedAddress, error)
}

// Kind discriminates the resolved destination variants.
type Kind string

const (
	KindInternalWallet   Kind = "internal_wallet"
	KindAddressBookEntry Kind = "address_book"
	KindTemporaryAddress Kind = "temporary"
)

// Destination is the outcome of resolving a destination string.
// Exactly one of Wallet, Entry or Temporary is set, per Kind.
type Destination struct {
	Kind      Kind
	Wallet    *models.InternalWallet
	Entry     *models.AddressBookEntry
	Temporary *CheckedAddress
}

// Resolver classifies a destination as an internal wallet, an address
// book entry, or a temporary one-time address. Local lookups run first;
// the remote oracle is only consulted when no local record matches.
type Resolver struct {
	wallets     WalletStore
	addressBook AddressBookStore
	checker     AddressChecker
	logger      *logrus.Logger
}

// NewResolver creates a new Resolver
func NewResolver(wallets WalletStore, addressBook AddressBookStore, checker AddressChecker, logger *logrus.Logger) *Resolver {
	return &Resolver{
		wallets:     wallets,
		addressBook: addressBook,
		checker:     checker,
		logger:      logger,
	}
}

// Resolve validates destination and tag for a withdrawal on chainID.
// The oracle's echoed destination must equal ours case-insensitively
// and the tag exactly (nil and empty are equivalent); any mismatch
// fails closed.
func (r *Resolver) Resolve(ctx context.Context, chainID, assetID, destination, tag string) (*Destination, error) {
	return r.resolve(ctx, chainID, assetID, destination, tag, false)
}

// ResolveSkippingTag performs only the destination equality check,
// for flows that collect the tag in a later step.
func (r *Resolver) ResolveSkippingTag(ctx context.Context, chainID, assetID, destination string) (*Destination, error) {
	return r.resolve(ctx, chainID, assetID, destination, "", true)
}

func (r *Resolver) resolve(ctx context.Context, chainID, assetID, destination, tag string, skipTag bool) (*Destination, error) {
	wallet, err := r.wallets.WalletByDestination(ctx, destination, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up internal wallet: %w", err)
	}
	if wallet != nil {
		return &Destination{Kind: KindInternalWallet, Wallet: wallet}, nil
	}

	entry, err := r.addressBook.Entry(ctx, chainID, destination, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to look up address book: %w", err)
	}
	if entry != nil {
		return &Destination{Kind: KindAddressBookEntry, Entry: entry}, nil
	}

	checked, err := r.checker.CheckAddress(ctx, chainID, assetID, destination, tag)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(destination, checked.Destination) {
		r.logger.WithFields(logrus.Fields{
			"chain_id":    chainID,
			"destination": destination,
		}).Warn("Check-address oracle returned a different destination")
		return nil, ErrMismatchedDestination
	}
	if !skipTag && tag != checked.Tag {
		r.logger.WithFields(logrus.Fields{
			"chain_id":    chainID,
			"destination": destination,
		}).Warn("Check-address oracle returned a different tag")
		return nil, ErrMismatchedTag
	}

	return &Destination{Kind: KindTemporaryAddress, Temporary: checked}, nil
}
