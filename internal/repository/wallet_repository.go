package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"paylink-backend/internal/models"
)

// WalletRepository defines the interface for internal wallet and
// address book data access
type WalletRepository interface {
	WalletByDestination(ctx context.Context, destination, chainID string) (*models.InternalWallet, error)
	AddressBookEntry(ctx context.Context, chainID, destination, tag string) (*models.AddressBookEntry, error)
	SaveAddressBookEntry(ctx context.Context, entry *models.AddressBookEntry) error
}

// walletRepository implements WalletRepository
type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new WalletRepository instance
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

// WalletByDestination finds an internal wallet whose chain address on
// chainID equals destination; nil when no wallet matches
func (r *walletRepository) WalletByDestination(ctx context.Context, destination, chainID string) (*models.InternalWallet, error) {
	var wallet models.InternalWallet
	err := r.db.WithContext(ctx).
		Where("destination = ? AND chain_id = ?", destination, chainID).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// AddressBookEntry finds a saved address keyed by chain, destination
// and tag; chains without tags store the empty string
func (r *walletRepository) AddressBookEntry(ctx context.Context, chainID, destination, tag string) (*models.AddressBookEntry, error) {
	var entry models.AddressBookEntry
	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND destination = ? AND tag = ?", chainID, destination, tag).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveAddressBookEntry upserts an address book entry
func (r *walletRepository) SaveAddressBookEntry(ctx context.Context, entry *models.AddressBookEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}
