// Package repository provides data access interfaces and implementations
package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"paylink-backend/internal/models"
)

// TokenRepository defines the interface for token data access
type TokenRepository interface {
	GetByAssetID(ctx context.Context, assetID string) (*models.Token, error)
	GetByAssetKey(ctx context.Context, assetKey string) (*models.Token, error)
	Save(ctx context.Context, token *models.Token) error
	AvailableBalance(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// tokenRepository implements TokenRepository
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository instance
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// GetByAssetID retrieves a token by asset id; nil when unknown
func (r *tokenRepository) GetByAssetID(ctx context.Context, assetID string) (*models.Token, error) {
	var token models.Token
	err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetByAssetKey retrieves a token by its chain-native asset key
func (r *tokenRepository) GetByAssetKey(ctx context.Context, assetKey string) (*models.Token, error) {
	var token models.Token
	err := r.db.WithContext(ctx).Where("asset_key = ?", assetKey).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Save upserts a token record
func (r *tokenRepository) Save(ctx context.Context, token *models.Token) error {
	return r.db.WithContext(ctx).Save(token).Error
}

// AvailableBalance returns the spendable balance for an asset. An
// unknown asset has a zero balance, not an error.
func (r *tokenRepository) AvailableBalance(ctx context.Context, assetID string) (decimal.Decimal, error) {
	token, err := r.GetByAssetID(ctx, assetID)
	if err != nil {
		return decimal.Zero, err
	}
	if token == nil {
		return decimal.Zero, nil
	}
	return token.Balance, nil
}
