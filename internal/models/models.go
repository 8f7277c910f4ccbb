package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Token is the canonical record for an asset, resolved from either an
// asset id or a chain-native asset key (contract address or symbol).
type Token struct {
	AssetID   string          `json:"asset_id" gorm:"primaryKey;column:asset_id"`
	ChainID   string          `json:"chain_id" gorm:"column:chain_id;index;not null"`
	Symbol    string          `json:"symbol" gorm:"not null"`
	Name      string          `json:"name"`
	AssetKey  string          `json:"asset_key" gorm:"index"` // contract address for EVM tokens
	Precision int32           `json:"precision" gorm:"not null"`
	USDPrice  decimal.Decimal `json:"usd_price" gorm:"type:numeric"`
	Balance   decimal.Decimal `json:"balance" gorm:"type:numeric"` // spendable balance
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Token
func (Token) TableName() string {
	return "tokens"
}

// InternalWallet is a wallet managed inside this deployment. A transfer
// whose destination matches one of these never leaves the network.
type InternalWallet struct {
	WalletID    string    `json:"wallet_id" gorm:"primaryKey;column:wallet_id"`
	ChainID     string    `json:"chain_id" gorm:"column:chain_id;index;not null"`
	Destination string    `json:"destination" gorm:"index;not null"`
	Label       string    `json:"label"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for InternalWallet
func (InternalWallet) TableName() string {
	return "internal_wallets"
}

// AddressBookEntry is a saved withdrawal address. Entries are keyed by
// (chain id, destination, tag); chains without tags store the empty string.
type AddressBookEntry struct {
	AddressID   string    `json:"address_id" gorm:"primaryKey;column:address_id"`
	ChainID     string    `json:"chain_id" gorm:"column:chain_id;index;not null"`
	Destination string    `json:"destination" gorm:"index;not null"`
	Tag         string    `json:"tag"`
	Label       string    `json:"label"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for AddressBookEntry
func (AddressBookEntry) TableName() string {
	return "address_book_entries"
}
