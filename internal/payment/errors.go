package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paylink-backend/internal/models"
	"paylink-backend/internal/sufficiency"
)

// AmountTooSmallError rejects an amount below the token's minimal
// representable unit (10^-precision).
type AmountTooSmallError struct {
	Token  models.Token
	Amount decimal.Decimal
}

func (e *AmountTooSmallError) Error() string {
	return fmt.Sprintf("amount %s is below the minimal unit of %s", e.Amount, e.Token.Symbol)
}

// MismatchedAssetError rejects a link whose asset differs from the
// token of the operation already in flight.
type MismatchedAssetError struct {
	Expected string // asset id of the in-flight operation
	Actual   string // asset id carried by the link
}

func (e *MismatchedAssetError) Error() string {
	return fmt.Sprintf("link asset %s does not match in-flight asset %s", e.Actual, e.Expected)
}

// InsufficiencyError carries both requirement objects so the caller
// can tell the user which token was short and by how much, instead of
// a generic insufficient-funds message.
type InsufficiencyError struct {
	Transfer   sufficiency.Requirement
	Fee        *sufficiency.Requirement
	Shortfalls []sufficiency.Requirement
}

func (e *InsufficiencyError) Error() string {
	if len(e.Shortfalls) > 0 {
		s := e.Shortfalls[0]
		return fmt.Sprintf("insufficient balance: %s %s required", s.Amount, s.Token.Symbol)
	}
	return "insufficient balance"
}
