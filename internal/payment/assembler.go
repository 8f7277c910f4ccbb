package payment

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paylink-backend/internal/models"
	"paylink-backend/internal/numeric"
	"paylink-backend/internal/resolver"
	"paylink-backend/internal/sufficiency"
	"paylink-backend/internal/transferlink"
)

// ErrInvalidAmountPrecision rejects a one-time transfer amount with
// more fractional digits than the token supports.
var ErrInvalidAmountPrecision = errors.New("amount has more fractional digits than the token precision")

// Payment is a fully specified transfer, ready to hand off to the
// chain-specific transfer or withdrawal operation.
type Payment struct {
	TraceID     string                `json:"trace_id"`
	Token       models.Token          `json:"token"`
	Amount      decimal.Decimal       `json:"amount"`
	Memo        string                `json:"memo"`
	Destination *resolver.Destination `json:"destination"`
	Fee         *sufficiency.Requirement `json:"fee,omitempty"`
}

// Result is the assembler outcome. A link that only shares an address
// produces an AddressOnly result for address book creation or send
// screen pre-filling instead of a payment.
type Result struct {
	AddressOnly bool                  `json:"address_only"`
	Payment     *Payment              `json:"payment,omitempty"`
	Destination *resolver.Destination `json:"destination,omitempty"`
}

// Assembler combines a parsed intent, its resolved token and
// destination, and a sufficiency outcome into an executable payment
// description or a structured rejection. It is the single place where
// the chain of typed errors becomes presentable; the error values keep
// their payloads so no detail is collapsed into a string.
type Assembler struct{}

// NewAssembler creates a new Assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble builds the final result. inFlight, when non-nil, is the
// token of an operation the user already started; a link referencing a
// different asset is rejected rather than silently retargeted. outcome
// may be nil for address-only intents.
func (a *Assembler) Assemble(
	intent *transferlink.Intent,
	token models.Token,
	destination *resolver.Destination,
	outcome *sufficiency.Outcome,
	inFlight *models.Token,
) (*Result, error) {
	if inFlight != nil {
		if intent.Amount != nil {
			if token.AssetID != inFlight.AssetID {
				return nil, &MismatchedAssetError{Expected: inFlight.AssetID, Actual: token.AssetID}
			}
		} else if token.ChainID != inFlight.ChainID {
			return nil, &MismatchedAssetError{Expected: inFlight.AssetID, Actual: token.AssetID}
		}
	}

	if intent.Amount == nil {
		return &Result{AddressOnly: true, Destination: destination}, nil
	}

	amount := *intent.Amount
	if intent.NeedsCheckPrecision {
		// The link carried the amount in the token's smallest unit;
		// only now is the token's precision known.
		amount = amount.Shift(-token.Precision)
	}
	if destination != nil && destination.Kind != resolver.KindInternalWallet {
		if !numeric.FitsPrecision(amount, token.Precision) {
			return nil, ErrInvalidAmountPrecision
		}
	}
	if amount.LessThan(numeric.MinimalUnit(token.Precision)) {
		return nil, &AmountTooSmallError{Token: token, Amount: amount}
	}

	if outcome != nil && !outcome.Sufficient {
		return nil, &InsufficiencyError{
			Transfer:   outcome.Transfer,
			Fee:        outcome.Fee,
			Shortfalls: outcome.Shortfalls,
		}
	}

	traceID := intent.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	p := &Payment{
		TraceID:     traceID,
		Token:       token,
		Amount:      amount,
		Memo:        intent.Memo,
		Destination: destination,
	}
	if outcome != nil {
		p.Fee = outcome.Fee
	}
	return &Result{Payment: p, Destination: destination}, nil
}
