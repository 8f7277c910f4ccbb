package sufficiency

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"paylink-backend/internal/models"
)

// Requirement is an amount of a specific token that must be available
// for an operation to proceed. Requirements on the same token merge by
// summing their amounts.
type Requirement struct {
	Token  models.Token
	Amount decimal.Decimal
}

// BalanceSource reports the spendable balance for a token. Balances
// are read fresh per evaluation; they are never cached here since fees
// and balances are time-sensitive.
type BalanceSource interface {
	AvailableBalance(ctx context.Context, token models.Token) (decimal.Decimal, error)
}

// Outcome is the result of a sufficiency evaluation. When Sufficient
// is false, Fee is the oracle's first candidate (not the cheapest
// shortfall) and Shortfalls lists every token that came up short.
type Outcome struct {
	Sufficient bool
	Transfer   Requirement
	Fee        *Requirement
	Shortfalls []Requirement
}

// Engine decides whether a transfer plus one of the candidate network
// fees fits into the available balances.
type Engine struct {
	balances BalanceSource
}

// NewEngine creates a new Engine
func NewEngine(balances BalanceSource) *Engine {
	return &Engine{balances: balances}
}

// Evaluate walks feeCandidates in oracle-provided order and accepts
// the first candidate whose merged requirement set is fully covered.
// When the fee token equals the transfer token the two amounts compete
// for the same funding source and are summed before comparison; all
// comparisons are exact decimal, no epsilon.
func (e *Engine) Evaluate(ctx context.Context, transfer Requirement, feeCandidates []Requirement) (*Outcome, error) {
	for i := range feeCandidates {
		fee := feeCandidates[i]
		shortfalls, err := e.shortfalls(ctx, merge(transfer, fee))
		if err != nil {
			return nil, err
		}
		if len(shortfalls) == 0 {
			return &Outcome{
				Sufficient: true,
				Transfer:   transfer,
				Fee:        &fee,
			}, nil
		}
	}

	// None qualified. Report against the first candidate so the user
	// sees the fee the oracle would have preferred.
	outcome := &Outcome{Sufficient: false, Transfer: transfer}
	if len(feeCandidates) > 0 {
		first := feeCandidates[0]
		outcome.Fee = &first
		shortfalls, err := e.shortfalls(ctx, merge(transfer, first))
		if err != nil {
			return nil, err
		}
		outcome.Shortfalls = shortfalls
	} else {
		shortfalls, err := e.shortfalls(ctx, []Requirement{transfer})
		if err != nil {
			return nil, err
		}
		if len(shortfalls) == 0 {
			return &Outcome{Sufficient: true, Transfer: transfer}, nil
		}
		outcome.Shortfalls = shortfalls
	}
	return outcome, nil
}

// merge combines the transfer requirement with a fee candidate,
// summing amounts when both draw on the same token.
func merge(transfer, fee Requirement) []Requirement {
	if transfer.Token.AssetID == fee.Token.AssetID {
		return []Requirement{{
			Token:  transfer.Token,
			Amount: transfer.Amount.Add(fee.Amount),
		}}
	}
	return []Requirement{transfer, fee}
}

// shortfalls returns a requirement for every token whose available
// balance does not cover the merged amount.
func (e *Engine) shortfalls(ctx context.Context, requirements []Requirement) ([]Requirement, error) {
	var short []Requirement
	for _, req := range requirements {
		available, err := e.balances.AvailableBalance(ctx, req.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to read balance of %s: %w", req.Token.AssetID, err)
		}
		if available.LessThan(req.Amount) {
			short = append(short, req)
		}
	}
	return short, nil
}
