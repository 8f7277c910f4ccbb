// Package services orchestrates the payment resolution pipeline:
// link parsing, token sync, destination resolution, fee sufficiency
// and final assembly.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"paylink-backend/internal/clients"
	"paylink-backend/internal/events"
	"paylink-backend/internal/metrics"
	"paylink-backend/internal/models"
	"paylink-backend/internal/numeric"
	"paylink-backend/internal/payment"
	"paylink-backend/internal/repository"
	"paylink-backend/internal/resolver"
	"paylink-backend/internal/sufficiency"
	"paylink-backend/internal/transferlink"
)

// Service errors.
var (
	// ErrMissingInput rejects a resolution request that carries neither
	// a link nor an asset and destination pair.
	ErrMissingInput = errors.New("either a link or an asset id and destination are required")

	// ErrInternalDestination rejects saving an internal wallet address
	// into the address book.
	ErrInternalDestination = errors.New("destination belongs to an internal wallet")
)

// AssetSource fetches canonical token records from the asset oracle.
type AssetSource interface {
	FetchAsset(ctx context.Context, assetID string) (*models.Token, error)
}

// FeeSource lists the ordered fee candidates for a withdrawal.
type FeeSource interface {
	FetchFees(ctx context.Context, assetID, destination string) ([]clients.WithdrawFee, error)
}

// addressBookStore adapts WalletRepository to resolver.AddressBookStore.
type addressBookStore struct {
	repo repository.WalletRepository
}

func (s addressBookStore) Entry(ctx context.Context, chainID, destination, tag string) (*models.AddressBookEntry, error) {
	return s.repo.AddressBookEntry(ctx, chainID, destination, tag)
}

// balanceSource adapts TokenRepository to sufficiency.BalanceSource.
type balanceSource struct {
	tokens repository.TokenRepository
}

func (b balanceSource) AvailableBalance(ctx context.Context, token models.Token) (decimal.Decimal, error) {
	return b.tokens.AvailableBalance(ctx, token.AssetID)
}

// ResolveParams carries one payment resolution request. Link takes
// priority; when it does not parse as a transfer link and AssetID is
// set, the link text is treated as a raw destination instead.
type ResolveParams struct {
	Link            string
	AssetID         string
	Destination     string
	Tag             string
	Amount          string
	Memo            string
	SkipTagCheck    bool
	InFlightAssetID string
}

// PaymentService drives a payment from user input to an executable
// payment description or a structured rejection.
type PaymentService struct {
	tokens    repository.TokenRepository
	wallets   repository.WalletRepository
	assets    AssetSource
	fees      FeeSource
	resolver  *resolver.Resolver
	engine    *sufficiency.Engine
	assembler *payment.Assembler
	publisher *events.Publisher
	hub       *EventHub
	logger    *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	tokens repository.TokenRepository,
	wallets repository.WalletRepository,
	assets AssetSource,
	fees FeeSource,
	checker resolver.AddressChecker,
	publisher *events.Publisher,
	hub *EventHub,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		tokens:    tokens,
		wallets:   wallets,
		assets:    assets,
		fees:      fees,
		resolver:  resolver.NewResolver(wallets, addressBookStore{repo: wallets}, checker, logger),
		engine:    sufficiency.NewEngine(balanceSource{tokens: tokens}),
		assembler: payment.NewAssembler(),
		publisher: publisher,
		hub:       hub,
		logger:    logger,
	}
}

// ParseLink parses a transfer link without resolving it further.
func (s *PaymentService) ParseLink(ctx context.Context, link string) (*transferlink.Intent, error) {
	intent, err := transferlink.Parse(link, s.assetKeyFinder(ctx))
	switch {
	case err == nil:
		metrics.TransferLinkParseTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, transferlink.ErrNotTransferLink):
		metrics.TransferLinkParseTotal.WithLabelValues("not_transfer_link").Inc()
	default:
		metrics.TransferLinkParseTotal.WithLabelValues("invalid").Inc()
		s.logger.WithError(err).WithField("link", link).Warn("Rejected transfer link")
	}
	return intent, err
}

// assetKeyFinder looks up locally known tokens by their chain-native
// asset key. Lookup failures read as unknown keys.
func (s *PaymentService) assetKeyFinder(ctx context.Context) transferlink.AssetKeyFinder {
	return func(assetKey string) (string, bool) {
		// EVM contract addresses are stored lowercase.
		token, err := s.tokens.GetByAssetKey(ctx, strings.ToLower(assetKey))
		if err != nil {
			s.logger.WithError(err).WithField("asset_key", assetKey).Error("Failed to look up asset key")
			return "", false
		}
		if token == nil {
			return "", false
		}
		return token.AssetID, true
	}
}

// SyncToken returns the token record for an asset id, fetching and
// persisting it from the asset oracle when it is not yet known locally.
func (s *PaymentService) SyncToken(ctx context.Context, assetID string) (*models.Token, error) {
	token, err := s.tokens.GetByAssetID(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token %s: %w", assetID, err)
	}
	if token != nil {
		return token, nil
	}

	fetched, err := s.assets.FetchAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %s: %w", assetID, err)
	}
	if err := s.tokens.Save(ctx, fetched); err != nil {
		return nil, fmt.Errorf("failed to save token %s: %w", assetID, err)
	}
	s.logger.WithFields(logrus.Fields{
		"asset_id": fetched.AssetID,
		"symbol":   fetched.Symbol,
	}).Info("Synced token from asset oracle")
	return fetched, nil
}

// ResolvePayment runs the full pipeline for one request.
func (s *PaymentService) ResolvePayment(ctx context.Context, params ResolveParams) (*payment.Result, error) {
	intent, err := s.buildIntent(ctx, params)
	if err != nil {
		return nil, err
	}

	token, err := s.SyncToken(ctx, intent.AssetID)
	if err != nil {
		return nil, err
	}

	var inFlight *models.Token
	if params.InFlightAssetID != "" {
		inFlight, err = s.SyncToken(ctx, params.InFlightAssetID)
		if err != nil {
			return nil, err
		}
	}

	dest, err := s.resolveDestination(ctx, intent, token, params.SkipTagCheck)
	if err != nil {
		s.publishRejected(intent, err)
		return nil, err
	}

	outcome, err := s.evaluate(ctx, intent, token, dest)
	if err != nil {
		return nil, err
	}

	result, err := s.assembler.Assemble(intent, *token, dest, outcome, inFlight)
	if err != nil {
		s.publishRejected(intent, err)
		return nil, err
	}
	s.publishResolved(result)
	return result, nil
}

// ValidateAddress classifies a destination without building a payment.
func (s *PaymentService) ValidateAddress(ctx context.Context, chainID, assetID, destination, tag string, skipTag bool) (*resolver.Destination, error) {
	var dest *resolver.Destination
	var err error
	if skipTag {
		dest, err = s.resolver.ResolveSkippingTag(ctx, chainID, assetID, destination)
	} else {
		dest, err = s.resolver.Resolve(ctx, chainID, assetID, destination, tag)
	}
	if err != nil {
		if errors.Is(err, resolver.ErrMismatchedDestination) || errors.Is(err, resolver.ErrMismatchedTag) {
			metrics.AddressCheckMismatchTotal.Inc()
		}
		return nil, err
	}
	metrics.AddressResolutionTotal.WithLabelValues(string(dest.Kind)).Inc()
	return dest, nil
}

// SaveAddressParams describes an address book entry to save.
type SaveAddressParams struct {
	ChainID     string
	AssetID     string
	Destination string
	Tag         string
	Label       string
}

// SaveAddress validates a destination and stores it in the address
// book. An already saved address is returned as is.
func (s *PaymentService) SaveAddress(ctx context.Context, params SaveAddressParams) (*models.AddressBookEntry, error) {
	dest, err := s.ValidateAddress(ctx, params.ChainID, params.AssetID, params.Destination, params.Tag, false)
	if err != nil {
		return nil, err
	}
	switch dest.Kind {
	case resolver.KindInternalWallet:
		return nil, ErrInternalDestination
	case resolver.KindAddressBookEntry:
		return dest.Entry, nil
	}

	entry := &models.AddressBookEntry{
		AddressID:   uuid.NewString(),
		ChainID:     params.ChainID,
		Destination: params.Destination,
		Tag:         params.Tag,
		Label:       params.Label,
	}
	if err := s.wallets.SaveAddressBookEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save address book entry: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"chain_id":    params.ChainID,
		"destination": params.Destination,
	}).Info("Saved address book entry")
	return entry, nil
}

// buildIntent turns the request into a normalized intent, parsing the
// link when one is present and falling back to the raw fields.
func (s *PaymentService) buildIntent(ctx context.Context, params ResolveParams) (*transferlink.Intent, error) {
	if params.Link != "" {
		intent, err := s.ParseLink(ctx, params.Link)
		if err == nil {
			return intent, nil
		}
		if !errors.Is(err, transferlink.ErrNotTransferLink) || params.AssetID == "" {
			return nil, err
		}
		// Not a transfer link at all. Treat the text as a raw
		// destination for the asset the caller is already viewing.
		params.Destination = params.Link
	}

	if params.AssetID == "" || params.Destination == "" {
		return nil, ErrMissingInput
	}
	intent := &transferlink.Intent{
		Raw:         params.Link,
		AssetID:     params.AssetID,
		Destination: params.Destination,
		Tag:         params.Tag,
		Memo:        params.Memo,
	}
	if params.Amount != "" {
		amount, err := numeric.ParsePlain(params.Amount)
		if err != nil {
			return nil, err
		}
		intent.Amount = &amount
	}
	return intent, nil
}

// resolveDestination classifies where the funds go. In-network
// transfers name a user directly and never touch the oracle.
func (s *PaymentService) resolveDestination(ctx context.Context, intent *transferlink.Intent, token *models.Token, skipTag bool) (*resolver.Destination, error) {
	if intent.Internal {
		dest := &resolver.Destination{
			Kind: resolver.KindInternalWallet,
			Wallet: &models.InternalWallet{
				WalletID:    intent.RecipientID,
				ChainID:     token.ChainID,
				Destination: intent.RecipientID,
			},
		}
		metrics.AddressResolutionTotal.WithLabelValues(string(dest.Kind)).Inc()
		return dest, nil
	}
	return s.ValidateAddress(ctx, token.ChainID, token.AssetID, intent.Destination, intent.Tag, skipTag)
}

// evaluate checks that balances cover the transfer plus, for
// withdrawals, one of the oracle's fee candidates. Address-only
// intents have nothing to evaluate.
func (s *PaymentService) evaluate(ctx context.Context, intent *transferlink.Intent, token *models.Token, dest *resolver.Destination) (*sufficiency.Outcome, error) {
	if intent.Amount == nil {
		return nil, nil
	}
	amount := *intent.Amount
	if intent.NeedsCheckPrecision {
		amount = amount.Shift(-token.Precision)
	}
	transfer := sufficiency.Requirement{Token: *token, Amount: amount}

	var candidates []sufficiency.Requirement
	if dest.Kind != resolver.KindInternalWallet {
		feeDestination := intent.Destination
		if dest.Temporary != nil {
			feeDestination = dest.Temporary.Destination
		}
		fees, err := s.fees.FetchFees(ctx, token.AssetID, feeDestination)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch fee candidates: %w", err)
		}
		for _, fee := range fees {
			feeToken, err := s.SyncToken(ctx, fee.AssetID)
			if err != nil {
				return nil, err
			}
			feeAmount, err := numeric.Parse(fee.Amount)
			if err != nil {
				return nil, fmt.Errorf("invalid fee amount %q for asset %s", fee.Amount, fee.AssetID)
			}
			candidates = append(candidates, sufficiency.Requirement{Token: *feeToken, Amount: feeAmount})
		}
	}

	outcome, err := s.engine.Evaluate(ctx, transfer, candidates)
	if err != nil {
		return nil, err
	}
	if outcome.Sufficient {
		metrics.SufficiencyEvaluationTotal.WithLabelValues("sufficient").Inc()
	} else {
		metrics.SufficiencyEvaluationTotal.WithLabelValues("insufficient").Inc()
	}
	return outcome, nil
}

// resolvedEvent is the payload published for a resolved payment.
type resolvedEvent struct {
	TraceID         string `json:"trace_id,omitempty"`
	AssetID         string `json:"asset_id,omitempty"`
	Amount          string `json:"amount,omitempty"`
	DestinationKind string `json:"destination_kind,omitempty"`
	AddressOnly     bool   `json:"address_only"`
}

// rejectedEvent is the payload published for a rejected payment.
type rejectedEvent struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
}

func (s *PaymentService) publishResolved(result *payment.Result) {
	evt := resolvedEvent{AddressOnly: result.AddressOnly}
	if result.Destination != nil {
		evt.DestinationKind = string(result.Destination.Kind)
	}
	if result.Payment != nil {
		evt.TraceID = result.Payment.TraceID
		evt.AssetID = result.Payment.Token.AssetID
		evt.Amount = result.Payment.Amount.String()
	}
	s.publisher.Publish(events.SubjectPaymentResolved, evt)
	s.hub.Broadcast(events.SubjectPaymentResolved, evt)
}

func (s *PaymentService) publishRejected(intent *transferlink.Intent, cause error) {
	evt := rejectedEvent{AssetID: intent.AssetID, Reason: cause.Error()}
	s.publisher.Publish(events.SubjectPaymentRejected, evt)
	s.hub.Broadcast(events.SubjectPaymentRejected, evt)
}
