package transferlink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paylink-backend/internal/numeric"
)

// AssetKeyFinder resolves a chain-native asset key (an ERC-20 contract
// address) to an asset id. It returns false when no asset is known for
// the key.
type AssetKeyFinder func(assetKey string) (string, bool)

// Intent is the normalized form of a parsed transfer link. It is
// immutable once parsed and carries everything downstream resolution
// needs; it never touches the network itself.
type Intent struct {
	Raw         string
	Internal    bool   // in-network transfer, Destination is a user id
	RecipientID string // set for internal transfers
	AssetID     string
	Destination string
	Tag         string
	Memo        string
	TraceID     string

	// Amount is nil for pure address-sharing links.
	Amount *decimal.Decimal

	// NeedsCheckPrecision marks an amount still denominated in the
	// token's own smallest unit (a uint256 parameter). It must be
	// shifted by the resolved token's precision before use.
	NeedsCheckPrecision bool
}

// Parse recognizes a transfer link and extracts a normalized Intent.
//
// It returns ErrNotTransferLink when the input does not start with a
// supported scheme; callers treat that input as a raw destination
// instead. Once a scheme matches, every failure is terminal.
func Parse(raw string, findAssetID AssetKeyFinder) (*Intent, error) {
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, ErrNotTransferLink
	}
	scheme = strings.ToLower(scheme)
	if !IsSupportedScheme(scheme) {
		return nil, ErrNotTransferLink
	}

	// Chain URIs are not always hierarchical ("bitcoin:ADDR?amount=").
	// Synthesize the authority marker so the remainder parses as a
	// conventional authority+path+query.
	if !strings.HasPrefix(rest, "//") {
		rest = "//" + rest
	}
	u, err := url.Parse(scheme + ":" + rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	queries, err := flattenQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	switch scheme {
	case SchemeInternal:
		return parseInternal(raw, queries)
	case "ethereum":
		return parseEVM(raw, u, queries, findAssetID)
	default:
		return parseChain(raw, scheme, u, queries)
	}
}

// flattenQuery extracts the query string into a flat map. On duplicate
// keys the last value wins; a crafted URI repeating an address or
// amount parameter resolves deterministically to the final occurrence.
func flattenQuery(rawQuery string) (map[string]string, error) {
	queries := make(map[string]string)
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		queries[key] = value
	}
	return queries, nil
}

// parseInternal handles the in-network scheme. Both recipient and
// asset are mandatory and must be well-formed UUIDs; the destination
// is the recipient's internal identity, no on-chain address involved.
func parseInternal(raw string, queries map[string]string) (*Intent, error) {
	recipient := queries["recipient"]
	if recipient == "" || uuid.Validate(recipient) != nil {
		return nil, ErrInvalidRecipient
	}
	asset := queries["asset"]
	if asset == "" || uuid.Validate(asset) != nil {
		return nil, ErrInvalidAsset
	}
	traceID := queries["trace"]
	if traceID != "" && uuid.Validate(traceID) != nil {
		return nil, ErrInvalidFormat
	}

	var amount *decimal.Decimal
	if rawAmount, ok := queries["amount"]; ok {
		d, err := numeric.ParsePlain(rawAmount)
		if err != nil {
			return nil, ErrInvalidFormat
		}
		amount = &d
	}

	return &Intent{
		Raw:         raw,
		Internal:    true,
		RecipientID: recipient,
		AssetID:     asset,
		Destination: recipient,
		Memo:        queries["memo"],
		TraceID:     traceID,
		Amount:      amount,
	}, nil
}

// parseEVM handles EIP-681 style links:
//
//	ethereum:[pay-]target[@chain_id][/transfer]?params
//
// The target lands in the URI user component when a chain id follows
// it, otherwise in the host.
func parseEVM(raw string, u *url.URL, queries map[string]string, findAssetID AssetKeyFinder) (*Intent, error) {
	target := u.Host
	chainID := "1"
	if u.User != nil {
		target = u.User.Username()
		chainID = u.Host
	}
	target = strings.TrimPrefix(target, "pay-")
	if !common.IsHexAddress(target) {
		return nil, ErrInvalidFormat
	}

	if rawValue, ok := queries["value"]; ok {
		// Native value transfer. The amount is in wei; exponent
		// notation is conventional here and resolved against the
		// fixed smallest-unit exponent, not the token's precision.
		assetID, ok := evmNativeAssetIDs[chainID]
		if !ok {
			return nil, ErrUnsupportedChainID
		}
		amount, err := numeric.FromAtomic(rawValue, evmNativeDecimals)
		if err != nil {
			return nil, ErrInvalidFormat
		}
		return &Intent{
			Raw:         raw,
			AssetID:     assetID,
			Destination: target,
			Amount:      &amount,
		}, nil
	}

	if strings.TrimSuffix(u.Path, "/") == "/transfer" {
		// ERC-20 transfer. The target address is the token contract;
		// the actual destination comes from the address parameter.
		address := queries["address"]
		if !common.IsHexAddress(address) {
			return nil, ErrInvalidFormat
		}
		assetID, ok := findAssetID(target)
		if !ok {
			return nil, ErrAssetNotFound
		}

		intent := &Intent{
			Raw:         raw,
			AssetID:     assetID,
			Destination: address,
		}
		if rawAmount, ok := queries["amount"]; ok {
			amount, err := numeric.ParsePlain(rawAmount)
			if err != nil {
				return nil, ErrInvalidFormat
			}
			intent.Amount = &amount
		} else if rawAmount, ok := queries["uint256"]; ok {
			// Denominated in the token's own precision, which is
			// unknown until the token record is resolved.
			amount, err := numeric.Parse(rawAmount)
			if err != nil {
				return nil, ErrInvalidFormat
			}
			intent.Amount = &amount
			intent.NeedsCheckPrecision = true
		} else {
			return nil, ErrInvalidFormat
		}
		return intent, nil
	}

	// Native transfer without a value parameter. Some non-standard
	// links specify a decimal amount instead; absent both, the link
	// only shares an address.
	assetID, ok := evmNativeAssetIDs[chainID]
	if !ok {
		return nil, ErrUnsupportedChainID
	}
	intent := &Intent{
		Raw:         raw,
		AssetID:     assetID,
		Destination: target,
	}
	if rawAmount, ok := queries["amount"]; ok {
		amount, err := numeric.ParsePlain(rawAmount)
		if err != nil {
			return nil, ErrInvalidFormat
		}
		intent.Amount = &amount
	}
	return intent, nil
}

// parseChain handles the remaining single-asset chain schemes.
func parseChain(raw, scheme string, u *url.URL, queries map[string]string) (*Intent, error) {
	assetID := chainAssetIDs[scheme]

	if scheme == "solana" {
		if _, ok := queries["spl-token"]; ok {
			return nil, ErrUnsupportedSPLToken
		}
	}

	destination := u.Host
	if destination == "" {
		destination = strings.TrimPrefix(u.Path, "/")
	}
	if destination == "" {
		return nil, ErrInvalidFormat
	}

	intent := &Intent{
		Raw:         raw,
		AssetID:     assetID,
		Destination: destination,
		Tag:         queries["tag"],
		Memo:        queries["memo"],
	}

	rawAmount, ok := queries["amount"]
	if !ok {
		rawAmount, ok = queries["tx_amount"]
	}
	if ok {
		amount, err := numeric.ParsePlain(rawAmount)
		if err != nil {
			return nil, ErrInvalidFormat
		}
		intent.Amount = &amount
	}
	return intent, nil
}
