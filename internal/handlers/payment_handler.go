package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"paylink-backend/internal/payment"
	"paylink-backend/internal/resolver"
	"paylink-backend/internal/services"
	"paylink-backend/internal/transferlink"
)

// PaymentHandler handles payment resolution API requests
type PaymentHandler struct {
	paymentService *services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler instance
func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// ============================================================================
// Transfer Link Parsing
// ============================================================================

// ParseLinkRequest is the body of POST /api/v1/payments/parse
type ParseLinkRequest struct {
	Link string `json:"link" binding:"required"`
}

// ParseLinkHandler handles POST /api/v1/payments/parse
// Parse a transfer link into its normalized intent without resolving it
func (h *PaymentHandler) ParseLinkHandler(c *gin.Context) {
	var req ParseLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	intent, err := h.paymentService.ParseLink(c.Request.Context(), req.Link)
	if err != nil {
		writePaymentError(c, err)
		return
	}

	resp := gin.H{
		"internal":    intent.Internal,
		"asset_id":    intent.AssetID,
		"destination": intent.Destination,
	}
	if intent.RecipientID != "" {
		resp["recipient_id"] = intent.RecipientID
	}
	if intent.Tag != "" {
		resp["tag"] = intent.Tag
	}
	if intent.Memo != "" {
		resp["memo"] = intent.Memo
	}
	if intent.TraceID != "" {
		resp["trace_id"] = intent.TraceID
	}
	if intent.Amount != nil {
		resp["amount"] = intent.Amount.String()
		resp["needs_check_precision"] = intent.NeedsCheckPrecision
	}
	c.JSON(http.StatusOK, resp)
}

// ============================================================================
// Payment Resolution
// ============================================================================

// ResolvePaymentRequest is the body of POST /api/v1/payments/resolve
type ResolvePaymentRequest struct {
	Link            string `json:"link"`
	AssetID         string `json:"asset_id"`
	Destination     string `json:"destination"`
	Tag             string `json:"tag"`
	Amount          string `json:"amount"`
	Memo            string `json:"memo"`
	SkipTagCheck    bool   `json:"skip_tag_check"`
	InFlightAssetID string `json:"in_flight_asset_id"`
}

// ResolvePaymentHandler handles POST /api/v1/payments/resolve
// Run the full pipeline: parse, sync token, resolve destination,
// check sufficiency and assemble the payment
func (h *PaymentHandler) ResolvePaymentHandler(c *gin.Context) {
	var req ResolvePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.paymentService.ResolvePayment(c.Request.Context(), services.ResolveParams{
		Link:            req.Link,
		AssetID:         req.AssetID,
		Destination:     req.Destination,
		Tag:             req.Tag,
		Amount:          req.Amount,
		Memo:            req.Memo,
		SkipTagCheck:    req.SkipTagCheck,
		InFlightAssetID: req.InFlightAssetID,
	})
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ============================================================================
// Address Validation
// ============================================================================

// ValidateAddressRequest is the body of POST /api/v1/addresses/validate
type ValidateAddressRequest struct {
	ChainID      string `json:"chain_id" binding:"required"`
	AssetID      string `json:"asset_id" binding:"required"`
	Destination  string `json:"destination" binding:"required"`
	Tag          string `json:"tag"`
	SkipTagCheck bool   `json:"skip_tag_check"`
}

// ValidateAddressHandler handles POST /api/v1/addresses/validate
// Classify a destination as internal wallet, address book entry or
// temporary address
func (h *PaymentHandler) ValidateAddressHandler(c *gin.Context) {
	var req ValidateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	dest, err := h.paymentService.ValidateAddress(
		c.Request.Context(), req.ChainID, req.AssetID, req.Destination, req.Tag, req.SkipTagCheck)
	if err != nil {
		writePaymentError(c, err)
		return
	}

	resp := gin.H{"kind": dest.Kind}
	switch {
	case dest.Wallet != nil:
		resp["wallet"] = dest.Wallet
	case dest.Entry != nil:
		resp["entry"] = dest.Entry
	case dest.Temporary != nil:
		resp["checked"] = dest.Temporary
	}
	c.JSON(http.StatusOK, resp)
}

// SaveAddressRequest is the body of POST /api/v1/addresses
type SaveAddressRequest struct {
	ChainID     string `json:"chain_id" binding:"required"`
	AssetID     string `json:"asset_id" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Tag         string `json:"tag"`
	Label       string `json:"label"`
}

// SaveAddressHandler handles POST /api/v1/addresses
// Validate a destination and store it in the address book
func (h *PaymentHandler) SaveAddressHandler(c *gin.Context) {
	var req SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	entry, err := h.paymentService.SaveAddress(c.Request.Context(), services.SaveAddressParams{
		ChainID:     req.ChainID,
		AssetID:     req.AssetID,
		Destination: req.Destination,
		Tag:         req.Tag,
		Label:       req.Label,
	})
	if err != nil {
		writePaymentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ============================================================================
// Error Mapping
// ============================================================================

// writePaymentError maps pipeline errors to HTTP responses. Typed
// errors keep their payloads so clients can render a precise message.
func writePaymentError(c *gin.Context, err error) {
	var tooSmall *payment.AmountTooSmallError
	var mismatchedAsset *payment.MismatchedAssetError
	var insufficient *payment.InsufficiencyError

	switch {
	case errors.As(err, &tooSmall):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Amount below minimal unit",
			"code":    "AMOUNT_TOO_SMALL",
			"symbol":  tooSmall.Token.Symbol,
			"amount":  tooSmall.Amount.String(),
			"details": err.Error(),
		})
	case errors.As(err, &mismatchedAsset):
		c.JSON(http.StatusConflict, gin.H{
			"error":    "Link asset does not match the operation in flight",
			"code":     "MISMATCHED_ASSET",
			"expected": mismatchedAsset.Expected,
			"actual":   mismatchedAsset.Actual,
		})
	case errors.As(err, &insufficient):
		shortfalls := make([]gin.H, 0, len(insufficient.Shortfalls))
		for _, s := range insufficient.Shortfalls {
			shortfalls = append(shortfalls, gin.H{
				"asset_id": s.Token.AssetID,
				"symbol":   s.Token.Symbol,
				"required": s.Amount.String(),
			})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "Insufficient balance",
			"code":       "INSUFFICIENT_BALANCE",
			"shortfalls": shortfalls,
		})
	case errors.Is(err, resolver.ErrMismatchedDestination),
		errors.Is(err, resolver.ErrMismatchedTag):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Address check failed",
			"code":  "ADDRESS_CHECK_MISMATCH",
		})
	case errors.Is(err, transferlink.ErrNotTransferLink):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Not a transfer link",
			"code":  "NOT_TRANSFER_LINK",
		})
	case errors.Is(err, transferlink.ErrInvalidFormat),
		errors.Is(err, transferlink.ErrAssetNotFound),
		errors.Is(err, transferlink.ErrUnsupportedSPLToken),
		errors.Is(err, transferlink.ErrUnsupportedChainID),
		errors.Is(err, transferlink.ErrInvalidRecipient),
		errors.Is(err, transferlink.ErrInvalidAsset):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid transfer link",
			"code":    "INVALID_LINK",
			"details": err.Error(),
		})
	case errors.Is(err, payment.ErrInvalidAmountPrecision):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Amount has more fractional digits than the token precision",
			"code":  "INVALID_AMOUNT_PRECISION",
		})
	case errors.Is(err, services.ErrMissingInput), errors.Is(err, services.ErrInternalDestination):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "INVALID_REQUEST",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Payment resolution failed",
			"details": err.Error(),
		})
	}
}
