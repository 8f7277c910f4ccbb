package transferlink

import "errors"

// Parse errors. ErrNotTransferLink is the only recoverable one: the
// caller should fall back to treating the input as a raw destination.
// Every other error means the link matched a supported scheme but is
// unusable, and must be propagated as terminal.
var (
	ErrNotTransferLink     = errors.New("not a transfer link")
	ErrInvalidFormat       = errors.New("invalid transfer link format")
	ErrAssetNotFound       = errors.New("no asset found for asset key")
	ErrUnsupportedSPLToken = errors.New("spl token transfers are not supported")
	ErrUnsupportedChainID  = errors.New("unsupported evm chain id")
	ErrInvalidRecipient    = errors.New("recipient must be a valid uuid")
	ErrInvalidAsset        = errors.New("asset must be a valid uuid")
)
