package transferlink

// SchemeInternal is the URI scheme for in-network transfers between
// wallets of this deployment. All other supported schemes address an
// external chain.
const SchemeInternal = "paylink"

// chainAssetIDs maps a chain URI scheme to the asset id of that
// chain's native token.
var chainAssetIDs = map[string]string{
	"bitcoin":  "c6d0c728-2624-429b-8e0d-d9d19b6592fa",
	"ethereum": "43d61dcd-e413-450d-80b8-101d5e903357",
	"litecoin": "76c802a2-7c88-447f-a93e-c29c9e5dd9c8",
	"dash":     "6472e7e3-75fd-48b6-b1dc-28d294ee1476",
	"dogecoin": "6770a1e5-6086-44d5-b60f-545f9d9e8ffd",
	"monero":   "05c5ac01-31f9-4a69-aa8a-ab796de1d041",
	"solana":   "64692c23-8971-4cf4-84a7-4dd1271dd887",
}

// evmNativeAssetIDs maps an EIP-681 decimal chain id to the native
// token asset id of that EVM network.
var evmNativeAssetIDs = map[string]string{
	"1":   "43d61dcd-e413-450d-80b8-101d5e903357",
	"137": "b7938396-3f94-4e0a-9179-d3440718156f",
}

// evmNativeDecimals is the smallest-unit exponent of the `value` field
// on EVM networks. Wei amounts are divided by 10^18 regardless of the
// network's token.
const evmNativeDecimals = 18

// IsSupportedScheme reports whether scheme (already lowercased) is one
// of the transfer link schemes this parser understands.
func IsSupportedScheme(scheme string) bool {
	if scheme == "ethereum" || scheme == SchemeInternal {
		return true
	}
	_, ok := chainAssetIDs[scheme]
	return ok
}
