package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// InitiateBridgeRequest is the payload of bridge_initiateBridge
type InitiateBridgeRequest struct {
	Sender           common.Address `json:"sender"`
	AssetContract    common.Address `json:"assetContract"`
	AssetIDs         []*big.Int     `json:"assetIds"`
	Recipient        common.Address `json:"recipient"`
	DestinationChain uint32         `json:"destinationChain"`
}

// RelayRequest is the payload of bridge_relayApproveAndMint
type RelayRequest struct {
	Relayer    common.Address `json:"relayer"`
	TransferID common.Hash    `json:"transferId"`
	Recipient  common.Address `json:"recipient"`
	AssetIDs   []*big.Int     `json:"assetIds"`
}

// AttestationResponse is the result of bridge_relayApproveAndMint
type AttestationResponse struct {
	TransferID     common.Hash `json:"transferId"`
	Count          uint32      `json:"count"`
	Required       uint32      `json:"required"`
	Processed      bool        `json:"processed"`
	MintedAssetIDs []*big.Int  `json:"mintedAssetIds"`
}

// ApprovalStateResponse is the result of bridge_getApprovalState
type ApprovalStateResponse struct {
	TransferID common.Hash      `json:"transferId"`
	Count      uint32           `json:"count"`
	Required   uint32           `json:"required"`
	Processed  bool             `json:"processed"`
	Approvers  []common.Address `json:"approvers"`
}

// RateLimitConfig mirrors the rate limiter configuration over the wire, the
// window is expressed in seconds
type RateLimitConfig struct {
	WindowSeconds uint64 `json:"windowSeconds"`
	MaxPerWindow  int    `json:"maxPerWindow"`
}

// ReleaseEscrowRequest is the payload of admin_releaseEscrow
type ReleaseEscrowRequest struct {
	AssetContract common.Address `json:"assetContract"`
	AssetIDs      []*big.Int     `json:"assetIds"`
	Recipient     common.Address `json:"recipient"`
}

// PausedStatus is the result of admin_pause and admin_unpause
type PausedStatus struct {
	Source      *bool `json:"source,omitempty"`
	Destination *bool `json:"destination,omitempty"`
}
