package rpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/bridge"
	"github.com/rwabridge/bridgenode/escrow"
	"github.com/rwabridge/bridgenode/minter"
	"github.com/rwabridge/bridgenode/quorum"
	"github.com/rwabridge/bridgenode/ratelimiter"
)

// Sourcer is the source side of the bridge as seen by the RPC layer
type Sourcer interface {
	InitiateBridge(
		ctx context.Context,
		sender, assetContract common.Address,
		assetIDs []*big.Int,
		recipient common.Address,
		destinationChain uint32,
	) (*bridge.TransferIntent, error)
	GetTransfer(ctx context.Context, transferID common.Hash) (*bridge.TransferIntent, error)
	GetTransfersBySender(ctx context.Context, sender common.Address) ([]*bridge.TransferIntent, error)
	GetEscrow(ctx context.Context, assetContract common.Address, assetID *big.Int) (*escrow.Record, error)
	ReleaseEscrow(ctx context.Context, assetContract common.Address, assetIDs []*big.Int, recipient common.Address) error
	SetRateLimit(cfg ratelimiter.Config)
	GetRateLimit() ratelimiter.Config
	Pause()
	Unpause()
	IsPaused() bool
}

// Destinationer is the destination side of the bridge as seen by the RPC layer
type Destinationer interface {
	RelayApproveAndMint(
		ctx context.Context,
		relayer common.Address,
		transferID common.Hash,
		recipient common.Address,
		assetIDs []*big.Int,
	) (*bridge.AttestationResult, error)
	GetApprovalState(ctx context.Context, transferID common.Hash) (*quorum.State, error)
	GetApprovers(ctx context.Context, transferID common.Hash) ([]common.Address, error)
	GetMinted(ctx context.Context, assetID *big.Int) (*minter.Record, error)
	DiscardTransfer(ctx context.Context, transferID common.Hash) error
	SetRequiredApprovals(n uint32) error
	RequiredApprovals() uint32
	GrantRelayer(addr common.Address)
	RevokeRelayer(addr common.Address) error
	ListRelayers() []common.Address
	Pause()
	Unpause()
	IsPaused() bool
}
