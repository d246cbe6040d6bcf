package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/rpc/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// BRIDGE is the namespace of the bridge service
	BRIDGE = "bridge"
	// ADMIN is the namespace of the admin service
	ADMIN     = "admin"
	meterName = "github.com/rwabridge/bridgenode/rpc"
)

// BridgeEndpoints contains implementations for the "bridge" RPC endpoints.
// source and destination may each be nil when the node does not run that
// component.
type BridgeEndpoints struct {
	logger       *log.Logger
	meter        metric.Meter
	readTimeout  time.Duration
	writeTimeout time.Duration
	source       Sourcer
	destination  Destinationer
}

// NewBridgeEndpoints returns BridgeEndpoints
func NewBridgeEndpoints(
	logger *log.Logger,
	writeTimeout time.Duration,
	readTimeout time.Duration,
	source Sourcer,
	destination Destinationer,
) *BridgeEndpoints {
	meter := otel.Meter(meterName)
	return &BridgeEndpoints{
		logger:       logger,
		meter:        meter,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		source:       source,
		destination:  destination,
	}
}

func (b *BridgeEndpoints) count(ctx context.Context, name string) {
	c, merr := b.meter.Int64Counter(name)
	if merr != nil {
		b.logger.Warnf("failed to create %s counter: %s", name, merr)
		return
	}
	c.Add(ctx, 1)
}

// InitiateBridge starts a transfer of the given assets towards the
// destination chain and returns the persisted transfer intent
func (b *BridgeEndpoints) InitiateBridge(req types.InitiateBridgeRequest) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.writeTimeout)
	defer cancel()
	b.count(ctx, "initiate_bridge")

	if b.source == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge source component")
	}
	intent, err := b.source.InitiateBridge(
		ctx, req.Sender, req.AssetContract, req.AssetIDs, req.Recipient, req.DestinationChain,
	)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to initiate bridge, error: %s", err))
	}
	return intent, nil
}

// GetTransfer returns a transfer initiated on this node by id
func (b *BridgeEndpoints) GetTransfer(transferID common.Hash) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()
	b.count(ctx, "get_transfer")

	if b.source == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge source component")
	}
	intent, err := b.source.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to get transfer %s, error: %s", transferID, err))
	}
	return intent, nil
}

// GetTransfersBySender returns the transfers initiated by sender
func (b *BridgeEndpoints) GetTransfersBySender(sender common.Address) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()
	b.count(ctx, "get_transfers_by_sender")

	if b.source == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge source component")
	}
	intents, err := b.source.GetTransfersBySender(ctx, sender)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to get transfers of %s, error: %s", sender, err))
	}
	return intents, nil
}

// GetEscrow returns the escrow record of an asset
func (b *BridgeEndpoints) GetEscrow(assetContract common.Address, assetID *big.Int) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()
	b.count(ctx, "get_escrow")

	if b.source == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge source component")
	}
	record, err := b.source.GetEscrow(ctx, assetContract, assetID)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to get escrow of asset %s, error: %s", assetID, err))
	}
	return record, nil
}

// RelayApproveAndMint records a relayer attestation for a transfer, minting
// the wrapped assets if this attestation completes the quorum
func (b *BridgeEndpoints) RelayApproveAndMint(req types.RelayRequest) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.writeTimeout)
	defer cancel()
	b.count(ctx, "relay_approve_and_mint")

	if b.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	result, err := b.destination.RelayApproveAndMint(ctx, req.Relayer, req.TransferID, req.Recipient, req.AssetIDs)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to relay transfer %s, error: %s", req.TransferID, err))
	}
	return types.AttestationResponse{
		TransferID:     result.TransferID,
		Count:          result.Count,
		Required:       result.Required,
		Processed:      result.Processed,
		MintedAssetIDs: result.MintedAssetIDs,
	}, nil
}

// GetApprovalState returns the attestation state of a transfer
func (b *BridgeEndpoints) GetApprovalState(transferID common.Hash) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()
	b.count(ctx, "get_approval_state")

	if b.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	state, err := b.destination.GetApprovalState(ctx, transferID)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to get approval state of %s, error: %s", transferID, err))
	}
	approvers, err := b.destination.GetApprovers(ctx, transferID)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to get approvers of %s, error: %s", transferID, err))
	}
	return types.ApprovalStateResponse{
		TransferID: state.TransferID,
		Count:      state.Count,
		Required:   b.destination.RequiredApprovals(),
		Processed:  state.Processed,
		Approvers:  approvers,
	}, nil
}

// GetMinted returns the mint record of a wrapped asset
func (b *BridgeEndpoints) GetMinted(assetID *big.Int) (interface{}, rpc.Error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.readTimeout)
	defer cancel()
	b.count(ctx, "get_minted")

	if b.destination == nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, "this node does not run the bridge destination component")
	}
	record, err := b.destination.GetMinted(ctx, assetID)
	if err != nil {
		return nil, rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to get mint record of asset %s, error: %s", assetID, err))
	}
	return record, nil
}
