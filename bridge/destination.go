package bridge

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/minter"
	"github.com/rwabridge/bridgenode/quorum"
	"github.com/rwabridge/bridgenode/relayers"
)

// DestinationConfig configures the destination side of the bridge
type DestinationConfig struct {
	// ChainID identifier of the destination chain
	ChainID uint32 `mapstructure:"ChainID"`
	// Quorum configures the attestation state machine
	Quorum quorum.Config `mapstructure:"Quorum"`
	// Minter configures the wrapped asset minter
	Minter minter.Config `mapstructure:"Minter"`
	// Relayers is the initial set of authorized relayer addresses
	Relayers []common.Address `mapstructure:"Relayers"`
}

// AttestationResult is the outcome of a single attestation
type AttestationResult struct {
	TransferID common.Hash
	Count      uint32
	Required   uint32
	Processed  bool
	// MintedAssetIDs are the wrapped assets minted by this attestation, only
	// set when the attestation completed the quorum
	MintedAssetIDs []*big.Int
}

// Destination coordinates the destination side: it authenticates relayers,
// collects attestations and mints the wrapped assets exactly once when a
// transfer reaches quorum
type Destination struct {
	logger   *log.Logger
	quorum   *quorum.Quorum
	minter   *minter.Minter
	relayers *relayers.Set
	events   *Broadcaster
	chainID  uint32
	paused   atomic.Bool
}

// NewDestination returns the destination side coordinator. The registry is
// the wrapped asset registry mints are issued on.
func NewDestination(cfg DestinationConfig, registry minter.WrappedRegistry, events *Broadcaster) (*Destination, error) {
	q, err := quorum.New(cfg.Quorum)
	if err != nil {
		return nil, err
	}
	m, err := minter.New(cfg.Minter, registry)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = NewBroadcaster()
	}
	return &Destination{
		logger:   log.WithFields("module", "bridge-destination"),
		quorum:   q,
		minter:   m,
		relayers: relayers.NewSet(cfg.Relayers),
		events:   events,
		chainID:  cfg.ChainID,
	}, nil
}

// RelayApproveAndMint records the attestation of relayer for transferID.
// The attestation that completes the quorum also mints the wrapped assets to
// recipient, atomically with the processed transition: if minting fails the
// transfer stays collecting and can be attested again.
func (d *Destination) RelayApproveAndMint(
	ctx context.Context,
	relayer common.Address,
	transferID common.Hash,
	recipient common.Address,
	assetIDs []*big.Int,
) (*AttestationResult, error) {
	if d.paused.Load() {
		return nil, ErrPaused
	}
	if !d.relayers.IsRelayer(relayer) {
		return nil, fmt.Errorf("relayer %s: %w", relayer, ErrUnauthorized)
	}
	if err := validateBatch(recipient, assetIDs); err != nil {
		return nil, err
	}

	var minted []*big.Int
	onQuorum := func(ctx context.Context) error {
		var err error
		minted, err = d.minter.MintIfAbsent(ctx, transferID, recipient, assetIDs)
		return err
	}
	state, err := d.quorum.Attest(ctx, transferID, relayer, onQuorum)
	if err != nil {
		return nil, err
	}

	d.events.publishRelayerApproved(RelayerApprovedEvent{
		TransferID: transferID,
		Relayer:    relayer,
		Count:      state.Count,
	})
	if state.Processed {
		d.logger.Infof(
			"transfer %s reached quorum with %d attestations, minted %d wrapped assets",
			transferID, state.Count, len(minted),
		)
		d.events.publishWrappedMinted(WrappedMintedEvent{
			TransferID: transferID,
			Recipient:  recipient,
			AssetIDs:   minted,
		})
	}

	return &AttestationResult{
		TransferID:     transferID,
		Count:          state.Count,
		Required:       d.quorum.RequiredApprovals(),
		Processed:      state.Processed,
		MintedAssetIDs: minted,
	}, nil
}

// GetApprovalState returns the attestation state of a transfer
func (d *Destination) GetApprovalState(ctx context.Context, transferID common.Hash) (*quorum.State, error) {
	return d.quorum.GetState(ctx, transferID)
}

// GetApprovers returns the relayers that attested a transfer
func (d *Destination) GetApprovers(ctx context.Context, transferID common.Hash) ([]common.Address, error) {
	return d.quorum.GetApprovers(ctx, transferID)
}

// GetMinted returns the mint record of a wrapped asset
func (d *Destination) GetMinted(ctx context.Context, assetID *big.Int) (*minter.Record, error) {
	return d.minter.GetMinted(ctx, assetID)
}

// DiscardTransfer marks a stuck transfer as processed without minting
func (d *Destination) DiscardTransfer(ctx context.Context, transferID common.Hash) error {
	return d.quorum.Discard(ctx, transferID)
}

// SetRequiredApprovals changes the quorum size
func (d *Destination) SetRequiredApprovals(n uint32) error {
	return d.quorum.SetRequiredApprovals(n)
}

// RequiredApprovals returns the current quorum size
func (d *Destination) RequiredApprovals() uint32 {
	return d.quorum.RequiredApprovals()
}

// GrantRelayer adds an address to the relayer set
func (d *Destination) GrantRelayer(addr common.Address) {
	d.relayers.Grant(addr)
}

// RevokeRelayer removes an address from the relayer set
func (d *Destination) RevokeRelayer(addr common.Address) error {
	return d.relayers.Revoke(addr)
}

// ListRelayers returns the relayer set sorted by address
func (d *Destination) ListRelayers() []common.Address {
	return d.relayers.List()
}

// Pause stops accepting attestations
func (d *Destination) Pause() {
	d.paused.Store(true)
	d.logger.Warn("destination bridge paused")
}

// Unpause resumes accepting attestations
func (d *Destination) Unpause() {
	d.paused.Store(false)
	d.logger.Warn("destination bridge unpaused")
}

// IsPaused reports whether the destination side is paused
func (d *Destination) IsPaused() bool {
	return d.paused.Load()
}

// ChainID returns the destination chain identifier
func (d *Destination) ChainID() uint32 {
	return d.chainID
}
