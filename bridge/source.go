package bridge

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/db"
	"github.com/rwabridge/bridgenode/escrow"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/ratelimiter"
)

// SourceConfig configures the source side of the bridge
type SourceConfig struct {
	// DBPath path of the transfers DB
	DBPath string `mapstructure:"DBPath"`
	// ChainID identifier of the source chain
	ChainID uint32 `mapstructure:"ChainID"`
	// RateLimiter bounds how many assets each sender can lock per window
	RateLimiter ratelimiter.Config `mapstructure:"RateLimiter"`
	// Escrow configures the escrow ledger
	Escrow escrow.Config `mapstructure:"Escrow"`
}

// Source coordinates the source side of a bridge transfer: it validates the
// request, rate limits the sender, locks the assets in escrow and persists
// the transfer intent under its deterministic id
type Source struct {
	logger  *log.Logger
	storage *storage
	limiter *ratelimiter.RateLimiter
	ledger  *escrow.Ledger
	events  *Broadcaster
	chainID uint32
	paused  atomic.Bool
	// serializes initiations so nonce assignment and escrow locking cannot
	// interleave between requests
	mu  sync.Mutex
	now func() time.Time
}

// NewSource returns the source side coordinator. The registry is the external
// asset registry custody is taken from.
func NewSource(cfg SourceConfig, registry escrow.AssetRegistry, events *Broadcaster) (*Source, error) {
	logger := log.WithFields("module", "bridge-source")
	storage, err := newStorage(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	ledger, err := escrow.NewLedger(cfg.Escrow, registry)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = NewBroadcaster()
	}
	return &Source{
		logger:  logger,
		storage: storage,
		limiter: ratelimiter.New(logger, cfg.RateLimiter),
		ledger:  ledger,
		events:  events,
		chainID: cfg.ChainID,
		now:     time.Now,
	}, nil
}

// InitiateBridge starts a transfer of the given assets to recipient on
// destinationChain. On success the assets are locked in escrow and the
// returned intent carries the deterministic transfer id relayers will attest
// on the destination side.
func (s *Source) InitiateBridge(
	ctx context.Context,
	sender, assetContract common.Address,
	assetIDs []*big.Int,
	recipient common.Address,
	destinationChain uint32,
) (*TransferIntent, error) {
	if s.paused.Load() {
		return nil, ErrPaused
	}
	if destinationChain == s.chainID {
		return nil, ErrSameChain
	}
	if err := validateBatch(recipient, assetIDs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if err := s.limiter.Admit(sender, len(assetIDs), now); err != nil {
		return nil, err
	}

	tx, err := s.storage.beginTx(ctx)
	if err != nil {
		s.limiter.Refund(sender, len(assetIDs), now)
		return nil, err
	}
	nonce, err := s.storage.nextNonce(tx)
	if err != nil {
		s.rollbackAndRefund(tx, sender, len(assetIDs), now)
		return nil, err
	}
	intent := &TransferIntent{
		SourceChain:      s.chainID,
		DestinationChain: destinationChain,
		AssetContract:    assetContract,
		Sender:           sender,
		Recipient:        recipient,
		AssetIDs:         assetIDs,
		Nonce:            nonce,
	}
	intent.TransferID = intent.ID()

	if err := s.ledger.Lock(ctx, sender, assetContract, assetIDs, intent.TransferID); err != nil {
		s.rollbackAndRefund(tx, sender, len(assetIDs), now)
		return nil, fmt.Errorf("locking assets for transfer %s: %w", intent.TransferID, err)
	}
	if err := s.storage.addTransfer(tx, intent); err != nil {
		s.rollbackAndRefund(tx, sender, len(assetIDs), now)
		s.unlockAbortedTransfer(ctx, intent)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		s.limiter.Refund(sender, len(assetIDs), now)
		s.unlockAbortedTransfer(ctx, intent)
		return nil, err
	}

	s.logger.Infof(
		"transfer %s initiated: %d assets of %s from %s on chain %d to %s on chain %d",
		intent.TransferID, len(assetIDs), assetContract, sender, s.chainID, recipient, destinationChain,
	)
	s.events.publishTransferInitiated(TransferInitiatedEvent{Intent: intent})

	return intent, nil
}

func (s *Source) rollbackAndRefund(tx *db.Tx, sender common.Address, count int, now time.Time) {
	if err := tx.Rollback(); err != nil {
		s.logger.Errorf("error while rolling back initiate tx %v", err)
	}
	s.limiter.Refund(sender, count, now)
}

// unlockAbortedTransfer undoes the escrow lock of an intent that could not be
// persisted, so assets are never left in custody without a stored transfer
func (s *Source) unlockAbortedTransfer(ctx context.Context, intent *TransferIntent) {
	if err := s.ledger.Release(ctx, intent.AssetContract, intent.AssetIDs, intent.Sender); err != nil {
		s.logger.Errorf("failed to unlock assets of aborted transfer %s: %v", intent.TransferID, err)
	}
}

// GetTransfer returns an initiated transfer by id
func (s *Source) GetTransfer(ctx context.Context, transferID common.Hash) (*TransferIntent, error) {
	return s.storage.GetTransfer(ctx, transferID)
}

// GetTransfersBySender returns the transfers initiated by sender
func (s *Source) GetTransfersBySender(ctx context.Context, sender common.Address) ([]*TransferIntent, error) {
	return s.storage.GetTransfersBySender(ctx, sender)
}

// GetEscrow returns the escrow record of an asset
func (s *Source) GetEscrow(ctx context.Context, assetContract common.Address, assetID *big.Int) (*escrow.Record, error) {
	return s.ledger.GetEscrow(ctx, assetContract, assetID)
}

// ReleaseEscrow hands locked assets back, meant for operator intervention on
// transfers that will never complete
func (s *Source) ReleaseEscrow(
	ctx context.Context,
	assetContract common.Address,
	assetIDs []*big.Int,
	recipient common.Address,
) error {
	return s.ledger.Release(ctx, assetContract, assetIDs, recipient)
}

// SetRateLimit replaces the rate limiter configuration
func (s *Source) SetRateLimit(cfg ratelimiter.Config) {
	s.limiter.SetConfig(cfg)
}

// GetRateLimit returns the current rate limiter configuration
func (s *Source) GetRateLimit() ratelimiter.Config {
	return s.limiter.GetConfig()
}

// Pause stops accepting new transfers
func (s *Source) Pause() {
	s.paused.Store(true)
	s.logger.Warn("source bridge paused")
}

// Unpause resumes accepting new transfers
func (s *Source) Unpause() {
	s.paused.Store(false)
	s.logger.Warn("source bridge unpaused")
}

// IsPaused reports whether the source side is paused
func (s *Source) IsPaused() bool {
	return s.paused.Load()
}

// ChainID returns the source chain identifier
func (s *Source) ChainID() uint32 {
	return s.chainID
}
