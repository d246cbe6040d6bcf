package escrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/rwabridge/bridgenode/db"
	"github.com/rwabridge/bridgenode/escrow/migrations"
	"github.com/rwabridge/bridgenode/log"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotOwned is returned when the sender does not own one of the assets
	// it is trying to lock
	ErrNotOwned = errors.New("asset not owned by sender")
	// ErrAlreadyLocked is returned when one of the assets is already held in escrow
	ErrAlreadyLocked = errors.New("asset already locked")
	// ErrNotLocked is returned when trying to release an asset that is not in escrow
	ErrNotLocked = errors.New("asset not locked")
	// ErrNotFound is returned when an asset has no escrow record
	ErrNotFound = db.ErrNotFound
)

// AssetRegistry is the external registry holding the assets. The ledger uses
// it to verify ownership and to move assets in and out of custody.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, assetContract common.Address, assetID *big.Int) (common.Address, error)
	TransferToEscrow(ctx context.Context, assetContract common.Address, assetID *big.Int, from common.Address) error
	TransferFromEscrow(ctx context.Context, assetContract common.Address, assetID *big.Int, to common.Address) error
}

// Record is a single locked asset
type Record struct {
	AssetContract common.Address `meddler:"asset_contract,address"`
	AssetID       *big.Int       `meddler:"asset_id,bigint"`
	OriginalOwner common.Address `meddler:"original_owner,address"`
	TransferID    common.Hash    `meddler:"transfer_id,hash"`
}

// Ledger records which assets are held in escrow and which transfer locked
// them. Batches are locked and released all or nothing.
type Ledger struct {
	logger   *log.Logger
	db       *sql.DB
	registry AssetRegistry
	// serializes lock/release batches so ownership checks and custody
	// transfers cannot interleave
	mu sync.Mutex
}

// NewLedger runs the escrow migrations on cfg.DBPath and returns a Ledger
// backed by the given registry
func NewLedger(cfg Config, registry AssetRegistry) (*Ledger, error) {
	err := migrations.RunMigrations(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	database, err := db.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		logger:   log.WithFields("module", "escrow"),
		db:       database,
		registry: registry,
	}, nil
}

// Lock takes custody of all the given assets on behalf of transferID.
// Every asset must be owned by sender and not already locked, otherwise
// nothing is locked. Custody transfers that already happened when a later
// asset fails are reverted.
func (l *Ledger) Lock(
	ctx context.Context,
	sender, assetContract common.Address,
	assetIDs []*big.Int,
	transferID common.Hash,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, assetID := range assetIDs {
		assetID := assetID
		g.Go(func() error {
			owner, err := l.registry.OwnerOf(gctx, assetContract, assetID)
			if err != nil {
				return fmt.Errorf("checking owner of asset %s: %w", assetID, err)
			}
			if owner != sender {
				return fmt.Errorf("asset %s owned by %s, not %s: %w", assetID, owner, sender, ErrNotOwned)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, assetID := range assetIDs {
		locked, err := l.isLocked(ctx, assetContract, assetID)
		if err != nil {
			return err
		}
		if locked {
			return fmt.Errorf("asset %s: %w", assetID, ErrAlreadyLocked)
		}
	}

	tx, err := db.NewTx(ctx, l.db)
	if err != nil {
		return err
	}
	transferred := []*big.Int{}
	rollback := func() {
		if errRllbck := tx.Rollback(); errRllbck != nil {
			l.logger.Errorf("error while rolling back lock tx %v", errRllbck)
		}
		for _, assetID := range transferred {
			if errRevert := l.registry.TransferFromEscrow(ctx, assetContract, assetID, sender); errRevert != nil {
				l.logger.Errorf(
					"failed to return asset %s to %s after aborted lock: %v",
					assetID, sender, errRevert,
				)
			}
		}
	}

	for _, assetID := range assetIDs {
		if err := l.registry.TransferToEscrow(ctx, assetContract, assetID, sender); err != nil {
			rollback()
			return fmt.Errorf("transferring asset %s to escrow: %w", assetID, err)
		}
		transferred = append(transferred, assetID)
		record := &Record{
			AssetContract: assetContract,
			AssetID:       assetID,
			OriginalOwner: sender,
			TransferID:    transferID,
		}
		if err := meddler.Insert(tx, "escrow", record); err != nil {
			if db.IsUniqueConstraintErr(err) {
				err = fmt.Errorf("asset %s: %w", assetID, ErrAlreadyLocked)
			}
			rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		for _, assetID := range transferred {
			if errRevert := l.registry.TransferFromEscrow(ctx, assetContract, assetID, sender); errRevert != nil {
				l.logger.Errorf(
					"failed to return asset %s to %s after failed commit: %v",
					assetID, sender, errRevert,
				)
			}
		}
		return err
	}
	l.logger.Debugf("locked %d assets of %s for transfer %s", len(assetIDs), assetContract, transferID)

	return nil
}

// Release hands the given assets over to recipient and drops their escrow
// records. Every asset must be locked, otherwise nothing is released.
func (l *Ledger) Release(
	ctx context.Context,
	assetContract common.Address,
	assetIDs []*big.Int,
	recipient common.Address,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, assetID := range assetIDs {
		locked, err := l.isLocked(ctx, assetContract, assetID)
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("asset %s: %w", assetID, ErrNotLocked)
		}
	}

	// custody moves before the records are dropped: a mid-batch registry
	// failure leaves every record in place so the release can be retried
	transferred := []*big.Int{}
	revertCustody := func() {
		for _, assetID := range transferred {
			if errRevert := l.registry.TransferToEscrow(ctx, assetContract, assetID, recipient); errRevert != nil {
				l.logger.Errorf(
					"failed to return asset %s to escrow custody after aborted release: %v",
					assetID, errRevert,
				)
			}
		}
	}
	for _, assetID := range assetIDs {
		if err := l.registry.TransferFromEscrow(ctx, assetContract, assetID, recipient); err != nil {
			revertCustody()
			return fmt.Errorf("transferring asset %s out of escrow: %w", assetID, err)
		}
		transferred = append(transferred, assetID)
	}

	tx, err := db.NewTx(ctx, l.db)
	if err != nil {
		revertCustody()
		return err
	}
	for _, assetID := range assetIDs {
		_, err := tx.Exec(
			`DELETE FROM escrow WHERE asset_contract = $1 AND asset_id = $2;`,
			assetContract.Hex(), assetID.String(),
		)
		if err != nil {
			if errRllbck := tx.Rollback(); errRllbck != nil {
				l.logger.Errorf("error while rolling back release tx %v", errRllbck)
			}
			revertCustody()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		revertCustody()
		return err
	}
	l.logger.Infof("released %d assets of %s to %s", len(assetIDs), assetContract, recipient)

	return nil
}

// GetEscrow returns the escrow record of an asset, ErrNotFound if it is not locked
func (l *Ledger) GetEscrow(ctx context.Context, assetContract common.Address, assetID *big.Int) (*Record, error) {
	record := &Record{}
	err := meddler.QueryRow(l.db, record, `
		SELECT * FROM escrow WHERE asset_contract = $1 AND asset_id = $2;
	`, assetContract.Hex(), assetID.String())
	return record, db.ReturnErrNotFound(err)
}

// GetEscrowByTransfer returns all the assets locked by a transfer
func (l *Ledger) GetEscrowByTransfer(ctx context.Context, transferID common.Hash) ([]*Record, error) {
	records := []*Record{}
	err := meddler.QueryAll(l.db, &records, `
		SELECT * FROM escrow WHERE transfer_id = $1 ORDER BY asset_id;
	`, transferID.Hex())
	return records, err
}

func (l *Ledger) isLocked(ctx context.Context, assetContract common.Address, assetID *big.Int) (bool, error) {
	_, err := l.GetEscrow(ctx, assetContract, assetID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
