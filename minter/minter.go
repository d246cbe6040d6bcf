package minter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/rwabridge/bridgenode/db"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/minter/migrations"
)

// WrappedRegistry is the destination side registry the wrapped assets are
// minted on
type WrappedRegistry interface {
	Exists(ctx context.Context, assetID *big.Int) (bool, error)
	MintTo(ctx context.Context, recipient common.Address, assetID *big.Int) error
}

// Record is a wrapped asset minted by this node
type Record struct {
	AssetID    *big.Int       `meddler:"asset_id,bigint"`
	TransferID common.Hash    `meddler:"transfer_id,hash"`
	Recipient  common.Address `meddler:"recipient,address"`
}

// Minter mints wrapped assets at most once per id. It is idempotent both
// against its own minted ledger and against ids that already exist on the
// wrapped registry.
type Minter struct {
	logger   *log.Logger
	db       *sql.DB
	registry WrappedRegistry
}

// New runs the minter migrations on cfg.DBPath and returns a Minter backed by
// the given wrapped registry
func New(cfg Config, registry WrappedRegistry) (*Minter, error) {
	err := migrations.RunMigrations(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	database, err := db.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &Minter{
		logger:   log.WithFields("module", "minter"),
		db:       database,
		registry: registry,
	}, nil
}

// MintIfAbsent mints the wrapped assets that do not exist yet and returns the
// ids it actually minted. Already existing ids are skipped, never an error.
func (m *Minter) MintIfAbsent(
	ctx context.Context,
	transferID common.Hash,
	recipient common.Address,
	assetIDs []*big.Int,
) ([]*big.Int, error) {
	minted := []*big.Int{}
	for _, assetID := range assetIDs {
		alreadyMinted, err := m.isMinted(ctx, assetID)
		if err != nil {
			return minted, err
		}
		if alreadyMinted {
			m.logger.Debugf("wrapped asset %s already minted by this node, skipping", assetID)
			continue
		}
		exists, err := m.registry.Exists(ctx, assetID)
		if err != nil {
			return minted, fmt.Errorf("checking wrapped asset %s: %w", assetID, err)
		}
		if exists {
			m.logger.Debugf("wrapped asset %s already exists on the registry, skipping", assetID)
			continue
		}
		if err := m.registry.MintTo(ctx, recipient, assetID); err != nil {
			return minted, fmt.Errorf("minting wrapped asset %s: %w", assetID, err)
		}
		record := &Record{
			AssetID:    assetID,
			TransferID: transferID,
			Recipient:  recipient,
		}
		if err := meddler.Insert(m.db, "minted", record); err != nil && !db.IsUniqueConstraintErr(err) {
			return minted, err
		}
		minted = append(minted, assetID)
	}
	if len(minted) > 0 {
		m.logger.Infof("minted %d wrapped assets to %s for transfer %s", len(minted), recipient, transferID)
	}
	return minted, nil
}

// GetMinted returns the mint record of a wrapped asset, db.ErrNotFound if
// this node never minted it
func (m *Minter) GetMinted(ctx context.Context, assetID *big.Int) (*Record, error) {
	record := &Record{}
	err := meddler.QueryRow(m.db, record, `
		SELECT * FROM minted WHERE asset_id = $1;
	`, assetID.String())
	return record, db.ReturnErrNotFound(err)
}

func (m *Minter) isMinted(ctx context.Context, assetID *big.Int) (bool, error) {
	_, err := m.GetMinted(ctx, assetID)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
