package bridge

import (
	"context"
	"database/sql"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/rwabridge/bridgenode/bridge/migrations"
	"github.com/rwabridge/bridgenode/db"
)

// storage persists the transfers initiated on the source side along with the
// monotonic nonce they consume
type storage struct {
	db *sql.DB
}

func newStorage(dbPath string) (*storage, error) {
	err := migrations.RunMigrations(dbPath)
	if err != nil {
		return nil, err
	}
	database, err := db.NewSQLiteDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &storage{db: database}, nil
}

func (s *storage) beginTx(ctx context.Context) (*db.Tx, error) {
	return db.NewTx(ctx, s.db)
}

// nextNonce consumes and returns the next source side nonce within tx
func (s *storage) nextNonce(tx db.Querier) (uint64, error) {
	var nonce uint64
	row := tx.QueryRow(`SELECT next_nonce FROM nonce WHERE singleton = 0;`)
	if err := row.Scan(&nonce); err != nil {
		return 0, err
	}
	_, err := tx.Exec(`UPDATE nonce SET next_nonce = next_nonce + 1 WHERE singleton = 0;`)
	return nonce, err
}

func (s *storage) addTransfer(tx db.Querier, intent *TransferIntent) error {
	return meddler.Insert(tx, "transfer", intent)
}

// GetTransfer returns an initiated transfer by id, db.ErrNotFound if unknown
func (s *storage) GetTransfer(ctx context.Context, transferID common.Hash) (*TransferIntent, error) {
	intent := &TransferIntent{}
	err := meddler.QueryRow(s.db, intent, `
		SELECT * FROM transfer WHERE transfer_id = $1;
	`, transferID.Hex())
	return intent, db.ReturnErrNotFound(err)
}

// GetTransfersBySender returns the transfers initiated by sender ordered by nonce
func (s *storage) GetTransfersBySender(ctx context.Context, sender common.Address) ([]*TransferIntent, error) {
	intents := []*TransferIntent{}
	err := meddler.QueryAll(s.db, &intents, `
		SELECT * FROM transfer WHERE sender = $1 ORDER BY nonce;
	`, sender.Hex())
	return intents, err
}
