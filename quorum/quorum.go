package quorum

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/rwabridge/bridgenode/db"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/quorum/migrations"
)

var (
	// ErrDuplicateAttestation is returned when a relayer attests the same
	// transfer twice
	ErrDuplicateAttestation = errors.New("relayer already attested this transfer")
	// ErrAlreadyProcessed is returned when attesting a transfer whose quorum
	// has already been reached and executed
	ErrAlreadyProcessed = errors.New("transfer already processed")
	// ErrInvalidRequiredApprovals is returned when setting the quorum size to 0
	ErrInvalidRequiredApprovals = errors.New("required approvals must be greater than 0")
	// ErrNotFound is returned when a transfer has no approval state yet
	ErrNotFound = db.ErrNotFound
)

// State is the approval state of a single transfer
type State struct {
	TransferID common.Hash `meddler:"transfer_id,hash"`
	Count      uint32      `meddler:"count"`
	Processed  bool        `meddler:"processed"`
}

// Quorum tracks relayer attestations per transfer and flips each transfer to
// processed exactly once, when the count of distinct relayers reaches the
// required amount
type Quorum struct {
	logger   *log.Logger
	db       *sql.DB
	required atomic.Uint32

	// locksMu guards locks, each transfer gets its own mutex so attestations
	// for different transfers do not serialize
	locksMu sync.Mutex
	locks   map[common.Hash]*sync.Mutex
}

// New runs the quorum migrations on cfg.DBPath and returns a Quorum requiring
// cfg.RequiredApprovals distinct relayers per transfer
func New(cfg Config) (*Quorum, error) {
	if cfg.RequiredApprovals == 0 {
		return nil, ErrInvalidRequiredApprovals
	}
	err := migrations.RunMigrations(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	database, err := db.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	q := &Quorum{
		logger: log.WithFields("module", "quorum"),
		db:     database,
		locks:  make(map[common.Hash]*sync.Mutex),
	}
	q.required.Store(cfg.RequiredApprovals)
	return q, nil
}

func (q *Quorum) lockFor(transferID common.Hash) *sync.Mutex {
	q.locksMu.Lock()
	defer q.locksMu.Unlock()
	lock, ok := q.locks[transferID]
	if !ok {
		lock = &sync.Mutex{}
		q.locks[transferID] = lock
	}
	return lock
}

// Attest records an attestation of relayer for transferID. When the
// attestation completes the quorum, onQuorum is invoked before the processed
// flag is committed: if onQuorum fails nothing is recorded and the transfer
// stays collecting.
func (q *Quorum) Attest(
	ctx context.Context,
	transferID common.Hash,
	relayer common.Address,
	onQuorum func(ctx context.Context) error,
) (*State, error) {
	lock := q.lockFor(transferID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := db.NewTx(ctx, q.db)
	if err != nil {
		return nil, err
	}
	shouldRollback := true
	defer func() {
		if shouldRollback {
			if errRllbck := tx.Rollback(); errRllbck != nil {
				q.logger.Errorf("error while rolling back attest tx %v", errRllbck)
			}
		}
	}()

	state := &State{TransferID: transferID}
	err = meddler.QueryRow(tx, state, `
		SELECT * FROM approval WHERE transfer_id = $1;
	`, transferID.Hex())
	existed := true
	if errors.Is(err, sql.ErrNoRows) {
		existed = false
		state = &State{TransferID: transferID}
	} else if err != nil {
		return nil, err
	}
	if state.Processed {
		return nil, fmt.Errorf("transfer %s: %w", transferID, ErrAlreadyProcessed)
	}

	// the approval row must exist before its relayer rows
	if !existed {
		if err := meddler.Insert(tx, "approval", state); err != nil {
			return nil, err
		}
	}
	_, err = tx.Exec(
		`INSERT INTO approval_relayer (transfer_id, relayer) VALUES ($1, $2);`,
		transferID.Hex(), relayer.Hex(),
	)
	if err != nil {
		if db.IsUniqueConstraintErr(err) {
			return nil, fmt.Errorf("transfer %s relayer %s: %w", transferID, relayer, ErrDuplicateAttestation)
		}
		return nil, err
	}

	state.Count++
	if state.Count >= q.required.Load() {
		state.Processed = true
	}
	_, err = tx.Exec(
		`UPDATE approval SET count = $1, processed = $2 WHERE transfer_id = $3;`,
		state.Count, state.Processed, transferID.Hex(),
	)
	if err != nil {
		return nil, err
	}

	if state.Processed && onQuorum != nil {
		if err := onQuorum(ctx); err != nil {
			return nil, fmt.Errorf("executing quorum action for transfer %s: %w", transferID, err)
		}
	}

	shouldRollback = false
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	q.logger.Debugf(
		"attestation recorded: transfer %s relayer %s count %d processed %t",
		transferID, relayer, state.Count, state.Processed,
	)

	return state, nil
}

// GetState returns the approval state of a transfer, ErrNotFound if no
// relayer has attested it yet
func (q *Quorum) GetState(ctx context.Context, transferID common.Hash) (*State, error) {
	state := &State{}
	err := meddler.QueryRow(q.db, state, `
		SELECT * FROM approval WHERE transfer_id = $1;
	`, transferID.Hex())
	return state, db.ReturnErrNotFound(err)
}

// GetApprovers returns the relayers that have attested a transfer
func (q *Quorum) GetApprovers(ctx context.Context, transferID common.Hash) ([]common.Address, error) {
	rows, err := q.db.Query(`
		SELECT relayer FROM approval_relayer WHERE transfer_id = $1 ORDER BY relayer;
	`, transferID.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	approvers := []common.Address{}
	for rows.Next() {
		var relayer string
		if err := rows.Scan(&relayer); err != nil {
			return nil, err
		}
		approvers = append(approvers, common.HexToAddress(relayer))
	}
	return approvers, rows.Err()
}

// Discard marks a stuck transfer as processed without executing anything, so
// late attestations are rejected. Meant for operator intervention after the
// source side assets have been manually released.
func (q *Quorum) Discard(ctx context.Context, transferID common.Hash) error {
	lock := q.lockFor(transferID)
	lock.Lock()
	defer lock.Unlock()

	state, err := q.GetState(ctx, transferID)
	if errors.Is(err, ErrNotFound) {
		state = &State{TransferID: transferID, Processed: true}
		tx, err := db.NewTx(ctx, q.db)
		if err != nil {
			return err
		}
		if err := meddler.Insert(tx, "approval", state); err != nil {
			if errRllbck := tx.Rollback(); errRllbck != nil {
				q.logger.Errorf("error while rolling back discard tx %v", errRllbck)
			}
			return err
		}
		return tx.Commit()
	}
	if err != nil {
		return err
	}
	if state.Processed {
		return fmt.Errorf("transfer %s: %w", transferID, ErrAlreadyProcessed)
	}
	_, err = q.db.Exec(
		`UPDATE approval SET processed = 1 WHERE transfer_id = $1;`,
		transferID.Hex(),
	)
	if err != nil {
		return err
	}
	q.logger.Warnf("transfer %s discarded with %d/%d approvals", transferID, state.Count, q.required.Load())
	return nil
}

// SetRequiredApprovals changes the quorum size for subsequent attestations.
// Transfers already collecting are evaluated against the new size on their
// next attestation.
func (q *Quorum) SetRequiredApprovals(n uint32) error {
	if n == 0 {
		return ErrInvalidRequiredApprovals
	}
	old := q.required.Swap(n)
	q.logger.Infof("required approvals changed from %d to %d", old, n)
	return nil
}

// RequiredApprovals returns the current quorum size
func (q *Quorum) RequiredApprovals() uint32 {
	return q.required.Load()
}
