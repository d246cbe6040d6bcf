package db

import (
	"context"
	"database/sql"
)

// Tx is a sql.Tx that can carry hooks to run once the outcome of the
// transaction is known
type Tx struct {
	*sql.Tx
	rollbackCallbacks []func()
	commitCallbacks   []func()
}

// NewTx opens a transaction on db
func NewTx(ctx context.Context, db *sql.DB) (*Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx}, nil
}

// AddRollbackCallback registers cb to run after a successful rollback
func (t *Tx) AddRollbackCallback(cb func()) {
	t.rollbackCallbacks = append(t.rollbackCallbacks, cb)
}

// AddCommitCallback registers cb to run after a successful commit
func (t *Tx) AddCommitCallback(cb func()) {
	t.commitCallbacks = append(t.commitCallbacks, cb)
}

func (t *Tx) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		return err
	}
	for _, cb := range t.commitCallbacks {
		cb()
	}
	return nil
}

func (t *Tx) Rollback() error {
	if err := t.Tx.Rollback(); err != nil {
		return err
	}
	for _, cb := range t.rollbackCallbacks {
		cb()
	}
	return nil
}
