package db

import (
	"context"
	"path"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Write transactions on distinct rows run from concurrent goroutines must
// queue behind SQLite's single writer instead of failing with
// "database is locked".
func TestConcurrentWriteTxs(t *testing.T) {
	database, err := NewSQLiteDB(path.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	_, err = database.Exec(`CREATE TABLE kv (k INTEGER PRIMARY KEY, v INTEGER NOT NULL);`)
	require.NoError(t, err)

	ctx := context.Background()
	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := NewTx(ctx, database)
			if err != nil {
				errs <- err
				return
			}
			if _, err := tx.Exec(`INSERT INTO kv (k, v) VALUES ($1, $2);`, i, i); err != nil {
				_ = tx.Rollback()
				errs <- err
				return
			}
			errs <- tx.Commit()
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM kv;`).Scan(&count))
	require.Equal(t, writers, count)
}
