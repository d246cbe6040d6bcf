package minter

import (
	"context"
	"math/big"
	"path"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/db"
	"github.com/rwabridge/bridgenode/registry"
	"github.com/stretchr/testify/require"
)

var (
	transferID = common.HexToHash("0xbeef")
	recipient  = common.HexToAddress("0xb0b")
)

func newTestMinter(t *testing.T) (*Minter, *registry.Memory) {
	t.Helper()
	reg := registry.NewMemory()
	m, err := New(Config{
		DBPath: path.Join(t.TempDir(), "minter.sqlite"),
	}, reg)
	require.NoError(t, err)
	return m, reg
}

func ids(vals ...int64) []*big.Int {
	res := make([]*big.Int, len(vals))
	for i, v := range vals {
		res[i] = big.NewInt(v)
	}
	return res
}

func TestMintIfAbsent(t *testing.T) {
	m, reg := newTestMinter(t)
	ctx := context.Background()

	minted, err := m.MintIfAbsent(ctx, transferID, recipient, ids(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, ids(1, 2, 3), minted)

	for _, id := range ids(1, 2, 3) {
		owner, ok := reg.WrappedOwnerOf(id)
		require.True(t, ok)
		require.Equal(t, recipient, owner)

		record, err := m.GetMinted(ctx, id)
		require.NoError(t, err)
		require.Equal(t, transferID, record.TransferID)
	}
}

func TestMintIsIdempotent(t *testing.T) {
	m, _ := newTestMinter(t)
	ctx := context.Background()

	minted, err := m.MintIfAbsent(ctx, transferID, recipient, ids(1, 2))
	require.NoError(t, err)
	require.Len(t, minted, 2)

	// replay mints nothing and does not fail
	minted, err = m.MintIfAbsent(ctx, transferID, recipient, ids(1, 2))
	require.NoError(t, err)
	require.Empty(t, minted)
}

func TestMintSkipsIdsExistingOnRegistry(t *testing.T) {
	m, reg := newTestMinter(t)
	ctx := context.Background()

	// id 2 was minted outside this node
	require.NoError(t, reg.MintTo(ctx, common.HexToAddress("0xdead"), big.NewInt(2)))

	minted, err := m.MintIfAbsent(ctx, transferID, recipient, ids(1, 2, 3))
	require.NoError(t, err)
	require.Equal(t, ids(1, 3), minted)

	// externally minted ids are not recorded as ours
	_, err = m.GetMinted(ctx, big.NewInt(2))
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestMintPartialFailureKeepsMintedRecords(t *testing.T) {
	m, reg := newTestMinter(t)
	ctx := context.Background()

	minted, err := m.MintIfAbsent(ctx, transferID, recipient, ids(1))
	require.NoError(t, err)
	require.Len(t, minted, 1)

	// a later batch replaying id 1 plus new ids mints only the new ones
	minted, err = m.MintIfAbsent(ctx, transferID, recipient, ids(1, 4))
	require.NoError(t, err)
	require.Equal(t, ids(4), minted)

	owner, ok := reg.WrappedOwnerOf(big.NewInt(4))
	require.True(t, ok)
	require.Equal(t, recipient, owner)
}
