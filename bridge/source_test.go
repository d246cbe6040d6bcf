package bridge

import (
	"context"
	"math/big"
	"path"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/config/types"
	"github.com/rwabridge/bridgenode/db"
	"github.com/rwabridge/bridgenode/escrow"
	"github.com/rwabridge/bridgenode/ratelimiter"
	"github.com/rwabridge/bridgenode/registry"
	"github.com/stretchr/testify/require"
)

const (
	sourceChainID      = uint32(1)
	destinationChainID = uint32(84532)
)

var (
	testContract = common.HexToAddress("0xc0ffee")
	alice        = common.HexToAddress("0xa11ce")
	bob          = common.HexToAddress("0xb0b")
)

func ids(vals ...int64) []*big.Int {
	res := make([]*big.Int, len(vals))
	for i, v := range vals {
		res[i] = big.NewInt(v)
	}
	return res
}

func newTestSource(t *testing.T, maxPerWindow int) (*Source, *registry.Memory) {
	t.Helper()
	reg := registry.NewMemory()
	dir := t.TempDir()
	src, err := NewSource(SourceConfig{
		DBPath:  path.Join(dir, "bridge.sqlite"),
		ChainID: sourceChainID,
		RateLimiter: ratelimiter.Config{
			Window:       types.NewDuration(time.Hour),
			MaxPerWindow: maxPerWindow,
		},
		Escrow: escrow.Config{DBPath: path.Join(dir, "escrow.sqlite")},
	}, reg, nil)
	require.NoError(t, err)
	return src, reg
}

func TestInitiateBridge(t *testing.T) {
	src, reg := newTestSource(t, 10)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1, 2, 3)...)

	sub, err := src.events.Subscribe("test")
	require.NoError(t, err)

	intent, err := src.InitiateBridge(ctx, alice, testContract, ids(1, 2, 3), bob, destinationChainID)
	require.NoError(t, err)
	require.Equal(t, intent.ID(), intent.TransferID)
	require.Equal(t, uint64(0), intent.Nonce)

	// intent persisted and retrievable by id
	stored, err := src.GetTransfer(ctx, intent.TransferID)
	require.NoError(t, err)
	require.Equal(t, intent, stored)

	// assets are locked for this transfer
	record, err := src.GetEscrow(ctx, testContract, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, intent.TransferID, record.TransferID)
	require.Equal(t, alice, record.OriginalOwner)

	// event emitted
	ev := <-sub.TransferInitiated
	require.Equal(t, intent.TransferID, ev.Intent.TransferID)
}

func TestInitiateBridgeDistinctIDs(t *testing.T) {
	src, reg := newTestSource(t, 10)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1, 2)...)

	first, err := src.InitiateBridge(ctx, alice, testContract, ids(1), bob, destinationChainID)
	require.NoError(t, err)
	second, err := src.InitiateBridge(ctx, alice, testContract, ids(2), bob, destinationChainID)
	require.NoError(t, err)
	require.Equal(t, first.Nonce+1, second.Nonce)
	require.NotEqual(t, first.TransferID, second.TransferID)
}

func TestInitiateBridgeValidation(t *testing.T) {
	src, reg := newTestSource(t, 10)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1, 2)...)

	_, err := src.InitiateBridge(ctx, alice, testContract, nil, bob, destinationChainID)
	require.ErrorIs(t, err, ErrInvalidBatch)

	_, err = src.InitiateBridge(ctx, alice, testContract, ids(1), common.Address{}, destinationChainID)
	require.ErrorIs(t, err, ErrInvalidBatch)

	_, err = src.InitiateBridge(ctx, alice, testContract, ids(1, 1), bob, destinationChainID)
	require.ErrorIs(t, err, ErrInvalidBatch)

	_, err = src.InitiateBridge(ctx, alice, testContract, ids(1), bob, sourceChainID)
	require.ErrorIs(t, err, ErrSameChain)
}

func TestInitiateBridgeNotOwned(t *testing.T) {
	src, reg := newTestSource(t, 10)
	ctx := context.Background()
	reg.Seed(testContract, bob, ids(1)...)

	_, err := src.InitiateBridge(ctx, alice, testContract, ids(1), bob, destinationChainID)
	require.ErrorIs(t, err, escrow.ErrNotOwned)
}

func TestInitiateBridgeRateLimited(t *testing.T) {
	src, reg := newTestSource(t, 2)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1, 2, 3)...)

	_, err := src.InitiateBridge(ctx, alice, testContract, ids(1, 2), bob, destinationChainID)
	require.NoError(t, err)
	_, err = src.InitiateBridge(ctx, alice, testContract, ids(3), bob, destinationChainID)
	require.ErrorIs(t, err, ratelimiter.ErrRateLimitExceeded)
}

func TestInitiateBridgeRefundsBudgetOnLockFailure(t *testing.T) {
	src, reg := newTestSource(t, 2)
	ctx := context.Background()
	// alice owns nothing so the lock fails after the limiter admitted
	reg.Seed(testContract, bob, ids(1, 2)...)

	_, err := src.InitiateBridge(ctx, alice, testContract, ids(1, 2), bob, destinationChainID)
	require.ErrorIs(t, err, escrow.ErrNotOwned)

	// the failed request did not consume alice's budget
	reg.Seed(testContract, alice, ids(3, 4)...)
	_, err = src.InitiateBridge(ctx, alice, testContract, ids(3, 4), bob, destinationChainID)
	require.NoError(t, err)
}

func TestInitiateBridgeUnlocksEscrowOnStoreFailure(t *testing.T) {
	src, reg := newTestSource(t, 2)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1, 2, 3, 4)...)

	// occupy the transfer id the next initiation will get (nonce 0), so
	// persisting the intent fails after the assets were locked
	expected := &TransferIntent{
		SourceChain:      sourceChainID,
		DestinationChain: destinationChainID,
		AssetContract:    testContract,
		Sender:           alice,
		Recipient:        bob,
		AssetIDs:         ids(1, 2),
		Nonce:            0,
	}
	_, err := src.storage.db.Exec(`
		INSERT INTO transfer (transfer_id, source_chain, destination_chain, asset_contract, sender, recipient, asset_ids, nonce)
		VALUES ($1, 0, 0, '', '', '', '', 999);
	`, expected.ID().Hex())
	require.NoError(t, err)

	_, err = src.InitiateBridge(ctx, alice, testContract, ids(1, 2), bob, destinationChainID)
	require.Error(t, err)

	// assets back with the sender, no escrow records left behind
	for _, assetID := range ids(1, 2) {
		owner, err := reg.OwnerOf(ctx, testContract, assetID)
		require.NoError(t, err)
		require.Equal(t, alice, owner)
		_, err = src.GetEscrow(ctx, testContract, assetID)
		require.ErrorIs(t, err, db.ErrNotFound)
	}

	// the rate budget was refunded, a different batch fills the window
	_, err = src.InitiateBridge(ctx, alice, testContract, ids(3, 4), bob, destinationChainID)
	require.NoError(t, err)
}

func TestInitiateBridgePaused(t *testing.T) {
	src, reg := newTestSource(t, 10)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1)...)

	src.Pause()
	require.True(t, src.IsPaused())
	_, err := src.InitiateBridge(ctx, alice, testContract, ids(1), bob, destinationChainID)
	require.ErrorIs(t, err, ErrPaused)

	src.Unpause()
	_, err = src.InitiateBridge(ctx, alice, testContract, ids(1), bob, destinationChainID)
	require.NoError(t, err)
}

func TestRateLimitWindowExpiry(t *testing.T) {
	src, reg := newTestSource(t, 2)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1, 2, 3)...)

	now := time.Now()
	src.now = func() time.Time { return now }

	_, err := src.InitiateBridge(ctx, alice, testContract, ids(1, 2), bob, destinationChainID)
	require.NoError(t, err)
	_, err = src.InitiateBridge(ctx, alice, testContract, ids(3), bob, destinationChainID)
	require.ErrorIs(t, err, ratelimiter.ErrRateLimitExceeded)

	// one window later the request is admitted
	src.now = func() time.Time { return now.Add(time.Hour) }
	_, err = src.InitiateBridge(ctx, alice, testContract, ids(3), bob, destinationChainID)
	require.NoError(t, err)
}

func TestGetTransfersBySender(t *testing.T) {
	src, reg := newTestSource(t, 10)
	ctx := context.Background()
	reg.Seed(testContract, alice, ids(1, 2)...)
	reg.Seed(testContract, bob, ids(3)...)

	_, err := src.InitiateBridge(ctx, alice, testContract, ids(1), bob, destinationChainID)
	require.NoError(t, err)
	_, err = src.InitiateBridge(ctx, bob, testContract, ids(3), alice, destinationChainID)
	require.NoError(t, err)
	_, err = src.InitiateBridge(ctx, alice, testContract, ids(2), bob, destinationChainID)
	require.NoError(t, err)

	transfers, err := src.GetTransfersBySender(ctx, alice)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	require.Less(t, transfers[0].Nonce, transfers[1].Nonce)
}

func TestGetTransferNotFound(t *testing.T) {
	src, _ := newTestSource(t, 10)
	_, err := src.GetTransfer(context.Background(), common.HexToHash("0xdead"))
	require.ErrorIs(t, err, db.ErrNotFound)
}
