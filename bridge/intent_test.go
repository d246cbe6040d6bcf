package bridge

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testIntent() *TransferIntent {
	return &TransferIntent{
		SourceChain:      1,
		DestinationChain: 84532,
		AssetContract:    common.HexToAddress("0xc0ffee"),
		Sender:           common.HexToAddress("0xa11ce"),
		Recipient:        common.HexToAddress("0xb0b"),
		AssetIDs:         []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
		Nonce:            7,
	}
}

func TestIDIsDeterministic(t *testing.T) {
	a := testIntent()
	b := testIntent()
	require.Equal(t, a.ID(), b.ID())
	require.NotEqual(t, common.Hash{}, a.ID())
}

func TestIDChangesWithEveryField(t *testing.T) {
	base := testIntent().ID()

	modified := testIntent()
	modified.SourceChain = 2
	require.NotEqual(t, base, modified.ID())

	modified = testIntent()
	modified.DestinationChain = 10
	require.NotEqual(t, base, modified.ID())

	modified = testIntent()
	modified.AssetContract = common.HexToAddress("0xdead")
	require.NotEqual(t, base, modified.ID())

	modified = testIntent()
	modified.Sender = common.HexToAddress("0xdead")
	require.NotEqual(t, base, modified.ID())

	modified = testIntent()
	modified.Recipient = common.HexToAddress("0xdead")
	require.NotEqual(t, base, modified.ID())

	modified = testIntent()
	modified.Nonce = 8
	require.NotEqual(t, base, modified.ID())

	modified = testIntent()
	modified.AssetIDs = []*big.Int{big.NewInt(1), big.NewInt(2)}
	require.NotEqual(t, base, modified.ID())
}

func TestIDIsOrderSensitive(t *testing.T) {
	a := testIntent()
	b := testIntent()
	b.AssetIDs = []*big.Int{big.NewInt(3), big.NewInt(2), big.NewInt(1)}
	require.NotEqual(t, a.ID(), b.ID())
}
