package bridge

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPublish(t *testing.T) {
	b := NewBroadcaster()

	sub1, err := b.Subscribe("sub1")
	require.NoError(t, err)
	sub2, err := b.Subscribe("sub2")
	require.NoError(t, err)
	_, err = b.Subscribe("sub1")
	require.ErrorIs(t, err, ErrAlreadySubscribed)

	ev := RelayerApprovedEvent{
		TransferID: common.HexToHash("0x01"),
		Relayer:    common.HexToAddress("0x02"),
		Count:      1,
	}
	b.publishRelayerApproved(ev)

	require.Equal(t, ev, <-sub1.RelayerApproved)
	require.Equal(t, ev, <-sub2.RelayerApproved)
}

func TestUnsubscribeClosesChannels(t *testing.T) {
	b := NewBroadcaster()
	sub, err := b.Subscribe("sub")
	require.NoError(t, err)

	b.Unsubscribe("sub")
	_, ok := <-sub.WrappedMinted
	require.False(t, ok)

	// publishing after unsubscribe does not panic
	b.publishWrappedMinted(WrappedMintedEvent{})
	// unsubscribing twice is a no-op
	b.Unsubscribe("sub")
}
