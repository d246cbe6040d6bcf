package rpc

import (
	"math/big"
	"path"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rwabridge/bridgenode/bridge"
	configTypes "github.com/rwabridge/bridgenode/config/types"
	"github.com/rwabridge/bridgenode/escrow"
	"github.com/rwabridge/bridgenode/log"
	"github.com/rwabridge/bridgenode/minter"
	"github.com/rwabridge/bridgenode/quorum"
	"github.com/rwabridge/bridgenode/ratelimiter"
	"github.com/rwabridge/bridgenode/registry"
	"github.com/rwabridge/bridgenode/rpc/types"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0xc0ffee")
	alice        = common.HexToAddress("0xa11ce")
	bob          = common.HexToAddress("0xb0b")
	relayer1     = common.HexToAddress("0x01")
	relayer2     = common.HexToAddress("0x02")
)

func ids(vals ...int64) []*big.Int {
	res := make([]*big.Int, len(vals))
	for i, v := range vals {
		res[i] = big.NewInt(v)
	}
	return res
}

func newTestEndpoints(t *testing.T) (*BridgeEndpoints, *AdminEndpoints, *registry.Memory) {
	t.Helper()
	dir := t.TempDir()
	reg := registry.NewMemory()
	events := bridge.NewBroadcaster()

	source, err := bridge.NewSource(bridge.SourceConfig{
		DBPath:  path.Join(dir, "bridge.sqlite"),
		ChainID: 1,
		RateLimiter: ratelimiter.Config{
			Window:       configTypes.NewDuration(time.Hour),
			MaxPerWindow: 10,
		},
		Escrow: escrow.Config{DBPath: path.Join(dir, "escrow.sqlite")},
	}, reg, events)
	require.NoError(t, err)

	destination, err := bridge.NewDestination(bridge.DestinationConfig{
		ChainID: 84532,
		Quorum: quorum.Config{
			DBPath:            path.Join(dir, "quorum.sqlite"),
			RequiredApprovals: 2,
		},
		Minter:   minter.Config{DBPath: path.Join(dir, "minter.sqlite")},
		Relayers: []common.Address{relayer1, relayer2},
	}, reg, events)
	require.NoError(t, err)

	logger := log.WithFields("test", "rpc")
	b := NewBridgeEndpoints(logger, time.Second*2, time.Second*2, source, destination)
	a := NewAdminEndpoints(logger, time.Second*2, source, destination)
	return b, a, reg
}

func TestInitiateAndRelayEndpoints(t *testing.T) {
	b, _, reg := newTestEndpoints(t)
	reg.Seed(testContract, alice, ids(1, 2)...)

	res, err := b.InitiateBridge(types.InitiateBridgeRequest{
		Sender:           alice,
		AssetContract:    testContract,
		AssetIDs:         ids(1, 2),
		Recipient:        bob,
		DestinationChain: 84532,
	})
	require.Nil(t, err)
	intent, ok := res.(*bridge.TransferIntent)
	require.True(t, ok)

	res, err = b.GetTransfer(intent.TransferID)
	require.Nil(t, err)
	require.Equal(t, intent, res)

	res, err = b.RelayApproveAndMint(types.RelayRequest{
		Relayer:    relayer1,
		TransferID: intent.TransferID,
		Recipient:  bob,
		AssetIDs:   intent.AssetIDs,
	})
	require.Nil(t, err)
	attestation, ok := res.(types.AttestationResponse)
	require.True(t, ok)
	require.False(t, attestation.Processed)

	res, err = b.RelayApproveAndMint(types.RelayRequest{
		Relayer:    relayer2,
		TransferID: intent.TransferID,
		Recipient:  bob,
		AssetIDs:   intent.AssetIDs,
	})
	require.Nil(t, err)
	attestation, ok = res.(types.AttestationResponse)
	require.True(t, ok)
	require.True(t, attestation.Processed)
	require.Equal(t, ids(1, 2), attestation.MintedAssetIDs)

	res, err = b.GetApprovalState(intent.TransferID)
	require.Nil(t, err)
	state, ok := res.(types.ApprovalStateResponse)
	require.True(t, ok)
	require.True(t, state.Processed)
	require.Equal(t, []common.Address{relayer1, relayer2}, state.Approvers)
}

func TestEndpointErrors(t *testing.T) {
	b, _, _ := newTestEndpoints(t)

	// unknown transfer
	_, err := b.GetTransfer(common.HexToHash("0xdead"))
	require.NotNil(t, err)

	// invalid batch
	_, err = b.InitiateBridge(types.InitiateBridgeRequest{
		Sender:           alice,
		AssetContract:    testContract,
		Recipient:        bob,
		DestinationChain: 84532,
	})
	require.NotNil(t, err)

	// unauthorized relayer
	_, err = b.RelayApproveAndMint(types.RelayRequest{
		Relayer:    common.HexToAddress("0xbad"),
		TransferID: common.HexToHash("0x01"),
		Recipient:  bob,
		AssetIDs:   ids(1),
	})
	require.NotNil(t, err)
}

func TestAdminEndpoints(t *testing.T) {
	b, a, reg := newTestEndpoints(t)
	reg.Seed(testContract, alice, ids(1)...)

	// pause blocks initiations on both sides
	res, err := a.Pause()
	require.Nil(t, err)
	status, ok := res.(types.PausedStatus)
	require.True(t, ok)
	require.True(t, *status.Source)
	require.True(t, *status.Destination)

	_, err = b.InitiateBridge(types.InitiateBridgeRequest{
		Sender:           alice,
		AssetContract:    testContract,
		AssetIDs:         ids(1),
		Recipient:        bob,
		DestinationChain: 84532,
	})
	require.NotNil(t, err)

	_, err = a.Unpause()
	require.Nil(t, err)

	// rate limit config round trip
	res, err = a.SetRateLimit(types.RateLimitConfig{WindowSeconds: 60, MaxPerWindow: 3})
	require.Nil(t, err)
	limit, ok := res.(types.RateLimitConfig)
	require.True(t, ok)
	require.Equal(t, uint64(60), limit.WindowSeconds)
	require.Equal(t, 3, limit.MaxPerWindow)

	// quorum size
	res, err = a.SetRequiredApprovals(3)
	require.Nil(t, err)
	require.Equal(t, uint32(3), res)
	_, err = a.SetRequiredApprovals(0)
	require.NotNil(t, err)

	// relayer set management
	res, err = a.GrantRelayer(common.HexToAddress("0x03"))
	require.Nil(t, err)
	relayersList, ok := res.([]common.Address)
	require.True(t, ok)
	require.Len(t, relayersList, 3)

	_, err = a.RevokeRelayer(common.HexToAddress("0x03"))
	require.Nil(t, err)
	_, err = a.RevokeRelayer(common.HexToAddress("0x03"))
	require.NotNil(t, err)
}

func TestAdminEscrowIntervention(t *testing.T) {
	b, a, reg := newTestEndpoints(t)
	reg.Seed(testContract, alice, ids(1)...)

	res, err := b.InitiateBridge(types.InitiateBridgeRequest{
		Sender:           alice,
		AssetContract:    testContract,
		AssetIDs:         ids(1),
		Recipient:        bob,
		DestinationChain: 84532,
	})
	require.Nil(t, err)
	intent := res.(*bridge.TransferIntent)

	_, err = a.DiscardTransfer(intent.TransferID)
	require.Nil(t, err)

	_, err = a.ReleaseEscrow(types.ReleaseEscrowRequest{
		AssetContract: testContract,
		AssetIDs:      ids(1),
		Recipient:     alice,
	})
	require.Nil(t, err)

	_, err = b.GetEscrow(testContract, big.NewInt(1))
	require.NotNil(t, err)
}

func TestEndpointsWithoutComponents(t *testing.T) {
	logger := log.WithFields("test", "rpc")
	b := NewBridgeEndpoints(logger, time.Second, time.Second, nil, nil)
	a := NewAdminEndpoints(logger, time.Second, nil, nil)

	_, err := b.InitiateBridge(types.InitiateBridgeRequest{})
	require.NotNil(t, err)
	_, err = b.RelayApproveAndMint(types.RelayRequest{})
	require.NotNil(t, err)
	_, err = a.SetRateLimit(types.RateLimitConfig{})
	require.NotNil(t, err)
	_, err = a.SetRequiredApprovals(2)
	require.NotNil(t, err)
}
