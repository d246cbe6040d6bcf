package relayers

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestGrantRevoke(t *testing.T) {
	set := NewSet([]common.Address{common.HexToAddress("0x01")})

	require.True(t, set.IsRelayer(common.HexToAddress("0x01")))
	require.False(t, set.IsRelayer(common.HexToAddress("0x02")))

	set.Grant(common.HexToAddress("0x02"))
	require.True(t, set.IsRelayer(common.HexToAddress("0x02")))

	// granting twice is a no-op
	set.Grant(common.HexToAddress("0x02"))
	require.Len(t, set.List(), 2)

	require.NoError(t, set.Revoke(common.HexToAddress("0x01")))
	require.False(t, set.IsRelayer(common.HexToAddress("0x01")))
	require.ErrorIs(t, set.Revoke(common.HexToAddress("0x01")), ErrNotRelayer)
}

func TestListIsSorted(t *testing.T) {
	set := NewSet(nil)
	set.Grant(common.HexToAddress("0x03"))
	set.Grant(common.HexToAddress("0x01"))
	set.Grant(common.HexToAddress("0x02"))

	require.Equal(t, []common.Address{
		common.HexToAddress("0x01"),
		common.HexToAddress("0x02"),
		common.HexToAddress("0x03"),
	}, set.List())
}
