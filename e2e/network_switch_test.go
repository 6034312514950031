package e2e

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkSwitch(t *testing.T) {
	t.Run("TC-NS01 approve switch", func(t *testing.T) {
		f := connected(t)
		before, err := f.DApp.GetNetworkName()
		require.NoError(t, err)

		require.NoError(t, f.Wallet.ApproveNetworkSwitch())

		after, err := f.DApp.GetNetworkName()
		require.NoError(t, err)
		assert.NotEmpty(t, after)
		assert.NotEqual(t, strings.ToLower(before), strings.ToLower(after))
	})

	t.Run("TC-NS02 reject switch", func(t *testing.T) {
		f := connected(t)
		before, err := f.DApp.GetNetworkName()
		require.NoError(t, err)

		require.NoError(t, f.Wallet.RejectRequest())

		after, err := f.DApp.GetNetworkName()
		require.NoError(t, err)
		assert.Equal(t, strings.ToLower(before), strings.ToLower(after))
	})

	t.Run("TC-NS03 balance refreshes", func(t *testing.T) {
		f := connected(t)
		_, err := f.DApp.GetBalance()
		require.NoError(t, err)

		require.NoError(t, f.Wallet.ApproveNetworkSwitch())

		bal, err := f.DApp.GetBalance()
		require.NoError(t, err)
		assertNonNegativeAmount(t, bal)
	})

	t.Run("TC-NS04 stays connected", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.Wallet.ApproveNetworkSwitch())

		assert.True(t, f.DApp.IsWalletConnected())
		addr, err := f.DApp.GetConnectedAddress()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(addr, "0x"), "address %q", addr)
	})

	t.Run("TC-NS05 unsupported network warning", func(t *testing.T) {
		f := connected(t)

		if !f.DApp.HasWrongNetworkIndicator(10 * time.Second) {
			t.Skip("wallet is on a supported network")
		}
		assertToastContains(t, f, "unsupported", "wrong network", "switch")
	})

	t.Run("TC-NS06 transaction blocked on wrong network", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.Wallet.ApproveNetworkSwitch())
		require.NoError(t, f.DApp.FillTransferForm(f.Config.DApp.Recipient, f.Config.Suite.SendAmount))
		require.NoError(t, f.DApp.SubmitTransfer())

		blocked := f.DApp.HasErrorIndicator(10*time.Second) || f.DApp.HasWrongNetworkIndicator(time.Second)
		assert.True(t, blocked)
	})

	t.Run("TC-NS07 rapid switching", func(t *testing.T) {
		f := connected(t)

		for i := 0; i < 3; i++ {
			require.NoError(t, f.Wallet.ApproveNetworkSwitch(), "switch %d", i+1)
		}

		assert.True(t, f.DApp.IsWalletConnected())
		network, err := f.DApp.GetNetworkName()
		require.NoError(t, err)
		assert.NotEmpty(t, network)
	})
}
