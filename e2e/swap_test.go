package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/dapp-e2e/pkg/chain"
)

func TestTokenSwap(t *testing.T) {
	t.Run("TC-S01 swap ETH to USDC", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.DApp.FillSwapForm("ETH", "USDC", f.Config.Suite.SendAmount))
		impact, err := f.DApp.GetPriceImpact()
		require.NoError(t, err)
		assert.NotEmpty(t, impact)

		require.NoError(t, f.DApp.SubmitSwap())
		// native ETH in needs no allowance, so the first popup is the swap itself
		require.NoError(t, f.Wallet.ConfirmTransaction())
		require.NoError(t, f.DApp.WaitForTxConfirmation(f.Config.Ethereum.TxTimeout))
		assertToastContains(t, f, "success")
	})

	t.Run("TC-S02 reject swap", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.DApp.FillSwapForm("ETH", "USDC", f.Config.Suite.SendAmount))
		require.NoError(t, f.DApp.SubmitSwap())
		require.NoError(t, f.Wallet.RejectRequest())
		assertToastContains(t, f, rejectedWords...)
	})

	t.Run("TC-S03 price impact for large swap", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.DApp.FillSwapForm("ETH", "USDC", "1000"))
		impact, err := f.DApp.GetPriceImpact()
		require.NoError(t, err)

		v, err := chain.ParseDisplayAmount(impact)
		require.NoError(t, err)
		assert.True(t, v.IsPositive(), "price impact %q", impact)
	})

	t.Run("TC-S04 zero amount", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.DApp.FillSwapForm("ETH", "USDC", "0"))
		require.NoError(t, f.DApp.SubmitSwap())
		assert.True(t, f.DApp.HasErrorIndicator(indicatorTimeout))
	})

	t.Run("TC-S05 insufficient balance", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.DApp.FillSwapForm("ETH", "USDC", "999999999"))
		require.NoError(t, f.DApp.SubmitSwap())
		assert.True(t,
			f.DApp.HasErrorIndicator(indicatorTimeout) || f.DApp.HasInsufficientFundsIndicator(indicatorTimeout))
	})

	t.Run("TC-S06 approval before swap", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.DApp.FillSwapForm("USDC", "ETH", "1"))
		require.NoError(t, f.DApp.SubmitSwap())
		require.NoError(t, f.Wallet.ApproveTokenSpending())
		require.NoError(t, f.Wallet.ConfirmTransaction())
		require.NoError(t, f.DApp.WaitForTxConfirmation(f.Config.Ethereum.TxTimeout))
		assertToastContains(t, f, "success")
	})
}
