package e2e

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/dapp-e2e/pkg/chain"
	"github.com/chainsafe/dapp-e2e/pkg/fixture"
)

func mint(t *testing.T, f *fixture.Fixture) {
	t.Helper()
	require.NoError(t, f.DApp.ClickMint())
	require.NoError(t, f.Wallet.ConfirmTransaction())
	require.NoError(t, f.DApp.WaitForTxConfirmation(f.Config.Ethereum.TxTimeout))
}

func TestNFTMint(t *testing.T) {
	t.Run("TC-N01 mint", func(t *testing.T) {
		f := connected(t)

		mint(t, f)
		assertToastContains(t, f, "success", "minted")
	})

	t.Run("TC-N02 gallery grows", func(t *testing.T) {
		f := connected(t)
		before, err := f.DApp.GetNftCount()
		if err != nil {
			// an empty wallet may not render the gallery at all
			before = 0
		}

		mint(t, f)

		after, err := f.DApp.GetNftCount()
		require.NoError(t, err)
		assert.Greater(t, after, before)
	})

	t.Run("TC-N03 reject mint", func(t *testing.T) {
		f := connected(t)

		require.NoError(t, f.DApp.ClickMint())
		require.NoError(t, f.Wallet.RejectRequest())
		assertToastContains(t, f, rejectedWords...)
	})

	t.Run("TC-N04 ownership on-chain", func(t *testing.T) {
		f := connected(t)
		contract := common.HexToAddress(f.Config.DApp.NFTContract)
		if contract == (common.Address{}) {
			t.Skip("NFT_CONTRACT not set")
		}
		requireChain(t, f)

		mint(t, f)

		owner, err := f.DApp.GetConnectedAddress()
		require.NoError(t, err)
		hash, err := f.DApp.GetLastTxHash()
		require.NoError(t, err)
		require.True(t, chain.IsValidTxHash(hash), "tx hash %q", hash)

		ctx, cancel := f.ChainContext()
		defer cancel()
		receipt, err := chain.WaitForTx(ctx, f.Config.Ethereum.RPCURL, hash, 1)
		require.NoError(t, err)

		ids := chain.MintedTokenIDs(receipt, contract)
		require.NotEmpty(t, ids, "no mint event from %s in %s", contract.Hex(), hash)
		for _, id := range ids {
			got, err := chain.GetNftOwner(ctx, f.Config.Ethereum.RPCURL, contract.Hex(), id)
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(owner), strings.ToLower(got.Hex()), "token %s", id)
		}
	})

	t.Run("TC-N05 mint disabled before connecting", func(t *testing.T) {
		f := fixture.New(t)

		if !f.DApp.IsAnyVisible(f.DApp.Catalog().DApp.MintButton, indicatorTimeout) {
			t.Skip("mint button hidden until a wallet connects")
		}
		disabled, err := f.DApp.IsMintDisabled()
		require.NoError(t, err)
		assert.True(t, disabled)
	})
}
