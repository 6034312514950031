package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chainsafe/dapp-e2e/pkg/browser/browsertest"
	"github.com/chainsafe/dapp-e2e/pkg/config"
	"github.com/chainsafe/dapp-e2e/pkg/wallet"
)

func compose(t *testing.T) (*Fixture, *browsertest.Context, *browsertest.Page) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Suite.ArtifactsDir = t.TempDir()

	bctx := browsertest.NewContext()
	page := browsertest.NewPage()
	f, err := Compose(cfg, zaptest.NewLogger(t), bctx, page)
	require.NoError(t, err)
	return f, bctx, page
}

func TestCompose_ConnectWallet(t *testing.T) {
	f, bctx, page := compose(t)
	popup := browsertest.NewPage().Show(`button:has-text("Connect")`, "Connect")
	popup.CloseOnClick = true
	page.Show(`[data-testid="connect-wallet"]`, "Connect Wallet")
	page.OnClick = func(string) { bctx.Open(popup) }

	require.NoError(t, f.DApp.Navigate("/"))
	require.NoError(t, f.ConnectWallet())

	assert.Equal(t, []string{"/"}, page.Gotos)
	assert.Equal(t, []string{`[data-testid="connect-wallet"]`}, page.Clicks)
	assert.True(t, popup.IsClosed())
	assert.Equal(t, wallet.StatePopupClosed, f.Wallet.State())
}

func TestCompose_BadSelectorFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Wallet.SelectorsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err = Compose(cfg, zaptest.NewLogger(t), browsertest.NewContext(), browsertest.NewPage())
	assert.Error(t, err)
}

func TestTeardown_WritesMetrics(t *testing.T) {
	f, _, page := compose(t)

	f.Teardown(t)

	assert.Empty(t, page.Screenshots)
	data, err := os.ReadFile(filepath.Join(f.Config.Suite.ArtifactsDir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "devnet_head_block")
}

func TestTeardown_ScreenshotOnFailure(t *testing.T) {
	f, _, page := compose(t)
	ft := &failedT{TB: t}

	f.Teardown(ft)

	require.Len(t, page.Screenshots, 1)
	assert.Equal(t, f.Config.Suite.ArtifactsDir, filepath.Dir(page.Screenshots[0]))
	assert.Contains(t, filepath.Base(page.Screenshots[0]), "TestTeardown_ScreenshotOnFailure-")
}

type failedT struct {
	testing.TB
}

func (failedT) Failed() bool { return true }
