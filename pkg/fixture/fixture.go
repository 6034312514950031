// Package fixture wires a browser session, the dApp page object and the
// wallet helper together for one scenario test.
package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/chainsafe/dapp-e2e/internal/metrics"
	"github.com/chainsafe/dapp-e2e/pkg/browser"
	"github.com/chainsafe/dapp-e2e/pkg/config"
	"github.com/chainsafe/dapp-e2e/pkg/pages"
	"github.com/chainsafe/dapp-e2e/pkg/selectors"
	"github.com/chainsafe/dapp-e2e/pkg/wallet"
)

// ConfigEnv names the optional YAML config file read by New.
const ConfigEnv = "E2E_CONFIG"

// Fixture is everything a scenario needs. Each fixture owns its own browser
// context.
type Fixture struct {
	Config  *config.Config
	Logger  *zap.Logger
	Context browser.Context
	Page    browser.Page
	DApp    *pages.DAppPage
	Wallet  *wallet.Helper
}

// Compose builds the page object and the wallet helper over an existing
// context and dApp tab.
func Compose(cfg *config.Config, logger *zap.Logger, bctx browser.Context, page browser.Page) (*Fixture, error) {
	catalog, err := selectors.Load(cfg.Wallet.SelectorsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load selector catalogue: %w", err)
	}

	helper, err := wallet.NewHelper(bctx, catalog, cfg.Wallet, logger)
	if err != nil {
		return nil, err
	}

	dapp := pages.NewDAppPage(page, catalog,
		pages.WithLogger(logger.Named("dapp")),
		pages.WithArtifactsDir(cfg.Suite.ArtifactsDir),
		pages.WithNavigationTimeout(cfg.Browser.NavigationTimeout),
	)

	return &Fixture{
		Config:  cfg,
		Logger:  logger,
		Context: bctx,
		Page:    page,
		DApp:    dapp,
		Wallet:  helper,
	}, nil
}

// New launches a browser with the wallet extension, opens the dApp at "/"
// and registers teardown on t. Scenario tests are skipped unless
// E2E_ENABLED is set, and always under -short.
func New(t *testing.T) *Fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("browser scenarios are skipped in short mode")
	}

	cfg, err := config.Load(os.Getenv(ConfigEnv))
	require.NoError(t, err)
	if !cfg.Suite.Enabled {
		t.Skip("set E2E_ENABLED=true to run browser scenarios")
	}

	logger := zaptest.NewLogger(t)
	session, err := browser.Launch(&cfg.Browser, cfg.DApp.BaseURL, logger)
	require.NoError(t, err)

	f, err := Compose(cfg, logger, session.Context, session.Page)
	if err != nil {
		_ = session.Close()
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		f.Teardown(t)
		if err := session.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	})

	require.NoError(t, f.DApp.Navigate("/"))
	return f
}

// Teardown saves a screenshot when t failed and flushes the suite metrics.
func (f *Fixture) Teardown(t testing.TB) {
	if t.Failed() && f.Config.Suite.ScreenshotOnFailure {
		name := fmt.Sprintf("%s-%s", t.Name(), uuid.NewString())
		if _, err := f.DApp.ScreenshotOnFailure(name); err != nil {
			f.Logger.Warn("Failed to capture failure screenshot", zap.Error(err))
		}
	}

	if f.Config.Suite.MetricsFile == "" {
		return
	}
	if err := os.MkdirAll(f.Config.Suite.ArtifactsDir, 0o755); err != nil {
		f.Logger.Warn("Failed to create artifacts dir", zap.Error(err))
		return
	}
	path := filepath.Join(f.Config.Suite.ArtifactsDir, f.Config.Suite.MetricsFile)
	if err := metrics.WriteTextfile(path); err != nil {
		f.Logger.Warn("Failed to write metrics", zap.String("path", path), zap.Error(err))
	}
}

// ConnectWallet clicks Connect Wallet and approves the connection popup.
func (f *Fixture) ConnectWallet() error {
	if err := f.DApp.ClickConnectWallet(); err != nil {
		return err
	}
	return f.Wallet.ApproveConnection()
}

// ChainContext bounds an on-chain assertion by the configured transaction timeout.
func (f *Fixture) ChainContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), f.Config.Ethereum.TxTimeout)
}
