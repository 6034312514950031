package browser

import (
	"fmt"
	"os"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/pkg/config"
)

// Session owns a running driver, a persistent profile and the dApp tab.
type Session struct {
	Context Context
	Page    Page

	pw      *playwright.Playwright
	tempDir string
	logger  *zap.Logger
}

// ExtensionArgs returns the chromium flags that load an unpacked extension.
func ExtensionArgs(extensionPath string, headless bool) []string {
	if extensionPath == "" {
		return nil
	}
	args := []string{
		"--disable-extensions-except=" + extensionPath,
		"--load-extension=" + extensionPath,
	}
	if headless {
		// Extensions only load under the new headless mode.
		args = append(args, "--headless=new")
	}
	return args
}

// Launch starts chromium with a persistent profile and the wallet extension,
// and opens the dApp tab.
func Launch(cfg *config.BrowserConfig, baseURL string, logger *zap.Logger) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{pw: pw, logger: logger}

	userDataDir := cfg.UserDataDir
	if userDataDir == "" {
		userDataDir, err = os.MkdirTemp("", "dapp-e2e-profile-*")
		if err != nil {
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to create profile dir: %w", err)
		}
		s.tempDir = userDataDir
	}

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(cfg.Headless && cfg.ExtensionPath == ""),
		Args:     ExtensionArgs(cfg.ExtensionPath, cfg.Headless),
		BaseURL:  playwright.String(baseURL),
	}
	if cfg.SlowMo > 0 {
		opts.SlowMo = ms(cfg.SlowMo)
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(userDataDir, opts)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	bctx.SetDefaultNavigationTimeout(float64(cfg.NavigationTimeout.Milliseconds()))

	// The dApp tab is whatever page the profile opened with, so that it is
	// excluded from popup tracking.
	var first playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		first = pages[0]
	} else if first, err = bctx.NewPage(); err != nil {
		_ = bctx.Close()
		s.cleanup()
		return nil, fmt.Errorf("failed to open dApp tab: %w", err)
	}

	s.Context = WrapContext(bctx, URLContains(cfg.PopupURLPattern), logger)
	s.Page = WrapPage(first)

	logger.Info("Browser launched",
		zap.String("base_url", baseURL),
		zap.Bool("headless", cfg.Headless),
		zap.Bool("extension", cfg.ExtensionPath != ""),
		zap.String("profile", userDataDir),
		zap.String("popup_url_pattern", cfg.PopupURLPattern),
	)
	return s, nil
}

// Close shuts the browser and the driver down.
func (s *Session) Close() error {
	var err error
	if s.Context != nil {
		err = s.Context.Close()
	}
	s.cleanup()
	return err
}

func (s *Session) cleanup() {
	if err := s.pw.Stop(); err != nil {
		s.logger.Warn("Failed to stop playwright", zap.Error(err))
	}
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
}
