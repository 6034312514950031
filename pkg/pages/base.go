// Package pages contains the page objects that drive the dApp front end.
//
// Reads wait for their element and fail with a CategoryElementNotFound error
// when it never shows. Writes only report driver failures; whether the dApp
// accepted the input is observed afterwards through toasts and indicators.
package pages

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/internal/metrics"
	apperrors "github.com/chainsafe/dapp-e2e/pkg/app/errors"
	"github.com/chainsafe/dapp-e2e/pkg/browser"
	"github.com/chainsafe/dapp-e2e/pkg/selectors"
)

// Defaults used when no option overrides them.
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultTxTimeout         = 60 * time.Second
	DefaultToastTimeout      = 10 * time.Second
	DefaultActionTimeout     = 10 * time.Second
	DefaultArtifactsDir      = "test-results"
)

// BasePage holds the navigation and indicator helpers shared by every page object.
type BasePage struct {
	page         browser.Page
	sel          *selectors.Catalog
	logger       *zap.Logger
	artifactsDir string
	navTimeout   time.Duration
}

// Option configures a page object.
type Option func(*BasePage)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *BasePage) { b.logger = logger }
}

// WithArtifactsDir sets where ScreenshotOnFailure writes.
func WithArtifactsDir(dir string) Option {
	return func(b *BasePage) { b.artifactsDir = dir }
}

// WithNavigationTimeout bounds Navigate's load-state wait.
func WithNavigationTimeout(d time.Duration) Option {
	return func(b *BasePage) { b.navTimeout = d }
}

func newBasePage(page browser.Page, catalog *selectors.Catalog, opts ...Option) BasePage {
	b := BasePage{
		page:         page,
		sel:          catalog,
		logger:       zap.NewNop(),
		artifactsDir: DefaultArtifactsDir,
		navTimeout:   DefaultNavigationTimeout,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Page returns the underlying browser page.
func (b *BasePage) Page() browser.Page {
	return b.page
}

// Catalog returns the selector catalogue the page object resolves against.
func (b *BasePage) Catalog() *selectors.Catalog {
	return b.sel
}

// Navigate opens path relative to the dApp base URL and waits for the
// network to go idle.
func (b *BasePage) Navigate(path string) error {
	if path == "" {
		path = "/"
	}
	if err := b.page.Goto(path); err != nil {
		return classify(err, "navigate to "+path, "")
	}
	if err := b.page.WaitForNetworkIdle(b.navTimeout); err != nil {
		return classify(err, "wait for network idle", "")
	}
	b.logger.Debug("Navigated", zap.String("path", path))
	return nil
}

// Reload reloads the current page and waits for the network to go idle.
func (b *BasePage) Reload() error {
	if err := b.page.Reload(); err != nil {
		return classify(err, "reload", "")
	}
	if err := b.page.WaitForNetworkIdle(b.navTimeout); err != nil {
		return classify(err, "wait for network idle", "")
	}
	return nil
}

// WaitForTxConfirmation waits for the dApp's transaction success indicator.
// A non-positive timeout uses DefaultTxTimeout.
func (b *BasePage) WaitForTxConfirmation(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	sel := b.sel.Base.TxSuccess.Join()
	if err := b.page.WaitVisible(sel, timeout); err != nil {
		return classify(err, "wait for transaction confirmation", sel)
	}
	return nil
}

// GetToastMessage returns the text of the first visible toast or alert.
func (b *BasePage) GetToastMessage() (string, error) {
	return b.read("toast", b.sel.Base.Toast, DefaultToastTimeout)
}

// IsAnyVisible reports whether any selector in list becomes visible within timeout.
func (b *BasePage) IsAnyVisible(list selectors.List, timeout time.Duration) bool {
	if len(list) == 0 {
		return false
	}
	return b.page.IsVisible(list.Join(), timeout)
}

// HasErrorIndicator reports whether the dApp shows a generic error.
func (b *BasePage) HasErrorIndicator(timeout time.Duration) bool {
	return b.IsAnyVisible(b.sel.Base.Error, timeout)
}

// HasInsufficientFundsIndicator reports whether the dApp shows an insufficient-funds error.
func (b *BasePage) HasInsufficientFundsIndicator(timeout time.Duration) bool {
	return b.IsAnyVisible(b.sel.Base.InsufficientFunds, timeout)
}

// HasWrongNetworkIndicator reports whether the dApp shows an unsupported-network warning.
func (b *BasePage) HasWrongNetworkIndicator(timeout time.Duration) bool {
	return b.IsAnyVisible(b.sel.Base.WrongNetwork, timeout)
}

// ScreenshotOnFailure writes a full-page screenshot to <artifacts dir>/<name>.png
// and returns its path.
func (b *BasePage) ScreenshotOnFailure(name string) (string, error) {
	if err := os.MkdirAll(b.artifactsDir, 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}
	path := filepath.Join(b.artifactsDir, sanitize(name)+".png")
	if err := b.page.Screenshot(path); err != nil {
		return "", classify(err, "screenshot", "")
	}
	b.logger.Info("Saved failure screenshot", zap.String("path", path))
	return path, nil
}

// read waits for an element and returns its trimmed text.
func (b *BasePage) read(element string, list selectors.List, timeout time.Duration) (text string, err error) {
	defer func() {
		metrics.PageReadsTotal.WithLabelValues(element, metrics.Outcome(err, apperrors.IsTimeout(err))).Inc()
	}()

	sel := list.Join()
	if err := b.page.WaitVisible(sel, timeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return "", apperrors.ElementNotFoundError(err, "read "+element, sel)
		}
		return "", apperrors.DriverError(err, "read "+element, sel)
	}
	text, err = b.page.Text(sel)
	if err != nil {
		return "", classify(err, "read "+element, sel)
	}
	return strings.TrimSpace(text), nil
}

// click clicks the first visible match of list.
func (b *BasePage) click(control string, list selectors.List) error {
	sel := list.Join()
	if err := b.page.Click(sel, DefaultActionTimeout); err != nil {
		return classify(err, "click "+control, sel)
	}
	b.logger.Debug("Clicked", zap.String("control", control))
	return nil
}

func (b *BasePage) fill(field string, list selectors.List, value string) error {
	sel := list.Join()
	if err := b.page.Fill(sel, value); err != nil {
		return classify(err, "fill "+field, sel)
	}
	return nil
}

func classify(err error, op, selector string) error {
	if errors.Is(err, browser.ErrTimeout) {
		return apperrors.TimeoutError(err, op, selector)
	}
	return apperrors.DriverError(err, op, selector)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
