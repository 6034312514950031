// Package wallet drives the wallet extension's popup windows: it waits for a
// popup to surface, clicks the control for the requested decision and reads
// transaction details off confirmation screens.
//
// Every action awaits exactly one new popup. A popup that stays open after
// the action is logged and tolerated; a control that never shows is a
// CategoryTimeout error and a popup that never opens is CategoryPopupTimeout.
package wallet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainsafe/dapp-e2e/internal/metrics"
	apperrors "github.com/chainsafe/dapp-e2e/pkg/app/errors"
	"github.com/chainsafe/dapp-e2e/pkg/browser"
	"github.com/chainsafe/dapp-e2e/pkg/config"
	"github.com/chainsafe/dapp-e2e/pkg/selectors"
)

// Helper mediates every interaction that needs the wallet popup.
type Helper struct {
	ctx      browser.Context
	buttons  selectors.WalletButtons
	body     string
	details  []selectors.CompiledField
	timeouts config.WalletConfig
	logger   *zap.Logger

	mu    sync.Mutex
	state State
}

// NewHelper binds a helper to the browser context the dApp runs in.
func NewHelper(ctx browser.Context, catalog *selectors.Catalog, timeouts config.WalletConfig, logger *zap.Logger) (*Helper, error) {
	details, err := catalog.Wallet.CompileDetails()
	if err != nil {
		return nil, apperrors.ConfigError(err, "compile transaction detail rules")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Helper{
		ctx:      ctx,
		buttons:  catalog.Wallet.Buttons,
		body:     catalog.Wallet.Body,
		details:  details,
		timeouts: timeouts,
		logger:   logger.Named("wallet"),
	}, nil
}

// State returns the stage reached by the latest popup interaction.
func (h *Helper) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Helper) setState(s State) {
	h.mu.Lock()
	prev := h.state
	h.state = s
	h.mu.Unlock()
	h.logger.Debug("Popup state", zap.Stringer("from", prev), zap.Stringer("to", s))
}

// AwaitPopup waits for the next popup window and for its document to load.
func (h *Helper) AwaitPopup() (browser.Page, error) {
	h.setState(StateAwaitingPopup)
	start := time.Now()

	popup, err := h.ctx.WaitForPage(h.timeouts.PopupTimeout)
	metrics.PopupWaitDuration.
		WithLabelValues(metrics.Outcome(err, errors.Is(err, browser.ErrTimeout))).
		Observe(time.Since(start).Seconds())
	if err != nil {
		h.setState(StateIdle)
		if errors.Is(err, browser.ErrTimeout) {
			return nil, apperrors.PopupTimeoutError(err)
		}
		return nil, apperrors.DriverError(err, "await wallet popup", "")
	}

	if err := popup.WaitForLoad(h.timeouts.PopupTimeout); err != nil {
		h.setState(StateIdle)
		return nil, classify(err, "wait for popup load", "")
	}
	h.setState(StatePopupVisible)
	return popup, nil
}

// ApproveConnection accepts a connection request. Some wallet builds show a
// Next step before Connect; it is clicked only when it shows up.
func (h *Helper) ApproveConnection() (err error) {
	defer h.count("approve_connection", &err)

	popup, err := h.AwaitPopup()
	if err != nil {
		return err
	}
	next := h.buttons.Next.Join()
	if popup.IsVisible(next, h.timeouts.OptionalStepTimeout) {
		if err := popup.Click(next, h.timeouts.ConnectTimeout); err != nil {
			return classify(err, "click next", next)
		}
		h.logger.Debug("Clicked optional Next step")
	}
	return h.act(popup, "connect", h.buttons.Connect, h.timeouts.ConnectTimeout, h.timeouts.CloseTimeout)
}

// ConfirmTransaction confirms a pending transaction.
func (h *Helper) ConfirmTransaction() (err error) {
	defer h.count("confirm_transaction", &err)
	return h.perform("confirm", h.buttons.Confirm, h.timeouts.ConfirmTimeout, h.timeouts.ConfirmCloseTimeout)
}

// SignMessage signs a pending message.
func (h *Helper) SignMessage() (err error) {
	defer h.count("sign_message", &err)
	return h.perform("sign", h.buttons.Sign, h.timeouts.SignTimeout, h.timeouts.CloseTimeout)
}

// RejectRequest rejects whatever the popup is asking for.
func (h *Helper) RejectRequest() (err error) {
	defer h.count("reject_request", &err)
	return h.perform("reject", h.buttons.Reject, h.timeouts.RejectTimeout, h.timeouts.CloseTimeout)
}

// ApproveNetworkSwitch accepts a network switch or add-network request.
func (h *Helper) ApproveNetworkSwitch() (err error) {
	defer h.count("approve_network_switch", &err)
	return h.perform("switch network", h.buttons.SwitchNetwork, h.timeouts.SwitchTimeout, h.timeouts.CloseTimeout)
}

// ApproveTokenSpending accepts an ERC-20 allowance request.
func (h *Helper) ApproveTokenSpending() (err error) {
	defer h.count("approve_token_spending", &err)
	return h.perform("approve spending", h.buttons.ApproveSpending, h.timeouts.ApproveTimeout, h.timeouts.CloseTimeout)
}

// GetTransactionDetails awaits a confirmation popup and reads its details
// without acting on it.
func (h *Helper) GetTransactionDetails() (*TransactionDetails, error) {
	popup, err := h.AwaitPopup()
	if err != nil {
		return nil, err
	}
	return h.ExtractTransactionDetails(popup), nil
}

// ConfirmWithDetails reads the details off the next confirmation popup and
// then confirms it.
func (h *Helper) ConfirmWithDetails() (details *TransactionDetails, err error) {
	defer h.count("confirm_with_details", &err)

	popup, err := h.AwaitPopup()
	if err != nil {
		return nil, err
	}
	details = h.ExtractTransactionDetails(popup)
	if err := h.act(popup, "confirm", h.buttons.Confirm, h.timeouts.ConfirmTimeout, h.timeouts.ConfirmCloseTimeout); err != nil {
		return details, err
	}
	return details, nil
}

func (h *Helper) perform(control string, buttons selectors.List, timeout, closeTimeout time.Duration) error {
	popup, err := h.AwaitPopup()
	if err != nil {
		return err
	}
	return h.act(popup, control, buttons, timeout, closeTimeout)
}

// act clicks the first visible control of buttons, then waits for the popup
// to close without failing if it stays open.
func (h *Helper) act(popup browser.Page, control string, buttons selectors.List, timeout, closeTimeout time.Duration) error {
	sel := buttons.Join()
	if err := popup.Click(sel, timeout); err != nil {
		return classify(err, "click "+control, sel)
	}
	h.setState(StateActionPerformed)
	h.awaitClose(popup, closeTimeout)
	return nil
}

func (h *Helper) awaitClose(popup browser.Page, timeout time.Duration) {
	if err := popup.WaitForClose(timeout); err != nil {
		metrics.PopupCloseTotal.WithLabelValues("timed_out").Inc()
		h.setState(StateCloseTimedOut)
		h.logger.Debug("Popup still open after action", zap.Duration("timeout", timeout), zap.Error(err))
		return
	}
	metrics.PopupCloseTotal.WithLabelValues("closed").Inc()
	h.setState(StatePopupClosed)
}

func (h *Helper) count(action string, err *error) {
	metrics.WalletActionsTotal.WithLabelValues(action, metrics.Outcome(*err, apperrors.IsTimeout(*err))).Inc()
	if *err != nil {
		h.logger.Warn("Wallet action failed", zap.String("action", action), zap.Error(*err))
	}
}

func classify(err error, op, selector string) error {
	if errors.Is(err, browser.ErrTimeout) {
		return apperrors.TimeoutError(err, op, selector)
	}
	return apperrors.DriverError(fmt.Errorf("wallet popup: %w", err), op, selector)
}
