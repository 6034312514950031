// Package browser wraps the playwright driver behind the small surface the
// page objects and the wallet helper need. Timeouts are plain durations and
// every driver timeout is reported as ErrTimeout.
package browser

import (
	"errors"
	"time"
)

// ErrTimeout is returned when a wait elapses before the expected state.
var ErrTimeout = errors.New("browser: timeout exceeded")

// ErrClosed is returned when the page was closed while an operation was in flight.
var ErrClosed = errors.New("browser: page closed")

// Page is a browser tab, either the dApp tab or a wallet popup.
//
// Selectors are CSS/text selector groups; when a group matches several
// elements, the first visible one in document order is used, whichever
// member of the group it matched.
type Page interface {
	URL() string
	Goto(url string) error
	Reload() error
	// WaitForLoad waits for the DOM content to be loaded.
	WaitForLoad(timeout time.Duration) error
	WaitForNetworkIdle(timeout time.Duration) error

	// WaitVisible waits up to timeout for the selector to become visible.
	// A non-positive timeout checks once without waiting.
	WaitVisible(selector string, timeout time.Duration) error
	// IsVisible is WaitVisible folded to a bool.
	IsVisible(selector string, timeout time.Duration) bool

	// Text returns the text content of the first visible match.
	Text(selector string) (string, error)
	// InnerText returns the rendered text of the first match, visible or not.
	InnerText(selector string) (string, error)
	Click(selector string, timeout time.Duration) error
	Fill(selector, value string) error
	SelectOption(selector, value string) error
	Count(selector string) (int, error)
	IsDisabled(selector string) (bool, error)

	Screenshot(path string) error
	// WaitForClose blocks until the page is closed or timeout elapses.
	WaitForClose(timeout time.Duration) error
	IsClosed() bool
	Close() error
}

// Context is a persistent browser profile with the wallet extension loaded.
type Context interface {
	// WaitForPage returns the most recently opened wallet popup that has not
	// been handed out yet and is still open, waiting up to timeout for one.
	WaitForPage(timeout time.Duration) (Page, error)
	Close() error
}
