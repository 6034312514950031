package browser

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const visibleSuffix = " >> visible=true"

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// translate maps driver errors onto the package sentinels, keeping the
// driver message for the log.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %s", ErrTimeout, err.Error())
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%w: %s", ErrClosed, err.Error())
	default:
		return err
	}
}

type pwPage struct {
	page   playwright.Page
	closed chan struct{}
}

// WrapPage adapts a playwright page.
func WrapPage(page playwright.Page) Page {
	p := &pwPage{page: page, closed: make(chan struct{})}
	var once sync.Once
	page.OnClose(func(playwright.Page) {
		once.Do(func() { close(p.closed) })
	})
	if page.IsClosed() {
		once.Do(func() { close(p.closed) })
	}
	return p
}

func (p *pwPage) visible(selector string) playwright.Locator {
	return p.page.Locator(selector + visibleSuffix).First()
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Goto(url string) error {
	_, err := p.page.Goto(url)
	return translate(err)
}

func (p *pwPage) Reload() error {
	_, err := p.page.Reload()
	return translate(err)
}

func (p *pwPage) WaitForLoad(timeout time.Duration) error {
	return translate(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: ms(timeout),
	}))
}

func (p *pwPage) WaitForNetworkIdle(timeout time.Duration) error {
	return translate(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: ms(timeout),
	}))
}

func (p *pwPage) WaitVisible(selector string, timeout time.Duration) error {
	if timeout <= 0 {
		// playwright treats a zero timeout as "wait forever"
		n, err := p.page.Locator(selector + visibleSuffix).Count()
		if err != nil {
			return translate(err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s not visible", ErrTimeout, selector)
		}
		return nil
	}
	return translate(p.visible(selector).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	}))
}

func (p *pwPage) IsVisible(selector string, timeout time.Duration) bool {
	return p.WaitVisible(selector, timeout) == nil
}

func (p *pwPage) Text(selector string) (string, error) {
	text, err := p.visible(selector).TextContent()
	return text, translate(err)
}

func (p *pwPage) InnerText(selector string) (string, error) {
	text, err := p.page.Locator(selector).First().InnerText()
	return text, translate(err)
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	return translate(p.visible(selector).Click(playwright.LocatorClickOptions{
		Timeout: ms(timeout),
	}))
}

func (p *pwPage) Fill(selector, value string) error {
	return translate(p.visible(selector).Fill(value))
}

func (p *pwPage) SelectOption(selector, value string) error {
	_, err := p.visible(selector).SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	return translate(err)
}

func (p *pwPage) Count(selector string) (int, error) {
	n, err := p.page.Locator(selector).Count()
	return n, translate(err)
}

func (p *pwPage) IsDisabled(selector string) (bool, error) {
	disabled, err := p.visible(selector).IsDisabled()
	return disabled, translate(err)
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return translate(err)
}

func (p *pwPage) WaitForClose(timeout time.Duration) error {
	select {
	case <-p.closed:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: page still open after %s", ErrTimeout, timeout)
	}
}

func (p *pwPage) IsClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return p.page.IsClosed()
	}
}

func (p *pwPage) Close() error {
	if p.page.IsClosed() {
		return nil
	}
	return translate(p.page.Close())
}

// pwContext routes wallet popups opened after launch into a PageSlot.
type pwContext struct {
	ctx    playwright.BrowserContext
	logger *zap.Logger
	slot   *PageSlot

	mu    sync.Mutex
	known map[playwright.Page]struct{}
}

// WrapContext adapts a playwright browser context and starts tracking new
// pages that pass accept. Pages already open are not reported by WaitForPage.
func WrapContext(ctx playwright.BrowserContext, accept PageFilter, logger *zap.Logger) Context {
	c := &pwContext{
		ctx:    ctx,
		logger: logger,
		slot:   NewPageSlot(accept),
		known:  make(map[playwright.Page]struct{}),
	}
	for _, p := range ctx.Pages() {
		c.known[p] = struct{}{}
	}
	ctx.OnPage(c.onPage)
	return c
}

func (c *pwContext) onPage(page playwright.Page) {
	c.mu.Lock()
	if _, seen := c.known[page]; seen {
		c.mu.Unlock()
		return
	}
	c.known[page] = struct{}{}
	c.mu.Unlock()

	kept, replaced := c.slot.Offer(WrapPage(page))
	switch {
	case !kept:
		c.logger.Debug("Ignoring non-popup page", zap.String("url", page.URL()))
	case replaced:
		c.logger.Debug("Replaced unclaimed popup with newer one", zap.String("url", page.URL()))
	default:
		c.logger.Debug("Popup opened", zap.String("url", page.URL()))
	}
}

func (c *pwContext) WaitForPage(timeout time.Duration) (Page, error) {
	return c.slot.Take(timeout)
}

func (c *pwContext) Close() error {
	return translate(c.ctx.Close())
}
