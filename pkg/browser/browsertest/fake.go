// Package browsertest provides in-memory browser.Page and browser.Context
// implementations for unit tests. Waits never sleep: an element registered
// with an appearance delay is visible to any wait whose timeout covers it.
package browsertest

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chainsafe/dapp-e2e/pkg/browser"
)

type element struct {
	text     string
	after    time.Duration
	disabled bool
}

// Page is a fake browser.Page keyed on individual selectors. It has no
// document order, so a selector group ("a, b") resolves to the first listed
// member that is visible. Tests that register several members of one group
// are asserting list priority, which a real page does not guarantee.
type Page struct {
	mu sync.Mutex

	// Location is returned by URL and updated by Goto.
	Location string

	elements map[string]element
	counts   map[string]int

	// Body is returned by InnerText("body") unless BodyErr is set.
	Body    string
	BodyErr error
	// CloseOnClick closes the page after the first successful click.
	CloseOnClick bool
	// OnClick runs after every successful click with the resolved selector.
	OnClick func(selector string)
	// GotoErr, ReloadErr, LoadErr and IdleErr are returned by the matching calls.
	GotoErr   error
	ReloadErr error
	LoadErr   error
	IdleErr   error

	closed bool

	Gotos       []string
	Reloads     int
	Clicks      []string
	Fills       map[string]string
	Selected    map[string]string
	Screenshots []string
	Waits       []Wait
}

// Wait records one visibility wait.
type Wait struct {
	Selector string
	Timeout  time.Duration
	Found    bool
}

// NewPage returns an empty, open page.
func NewPage() *Page {
	return &Page{
		elements: make(map[string]element),
		counts:   make(map[string]int),
		Fills:    make(map[string]string),
		Selected: make(map[string]string),
	}
}

// Show makes selector visible immediately with the given text.
func (p *Page) Show(selector, text string) *Page {
	return p.ShowAfter(selector, text, 0)
}

// ShowAfter makes selector visible after delay.
func (p *Page) ShowAfter(selector, text string, delay time.Duration) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := p.elements[selector]
	el.text, el.after = text, delay
	p.elements[selector] = el
	return p
}

// Hide removes selector.
func (p *Page) Hide(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

// Disable marks a visible selector as disabled.
func (p *Page) Disable(selector string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	el := p.elements[selector]
	el.disabled = true
	p.elements[selector] = el
	return p
}

// SetCount sets the match count reported for selector.
func (p *Page) SetCount(selector string, n int) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[selector] = n
	return p
}

// IsClosed reports whether the page was closed.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// ClickCount returns how many clicks resolved to selector.
func (p *Page) ClickCount(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Clicks {
		if c == selector {
			n++
		}
	}
	return n
}

func split(group string) []string {
	parts := strings.Split(group, ", ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// resolve returns the first member of group visible within timeout. Callers hold p.mu.
func (p *Page) resolve(group string, timeout time.Duration) (string, element, bool) {
	for _, sel := range split(group) {
		el, ok := p.elements[sel]
		if ok && el.after <= max(timeout, 0) {
			return sel, el, true
		}
	}
	return "", element{}, false
}

func (p *Page) wait(group string, timeout time.Duration) (string, element, error) {
	sel, el, ok := p.resolve(group, timeout)
	p.Waits = append(p.Waits, Wait{Selector: group, Timeout: timeout, Found: ok})
	if !ok {
		return "", element{}, fmt.Errorf("%w: waiting for %s (%s)", browser.ErrTimeout, group, timeout)
	}
	// once waited for, the element stays visible
	el.after = 0
	p.elements[sel] = el
	return sel, el, nil
}

// At sets the page URL.
func (p *Page) At(url string) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Location = url
	return p
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Location
}

func (p *Page) Goto(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Gotos = append(p.Gotos, url)
	if p.GotoErr == nil {
		p.Location = url
	}
	return p.GotoErr
}

func (p *Page) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Reloads++
	return p.ReloadErr
}

func (p *Page) WaitForLoad(time.Duration) error {
	return p.LoadErr
}

func (p *Page) WaitForNetworkIdle(time.Duration) error {
	return p.IdleErr
}

func (p *Page) WaitVisible(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _, err := p.wait(selector, timeout)
	return err
}

func (p *Page) IsVisible(selector string, timeout time.Duration) bool {
	return p.WaitVisible(selector, timeout) == nil
}

func (p *Page) Text(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, el, ok := p.resolve(selector, 0)
	if !ok {
		return "", fmt.Errorf("%w: %s not visible", browser.ErrTimeout, selector)
	}
	return el.text, nil
}

func (p *Page) InnerText(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector == "body" {
		return p.Body, p.BodyErr
	}
	_, el, ok := p.resolve(selector, 0)
	if !ok {
		return "", fmt.Errorf("%w: %s not attached", browser.ErrTimeout, selector)
	}
	return el.text, nil
}

func (p *Page) Click(selector string, timeout time.Duration) error {
	p.mu.Lock()
	sel, _, err := p.wait(selector, timeout)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.Clicks = append(p.Clicks, sel)
	if p.CloseOnClick {
		p.closed = true
	}
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		hook(sel)
	}
	return nil
}

func (p *Page) Fill(selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, _, err := p.wait(selector, 0)
	if err != nil {
		return err
	}
	p.Fills[sel] = value
	return nil
}

func (p *Page) SelectOption(selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, _, err := p.wait(selector, 0)
	if err != nil {
		return err
	}
	p.Selected[sel] = value
	return nil
}

func (p *Page) Count(selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, sel := range split(selector) {
		n += p.counts[sel]
	}
	return n, nil
}

func (p *Page) IsDisabled(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, el, err := p.wait(selector, 0)
	if err != nil {
		return false, err
	}
	return el.disabled, nil
}

// Screenshot records path and writes an empty file there.
func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	p.Screenshots = append(p.Screenshots, path)
	p.mu.Unlock()
	return os.WriteFile(path, []byte{}, 0o600)
}

func (p *Page) WaitForClose(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	return fmt.Errorf("%w: page still open after %s", browser.ErrTimeout, timeout)
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Context is a fake browser.Context with the same hand-off as the real
// adapter: pages rejected by Filter are ignored, a newer page replaces an
// unclaimed one and a page that closed while unclaimed is dropped.
type Context struct {
	mu     sync.Mutex
	slot   browser.Page
	closed bool

	// Filter, when set, decides which opened pages are wallet popups.
	Filter browser.PageFilter

	// Requested records the timeout of every WaitForPage call.
	Requested []time.Duration
}

// NewContext returns a context with no pending page that accepts every page.
func NewContext() *Context {
	return &Context{}
}

// Open announces a new page, replacing any unclaimed one.
func (c *Context) Open(p browser.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Filter != nil && !c.Filter(p.URL()) {
		return
	}
	c.slot = p
}

func (c *Context) WaitForPage(timeout time.Duration) (browser.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requested = append(c.Requested, timeout)
	p := c.slot
	c.slot = nil
	if p == nil || p.IsClosed() {
		return nil, fmt.Errorf("%w: no new page within %s", browser.ErrTimeout, timeout)
	}
	return p, nil
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (c *Context) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var (
	_ browser.Page    = (*Page)(nil)
	_ browser.Context = (*Context)(nil)
)
