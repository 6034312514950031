package browser

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// PageFilter reports whether a page opened at url is a wallet popup.
type PageFilter func(url string) bool

// URLContains accepts URLs containing fragment. An empty fragment accepts
// every page.
func URLContains(fragment string) PageFilter {
	return func(url string) bool {
		return fragment == "" || strings.Contains(url, fragment)
	}
}

// PageSlot hands out the latest accepted page opened since the previous
// Take. A newer page replaces an unclaimed older one and pages that closed
// while unclaimed are dropped.
type PageSlot struct {
	accept PageFilter

	mu   sync.Mutex
	slot chan Page
}

// NewPageSlot returns an empty slot. A nil filter accepts every page.
func NewPageSlot(accept PageFilter) *PageSlot {
	if accept == nil {
		accept = URLContains("")
	}
	return &PageSlot{accept: accept, slot: make(chan Page, 1)}
}

// Offer puts p in the slot if the filter accepts its URL. It reports whether
// p was kept and whether it displaced an unclaimed page.
func (s *PageSlot) Offer(p Page) (kept, replaced bool) {
	if !s.accept(p.URL()) {
		return false, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.slot:
		replaced = true
	default:
	}
	s.slot <- p
	return true, replaced
}

// Take waits up to timeout for an open page.
func (s *PageSlot) Take(timeout time.Duration) (Page, error) {
	deadline := time.After(timeout)
	for {
		select {
		case p := <-s.slot:
			if p.IsClosed() {
				continue
			}
			return p, nil
		case <-deadline:
			return nil, fmt.Errorf("%w: no new page within %s", ErrTimeout, timeout)
		}
	}
}
