package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrNoBrowser is returned by OpenTab before Start.
var ErrNoBrowser = errors.New("browser: no active browser")

// Tab wraps a Rod page with stealth and resource blocking applied.
type Tab struct {
	Page    *rod.Page
	manager *Manager
}

// OpenTab creates a stealth tab on the running browser.
func (m *Manager) OpenTab(ctx context.Context) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, ErrNoBrowser
	}
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}
	return &Tab{Page: page.Context(ctx), manager: m}, nil
}

// Navigate loads pageURL within the configured timeout. A page that never
// fires the load event is logged and accepted.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.manager.cfg.NavTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// URL is the address of the current document.
func (t *Tab) URL(ctx context.Context) (string, error) {
	info, err := t.Page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, nil
}

// HTML serialises the complete DOM as outer HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// ScrollToBottom scrolls to the end of the document so lazy lists load
// their next page.
func (t *Tab) ScrollToBottom(ctx context.Context) error {
	_, err := t.Page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	if err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// Has reports whether any element matches one of the CSS selectors.
func (t *Tab) Has(ctx context.Context, selectors ...string) bool {
	p := t.Page.Context(ctx)
	for _, sel := range selectors {
		if ok, _, err := p.Has(sel); err == nil && ok {
			return true
		}
	}
	return false
}

// Fill types value into the element matched by selector.
func (t *Tab) Fill(ctx context.Context, selector, value string) error {
	el, err := t.Page.Context(ctx).Timeout(15 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: find %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("browser: input %s: %w", selector, err)
	}
	return nil
}

// Click clicks the element matched by selector.
func (t *Tab) Click(ctx context.Context, selector string) error {
	el, err := t.Page.Context(ctx).Timeout(15 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: find %s: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}
	return nil
}

// Cookies returns the cookies visible to the current page.
func (t *Tab) Cookies(ctx context.Context) ([]*proto.NetworkCookie, error) {
	cookies, err := t.Page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("browser: read cookies: %w", err)
	}
	return cookies, nil
}

// SetCookies installs cookies in the browser.
func (t *Tab) SetCookies(ctx context.Context, cookies []*proto.NetworkCookieParam) error {
	if err := t.Page.Context(ctx).SetCookies(cookies); err != nil {
		return fmt.Errorf("browser: set cookies: %w", err)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
