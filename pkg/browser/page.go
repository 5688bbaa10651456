package browser

import (
	"fmt"
	"time"

	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"
)

// LivePage wraps a Playwright page with the deadline-bounded operations the
// session and pipeline state machines drive. Every wait is a wall-clock
// deadline; an operation that does not resolve in budget reports failure and
// its eventual result is discarded by the caller.
type LivePage struct {
	Page playwright.Page
}

// URL returns the page's current URL.
func (p LivePage) URL() string { return p.Page.URL() }

// Visible reports whether an element matching the selector is visible.
func (p LivePage) Visible(selector string) (bool, error) {
	return p.Page.IsVisible(selector)
}

// Content returns the page HTML.
func (p LivePage) Content() (string, error) {
	return p.Page.Content()
}

// Screenshot captures the current viewport as PNG bytes.
func (p LivePage) Screenshot() ([]byte, error) {
	return p.Page.Screenshot()
}

// Navigate loads the URL, waiting up to timeout for DOM content.
func (p LivePage) Navigate(url string, timeout time.Duration) error {
	_, err := p.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Fill fills an input element with the given value.
func (p LivePage) Fill(selector, value string, timeout time.Duration) error {
	err := p.Page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (p LivePage) Click(selector string, timeout time.Duration) error {
	err := p.Page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// WaitForURLAway polls until the page URL no longer matches the glob pattern,
// returning false when the budget elapses first. Failure here is tolerated by
// callers: some surfaces complete login without a URL change.
func (p LivePage) WaitForURLAway(pattern string, timeout time.Duration) bool {
	g, err := glob.Compile(pattern)
	if err != nil {
		return false
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !g.Match(p.Page.URL()) {
			return true
		}
		time.Sleep(250 * time.Millisecond)
	}
	return !g.Match(p.Page.URL())
}

// ContextCookies exposes the cookie names present in a live browser context.
type ContextCookies struct {
	Context playwright.BrowserContext
}

// CookieNames returns the names of all cookies in the context.
func (c ContextCookies) CookieNames() ([]string, error) {
	cookies, err := c.Context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read context cookies: %w", err)
	}

	names := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		names = append(names, cookie.Name)
	}
	return names, nil
}
