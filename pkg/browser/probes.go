package browser

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"
)

// Surface is the minimal page view probes run against. Implemented by
// PageSurface over a live Playwright page and by fakes in tests; third-party
// markup is unstable, so everything above this interface stays data-driven.
type Surface interface {
	// URL returns the current page URL.
	URL() string

	// Visible reports whether an element matching the selector is visible.
	Visible(selector string) (bool, error)

	// Content returns the full page HTML.
	Content() (string, error)
}

// ProbeKind selects how a probe's pattern is evaluated.
type ProbeKind string

const (
	// ProbeSelector checks visibility of a CSS selector.
	ProbeSelector ProbeKind = "selector"

	// ProbeURLGlob matches the page URL against a glob pattern.
	ProbeURLGlob ProbeKind = "url_glob"

	// ProbeTextGlob matches the page content against a glob pattern.
	ProbeTextGlob ProbeKind = "text_glob"
)

// Probe is one entry of an ordered capability-probe table.
type Probe struct {
	ID      string
	Kind    ProbeKind
	Pattern string
}

// ProbeMatch reports which probe matched and the evidence behind the match.
type ProbeMatch struct {
	ID       string
	Evidence string
}

// RunProbes evaluates probes in order and returns the first match. Individual
// probe errors do not abort the scan; an unstable page losing one selector
// must not mask a later probe that still matches.
func RunProbes(s Surface, probes []Probe) (ProbeMatch, bool) {
	var content string
	contentLoaded := false

	for _, p := range probes {
		switch p.Kind {
		case ProbeSelector:
			visible, err := s.Visible(p.Pattern)
			if err != nil || !visible {
				continue
			}
			return ProbeMatch{ID: p.ID, Evidence: fmt.Sprintf("selector visible: %s", p.Pattern)}, true

		case ProbeURLGlob:
			g, err := glob.Compile(p.Pattern)
			if err != nil {
				continue
			}
			if g.Match(s.URL()) {
				return ProbeMatch{ID: p.ID, Evidence: fmt.Sprintf("url %s matched %s", s.URL(), p.Pattern)}, true
			}

		case ProbeTextGlob:
			if !contentLoaded {
				c, err := s.Content()
				if err != nil {
					continue
				}
				content = strings.ToLower(c)
				contentLoaded = true
			}
			g, err := glob.Compile(strings.ToLower(p.Pattern))
			if err != nil {
				continue
			}
			if g.Match(content) {
				return ProbeMatch{ID: p.ID, Evidence: fmt.Sprintf("content matched %s", p.Pattern)}, true
			}
		}
	}

	return ProbeMatch{}, false
}

// PageSurface adapts a live Playwright page to the Surface interface.
type PageSurface struct {
	Page playwright.Page
}

// URL returns the page's current URL.
func (p PageSurface) URL() string { return p.Page.URL() }

// Visible reports visibility of the first element matching the selector.
func (p PageSurface) Visible(selector string) (bool, error) {
	return p.Page.IsVisible(selector)
}

// Content returns the page HTML.
func (p PageSurface) Content() (string, error) {
	return p.Page.Content()
}
