package login

import (
	"fmt"
	"time"

	"github.com/postwright/postwright/pkg/browser"
)

// Credentials are the stored login credentials. They reach this package as a
// value; nothing here reads the environment.
type Credentials struct {
	Identifier string
	Secret     string
}

// Page is the bounded-operation page view the login procedures drive.
// browser.LivePage implements it over Playwright; tests use fakes.
type Page interface {
	browser.Surface
	Navigate(url string, timeout time.Duration) error
	Fill(selector, value string, timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	WaitForURLAway(pattern string, timeout time.Duration) bool
}

// CookieSource exposes the cookie names of the live session.
type CookieSource interface {
	CookieNames() ([]string, error)
}

// attemptCredentials runs the one-shot credential submission procedure:
// navigate to the login entry point if not already there, fill identifier
// then secret, submit, wait (bounded, failure tolerated) for navigation away
// from the login surface, then classify any block signal.
//
// The single-use guard lives on the Handle so a caller cannot induce repeated
// automated submissions within one session.
func (c *Controller) attemptCredentials(handle *browser.Handle, page Page, cookies CookieSource, creds Credentials, targetURL string) (Result, *BlockedReason, error) {
	if !handle.MarkCredentialAttempt() {
		return Result{}, nil, ErrAttemptAlreadyMade
	}

	if !matchesLoginRedirect(page.URL()) {
		if err := page.Navigate(LoginEntryURL, c.cfg.Timeouts.Navigation); err != nil {
			return Result{}, nil, fmt.Errorf("failed to reach login entry: %w", err)
		}
	}

	fillBudget := c.cfg.Timeouts.CredentialSubmit
	if err := page.Fill(loginFormSelectors.Identifier, creds.Identifier, fillBudget); err != nil {
		return Result{}, nil, fmt.Errorf("failed to fill identifier: %w", err)
	}
	if err := page.Fill(loginFormSelectors.Secret, creds.Secret, fillBudget); err != nil {
		return Result{}, nil, fmt.Errorf("failed to fill secret: %w", err)
	}
	if err := page.Click(loginFormSelectors.Submit, fillBudget); err != nil {
		return Result{}, nil, fmt.Errorf("failed to submit login form: %w", err)
	}

	if !page.WaitForURLAway(loginURLGlob, c.cfg.Timeouts.CredentialSubmit) {
		c.log.Warnf("still on login surface after submit: %s", page.URL())
	}

	if reason, match, found := evaluateBlockSignals(page); found {
		c.log.Infof("login blocked: %s (%s)", reason, match.Evidence)
		return Result{State: StateUnknown, URL: page.URL(), Signal: match.ID}, &reason, nil
	}

	result := c.classifyPage(page, cookies)
	if result.State != StateLoggedIn {
		reason := ReasonLoginFormVisible
		return result, &reason, nil
	}

	// Authenticated is not enough: report success only once the writer
	// surface is structurally confirmed.
	if !c.waitForWriterSurface(page, targetURL) {
		reason := ReasonLoginFormVisible
		return Result{State: StateUnknown, URL: page.URL(), Signal: "writer_surface_unreachable"}, &reason, nil
	}

	return Result{State: StateLoggedIn, URL: page.URL(), Signal: "writer_iframe"}, nil, nil
}

// evaluateBlockSignals walks the block-signal table in priority order and
// returns the first matching reason.
func evaluateBlockSignals(s browser.Surface) (BlockedReason, browser.ProbeMatch, bool) {
	for _, entry := range blockSignalTable {
		if match, ok := browser.RunProbes(s, entry.Probes); ok {
			return entry.Reason, match, true
		}
	}
	return "", browser.ProbeMatch{}, false
}

// waitForWriterSurface polls for the writer surface within the configured
// budget, re-issuing the navigation once if the surface is not reached by
// the halfway point.
func (c *Controller) waitForWriterSurface(page Page, targetURL string) bool {
	budget := c.cfg.Timeouts.WriterSurface
	deadline := time.Now().Add(budget)
	half := time.Now().Add(budget / 2)
	renavigated := false

	interval := budget / 10
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	if interval > 500*time.Millisecond {
		interval = 500 * time.Millisecond
	}

	for time.Now().Before(deadline) {
		if _, ok := browser.RunProbes(page, writerSurfaceProbes); ok {
			return true
		}
		if !renavigated && time.Now().After(half) {
			renavigated = true
			if err := page.Navigate(targetURL, c.cfg.Timeouts.Navigation); err != nil {
				c.log.Warnf("writer surface re-navigation failed: %v", err)
			}
		}
		time.Sleep(interval)
	}

	_, ok := browser.RunProbes(page, writerSurfaceProbes)
	return ok
}
