package login

import (
	"fmt"

	"github.com/gobwas/glob"
)

// State is the classified authentication state of a session.
type State string

const (
	StateLoggedIn  State = "logged_in"
	StateLoggedOut State = "logged_out"
	StateUnknown   State = "unknown"
)

// Result is one login-state classification. Results are derived fresh on
// every check and never cached across navigations.
type Result struct {
	State  State
	URL    string
	Signal string
}

// ClassifierInput carries the observable signals a classification is derived
// from. Gathering them requires page access; classification itself does not.
type ClassifierInput struct {
	URL string

	// WriterMarkerPresent is true when the writer surface's structural
	// marker is visible. Strongest available proof of authentication.
	WriterMarkerPresent bool

	// LoginIndicator is the matched login-indicator probe ID, empty when
	// none matched.
	LoginIndicator string

	// LogoutIndicator is the matched logout-indicator probe ID, empty when
	// none matched.
	LogoutIndicator string

	// AuthCookiePresent is true when a recognized auth cookie exists.
	AuthCookiePresent bool
}

// loginRedirectGlobs match URLs of the login entry surface and its redirect
// chain. URL evidence is the least trustworthy signal: client-side routing
// and transient redirects can show a login URL mid-navigation on an
// authenticated session, so these patterns only ever produce StateUnknown.
var loginRedirectGlobs = []glob.Glob{
	glob.MustCompile("*nidlogin*"),
	glob.MustCompile("*nid.*.com/*login*"),
	glob.MustCompile("*/login?*"),
	glob.MustCompile("*/signin*"),
}

// Classify derives the login state from observable signals. Priority order,
// first match wins; structural and cookie evidence deliberately outranks URL
// evidence to avoid false logged-out verdicts on transient redirects.
func Classify(in ClassifierInput) Result {
	switch {
	case in.WriterMarkerPresent:
		return Result{State: StateLoggedIn, URL: in.URL, Signal: "writer_iframe"}

	case in.LoginIndicator != "":
		return Result{
			State:  StateLoggedIn,
			URL:    in.URL,
			Signal: fmt.Sprintf("login_indicator:%s", in.LoginIndicator),
		}

	case in.AuthCookiePresent:
		return Result{State: StateLoggedIn, URL: in.URL, Signal: "login_cookie_present"}

	case in.LogoutIndicator != "":
		return Result{
			State:  StateLoggedOut,
			URL:    in.URL,
			Signal: fmt.Sprintf("logout_indicator:%s", in.LogoutIndicator),
		}

	case matchesLoginRedirect(in.URL):
		return Result{State: StateUnknown, URL: in.URL, Signal: "login_redirect_url_transient"}

	default:
		return Result{State: StateUnknown, URL: in.URL, Signal: "no_indicator"}
	}
}

func matchesLoginRedirect(url string) bool {
	for _, g := range loginRedirectGlobs {
		if g.Match(url) {
			return true
		}
	}
	return false
}
