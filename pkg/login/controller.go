package login

import (
	"fmt"
	"time"

	"github.com/postwright/postwright/pkg/browser"
	"github.com/postwright/postwright/pkg/config"
	"github.com/postwright/postwright/pkg/debug"
	"github.com/postwright/postwright/pkg/logging"
)

// Mode selects how far EnsureLoggedIn may escalate.
type Mode string

const (
	// ModePassive never submits credentials: re-check by navigation only.
	ModePassive Mode = "passive"

	// ModeInteractiveIfNeeded falls through to a credential attempt when
	// passive checks do not resolve to an authenticated session.
	ModeInteractiveIfNeeded Mode = "interactive-if-needed"
)

// ArtifactCollector is the failure-evidence capture dependency. Satisfied by
// *debug.Collector; fakes in tests.
type ArtifactCollector interface {
	Collect(reason, stage string, target debug.Target, probes *debug.Probes) debug.Capture
}

// Launcher creates the browser session once the profile preconditions hold.
// Satisfied by *browser.Launcher.
type Launcher interface {
	Launch(store *browser.ProfileStore) (*browser.Handle, error)
}

// Controller drives the session/login state machine: restore, classify,
// escalate through a single credential attempt, and consult the persisted
// cooldown record before any irreversible decision.
type Controller struct {
	cfg       config.Config
	log       *logging.Logger
	store     *browser.ProfileStore
	collector ArtifactCollector
}

// NewController creates a session controller bound to one profile.
func NewController(cfg config.Config, store *browser.ProfileStore, collector ArtifactCollector, log *logging.Logger) *Controller {
	return &Controller{cfg: cfg, store: store, collector: collector, log: log}
}

// Acquire checks the fixed preconditions, takes the advisory profile lock,
// and launches a session. A locked profile directory or a cross-OS profile is
// fatal here, before any browser process starts: retrying against either
// cannot succeed. The lock is attached to the handle and released by Close.
func (c *Controller) Acquire(launcher Launcher) (*browser.Handle, error) {
	state, err := c.store.LoadStorageState(time.Now())
	if err != nil {
		c.log.Warnf("storage state unreadable: %v", err)
	}
	hasAuthCookie := state != nil && state.HasCookie(time.Now(), AuthCookieNames...)

	usable, err := c.store.UsableOnThisOS(hasAuthCookie)
	if err != nil {
		return nil, fmt.Errorf("profile usability check failed: %w", err)
	}
	if !usable {
		return nil, ErrCrossOSProfile
	}

	lock := browser.NewMarkerLock(c.store.Dir())
	held, marker, err := lock.Held()
	if err != nil {
		return nil, fmt.Errorf("profile lock check failed: %w", err)
	}
	if held {
		return nil, fmt.Errorf("%w (marker %s)", ErrUserDataDirLocked, marker)
	}
	if err := lock.Acquire(); err != nil {
		return nil, fmt.Errorf("failed to acquire profile lock: %w", err)
	}

	handle, err := launcher.Launch(c.store)
	if err != nil {
		if releaseErr := lock.Release(); releaseErr != nil {
			c.log.Warnf("profile lock release after failed launch: %v", releaseErr)
		}
		return nil, err
	}
	handle.Lock = lock
	return handle, nil
}

// decision is the next move chosen from a classification and the cooldown
// record. Pure, so the irreversible branch points are directly testable.
type decision int

const (
	decideAuthenticated decision = iota
	decideFailCooldown
	decidePassiveRecheck
	decideAttemptCredentials
	decideFailPassive
)

func decide(result Result, cooldown *CooldownState, mode Mode, rechecked bool, now time.Time) decision {
	if result.State == StateLoggedIn {
		return decideAuthenticated
	}
	if IsCooldownActive(cooldown, now) {
		return decideFailCooldown
	}
	if !rechecked {
		return decidePassiveRecheck
	}
	if mode == ModeInteractiveIfNeeded {
		return decideAttemptCredentials
	}
	return decideFailPassive
}

// EnsureLoggedIn classifies the current session against the target surface
// and escalates per the mode. On success the session's storage state is
// persisted and the cooldown record reset; on a classified block the cooldown
// record is updated and a *BlockedError returned with captured evidence.
func (c *Controller) EnsureLoggedIn(handle *browser.Handle, page Page, cookies CookieSource, creds Credentials, targetURL string, mode Mode) (Result, error) {
	cooldown, err := LoadCooldownState(c.store.CooldownStatePath())
	if err != nil {
		c.log.Warnf("cooldown state unreadable, treating as absent: %v", err)
	}

	// Cooldown-active fast path: the stored reason is the answer. No
	// navigation, no credential attempt.
	if IsCooldownActive(cooldown, time.Now()) {
		probe := ProbeSnapshot{State: StateUnknown, Signal: "cooldown_active", CheckedAt: time.Now()}
		if page != nil {
			probe.URL = page.URL()
		}
		return Result{}, &BlockedError{
			Reason:        cooldown.LastReason,
			Probe:         probe,
			CooldownUntil: cooldown.CooldownUntilTs,
		}
	}

	if err := page.Navigate(targetURL, c.cfg.Timeouts.Navigation); err != nil {
		return Result{}, fmt.Errorf("failed to reach target surface: %w", err)
	}

	rechecked := false
	for {
		result := c.classifyPage(page, cookies)
		c.log.Infof("login state: %s (%s) at %s", result.State, result.Signal, result.URL)

		switch decide(result, cooldown, mode, rechecked, time.Now()) {
		case decideAuthenticated:
			if err := c.persistSuccess(handle, cooldown); err != nil {
				c.log.Warnf("session persisted state incomplete: %v", err)
			}
			return result, nil

		case decideFailCooldown:
			return Result{}, &BlockedError{
				Reason:        cooldown.LastReason,
				Probe:         snapshot(result),
				CooldownUntil: cooldown.CooldownUntilTs,
			}

		case decidePassiveRecheck:
			rechecked = true
			if err := page.Navigate(targetURL, c.cfg.Timeouts.LoginCheck); err != nil {
				c.log.Warnf("passive re-check navigation failed: %v", err)
			}

		case decideAttemptCredentials:
			return c.escalate(handle, page, cookies, creds, targetURL, result)

		case decideFailPassive:
			capture := c.collect(string(ReasonLoginFormVisible), "passive_login_check", page)
			return Result{}, &BlockedError{
				Reason:      ReasonLoginFormVisible,
				Probe:       snapshot(result),
				ArtifactDir: capture.Dir,
			}
		}
	}
}

func (c *Controller) escalate(handle *browser.Handle, page Page, cookies CookieSource, creds Credentials, targetURL string, prior Result) (Result, error) {
	result, blocked, err := c.attemptCredentials(handle, page, cookies, creds, targetURL)
	if err != nil {
		return Result{}, err
	}

	if blocked != nil {
		now := time.Now()
		prev, loadErr := LoadCooldownState(c.store.CooldownStatePath())
		if loadErr != nil {
			c.log.Warnf("cooldown state unreadable before update: %v", loadErr)
		}
		state := BuildCooldownState(prev, *blocked, now)
		if saveErr := SaveCooldownState(c.store.CooldownStatePath(), state); saveErr != nil {
			c.log.Errorf("failed to persist cooldown state: %v", saveErr)
		}

		capture := c.collect(string(*blocked), "credential_attempt", page)
		return Result{}, &BlockedError{
			Reason:        *blocked,
			Probe:         snapshot(result),
			ArtifactDir:   capture.Dir,
			CooldownUntil: state.CooldownUntilTs,
		}
	}

	if err := c.persistSuccess(handle, nil); err != nil {
		c.log.Warnf("session persisted state incomplete: %v", err)
	}
	return result, nil
}

// classifyPage gathers observable signals and classifies them. The signal
// tuple is assembled fresh every time; nothing is cached across navigations.
func (c *Controller) classifyPage(page Page, cookies CookieSource) Result {
	input := ClassifierInput{URL: page.URL()}

	if _, ok := browser.RunProbes(page, writerSurfaceProbes); ok {
		input.WriterMarkerPresent = true
	}
	if match, ok := browser.RunProbes(page, loginIndicatorProbes); ok {
		input.LoginIndicator = match.ID
	}
	if match, ok := browser.RunProbes(page, logoutIndicatorProbes); ok {
		input.LogoutIndicator = match.ID
	}

	if cookies != nil {
		names, err := cookies.CookieNames()
		if err != nil {
			c.log.Warnf("cookie read failed during classification: %v", err)
		} else {
			input.AuthCookiePresent = containsAny(names, AuthCookieNames)
		}
	}

	return Classify(input)
}

// persistSuccess snapshots the authenticated session and resets the cooldown
// record to its baseline, keeping history fields for observability.
func (c *Controller) persistSuccess(handle *browser.Handle, prev *CooldownState) error {
	now := time.Now()
	if prev == nil {
		loaded, err := LoadCooldownState(c.store.CooldownStatePath())
		if err != nil {
			c.log.Warnf("cooldown state unreadable before reset: %v", err)
		}
		prev = loaded
	}

	if err := SaveCooldownState(c.store.CooldownStatePath(), ResetAfterSuccess(prev, now)); err != nil {
		return err
	}

	if handle != nil && handle.Context != nil {
		if err := handle.SaveStorageState(c.store); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) collect(reason, stage string, page Page) debug.Capture {
	if c.collector == nil {
		return debug.Capture{}
	}
	target, _ := page.(debug.Target)
	return c.collector.Collect(reason, stage, target, nil)
}

func snapshot(r Result) ProbeSnapshot {
	return ProbeSnapshot{URL: r.URL, State: r.State, Signal: r.Signal, CheckedAt: time.Now()}
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
