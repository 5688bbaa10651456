package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/postwright/postwright/pkg/config"
	"github.com/postwright/postwright/pkg/logging"
)

// ErrLaunchTimeout is returned when the browser failed to launch within the
// configured number of bounded attempts.
var ErrLaunchTimeout = errors.New("browser: launch timed out after bounded retries")

// Handle is an exclusively-owned browser session bound to a profile. The
// owner must call Close on every exit path; Close is idempotent.
type Handle struct {
	// Browser is nil when the session runs a persistent context, which
	// owns its browser process directly.
	Browser playwright.Browser

	Context playwright.BrowserContext
	Page    playwright.Page

	// PersistentProfile is true when the session was launched against a
	// user data directory rather than an ephemeral context.
	PersistentProfile bool

	// ProfilePath is the resolved profile directory, empty for ephemeral
	// sessions restored purely from a storage-state file.
	ProfilePath string

	// Lock is the advisory profile lock owned by this session. Close
	// releases it after the browser resources are torn down.
	Lock AdvisoryLock

	mu                  sync.Mutex
	credentialAttempted bool
	closeOnce           sync.Once
}

// MarkCredentialAttempt records that a credential login attempt has been made
// on this session. It returns false if one was already recorded; callers must
// not submit credentials twice on one session, since repeated automated
// submissions are themselves a risk signal to the target site.
func (h *Handle) MarkCredentialAttempt() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.credentialAttempted {
		return false
	}
	h.credentialAttempted = true
	return true
}

// CredentialAttempted reports whether a credential attempt was recorded.
func (h *Handle) CredentialAttempted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.credentialAttempted
}

// Close releases all browser resources. Safe to call multiple times and on
// partially-constructed handles.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		if h.Page != nil {
			_ = h.Page.Close()
		}
		if h.Context != nil {
			_ = h.Context.Close()
		}
		if h.Browser != nil {
			_ = h.Browser.Close()
		}
		if h.Lock != nil {
			_ = h.Lock.Release()
		}
	})
}

// SaveStorageState snapshots the live context's cookies and origins into the
// store, and separately captures the web-storage snapshot for page-load-time
// replay on the next restore.
func (h *Handle) SaveStorageState(store *ProfileStore) error {
	raw, err := h.Context.StorageState()
	if err != nil {
		return fmt.Errorf("failed to read context storage state: %w", err)
	}

	// Round-trip through JSON: the driver's struct and ours share the
	// Playwright wire shape.
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode storage state: %w", err)
	}
	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to decode storage state: %w", err)
	}

	if err := store.SaveStorageState(&state); err != nil {
		return err
	}
	return store.SaveWebStorage(state.Origins)
}

// Launcher creates browser sessions bound to profiles. One Launcher may be
// shared by concurrent sessions; account-level serialization is the caller's
// concern (see AccountLocks).
type Launcher struct {
	pw  *playwright.Playwright
	cfg config.Config
	log *logging.Logger
}

// NewLauncher installs the driver if needed and starts Playwright. Driver
// output goes to the run log, not the terminal.
func NewLauncher(cfg config.Config, log *logging.Logger) (*Launcher, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  log.Writer(),
		Stderr:  log.Writer(),
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	return &Launcher{pw: pw, cfg: cfg, log: log}, nil
}

// Stop shuts down the Playwright driver. Sessions must be closed first.
func (l *Launcher) Stop() error {
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// Launch creates a session for the given profile. With a profile directory
// configured, a persistent context owns the directory; otherwise an ephemeral
// context is created and restored from the storage-state snapshot, with the
// saved web-storage replayed through an init script so client-side state
// survives profile teardown.
//
// Launch retries a bounded number of times with a fixed delay and returns
// ErrLaunchTimeout once attempts are exhausted.
func (l *Launcher) Launch(store *ProfileStore) (*Handle, error) {
	var lastErr error
	for attempt := 1; attempt <= l.cfg.LaunchAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(l.cfg.LaunchRetryDelay)
		}

		handle, err := l.launchOnce(store)
		if err == nil {
			return handle, nil
		}
		lastErr = err
		l.log.Warnf("browser launch attempt %d/%d failed: %v", attempt, l.cfg.LaunchAttempts, err)
	}

	return nil, fmt.Errorf("%w: %v", ErrLaunchTimeout, lastErr)
}

func (l *Launcher) launchOnce(store *ProfileStore) (*Handle, error) {
	timeout := playwright.Float(float64(l.cfg.Timeouts.BrowserLaunch.Milliseconds()))

	if l.cfg.ProfileDir != "" {
		ctxOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(l.cfg.Headless),
			Timeout:  timeout,
		}
		if l.cfg.SlowMo > 0 {
			ctxOpts.SlowMo = playwright.Float(l.cfg.SlowMo)
		}

		context, err := l.pw.Chromium.LaunchPersistentContext(l.cfg.ProfileDir, ctxOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}

		page, err := contextPage(context)
		if err != nil {
			context.Close()
			return nil, err
		}

		return &Handle{
			Context:           context,
			Page:              page,
			PersistentProfile: true,
			ProfilePath:       l.cfg.ProfileDir,
		}, nil
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.cfg.Headless),
		Timeout:  timeout,
	}
	if l.cfg.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(l.cfg.SlowMo)
	}

	browser, err := l.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if store != nil {
		state, err := store.LoadStorageState(time.Now())
		switch {
		case err != nil:
			l.log.Warnf("storage state unreadable, starting cold: %v", err)
		case state != nil:
			ctxOpts.StorageStatePath = playwright.String(store.StorageStatePath())
		}
	} else if l.cfg.StorageStatePath != "" {
		if _, err := os.Stat(l.cfg.StorageStatePath); err == nil {
			ctxOpts.StorageStatePath = playwright.String(l.cfg.StorageStatePath)
		} else {
			l.log.Warnf("storage state %s missing, starting cold", l.cfg.StorageStatePath)
		}
	}

	context, err := browser.NewContext(ctxOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	if store != nil {
		if err := replayWebStorage(context, store); err != nil {
			l.log.Warnf("web storage replay skipped: %v", err)
		}
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	profilePath := ""
	if store != nil {
		profilePath = store.Dir()
	}

	return &Handle{
		Browser:     browser,
		Context:     context,
		Page:        page,
		ProfilePath: profilePath,
	}, nil
}

func contextPage(context playwright.BrowserContext) (playwright.Page, error) {
	if pages := context.Pages(); len(pages) > 0 {
		return pages[0], nil
	}
	page, err := context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// replayWebStorage injects the saved per-origin localStorage through an init
// script, so client-side state is present before any page script runs.
func replayWebStorage(context playwright.BrowserContext, store *ProfileStore) error {
	origins, err := store.LoadWebStorage()
	if err != nil {
		return err
	}
	if len(origins) == 0 {
		return nil
	}

	script, err := webStorageInitScript(origins)
	if err != nil {
		return err
	}
	return context.AddInitScript(playwright.Script{Content: playwright.String(script)})
}

func webStorageInitScript(origins []OriginStorage) (string, error) {
	payload, err := json.Marshal(origins)
	if err != nil {
		return "", fmt.Errorf("failed to encode web storage payload: %w", err)
	}

	// The snapshot is keyed by origin; only the matching origin's entries
	// are replayed into the page being loaded.
	script := fmt.Sprintf(`(() => {
  const snapshot = %s;
  for (const entry of snapshot) {
    if (entry.origin !== window.location.origin) continue;
    for (const item of entry.localStorage || []) {
      try { window.localStorage.setItem(item.name, item.value); } catch (e) {}
    }
  }
})();`, string(payload))
	return script, nil
}
