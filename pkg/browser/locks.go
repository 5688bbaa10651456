package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AccountLocks serializes automation against the same account. Two concurrent
// sessions sharing one profile would collide on cookies and the profile
// directory, so Acquire blocks until the prior holder for that account key
// releases.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAccountLocks creates an empty lock registry.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the lock for the account key is available and returns
// the release function. Release must be called exactly once.
func (a *AccountLocks) Acquire(account string) func() {
	a.mu.Lock()
	lock, ok := a.locks[account]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[account] = lock
	}
	a.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// chromiumLockMarkers are artifacts a running Chromium process leaves in its
// user data directory. Their presence means another process owns the profile.
var chromiumLockMarkers = []string{
	"SingletonLock",
	"SingletonCookie",
	"SingletonSocket",
	"lockfile",
}

// AdvisoryLock is the profile-directory locking abstraction. Held detects
// locks left by other processes (including a foreign browser process);
// Acquire and Release manage this process's own marker.
type AdvisoryLock interface {
	Acquire() error
	Held() (bool, string, error)
	Release() error
}

// MarkerLock implements AdvisoryLock over filesystem marker files: the
// Chromium singleton markers for foreign-process detection plus an owned
// marker for this process.
type MarkerLock struct {
	dir       string
	ownMarker string
	acquired  bool
}

// NewMarkerLock creates a marker lock for a profile directory.
func NewMarkerLock(dir string) *MarkerLock {
	return &MarkerLock{
		dir:       dir,
		ownMarker: filepath.Join(dir, ".postwright.lock"),
	}
}

// Held reports whether any known lock marker is present in the directory,
// and which one.
func (m *MarkerLock) Held() (bool, string, error) {
	for _, marker := range chromiumLockMarkers {
		if _, err := os.Lstat(filepath.Join(m.dir, marker)); err == nil {
			return true, marker, nil
		}
	}
	if _, err := os.Lstat(m.ownMarker); err == nil {
		return true, filepath.Base(m.ownMarker), nil
	}
	return false, "", nil
}

// Acquire writes this process's marker. Fails if any marker is already held.
func (m *MarkerLock) Acquire() error {
	held, marker, err := m.Held()
	if err != nil {
		return err
	}
	if held {
		return fmt.Errorf("browser: profile already locked by %s", marker)
	}

	body := fmt.Sprintf("pid=%d\n", os.Getpid())
	if err := os.WriteFile(m.ownMarker, []byte(body), 0600); err != nil {
		return fmt.Errorf("failed to write lock marker: %w", err)
	}
	m.acquired = true
	return nil
}

// Release removes this process's marker. A no-op when not acquired.
func (m *MarkerLock) Release() error {
	if !m.acquired {
		return nil
	}
	m.acquired = false
	if err := os.Remove(m.ownMarker); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock marker: %w", err)
	}
	return nil
}
