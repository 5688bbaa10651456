package browser

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLocksSerializeSameAccount(t *testing.T) {
	locks := NewAccountLocks()

	const workers = 8
	active := 0
	maxActive := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Acquire("account-a")
			defer release()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "same-account holders must never overlap")
}

func TestAccountLocksIndependentAccounts(t *testing.T) {
	locks := NewAccountLocks()

	releaseA := locks.Acquire("account-a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB := locks.Acquire("account-b")
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("different accounts must not block each other")
	}
}

func TestMarkerLockLifecycle(t *testing.T) {
	dir := t.TempDir()
	lock := NewMarkerLock(dir)

	held, _, err := lock.Held()
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, lock.Acquire())

	held, marker, err := lock.Held()
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, ".postwright.lock", marker)

	assert.Error(t, lock.Acquire(), "double acquire is rejected")

	require.NoError(t, lock.Release())
	held, _, err = lock.Held()
	require.NoError(t, err)
	assert.False(t, held)

	assert.NoError(t, lock.Release(), "release is idempotent")
}

func TestHandleCloseReleasesAttachedLock(t *testing.T) {
	dir := t.TempDir()
	lock := NewMarkerLock(dir)
	require.NoError(t, lock.Acquire())

	handle := &Handle{Lock: lock}
	handle.Close()

	held, _, err := lock.Held()
	require.NoError(t, err)
	assert.False(t, held, "Close must release the profile lock")

	handle.Close() // idempotent
}

func TestMarkerLockDetectsForeignBrowserProcess(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SingletonSocket"), nil, 0600))

	lock := NewMarkerLock(dir)
	held, marker, err := lock.Held()
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, "SingletonSocket", marker)

	assert.Error(t, lock.Acquire())
}
