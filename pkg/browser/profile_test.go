package browser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfileStoreStampsMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")

	store, err := NewProfileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	_, err = os.Stat(filepath.Join(dir, profileMetaFile))
	assert.NoError(t, err, "first use stamps profile metadata")

	usable, err := store.UsableOnThisOS(false)
	require.NoError(t, err)
	assert.True(t, usable, "locally stamped profile is usable")
}

func TestProfileStoreRequiresDir(t *testing.T) {
	_, err := NewProfileStore("")
	assert.Error(t, err)
}

func TestStorageStateRoundTrip(t *testing.T) {
	store, err := NewProfileStore(t.TempDir())
	require.NoError(t, err)

	state := &StorageState{
		Cookies: []Cookie{
			{Name: "NID_AUT", Value: "v", Domain: ".naver.com", Path: "/", Expires: float64(time.Now().Add(time.Hour).Unix())},
		},
		Origins: []OriginStorage{
			{Origin: "https://blog.naver.com", LocalStorage: []StorageEntry{{Name: "draft", Value: "1"}}},
		},
	}
	require.NoError(t, store.SaveStorageState(state))

	loaded, err := store.LoadStorageState(time.Now())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state.Cookies, loaded.Cookies)
	assert.Equal(t, state.Origins, loaded.Origins)
}

func TestLoadStorageStateMissing(t *testing.T) {
	store, err := NewProfileStore(t.TempDir())
	require.NoError(t, err)

	loaded, err := store.LoadStorageState(time.Now())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadStorageStatePrunesExpiredCookies(t *testing.T) {
	store, err := NewProfileStore(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	state := &StorageState{
		Cookies: []Cookie{
			{Name: "stale", Expires: float64(now.Add(-time.Hour).Unix())},
			{Name: "live", Expires: float64(now.Add(time.Hour).Unix())},
			{Name: "session", Expires: -1}, // session cookies carry no expiry
		},
	}
	require.NoError(t, store.SaveStorageState(state))

	loaded, err := store.LoadStorageState(now)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	names := make([]string, 0, len(loaded.Cookies))
	for _, c := range loaded.Cookies {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"live", "session"}, names)
}

func TestHasCookie(t *testing.T) {
	now := time.Now()
	state := &StorageState{
		Cookies: []Cookie{
			{Name: "NID_SES", Expires: float64(now.Add(time.Hour).Unix())},
			{Name: "expired_auth", Expires: float64(now.Add(-time.Hour).Unix())},
		},
	}

	assert.True(t, state.HasCookie(now, "NID_AUT", "NID_SES"))
	assert.False(t, state.HasCookie(now, "expired_auth"))
	assert.False(t, state.HasCookie(now, "absent"))
}

func TestUsableOnThisOSCrossOSProfile(t *testing.T) {
	store, err := NewProfileStore(t.TempDir())
	require.NoError(t, err)

	// Restamp as if the profile came from another OS over a shared mount.
	meta, err := json.Marshal(profileMeta{CreatedOS: "windows", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), profileMetaFile), meta, 0600))

	usable, err := store.UsableOnThisOS(false)
	require.NoError(t, err)
	assert.False(t, usable, "foreign profile without auth cookies is unusable")

	usable, err = store.UsableOnThisOS(true)
	require.NoError(t, err)
	assert.True(t, usable, "auth cookies allow restore without the raw profile")
}

func TestWebStorageRoundTrip(t *testing.T) {
	store, err := NewProfileStore(t.TempDir())
	require.NoError(t, err)

	none, err := store.LoadWebStorage()
	require.NoError(t, err)
	assert.Nil(t, none)

	origins := []OriginStorage{
		{Origin: "https://blog.naver.com", LocalStorage: []StorageEntry{{Name: "k", Value: "v"}}},
	}
	require.NoError(t, store.SaveWebStorage(origins))

	loaded, err := store.LoadWebStorage()
	require.NoError(t, err)
	assert.Equal(t, origins, loaded)
}

func TestWebStorageInitScriptScopedByOrigin(t *testing.T) {
	script, err := webStorageInitScript([]OriginStorage{
		{Origin: "https://blog.naver.com", LocalStorage: []StorageEntry{{Name: "k", Value: "v"}}},
	})
	require.NoError(t, err)
	assert.Contains(t, script, "window.location.origin")
	assert.Contains(t, script, "blog.naver.com")
	assert.Contains(t, script, "localStorage.setItem")
}
