package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Filenames owned by a ProfileStore inside its profile directory.
const (
	storageStateFile = "storage_state.json"
	webStorageFile   = "web_storage.json"
	cooldownFile     = "cooldown_state.json"
	profileMetaFile  = "profile_meta.json"
)

// Cookie mirrors one entry of Playwright's storage-state cookie list.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// OriginStorage is the per-origin localStorage snapshot in a storage state.
type OriginStorage struct {
	Origin       string         `json:"origin"`
	LocalStorage []StorageEntry `json:"localStorage"`
}

// StorageEntry is a single localStorage key/value pair.
type StorageEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StorageState is a portable session snapshot: cookies plus per-origin web
// storage. The on-disk format is Playwright's, so the file can be handed
// directly to a new browser context.
type StorageState struct {
	Cookies []Cookie        `json:"cookies"`
	Origins []OriginStorage `json:"origins"`
}

// HasCookie reports whether a non-expired cookie with any of the given names
// is present.
func (s *StorageState) HasCookie(now time.Time, names ...string) bool {
	for _, c := range s.Cookies {
		if c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now) {
			continue
		}
		for _, n := range names {
			if c.Name == n {
				return true
			}
		}
	}
	return false
}

// profileMeta stamps a profile directory with the operating system it was
// created under. A Chromium profile written on one OS is generally not
// usable on another even when the filesystem is shared.
type profileMeta struct {
	CreatedOS string    `json:"created_os"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileStore owns a profile directory and its derived files: the
// storage-state snapshot, the web-storage snapshot, and the cooldown record.
// It is pure file I/O; no browser control happens here.
type ProfileStore struct {
	dir string
}

// NewProfileStore creates the profile directory if needed and stamps it with
// creation metadata on first use.
func NewProfileStore(dir string) (*ProfileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("browser: profile directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	s := &ProfileStore{dir: dir}

	metaPath := filepath.Join(dir, profileMetaFile)
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		meta := profileMeta{CreatedOS: runtime.GOOS, CreatedAt: time.Now()}
		if err := writeJSON(metaPath, meta); err != nil {
			return nil, fmt.Errorf("failed to stamp profile metadata: %w", err)
		}
	}

	return s, nil
}

// Dir returns the profile directory path.
func (s *ProfileStore) Dir() string { return s.dir }

// StorageStatePath returns the path of the storage-state snapshot file,
// whether or not it exists yet.
func (s *ProfileStore) StorageStatePath() string {
	return filepath.Join(s.dir, storageStateFile)
}

// LoadStorageState reads the storage-state snapshot, dropping cookies that
// have already expired. Returns (nil, nil) when no snapshot exists.
func (s *ProfileStore) LoadStorageState(now time.Time) (*StorageState, error) {
	data, err := os.ReadFile(s.StorageStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage state: %w", err)
	}

	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse storage state: %w", err)
	}

	live := state.Cookies[:0]
	for _, c := range state.Cookies {
		if c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now) {
			continue
		}
		live = append(live, c)
	}
	state.Cookies = live

	return &state, nil
}

// SaveStorageState writes the snapshot atomically (write-then-rename).
func (s *ProfileStore) SaveStorageState(state *StorageState) error {
	if err := writeJSON(s.StorageStatePath(), state); err != nil {
		return fmt.Errorf("failed to save storage state: %w", err)
	}
	return nil
}

// CooldownStatePath returns the path of the cooldown record owned by this
// profile. Reading and writing the record is the login package's concern.
func (s *ProfileStore) CooldownStatePath() string {
	return filepath.Join(s.dir, cooldownFile)
}

// LoadWebStorage reads the saved per-origin web-storage snapshot. Returns
// (nil, nil) when none exists.
func (s *ProfileStore) LoadWebStorage() ([]OriginStorage, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, webStorageFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read web storage snapshot: %w", err)
	}

	var origins []OriginStorage
	if err := json.Unmarshal(data, &origins); err != nil {
		return nil, fmt.Errorf("failed to parse web storage snapshot: %w", err)
	}
	return origins, nil
}

// SaveWebStorage persists the per-origin web-storage snapshot.
func (s *ProfileStore) SaveWebStorage(origins []OriginStorage) error {
	if err := writeJSON(filepath.Join(s.dir, webStorageFile), origins); err != nil {
		return fmt.Errorf("failed to save web storage snapshot: %w", err)
	}
	return nil
}

// UsableOnThisOS reports whether the profile directory can be used under the
// current operating system. A profile stamped on a different OS is unusable
// unless recognized auth cookies are already present in the storage state,
// in which case session restore can proceed without the raw profile.
func (s *ProfileStore) UsableOnThisOS(hasAuthCookie bool) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, profileMetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			// Unstamped directories predate the metadata stamp; assume local.
			return true, nil
		}
		return false, fmt.Errorf("failed to read profile metadata: %w", err)
	}

	var meta profileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return false, fmt.Errorf("failed to parse profile metadata: %w", err)
	}

	if meta.CreatedOS == runtime.GOOS {
		return true, nil
	}
	return hasAuthCookie, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
