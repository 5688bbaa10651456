package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValidWithProfile(t *testing.T) {
	cfg := Default()
	cfg.ProfileDir = "profiles/default"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresProfileOrStorageState(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg.StorageStatePath = "state.json"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadBudgets(t *testing.T) {
	cfg := Default()
	cfg.ProfileDir = "p"
	cfg.LaunchAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ProfileDir = "p"
	cfg.Timeouts.WaitSave = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Timeouts.WaitSave, cfg.Timeouts.WaitSave)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postwright.yaml")
	body := `
profile_dir: /tmp/profile
headless: false
max_recovery_attempts: 1
launch_retry_delay: 5s
timeouts:
  wait_save: 45s
  recovery: 8s
  navigation: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/profile", cfg.ProfileDir)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.WaitSave)
	assert.Equal(t, 8*time.Second, cfg.Timeouts.Recovery)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Navigation)
	assert.Equal(t, 5*time.Second, cfg.LaunchRetryDelay)

	// Unlisted budgets keep their defaults.
	assert.Equal(t, Default().Timeouts.SaveVerify, cfg.Timeouts.SaveVerify)
}

func TestLoadFileRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeouts: ["), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
