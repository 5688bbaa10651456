// Package config defines the explicit configuration object shared by all
// postwright components. Core packages never read the environment or other
// ambient state; everything they need arrives through a Config value built
// here.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Timeouts groups every wall-clock budget used by the session and pipeline
// state machines. All waits derived from these are hard deadlines: an
// operation that does not resolve in budget is treated as timed out and its
// eventual result discarded.
type Timeouts struct {
	// Navigation bounds a single page navigation.
	Navigation time.Duration `yaml:"navigation"`

	// LoginCheck bounds one passive login-state classification pass.
	LoginCheck time.Duration `yaml:"login_check"`

	// CredentialSubmit bounds the post-submit wait for navigation away
	// from the login form.
	CredentialSubmit time.Duration `yaml:"credential_submit"`

	// WriterSurface bounds the wait for the writer surface to become
	// structurally reachable after authentication.
	WriterSurface time.Duration `yaml:"writer_surface"`

	// OpenEditor, WriteContent, ClickSave, WaitSave bound the matching
	// pipeline states.
	OpenEditor   time.Duration `yaml:"open_editor"`
	WriteContent time.Duration `yaml:"write_content"`
	ClickSave    time.Duration `yaml:"click_save"`
	WaitSave     time.Duration `yaml:"wait_save"`

	// Recovery bounds one recovery cycle after a save-wait timeout.
	Recovery time.Duration `yaml:"recovery"`

	// SaveVerify is the shared deadline for both draft verification checks.
	SaveVerify time.Duration `yaml:"save_verify"`

	// BrowserLaunch bounds one browser launch attempt.
	BrowserLaunch time.Duration `yaml:"browser_launch"`
}

// UnmarshalYAML parses budgets written as Go duration strings ("45s",
// "2m30s"). Keys absent from the file keep whatever value the receiver
// already holds, so file values layer over defaults.
func (t *Timeouts) UnmarshalYAML(value *yaml.Node) error {
	raw := map[string]string{}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	fields := map[string]*time.Duration{
		"navigation":        &t.Navigation,
		"login_check":       &t.LoginCheck,
		"credential_submit": &t.CredentialSubmit,
		"writer_surface":    &t.WriterSurface,
		"open_editor":       &t.OpenEditor,
		"write_content":     &t.WriteContent,
		"click_save":        &t.ClickSave,
		"wait_save":         &t.WaitSave,
		"recovery":          &t.Recovery,
		"save_verify":       &t.SaveVerify,
		"browser_launch":    &t.BrowserLaunch,
	}

	for key, val := range raw {
		target, ok := fields[key]
		if !ok {
			return fmt.Errorf("config: unknown timeout %q", key)
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("config: timeout %s: %w", key, err)
		}
		*target = d
	}
	return nil
}

// Config is the top-level configuration for a postwright run.
type Config struct {
	// ProfileDir is the persistent browser profile directory. Empty means
	// an ephemeral context restored from StorageStatePath.
	ProfileDir string `yaml:"profile_dir"`

	// StorageStatePath locates the storage-state snapshot used to restore
	// sessions without a full profile directory.
	StorageStatePath string `yaml:"storage_state_path"`

	// ArtifactRoot is the base directory for failure artifact capture.
	ArtifactRoot string `yaml:"artifact_root"`

	Headless bool `yaml:"headless"`

	// SlowMo inserts a fixed delay between browser operations, in
	// milliseconds. Useful against rate-sensitive surfaces.
	SlowMo float64 `yaml:"slow_mo"`

	// LaunchAttempts is the bounded retry count for browser launch.
	LaunchAttempts int `yaml:"launch_attempts"`

	// LaunchRetryDelay is the linear delay between launch attempts.
	// Parsed from a duration string in the file; see UnmarshalYAML.
	LaunchRetryDelay time.Duration `yaml:"-"`

	// MaxRecoveryAttempts is the pipeline recovery ceiling. The pipeline
	// itself never recovers more than once regardless of this value.
	MaxRecoveryAttempts int `yaml:"max_recovery_attempts"`

	Timeouts Timeouts `yaml:"timeouts"`
}

// UnmarshalYAML decodes the config, accepting launch_retry_delay as a Go
// duration string.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	if err := value.Decode((*plain)(c)); err != nil {
		return err
	}

	var aux struct {
		LaunchRetryDelay string `yaml:"launch_retry_delay"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.LaunchRetryDelay != "" {
		d, err := time.ParseDuration(aux.LaunchRetryDelay)
		if err != nil {
			return fmt.Errorf("config: launch_retry_delay: %w", err)
		}
		c.LaunchRetryDelay = d
	}
	return nil
}

// Default returns a Config with production defaults.
func Default() Config {
	return Config{
		ArtifactRoot:        "debug_artifacts",
		Headless:            true,
		LaunchAttempts:      2,
		LaunchRetryDelay:    2 * time.Second,
		MaxRecoveryAttempts: 1,
		Timeouts: Timeouts{
			Navigation:       30 * time.Second,
			LoginCheck:       10 * time.Second,
			CredentialSubmit: 15 * time.Second,
			WriterSurface:    20 * time.Second,
			OpenEditor:       30 * time.Second,
			WriteContent:     60 * time.Second,
			ClickSave:        10 * time.Second,
			WaitSave:         25 * time.Second,
			Recovery:         10 * time.Second,
			SaveVerify:       20 * time.Second,
			BrowserLaunch:    30 * time.Second,
		},
	}
}

// LoadFile reads a YAML config file over the defaults. A missing file is not
// an error; the defaults are returned unchanged.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the state machines cannot run with.
func (c Config) Validate() error {
	if c.ProfileDir == "" && c.StorageStatePath == "" {
		return fmt.Errorf("config: either profile_dir or storage_state_path is required")
	}
	if c.LaunchAttempts < 1 {
		return fmt.Errorf("config: launch_attempts must be at least 1, got %d", c.LaunchAttempts)
	}
	if c.MaxRecoveryAttempts < 0 {
		return fmt.Errorf("config: max_recovery_attempts cannot be negative")
	}
	for name, d := range map[string]time.Duration{
		"navigation":  c.Timeouts.Navigation,
		"wait_save":   c.Timeouts.WaitSave,
		"save_verify": c.Timeouts.SaveVerify,
		"recovery":    c.Timeouts.Recovery,
	} {
		if d <= 0 {
			return fmt.Errorf("config: timeout %s must be positive", name)
		}
	}
	return nil
}
