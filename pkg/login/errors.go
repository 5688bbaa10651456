package login

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUserDataDirLocked means another browser process holds the profile
	// directory. Retrying against a locked profile cannot succeed.
	ErrUserDataDirLocked = errors.New("login: user data dir locked by another process")

	// ErrCrossOSProfile means the profile directory was created under a
	// different operating system and no recognized auth cookies exist to
	// restore from. Fixed precondition failure, not retryable.
	ErrCrossOSProfile = errors.New("login: profile directory unusable under current OS")

	// ErrAttemptAlreadyMade means a credential attempt was already recorded
	// on this session. At most one automated submission per session.
	ErrAttemptAlreadyMade = errors.New("login: credential attempt already made this session")
)

// ProbeSnapshot captures what the session looked like at decision time,
// embedded in blocked errors and debug reports.
type ProbeSnapshot struct {
	URL       string    `json:"url"`
	State     State     `json:"state"`
	Signal    string    `json:"signal"`
	CheckedAt time.Time `json:"checked_at"`
}

// BlockedError is the typed error for a login the system must not retry
// automatically. It carries the classified reason, the probe snapshot behind
// the decision, and the directory of captured evidence.
type BlockedError struct {
	Reason        BlockedReason
	Probe         ProbeSnapshot
	ArtifactDir   string
	CooldownUntil time.Time
}

func (e *BlockedError) Error() string {
	msg := fmt.Sprintf("login blocked: %s (signal %s at %s)", e.Reason, e.Probe.Signal, e.Probe.URL)
	if !e.CooldownUntil.IsZero() {
		msg += fmt.Sprintf(", cooldown until %s", e.CooldownUntil.Format(time.RFC3339))
	}
	if e.ArtifactDir != "" {
		msg += fmt.Sprintf(", evidence in %s", e.ArtifactDir)
	}
	return msg
}
