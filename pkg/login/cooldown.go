package login

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// BlockedReason classifies an obstacle that automated credential submission
// cannot resolve without human action. Ordering in blockSignalTable defines
// detection priority; exactly one reason is derived per evaluation.
type BlockedReason string

const (
	ReasonCaptcha          BlockedReason = "CAPTCHA_DETECTED"
	ReasonTwoFactor        BlockedReason = "TWO_FACTOR_REQUIRED"
	ReasonSecurityConfirm  BlockedReason = "SECURITY_CONFIRM_REQUIRED"
	ReasonAgreement        BlockedReason = "AGREEMENT_REQUIRED"
	ReasonLoginFormVisible BlockedReason = "LOGIN_FORM_STILL_VISIBLE"
)

// CooldownState is the persisted per-profile cooldown record, the single
// source of truth across process restarts.
type CooldownState struct {
	LastReason          BlockedReason `json:"lastReason"`
	LastTs              time.Time     `json:"lastTs"`
	CooldownUntilTs     time.Time     `json:"cooldownUntilTs"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
}

// cooldownDuration maps a blocked reason to its enforced wait. CAPTCHA gets a
// long horizon; a login form that simply would not go away is usually a
// transient page problem and gets the short one.
func cooldownDuration(reason BlockedReason) time.Duration {
	switch reason {
	case ReasonCaptcha:
		return 12 * time.Hour
	case ReasonLoginFormVisible:
		return 15 * time.Minute
	case ReasonTwoFactor, ReasonSecurityConfirm, ReasonAgreement:
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// BuildCooldownState computes the record after a blocked login attempt.
// ConsecutiveFailures increases monotonically while blocked. Pure given its
// inputs; persistence is the caller's responsibility.
func BuildCooldownState(prev *CooldownState, reason BlockedReason, now time.Time) CooldownState {
	failures := 1
	if prev != nil && prev.ConsecutiveFailures+1 > failures {
		failures = prev.ConsecutiveFailures + 1
	}

	return CooldownState{
		LastReason:          reason,
		LastTs:              now,
		CooldownUntilTs:     now.Add(cooldownDuration(reason)),
		ConsecutiveFailures: failures,
	}
}

// ResetAfterSuccess returns the neutral baseline written after a verified
// successful login. The historical reason and timestamp are preserved for
// observability only; they no longer gate anything.
func ResetAfterSuccess(prev *CooldownState, now time.Time) CooldownState {
	state := CooldownState{ConsecutiveFailures: 0, CooldownUntilTs: now}
	if prev != nil {
		state.LastReason = prev.LastReason
		state.LastTs = prev.LastTs
	}
	return state
}

// IsCooldownActive reports whether the cooldown window is still open.
func IsCooldownActive(state *CooldownState, now time.Time) bool {
	return state != nil && state.CooldownUntilTs.After(now)
}

// LoadCooldownState reads the record at path. Returns (nil, nil) when no
// record exists yet.
func LoadCooldownState(path string) (*CooldownState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cooldown state: %w", err)
	}

	var state CooldownState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse cooldown state: %w", err)
	}
	return &state, nil
}

// SaveCooldownState writes the record. Access is already serialized by the
// account lock, so plain read-modify-write is sufficient here.
func SaveCooldownState(path string, state CooldownState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cooldown state: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cooldown state: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace cooldown state: %w", err)
	}
	return nil
}
