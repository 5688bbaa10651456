package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/postwright/postwright/pkg/browser"
	"github.com/postwright/postwright/pkg/login"
	"github.com/postwright/postwright/pkg/upload"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printSuccess(job Job, outcome upload.Outcome) {
	fmt.Println(successStyle.Render("draft saved and verified"))
	fmt.Println(detailStyle.Render(fmt.Sprintf("  title:  %s", job.Title)))
	fmt.Println(detailStyle.Render(fmt.Sprintf("  states: %v", outcome.Job.History)))
}

func printBlocked(err *login.BlockedError) {
	fmt.Fprintln(os.Stderr, blockedStyle.Render(fmt.Sprintf("login blocked: %s", err.Reason)))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  signal:   %s", err.Probe.Signal)))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  url:      %s", err.Probe.URL)))
	if !err.CooldownUntil.IsZero() {
		fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  cooldown: until %s", err.CooldownUntil.Format(time.RFC3339))))
	}
	if err.ArtifactDir != "" {
		fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  evidence: %s", err.ArtifactDir)))
	}
}

func printFatal(err error) {
	fmt.Fprintln(os.Stderr, failureStyle.Render(fmt.Sprintf("fatal: %v", err)))
}

func printRunLog(path string) {
	if path == "" {
		return
	}
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  run log:  %s", path)))
}

func printPipelineFailure(outcome upload.Outcome, artifactDir string) {
	fmt.Fprintln(os.Stderr, failureStyle.Render("draft save failed"))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  reason:   %s", outcome.FailureReason)))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  states:   %v", outcome.Job.History)))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  evidence: %s", artifactDir)))
}

func printVerifyFailure(result upload.VerifyResult, artifactDir string) {
	fmt.Fprintln(os.Stderr, failureStyle.Render("draft save not verified"))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  verdict:  %s", result.Verdict)))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  toast:    %t", result.ToastSeen)))
	fmt.Fprintln(os.Stderr, detailStyle.Render(fmt.Sprintf("  evidence: %s", artifactDir)))
}

func printDryRun(result login.Result, store *browser.ProfileStore) {
	fmt.Println(successStyle.Render("dry run"))
	fmt.Println(detailStyle.Render(fmt.Sprintf("  state:  %s", result.State)))
	fmt.Println(detailStyle.Render(fmt.Sprintf("  signal: %s", result.Signal)))
	fmt.Println(detailStyle.Render(fmt.Sprintf("  url:    %s", result.URL)))

	cooldown, err := login.LoadCooldownState(store.CooldownStatePath())
	switch {
	case err != nil:
		fmt.Println(detailStyle.Render(fmt.Sprintf("  cooldown: unreadable (%v)", err)))
	case cooldown == nil:
		fmt.Println(detailStyle.Render("  cooldown: none recorded"))
	case login.IsCooldownActive(cooldown, time.Now()):
		fmt.Println(blockedStyle.Render(fmt.Sprintf("  cooldown: ACTIVE until %s (%s, %d failures)",
			cooldown.CooldownUntilTs.Format(time.RFC3339), cooldown.LastReason, cooldown.ConsecutiveFailures)))
	default:
		fmt.Println(detailStyle.Render(fmt.Sprintf("  cooldown: clear (last %s)", cooldown.LastReason)))
	}
}
