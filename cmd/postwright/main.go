// Package main provides the postwright CLI: automated draft authoring on a
// third-party content-management surface over a controlled browser session.
// The binary wires credentials, a job description, and a browser profile into
// the session controller and the draft-save pipeline, and reports the typed
// outcome with a pointer to captured evidence on failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/postwright/postwright/pkg/browser"
	"github.com/postwright/postwright/pkg/config"
	"github.com/postwright/postwright/pkg/debug"
	"github.com/postwright/postwright/pkg/logging"
	"github.com/postwright/postwright/pkg/login"
	"github.com/postwright/postwright/pkg/upload"
)

const version = "0.1.0"

const (
	defaultTargetURL = "https://blog.naver.com/GoBlogWrite.naver"
	defaultDraftsURL = "https://blog.naver.com/RabbitWrite.naver?tab=save"
)

// Exit codes, one per terminal outcome class.
const (
	exitOK           = 0
	exitUsage        = 1
	exitBlocked      = 2
	exitPipelineFail = 3
	exitVerifyFail   = 4
)

type cliOptions struct {
	configPath  string
	jobPath     string
	profileDir  string
	targetURL   string
	draftsURL   string
	headless    bool
	interactive bool
	dryRun      bool
	showVersion bool
}

func parseFlags() cliOptions {
	var opts cliOptions
	flag.StringVar(&opts.configPath, "config", "postwright.yaml", "Path to the YAML config file")
	flag.StringVar(&opts.jobPath, "job", "", "Path to the YAML job file (title, body, tags)")
	flag.StringVar(&opts.profileDir, "profile", "", "Browser profile directory (overrides config)")
	flag.StringVar(&opts.targetURL, "target", defaultTargetURL, "Write-surface URL")
	flag.StringVar(&opts.draftsURL, "drafts", defaultDraftsURL, "Drafts listing URL for save verification")
	flag.BoolVar(&opts.headless, "headless", true, "Run the browser headless")
	flag.BoolVar(&opts.interactive, "login", true, "Allow one credential login attempt when not authenticated")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Classify login state and report cooldown, then exit")
	flag.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()
	if opts.showVersion {
		fmt.Printf("postwright v%s\n", version)
		return
	}

	logger, err := logging.NewLogger("main")
	if err != nil {
		log.Printf("file logging degraded: %v", err)
	}
	defer logger.Close()

	os.Exit(run(opts, logger))
}

func run(opts cliOptions, logger *logging.Logger) int {
	// Credentials come from the environment only; .env is a convenience
	// for local runs and absent in production.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("could not load .env: %v", err)
	}
	creds := login.Credentials{
		Identifier: os.Getenv("POSTWRIGHT_LOGIN_ID"),
		Secret:     os.Getenv("POSTWRIGHT_LOGIN_SECRET"),
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitUsage
	}
	if opts.profileDir != "" {
		cfg.ProfileDir = opts.profileDir
	}
	cfg.Headless = opts.headless
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitUsage
	}

	var job Job
	if !opts.dryRun {
		if opts.jobPath == "" {
			fmt.Fprintln(os.Stderr, "a -job file is required unless -dry-run is set")
			return exitUsage
		}
		job, err = LoadJob(opts.jobPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "job error: %v\n", err)
			return exitUsage
		}
	}

	profileDir := cfg.ProfileDir
	if profileDir == "" {
		profileDir = "profiles/default"
	}
	store, err := browser.NewProfileStore(profileDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile error: %v\n", err)
		return exitUsage
	}

	collector := debug.NewCollector(cfg.ArtifactRoot, logging.RunID(), logger)
	controller := login.NewController(cfg, store, collector, logger)

	// Operations against one account are serialized: two concurrent runs
	// sharing a profile would collide on cookies and lock markers.
	locks := browser.NewAccountLocks()
	release := locks.Acquire(creds.Identifier)
	defer release()

	launcher, err := browser.NewLauncher(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "browser error: %v\n", err)
		return exitPipelineFail
	}
	defer launcher.Stop()

	handle, err := controller.Acquire(launcher)
	if err != nil {
		printFatal(err)
		printRunLog(logger.LogPath())
		return exitBlocked
	}
	defer handle.Close()

	page := browser.LivePage{Page: handle.Page}
	cookies := browser.ContextCookies{Context: handle.Context}

	mode := login.ModeInteractiveIfNeeded
	if !opts.interactive || opts.dryRun {
		mode = login.ModePassive
	}

	result, err := controller.EnsureLoggedIn(handle, page, cookies, creds, opts.targetURL, mode)
	if err != nil {
		var blocked *login.BlockedError
		if errors.As(err, &blocked) {
			printBlocked(blocked)
			printRunLog(logger.LogPath())
			return exitBlocked
		}
		printFatal(err)
		printRunLog(logger.LogPath())
		return exitPipelineFail
	}

	if opts.dryRun {
		printDryRun(result, store)
		return exitOK
	}

	steps := newEditorSteps(handle.Page, job, opts.targetURL, opts.draftsURL, cfg, logger)
	pipeline := upload.NewPipeline(steps.Steps(), cfg, logger)

	outcome := pipeline.Run(context.Background())
	if outcome.Final != upload.StateSuccess {
		capture := collector.Collect(outcome.FailureReason, "pipeline_"+string(outcome.Final), page, nil)
		printPipelineFailure(outcome, capture.Dir)
		printRunLog(logger.LogPath())
		return exitPipelineFail
	}

	verdict := upload.Verify(context.Background(), cfg.Timeouts.SaveVerify, steps.Checks())
	if verdict.Verdict != upload.DraftVerified {
		capture := collector.Collect(string(verdict.Verdict), "save_verify", page, nil)
		printVerifyFailure(verdict, capture.Dir)
		printRunLog(logger.LogPath())
		return exitVerifyFail
	}

	printSuccess(job, outcome)
	return exitOK
}
