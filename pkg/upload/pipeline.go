// Package upload implements the draft-save pipeline: a bounded state machine
// over five injectable step functions, with at most one recovery cycle, and
// the time-boxed draft persistence verifier. The pipeline contains no DOM
// code; everything page-specific arrives through the Steps.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/postwright/postwright/pkg/config"
	"github.com/postwright/postwright/pkg/logging"
)

// Status tags a step result so callers handle each branch explicitly.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// StepResult is the uniform outcome of one pipeline step.
type StepResult struct {
	Status Status
	Reason string
	Err    error
}

// OK returns a successful step result.
func OK() StepResult { return StepResult{Status: StatusOK} }

// Failed returns a hard-failure step result.
func Failed(reason string, err error) StepResult {
	return StepResult{Status: StatusFailed, Reason: reason, Err: err}
}

// TimedOut returns a timeout step result.
func TimedOut(reason string) StepResult {
	return StepResult{Status: StatusTimeout, Reason: reason}
}

// Steps are the injectable pipeline operations. Each receives a context
// carrying that state's deadline and returns a tagged result.
type Steps struct {
	OpenEditor   func(ctx context.Context) StepResult
	WriteContent func(ctx context.Context) StepResult
	ClickSave    func(ctx context.Context) StepResult
	WaitSave     func(ctx context.Context) StepResult

	// Recover dismisses a blocking overlay and reacquires a possibly-stale
	// editor frame reference. A failed recovery ends the pipeline.
	Recover func(ctx context.Context) StepResult
}

// PipelineState names one state of the draft-save machine.
type PipelineState string

const (
	StateInit         PipelineState = "INIT"
	StateOpenEditor   PipelineState = "OPEN_EDITOR"
	StateWriteContent PipelineState = "WRITE_CONTENT"
	StateClickSave    PipelineState = "CLICK_SAVE"
	StateWaitSave     PipelineState = "WAIT_SAVE"
	StateRecovery     PipelineState = "RECOVERY"
	StateSuccess      PipelineState = "SUCCESS"
	StateFailed       PipelineState = "FAILED"
)

// JobState tracks one draft-save attempt: current state, the ordered history
// of visited states, and the recovery counter. Created per attempt, discarded
// after a terminal state.
type JobState struct {
	Current          PipelineState
	History          []PipelineState
	RecoveryAttempts int
}

func (j *JobState) enter(s PipelineState) {
	j.Current = s
	j.History = append(j.History, s)
}

// Outcome is the pipeline's terminal result.
type Outcome struct {
	Final         PipelineState
	FailureReason string
	Job           *JobState
}

// Pipeline is the draft-save state machine. Strictly single-shot: at most one
// recovery cycle regardless of the configured ceiling, so every run
// terminates within its summed state budgets.
type Pipeline struct {
	steps Steps
	cfg   config.Config
	log   *logging.Logger
}

// NewPipeline builds a pipeline over the given steps.
func NewPipeline(steps Steps, cfg config.Config, log *logging.Logger) *Pipeline {
	return &Pipeline{steps: steps, cfg: cfg, log: log}
}

// Run drives the machine to a terminal state. Abandoned step goroutines are
// not force-cancelled beyond context cancellation; a result arriving after
// its deadline is discarded.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	job := &JobState{}
	job.enter(StateInit)

	stages := []struct {
		state  PipelineState
		budget time.Duration
		fn     func(ctx context.Context) StepResult
	}{
		{StateOpenEditor, p.cfg.Timeouts.OpenEditor, p.steps.OpenEditor},
		{StateWriteContent, p.cfg.Timeouts.WriteContent, p.steps.WriteContent},
		{StateClickSave, p.cfg.Timeouts.ClickSave, p.steps.ClickSave},
	}

	for _, stage := range stages {
		job.enter(stage.state)
		result := p.runStep(ctx, stage.budget, stage.fn)
		p.log.Debugf("%s resolved %s", stage.state, result.Status)
		if result.Status != StatusOK {
			return p.fail(job, stage.state, result)
		}
	}

	for {
		job.enter(StateWaitSave)
		result := p.runStep(ctx, p.cfg.Timeouts.WaitSave, p.steps.WaitSave)

		switch result.Status {
		case StatusOK:
			job.enter(StateSuccess)
			return Outcome{Final: StateSuccess, Job: job}

		case StatusTimeout:
			// A wait timeout is the one recoverable condition. One cycle
			// only, enforced against both the counter and the ceiling.
			if job.RecoveryAttempts >= 1 || job.RecoveryAttempts >= p.cfg.MaxRecoveryAttempts {
				return p.fail(job, StateWaitSave, result)
			}
			job.RecoveryAttempts++
			job.enter(StateRecovery)
			p.log.Warnf("save wait timed out, attempting recovery: %s", result.Reason)

			recovery := p.runStep(ctx, p.cfg.Timeouts.Recovery, p.steps.Recover)
			if recovery.Status != StatusOK {
				return p.fail(job, StateRecovery, recovery)
			}
			// Recovery succeeded: re-enter WAIT_SAVE once.

		default:
			return p.fail(job, StateWaitSave, result)
		}
	}
}

func (p *Pipeline) fail(job *JobState, at PipelineState, result StepResult) Outcome {
	job.enter(StateFailed)

	reason := result.Reason
	if reason == "" {
		reason = fmt.Sprintf("%s %s", at, result.Status)
	}
	if result.Err != nil {
		reason = fmt.Sprintf("%s: %v", reason, result.Err)
	}

	p.log.Errorf("pipeline failed at %s: %s", at, reason)
	return Outcome{Final: StateFailed, FailureReason: reason, Job: job}
}

// runStep runs one step under its wall-clock budget. The step's context is
// cancelled at the deadline; a step that ignores cancellation is abandoned
// and its late result discarded.
func (p *Pipeline) runStep(ctx context.Context, budget time.Duration, fn func(ctx context.Context) StepResult) StepResult {
	if fn == nil {
		return Failed("step not configured", nil)
	}

	stepCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan StepResult, 1)
	go func() {
		done <- fn(stepCtx)
	}()

	select {
	case result := <-done:
		return result
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return Failed("pipeline cancelled", ctx.Err())
		}
		return TimedOut(fmt.Sprintf("step did not resolve within %s", budget))
	}
}
