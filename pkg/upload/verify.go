package upload

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Verdict is the outcome of draft persistence verification.
type Verdict string

const (
	// DraftVerified means the draft is independently retrievable.
	DraftVerified Verdict = "DRAFT_VERIFIED"

	// DraftNotFound means the persistence check resolved negative with no
	// success signal seen.
	DraftNotFound Verdict = "DRAFT_NOT_FOUND"

	// DraftNotFoundAfterSuccessSignal means the transient save toast was
	// seen but the draft could not be found. A UI acknowledgment is never
	// sufficient proof of persistence, so this is still a failure.
	DraftNotFoundAfterSuccessSignal Verdict = "DRAFT_NOT_FOUND_AFTER_SUCCESS_SIGNAL"

	// DraftVerifyTimeout means the persistence check never resolved within
	// the shared deadline.
	DraftVerifyTimeout Verdict = "DRAFT_VERIFY_TIMEOUT"
)

// VerifyChecks are the two independent signals the verifier consults.
type VerifyChecks struct {
	// ToastSeen waits for the transient save-confirmation message.
	ToastSeen func(ctx context.Context) (bool, error)

	// DraftExists confirms the draft is retrievable out-of-band, e.g. it
	// appears in the drafts listing or its edit URL resolves.
	DraftExists func(ctx context.Context) (bool, error)
}

// VerifyResult carries the verdict plus the raw signal outcomes.
type VerifyResult struct {
	Verdict     Verdict
	ToastSeen   bool
	DraftExists bool
}

// Verify runs both checks concurrently against one shared deadline. The
// verdict rests entirely on the persistence check; the toast only
// distinguishes failure modes.
func Verify(ctx context.Context, budget time.Duration, checks VerifyChecks) VerifyResult {
	deadlineCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var (
		toastSeen     bool
		draftExists   bool
		draftResolved bool
	)

	g, gctx := errgroup.WithContext(deadlineCtx)

	g.Go(func() error {
		if checks.ToastSeen == nil {
			return nil
		}
		done := make(chan struct{})
		var seen bool
		var err error
		go func() {
			seen, err = checks.ToastSeen(gctx)
			close(done)
		}()

		select {
		case <-done:
			// Toast failures never abort the group; the toast is advisory.
			if err == nil {
				toastSeen = seen
			}
		case <-gctx.Done():
			// Unresolved within budget; the late result is discarded.
		}
		return nil
	})

	g.Go(func() error {
		if checks.DraftExists == nil {
			return nil
		}
		done := make(chan struct{})
		var exists bool
		var err error
		go func() {
			exists, err = checks.DraftExists(gctx)
			close(done)
		}()

		select {
		case <-done:
			if err == nil {
				draftResolved = true
				draftExists = exists
			}
		case <-gctx.Done():
			// Unresolved within budget; the late result is discarded.
		}
		return nil
	})

	_ = g.Wait()

	switch {
	case draftResolved && draftExists:
		return VerifyResult{Verdict: DraftVerified, ToastSeen: toastSeen, DraftExists: true}
	case draftResolved && toastSeen:
		return VerifyResult{Verdict: DraftNotFoundAfterSuccessSignal, ToastSeen: true}
	case draftResolved:
		return VerifyResult{Verdict: DraftNotFound}
	default:
		return VerifyResult{Verdict: DraftVerifyTimeout, ToastSeen: toastSeen}
	}
}
