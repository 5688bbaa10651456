package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/postwright/postwright/pkg/config"
	"github.com/postwright/postwright/pkg/logging"
	"github.com/postwright/postwright/pkg/upload"
)

// Selectors for the editor surface. The markup is not ours and drifts; when
// a selector breaks, the pipeline surfaces the failure with artifacts rather
// than guessing.
const (
	editorFrameSelector = "iframe#mainFrame"
	titleSelector       = ".se-title-text"
	bodySelector        = ".se-component-content p"
	saveButtonSelector  = "button[data-click-area='tpb.save'], .save_btn__bzc5B"
	saveToastSelector   = ".se-toast-message, .toast_area"
	popupCloseSelector  = ".se-popup-close-button, button.se-popup-button-cancel"
	draftListSelector   = ".list_save_post li, .item_save_post"
)

// editorSteps implements the five pipeline steps and the two verification
// checks over a live Playwright page. All DOM specifics live here; the
// pipeline itself only sees tagged results.
type editorSteps struct {
	page      playwright.Page
	frame     playwright.FrameLocator
	job       Job
	editorURL string
	draftsURL string
	cfg       config.Config
	log       *logging.Logger
}

func newEditorSteps(page playwright.Page, job Job, editorURL, draftsURL string, cfg config.Config, log *logging.Logger) *editorSteps {
	return &editorSteps{
		page:      page,
		job:       job,
		editorURL: editorURL,
		draftsURL: draftsURL,
		cfg:       cfg,
		log:       log,
	}
}

// Steps returns the injectable step set for the pipeline.
func (e *editorSteps) Steps() upload.Steps {
	return upload.Steps{
		OpenEditor:   e.openEditor,
		WriteContent: e.writeContent,
		ClickSave:    e.clickSave,
		WaitSave:     e.waitSave,
		Recover:      e.recover,
	}
}

// Checks returns the verification checks for the save verifier.
func (e *editorSteps) Checks() upload.VerifyChecks {
	return upload.VerifyChecks{
		ToastSeen:   e.toastSeen,
		DraftExists: e.draftExists,
	}
}

func (e *editorSteps) openEditor(ctx context.Context) upload.StepResult {
	if _, err := e.page.Goto(e.editorURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   e.budgetMs(ctx),
	}); err != nil {
		return upload.Failed("editor navigation failed", err)
	}

	e.frame = e.page.FrameLocator(editorFrameSelector)

	// The editor loads inside the frame; its title element appearing is
	// the readiness signal.
	if err := e.frame.Locator(titleSelector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: e.budgetMs(ctx),
	}); err != nil {
		return upload.Failed("editor surface not ready", err)
	}
	return upload.OK()
}

func (e *editorSteps) writeContent(ctx context.Context) upload.StepResult {
	if err := e.frame.Locator(titleSelector).First().Click(playwright.LocatorClickOptions{
		Timeout: e.budgetMs(ctx),
	}); err != nil {
		return upload.Failed("title field unreachable", err)
	}
	if err := e.page.Keyboard().Type(e.job.Title); err != nil {
		return upload.Failed("failed to type title", err)
	}

	if err := e.frame.Locator(bodySelector).First().Click(playwright.LocatorClickOptions{
		Timeout: e.budgetMs(ctx),
	}); err != nil {
		return upload.Failed("body field unreachable", err)
	}
	body := e.job.Body
	if len(e.job.Tags) > 0 {
		body += "\n\n#" + strings.Join(e.job.Tags, " #")
	}
	if err := e.page.Keyboard().Type(body); err != nil {
		return upload.Failed("failed to type body", err)
	}
	return upload.OK()
}

func (e *editorSteps) clickSave(ctx context.Context) upload.StepResult {
	if err := e.frame.Locator(saveButtonSelector).First().Click(playwright.LocatorClickOptions{
		Timeout: e.budgetMs(ctx),
	}); err != nil {
		return upload.Failed("save button unreachable", err)
	}
	return upload.OK()
}

// waitSave polls for the transient save toast until the step deadline.
func (e *editorSteps) waitSave(ctx context.Context) upload.StepResult {
	for {
		select {
		case <-ctx.Done():
			return upload.TimedOut("save confirmation toast not seen")
		default:
		}

		visible, err := e.frame.Locator(saveToastSelector).First().IsVisible()
		if err == nil && visible {
			return upload.OK()
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// recover dismisses a blocking overlay and reacquires the editor frame, which
// may have gone stale across an in-frame navigation.
func (e *editorSteps) recover(ctx context.Context) upload.StepResult {
	if err := e.page.Keyboard().Press("Escape"); err != nil {
		e.log.Warnf("escape press failed during recovery: %v", err)
	}

	visible, err := e.page.IsVisible(popupCloseSelector)
	if err == nil && visible {
		if err := e.page.Click(popupCloseSelector, playwright.PageClickOptions{
			Timeout: e.budgetMs(ctx),
		}); err != nil {
			return upload.Failed("overlay dismissal failed", err)
		}
	}

	e.frame = e.page.FrameLocator(editorFrameSelector)
	if _, err := e.frame.Locator(titleSelector).First().IsVisible(); err != nil {
		return upload.Failed("editor frame unrecoverable", err)
	}
	return upload.OK()
}

func (e *editorSteps) toastSeen(ctx context.Context) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, nil
		default:
		}

		visible, err := e.frame.Locator(saveToastSelector).First().IsVisible()
		if err == nil && visible {
			return true, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// draftExists checks out-of-band that the draft is retrievable: the drafts
// listing is opened in a separate page so the editor state is undisturbed.
func (e *editorSteps) draftExists(ctx context.Context) (bool, error) {
	listPage, err := e.page.Context().NewPage()
	if err != nil {
		return false, fmt.Errorf("failed to open drafts listing page: %w", err)
	}
	defer listPage.Close()

	if _, err := listPage.Goto(e.draftsURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   e.budgetMs(ctx),
	}); err != nil {
		return false, fmt.Errorf("drafts listing unreachable: %w", err)
	}

	count, err := listPage.Locator(draftListSelector).Count()
	if err != nil {
		return false, fmt.Errorf("drafts listing unreadable: %w", err)
	}
	return count > 0, nil
}

// budgetMs converts the remaining context deadline to Playwright's
// millisecond timeouts.
func (e *editorSteps) budgetMs(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	return playwright.Float(float64(remaining.Milliseconds()))
}
