package login

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postwright/postwright/pkg/browser"
)

func TestAttemptCredentialsSingleUse(t *testing.T) {
	ctrl, _ := newTestController(t)

	page := &fakePage{
		url:     "about:blank",
		visible: map[string]bool{},
		onSubmit: func(p *fakePage) {
			p.content = "captcha"
		},
	}
	handle := &browser.Handle{}
	creds := Credentials{Identifier: "user", Secret: "pw"}

	_, blocked, err := ctrl.attemptCredentials(handle, page, fakeCookies{}, creds, testTargetURL)
	require.NoError(t, err)
	require.NotNil(t, blocked)

	// The flag on the session guards against repeated automated
	// submissions; the second call must not touch the page at all.
	fillsBefore := len(page.fills)
	_, _, err = ctrl.attemptCredentials(handle, page, fakeCookies{}, creds, testTargetURL)
	assert.ErrorIs(t, err, ErrAttemptAlreadyMade)
	assert.Len(t, page.fills, fillsBefore)
}

func TestEvaluateBlockSignalsPriority(t *testing.T) {
	// CAPTCHA outranks the still-visible login form even when both match.
	page := &fakePage{
		url: "https://nid.naver.com/nidlogin.login",
		visible: map[string]bool{
			"#frmNIDLogin": true,
			"#captchaimg":  true,
		},
	}

	reason, match, found := evaluateBlockSignals(page)
	require.True(t, found)
	assert.Equal(t, ReasonCaptcha, reason)
	assert.Equal(t, "captcha_image", match.ID)
}

func TestEvaluateBlockSignalsFormOnly(t *testing.T) {
	page := &fakePage{
		url:     "https://nid.naver.com/nidlogin.login",
		visible: map[string]bool{"#frmNIDLogin": true},
	}

	reason, _, found := evaluateBlockSignals(page)
	require.True(t, found)
	assert.Equal(t, ReasonLoginFormVisible, reason)
}

func TestWaitForWriterSurfaceRenavigatesOnce(t *testing.T) {
	ctrl, _ := newTestController(t)

	page := &fakePage{url: "https://blog.naver.com/somewhere", visible: map[string]bool{}}

	start := time.Now()
	ok := ctrl.waitForWriterSurface(page, testTargetURL)
	elapsed := time.Since(start)

	assert.False(t, ok)
	// One re-navigation mid-budget, and termination at the budget.
	assert.Equal(t, []string{testTargetURL}, page.navigations)
	assert.Less(t, elapsed, 2*ctrl.cfg.Timeouts.WriterSurface)
}
