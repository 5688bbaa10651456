package login

import "github.com/postwright/postwright/pkg/browser"

// The target surface does not belong to us: selectors drift, markup changes
// without notice. Every structural check below is therefore an ordered probe
// table rather than a single hard-coded selector, evaluated first-match-wins.

// LoginEntryURL is the credential form entry point.
const LoginEntryURL = "https://nid.naver.com/nidlogin.login"

// loginURLGlob matches the login surface and its redirect chain, used for
// the bounded post-submit wait for navigation away.
const loginURLGlob = "*nidlogin*"

// AuthCookieNames are the session cookies whose presence counts as
// authentication evidence.
var AuthCookieNames = []string{"NID_AUT", "NID_SES"}

// writerSurfaceProbes confirm the authenticated content-editing view is
// structurally reachable. Strongest proof of an active session.
var writerSurfaceProbes = []browser.Probe{
	{ID: "writer_iframe", Kind: browser.ProbeSelector, Pattern: "iframe#mainFrame"},
	{ID: "editor_container", Kind: browser.ProbeSelector, Pattern: ".se-container"},
}

// loginIndicatorProbes match authenticated chrome shown outside the writer
// surface.
var loginIndicatorProbes = []browser.Probe{
	{ID: "gnb_my_info", Kind: browser.ProbeSelector, Pattern: ".MyView-module__my_info___GNmHz"},
	{ID: "gnb_logout_link", Kind: browser.ProbeSelector, Pattern: "a[href*='nidlogin.logout']"},
	{ID: "my_blog_link", Kind: browser.ProbeSelector, Pattern: "a[href*='blog.naver.com/MyBlog']"},
}

// logoutIndicatorProbes match chrome only shown to anonymous visitors.
var logoutIndicatorProbes = []browser.Probe{
	{ID: "gnb_login_button", Kind: browser.ProbeSelector, Pattern: "a.MyView-module__link_login___HpHMW"},
	{ID: "login_link", Kind: browser.ProbeSelector, Pattern: "a[href*='nidlogin.login']"},
}

// loginFormSelectors locate the credential form fields.
var loginFormSelectors = struct {
	Identifier string
	Secret     string
	Submit     string
}{
	Identifier: "#id",
	Secret:     "#pw",
	Submit:     "button[type='submit']",
}

// blockSignalTable defines block-signal detection in fixed priority order;
// the first reason with a matching probe wins. DOM markers rank above
// free-text wording matches within each reason.
var blockSignalTable = []struct {
	Reason BlockedReason
	Probes []browser.Probe
}{
	{
		Reason: ReasonCaptcha,
		Probes: []browser.Probe{
			{ID: "captcha_image", Kind: browser.ProbeSelector, Pattern: "#captchaimg"},
			{ID: "captcha_field", Kind: browser.ProbeSelector, Pattern: "#captcha"},
			{ID: "captcha_text", Kind: browser.ProbeTextGlob, Pattern: "*captcha*"},
			{ID: "captcha_text_kr", Kind: browser.ProbeTextGlob, Pattern: "*자동입력 방지*"},
		},
	},
	{
		Reason: ReasonTwoFactor,
		Probes: []browser.Probe{
			{ID: "otp_field", Kind: browser.ProbeSelector, Pattern: "#otp"},
			{ID: "otp_text", Kind: browser.ProbeTextGlob, Pattern: "*otp*"},
			{ID: "twofactor_text", Kind: browser.ProbeTextGlob, Pattern: "*2단계 인증*"},
		},
	},
	{
		Reason: ReasonSecurityConfirm,
		Probes: []browser.Probe{
			{ID: "device_confirm", Kind: browser.ProbeSelector, Pattern: "#new_device_confirm"},
			{ID: "security_text", Kind: browser.ProbeTextGlob, Pattern: "*보호조치*"},
			{ID: "unusual_signin_text", Kind: browser.ProbeTextGlob, Pattern: "*unusual sign-in*"},
		},
	},
	{
		Reason: ReasonAgreement,
		Probes: []browser.Probe{
			{ID: "agreement_form", Kind: browser.ProbeSelector, Pattern: "form[name='agreeForm']"},
			{ID: "agreement_text", Kind: browser.ProbeTextGlob, Pattern: "*약관 동의*"},
		},
	},
	{
		Reason: ReasonLoginFormVisible,
		Probes: []browser.Probe{
			{ID: "login_form", Kind: browser.ProbeSelector, Pattern: "#frmNIDLogin"},
			{ID: "login_pw_field", Kind: browser.ProbeSelector, Pattern: "#pw"},
		},
	},
}
