package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		input      ClassifierInput
		wantState  State
		wantSignal string
	}{
		{
			name: "writer marker beats every other signal",
			input: ClassifierInput{
				URL:                 "https://nid.naver.com/nidlogin.login",
				WriterMarkerPresent: true,
				LoginIndicator:      "gnb_my_info",
				LogoutIndicator:     "gnb_login_button",
				AuthCookiePresent:   true,
			},
			wantState:  StateLoggedIn,
			wantSignal: "writer_iframe",
		},
		{
			name: "login indicator beats cookie and logout evidence",
			input: ClassifierInput{
				URL:               "https://www.naver.com/",
				LoginIndicator:    "gnb_my_info",
				LogoutIndicator:   "login_link",
				AuthCookiePresent: true,
			},
			wantState:  StateLoggedIn,
			wantSignal: "login_indicator:gnb_my_info",
		},
		{
			name: "auth cookie overrides login redirect URL",
			input: ClassifierInput{
				URL:               "https://nid.naver.com/nidlogin.login",
				AuthCookiePresent: true,
			},
			wantState:  StateLoggedIn,
			wantSignal: "login_cookie_present",
		},
		{
			name: "logout indicator without stronger evidence",
			input: ClassifierInput{
				URL:             "https://www.naver.com/",
				LogoutIndicator: "gnb_login_button",
			},
			wantState:  StateLoggedOut,
			wantSignal: "logout_indicator:gnb_login_button",
		},
		{
			name: "login redirect URL alone is not proof of logged out",
			input: ClassifierInput{
				URL: "https://nid.naver.com/nidlogin.login?mode=form",
			},
			wantState:  StateUnknown,
			wantSignal: "login_redirect_url_transient",
		},
		{
			name:       "nothing matched",
			input:      ClassifierInput{URL: "https://blog.naver.com/somepost"},
			wantState:  StateUnknown,
			wantSignal: "no_indicator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(tt.input)
			assert.Equal(t, tt.wantState, result.State)
			assert.Equal(t, tt.wantSignal, result.Signal)
			assert.Equal(t, tt.input.URL, result.URL)
		})
	}
}

func TestClassifyCookieOnTransientRedirect(t *testing.T) {
	// Mid-navigation the URL can look like a login page while the session
	// is perfectly healthy. Cookie evidence must win.
	result := Classify(ClassifierInput{
		URL:               "https://nid.naver.com/nidlogin.login",
		AuthCookiePresent: true,
	})

	assert.Equal(t, StateLoggedIn, result.State)
	assert.Equal(t, "login_cookie_present", result.Signal)
}
