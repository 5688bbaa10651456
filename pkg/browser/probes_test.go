package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSurface struct {
	url        string
	visible    map[string]bool
	visibleErr map[string]error
	content    string
	contentErr error
}

func (s stubSurface) URL() string { return s.url }

func (s stubSurface) Visible(selector string) (bool, error) {
	if err := s.visibleErr[selector]; err != nil {
		return false, err
	}
	return s.visible[selector], nil
}

func (s stubSurface) Content() (string, error) { return s.content, s.contentErr }

func TestRunProbesFirstMatchWins(t *testing.T) {
	surface := stubSurface{
		url:     "https://example.com",
		visible: map[string]bool{"#first": true, "#second": true},
	}
	probes := []Probe{
		{ID: "first", Kind: ProbeSelector, Pattern: "#first"},
		{ID: "second", Kind: ProbeSelector, Pattern: "#second"},
	}

	match, ok := RunProbes(surface, probes)
	require.True(t, ok)
	assert.Equal(t, "first", match.ID)
	assert.Contains(t, match.Evidence, "#first")
}

func TestRunProbesURLGlob(t *testing.T) {
	surface := stubSurface{url: "https://nid.naver.com/nidlogin.login?mode=form"}
	probes := []Probe{
		{ID: "login_url", Kind: ProbeURLGlob, Pattern: "*nidlogin*"},
	}

	match, ok := RunProbes(surface, probes)
	require.True(t, ok)
	assert.Equal(t, "login_url", match.ID)
}

func TestRunProbesTextGlobCaseInsensitive(t *testing.T) {
	surface := stubSurface{content: "<div>Please solve the CAPTCHA</div>"}
	probes := []Probe{
		{ID: "captcha_text", Kind: ProbeTextGlob, Pattern: "*captcha*"},
	}

	match, ok := RunProbes(surface, probes)
	require.True(t, ok)
	assert.Equal(t, "captcha_text", match.ID)
}

func TestRunProbesErrorsDoNotAbortScan(t *testing.T) {
	// An unstable page losing one selector must not mask a later probe.
	surface := stubSurface{
		visible:    map[string]bool{"#fallback": true},
		visibleErr: map[string]error{"#broken": errors.New("execution context destroyed")},
	}
	probes := []Probe{
		{ID: "broken", Kind: ProbeSelector, Pattern: "#broken"},
		{ID: "fallback", Kind: ProbeSelector, Pattern: "#fallback"},
	}

	match, ok := RunProbes(surface, probes)
	require.True(t, ok)
	assert.Equal(t, "fallback", match.ID)
}

func TestRunProbesNoMatch(t *testing.T) {
	surface := stubSurface{url: "https://example.com", content: "hello"}
	probes := []Probe{
		{ID: "a", Kind: ProbeSelector, Pattern: "#a"},
		{ID: "b", Kind: ProbeURLGlob, Pattern: "*login*"},
		{ID: "c", Kind: ProbeTextGlob, Pattern: "*captcha*"},
	}

	_, ok := RunProbes(surface, probes)
	assert.False(t, ok)
}

func TestRunProbesContentErrorSkipsTextProbes(t *testing.T) {
	surface := stubSurface{contentErr: errors.New("frame detached")}
	probes := []Probe{
		{ID: "a", Kind: ProbeTextGlob, Pattern: "*a*"},
		{ID: "b", Kind: ProbeTextGlob, Pattern: "*b*"},
	}

	_, ok := RunProbes(surface, probes)
	assert.False(t, ok, "content errors skip text probes without matching")
}
