package debug

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	url        string
	content    string
	contentErr error
	screenshot []byte
	shotErr    error
	panicAll   bool
}

func (t fakeTarget) URL() string {
	if t.panicAll {
		panic("page gone")
	}
	return t.url
}

func (t fakeTarget) Content() (string, error) {
	if t.panicAll {
		panic("page gone")
	}
	return t.content, t.contentErr
}

func (t fakeTarget) Screenshot() ([]byte, error) {
	if t.panicAll {
		panic("page gone")
	}
	return t.screenshot, t.shotErr
}

func readReport(t *testing.T, path string) Report {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	return report
}

func TestCollectWithNilTarget(t *testing.T) {
	c := NewCollector(t.TempDir(), "run1234", nil)

	capture := c.Collect("WAIT_SAVE_TIMEOUT", "wait_save", nil, nil)

	info, err := os.Stat(capture.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	report := readReport(t, capture.ReportPath)
	assert.Equal(t, "WAIT_SAVE_TIMEOUT", report.Reason)
	assert.Equal(t, "wait_save", report.Stage)
	assert.Empty(t, report.Artifacts)
	assert.NotEmpty(t, report.CaptureErrors)
	assert.NotNil(t, report.CompletedAt)
}

func TestCollectAllCapturesFail(t *testing.T) {
	c := NewCollector(t.TempDir(), "run1234", nil)

	target := fakeTarget{
		contentErr: errors.New("frame detached"),
		shotErr:    errors.New("page closed"),
	}
	capture := c.Collect("CAPTCHA_DETECTED", "credential_attempt", target, nil)

	report := readReport(t, capture.ReportPath)
	for name, saved := range report.Artifacts {
		assert.False(t, saved, "artifact %s should not be marked saved", name)
	}
	assert.GreaterOrEqual(t, len(report.CaptureErrors), 2)
	assert.NotEmpty(t, report.Note, "fallback note when nothing was captured")
}

func TestCollectSurvivesPanickingTarget(t *testing.T) {
	c := NewCollector(t.TempDir(), "run1234", nil)

	assert.NotPanics(t, func() {
		capture := c.Collect("reason", "stage", fakeTarget{panicAll: true}, nil)
		report := readReport(t, capture.ReportPath)
		assert.NotEmpty(t, report.CaptureErrors)
	})
}

func TestCollectFullCapture(t *testing.T) {
	c := NewCollector(t.TempDir(), "run1234", nil)

	target := fakeTarget{
		url: "https://nid.naver.com/nidlogin.login",
		content: `<html><body>
			<form id="frmNIDLogin"><input type="password" id="pw"></form>
			<iframe src="inner"></iframe>
		</body></html>`,
		screenshot: []byte("png-bytes"),
	}
	capture := c.Collect("LOGIN_FORM_STILL_VISIBLE", "credential_attempt", target, &Probes{
		Login: map[string]interface{}{"state": "logged_out"},
	})

	report := readReport(t, capture.ReportPath)
	assert.True(t, report.Artifacts["page_html"])
	assert.True(t, report.Artifacts["screenshot"])
	assert.Empty(t, report.CaptureErrors)
	assert.Equal(t, "https://nid.naver.com/nidlogin.login", report.URL)

	require.NotNil(t, report.DOMSummary)
	assert.Equal(t, 1, report.DOMSummary.Forms)
	assert.Equal(t, 1, report.DOMSummary.Iframes)
	assert.Equal(t, 1, report.DOMSummary.PasswordFields)

	require.NotNil(t, report.Probes)
	assert.Equal(t, "logged_out", report.Probes.Login["state"])

	html, err := os.ReadFile(filepath.Join(capture.Dir, "page.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "frmNIDLogin")
}

func TestCollectDirectoryLayout(t *testing.T) {
	root := t.TempDir()
	c := NewCollector(root, "runabcd", nil)

	capture := c.Collect("reason", "stage/with spaces", nil, nil)

	rel, err := filepath.Rel(root, capture.Dir)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{8}[/\\]runabcd[/\\]stage_with_spaces$`, rel)
}
