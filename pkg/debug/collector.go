// Package debug implements best-effort failure artifact capture. The
// collector backs every blocking and timeout decision in the session and
// pipeline state machines: whatever else goes wrong, it leaves behind a
// readable report pointing a human at the evidence.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/postwright/postwright/pkg/logging"
)

// Target is whatever render surface is still reachable at capture time. Any
// method may fail; the target itself may be nil.
type Target interface {
	URL() string
	Content() (string, error)
	Screenshot() ([]byte, error)
}

// DOMSummary is derived from the captured HTML, hinting at what the page was
// showing when things went wrong.
type DOMSummary struct {
	Forms          int `json:"forms"`
	Iframes        int `json:"iframes"`
	PasswordFields int `json:"password_fields"`
}

// Probes are optional structured observations embedded in a report.
type Probes struct {
	Login  map[string]interface{} `json:"login,omitempty"`
	Editor map[string]interface{} `json:"editor,omitempty"`
	Iframe map[string]interface{} `json:"iframe,omitempty"`
}

// Report is the debug report schema written to report.json.
type Report struct {
	Reason        string          `json:"reason"`
	Stage         string          `json:"stage"`
	RunID         string          `json:"run_id"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	URL           string          `json:"url,omitempty"`
	Artifacts     map[string]bool `json:"artifacts"`
	CaptureErrors []string        `json:"capture_errors"`
	DOMSummary    *DOMSummary     `json:"dom_summary,omitempty"`
	Probes        *Probes         `json:"probes,omitempty"`
	Note          string          `json:"note,omitempty"`
}

// Capture is the result of one collection run.
type Capture struct {
	Dir        string
	ReportPath string
	Saved      map[string]bool
	Errors     []string
}

// Collector writes failure artifacts under per-run, per-stage directories:
// <root>/<YYYYMMDD>/<runID>/<stage>/.
type Collector struct {
	root  string
	runID string
	log   *logging.Logger
}

// NewCollector creates a collector rooted at dir, keyed by the run ID.
func NewCollector(root, runID string, log *logging.Logger) *Collector {
	return &Collector{root: root, runID: runID, log: log}
}

// Collect captures whatever it can and always returns an existing directory
// containing a readable report, even when the target is nil or every
// individual capture fails. It never returns an error and never panics.
func (c *Collector) Collect(reason, stage string, target Target, probes *Probes) Capture {
	dir := c.stageDir(stage)
	if err := os.MkdirAll(dir, 0750); err != nil {
		// Last resort so a directory always exists.
		dir = filepath.Join(os.TempDir(), "postwright-debug", c.runID, stage)
		if err := os.MkdirAll(dir, 0750); err != nil {
			dir = os.TempDir()
		}
	}

	report := &Report{
		Reason:        reason,
		Stage:         stage,
		RunID:         c.runID,
		StartedAt:     time.Now(),
		Artifacts:     map[string]bool{},
		CaptureErrors: []string{},
		Probes:        probes,
	}
	reportPath := filepath.Join(dir, "report.json")

	// Placeholder first: a crash mid-capture still leaves a valid report.
	c.writeReport(reportPath, report)

	if target != nil {
		report.URL = c.captureString(report, "url", func() (string, error) {
			return target.URL(), nil
		})

		pageHTML := c.captureString(report, "page_html", target.Content)
		if pageHTML != "" {
			report.Artifacts["page_html"] = c.writeArtifact(report, filepath.Join(dir, "page.html"), []byte(pageHTML))
			report.DOMSummary = summarizeDOM(pageHTML)
		}

		png := c.captureBytes(report, "screenshot", target.Screenshot)
		if png != nil {
			report.Artifacts["screenshot"] = c.writeArtifact(report, filepath.Join(dir, "screenshot.png"), png)
		}
	} else {
		report.CaptureErrors = append(report.CaptureErrors, "no render surface reachable")
	}

	saved := 0
	for _, ok := range report.Artifacts {
		if ok {
			saved++
		}
	}
	if saved == 0 {
		report.Note = "no artifacts could be captured; report is the only evidence"
		if len(report.CaptureErrors) == 0 {
			report.CaptureErrors = append(report.CaptureErrors, "all captures failed without detail")
		}
	}

	now := time.Now()
	report.CompletedAt = &now
	c.writeReport(reportPath, report)

	if c.log != nil {
		c.log.Infof("captured %d artifact(s) for %s at %s", saved, reason, dir)
	}

	return Capture{
		Dir:        dir,
		ReportPath: reportPath,
		Saved:      report.Artifacts,
		Errors:     report.CaptureErrors,
	}
}

func (c *Collector) stageDir(stage string) string {
	day := time.Now().Format("20060102")
	return filepath.Join(c.root, day, c.runID, sanitize(stage))
}

// captureString runs one capture, recovering panics into the error list.
func (c *Collector) captureString(r *Report, name string, fn func() (string, error)) (out string) {
	defer func() {
		if p := recover(); p != nil {
			r.CaptureErrors = append(r.CaptureErrors, fmt.Sprintf("%s: panic: %v", name, p))
			out = ""
		}
	}()

	s, err := fn()
	if err != nil {
		r.CaptureErrors = append(r.CaptureErrors, fmt.Sprintf("%s: %v", name, err))
		return ""
	}
	return s
}

func (c *Collector) captureBytes(r *Report, name string, fn func() ([]byte, error)) (out []byte) {
	defer func() {
		if p := recover(); p != nil {
			r.CaptureErrors = append(r.CaptureErrors, fmt.Sprintf("%s: panic: %v", name, p))
			out = nil
		}
	}()

	b, err := fn()
	if err != nil {
		r.CaptureErrors = append(r.CaptureErrors, fmt.Sprintf("%s: %v", name, err))
		return nil
	}
	return b
}

func (c *Collector) writeArtifact(r *Report, path string, data []byte) bool {
	if err := os.WriteFile(path, data, 0600); err != nil {
		r.CaptureErrors = append(r.CaptureErrors, fmt.Sprintf("write %s: %v", filepath.Base(path), err))
		return false
	}
	return true
}

func (c *Collector) writeReport(path string, report *Report) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf(`{"reason":%q,"note":"report encoding failed: %v"}`, report.Reason, err))
	}
	if err := os.WriteFile(path, data, 0600); err != nil && c.log != nil {
		c.log.Errorf("failed to write debug report %s: %v", path, err)
	}
}

// summarizeDOM parses the captured HTML and counts the structures most
// relevant to diagnosing a stuck login or editor: forms, iframes, and
// password fields.
func summarizeDOM(pageHTML string) *DOMSummary {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	summary := &DOMSummary{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				summary.Forms++
			case "iframe":
				summary.Iframes++
			case "input":
				for _, attr := range n.Attr {
					if attr.Key == "type" && attr.Val == "password" {
						summary.PasswordFields++
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return summary
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
