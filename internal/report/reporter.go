package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nightshade/scanner/internal/utils"
)

// Finding represents a confirmed blind vulnerability. Only a CONFIRMED
// session outcome may produce one; indeterminate (ERROR) confirmations never
// become findings.
type Finding struct {
	Target        string    `json:"target"`
	Detector      string    `json:"detector"`
	Vulnerability string    `json:"vulnerability_type"`
	Severity      string    `json:"severity"`
	Parameter     string    `json:"parameter,omitempty"` // injection point (query param, form field or header)
	Payload       string    `json:"payload,omitempty"`
	Token         string    `json:"correlation_token"`
	Protocol      string    `json:"protocol,omitempty"` // protocol class of the observed callback
	Evidence      string    `json:"evidence,omitempty"`
	DetectedAt    time.Time `json:"detected_at"`
}

// Reporter accumulates findings and renders the final report.
type Reporter struct {
	mu       sync.Mutex
	findings []Finding
	logger   utils.Logger
}

// NewReporter creates a new Reporter.
func NewReporter(logger utils.Logger) *Reporter {
	if logger == nil {
		logger = utils.NewNoOpLogger()
	}
	return &Reporter{logger: logger}
}

// AddFinding records a new finding.
func (r *Reporter) AddFinding(finding Finding) {
	r.mu.Lock()
	r.findings = append(r.findings, finding)
	r.mu.Unlock()
	r.logger.Infof("[VULN] %s on %s (param: %s, token: %s)",
		finding.Vulnerability, finding.Target, finding.Parameter, finding.Token)
}

// Findings returns a copy of all recorded findings.
func (r *Reporter) Findings() []Finding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Finding, len(r.findings))
	copy(out, r.findings)
	return out
}

// GenerateReport outputs all recorded findings in the configured format, to
// outputPath or stdout when it is empty.
func (r *Reporter) GenerateReport(outputPath string, format string) error {
	findings := r.Findings()

	outputWriter := os.Stdout
	if outputPath != "" {
		if err := utils.EnsureFilepathExists(outputPath); err != nil {
			return err
		}
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		outputWriter = file
	}

	if format == "json" {
		encoder := json.NewEncoder(outputWriter)
		encoder.SetIndent("", "  ")
		return encoder.Encode(findings)
	}

	// Default to simple text format.
	for _, finding := range findings {
		_, err := fmt.Fprintf(outputWriter,
			"Target: %s\nDetector: %s\nType: %s\nSeverity: %s\nParameter: %s\nPayload: %s\nToken: %s\nEvidence: %s\n---\n",
			finding.Target, finding.Detector, finding.Vulnerability, finding.Severity,
			finding.Parameter, finding.Payload, finding.Token, finding.Evidence)
		if err != nil {
			return err
		}
	}
	return nil
}
