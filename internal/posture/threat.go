package posture

import (
	"context"

	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/pkg/types"
)

// ThreatAnalyzer is the threat-analysis operation: it runs the signature
// matcher over one input and owns persistence of every match. The matcher
// itself stays pure.
type ThreatAnalyzer struct {
	matcher *Matcher
	audit   *logger.AuditLogger
}

func NewThreatAnalyzer(matcher *Matcher, audit *logger.AuditLogger) *ThreatAnalyzer {
	return &ThreatAnalyzer{matcher: matcher, audit: audit}
}

// Analyze matches input against the signature table and logs one security
// event per hit. These events are the input-validation history the
// InputHistoryScanner later reads back.
func (a *ThreatAnalyzer) Analyze(ctx context.Context, input, actorID string) []types.Finding {
	findings := a.matcher.Match(input)

	for _, f := range findings {
		a.audit.RecordBestEffort(ctx, string(f.Type), f.Severity, actorID, map[string]interface{}{
			"description":  f.Description,
			"confidence":   f.Confidence,
			"input_sample": truncate(input, 256),
		})
	}

	return findings
}

// truncate caps persisted input samples; the audit log is not a payload
// archive.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
