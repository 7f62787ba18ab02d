package posture

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/pkg/types"
)

const baselineScore = 100

// Orchestrator runs every domain scanner, aggregates findings and penalties
// into a composite score, and persists one scan-summary audit record per
// invocation.
type Orchestrator struct {
	scanners  []Scanner
	audit     *logger.AuditLogger
	log       *logger.Logger
	telemetry core.Telemetry
	cfg       config.ScannerConfig
}

func NewOrchestrator(store core.Store, audit *logger.AuditLogger, log *logger.Logger, telemetry core.Telemetry, cfg config.ScannerConfig) *Orchestrator {
	return &Orchestrator{
		scanners: []Scanner{
			NewDatabaseConfigScanner(store),
			NewSessionIntegrityScanner(store, cfg),
			NewInputHistoryScanner(store, cfg),
			NewAccessControlScanner(store, cfg),
		},
		audit:     audit,
		log:       log.WithComponent("orchestrator"),
		telemetry: telemetry,
		cfg:       cfg,
	}
}

// Run executes all scanners and returns the composite result. Scanner order
// never affects the score: penalties are commutative sums. The single audit
// write happens after every scanner has completed.
func (o *Orchestrator) Run(ctx context.Context, actorID string) (*types.ScanResult, error) {
	start := time.Now()
	scanID := uuid.New().String()
	log := o.log.WithScanID(scanID)

	type scanOutput struct {
		findings []types.Finding
		penalty  int
	}
	outputs := make([]scanOutput, len(o.scanners))

	g, gctx := errgroup.WithContext(ctx)
	for i, scanner := range o.scanners {
		g.Go(func() error {
			findings, penalty := o.runScanner(gctx, scanner)
			outputs[i] = scanOutput{findings: findings, penalty: penalty}
			return nil
		})
	}
	// Scanners never return errors; failures surface as degraded findings.
	_ = g.Wait()

	findings := []types.Finding{}
	totalPenalty := 0
	for _, out := range outputs {
		findings = append(findings, out.findings...)
		totalPenalty += out.penalty
	}

	score := clampScore(baselineScore - totalPenalty)
	status := ClassifyScore(score)

	result := &types.ScanResult{
		ScanID:          scanID,
		Score:           score,
		Status:          status,
		Findings:        findings,
		Recommendations: Recommendations(findings),
		Duration:        time.Since(start),
		CompletedAt:     time.Now().UTC(),
	}

	o.audit.RecordBestEffort(ctx, "comprehensive_security_scan", auditSeverity(score), actorID, map[string]interface{}{
		"scan_id":       scanID,
		"score":         score,
		"status":        string(status),
		"total_penalty": totalPenalty,
		"finding_count": len(findings),
	})

	if o.telemetry != nil {
		o.telemetry.RecordScan(status, result.Duration.Seconds())
		for _, f := range findings {
			o.telemetry.RecordFinding(f.Severity)
		}
	}

	log.Infow("Comprehensive scan completed",
		"score", score,
		"status", status,
		"findings", len(findings),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// runScanner bounds one scanner by the configured timeout. A scanner that
// overruns is treated exactly like a failed read.
func (o *Orchestrator) runScanner(ctx context.Context, s Scanner) ([]types.Finding, int) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ScanTimeout)
	defer cancel()

	type result struct {
		findings []types.Finding
		penalty  int
	}
	done := make(chan result, 1)

	go func() {
		findings, penalty := s.Scan(ctx)
		done <- result{findings: findings, penalty: penalty}
	}()

	select {
	case r := <-done:
		return r.findings, r.penalty
	case <-ctx.Done():
		return degraded(s.Name(), ctx.Err())
	}
}

// ClassifyScore maps a composite score to the overall posture status.
func ClassifyScore(score int) types.ScanStatus {
	switch {
	case score >= 85:
		return types.ScanStatusSecure
	case score > 70:
		return types.ScanStatusWarning
	default:
		return types.ScanStatusCritical
	}
}

// auditSeverity maps the composite score to the severity recorded on the
// scan-summary audit event.
func auditSeverity(score int) types.Severity {
	switch {
	case score < 70:
		return types.SeverityHigh
	case score < 85:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// clampScore keeps the composite score in [0,100]. The penalty sum can exceed
// the baseline when several critical findings stack up.
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > baselineScore {
		return baselineScore
	}
	return score
}
