package posture

import (
	"context"
	"fmt"
	"time"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/pkg/types"
)

// InputHistoryScanner flags sustained injection activity in the trailing
// audit window.
type InputHistoryScanner struct {
	store core.Store
	cfg   config.ScannerConfig
}

func NewInputHistoryScanner(store core.Store, cfg config.ScannerConfig) *InputHistoryScanner {
	return &InputHistoryScanner{store: store, cfg: cfg}
}

func (s *InputHistoryScanner) Name() string { return "input_validation_history" }

func (s *InputHistoryScanner) Scan(ctx context.Context) ([]types.Finding, int) {
	since := time.Now().UTC().Add(-s.cfg.InjectionLookback)

	count, err := s.store.CountInjectionEventsSince(ctx, since)
	if err != nil {
		return degraded(s.Name(), err)
	}

	if count > s.cfg.InjectionEventLimit {
		return []types.Finding{{
			Type:           types.FindingInjectionActivity,
			Severity:       types.SeverityHigh,
			Description:    fmt.Sprintf("%d high-severity injection events in the last %s", count, s.cfg.InjectionLookback),
			Recommendation: "Review input validation coverage and block offending origins",
		}}, penaltyInjectionHistory
	}

	return []types.Finding{}, 0
}
