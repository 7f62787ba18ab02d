package posture

import (
	"context"
	"fmt"
	"time"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/pkg/types"
)

// AccessControlScanner flags privilege-escalation attempts recorded in the
// trailing lookback window.
type AccessControlScanner struct {
	store core.Store
	cfg   config.ScannerConfig
}

func NewAccessControlScanner(store core.Store, cfg config.ScannerConfig) *AccessControlScanner {
	return &AccessControlScanner{store: store, cfg: cfg}
}

func (s *AccessControlScanner) Name() string { return "access_control" }

func (s *AccessControlScanner) Scan(ctx context.Context) ([]types.Finding, int) {
	since := time.Now().UTC().Add(-s.cfg.EscalationLookback)

	count, err := s.store.CountEscalationEventsSince(ctx, since)
	if err != nil {
		return degraded(s.Name(), err)
	}

	if count > 0 {
		return []types.Finding{{
			Type:           types.FindingPrivilegeEscalation,
			Severity:       types.SeverityCritical,
			Description:    fmt.Sprintf("%d privilege escalation attempt(s) in the last %s", count, s.cfg.EscalationLookback),
			Recommendation: "Audit role assignments and review escalation attempt origins",
		}}, penaltyEscalation
	}

	return []types.Finding{}, 0
}
