package posture

import (
	"context"
	"fmt"
	"strings"

	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/pkg/types"
)

// DatabaseConfigScanner flags relations without row-level access control and
// weak platform authentication policy.
type DatabaseConfigScanner struct {
	store core.Store
}

func NewDatabaseConfigScanner(store core.Store) *DatabaseConfigScanner {
	return &DatabaseConfigScanner{store: store}
}

func (s *DatabaseConfigScanner) Name() string { return "database_configuration" }

func (s *DatabaseConfigScanner) Scan(ctx context.Context) ([]types.Finding, int) {
	findings := []types.Finding{}
	penalty := 0

	relations, err := s.store.ListUnprotectedRelations(ctx)
	if err != nil {
		return degraded(s.Name(), err)
	}
	if len(relations) > 0 {
		findings = append(findings, types.Finding{
			Type:           types.FindingMissingRowSecurity,
			Severity:       types.SeverityCritical,
			Description:    fmt.Sprintf("Relations without row-level security: %s", strings.Join(relations, ", ")),
			Recommendation: "Enable row-level security on all tenant-facing relations",
		})
		penalty += penaltyMissingRLS
	}

	policy, err := s.store.GetAuthPolicy(ctx)
	if err != nil {
		degradedFindings, degradedPenalty := degraded(s.Name(), err)
		return append(findings, degradedFindings...), penalty + degradedPenalty
	}
	if policy.MinPasswordLength < 12 || !policy.MFARequired {
		findings = append(findings, types.Finding{
			Type:           types.FindingWeakAuthPolicy,
			Severity:       types.SeverityHigh,
			Description:    "Authentication policy is below baseline (password length or MFA)",
			Recommendation: "Require 12+ character passwords and mandatory MFA",
		})
		penalty += penaltyWeakAuthPolicy
	}

	return findings, penalty
}
