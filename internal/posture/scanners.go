package posture

import (
	"context"
	"fmt"

	"github.com/originflow/sentinel/pkg/types"
)

// Scoring penalties. Each scanner subtracts its configured weight from the
// perfect baseline of 100.
const (
	penaltyMissingRLS       = 30
	penaltyWeakAuthPolicy   = 15
	penaltySuspiciousLogin  = 20
	penaltyConcurrentLogins = 10
	penaltyInjectionHistory = 15
	penaltyEscalation       = 25
	penaltyScannerFailure   = 10
)

// Scanner inspects one slice of persisted state and reports weighted
// findings. Implementations are independently fallible: a failed read is
// converted into a single degraded system_error finding instead of an error,
// so one broken data source cannot poison the whole scan.
type Scanner interface {
	Name() string
	Scan(ctx context.Context) ([]types.Finding, int)
}

// degraded is the shared failure result for any scanner whose underlying
// read errored or timed out.
func degraded(name string, err error) ([]types.Finding, int) {
	return []types.Finding{{
		Type:           types.FindingSystemError,
		Severity:       types.SeverityMedium,
		Description:    fmt.Sprintf("%s scanner could not complete: %v", name, err),
		Recommendation: "Investigate scanner data source availability",
	}}, penaltyScannerFailure
}
