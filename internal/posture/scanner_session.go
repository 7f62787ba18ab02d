package posture

import (
	"context"
	"fmt"
	"sort"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/pkg/types"
)

// SessionIntegrityScanner flags suspicious or high-risk sessions and actors
// holding more concurrent sessions than the configured ceiling.
type SessionIntegrityScanner struct {
	store core.Store
	cfg   config.ScannerConfig
}

func NewSessionIntegrityScanner(store core.Store, cfg config.ScannerConfig) *SessionIntegrityScanner {
	return &SessionIntegrityScanner{store: store, cfg: cfg}
}

func (s *SessionIntegrityScanner) Name() string { return "session_integrity" }

func (s *SessionIntegrityScanner) Scan(ctx context.Context) ([]types.Finding, int) {
	sessions, err := s.store.ListActiveSessions(ctx)
	if err != nil {
		return degraded(s.Name(), err)
	}

	findings := []types.Finding{}
	penalty := 0

	suspicious := 0
	perActor := make(map[string]int)
	for _, session := range sessions {
		if session.IsSuspicious || session.RiskScore >= s.cfg.SessionRiskThreshold {
			suspicious++
		}
		perActor[session.ActorID]++
	}

	if suspicious > 0 {
		findings = append(findings, types.Finding{
			Type:           types.FindingSuspiciousSession,
			Severity:       types.SeverityHigh,
			Description:    fmt.Sprintf("%d active session(s) flagged suspicious or above risk threshold", suspicious),
			Recommendation: "Terminate flagged sessions and require re-authentication",
		})
		penalty += penaltySuspiciousLogin
	}

	for _, actorID := range sortedKeys(perActor) {
		if count := perActor[actorID]; count > s.cfg.MaxConcurrentSessions {
			findings = append(findings, types.Finding{
				Type:           types.FindingConcurrentSessions,
				Severity:       types.SeverityMedium,
				Description:    fmt.Sprintf("Actor %s holds %d concurrent active sessions", actorID, count),
				Recommendation: "Enforce a concurrent session ceiling per account",
			})
			penalty += penaltyConcurrentLogins
		}
	}

	return findings, penalty
}

// sortedKeys keeps finding order stable across runs; map iteration order
// would otherwise leak into persisted scan results.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
