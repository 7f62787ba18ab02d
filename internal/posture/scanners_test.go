package posture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/pkg/types"
)

func activeSession(id, actorID string, suspicious bool, riskScore int) types.Session {
	return types.Session{
		ID:           id,
		ActorID:      actorID,
		Token:        "tok-" + id,
		Active:       true,
		IsSuspicious: suspicious,
		RiskScore:    riskScore,
		ExpiresAt:    time.Now().Add(1 * time.Hour),
		CreatedAt:    time.Now(),
	}
}

func TestDatabaseConfigScanner(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy configuration", func(t *testing.T) {
		scanner := NewDatabaseConfigScanner(&mockStore{})
		findings, penalty := scanner.Scan(ctx)

		assert.Empty(t, findings)
		assert.Equal(t, 0, penalty)
	})

	t.Run("unprotected relations aggregate into one critical finding", func(t *testing.T) {
		store := &mockStore{relations: []string{"borrowers", "loan_documents"}}
		scanner := NewDatabaseConfigScanner(store)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, types.FindingMissingRowSecurity, findings[0].Type)
		assert.Equal(t, types.SeverityCritical, findings[0].Severity)
		assert.Contains(t, findings[0].Description, "borrowers")
		assert.Contains(t, findings[0].Description, "loan_documents")
		assert.Equal(t, penaltyMissingRLS, penalty)
	})

	t.Run("weak auth policy", func(t *testing.T) {
		tests := []struct {
			name   string
			policy types.AuthPolicy
			weak   bool
		}{
			{"short passwords", types.AuthPolicy{MinPasswordLength: 8, MFARequired: true}, true},
			{"no mfa", types.AuthPolicy{MinPasswordLength: 16, MFARequired: false}, true},
			{"unconfigured", types.AuthPolicy{}, true},
			{"baseline", types.AuthPolicy{MinPasswordLength: 12, MFARequired: true}, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				policy := tt.policy
				scanner := NewDatabaseConfigScanner(&mockStore{policy: &policy})
				findings, penalty := scanner.Scan(ctx)

				if tt.weak {
					require.Len(t, findings, 1)
					assert.Equal(t, types.FindingWeakAuthPolicy, findings[0].Type)
					assert.Equal(t, penaltyWeakAuthPolicy, penalty)
				} else {
					assert.Empty(t, findings)
					assert.Equal(t, 0, penalty)
				}
			})
		}
	})

	t.Run("relation read failure degrades", func(t *testing.T) {
		store := &mockStore{relationsErr: errors.New("connection refused")}
		scanner := NewDatabaseConfigScanner(store)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, types.FindingSystemError, findings[0].Type)
		assert.Equal(t, types.SeverityMedium, findings[0].Severity)
		assert.Equal(t, penaltyScannerFailure, penalty)
	})

	t.Run("policy read failure keeps earlier findings", func(t *testing.T) {
		store := &mockStore{
			relations: []string{"borrowers"},
			policyErr: errors.New("connection refused"),
		}
		scanner := NewDatabaseConfigScanner(store)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 2)
		assert.Equal(t, types.FindingMissingRowSecurity, findings[0].Type)
		assert.Equal(t, types.FindingSystemError, findings[1].Type)
		assert.Equal(t, penaltyMissingRLS+penaltyScannerFailure, penalty)
	})
}

func TestSessionIntegrityScanner(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultScannerConfig()

	t.Run("no active sessions", func(t *testing.T) {
		scanner := NewSessionIntegrityScanner(&mockStore{}, cfg)
		findings, penalty := scanner.Scan(ctx)

		assert.Empty(t, findings)
		assert.Equal(t, 0, penalty)
	})

	t.Run("suspicious and concurrent sessions", func(t *testing.T) {
		// Four active sessions for one actor, one flagged suspicious:
		// one suspicious-session finding plus one concurrency finding.
		store := &mockStore{sessions: []types.Session{
			activeSession("s1", "usr_1", true, 0),
			activeSession("s2", "usr_1", false, 0),
			activeSession("s3", "usr_1", false, 0),
			activeSession("s4", "usr_1", false, 0),
		}}
		scanner := NewSessionIntegrityScanner(store, cfg)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 2)
		assert.Equal(t, types.FindingSuspiciousSession, findings[0].Type)
		assert.Equal(t, types.SeverityHigh, findings[0].Severity)
		assert.Equal(t, types.FindingConcurrentSessions, findings[1].Type)
		assert.Equal(t, penaltySuspiciousLogin+penaltyConcurrentLogins, penalty)
	})

	t.Run("risk score at threshold counts as suspicious", func(t *testing.T) {
		store := &mockStore{sessions: []types.Session{
			activeSession("s1", "usr_1", false, cfg.SessionRiskThreshold),
		}}
		scanner := NewSessionIntegrityScanner(store, cfg)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, types.FindingSuspiciousSession, findings[0].Type)
		assert.Equal(t, penaltySuspiciousLogin, penalty)
	})

	t.Run("multiple suspicious sessions aggregate", func(t *testing.T) {
		store := &mockStore{sessions: []types.Session{
			activeSession("s1", "usr_1", true, 0),
			activeSession("s2", "usr_2", true, 0),
			activeSession("s3", "usr_3", true, 0),
		}}
		scanner := NewSessionIntegrityScanner(store, cfg)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Contains(t, findings[0].Description, "3 active session(s)")
		assert.Equal(t, penaltySuspiciousLogin, penalty)
	})

	t.Run("each offending actor penalized separately", func(t *testing.T) {
		sessions := []types.Session{}
		for i := 0; i < 4; i++ {
			sessions = append(sessions, activeSession("a"+string(rune('0'+i)), "usr_a", false, 0))
			sessions = append(sessions, activeSession("b"+string(rune('0'+i)), "usr_b", false, 0))
		}
		scanner := NewSessionIntegrityScanner(&mockStore{sessions: sessions}, cfg)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 2)
		assert.Contains(t, findings[0].Description, "usr_a")
		assert.Contains(t, findings[1].Description, "usr_b")
		assert.Equal(t, 2*penaltyConcurrentLogins, penalty)
	})

	t.Run("read failure degrades", func(t *testing.T) {
		store := &mockStore{sessionsErr: errors.New("timeout")}
		scanner := NewSessionIntegrityScanner(store, cfg)

		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, types.FindingSystemError, findings[0].Type)
		assert.Equal(t, penaltyScannerFailure, penalty)
	})
}

func TestInputHistoryScanner(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultScannerConfig()

	tests := []struct {
		name    string
		count   int
		flagged bool
	}{
		{"no history", 0, false},
		{"at limit", cfg.InjectionEventLimit, false},
		{"above limit", cfg.InjectionEventLimit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewInputHistoryScanner(&mockStore{injectionCount: tt.count}, cfg)
			findings, penalty := scanner.Scan(ctx)

			if tt.flagged {
				require.Len(t, findings, 1)
				assert.Equal(t, types.FindingInjectionActivity, findings[0].Type)
				assert.Equal(t, types.SeverityHigh, findings[0].Severity)
				assert.Equal(t, penaltyInjectionHistory, penalty)
			} else {
				assert.Empty(t, findings)
				assert.Equal(t, 0, penalty)
			}
		})
	}

	t.Run("read failure degrades", func(t *testing.T) {
		scanner := NewInputHistoryScanner(&mockStore{injectionErr: errors.New("timeout")}, cfg)
		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, types.FindingSystemError, findings[0].Type)
		assert.Equal(t, penaltyScannerFailure, penalty)
	})
}

func TestAccessControlScanner(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultScannerConfig()

	t.Run("no escalation attempts", func(t *testing.T) {
		scanner := NewAccessControlScanner(&mockStore{}, cfg)
		findings, penalty := scanner.Scan(ctx)

		assert.Empty(t, findings)
		assert.Equal(t, 0, penalty)
	})

	t.Run("any escalation attempt is critical", func(t *testing.T) {
		scanner := NewAccessControlScanner(&mockStore{escalationCount: 1}, cfg)
		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, types.FindingPrivilegeEscalation, findings[0].Type)
		assert.Equal(t, types.SeverityCritical, findings[0].Severity)
		assert.Equal(t, penaltyEscalation, penalty)
	})

	t.Run("read failure degrades", func(t *testing.T) {
		scanner := NewAccessControlScanner(&mockStore{escalationErr: errors.New("timeout")}, cfg)
		findings, penalty := scanner.Scan(ctx)

		require.Len(t, findings, 1)
		assert.Equal(t, types.FindingSystemError, findings[0].Type)
		assert.Equal(t, penaltyScannerFailure, penalty)
	})
}
