package posture

import (
	"context"
	"sync"
	"time"

	"github.com/originflow/sentinel/pkg/types"
)

// mockStore is a configurable in-memory stand-in. The zero value reads as a
// healthy platform: no unprotected relations, strong auth policy, no sessions,
// no recorded events.
type mockStore struct {
	mu sync.Mutex

	relations    []string
	relationsErr error

	policy    *types.AuthPolicy
	policyErr error

	sessions    []types.Session
	sessionsErr error

	injectionCount int
	injectionErr   error

	escalationCount int
	escalationErr   error

	saveErr     error
	savedEvents []*types.SecurityEvent
}

func (m *mockStore) SaveSecurityEvent(ctx context.Context, event *types.SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedEvents = append(m.savedEvents, event)
	return nil
}

func (m *mockStore) events() []*types.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.SecurityEvent, len(m.savedEvents))
	copy(out, m.savedEvents)
	return out
}

func (m *mockStore) CountInjectionEventsSince(ctx context.Context, since time.Time) (int, error) {
	return m.injectionCount, m.injectionErr
}

func (m *mockStore) CountEscalationEventsSince(ctx context.Context, since time.Time) (int, error) {
	return m.escalationCount, m.escalationErr
}

func (m *mockStore) ListUnprotectedRelations(ctx context.Context) ([]string, error) {
	return m.relations, m.relationsErr
}

func (m *mockStore) GetAuthPolicy(ctx context.Context) (*types.AuthPolicy, error) {
	if m.policyErr != nil {
		return nil, m.policyErr
	}
	if m.policy == nil {
		return &types.AuthPolicy{MinPasswordLength: 14, MFARequired: true}, nil
	}
	return m.policy, nil
}

func (m *mockStore) ListActiveSessions(ctx context.Context) ([]types.Session, error) {
	return m.sessions, m.sessionsErr
}

func (m *mockStore) GetSessionByToken(ctx context.Context, token string) (*types.Session, error) {
	for i := range m.sessions {
		if m.sessions[i].Token == token {
			return &m.sessions[i], nil
		}
	}
	return nil, nil
}

func (m *mockStore) TerminateSessions(ctx context.Context, actorID string) (int64, error) {
	return 0, nil
}

func (m *mockStore) FlagSessionsForRevalidation(ctx context.Context, actorID string) (int64, error) {
	return 0, nil
}

func (m *mockStore) LockAccount(ctx context.Context, actorID, reason string) error { return nil }

func (m *mockStore) SetMonitoringLevel(ctx context.Context, actorID, level string) error {
	return nil
}

func (m *mockStore) HasPermission(ctx context.Context, actorID, permission string) (bool, error) {
	return false, nil
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                   { return nil }
