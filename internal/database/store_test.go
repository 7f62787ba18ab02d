package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/pkg/types"
)

func newTestStore(t *testing.T) *sqlStore {
	t.Helper()

	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)

	// One connection so the in-memory database is shared across all queries.
	store, err := NewStore(config.DatabaseConfig{
		Driver:         "sqlite3",
		DSN:            ":memory:",
		MaxConnections: 1,
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store.(*sqlStore)
}

func insertSession(t *testing.T, store *sqlStore, session types.Session) {
	t.Helper()
	_, err := store.db.Exec(`
		INSERT INTO user_sessions (id, actor_id, token, active, is_suspicious, risk_score, requires_revalidation, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.ActorID, session.Token, session.Active,
		session.IsSuspicious, session.RiskScore, session.RequiresRevalidation,
		session.ExpiresAt, session.CreatedAt,
	)
	require.NoError(t, err)
}

func testEvent(eventType string, severity types.Severity, actorID string, createdAt time.Time) *types.SecurityEvent {
	return &types.SecurityEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Severity:  severity,
		Details:   map[string]interface{}{"source": "test"},
		ActorID:   actorID,
		CreatedAt: createdAt,
	}
}

func TestSaveSecurityEventAndCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	events := []*types.SecurityEvent{
		testEvent(string(types.FindingSQLInjection), types.SeverityHigh, "usr_1", now),
		testEvent(string(types.FindingXSSAttempt), types.SeverityHigh, "usr_1", now),
		testEvent(string(types.FindingXSSAttempt), types.SeverityLow, "usr_1", now),
		testEvent(string(types.FindingSQLInjection), types.SeverityHigh, "usr_1", now.Add(-48*time.Hour)),
		testEvent(string(types.FindingPrivilegeEscalation), types.SeverityCritical, "usr_2", now),
		testEvent("comprehensive_security_scan", types.SeverityLow, "usr_1", now),
	}
	for _, e := range events {
		require.NoError(t, store.SaveSecurityEvent(ctx, e))
	}

	t.Run("injection count filters severity and window", func(t *testing.T) {
		count, err := store.CountInjectionEventsSince(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		// Low-severity and out-of-window events excluded.
		assert.Equal(t, 2, count)
	})

	t.Run("escalation count", func(t *testing.T) {
		count, err := store.CountEscalationEventsSince(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestListUnprotectedRelations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.Exec(`INSERT INTO relation_policies (relation, rls_enabled) VALUES
		('borrowers', 0), ('loan_documents', 0), ('audit_trail', 1)`)
	require.NoError(t, err)

	relations, err := store.ListUnprotectedRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"borrowers", "loan_documents"}, relations)
}

func TestGetAuthPolicy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("missing row reads as weakest policy", func(t *testing.T) {
		policy, err := store.GetAuthPolicy(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, policy.MinPasswordLength)
		assert.False(t, policy.MFARequired)
	})

	t.Run("configured policy", func(t *testing.T) {
		_, err := store.db.Exec(`INSERT INTO auth_policy (min_password_length, mfa_required) VALUES (14, 1)`)
		require.NoError(t, err)

		policy, err := store.GetAuthPolicy(ctx)
		require.NoError(t, err)
		assert.Equal(t, 14, policy.MinPasswordLength)
		assert.True(t, policy.MFARequired)
	})
}

func TestSessionQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertSession(t, store, types.Session{
		ID: "s1", ActorID: "usr_1", Token: "tok_1", Active: true,
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	})
	insertSession(t, store, types.Session{
		ID: "s2", ActorID: "usr_1", Token: "tok_2", Active: true, IsSuspicious: true,
		RiskScore: 80, ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	})
	insertSession(t, store, types.Session{
		ID: "s3", ActorID: "usr_2", Token: "tok_3", Active: false,
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	})

	t.Run("list active only", func(t *testing.T) {
		sessions, err := store.ListActiveSessions(ctx)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
	})

	t.Run("get by token", func(t *testing.T) {
		session, err := store.GetSessionByToken(ctx, "tok_2")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "usr_1", session.ActorID)
		assert.True(t, session.IsSuspicious)
		assert.Equal(t, 80, session.RiskScore)
	})

	t.Run("unknown token is nil not error", func(t *testing.T) {
		session, err := store.GetSessionByToken(ctx, "tok_missing")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("terminate affects active sessions only", func(t *testing.T) {
		affected, err := store.TerminateSessions(ctx, "usr_1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), affected)

		// Second run is a no-op.
		affected, err = store.TerminateSessions(ctx, "usr_1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), affected)
	})
}

func TestFlagSessionsForRevalidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insertSession(t, store, types.Session{
		ID: "s1", ActorID: "usr_1", Token: "tok_1", Active: true,
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	})

	affected, err := store.FlagSessionsForRevalidation(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	session, err := store.GetSessionByToken(ctx, "tok_1")
	require.NoError(t, err)
	assert.True(t, session.RequiresRevalidation)
}

func TestLockAccountIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LockAccount(ctx, "usr_1", "critical incident"))
	require.NoError(t, store.LockAccount(ctx, "usr_1", "second attempt"))

	var reason string
	require.NoError(t, store.db.Get(&reason, `SELECT reason FROM account_lockouts WHERE actor_id = ?`, "usr_1"))
	// First lock wins; re-locking does not overwrite.
	assert.Equal(t, "critical incident", reason)
}

func TestSetMonitoringLevelUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetMonitoringLevel(ctx, "usr_1", "enhanced"))
	require.NoError(t, store.SetMonitoringLevel(ctx, "usr_1", "heightened"))

	var level string
	require.NoError(t, store.db.Get(&level, `SELECT level FROM actor_monitoring WHERE actor_id = ?`, "usr_1"))
	assert.Equal(t, "heightened", level)
}

func TestHasPermission(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.Exec(`INSERT INTO role_permissions (actor_id, permission) VALUES ('usr_1', 'loans:write')`)
	require.NoError(t, err)

	allowed, err := store.HasPermission(ctx, "usr_1", "loans:write")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.HasPermission(ctx, "usr_1", "loans:delete")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = store.HasPermission(ctx, "usr_2", "loans:write")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestEventFingerprintStable(t *testing.T) {
	details := map[string]interface{}{"description": "x"}

	first := eventFingerprint("xss_attempt", "usr_1", details)
	second := eventFingerprint("xss_attempt", "usr_1", details)
	assert.Equal(t, first, second)
	assert.Len(t, first, 16)

	other := eventFingerprint("xss_attempt", "usr_2", details)
	assert.NotEqual(t, first, other)
}
