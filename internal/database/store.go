package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/twmb/murmur3"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/pkg/types"
)

type sqlStore struct {
	db     *sqlx.DB
	cfg    config.DatabaseConfig
	logger *logger.Logger
}

// getPlaceholder returns the appropriate placeholder for the database driver.
func (s *sqlStore) getPlaceholder(n int) string {
	if s.cfg.Driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func NewStore(cfg config.DatabaseConfig, log *logger.Logger) (core.Store, error) {
	log = log.WithComponent("database")

	start := time.Now()
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	store := &sqlStore{
		db:     db,
		cfg:    cfg,
		logger: log,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.LogDuration(context.Background(), "database.NewStore", start,
		"driver", cfg.Driver,
	)

	return store, nil
}

func (s *sqlStore) migrate() error {
	if s.cfg.Driver == "sqlite3" {
		if _, err := s.db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS security_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		details TEXT,
		actor_id TEXT,
		fingerprint TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_sessions (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		token TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		is_suspicious BOOLEAN NOT NULL DEFAULT FALSE,
		risk_score INTEGER NOT NULL DEFAULT 0,
		requires_revalidation BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS account_lockouts (
		actor_id TEXT PRIMARY KEY,
		reason TEXT NOT NULL,
		locked_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relation_policies (
		relation TEXT PRIMARY KEY,
		rls_enabled BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS auth_policy (
		min_password_length INTEGER NOT NULL DEFAULT 0,
		mfa_required BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS role_permissions (
		actor_id TEXT NOT NULL,
		permission TEXT NOT NULL,
		PRIMARY KEY (actor_id, permission)
	);

	CREATE TABLE IF NOT EXISTS actor_monitoring (
		actor_id TEXT PRIMARY KEY,
		level TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_type ON security_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_security_events_created_at ON security_events(created_at);
	CREATE INDEX IF NOT EXISTS idx_user_sessions_actor ON user_sessions(actor_id);
	CREATE INDEX IF NOT EXISTS idx_user_sessions_token ON user_sessions(token);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// eventFingerprint produces a stable hash of an event's identity so repeated
// writes of the same observation can be correlated in the audit log.
func eventFingerprint(eventType, actorID string, details map[string]interface{}) string {
	payload, _ := json.Marshal(details)
	h := murmur3.Sum64(append([]byte(eventType+"|"+actorID+"|"), payload...))
	return fmt.Sprintf("%016x", h)
}

func (s *sqlStore) SaveSecurityEvent(ctx context.Context, event *types.SecurityEvent) error {
	start := time.Now()

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal event details: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO security_events (id, event_type, severity, details, actor_id, fingerprint, created_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s)`,
		s.getPlaceholder(1), s.getPlaceholder(2), s.getPlaceholder(3),
		s.getPlaceholder(4), s.getPlaceholder(5), s.getPlaceholder(6), s.getPlaceholder(7))

	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		string(event.Severity),
		string(details),
		event.ActorID,
		eventFingerprint(event.EventType, event.ActorID, event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save security event: %w", err)
	}

	s.logger.Debugw("Security event persisted",
		"event_type", event.EventType,
		"severity", event.Severity,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

var injectionEventTypes = []string{
	string(types.FindingSQLInjection),
	string(types.FindingXSSAttempt),
	string(types.FindingCommandInjection),
	string(types.FindingPathTraversal),
}

func (s *sqlStore) CountInjectionEventsSince(ctx context.Context, since time.Time) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM security_events
		WHERE event_type IN (%s, %s, %s, %s)
		  AND severity IN ('high', 'critical')
		  AND created_at >= %s`,
		s.getPlaceholder(1), s.getPlaceholder(2), s.getPlaceholder(3),
		s.getPlaceholder(4), s.getPlaceholder(5))

	var count int
	err := s.db.QueryRowContext(ctx, query,
		injectionEventTypes[0], injectionEventTypes[1],
		injectionEventTypes[2], injectionEventTypes[3],
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count injection events: %w", err)
	}
	return count, nil
}

func (s *sqlStore) CountEscalationEventsSince(ctx context.Context, since time.Time) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM security_events
		WHERE event_type = %s AND created_at >= %s`,
		s.getPlaceholder(1), s.getPlaceholder(2))

	var count int
	err := s.db.QueryRowContext(ctx, query,
		string(types.FindingPrivilegeEscalation),
		since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count escalation events: %w", err)
	}
	return count, nil
}

func (s *sqlStore) ListUnprotectedRelations(ctx context.Context) ([]string, error) {
	query := "SELECT relation FROM relation_policies WHERE rls_enabled = FALSE ORDER BY relation"

	var relations []string
	if err := s.db.SelectContext(ctx, &relations, query); err != nil {
		return nil, fmt.Errorf("failed to list unprotected relations: %w", err)
	}
	return relations, nil
}

func (s *sqlStore) GetAuthPolicy(ctx context.Context) (*types.AuthPolicy, error) {
	query := "SELECT min_password_length, mfa_required FROM auth_policy LIMIT 1"

	var policy types.AuthPolicy
	err := s.db.GetContext(ctx, &policy, query)
	if err == sql.ErrNoRows {
		// No configured policy reads as the weakest possible one.
		return &types.AuthPolicy{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auth policy: %w", err)
	}
	return &policy, nil
}

func (s *sqlStore) ListActiveSessions(ctx context.Context) ([]types.Session, error) {
	query := `
		SELECT id, actor_id, token, active, is_suspicious, risk_score, requires_revalidation, expires_at, created_at
		FROM user_sessions WHERE active = TRUE`

	var sessions []types.Session
	if err := s.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return sessions, nil
}

func (s *sqlStore) GetSessionByToken(ctx context.Context, token string) (*types.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, actor_id, token, active, is_suspicious, risk_score, requires_revalidation, expires_at, created_at
		FROM user_sessions WHERE token = %s`, s.getPlaceholder(1))

	var session types.Session
	err := s.db.GetContext(ctx, &session, query, token)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *sqlStore) TerminateSessions(ctx context.Context, actorID string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE user_sessions SET active = FALSE
		WHERE actor_id = %s AND active = TRUE`, s.getPlaceholder(1))

	result, err := s.db.ExecContext(ctx, query, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to terminate sessions: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}

func (s *sqlStore) FlagSessionsForRevalidation(ctx context.Context, actorID string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE user_sessions SET requires_revalidation = TRUE
		WHERE actor_id = %s AND active = TRUE`, s.getPlaceholder(1))

	result, err := s.db.ExecContext(ctx, query, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to flag sessions for revalidation: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}

func (s *sqlStore) LockAccount(ctx context.Context, actorID, reason string) error {
	// Re-locking an already-locked account is a no-op.
	query := fmt.Sprintf(`
		INSERT INTO account_lockouts (actor_id, reason, locked_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (actor_id) DO NOTHING`,
		s.getPlaceholder(1), s.getPlaceholder(2), s.getPlaceholder(3))

	if _, err := s.db.ExecContext(ctx, query, actorID, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	return nil
}

func (s *sqlStore) SetMonitoringLevel(ctx context.Context, actorID, level string) error {
	query := fmt.Sprintf(`
		INSERT INTO actor_monitoring (actor_id, level, updated_at)
		VALUES (%s, %s, %s)
		ON CONFLICT (actor_id) DO UPDATE SET level = excluded.level, updated_at = excluded.updated_at`,
		s.getPlaceholder(1), s.getPlaceholder(2), s.getPlaceholder(3))

	if _, err := s.db.ExecContext(ctx, query, actorID, level, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set monitoring level: %w", err)
	}
	return nil
}

func (s *sqlStore) HasPermission(ctx context.Context, actorID, permission string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM role_permissions
		WHERE actor_id = %s AND permission = %s`,
		s.getPlaceholder(1), s.getPlaceholder(2))

	var count int
	if err := s.db.QueryRowContext(ctx, query, actorID, permission).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return count > 0, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
