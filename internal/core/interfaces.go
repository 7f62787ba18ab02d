package core

import (
	"context"
	"time"

	"github.com/originflow/sentinel/pkg/types"
)

// Store is the narrow view of the managed platform's row stores that the
// security engine reads and mutates. All mutations are single-statement and
// idempotent; no multi-step transactions span components.
type Store interface {
	// Append-only audit log.
	SaveSecurityEvent(ctx context.Context, event *types.SecurityEvent) error
	CountInjectionEventsSince(ctx context.Context, since time.Time) (int, error)
	CountEscalationEventsSince(ctx context.Context, since time.Time) (int, error)

	// Platform configuration read by the database-configuration scanner.
	ListUnprotectedRelations(ctx context.Context) ([]string, error)
	GetAuthPolicy(ctx context.Context) (*types.AuthPolicy, error)

	// Sessions table: read for scanning/validation, written by containment.
	ListActiveSessions(ctx context.Context) ([]types.Session, error)
	GetSessionByToken(ctx context.Context, token string) (*types.Session, error)
	TerminateSessions(ctx context.Context, actorID string) (int64, error)
	FlagSessionsForRevalidation(ctx context.Context, actorID string) (int64, error)

	// Containment side effects.
	LockAccount(ctx context.Context, actorID, reason string) error
	SetMonitoringLevel(ctx context.Context, actorID, level string) error

	// Permission entry point keyed by actor and permission name.
	HasPermission(ctx context.Context, actorID, permission string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// ActionLimiter is the rate-limit entry point keyed by actor and action name.
// Implementations must treat their own backend failures as errors so callers
// can fail closed.
type ActionLimiter interface {
	Allow(ctx context.Context, actorID, action string) (bool, error)
	Close() error
}

type Telemetry interface {
	RecordScan(status types.ScanStatus, durationSeconds float64)
	RecordFinding(severity types.Severity)
	RecordValidation(valid bool)
	RecordIncident(severity types.Severity)
	Close() error
}
