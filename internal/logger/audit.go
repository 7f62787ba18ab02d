package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/pkg/types"
)

// AuditLogger pairs a structured log line with the append-only
// security_events write. The write is synchronous: the incident responder
// relies on the audit record existing before any containment action runs.
type AuditLogger struct {
	*Logger
	store core.Store
}

func NewAuditLogger(logger *Logger, store core.Store) *AuditLogger {
	return &AuditLogger{
		Logger: logger,
		store:  store,
	}
}

// Record logs the event and persists it as a security_events row. The row is
// write-once; callers never update or delete it.
func (l *AuditLogger) Record(ctx context.Context, eventType string, severity types.Severity, actorID string, details map[string]interface{}) error {
	l.LogSecurityEvent(ctx, eventType, string(severity), details)

	event := &types.SecurityEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Severity:  severity,
		Details:   details,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}

	if err := l.store.SaveSecurityEvent(ctx, event); err != nil {
		l.Logger.Errorw("Failed to persist security event",
			"error", err,
			"event_type", eventType,
			"actor_id", actorID,
		)
		return err
	}
	return nil
}

// RecordBestEffort persists the event but swallows store errors after logging
// them. Used for per-action outcome records where a failed audit write must
// not abort the remaining containment actions.
func (l *AuditLogger) RecordBestEffort(ctx context.Context, eventType string, severity types.Severity, actorID string, details map[string]interface{}) {
	_ = l.Record(ctx, eventType, severity, actorID, details)
}
