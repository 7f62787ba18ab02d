package incident

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/pkg/types"
)

// escalationTable maps incident severity to the ordered containment plan.
// Plans are fixed per severity; the incident type never changes the plan.
var escalationTable = map[types.Severity][]string{
	types.SeverityCritical: {ActionTerminateSessions, ActionLockAccount, ActionNotifyAdmin},
	types.SeverityHigh:     {ActionRequireRevalidation, ActionHeightenMonitoring},
	types.SeverityMedium:   {ActionEnhancedLogging},
	types.SeverityLow:      {},
}

// Report is the raw incident submission before classification. Severity and
// Type are free-form strings from the caller.
type Report struct {
	Type            string `json:"incident_type"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
	ActorID         string `json:"actor_id"`
	NetworkOrigin   string `json:"network_origin,omitempty"`
	ClientSignature string `json:"client_signature,omitempty"`
}

// Responder classifies reported incidents, persists them, and executes the
// containment plan for their severity.
type Responder struct {
	store     core.Store
	audit     *logger.AuditLogger
	log       *logger.Logger
	telemetry core.Telemetry
	executors map[string]actionExecutor
}

func NewResponder(store core.Store, audit *logger.AuditLogger, log *logger.Logger, telemetry core.Telemetry) *Responder {
	r := &Responder{
		store:     store,
		audit:     audit,
		log:       log.WithComponent("incident"),
		telemetry: telemetry,
	}
	r.executors = map[string]actionExecutor{
		ActionTerminateSessions:   r.terminateSessions,
		ActionLockAccount:         r.lockAccount,
		ActionNotifyAdmin:         r.notifyAdmin,
		ActionRequireRevalidation: r.requireRevalidation,
		ActionHeightenMonitoring:  r.heightenMonitoring,
		ActionEnhancedLogging:     r.enhancedLogging,
	}
	return r
}

// Respond runs the full incident pipeline: classify, persist, contain. The
// incident record is written before any action executes; if that write fails
// the incident is rejected and nothing runs. Action failures never abort the
// remaining actions.
func (r *Responder) Respond(ctx context.Context, report Report) (*types.Incident, error) {
	incident := r.classify(report)

	if err := r.audit.Record(ctx, "security_incident", incident.Severity, incident.ActorID, map[string]interface{}{
		"incident_id":      incident.ID,
		"incident_type":    incident.Type,
		"description":      incident.Description,
		"network_origin":   incident.NetworkOrigin,
		"client_signature": incident.ClientSignature,
		"planned_actions":  incident.ResponseActions,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist incident record: %w", err)
	}

	r.log.Warnw("Security incident recorded",
		"incident_id", incident.ID,
		"incident_type", incident.Type,
		"severity", incident.Severity,
		"actor_id", incident.ActorID,
		"actions", incident.ResponseActions,
	)

	for _, action := range incident.ResponseActions {
		r.execute(ctx, action, incident)
	}

	if r.telemetry != nil {
		r.telemetry.RecordIncident(incident.Severity)
	}

	return incident, nil
}

// classify normalizes the raw report. Unknown severities default to medium so
// a malformed report still gets a containment plan; an empty type becomes
// "unknown".
func (r *Responder) classify(report Report) *types.Incident {
	severity := types.ParseSeverity(report.Severity)
	incidentType := report.Type
	if incidentType == "" {
		incidentType = "unknown"
	}

	return &types.Incident{
		ID:              uuid.New().String(),
		Type:            incidentType,
		Severity:        severity,
		Description:     report.Description,
		ActorID:         report.ActorID,
		NetworkOrigin:   report.NetworkOrigin,
		ClientSignature: report.ClientSignature,
		CreatedAt:       time.Now().UTC(),
		ResponseActions: PlanActions(severity),
	}
}

// PlanActions returns the containment plan for a severity. The returned slice
// is a copy; callers may not mutate the table.
func PlanActions(severity types.Severity) []string {
	plan := escalationTable[severity]
	out := make([]string, len(plan))
	copy(out, plan)
	return out
}

// execute runs one containment action and records its outcome. Every action
// is idempotent, so a retried incident re-running the plan is safe.
func (r *Responder) execute(ctx context.Context, action string, incident *types.Incident) {
	executor, ok := r.executors[action]
	if !ok {
		r.log.Errorw("Unknown containment action", "action", action, "incident_id", incident.ID)
		return
	}

	details, err := executor(ctx, incident)
	if details == nil {
		details = map[string]interface{}{}
	}
	details["action"] = action
	details["incident_id"] = incident.ID

	if err != nil {
		details["outcome"] = "failed"
		details["error"] = err.Error()
		r.log.Errorw("Containment action failed",
			"action", action,
			"incident_id", incident.ID,
			"actor_id", incident.ActorID,
			"error", err,
		)
	} else {
		details["outcome"] = "completed"
	}

	r.audit.RecordBestEffort(ctx, "containment_action", incident.Severity, incident.ActorID, details)
}
