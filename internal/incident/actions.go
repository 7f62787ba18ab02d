package incident

import (
	"context"
	"fmt"

	"github.com/originflow/sentinel/pkg/types"
)

// Containment action names. These appear verbatim in incident records and
// audit events.
const (
	ActionTerminateSessions   = "terminate_sessions"
	ActionLockAccount         = "lock_account"
	ActionNotifyAdmin         = "notify_admin"
	ActionRequireRevalidation = "require_revalidation"
	ActionHeightenMonitoring  = "heighten_monitoring"
	ActionEnhancedLogging     = "enhanced_logging"
)

// Monitoring levels written by containment actions.
const (
	monitoringHeightened = "heightened"
	monitoringEnhanced   = "enhanced"
)

type actionExecutor func(ctx context.Context, incident *types.Incident) (map[string]interface{}, error)

func (r *Responder) terminateSessions(ctx context.Context, incident *types.Incident) (map[string]interface{}, error) {
	count, err := r.store.TerminateSessions(ctx, incident.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to terminate sessions: %w", err)
	}
	return map[string]interface{}{"sessions_terminated": count}, nil
}

func (r *Responder) lockAccount(ctx context.Context, incident *types.Incident) (map[string]interface{}, error) {
	reason := fmt.Sprintf("%s incident %s", incident.Severity, incident.ID)
	if err := r.store.LockAccount(ctx, incident.ActorID, reason); err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return map[string]interface{}{"reason": reason}, nil
}

// notifyAdmin emits a high-visibility log line. Delivery to an external
// channel is the operator's log pipeline's job.
func (r *Responder) notifyAdmin(ctx context.Context, incident *types.Incident) (map[string]interface{}, error) {
	r.log.WithContext(ctx).Errorw("ADMIN NOTIFICATION: critical security incident",
		"incident_id", incident.ID,
		"incident_type", incident.Type,
		"actor_id", incident.ActorID,
		"network_origin", incident.NetworkOrigin,
		"description", incident.Description,
	)
	return map[string]interface{}{"channel": "log"}, nil
}

func (r *Responder) requireRevalidation(ctx context.Context, incident *types.Incident) (map[string]interface{}, error) {
	count, err := r.store.FlagSessionsForRevalidation(ctx, incident.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to flag sessions for revalidation: %w", err)
	}
	return map[string]interface{}{"sessions_flagged": count}, nil
}

func (r *Responder) heightenMonitoring(ctx context.Context, incident *types.Incident) (map[string]interface{}, error) {
	if err := r.store.SetMonitoringLevel(ctx, incident.ActorID, monitoringHeightened); err != nil {
		return nil, fmt.Errorf("failed to heighten monitoring: %w", err)
	}
	return map[string]interface{}{"level": monitoringHeightened}, nil
}

func (r *Responder) enhancedLogging(ctx context.Context, incident *types.Incident) (map[string]interface{}, error) {
	if err := r.store.SetMonitoringLevel(ctx, incident.ActorID, monitoringEnhanced); err != nil {
		return nil, fmt.Errorf("failed to enable enhanced logging: %w", err)
	}
	return map[string]interface{}{"level": monitoringEnhanced}, nil
}
