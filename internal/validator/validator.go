package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/pkg/types"
)

const (
	baselineScore = 100

	penaltyInvalidSession    = 50
	penaltyMissingPermission = 30
	penaltyRateLimited       = 20
)

// Request carries the optional inputs of the three sub-checks. A check runs
// only when its input is supplied.
type Request struct {
	ActorID            string `json:"actor_id"`
	SessionToken       string `json:"session_token,omitempty"`
	RequiredPermission string `json:"required_permission,omitempty"`
	Action             string `json:"action,omitempty"`
}

// Validator is the composite per-request policy gate. Every sub-check fails
// closed: a dependency error reads as the restrictive outcome, never as a
// pass.
type Validator struct {
	store   core.Store
	limiter core.ActionLimiter
	log     *logger.Logger
	timeout time.Duration
}

func New(store core.Store, limiter core.ActionLimiter, log *logger.Logger, cfg config.ScannerConfig) *Validator {
	return &Validator{
		store:   store,
		limiter: limiter,
		log:     log.WithComponent("validator"),
		timeout: cfg.CheckTimeout,
	}
}

// Validate runs the attempted checks independently; order never changes the
// outcome. Valid is the logical AND of every attempted check.
func (v *Validator) Validate(ctx context.Context, req Request) *types.ValidationResult {
	result := &types.ValidationResult{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
		Score:    baselineScore,
	}

	if req.SessionToken != "" {
		v.checkSession(ctx, req, result)
	}
	if req.RequiredPermission != "" {
		v.checkPermission(ctx, req, result)
	}
	if req.Action != "" {
		v.checkRateLimit(ctx, req, result)
	}

	if result.Score < 0 {
		result.Score = 0
	}
	return result
}

func (v *Validator) checkSession(ctx context.Context, req Request, result *types.ValidationResult) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	session, err := v.store.GetSessionByToken(ctx, req.SessionToken)
	if err != nil {
		// Unknown session state reads as invalid.
		v.log.LogError(ctx, err, "validator.session_check", "actor_id", req.ActorID)
		v.fail(result, penaltyInvalidSession, "session could not be verified")
		return
	}

	if session == nil || !session.Active || session.Expired(time.Now().UTC()) {
		v.fail(result, penaltyInvalidSession, "session is invalid or expired")
		return
	}

	if session.RequiresRevalidation {
		result.Warnings = append(result.Warnings, "session requires revalidation")
	}
	if session.IsSuspicious {
		result.Warnings = append(result.Warnings, "session is flagged suspicious")
	}
}

func (v *Validator) checkPermission(ctx context.Context, req Request, result *types.ValidationResult) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	allowed, err := v.store.HasPermission(ctx, req.ActorID, req.RequiredPermission)
	if err != nil {
		// Unknown permission state reads as denied.
		v.log.LogError(ctx, err, "validator.permission_check",
			"actor_id", req.ActorID,
			"permission", req.RequiredPermission,
		)
		allowed = false
	}

	if !allowed {
		v.fail(result, penaltyMissingPermission, fmt.Sprintf("missing required permission: %s", req.RequiredPermission))
	}
}

func (v *Validator) checkRateLimit(ctx context.Context, req Request, result *types.ValidationResult) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	allowed, err := v.limiter.Allow(ctx, req.ActorID, req.Action)
	if err != nil {
		// Unknown rate-limit state reads as exceeded.
		v.log.LogError(ctx, err, "validator.rate_limit_check",
			"actor_id", req.ActorID,
			"action", req.Action,
		)
		allowed = false
	}

	if !allowed {
		v.fail(result, penaltyRateLimited, fmt.Sprintf("rate limit exceeded for action: %s", req.Action))
	}
}

func (v *Validator) fail(result *types.ValidationResult, penalty int, message string) {
	result.Valid = false
	result.Score -= penalty
	result.Errors = append(result.Errors, message)
}
