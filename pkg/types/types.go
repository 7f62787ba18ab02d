package types

import (
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ParseSeverity maps a free-form severity string to the fixed enum,
// defaulting to medium for anything it does not recognize.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s)
	default:
		return SeverityMedium
	}
}

type FindingType string

const (
	FindingXSSAttempt          FindingType = "xss_attempt"
	FindingSQLInjection        FindingType = "sql_injection_attempt"
	FindingCommandInjection    FindingType = "command_injection_attempt"
	FindingPathTraversal       FindingType = "path_traversal_attempt"
	FindingMissingRowSecurity  FindingType = "missing_row_level_security"
	FindingWeakAuthPolicy      FindingType = "weak_auth_policy"
	FindingSuspiciousSession   FindingType = "suspicious_session"
	FindingConcurrentSessions  FindingType = "excessive_concurrent_sessions"
	FindingInjectionActivity   FindingType = "repeated_injection_attempts"
	FindingPrivilegeEscalation FindingType = "privilege_escalation_attempt"
	FindingSystemError         FindingType = "system_error"
)

// Finding is a single classified security observation. Findings are immutable
// value objects; they are embedded in a ScanResult or logged as security
// events, never persisted standalone.
type Finding struct {
	Type           FindingType `json:"type"`
	Severity       Severity    `json:"severity"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation,omitempty"`
	Confidence     float64     `json:"confidence,omitempty"`
}

type ScanStatus string

const (
	ScanStatusSecure   ScanStatus = "secure"
	ScanStatusWarning  ScanStatus = "warning"
	ScanStatusCritical ScanStatus = "critical"
)

// ScanResult is the outcome of one comprehensive posture scan. Not mutated
// after construction.
type ScanResult struct {
	ScanID          string        `json:"scan_id"`
	Score           int           `json:"score"`
	Status          ScanStatus    `json:"status"`
	Findings        []Finding     `json:"findings"`
	Recommendations []string      `json:"recommendations"`
	Duration        time.Duration `json:"-"`
	CompletedAt     time.Time     `json:"completed_at"`
}

// ValidationResult is ephemeral, constructed and consumed within a single
// request.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Score    int      `json:"score"`
}

// Incident is a one-shot classified security incident. ResponseActions always
// matches the escalation table entry for Severity.
type Incident struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Severity        Severity  `json:"severity"`
	Description     string    `json:"description"`
	ActorID         string    `json:"actor_id,omitempty"`
	NetworkOrigin   string    `json:"network_origin,omitempty"`
	ClientSignature string    `json:"client_signature,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	ResponseActions []string  `json:"response_actions"`
}

// SecurityEvent is one append-only audit record. Write-once; never updated or
// deleted by this subsystem.
type SecurityEvent struct {
	ID        string                 `json:"id" db:"id"`
	EventType string                 `json:"event_type" db:"event_type"`
	Severity  Severity               `json:"severity" db:"severity"`
	Details   map[string]interface{} `json:"details"`
	ActorID   string                 `json:"actor_id,omitempty" db:"actor_id"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Session mirrors one row of the managed platform's sessions table, the
// narrow slice the session-integrity scanner and validator read.
type Session struct {
	ID                   string    `json:"id" db:"id"`
	ActorID              string    `json:"actor_id" db:"actor_id"`
	Token                string    `json:"-" db:"token"`
	Active               bool      `json:"active" db:"active"`
	IsSuspicious         bool      `json:"is_suspicious" db:"is_suspicious"`
	RiskScore            int       `json:"risk_score" db:"risk_score"`
	RequiresRevalidation bool      `json:"requires_revalidation" db:"requires_revalidation"`
	ExpiresAt            time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AuthPolicy is the platform-level authentication policy row inspected by the
// database-configuration scanner.
type AuthPolicy struct {
	MinPasswordLength int  `json:"min_password_length" db:"min_password_length"`
	MFARequired       bool `json:"mfa_required" db:"mfa_required"`
}
