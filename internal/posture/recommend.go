package posture

import (
	"github.com/originflow/sentinel/pkg/types"
)

// remediationTable maps finding types to their remediation set. Finding types
// absent from the table contribute nothing.
var remediationTable = map[types.FindingType][]string{
	types.FindingMissingRowSecurity: {
		"Enable row-level security on all tenant-facing relations",
		"Review data access policies for multi-tenant isolation",
	},
	types.FindingWeakAuthPolicy: {
		"Require 12+ character passwords and mandatory MFA",
	},
	types.FindingSuspiciousSession: {
		"Terminate flagged sessions and require re-authentication",
		"Review recent authentication activity for affected accounts",
	},
	types.FindingConcurrentSessions: {
		"Enforce a concurrent session ceiling per account",
	},
	types.FindingInjectionActivity: {
		"Review input validation coverage and block offending origins",
		"Use parameterized queries for all database access",
	},
	types.FindingPrivilegeEscalation: {
		"Audit role assignments and review escalation attempt origins",
		"Rotate credentials for accounts involved in escalation attempts",
	},
	types.FindingSystemError: {
		"Investigate scanner data source availability",
	},
}

// remediationOrder fixes the output ordering so recommendations are
// independent of the order findings arrive in.
var remediationOrder = []types.FindingType{
	types.FindingMissingRowSecurity,
	types.FindingWeakAuthPolicy,
	types.FindingSuspiciousSession,
	types.FindingConcurrentSessions,
	types.FindingInjectionActivity,
	types.FindingPrivilegeEscalation,
	types.FindingSystemError,
}

// Recommendations maps the distinct finding types to a deduplicated
// remediation list. Pure function: same finding set in any order yields the
// same list.
func Recommendations(findings []types.Finding) []string {
	present := make(map[types.FindingType]bool, len(findings))
	for _, f := range findings {
		present[f.Type] = true
	}

	seen := make(map[string]bool)
	recommendations := []string{}
	for _, t := range remediationOrder {
		if !present[t] {
			continue
		}
		for _, r := range remediationTable[t] {
			if !seen[r] {
				seen[r] = true
				recommendations = append(recommendations, r)
			}
		}
	}
	return recommendations
}
