package posture

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/originflow/sentinel/pkg/types"
)

// matchConfidence is attached to every signature hit. Signature matches are
// pattern evidence, not proof, so the matcher never reports full confidence.
const matchConfidence = 0.8

// Signature is one attack pattern. The table is loaded once at process start
// and read-only afterwards.
type Signature struct {
	Pattern     *regexp.Regexp
	Type        types.FindingType
	Severity    types.Severity
	Description string
}

var builtinSignatures = []Signature{
	{
		Pattern:     regexp.MustCompile(`(?i)<script|javascript:|\bon(load|error|click|mouseover|focus)\s*=`),
		Type:        types.FindingXSSAttempt,
		Severity:    types.SeverityHigh,
		Description: "Input contains cross-site scripting markers",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(union\s+select|select\s+.*\s+from|insert\s+into|drop\s+table|delete\s+from)\b|'\s*or\s+'?1'?\s*=\s*'?1|--\s*$`),
		Type:        types.FindingSQLInjection,
		Severity:    types.SeverityHigh,
		Description: "Input contains SQL injection patterns",
	},
	{
		Pattern:     regexp.MustCompile("[;&|`$]\\s*(cat|ls|rm|wget|curl|sh|bash|nc|powershell)\\b|\\$\\([^)]*\\)"),
		Type:        types.FindingCommandInjection,
		Severity:    types.SeverityCritical,
		Description: "Input contains shell command injection metacharacters",
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\.\.[/\\]|%2e%2e[%/\\]`),
		Type:        types.FindingPathTraversal,
		Severity:    types.SeverityHigh,
		Description: "Input contains path traversal sequences",
	},
}

var signatureRecommendations = map[types.FindingType]string{
	types.FindingXSSAttempt:       "Sanitize and encode user input before rendering",
	types.FindingSQLInjection:     "Use parameterized queries for all database access",
	types.FindingCommandInjection: "Never pass user input to shell interpreters",
	types.FindingPathTraversal:    "Resolve and validate file paths against an allowlist",
}

// Matcher evaluates free-form input against the signature table. It is
// stateless and never errors: unmatched input yields an empty slice.
type Matcher struct {
	signatures []Signature
}

func NewMatcher() *Matcher {
	return &Matcher{signatures: builtinSignatures}
}

// NewMatcherFromFile extends the built-in table with operator-defined
// signatures loaded from a YAML file. Load errors fail startup rather than
// silently running with a partial table.
func NewMatcherFromFile(path string) (*Matcher, error) {
	if path == "" {
		return NewMatcher(), nil
	}
	extra, err := loadSignatureFile(path)
	if err != nil {
		return nil, err
	}
	return &Matcher{signatures: append(append([]Signature{}, builtinSignatures...), extra...)}, nil
}

// Match tests input against every configured signature and returns one
// finding per matching signature. Deterministic, no side effects; the caller
// owns persistence of matches.
func (m *Matcher) Match(input string) []types.Finding {
	findings := []types.Finding{}
	for _, sig := range m.signatures {
		if sig.Pattern.MatchString(input) {
			findings = append(findings, types.Finding{
				Type:           sig.Type,
				Severity:       sig.Severity,
				Description:    sig.Description,
				Recommendation: signatureRecommendations[sig.Type],
				Confidence:     matchConfidence,
			})
		}
	}
	return findings
}

type signatureSpec struct {
	Pattern     string `yaml:"pattern"`
	Type        string `yaml:"type"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
}

func loadSignatureFile(path string) ([]Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature file: %w", err)
	}

	var specs []signatureSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse signature file: %w", err)
	}

	signatures := make([]Signature, 0, len(specs))
	for i, spec := range specs {
		if spec.Pattern == "" || spec.Type == "" {
			return nil, fmt.Errorf("signature %d: pattern and type are required", i)
		}
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("signature %d: invalid pattern: %w", i, err)
		}
		signatures = append(signatures, Signature{
			Pattern:     re,
			Type:        types.FindingType(spec.Type),
			Severity:    types.ParseSeverity(spec.Severity),
			Description: spec.Description,
		})
	}
	return signatures, nil
}
