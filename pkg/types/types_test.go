package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected Severity
	}{
		{"critical", SeverityCritical},
		{"high", SeverityHigh},
		{"medium", SeverityMedium},
		{"low", SeverityLow},
		{"", SeverityMedium},
		{"CRITICAL", SeverityMedium},
		{"catastrophic", SeverityMedium},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseSeverity(tt.input), "input %q", tt.input)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()

	live := Session{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, live.Expired(now))

	expired := Session{ExpiresAt: now.Add(-time.Minute)}
	assert.True(t, expired.Expired(now))

	// Sessions without an expiry never expire by time.
	unbounded := Session{}
	assert.False(t, unbounded.Expired(now))
}
