package posture

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/pkg/types"
)

func TestThreatAnalyzerPersistsMatches(t *testing.T) {
	store := &mockStore{}
	audit := logger.NewAuditLogger(newTestLogger(t), store)
	analyzer := NewThreatAnalyzer(NewMatcher(), audit)

	findings := analyzer.Analyze(context.Background(), `<script>alert(1)</script>`, "usr_7")

	require.Len(t, findings, 1)
	assert.Equal(t, types.FindingXSSAttempt, findings[0].Type)

	events := store.events()
	require.Len(t, events, 1)
	assert.Equal(t, string(types.FindingXSSAttempt), events[0].EventType)
	assert.Equal(t, "usr_7", events[0].ActorID)
	assert.Equal(t, types.SeverityHigh, events[0].Severity)
}

func TestThreatAnalyzerCleanInputPersistsNothing(t *testing.T) {
	store := &mockStore{}
	audit := logger.NewAuditLogger(newTestLogger(t), store)
	analyzer := NewThreatAnalyzer(NewMatcher(), audit)

	findings := analyzer.Analyze(context.Background(), "John Smith", "usr_7")

	assert.Empty(t, findings)
	assert.Empty(t, store.events())
}

func TestThreatAnalyzerTruncatesInputSample(t *testing.T) {
	store := &mockStore{}
	audit := logger.NewAuditLogger(newTestLogger(t), store)
	analyzer := NewThreatAnalyzer(NewMatcher(), audit)

	long := `<script>` + strings.Repeat("A", 1000)
	analyzer.Analyze(context.Background(), long, "usr_7")

	events := store.events()
	require.Len(t, events, 1)
	sample, ok := events[0].Details["input_sample"].(string)
	require.True(t, ok)
	assert.Len(t, sample, 256)
}
