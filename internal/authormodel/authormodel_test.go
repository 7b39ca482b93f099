package authormodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAttributionID_DeterministicAndRightLength(t *testing.T) {
	agent := AgentDescriptor{Tool: "claude-code", SessionID: "sess-1", Model: "opus"}
	id1 := NewAttributionID(agent)
	id2 := NewAttributionID(agent)
	assert.Equal(t, id1, id2)
	assert.Len(t, string(id1), 16)
	assert.False(t, id1.IsHuman())
}

func TestAttributionID_IsLegacy(t *testing.T) {
	assert.True(t, AttributionID("abc1234").IsLegacy())
	assert.False(t, AttributionID("abcdef0123456789").IsLegacy())
	assert.False(t, Human.IsLegacy())
	assert.False(t, AttributionID("xyzqrst").IsLegacy())
}

func TestPromptRecord_ValidateRejectsOverReconciliation(t *testing.T) {
	p := PromptRecord{
		ID:       AttributionID("abcdef0123456789"),
		Counters: PromptCounters{TotalAdditions: 5, AcceptedLines: 3, OverriddenLines: 3},
	}
	assert.Error(t, p.Validate())
}

func TestPromptRecord_ValidateAcceptsExactReconciliation(t *testing.T) {
	p := PromptRecord{
		ID:       AttributionID("abcdef0123456789"),
		Counters: PromptCounters{TotalAdditions: 6, AcceptedLines: 3, OverriddenLines: 3},
	}
	assert.NoError(t, p.Validate())
}

func TestAuthorshipLog_ValidateRejectsHumanSentinelInAttestation(t *testing.T) {
	l := New("deadbeef")
	l.Attestations = []FileAttestation{{
		FilePath: "a.go",
		Entries:  []AttestationEntry{{Hash: Human, StartLine: 1, EndLine: 2}},
	}}
	assert.Error(t, l.Validate())
}

func TestAuthorshipLog_ValidateRejectsUnknownPrompt(t *testing.T) {
	l := New("deadbeef")
	l.Attestations = []FileAttestation{{
		FilePath: "a.go",
		Entries:  []AttestationEntry{{Hash: AttributionID("abcdef0123456789"), StartLine: 1, EndLine: 2}},
	}}
	assert.Error(t, l.Validate())
}

func TestAuthorshipLog_ValidateAcceptsKnownPrompt(t *testing.T) {
	l := New("deadbeef")
	id := AttributionID("abcdef0123456789")
	l.Metadata.Prompts[id] = PromptRecord{ID: id}
	l.Attestations = []FileAttestation{{
		FilePath: "a.go",
		Entries:  []AttestationEntry{{Hash: id, StartLine: 1, EndLine: 2}},
	}}
	assert.NoError(t, l.Validate())
}

func TestAuthorshipLog_MarshalUnmarshalRoundTrip(t *testing.T) {
	l := New("deadbeef")
	id := AttributionID("abcdef0123456789")
	l.Metadata.Prompts[id] = PromptRecord{ID: id, Agent: AgentDescriptor{Tool: "claude-code"}}
	l.Attestations = []FileAttestation{{
		FilePath: "a.go",
		Entries:  []AttestationEntry{{Hash: id, StartLine: 1, EndLine: 2}},
	}}

	data, err := l.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, l.CommitSHA, got.CommitSHA)
	assert.Equal(t, l.SchemaVersion, got.SchemaVersion)
	require.Len(t, got.Attestations, 1)
	assert.Equal(t, "a.go", got.Attestations[0].FilePath)
	assert.NoError(t, got.Validate())
}
