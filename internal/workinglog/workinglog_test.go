package workinglog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
)

func TestWorkingLog_AppendAndReadCheckpointsPreservesOrder(t *testing.T) {
	w := ForBaseCommit(t.TempDir(), "deadbeef")

	cp1 := Checkpoint{Kind: Human, Timestamp: time.Unix(1, 0).UTC(), Entries: []CheckpointEntry{
		{FilePath: "a.go", Attributions: attribution.List{{StartLine: 1, EndLine: 1, AuthorID: "alice"}}},
	}}
	cp2 := Checkpoint{Kind: AiAgent, Timestamp: time.Unix(2, 0).UTC(), AgentID: "claude-code", Entries: []CheckpointEntry{
		{FilePath: "a.go", Attributions: attribution.List{{StartLine: 1, EndLine: 2, AuthorID: "prompt-1"}}},
	}}

	require.NoError(t, w.AppendCheckpoint(cp1))
	require.NoError(t, w.AppendCheckpoint(cp2))

	got, err := w.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Human, got[0].Kind)
	assert.Equal(t, AiAgent, got[1].Kind)
	assert.Equal(t, "claude-code", got[1].AgentID)
}

func TestWorkingLog_ReadAllCheckpointsEmptyWhenAbsent(t *testing.T) {
	w := ForBaseCommit(t.TempDir(), "deadbeef")
	got, err := w.ReadAllCheckpoints()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWorkingLog_ReadInitialAttributionsEmptyWhenAbsent(t *testing.T) {
	w := ForBaseCommit(t.TempDir(), "deadbeef")
	ia, err := w.ReadInitialAttributions()
	require.NoError(t, err)
	assert.Empty(t, ia.Files)
	assert.Empty(t, ia.Prompts)
}

func TestWorkingLog_WriteInitialAttributionsRoundTrips(t *testing.T) {
	w := ForBaseCommit(t.TempDir(), "deadbeef")
	id := authormodel.AttributionID("abcdef0123456789")

	ia := InitialAttributions{
		Files: map[string]attribution.List{
			"a.go": {{StartLine: 1, EndLine: 5, AuthorID: string(id)}},
		},
		Prompts: map[authormodel.AttributionID]authormodel.PromptRecord{
			id: {ID: id, Agent: authormodel.AgentDescriptor{Tool: "claude-code"}},
		},
	}
	require.NoError(t, w.WriteInitialAttributions(ia))

	got, err := w.ReadInitialAttributions()
	require.NoError(t, err)
	require.Contains(t, got.Files, "a.go")
	assert.Equal(t, 5, got.Files["a.go"][0].EndLine)
	require.Contains(t, got.Prompts, id)
	assert.Equal(t, "claude-code", got.Prompts[id].Agent.Tool)
}

func TestWorkingLog_WriteInitialAttributionsOverwritesAtomically(t *testing.T) {
	w := ForBaseCommit(t.TempDir(), "deadbeef")

	first := InitialAttributions{Files: map[string]attribution.List{"a.go": {{StartLine: 1, EndLine: 1, AuthorID: "alice"}}}}
	require.NoError(t, w.WriteInitialAttributions(first))

	second := InitialAttributions{Files: map[string]attribution.List{"b.go": {{StartLine: 1, EndLine: 1, AuthorID: "bob"}}}}
	require.NoError(t, w.WriteInitialAttributions(second))

	got, err := w.ReadInitialAttributions()
	require.NoError(t, err)
	assert.NotContains(t, got.Files, "a.go")
	assert.Contains(t, got.Files, "b.go")
}

func TestWorkingLog_ResetWorkingLogRemovesAllState(t *testing.T) {
	dir := t.TempDir()
	w := ForBaseCommit(dir, "deadbeef")

	require.NoError(t, w.AppendCheckpoint(Checkpoint{Kind: Human}))
	require.NoError(t, w.WriteInitialAttributions(InitialAttributions{}))

	require.NoError(t, w.ResetWorkingLog())

	got, err := w.ReadAllCheckpoints()
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = os.Stat(w.checkpointsPath())
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteWorkingLogForBaseCommit_RemovesOnlyThatHead(t *testing.T) {
	aiDir := t.TempDir()
	wa := ForBaseCommit(aiDir, "sha-a")
	wb := ForBaseCommit(aiDir, "sha-b")

	require.NoError(t, wa.AppendCheckpoint(Checkpoint{Kind: Human}))
	require.NoError(t, wb.AppendCheckpoint(Checkpoint{Kind: Human}))

	require.NoError(t, DeleteWorkingLogForBaseCommit(aiDir, "sha-a"))

	gotA, err := wa.ReadAllCheckpoints()
	require.NoError(t, err)
	assert.Empty(t, gotA)

	gotB, err := wb.ReadAllCheckpoints()
	require.NoError(t, err)
	assert.Len(t, gotB, 1)
}

func TestWorkingLog_AppendRewriteEventPrependsNewestFirst(t *testing.T) {
	w := ForBaseCommit(t.TempDir(), "deadbeef")

	require.NoError(t, w.AppendRewriteEvent(NewCommitEvent(nil, "sha1"), 200))
	require.NoError(t, w.AppendRewriteEvent(NewCommitEvent(nil, "sha2"), 200))

	events, err := w.ReadRewriteLog(200)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotNil(t, events[0].Commit)
	require.NotNil(t, events[1].Commit)
	assert.Equal(t, "sha2", events[0].Commit.CommitSHA)
	assert.Equal(t, "sha1", events[1].Commit.CommitSHA)
}

func TestWorkingLog_AppendRewriteEventTrimsToMax(t *testing.T) {
	w := ForBaseCommit(t.TempDir(), "deadbeef")

	for i := 0; i < 5; i++ {
		require.NoError(t, w.AppendRewriteEvent(NewRebaseAbortEvent("head"), 3))
	}

	events, err := w.ReadRewriteLog(3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestWorkingLog_ReadRewriteLogSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	w := ForBaseCommit(dir, "deadbeef")
	require.NoError(t, w.AppendRewriteEvent(NewCommitEvent(nil, "sha1"), 200))

	path := filepath.Join(dir, "working_logs", "deadbeef", "rewrite_log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	corrupted := "not-json\n" + string(data)
	require.NoError(t, os.WriteFile(path, []byte(corrupted), 0o600))

	events, err := w.ReadRewriteLog(200)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sha1", events[0].Commit.CommitSHA)
}

func TestRewriteEvent_UntaggedJSONShapeHasSingleKey(t *testing.T) {
	ev := NewCommitAmendEvent("orig", "amended")
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"commit_amend"`)
	assert.NotContains(t, string(data), `"commit"`)
}
