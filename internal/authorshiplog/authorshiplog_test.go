package authorshiplog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/gitcli"
	"github.com/git-ai/git-ai/internal/gitrepo"
)

func initRepo(t *testing.T) (*gitrepo.Repo, string) {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	_, err := gitcli.Run(ctx, dir, "init", "-q")
	require.NoError(t, err)
	_, err = gitcli.Run(ctx, dir, "config", "user.name", "Test User")
	require.NoError(t, err)
	_, err = gitcli.Run(ctx, dir, "config", "user.email", "test@example.com")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	_, err = gitcli.Run(ctx, dir, "add", "a.go")
	require.NoError(t, err)
	_, err = gitcli.Run(ctx, dir, "commit", "-q", "-m", "initial")
	require.NoError(t, err)

	r, err := gitrepo.Open(dir)
	require.NoError(t, err)
	return r, dir
}

func headSHA(t *testing.T, r *gitrepo.Repo) string {
	t.Helper()
	sha, _, _, err := r.Head()
	require.NoError(t, err)
	return sha
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	r, _ := initRepo(t)
	sha := headSHA(t, r)
	store := New(r)

	id := authormodel.AttributionID("abcdef0123456789")
	log := authormodel.New(sha)
	log.Metadata.Prompts[id] = authormodel.PromptRecord{ID: id, Agent: authormodel.AgentDescriptor{Tool: "claude-code"}}
	log.Attestations = []authormodel.FileAttestation{{
		FilePath: "a.go",
		Entries:  []authormodel.AttestationEntry{{Hash: id, StartLine: 1, EndLine: 1}},
	}}

	require.NoError(t, store.Save(context.Background(), log))

	got, ok, err := store.Load(context.Background(), sha)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sha, got.CommitSHA)
	require.Len(t, got.Attestations, 1)
	assert.Equal(t, "a.go", got.Attestations[0].FilePath)
}

func TestStore_LoadReturnsNotOKWhenNoteAbsent(t *testing.T) {
	r, _ := initRepo(t)
	sha := headSHA(t, r)
	store := New(r)

	got, ok, err := store.Load(context.Background(), sha)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_SaveRejectsInvalidLog(t *testing.T) {
	r, _ := initRepo(t)
	sha := headSHA(t, r)
	store := New(r)

	log := authormodel.New(sha)
	log.Attestations = []authormodel.FileAttestation{{
		FilePath: "a.go",
		Entries:  []authormodel.AttestationEntry{{Hash: authormodel.AttributionID("missing-prompt"), StartLine: 1, EndLine: 1}},
	}}

	err := store.Save(context.Background(), log)
	assert.Error(t, err)
}

func TestStore_LoadMigratesLegacySevenCharIDs(t *testing.T) {
	r, _ := initRepo(t)
	sha := headSHA(t, r)
	store := New(r)

	legacyID := authormodel.AttributionID("abc1234")
	log := authormodel.New(sha)
	log.Metadata.Prompts[legacyID] = authormodel.PromptRecord{
		ID:    legacyID,
		Agent: authormodel.AgentDescriptor{Tool: "claude-code", SessionID: "s1", Model: "opus"},
	}
	log.Attestations = []authormodel.FileAttestation{{
		FilePath: "a.go",
		Entries:  []authormodel.AttestationEntry{{Hash: legacyID, StartLine: 1, EndLine: 1}},
	}}

	rawData, err := log.Marshal()
	require.NoError(t, err)
	require.NoError(t, r.WriteNote(context.Background(), "refs/notes/git-ai/authorship/v1", sha, string(rawData)))

	got, ok, err := store.Load(context.Background(), sha)
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, got.Attestations[0].Entries, 1)
	newID := got.Attestations[0].Entries[0].Hash
	assert.NotEqual(t, legacyID, newID)
	assert.Len(t, string(newID), 16)
	assert.Contains(t, got.Metadata.Prompts, newID)
	assert.NotContains(t, got.Metadata.Prompts, legacyID)

	reloaded, ok, err := store.Load(context.Background(), sha)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newID, reloaded.Attestations[0].Entries[0].Hash)
}
