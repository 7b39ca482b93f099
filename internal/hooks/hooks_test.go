package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-ai/git-ai/internal/authorshiplog"
	"github.com/git-ai/git-ai/internal/commitpipeline"
	"github.com/git-ai/git-ai/internal/config"
	"github.com/git-ai/git-ai/internal/gitcli"
	"github.com/git-ai/git-ai/internal/gitrepo"
	"github.com/git-ai/git-ai/internal/rewrite"
	"github.com/git-ai/git-ai/internal/workinglog"
)

func initRepo(t *testing.T) (*gitrepo.Repo, string) {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	run := func(args ...string) {
		_, err := gitcli.Run(ctx, dir, args...)
		require.NoError(t, err)
	}
	run("init", "-q")
	run("config", "user.name", "Test User")
	run("config", "user.email", "test@example.com")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644))
	run("add", "a.go")
	run("commit", "-q", "-m", "initial")

	r, err := gitrepo.Open(dir)
	require.NoError(t, err)
	return r, dir
}

func newDispatcher(r *gitrepo.Repo, aiDir string) *Dispatcher {
	store := authorshiplog.New(r)
	pipeline := commitpipeline.New(r, nil, nil, store, nil)
	engine := rewrite.New(r, aiDir, store, pipeline, nil)
	return New(r, aiDir, engine, &config.Config{HookMode: "hooks"})
}

func TestClassifyVerb(t *testing.T) {
	assert.Equal(t, VerbCommit, ClassifyVerb([]string{"commit", "-m", "x"}))
	assert.Equal(t, VerbReset, ClassifyVerb([]string{"reset", "--hard", "HEAD^"}))
	assert.Equal(t, VerbOther, ClassifyVerb([]string{"status"}))
	assert.Equal(t, VerbCommit, ClassifyVerb([]string{"-C", "/repo", "commit"}))
}

func TestClaim_SecondCallWithSameIDIsNotOwner(t *testing.T) {
	r, _ := initRepo(t)
	aiDir := t.TempDir()
	d := newDispatcher(r, aiDir)

	id, owns, err := d.Claim()
	require.NoError(t, err)
	assert.True(t, owns)

	t.Setenv("GITAI_HOOK_INVOCATION_ID", id)
	id2, owns2, err := d.Claim()
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.False(t, owns2)

	require.NoError(t, d.Release(id))
}

func TestInstallUninstallHooks_RoundTrip(t *testing.T) {
	r, dir := initRepo(t)
	aiDir := filepath.Join(dir, ".git-ai")
	ctx := context.Background()

	require.NoError(t, InstallHooks(ctx, r, aiDir, "/usr/local/bin/gitai", "hooks"))

	state, ok, err := LoadState(aiDir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StateSchemaVersion, state.SchemaVersion)
	assert.Nil(t, state.OriginalLocalHooksPath)

	for _, name := range managedHookNames {
		data, err := os.ReadFile(filepath.Join(state.ManagedHooksPath, name))
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "hooks git "+name))
	}

	out, err := gitcli.Run(ctx, dir, "config", "--get", "core.hooksPath")
	require.NoError(t, err)
	assert.Equal(t, state.ManagedHooksPath, strings.TrimSpace(out.Stdout))

	require.NoError(t, UninstallHooks(ctx, r, aiDir))
	_, ok, err = LoadState(aiDir)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = gitcli.Run(ctx, dir, "config", "--get", "core.hooksPath")
	assert.Error(t, err)
}

func TestHandlePrepareCommitMsgThenPostCommit_PlainCommit(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	d := newDispatcher(r, aiDir)

	require.NoError(t, d.HandlePrepareCommitMsg(ctx, "message", ""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("package a\n"), 0o644))
	_, err := gitcli.Run(ctx, dir, "add", "b.go")
	require.NoError(t, err)
	_, err = gitcli.Run(ctx, dir, "commit", "-q", "-m", "add b")
	require.NoError(t, err)

	require.NoError(t, d.HandlePostCommit(ctx))

	newHead, _, _, err := r.Head()
	require.NoError(t, err)
	events, err := workinglog.ForBaseCommit(aiDir, newHead).ReadRewriteLog(workinglog.MaxRewriteLogEvents)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Commit)
	assert.Equal(t, newHead, events[0].Commit.CommitSHA)
}

func TestHandlePostCheckout_MigratesWorkingLog(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	d := newDispatcher(r, aiDir)

	oldHead, _, _, err := r.Head()
	require.NoError(t, err)

	_, err = gitcli.Run(ctx, dir, "checkout", "-q", "-b", "feature")
	require.NoError(t, err)
	newHead, _, _, err := r.Head()
	require.NoError(t, err)

	wlog := workinglog.ForBaseCommit(aiDir, oldHead)
	require.NoError(t, wlog.AppendCheckpoint(workinglog.Checkpoint{Kind: workinglog.Human}))

	require.NoError(t, d.HandlePostCheckout(ctx, oldHead, newHead, true))

	checkpoints, err := workinglog.ForBaseCommit(aiDir, newHead).ReadAllCheckpoints()
	require.NoError(t, err)
	assert.Len(t, checkpoints, 1)
}

func TestHandlePrePush_SkipsWhenNoRefsUpdated(t *testing.T) {
	r, _ := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	d := newDispatcher(r, aiDir)

	require.NoError(t, d.HandlePrePush(ctx, "origin", strings.NewReader("")))
}
