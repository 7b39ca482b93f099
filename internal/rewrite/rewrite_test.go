package rewrite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/authorshiplog"
	"github.com/git-ai/git-ai/internal/commitpipeline"
	"github.com/git-ai/git-ai/internal/gitcli"
	"github.com/git-ai/git-ai/internal/gitrepo"
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

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc A() {}\n"), 0o644))
	run("add", "a.go")
	run("commit", "-q", "-m", "initial")

	r, err := gitrepo.Open(dir)
	require.NoError(t, err)
	return r, dir
}

func commitFile(t *testing.T, dir, content string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(content), 0o644))
	_, err := gitcli.Run(ctx, dir, "add", "a.go")
	require.NoError(t, err)
	_, err = gitcli.Run(ctx, dir, "commit", "-q", "-m", "change")
	require.NoError(t, err)
	return headSHA(t, dir)
}

func resetTo(t *testing.T, dir, mode, target string) {
	t.Helper()
	_, err := gitcli.Run(context.Background(), dir, "reset", mode, target)
	require.NoError(t, err)
}

func headSHA(t *testing.T, dir string) string {
	t.Helper()
	out, err := gitcli.Run(context.Background(), dir, "rev-parse", "HEAD")
	require.NoError(t, err)
	return trimNewline(out.Stdout)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func newEngine(r *gitrepo.Repo, aiDir string) *Engine {
	store := authorshiplog.New(r)
	pipeline := commitpipeline.New(r, nil, nil, store, nil)
	return New(r, aiDir, store, pipeline, nil)
}

func TestCommitAmend_PreservesInitialAttributions(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)

	originalSHA := commitFile(t, dir, "package a\n\nfunc A() {}\n\nfunc B() {}\n")

	wlog := workinglog.ForBaseCommit(aiDir, originalSHA)
	require.NoError(t, wlog.WriteInitialAttributions(workinglog.InitialAttributions{
		Files: map[string]attribution.List{
			"untouched.go": {{StartLine: 1, EndLine: 1, AuthorID: "prompt-1"}},
		},
		Prompts: map[authormodel.AttributionID]authormodel.PromptRecord{
			"prompt-1": {ID: "prompt-1"},
		},
	}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n\nfunc A() {}\n\nfunc B() {}\n\nfunc C() {}\n"), 0o644))
	_, err := gitcli.Run(ctx, dir, "add", "a.go")
	require.NoError(t, err)
	_, err = gitcli.Run(ctx, dir, "commit", "-q", "--amend", "-m", "change (amended)")
	require.NoError(t, err)
	amendedSHA := headSHA(t, dir)
	require.NotEqual(t, originalSHA, amendedSHA)

	require.NoError(t, e.CommitAmend(ctx, originalSHA, amendedSHA))

	amendedWlog := workinglog.ForBaseCommit(aiDir, amendedSHA)
	ia, err := amendedWlog.ReadInitialAttributions()
	require.NoError(t, err)
	assert.Contains(t, ia.Files, "untouched.go")

	events, err := amendedWlog.ReadRewriteLog(workinglog.MaxRewriteLogEvents)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].CommitAmend)
	assert.Equal(t, originalSHA, events[0].CommitAmend.OriginalCommit)
	assert.Equal(t, amendedSHA, events[0].CommitAmend.AmendedCommitSHA)
}

func TestReset_Hard_DeletesOldWorkingLog(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)

	oldHead, _, _, err := r.Head()
	require.NoError(t, err)
	newHead := commitFile(t, dir, "package a\n\nfunc A() {}\n\nfunc B() {}\n")

	wlog := workinglog.ForBaseCommit(aiDir, newHead)
	require.NoError(t, wlog.WriteInitialAttributions(workinglog.InitialAttributions{
		Files:   map[string]attribution.List{"a.go": {{StartLine: 1, EndLine: 3, AuthorID: "human"}}},
		Prompts: map[authormodel.AttributionID]authormodel.PromptRecord{},
	}))

	resetTo(t, dir, "--hard", oldHead)
	require.NoError(t, e.Reset(ctx, workinglog.ResetHard, false, false, newHead, oldHead, nil))

	ia, err := workinglog.ForBaseCommit(aiDir, newHead).ReadInitialAttributions()
	require.NoError(t, err)
	assert.Empty(t, ia.Files)
}

func TestReset_Backward_ReconstructsInitialAttributions(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)

	oldHead, _, _, err := r.Head()
	require.NoError(t, err)

	store := authorshiplog.New(r)
	newHead := commitFile(t, dir, "package a\n\nfunc A() {}\n\nfunc B() {}\n")
	log := authormodel.New(newHead)
	log.Attestations = []authormodel.FileAttestation{{
		FilePath: "a.go",
		Entries:  []authormodel.AttestationEntry{{Hash: "prompt-1", StartLine: 5, EndLine: 5}},
	}}
	log.Metadata.Prompts["prompt-1"] = authormodel.PromptRecord{ID: "prompt-1"}
	require.NoError(t, store.Save(ctx, log))

	resetTo(t, dir, "--mixed", oldHead)
	require.NoError(t, e.Reset(ctx, workinglog.ResetMixed, false, false, newHead, oldHead, nil))

	ia, err := workinglog.ForBaseCommit(aiDir, oldHead).ReadInitialAttributions()
	require.NoError(t, err)
	require.Contains(t, ia.Files, "a.go")
	list := ia.Files["a.go"]
	author, ok := list.AuthorAt(5)
	require.True(t, ok)
	assert.Equal(t, "prompt-1", author)
}

func TestCherryPickComplete_FastPath_ClonesIdenticalTree(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)
	store := authorshiplog.New(r)

	originalHead, _, _, err := r.Head()
	require.NoError(t, err)
	src := commitFile(t, dir, "package a\n\nfunc A() {}\n\nfunc B() {}\n")

	log := authormodel.New(src)
	log.Attestations = []authormodel.FileAttestation{{
		FilePath: "a.go",
		Entries:  []authormodel.AttestationEntry{{Hash: "prompt-1", StartLine: 5, EndLine: 5}},
	}}
	log.Metadata.Prompts["prompt-1"] = authormodel.PromptRecord{ID: "prompt-1"}
	require.NoError(t, store.Save(ctx, log))

	resetTo(t, dir, "--hard", originalHead)
	require.NoError(t, e.CherryPickStart(ctx, originalHead, []string{src}))
	_, err = gitcli.Run(ctx, dir, "cherry-pick", src)
	require.NoError(t, err)
	newHead := headSHA(t, dir)

	require.NoError(t, e.CherryPickComplete(ctx, newHead))

	got, ok, err := store.Load(ctx, newHead)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Attestations, 1)
	assert.Equal(t, authormodel.AttributionID("prompt-1"), got.Attestations[0].Entries[0].Hash)
}

func TestMergeSquash_NoLogWhenNoSourceLogsExisted(t *testing.T) {
	r, dir := initRepo(t)
	ctx := context.Background()
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)
	store := authorshiplog.New(r)

	baseHead, _, _, err := r.Head()
	require.NoError(t, err)
	sourceHead := commitFile(t, dir, "package a\n\nfunc A() {}\n\nfunc B() {}\n")

	squashSHA := commitFile(t, dir, "package a\n\nfunc A() {}\n\nfunc B() {}\n")

	require.NoError(t, e.MergeSquash(ctx, "feature", sourceHead, "main", baseHead, squashSHA))

	_, ok, err := store.Load(ctx, squashSHA)
	require.NoError(t, err)
	assert.False(t, ok)

	wlog := workinglog.ForBaseCommit(aiDir, squashSHA)
	events, err := wlog.ReadRewriteLog(workinglog.MaxRewriteLogEvents)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].MergeSquash)
}

func TestStash_CreateApplyRoundTrip(t *testing.T) {
	r, _ := initRepo(t)
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)
	ctx := context.Background()

	head, _, _, err := r.Head()
	require.NoError(t, err)

	wlog := workinglog.ForBaseCommit(aiDir, head)
	require.NoError(t, wlog.WriteInitialAttributions(workinglog.InitialAttributions{
		Files:   map[string]attribution.List{"a.go": {{StartLine: 1, EndLine: 3, AuthorID: "prompt-1"}}},
		Prompts: map[authormodel.AttributionID]authormodel.PromptRecord{"prompt-1": {ID: "prompt-1"}},
	}))

	ref := "stash@{0}"
	require.NoError(t, e.Stash(ctx, workinglog.StashCreate, &ref, head, []string{"a.go"}))

	afterCreate, err := wlog.ReadInitialAttributions()
	require.NoError(t, err)
	assert.Empty(t, afterCreate.Files, "create does not itself clear the source working log; only a later reset/checkout would")

	require.NoError(t, workinglog.DeleteWorkingLogForBaseCommit(aiDir, head))
	require.NoError(t, e.Stash(ctx, workinglog.StashApply, &ref, head, []string{"a.go"}))

	restored, err := workinglog.ForBaseCommit(aiDir, head).ReadInitialAttributions()
	require.NoError(t, err)
	assert.Contains(t, restored.Files, "a.go")
}

func TestCheckoutSwitch_MigratesWorkingLogDirectory(t *testing.T) {
	r, _ := initRepo(t)
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)
	ctx := context.Background()

	oldHead := "deadbeef"
	newHead := "cafef00d"

	wlog := workinglog.ForBaseCommit(aiDir, oldHead)
	require.NoError(t, wlog.WriteInitialAttributions(workinglog.InitialAttributions{
		Files:   map[string]attribution.List{"a.go": {{StartLine: 1, EndLine: 1, AuthorID: "human"}}},
		Prompts: map[authormodel.AttributionID]authormodel.PromptRecord{},
	}))

	require.NoError(t, e.CheckoutSwitch(ctx, oldHead, newHead, false, nil, false))

	_, err := os.Stat(workingLogPath(aiDir, oldHead))
	assert.True(t, os.IsNotExist(err))

	ia, err := workinglog.ForBaseCommit(aiDir, newHead).ReadInitialAttributions()
	require.NoError(t, err)
	assert.Contains(t, ia.Files, "a.go")
}

func TestCheckoutSwitch_Discard_DeletesOldWorkingLog(t *testing.T) {
	r, _ := initRepo(t)
	aiDir := t.TempDir()
	e := newEngine(r, aiDir)
	ctx := context.Background()

	oldHead := "deadbeef"
	wlog := workinglog.ForBaseCommit(aiDir, oldHead)
	require.NoError(t, wlog.WriteInitialAttributions(workinglog.InitialAttributions{
		Files:   map[string]attribution.List{"a.go": {{StartLine: 1, EndLine: 1, AuthorID: "human"}}},
		Prompts: map[authormodel.AttributionID]authormodel.PromptRecord{},
	}))

	require.NoError(t, e.CheckoutSwitch(ctx, oldHead, "cafef00d", true, nil, false))

	_, err := os.Stat(workingLogPath(aiDir, oldHead))
	assert.True(t, os.IsNotExist(err))
}
