package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/git-ai/git-ai/internal/workinglog"
)

// cherryPickBatchState is the on-disk shape of
// cherry_pick_batch_state.json (spec §6): present only between
// CherryPickStart and CherryPickComplete/Abort.
type cherryPickBatchState struct {
	OriginalHead  string   `json:"original_head"`
	SourceCommits []string `json:"source_commits"`
}

func (e *Engine) cherryPickStatePath() string {
	return filepath.Join(e.AIDir, "cherry_pick_batch_state.json")
}

func (e *Engine) writeCherryPickState(s cherryPickBatchState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling cherry-pick batch state: %w", err)
	}
	if err := os.MkdirAll(e.AIDir, 0o750); err != nil {
		return fmt.Errorf("creating AI state directory: %w", err)
	}
	path := e.cherryPickStatePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing cherry-pick batch state: %w", err)
	}
	return os.Rename(tmp, path)
}

// readCherryPickState returns (nil, nil) if no batch is in progress.
func (e *Engine) readCherryPickState() (*cherryPickBatchState, error) {
	data, err := os.ReadFile(e.cherryPickStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cherry-pick batch state: %w", err)
	}
	var s cherryPickBatchState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing cherry-pick batch state: %w", err)
	}
	return &s, nil
}

func (e *Engine) removeCherryPickState() error {
	if err := os.Remove(e.cherryPickStatePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cherry-pick batch state: %w", err)
	}
	return nil
}

// CherryPickStart snapshots original_head and the commits git is about
// to apply (spec §4.7 Cherry-pick).
func (e *Engine) CherryPickStart(ctx context.Context, originalHead string, sourceCommits []string) error {
	if err := e.writeCherryPickState(cherryPickBatchState{OriginalHead: originalHead, SourceCommits: sourceCommits}); err != nil {
		return err
	}
	return e.appendEvent(originalHead, workinglog.NewCherryPickStartEvent(originalHead, sourceCommits))
}

// CherryPickComplete maps every applied commit through the fast-path
// (trees-identical: copy the source log verbatim) or the content-union
// path (re-run attribution against the destination parent, seeded from
// the source log's content), then emits a single batched
// CherryPickComplete event (spec §4.7: "individual per-commit events are
// not written").
func (e *Engine) CherryPickComplete(ctx context.Context, newHead string) error {
	state, err := e.readCherryPickState()
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("cherry-pick complete: no in-progress batch state")
	}

	newCommits, err := e.revList(ctx, state.OriginalHead, newHead)
	if err != nil {
		return err
	}

	n := len(state.SourceCommits)
	if len(newCommits) < n {
		n = len(newCommits)
	}
	for i := 0; i < n; i++ {
		if err := e.cherryPickOneCommit(ctx, state.SourceCommits[i], newCommits[i]); err != nil {
			return fmt.Errorf("cherry-picking %s onto %s: %w", state.SourceCommits[i], newCommits[i], err)
		}
	}

	if err := e.removeCherryPickState(); err != nil {
		return err
	}

	return e.appendEvent(newHead, workinglog.NewCherryPickCompleteEvent(state.OriginalHead, newHead, state.SourceCommits, newCommits))
}

// CherryPickAbort drops the partial batch state without writing any
// destination logs.
func (e *Engine) CherryPickAbort(ctx context.Context, originalHead string) error {
	if err := e.removeCherryPickState(); err != nil {
		return err
	}
	return e.appendEvent(originalHead, workinglog.NewCherryPickAbortEvent(originalHead))
}

// cherryPickOneCommit reconstructs the AuthorshipLog for one cherry-picked
// destination commit dst, whose source is src.
func (e *Engine) cherryPickOneCommit(ctx context.Context, src, dst string) error {
	srcTree, err := e.treeHash(src)
	if err != nil {
		return err
	}
	dstTree, err := e.treeHash(dst)
	if err != nil {
		return err
	}

	if srcTree == dstTree {
		log, ok, err := e.Store.Load(ctx, src)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		clone := buildLog(dst, log.Attestations, log.Metadata.Prompts)
		return e.Store.Save(ctx, clone)
	}

	dstParent, err := e.parentSHA(dst)
	if err != nil {
		return err
	}

	contentMap, prompts, _, err := e.contentAuthorMap(ctx, []string{src})
	if err != nil {
		return err
	}

	paths, err := e.changedPaths(ctx, dstParent, dst)
	if err != nil {
		return err
	}

	return e.Store.Save(ctx, buildLog(dst, e.buildAttestations(dst, paths, contentMap), prompts))
}
