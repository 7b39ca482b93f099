package rewrite

import (
	"context"
	"fmt"

	"github.com/git-ai/git-ai/internal/workinglog"
)

// RebaseStart records that a rebase is beginning (spec §4.7 Rebase:
// "identical structure to cherry-pick but with RebaseStart").
func (e *Engine) RebaseStart(ctx context.Context, originalHead string, isInteractive bool, ontoHead *string) error {
	return e.appendEvent(originalHead, workinglog.NewRebaseStartEvent(originalHead, isInteractive, ontoHead))
}

// RebaseAbort drops no persisted rebase-batch state (rebase, unlike
// cherry-pick, keeps no separate state file — git's own
// .git/rebase-merge directory is the source of truth for an in-progress
// rebase) and records the abort.
func (e *Engine) RebaseAbort(ctx context.Context, originalHead string) error {
	return e.appendEvent(originalHead, workinglog.NewRebaseAbortEvent(originalHead))
}

// RebaseComplete correlates originalCommits[i] to newCommits[i]
// positionally (spec §4.7 Rebase). A dropped commit (interactive `d`)
// simply has no counterpart and is skipped. When more original commits
// remain than new commits once the positional zip is exhausted, the
// trailing original commits were folded by a squash/fixup into the
// final new commit: their attestations are unioned into the same
// content map and re-applied against that commit's diff, exactly as
// squash-merge does for a whole branch (spec §4.7 "squashes fold
// multiple source logs into one destination log by unioning attestations
// then re-applying C6 on the folded patch").
func (e *Engine) RebaseComplete(ctx context.Context, originalHead, newHead string, isInteractive bool, originalCommits, newCommits []string) error {
	n := len(originalCommits)
	if len(newCommits) < n {
		n = len(newCommits)
	}

	for i := 0; i < n; i++ {
		if originalCommits[i] == "" || newCommits[i] == "" {
			continue // dropped slot
		}
		if err := e.cherryPickOneCommit(ctx, originalCommits[i], newCommits[i]); err != nil {
			return fmt.Errorf("rebasing %s onto %s: %w", originalCommits[i], newCommits[i], err)
		}
	}

	if len(originalCommits) > len(newCommits) && len(newCommits) > 0 {
		folded := originalCommits[len(newCommits):]
		finalNew := newCommits[len(newCommits)-1]
		if err := e.foldIntoCommit(ctx, folded, finalNew); err != nil {
			return fmt.Errorf("folding squashed rebase commits onto %s: %w", finalNew, err)
		}
	}

	return e.appendEvent(newHead, workinglog.NewRebaseCompleteEvent(originalHead, newHead, isInteractive, originalCommits, newCommits))
}

// foldIntoCommit unions the AuthorshipLogs of source commits and
// re-attributes dst's diff against its parent using that union (the
// interactive-rebase squash/fixup case, and the common core of
// MergeSquash).
func (e *Engine) foldIntoCommit(ctx context.Context, sources []string, dst string) error {
	dstParent, err := e.parentSHA(dst)
	if err != nil {
		return err
	}

	contentMap, prompts, _, err := e.contentAuthorMap(ctx, sources)
	if err != nil {
		return err
	}

	paths, err := e.changedPaths(ctx, dstParent, dst)
	if err != nil {
		return err
	}

	return e.Store.Save(ctx, buildLog(dst, e.buildAttestations(dst, paths, contentMap), prompts))
}
