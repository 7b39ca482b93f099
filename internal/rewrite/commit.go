package rewrite

import (
	"context"

	"github.com/git-ai/git-ai/internal/workinglog"
)

// Commit handles the trivial rewrite verb (spec §4.7 "Commit — trivial:
// C6 already produced the log"): it just runs the ordinary attribution
// pipeline and records a Commit event in the destination HEAD's journal
// so later rewrite handlers (e.g. a subsequent reset) have a continuous
// history to walk.
func (e *Engine) Commit(ctx context.Context, parentSHA, commitSHA string) error {
	wlog := workinglog.ForBaseCommit(e.AIDir, parentSHA)
	if _, err := e.Pipeline.ProcessCommit(ctx, parentSHA, commitSHA, wlog); err != nil {
		return err
	}
	var base *string
	if parentSHA != "" {
		base = &parentSHA
	}
	return e.appendEvent(commitSHA, workinglog.NewCommitEvent(base, commitSHA))
}

// CommitAmend re-runs C6 against the pre-amend commit's parent so that
// lines the amend introduced beyond the pre-amend commit are correctly
// attributed, then carries forward any unstaged initial attributions
// recorded against the original HEAD so the next commit still sees them
// (spec §4.7 CommitAmend).
func (e *Engine) CommitAmend(ctx context.Context, originalSHA, amendedSHA string) error {
	parentSHA, err := e.parentSHA(amendedSHA)
	if err != nil {
		return err
	}

	origWlog := workinglog.ForBaseCommit(e.AIDir, originalSHA)
	ia, err := origWlog.ReadInitialAttributions()
	if err != nil {
		return err
	}

	amendedWlog := workinglog.ForBaseCommit(e.AIDir, amendedSHA)
	if len(ia.Files) > 0 || len(ia.Prompts) > 0 {
		if err := amendedWlog.WriteInitialAttributions(ia); err != nil {
			return err
		}
	}

	if _, err := e.Pipeline.ProcessCommit(ctx, parentSHA, amendedSHA, amendedWlog); err != nil {
		return err
	}

	return e.appendEvent(amendedSHA, workinglog.NewCommitAmendEvent(originalSHA, amendedSHA))
}

// Merge handles a plain (non-squash) merge commit: on success, C6 runs
// against the merge commit's first parent exactly as it would for an
// ordinary commit (spec §4.6: "every successful commit, including
// merge"); on conflict, no log is produced and the event records the
// conflicted paths so a later retry/abort can be told apart from a clean
// merge.
func (e *Engine) Merge(ctx context.Context, sourceBranch, targetBranch string, mergeCommitSHA *string, success bool, conflicts []string) error {
	if success && mergeCommitSHA != nil {
		parentSHA, err := e.parentSHA(*mergeCommitSHA)
		if err != nil {
			return err
		}
		wlog := workinglog.ForBaseCommit(e.AIDir, parentSHA)
		if _, err := e.Pipeline.ProcessCommit(ctx, parentSHA, *mergeCommitSHA, wlog); err != nil {
			return err
		}
	}

	head := targetBranch
	if mergeCommitSHA != nil {
		head = *mergeCommitSHA
	}
	return e.appendEvent(head, workinglog.NewMergeEvent(sourceBranch, targetBranch, mergeCommitSHA, success, conflicts))
}
