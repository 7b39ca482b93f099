package rewrite

import (
	"context"

	"github.com/git-ai/git-ai/internal/workinglog"
)

// stashKey maps a stash ref to the pseudo-HEAD key its working-log
// snapshot is stored under, reusing the same per-HEAD directory layout
// working logs already use rather than inventing a parallel format.
func stashKey(ref string) string { return "stash/" + ref }

// Stash implements the stash verb (spec §4.7): Create snapshots the
// current working log's uncommitted attributions under the stash ref;
// Apply/Pop restores them; Drop deletes them; List is read-only.
func (e *Engine) Stash(ctx context.Context, op workinglog.StashOperation, stashRef *string, headSHA string, files []string) error {
	ref := ""
	if stashRef != nil {
		ref = *stashRef
	}

	switch op {
	case workinglog.StashCreate:
		if err := e.snapshotToStash(headSHA, ref); err != nil {
			return err
		}
	case workinglog.StashApply:
		if err := e.restoreFromStash(headSHA, ref); err != nil {
			return err
		}
	case workinglog.StashPop:
		if err := e.restoreFromStash(headSHA, ref); err != nil {
			return err
		}
		if err := workinglog.DeleteWorkingLogForBaseCommit(e.AIDir, stashKey(ref)); err != nil {
			return err
		}
	case workinglog.StashDrop:
		if err := workinglog.DeleteWorkingLogForBaseCommit(e.AIDir, stashKey(ref)); err != nil {
			return err
		}
	case workinglog.StashList:
		// Read-only: nothing to persist.
	}

	return e.appendEvent(headSHA, workinglog.NewStashEvent(op, stashRef, true, files))
}

func (e *Engine) snapshotToStash(headSHA, ref string) error {
	src := workinglog.ForBaseCommit(e.AIDir, headSHA)
	checkpoints, err := src.ReadAllCheckpoints()
	if err != nil {
		return err
	}
	ia, err := src.ReadInitialAttributions()
	if err != nil {
		return err
	}

	dst := workinglog.ForBaseCommit(e.AIDir, stashKey(ref))
	if err := dst.ResetWorkingLog(); err != nil {
		return err
	}
	for _, cp := range checkpoints {
		if err := dst.AppendCheckpoint(cp); err != nil {
			return err
		}
	}
	if len(ia.Files) > 0 || len(ia.Prompts) > 0 {
		return dst.WriteInitialAttributions(ia)
	}
	return nil
}

func (e *Engine) restoreFromStash(headSHA, ref string) error {
	src := workinglog.ForBaseCommit(e.AIDir, stashKey(ref))
	checkpoints, err := src.ReadAllCheckpoints()
	if err != nil {
		return err
	}
	ia, err := src.ReadInitialAttributions()
	if err != nil {
		return err
	}

	dst := workinglog.ForBaseCommit(e.AIDir, headSHA)
	for _, cp := range checkpoints {
		if err := dst.AppendCheckpoint(cp); err != nil {
			return err
		}
	}
	if len(ia.Files) == 0 && len(ia.Prompts) == 0 {
		return nil
	}

	existing, err := dst.ReadInitialAttributions()
	if err != nil {
		return err
	}
	for path, list := range ia.Files {
		existing.Files[path] = list
	}
	for id, rec := range ia.Prompts {
		existing.Prompts[id] = rec
	}
	return dst.WriteInitialAttributions(existing)
}
