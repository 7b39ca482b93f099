package rewrite

import (
	"context"
	"os"
	"path/filepath"

	"github.com/git-ai/git-ai/internal/workinglog"
)

// workingLogPath mirrors workinglog.ForBaseCommit's own directory layout
// (working_logs/<headSHA>), duplicated here because the engine needs to
// rename the directory wholesale rather than go through the per-HEAD
// handle's read/write methods.
func workingLogPath(aiDir, headSHA string) string {
	return filepath.Join(aiDir, "working_logs", headSHA)
}

// CheckoutSwitch implements checkout/switch (spec §4.7). There is no
// RewriteEvent variant for this verb, so unlike every other handler in
// this package it does not append to the rewrite journal — it only
// migrates working-log state so the next commit/checkpoint under the new
// HEAD sees the attributions the old HEAD had accumulated.
func (e *Engine) CheckoutSwitch(ctx context.Context, oldHeadSHA, newHeadSHA string, discard bool, pathspecs []string, merge bool) error {
	switch {
	case discard:
		return workinglog.DeleteWorkingLogForBaseCommit(e.AIDir, oldHeadSHA)
	case len(pathspecs) > 0:
		return e.clearPathspecAttributions(oldHeadSHA, pathspecs)
	default:
		// Plain switch and --merge both carry working-log state forward
		// to the new HEAD; a --merge conflict leaves mixed content for
		// the next commit, which C6's checkpoint fallback already
		// handles without help from this verb.
		return e.migrateWorkingLog(oldHeadSHA, newHeadSHA)
	}
}

func (e *Engine) migrateWorkingLog(oldHeadSHA, newHeadSHA string) error {
	if oldHeadSHA == newHeadSHA {
		return nil
	}
	oldDir := workingLogPath(e.AIDir, oldHeadSHA)
	if _, err := os.Stat(oldDir); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	newDir := workingLogPath(e.AIDir, newHeadSHA)
	if err := os.MkdirAll(filepath.Dir(newDir), 0o750); err != nil {
		return err
	}
	if _, err := os.Stat(newDir); err == nil {
		// New HEAD already has working-log state (e.g. switching back to
		// a branch visited before); leave it as the authority rather
		// than clobbering it with the old HEAD's state.
		return os.RemoveAll(oldDir)
	}
	return os.Rename(oldDir, newDir)
}

func (e *Engine) clearPathspecAttributions(headSHA string, pathspecs []string) error {
	wlog := workinglog.ForBaseCommit(e.AIDir, headSHA)
	ia, err := wlog.ReadInitialAttributions()
	if err != nil {
		return err
	}
	for _, p := range pathspecs {
		delete(ia.Files, p)
	}
	return wlog.WriteInitialAttributions(ia)
}
