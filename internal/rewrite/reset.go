package rewrite

import (
	"context"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/workinglog"
)

// Reset implements the reset verb (spec §4.7). oldHeadSHA must be
// resolved by the caller *before* git mutates refs (the pre-reset hook
// requirement spec §4.7 calls out, since a relative ref like HEAD~1
// resolves differently once HEAD has moved).
func (e *Engine) Reset(ctx context.Context, kind workinglog.ResetKind, keep, merge bool, oldHeadSHA, newHeadSHA string, pathspecs []string) error {
	switch {
	case kind == workinglog.ResetHard:
		if err := workinglog.DeleteWorkingLogForBaseCommit(e.AIDir, oldHeadSHA); err != nil {
			return err
		}

	case len(pathspecs) > 0:
		// HEAD does not move for a pathspec reset; reconstruct only the
		// named paths and merge with the existing working log's other
		// entries.
		if err := e.reconstructPathspecs(ctx, oldHeadSHA, pathspecs); err != nil {
			return err
		}

	default:
		backward, err := e.isAncestor(newHeadSHA, oldHeadSHA)
		if err != nil {
			return err
		}
		if backward {
			if err := e.reconstructBackwardReset(ctx, oldHeadSHA, newHeadSHA); err != nil {
				return err
			}
		} else {
			if err := workinglog.DeleteWorkingLogForBaseCommit(e.AIDir, oldHeadSHA); err != nil {
				return err
			}
		}
	}

	return e.appendEvent(newHeadSHA, workinglog.NewResetEvent(kind, keep, merge, newHeadSHA, oldHeadSHA))
}

// isAncestor reports whether candidate is an ancestor of (or equal to)
// descendant, i.e. whether moving HEAD from descendant to candidate is a
// backward reset.
func (e *Engine) isAncestor(candidate, descendant string) (bool, error) {
	if candidate == descendant {
		return true, nil
	}
	base, err := e.Repo.MergeBase(candidate, descendant)
	if err != nil {
		return false, err
	}
	return base == candidate, nil
}

// reconstructBackwardReset seeds the new HEAD's working log with initial
// attributions covering the union of the unwound commits' attestations,
// so that the worktree content git left behind (identical to oldHeadSHA
// for --soft, and the same but unstaged for --mixed) still reports as
// AI-authored on the next commit.
func (e *Engine) reconstructBackwardReset(ctx context.Context, oldHeadSHA, newHeadSHA string) error {
	unwound, err := e.revList(ctx, newHeadSHA, oldHeadSHA)
	if err != nil {
		return err
	}
	contentMap, prompts, anyLogFound, err := e.contentAuthorMap(ctx, unwound)
	if err != nil || !anyLogFound {
		return err
	}

	paths, err := e.changedPaths(ctx, newHeadSHA, oldHeadSHA)
	if err != nil {
		return err
	}

	files := map[string]attribution.List{}
	for _, path := range paths {
		lines, ok := e.fileLines(oldHeadSHA, path)
		if !ok {
			continue
		}
		if list := attributionListByContent(lines, contentMap); len(list) > 0 {
			files[path] = list
		}
	}
	if len(files) == 0 {
		return nil
	}

	newWlog := workinglog.ForBaseCommit(e.AIDir, newHeadSHA)
	return newWlog.WriteInitialAttributions(workinglog.InitialAttributions{Files: files, Prompts: prompts})
}

// reconstructPathspecs rebuilds initial attributions for the listed
// paths only, from the working log's own history plus HEAD's blame,
// while leaving the existing working log's other paths untouched (spec
// §4.7 Reset "With pathspecs").
func (e *Engine) reconstructPathspecs(ctx context.Context, headSHA string, pathspecs []string) error {
	wlog := workinglog.ForBaseCommit(e.AIDir, headSHA)
	ia, err := wlog.ReadInitialAttributions()
	if err != nil {
		return err
	}

	contentMap, prompts, anyLogFound, err := e.contentAuthorMap(ctx, []string{headSHA})
	if err != nil {
		return err
	}
	if !anyLogFound {
		return nil
	}

	for _, path := range pathspecs {
		lines, ok := e.fileLines(headSHA, path)
		if !ok {
			delete(ia.Files, path)
			continue
		}
		if list := attributionListByContent(lines, contentMap); len(list) > 0 {
			ia.Files[path] = list
		} else {
			delete(ia.Files, path)
		}
	}
	for id, rec := range prompts {
		ia.Prompts[id] = rec
	}

	return wlog.WriteInitialAttributions(ia)
}

// attributionListByContent builds a full-coverage attribution.List for
// lines by looking up each line's normalized content in contentMap,
// defaulting uncovered lines to human and collapsing consecutive runs.
func attributionListByContent(lines []string, contentMap map[string]authormodel.AttributionID) attribution.List {
	authors := make([]string, len(lines))
	for i, line := range lines {
		if id, ok := contentMap[normalize(line)]; ok {
			authors[i] = string(id)
		} else {
			authors[i] = string(authormodel.Human)
		}
	}

	var list attribution.List
	start := 0
	for i := 1; i <= len(authors); i++ {
		if i == len(authors) || authors[i] != authors[start] {
			list = append(list, attribution.LineAttribution{StartLine: start + 1, EndLine: i, AuthorID: authors[start]})
			start = i
		}
	}
	return list
}
