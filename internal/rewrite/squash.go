package rewrite

import (
	"context"

	"github.com/git-ai/git-ai/internal/workinglog"
)

// MergeSquash implements the squash-merge verb (spec §4.7): walk every
// source commit between baseHead and sourceHead, union their authorship
// attestations into a candidate log keyed by content, then diff the
// squash commit against baseHead and keep only the attestations whose
// lines survive. When none of the source commits had an AuthorshipLog,
// no log is written at all; when they did but every attestation list was
// empty (pure human work), an empty-attestations log is written to
// record that the squash was analysed.
func (e *Engine) MergeSquash(ctx context.Context, sourceBranch, sourceHead, baseBranch, baseHead, squashCommitSHA string) error {
	sourceCommits, err := e.revList(ctx, baseHead, sourceHead)
	if err != nil {
		return err
	}

	contentMap, prompts, anyLogFound, err := e.contentAuthorMap(ctx, sourceCommits)
	if err != nil {
		return err
	}

	if anyLogFound {
		paths, err := e.changedPaths(ctx, baseHead, squashCommitSHA)
		if err != nil {
			return err
		}
		if err := e.Store.Save(ctx, buildLog(squashCommitSHA, e.buildAttestations(squashCommitSHA, paths, contentMap), prompts)); err != nil {
			return err
		}
	}

	return e.appendEvent(squashCommitSHA, workinglog.NewMergeSquashEvent(sourceBranch, sourceHead, baseBranch, baseHead))
}
