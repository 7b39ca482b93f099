// Package authorshiplog persists the per-commit AuthorshipLog (spec
// §4.9 / §6 / C9) in the git-notes namespace refs/notes/git-ai/authorship/v1,
// keyed by commit SHA. Grounded on the teacher's checkpoint/committed.go
// go-git commit-building idiom, adapted from an orphan metadata branch
// to a notes ref since spec §4.9 names a notes namespace, not a branch.
package authorshiplog

import (
	"context"
	"fmt"

	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/gitrepo"
	"github.com/git-ai/git-ai/internal/paths"
)

// Store reads and writes AuthorshipLogs via git notes.
type Store struct {
	repo     *gitrepo.Repo
	notesRef string
}

// New returns a Store using the spec's default notes ref.
func New(repo *gitrepo.Repo) *Store {
	return &Store{repo: repo, notesRef: paths.NotesRef}
}

// Load reads the AuthorshipLog attached to commitSHA. ok is false if no
// note exists for that commit.
func (s *Store) Load(ctx context.Context, commitSHA string) (*authormodel.AuthorshipLog, bool, error) {
	content, ok, err := s.repo.ReadNote(ctx, s.notesRef, commitSHA)
	if err != nil {
		return nil, false, fmt.Errorf("reading authorship note for %s: %w", commitSHA, err)
	}
	if !ok {
		return nil, false, nil
	}

	log, err := authormodel.Unmarshal([]byte(content))
	if err != nil {
		return nil, false, fmt.Errorf("parsing authorship note for %s: %w", commitSHA, err)
	}

	if migrated := migrateLegacyIDs(log); migrated {
		if err := s.Save(ctx, log); err != nil {
			return nil, false, fmt.Errorf("rewriting migrated authorship note for %s: %w", commitSHA, err)
		}
	}

	return log, true, nil
}

// Save validates and writes log to commitSHA's note, replacing any
// existing note.
func (s *Store) Save(ctx context.Context, log *authormodel.AuthorshipLog) error {
	if err := log.Validate(); err != nil {
		return fmt.Errorf("invalid authorship log for %s: %w", log.CommitSHA, err)
	}

	data, err := log.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling authorship log for %s: %w", log.CommitSHA, err)
	}

	if err := s.repo.WriteNote(ctx, s.notesRef, log.CommitSHA, string(data)); err != nil {
		return fmt.Errorf("writing authorship note for %s: %w", log.CommitSHA, err)
	}
	return nil
}
