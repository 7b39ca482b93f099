// Package gitrepo wraps go-git for the structured repository reads
// git-ai needs (HEAD, commits, trees, notes, merge-base), falling back
// to the real git binary for operations go-git does not handle
// reliably — the same split the teacher's git_operations.go makes
// (status/checkout/fetch via exec.Command because go-git ignores
// core.excludesfile, lacks credential helpers, and has a checkout bug
// that deletes untracked files).
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/git-ai/git-ai/internal/gitcli"
	"github.com/git-ai/git-ai/internal/giterrors"
)

// Repo is a handle on one repository, opened with linked-worktree
// support (EnableDotGitCommonDir), as the teacher's OpenRepository
// does for git-worktree(1) correctness.
type Repo struct {
	root string
	repo *git.Repository
}

// Open opens the repository rooted at dir.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, &giterrors.RepoNotFound{Dir: dir}
	}
	return &Repo{root: dir, repo: repo}, nil
}

// Root returns the worktree root this handle was opened against.
func (r *Repo) Root() string { return r.root }

// Author is the resolved git user.name/user.email.
type Author struct {
	Name  string
	Email string
}

// GetAuthor resolves user.name/user.email from repository config,
// falling back to the git CLI when go-git's view of config is empty —
// hook contexts frequently run with a different HOME or a non-standard
// config location where go-git alone comes up short.
func (r *Repo) GetAuthor(ctx context.Context) (Author, error) {
	cfg, err := r.repo.ConfigScoped(0)
	if err != nil {
		return Author{}, fmt.Errorf("reading git config: %w", err)
	}

	name := cfg.User.Name
	email := cfg.User.Email

	if name == "" {
		if out, err := gitcli.Run(ctx, r.root, "config", "--get", "user.name"); err == nil {
			name = strings.TrimSpace(out.Stdout)
		}
	}
	if email == "" {
		if out, err := gitcli.Run(ctx, r.root, "config", "--get", "user.email"); err == nil {
			email = strings.TrimSpace(out.Stdout)
		}
	}

	return Author{Name: name, Email: email}, nil
}

// Head returns the current HEAD commit hash and, when on a branch, its
// short name.
func (r *Repo) Head() (hash string, branch string, detached bool, err error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", "", false, fmt.Errorf("resolving HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return ref.Hash().String(), "", true, nil
	}
	return ref.Hash().String(), ref.Name().Short(), false, nil
}

// CommitObject returns the parsed commit for the given hash string.
func (r *Repo) CommitObject(hash string) (*object.Commit, error) {
	h := plumbing.NewHash(hash)
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("resolving commit %s: %w", hash, err)
	}
	return c, nil
}

// MergeBase returns the merge-base commit hash of two refs (branch
// names, tags, or commit hashes).
func (r *Repo) MergeBase(a, b string) (string, error) {
	ca, err := r.resolveCommit(a)
	if err != nil {
		return "", err
	}
	cb, err := r.resolveCommit(b)
	if err != nil {
		return "", err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", fmt.Errorf("computing merge-base of %s and %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("no common ancestor between %s and %s", a, b)
	}
	return bases[0].Hash.String(), nil
}

func (r *Repo) resolveCommit(rev string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolving revision %s: %w", rev, err)
	}
	return r.repo.CommitObject(*hash)
}

// FileAtCommit returns the contents of path as recorded in commit.
// Returns (nil, false, nil) if the path did not exist in that commit.
func (r *Repo) FileAtCommit(commitHash, path string) ([]byte, bool, error) {
	c, err := r.CommitObject(commitHash)
	if err != nil {
		return nil, false, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, false, fmt.Errorf("loading tree for %s: %w", commitHash, err)
	}
	f, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading %s at %s: %w", path, commitHash, err)
	}
	rc, err := f.Reader()
	if err != nil {
		return nil, false, fmt.Errorf("reading %s at %s: %w", path, commitHash, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// StatusPorcelain shells out to `git status --porcelain` rather than
// using go-git's worktree status, which ignores core.excludesfile and
// produces false positives on globally-ignored files (the same
// rationale as the teacher's HasUncommittedChanges).
func (r *Repo) StatusPorcelain(ctx context.Context) (string, error) {
	out, err := gitcli.Run(ctx, r.root, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}

// HasUncommittedChanges reports whether the worktree has staged,
// unstaged, or untracked changes.
func (r *Repo) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := r.StatusPorcelain(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// ReadNote reads a git note attached to commitHash under the given
// notes ref. go-git has no notes API, so this shells out directly.
func (r *Repo) ReadNote(ctx context.Context, notesRef, commitHash string) (string, bool, error) {
	out, err := gitcli.Run(ctx, r.root, "notes", "--ref="+notesRef, "show", commitHash)
	if err != nil {
		var ext *giterrors.ExternalCommandFailed
		if errors.As(err, &ext) {
			return "", false, nil
		}
		return "", false, err
	}
	return out.Stdout, true, nil
}

// WriteNote creates or replaces the note on commitHash under
// notesRef, streaming content via stdin to avoid argv length limits.
func (r *Repo) WriteNote(ctx context.Context, notesRef, commitHash, content string) error {
	_, err := gitcli.RunStdin(ctx, r.root, strings.NewReader(content),
		"notes", "--ref="+notesRef, "add", "-f", "-F", "-", commitHash)
	return err
}

// BlameLine returns the commit hash that last touched line (1-based)
// of path as of HEAD. Shells out because go-git's blame implementation
// is substantially slower than the native one for large histories.
func (r *Repo) BlameLine(ctx context.Context, path string, line int) (string, error) {
	rng := fmt.Sprintf("%d,%d", line, line)
	out, err := gitcli.Run(ctx, r.root, "blame", "--porcelain", "-L", rng, "--", path)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out.Stdout)
	if len(fields) == 0 {
		return "", fmt.Errorf("blame produced no output for %s:%d", path, line)
	}
	return fields[0], nil
}

// BlameLineInfo is one line's attribution from a full-file blame.
type BlameLineInfo struct {
	CommitHash string
	AuthorName string
}

// BlameFile returns, for every line of path as it exists at rev, the
// commit hash and author name that last touched it. Shells out to
// `git blame --porcelain`, whose machine-readable per-line commit and
// "author " header fields are cheaper to parse in bulk than issuing
// one BlameLine call per line.
func (r *Repo) BlameFile(ctx context.Context, rev, path string) ([]BlameLineInfo, error) {
	out, err := gitcli.Run(ctx, r.root, "blame", "--porcelain", rev, "--", path)
	if err != nil {
		return nil, err
	}

	var result []BlameLineInfo
	authorByHash := make(map[string]string)
	var pendingHash string
	lines := strings.Split(out.Stdout, "\n")
	for _, line := range lines {
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "author "):
			if pendingHash != "" {
				authorByHash[pendingHash] = strings.TrimPrefix(line, "author ")
			}
		case isBlameHeaderLine(line):
			fields := strings.Fields(line)
			pendingHash = fields[0]
			result = append(result, BlameLineInfo{CommitHash: pendingHash})
		}
	}

	for i := range result {
		result[i].AuthorName = authorByHash[result[i].CommitHash]
	}
	return result, nil
}

// isBlameHeaderLine reports whether line starts a new porcelain blame
// record: a 40-char hex hash followed by the original/final line
// numbers and, for a first-seen commit, a group size.
func isBlameHeaderLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return false
	}
	hash := fields[0]
	if len(hash) != 40 {
		return false
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}

// DiffNameStatus returns the `git diff --name-status` lines between
// two commit-ish revisions.
func (r *Repo) DiffNameStatus(ctx context.Context, from, to string) (string, error) {
	out, err := gitcli.Run(ctx, r.root, "diff", "--name-status", from, to)
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}
