package hooks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-ai/git-ai/internal/gitcli"
	"github.com/git-ai/git-ai/internal/paths"
)

// pendingCommit bridges prepare-commit-msg and post-commit: git does
// not tell post-commit whether the commit was an amend, so
// HandlePrepareCommitMsg records the decision for HandlePostCommit to
// consume.
type pendingCommit struct {
	Amend       bool   `json:"amend"`
	OriginalSHA string `json:"original_sha,omitempty"`
	ParentSHA   string `json:"parent_sha"`
}

func (d *Dispatcher) pendingCommitPath() string {
	return filepath.Join(d.markerDir(), "pending_commit.json")
}

func (d *Dispatcher) writePendingCommit(pc pendingCommit) error {
	data, err := json.Marshal(pc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.markerDir(), 0o750); err != nil {
		return err
	}
	path := d.pendingCommitPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (d *Dispatcher) readPendingCommit() (pendingCommit, bool, error) {
	data, err := os.ReadFile(d.pendingCommitPath())
	if err != nil {
		if os.IsNotExist(err) {
			return pendingCommit{}, false, nil
		}
		return pendingCommit{}, false, err
	}
	var pc pendingCommit
	if err := json.Unmarshal(data, &pc); err != nil {
		return pendingCommit{}, false, err
	}
	return pc, true, nil
}

func (d *Dispatcher) removePendingCommit() error {
	if err := os.Remove(d.pendingCommitPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HandlePrepareCommitMsg runs as git's prepare-commit-msg hook
// (args: <msg-file> [source] [sha]). source is "commit" with a sha when
// the user ran `commit --amend`.
func (d *Dispatcher) HandlePrepareCommitMsg(ctx context.Context, source, sha string) error {
	parent, _, _, err := d.Repo.Head()
	if err != nil {
		parent = "" // root commit: no prior HEAD to read
	}
	return d.writePendingCommit(pendingCommit{
		Amend:       source == "commit" && sha != "",
		OriginalSHA: parent,
		ParentSHA:   parent,
	})
}

// HandlePostCommit runs as git's post-commit hook (no arguments; the new
// commit is already HEAD).
func (d *Dispatcher) HandlePostCommit(ctx context.Context) error {
	newHead, _, _, err := d.Repo.Head()
	if err != nil {
		return err
	}
	pc, ok, err := d.readPendingCommit()
	if err != nil {
		return err
	}
	_ = d.removePendingCommit()

	if !ok {
		return d.Engine.Commit(ctx, "", newHead)
	}
	if pc.Amend {
		return d.Engine.CommitAmend(ctx, pc.OriginalSHA, newHead)
	}
	return d.Engine.Commit(ctx, pc.ParentSHA, newHead)
}

// HandlePostCheckout runs as git's post-checkout hook
// (args: <old-head> <new-head> <is-branch-checkout 0|1>).
func (d *Dispatcher) HandlePostCheckout(ctx context.Context, oldHead, newHead string, branchCheckout bool) error {
	if !branchCheckout {
		// File-level checkout of a pathspec: HEAD did not move, so there
		// is no working-log directory to migrate.
		return nil
	}
	return d.Engine.CheckoutSwitch(ctx, oldHead, newHead, false, nil, false)
}

// HandlePostMerge runs as git's post-merge hook (args: <is-squash 0|1>).
// A squash merge is handled by the explicit CLI squash path instead,
// since post-merge fires for both and carries no commit SHA for squash
// (no merge commit is made).
func (d *Dispatcher) HandlePostMerge(ctx context.Context, isSquash bool) error {
	if isSquash {
		return nil
	}
	newHead, _, _, err := d.Repo.Head()
	if err != nil {
		return err
	}
	targetBranch := d.currentBranchName(ctx)
	return d.Engine.Merge(ctx, "", targetBranch, &newHead, true, nil)
}

func (d *Dispatcher) currentBranchName(ctx context.Context) string {
	out, err := gitcli.Run(ctx, d.Repo.Root(), "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out.Stdout)
}

// rewritePair is one "<old-sha> <new-sha>[ <extra>]" line from
// post-rewrite's stdin.
type rewritePair struct {
	Old string
	New string
}

func parseRewritePairs(r io.Reader) ([]rewritePair, error) {
	var pairs []rewritePair
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		pairs = append(pairs, rewritePair{Old: fields[0], New: fields[1]})
	}
	return pairs, scanner.Err()
}

// HandlePostRewrite runs as git's post-rewrite hook
// (args: <command, "amend" or "rebase">; stdin: old-sha new-sha pairs).
// Non-interactive rebase pair data arrives here, but an interactive
// rebase's original/new commit correlation (including folded and
// dropped commits) is driven by the CLI layer's explicit RebaseComplete
// call instead, since post-rewrite alone cannot distinguish a fold from
// a 1:1 replay.
func (d *Dispatcher) HandlePostRewrite(ctx context.Context, command string, stdin io.Reader) error {
	if command != "amend" {
		return nil
	}
	pairs, err := parseRewritePairs(stdin)
	if err != nil {
		return fmt.Errorf("parsing post-rewrite stdin: %w", err)
	}
	for _, p := range pairs {
		if err := d.Engine.CommitAmend(ctx, p.Old, p.New); err != nil {
			return err
		}
	}
	return nil
}

// prePushRef is one "<local-ref> <local-sha> <remote-ref> <remote-sha>"
// line from pre-push's stdin.
type prePushRef struct {
	LocalSHA string
}

func parsePrePushRefs(r io.Reader) ([]prePushRef, error) {
	var refs []prePushRef
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		refs = append(refs, prePushRef{LocalSHA: fields[1]})
	}
	return refs, scanner.Err()
}

// HandlePrePush runs as git's pre-push hook (args: <remote-name>
// <remote-url>; stdin: ref update lines). It pushes the authorship-log
// notes namespace alongside the user's push and records a sync event
// (spec §4.7 "AuthorshipLogsSynced ... on successful push/fetch").
func (d *Dispatcher) HandlePrePush(ctx context.Context, remote string, stdin io.Reader) error {
	refs, err := parsePrePushRefs(stdin)
	if err != nil {
		return fmt.Errorf("parsing pre-push stdin: %w", err)
	}
	if len(refs) == 0 {
		return nil
	}

	if _, err := gitcli.Run(ctx, d.Repo.Root(), "push", remote, paths.NotesRef); err != nil {
		// Spec §7 PersistenceFailure policy: log and do not block the push.
		return fmt.Errorf("pushing authorship notes: %w", err)
	}

	synced := make([]string, 0, len(refs))
	for _, r := range refs {
		synced = append(synced, r.LocalSHA)
	}
	headSHA, _, _, err := d.Repo.Head()
	if err != nil {
		return err
	}
	return d.Engine.SyncAuthorshipLogs(ctx, headSHA, synced, []string{remote})
}
