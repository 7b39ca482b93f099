package workinglog

// RewriteEvent is the rewrite-journal sum type (spec §3 RewriteEvent),
// ported from the reference implementation's rewrite_log.rs. Each
// variant is an optional pointer field; Go's `omitempty` on a struct of
// all-optional pointers reproduces serde's `#[serde(untagged)]`
// single-key-wrapper shape (`{"commit_amend": {...}}`) without a custom
// marshaler, since exactly one field is ever non-nil.
type RewriteEvent struct {
	Merge                *MergeEvent                `json:"merge,omitempty"`
	MergeSquash          *MergeSquashEvent           `json:"merge_squash,omitempty"`
	RebaseStart          *RebaseStartEvent           `json:"rebase_start,omitempty"`
	RebaseComplete       *RebaseCompleteEvent        `json:"rebase_complete,omitempty"`
	RebaseAbort          *RebaseAbortEvent           `json:"rebase_abort,omitempty"`
	CherryPickStart      *CherryPickStartEvent       `json:"cherry_pick_start,omitempty"`
	CherryPickComplete   *CherryPickCompleteEvent    `json:"cherry_pick_complete,omitempty"`
	CherryPickAbort      *CherryPickAbortEvent       `json:"cherry_pick_abort,omitempty"`
	Reset                *ResetEvent                 `json:"reset,omitempty"`
	CommitAmend          *CommitAmendEvent           `json:"commit_amend,omitempty"`
	Commit               *CommitEvent                `json:"commit,omitempty"`
	Stash                *StashEvent                 `json:"stash,omitempty"`
	AuthorshipLogsSynced *AuthorshipLogsSyncedEvent  `json:"authorship_logs_synced,omitempty"`
}

type MergeEvent struct {
	SourceBranch   string   `json:"source_branch"`
	TargetBranch   string   `json:"target_branch"`
	MergeCommitSHA *string  `json:"merge_commit_sha,omitempty"`
	Success        bool     `json:"success"`
	Conflicts      []string `json:"conflicts"`
}

type MergeSquashEvent struct {
	SourceBranch string `json:"source_branch"`
	SourceHead   string `json:"source_head"`
	BaseBranch   string `json:"base_branch"`
	BaseHead     string `json:"base_head"`
}

type RebaseStartEvent struct {
	OriginalHead  string  `json:"original_head"`
	IsInteractive bool    `json:"is_interactive"`
	OntoHead      *string `json:"onto_head,omitempty"`
}

type RebaseCompleteEvent struct {
	OriginalHead     string   `json:"original_head"`
	NewHead          string   `json:"new_head"`
	IsInteractive    bool     `json:"is_interactive"`
	OriginalCommits  []string `json:"original_commits"`
	NewCommits       []string `json:"new_commits"`
}

type RebaseAbortEvent struct {
	OriginalHead string `json:"original_head"`
}

type CherryPickStartEvent struct {
	OriginalHead  string   `json:"original_head"`
	SourceCommits []string `json:"source_commits"`
}

type CherryPickCompleteEvent struct {
	OriginalHead  string   `json:"original_head"`
	NewHead       string   `json:"new_head"`
	SourceCommits []string `json:"source_commits"`
	NewCommits    []string `json:"new_commits"`
}

type CherryPickAbortEvent struct {
	OriginalHead string `json:"original_head"`
}

// ResetKind is the flavor of `git reset` (spec §4.7). Merge (--merge) is
// tracked via the Merge field on ResetEvent since the original's kind
// enum is Hard/Soft/Mixed with separate keep/merge booleans.
type ResetKind string

const (
	ResetHard  ResetKind = "hard"
	ResetSoft  ResetKind = "soft"
	ResetMixed ResetKind = "mixed"
)

type ResetEvent struct {
	Kind       ResetKind `json:"kind"`
	Keep       bool      `json:"keep"`
	Merge      bool      `json:"merge"`
	NewHeadSHA string    `json:"new_head_sha"`
	OldHeadSHA string    `json:"old_head_sha"`
}

type CommitAmendEvent struct {
	OriginalCommit    string `json:"original_commit"`
	AmendedCommitSHA  string `json:"amended_commit_sha"`
}

type CommitEvent struct {
	BaseCommit *string `json:"base_commit,omitempty"`
	CommitSHA  string  `json:"commit_sha"`
}

// StashOperation is the flavor of stash activity recorded.
type StashOperation string

const (
	StashCreate StashOperation = "create"
	StashApply  StashOperation = "apply"
	StashPop    StashOperation = "pop"
	StashDrop   StashOperation = "drop"
	StashList   StashOperation = "list"
)

type StashEvent struct {
	Operation      StashOperation `json:"operation"`
	StashRef       *string        `json:"stash_ref,omitempty"`
	Success        bool           `json:"success"`
	AffectedFiles  []string       `json:"affected_files"`
}

type AuthorshipLogsSyncedEvent struct {
	Synced    []string `json:"synced"`
	Origin    []string `json:"origin"`
	Timestamp int64    `json:"timestamp"`
}

// Constructors mirroring the reference implementation's RewriteLogEvent
// factory methods, for call-site clarity.

func NewMergeEvent(sourceBranch, targetBranch string, mergeCommitSHA *string, success bool, conflicts []string) RewriteEvent {
	return RewriteEvent{Merge: &MergeEvent{
		SourceBranch: sourceBranch, TargetBranch: targetBranch, MergeCommitSHA: mergeCommitSHA, Success: success, Conflicts: conflicts,
	}}
}

func NewAuthorshipLogsSyncedEvent(synced, origin []string, timestamp int64) RewriteEvent {
	return RewriteEvent{AuthorshipLogsSynced: &AuthorshipLogsSyncedEvent{Synced: synced, Origin: origin, Timestamp: timestamp}}
}

func NewCommitEvent(baseCommit *string, commitSHA string) RewriteEvent {
	return RewriteEvent{Commit: &CommitEvent{BaseCommit: baseCommit, CommitSHA: commitSHA}}
}

func NewCommitAmendEvent(originalCommit, amendedCommitSHA string) RewriteEvent {
	return RewriteEvent{CommitAmend: &CommitAmendEvent{OriginalCommit: originalCommit, AmendedCommitSHA: amendedCommitSHA}}
}

func NewCherryPickStartEvent(originalHead string, sourceCommits []string) RewriteEvent {
	return RewriteEvent{CherryPickStart: &CherryPickStartEvent{OriginalHead: originalHead, SourceCommits: sourceCommits}}
}

func NewCherryPickCompleteEvent(originalHead, newHead string, sourceCommits, newCommits []string) RewriteEvent {
	return RewriteEvent{CherryPickComplete: &CherryPickCompleteEvent{
		OriginalHead: originalHead, NewHead: newHead, SourceCommits: sourceCommits, NewCommits: newCommits,
	}}
}

func NewCherryPickAbortEvent(originalHead string) RewriteEvent {
	return RewriteEvent{CherryPickAbort: &CherryPickAbortEvent{OriginalHead: originalHead}}
}

func NewRebaseStartEvent(originalHead string, isInteractive bool, ontoHead *string) RewriteEvent {
	return RewriteEvent{RebaseStart: &RebaseStartEvent{OriginalHead: originalHead, IsInteractive: isInteractive, OntoHead: ontoHead}}
}

func NewRebaseCompleteEvent(originalHead, newHead string, isInteractive bool, originalCommits, newCommits []string) RewriteEvent {
	return RewriteEvent{RebaseComplete: &RebaseCompleteEvent{
		OriginalHead: originalHead, NewHead: newHead, IsInteractive: isInteractive,
		OriginalCommits: originalCommits, NewCommits: newCommits,
	}}
}

func NewRebaseAbortEvent(originalHead string) RewriteEvent {
	return RewriteEvent{RebaseAbort: &RebaseAbortEvent{OriginalHead: originalHead}}
}

func NewMergeSquashEvent(sourceBranch, sourceHead, baseBranch, baseHead string) RewriteEvent {
	return RewriteEvent{MergeSquash: &MergeSquashEvent{
		SourceBranch: sourceBranch, SourceHead: sourceHead, BaseBranch: baseBranch, BaseHead: baseHead,
	}}
}

func NewResetEvent(kind ResetKind, keep, merge bool, newHeadSHA, oldHeadSHA string) RewriteEvent {
	return RewriteEvent{Reset: &ResetEvent{Kind: kind, Keep: keep, Merge: merge, NewHeadSHA: newHeadSHA, OldHeadSHA: oldHeadSHA}}
}

func NewStashEvent(op StashOperation, stashRef *string, success bool, affectedFiles []string) RewriteEvent {
	return RewriteEvent{Stash: &StashEvent{Operation: op, StashRef: stashRef, Success: success, AffectedFiles: affectedFiles}}
}
