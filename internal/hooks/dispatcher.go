package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/git-ai/git-ai/internal/config"
	"github.com/git-ai/git-ai/internal/gitrepo"
	"github.com/git-ai/git-ai/internal/rewrite"
)

// Dispatcher routes git verbs to the rewrite engine, in either wrapper
// mode (ExecWrapped) or hooks mode (the Handle* methods, called by the
// managed hook scripts' `gitai hooks git <name>` subcommands).
type Dispatcher struct {
	Repo   *gitrepo.Repo
	AIDir  string
	Engine *rewrite.Engine
	Config *config.Config
}

// New constructs a Dispatcher.
func New(repo *gitrepo.Repo, aiDir string, engine *rewrite.Engine, cfg *config.Config) *Dispatcher {
	return &Dispatcher{Repo: repo, AIDir: aiDir, Engine: engine, Config: cfg}
}

// markerEnvVar carries the dispatcher's invocation ID to child
// processes, so a git hook invoked by a git subprocess the wrapper
// itself launched can recognise it is a duplicate entry within the same
// PID-ancestry rather than a fresh top-level invocation.
const markerEnvVar = "GITAI_HOOK_INVOCATION_ID"

func (d *Dispatcher) markerDir() string {
	return filepath.Join(d.AIDir, "hook_markers")
}

// Claim enforces the per-invocation idempotency marker (spec §4.8): a
// duplicate entry into the dispatcher within the same PID-ancestry,
// identified by an invocation ID propagated through the environment, is
// a no-op. It returns the ID to export to the child process (so nested
// git invocations inherit it) and whether this call is the one that
// owns running the pre/post handlers.
func (d *Dispatcher) Claim() (id string, owns bool, err error) {
	id = os.Getenv(markerEnvVar)
	if id == "" {
		id = uuid.NewString()
	}

	dir := d.markerDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return id, false, fmt.Errorf("creating hook marker directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return id, false, nil
		}
		return id, false, fmt.Errorf("claiming hook marker: %w", err)
	}
	_ = f.Close()
	return id, true, nil
}

// Release removes the marker created by a prior Claim.
func (d *Dispatcher) Release(id string) error {
	err := os.Remove(filepath.Join(d.markerDir(), id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing hook marker: %w", err)
	}
	return nil
}

// Verb is the git subcommand the dispatcher cares about for attribution
// handling.
type Verb string

const (
	VerbCommit     Verb = "commit"
	VerbReset      Verb = "reset"
	VerbRebase     Verb = "rebase"
	VerbCherryPick Verb = "cherry-pick"
	VerbMerge      Verb = "merge"
	VerbStash      Verb = "stash"
	VerbCheckout   Verb = "checkout"
	VerbSwitch     Verb = "switch"
	VerbPush       Verb = "push"
	VerbFetch      Verb = "fetch"
	VerbOther      Verb = ""
)

// ClassifyVerb returns the first non-flag argument of a git invocation
// that names a verb the dispatcher handles, or VerbOther.
func ClassifyVerb(argv []string) Verb {
	for _, a := range argv {
		if strings.HasPrefix(a, "-") {
			continue
		}
		switch Verb(a) {
		case VerbCommit, VerbReset, VerbRebase, VerbCherryPick, VerbMerge, VerbStash, VerbCheckout, VerbSwitch, VerbPush, VerbFetch:
			return Verb(a)
		}
		return VerbOther
	}
	return VerbOther
}

// NativelyHooked reports whether git itself invokes a hook script for
// verb, so "both" mode must suppress wrapper-side handling to preserve
// the single-fire invariant (spec §4.8 point 3).
func NativelyHooked(v Verb) bool {
	switch v {
	case VerbCommit, VerbCheckout, VerbSwitch, VerbMerge, VerbPush:
		return true
	default:
		return false
	}
}

// capturesPreState reports whether verb needs HEAD captured before git
// mutates it, so a post-hook still sees the pre-mutation state (spec
// §4.8: "captures pre_command_base_commit = HEAD for reset/amend/
// rebase/cherry-pick/merge").
func capturesPreState(v Verb) bool {
	switch v {
	case VerbReset, VerbCommit, VerbRebase, VerbCherryPick, VerbMerge:
		return true
	default:
		return false
	}
}
