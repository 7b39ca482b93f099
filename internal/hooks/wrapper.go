package hooks

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/git-ai/git-ai/internal/logging"
	"github.com/git-ai/git-ai/internal/workinglog"
)

// ExecWrapped runs one wrapper-mode invocation of the shadow `git`
// binary (spec §4.8 point 1): capture pre-mutation state, exec the real
// git with inherited stdio (so interactive commands like `commit` or
// `rebase -i` keep working), then run the matching post-handler. In
// "both" mode, wrapper-side handling is suppressed for verbs git itself
// hooks natively so the managed logic fires exactly once.
func (d *Dispatcher) ExecWrapped(ctx context.Context, argv []string) (exitCode int, err error) {
	verb := ClassifyVerb(argv)

	id, owns, err := d.Claim()
	if err != nil {
		return 1, err
	}
	if owns {
		defer func() {
			if relErr := d.Release(id); relErr != nil && err == nil {
				err = relErr
			}
		}()
	}

	suppressed := !owns || (d.Config != nil && d.Config.HookMode == "both" && NativelyHooked(verb))

	var preHead string
	if !suppressed && capturesPreState(verb) {
		preHead, _, _, _ = d.Repo.Head()
	}

	cmd := exec.CommandContext(ctx, "git", argv...)
	cmd.Dir = d.Repo.Root()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), markerEnvVar+"="+id)

	runErr := cmd.Run()
	exitCode = 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return 1, runErr
		}
	}

	if exitCode != 0 || suppressed {
		return exitCode, nil
	}

	if postErr := d.runWrapperPostHandler(ctx, verb, argv, preHead); postErr != nil {
		// Spec §7: hooks never cause git itself to fail; log and move on.
		logging.Warnf("post-command attribution update failed: %v", postErr)
	}
	return exitCode, nil
}

func (d *Dispatcher) runWrapperPostHandler(ctx context.Context, verb Verb, argv []string, preHead string) error {
	switch verb {
	case VerbCommit:
		newHead, _, _, err := d.Repo.Head()
		if err != nil {
			return err
		}
		if containsFlag(argv, "--amend") {
			return d.Engine.CommitAmend(ctx, preHead, newHead)
		}
		return d.Engine.Commit(ctx, preHead, newHead)

	case VerbReset:
		newHead, _, _, err := d.Repo.Head()
		if err != nil {
			return err
		}
		kind, keep, merge, pathspecs := parseResetArgs(argv)
		return d.Engine.Reset(ctx, kind, keep, merge, preHead, newHead, pathspecs)

	default:
		// Rebase/cherry-pick/merge/stash/checkout each need richer
		// context (per-commit pairs, stash refs) than a flat argv
		// reliably provides; their wrapper-mode handling is driven by
		// the CLI layer wiring the git-native hook scripts (post-merge,
		// post-rewrite, post-checkout) instead, even in wrapper mode, so
		// both modes share one implementation.
		return nil
	}
}

func containsFlag(argv []string, flag string) bool {
	for _, a := range argv {
		if a == flag {
			return true
		}
	}
	return false
}

// parseResetArgs extracts the reset flavor, keep/merge flags, and any
// pathspecs following "--" from a `git reset` argv. The single
// non-flag argument before "--" (if any) is the target revision, not a
// pathspec, and is intentionally discarded here since the caller reads
// the post-reset HEAD directly; a bare `git reset -- <paths>` with no
// "--" separator (relying on git's own heuristic disambiguation) is not
// distinguished from a target revision, a known limitation of this
// flat-argv classification.
func parseResetArgs(argv []string) (kindOut workinglog.ResetKind, keep, merge bool, pathspecs []string) {
	kindOut = workinglog.ResetMixed
	afterDashDash := false
	sawRev := false
	for _, a := range argv[1:] {
		if afterDashDash {
			pathspecs = append(pathspecs, a)
			continue
		}
		switch {
		case a == "--":
			afterDashDash = true
		case a == "--hard":
			kindOut = workinglog.ResetHard
		case a == "--soft":
			kindOut = workinglog.ResetSoft
		case a == "--mixed":
			kindOut = workinglog.ResetMixed
		case a == "--keep":
			keep = true
		case a == "--merge":
			merge = true
		case strings.HasPrefix(a, "-"):
			// ignore other flags
		case !sawRev:
			sawRev = true
		}
	}
	return kindOut, keep, merge, pathspecs
}
