package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/git-ai/git-ai/internal/gitcli"
	"github.com/git-ai/git-ai/internal/gitrepo"
)

// managedHookNames are the git-native hooks the managed directory
// redirects to the dispatcher (spec §4.8 point 2: "just the verbs git
// natively exposes").
var managedHookNames = []string{
	"prepare-commit-msg",
	"post-commit",
	"post-checkout",
	"post-merge",
	"post-rewrite",
	"pre-push",
}

const managedHooksDirName = "hooks"

func managedHooksDir(aiDir string) string {
	return filepath.Join(aiDir, managedHooksDirName)
}

// InstallHooks writes the managed hooks directory, points the
// repository's core.hooksPath at it, and records the previous
// core.hooksPath (if any) so UninstallHooks can restore it. mode is the
// configured hook_mode ("hooks" or "both"); wrapper-only mode does not
// touch the repository's hooks directory at all.
func InstallHooks(ctx context.Context, repo *gitrepo.Repo, aiDir, binaryPath, mode string) error {
	if mode != "hooks" && mode != "both" {
		return SaveState(aiDir, &State{
			SchemaVersion: StateSchemaVersion,
			ForwardMode:   mode,
			BinaryPath:    binaryPath,
		})
	}

	dir := managedHooksDir(aiDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating managed hooks directory: %w", err)
	}
	for _, name := range managedHookNames {
		if err := writeManagedHookScript(dir, name, binaryPath); err != nil {
			return err
		}
	}

	var original *string
	out, err := gitcli.Run(ctx, repo.Root(), "config", "--get", "core.hooksPath")
	if err == nil {
		path := strings.TrimSpace(out.Stdout)
		if path != "" && path != dir {
			original = &path
		}
	}

	if _, err := gitcli.Run(ctx, repo.Root(), "config", "core.hooksPath", dir); err != nil {
		return fmt.Errorf("setting core.hooksPath: %w", err)
	}

	state := &State{
		SchemaVersion:          StateSchemaVersion,
		ManagedHooksPath:       dir,
		OriginalLocalHooksPath: original,
		ForwardMode:            mode,
		BinaryPath:             binaryPath,
	}
	if original != nil {
		state.ForwardHooksPath = *original
	}
	return SaveState(aiDir, state)
}

// UninstallHooks restores the repository's original core.hooksPath (or
// unsets it if there was none), removes the managed directory, and
// deletes the state file.
func UninstallHooks(ctx context.Context, repo *gitrepo.Repo, aiDir string) error {
	state, ok, err := LoadState(aiDir)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if state.ManagedHooksPath != "" {
		if state.OriginalLocalHooksPath != nil {
			if _, err := gitcli.Run(ctx, repo.Root(), "config", "core.hooksPath", *state.OriginalLocalHooksPath); err != nil {
				return fmt.Errorf("restoring core.hooksPath: %w", err)
			}
		} else {
			if _, err := gitcli.Run(ctx, repo.Root(), "config", "--unset", "core.hooksPath"); err != nil && !isUnsetOfMissingKey(err) {
				return fmt.Errorf("unsetting core.hooksPath: %w", err)
			}
		}
		if err := os.RemoveAll(state.ManagedHooksPath); err != nil {
			return fmt.Errorf("removing managed hooks directory: %w", err)
		}
	}

	return DeleteState(aiDir)
}

func isUnsetOfMissingKey(err error) bool {
	// `git config --unset` exits 5 when the key was never set; treat as
	// success since the end state (no core.hooksPath) is what we want.
	return strings.Contains(err.Error(), "exit 5")
}

func writeManagedHookScript(dir, name, binaryPath string) error {
	script := fmt.Sprintf("#!/bin/sh\nexec %s hooks git %s \"$@\"\n", shellQuote(binaryPath), name)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil {
		return fmt.Errorf("writing managed hook %s: %w", name, err)
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
