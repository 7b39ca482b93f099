// Package paths resolves the repo-local AI state directory layout
// described in spec §6.
package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/git-ai/git-ai/internal/giterrors"
)

// AIDir is the repo-local directory holding all git-ai state.
const AIDir = ".git-ai"

// WorkingLogsDir holds per-HEAD working log directories.
const WorkingLogsDir = "working_logs"

// RewriteLogFile is the bounded rewrite journal, shared across HEADs.
const RewriteLogFile = "rewrite_log"

// HooksStateFile records the hooks-mode install state (spec §6).
const HooksStateFile = "git_hooks_state.json"

// CherryPickBatchStateFile exists only between CherryPickStart and
// CherryPickComplete/Abort.
const CherryPickBatchStateFile = "cherry_pick_batch_state.json"

// PromptsDBFile is the internal SQLite prompt store (C10).
const PromptsDBFile = "prompts.db"

// CheckpointsFile and InitialAttributionsFile are per-HEAD working log
// files (spec §3 WorkingLog).
const (
	CheckpointsFile         = "checkpoints.jsonl"
	InitialAttributionsFile = "initial_attributions.json"
	ConfigFile              = "config.json"
	ConfigLocalFile         = "config.local.json"
	NotesRef                = "refs/notes/git-ai/authorship/v1"
)

var (
	repoRootCache   string
	repoRootCacheMu sync.RWMutex
	repoRootCwd     string
)

// RepoRoot returns the absolute path to the repository's top-level
// working directory, using `git rev-parse --show-toplevel`. Cached per
// working directory.
func RepoRoot() (string, error) {
	cwd, err := osGetwd()
	if err != nil {
		return "", err
	}

	repoRootCacheMu.RLock()
	if repoRootCwd == cwd && repoRootCache != "" {
		defer repoRootCacheMu.RUnlock()
		return repoRootCache, nil
	}
	repoRootCacheMu.RUnlock()

	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", &giterrors.RepoNotFound{Dir: cwd}
	}
	root := strings.TrimSpace(string(out))

	repoRootCacheMu.Lock()
	repoRootCache = root
	repoRootCwd = cwd
	repoRootCacheMu.Unlock()

	return root, nil
}

// ResetCache clears the cached repo root. Used by tests that chdir.
func ResetCache() {
	repoRootCacheMu.Lock()
	defer repoRootCacheMu.Unlock()
	repoRootCache = ""
	repoRootCwd = ""
}

// AIDirPath returns <repoRoot>/.git-ai.
func AIDirPath() (string, error) {
	root, err := RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, AIDir), nil
}

// WorkingLogDir returns <repoRoot>/.git-ai/working_logs/<headSHA>.
func WorkingLogDir(headSHA string) (string, error) {
	dir, err := AIDirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, WorkingLogsDir, headSHA), nil
}

var osGetwd = os.Getwd
