// Package hooks implements the hook dispatcher (spec §4.8 / C8): wrapper
// mode (a shadow git binary on PATH), hooks mode (a managed hooks
// directory git's own machinery invokes), and a "both" mode that
// suppresses wrapper-side handling for verbs git will hook natively, so
// the managed attribution logic runs exactly once per git invocation.
//
// Grounded on the teacher's cli/hooks.go, hook_registry.go, and
// hooks_git_cmd.go — the gitHookContext structured-logging wrapper and
// the per-hook dispatch-table idiom are carried over and generalized
// from the teacher's single fixed strategy to this spec's wrapper/hooks/
// both matrix.
package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateSchemaVersion is the on-disk schema tag for git_hooks_state.json
// (spec §6).
const StateSchemaVersion = "repo_hooks/2"

// State is the persisted record of a hooks-mode install (spec §6).
type State struct {
	SchemaVersion          string  `json:"schema_version"`
	ManagedHooksPath       string  `json:"managed_hooks_path"`
	OriginalLocalHooksPath *string `json:"original_local_hooks_path,omitempty"`
	ForwardMode            string  `json:"forward_mode"`
	ForwardHooksPath       string  `json:"forward_hooks_path,omitempty"`
	BinaryPath             string  `json:"binary_path"`
}

func statePath(aiDir string) string {
	return filepath.Join(aiDir, "git_hooks_state.json")
}

// LoadState returns (nil, false, nil) if hooks mode has never been
// installed.
func LoadState(aiDir string) (*State, bool, error) {
	data, err := os.ReadFile(statePath(aiDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading git_hooks_state.json: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, false, fmt.Errorf("parsing git_hooks_state.json: %w", err)
	}
	return &s, true, nil
}

// SaveState writes the hooks-mode state file atomically.
func SaveState(aiDir string, s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling git_hooks_state.json: %w", err)
	}
	if err := os.MkdirAll(aiDir, 0o750); err != nil {
		return fmt.Errorf("creating AI state directory: %w", err)
	}
	path := statePath(aiDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing git_hooks_state.json: %w", err)
	}
	return os.Rename(tmp, path)
}

// DeleteState removes the state file; a no-op if it does not exist.
func DeleteState(aiDir string) error {
	if err := os.Remove(statePath(aiDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing git_hooks_state.json: %w", err)
	}
	return nil
}
