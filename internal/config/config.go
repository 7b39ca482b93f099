// Package config loads git-ai's configuration (spec §9): a struct with
// sane defaults, merged from <AIDir>/config.json and an optional
// <AIDir>/config.local.json override layer, following the teacher's
// settings.go two-file load-and-merge idiom.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the recognised options from spec §9.
type Config struct {
	MoveDetectionMinBlock      int      `json:"move_detection_min_block"`
	MaxPathspecArgs            int      `json:"max_pathspec_args"`
	MaxRewriteLogEvents        int      `json:"max_rewrite_log_events"`
	ExcludePromptsInRepos      []string `json:"exclude_prompts_in_repositories,omitempty"`
	Ignore                     []string `json:"ignore,omitempty"`
	LogLevel                   string   `json:"log_level,omitempty"`
	HookMode                   string   `json:"hook_mode,omitempty"` // "wrapper", "hooks", "both"
	DiffSizeBudgetBytes        int      `json:"diff_size_budget_bytes,omitempty"`
	RenameDetectionSizeBudget  int      `json:"rename_detection_size_budget,omitempty"`

	// Unrecognized records unknown top-level keys encountered while
	// loading, so callers can warn without failing (spec §9: "unknown
	// keys are warnings, not errors").
	Unrecognized []string `json:"-"`
}

// Default returns a Config populated with spec-mandated defaults.
func Default() *Config {
	return &Config{
		MoveDetectionMinBlock:     3,
		MaxPathspecArgs:           100,
		MaxRewriteLogEvents:       200,
		LogLevel:                  "info",
		HookMode:                  "hooks",
		DiffSizeBudgetBytes:       5 * 1024 * 1024,
		RenameDetectionSizeBudget: 2 * 1024 * 1024,
	}
}

var recognizedKeys = map[string]bool{
	"move_detection_min_block":     true,
	"max_pathspec_args":            true,
	"max_rewrite_log_events":       true,
	"exclude_prompts_in_repositories": true,
	"ignore":                        true,
	"log_level":                     true,
	"hook_mode":                     true,
	"diff_size_budget_bytes":        true,
	"rename_detection_size_budget":  true,
}

// Load reads <aiDir>/config.json then merges <aiDir>/config.local.json
// on top. Missing files are not errors; defaults are used instead.
func Load(aiDir string) (*Config, error) {
	cfg := Default()

	if err := mergeFile(cfg, filepath.Join(aiDir, "config.json")); err != nil {
		return nil, err
	}
	if err := mergeFile(cfg, filepath.Join(aiDir, "config.local.json")); err != nil {
		return nil, err
	}

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	for key := range raw {
		if !recognizedKeys[key] {
			cfg.Unrecognized = append(cfg.Unrecognized, key)
		}
	}

	// json.Unmarshal onto an already-populated struct only overwrites
	// fields present in the payload, which gives us the override-only
	// merge semantics without hand-rolled field-by-field copying.
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("merging config file %s: %w", path, err)
	}

	return nil
}
