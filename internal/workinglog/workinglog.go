// Package workinglog implements the per-HEAD working log (spec §4.4 /
// C4): an append-only checkpoint stream, a once-only initial
// attributions snapshot, and a bounded, newest-first rewrite journal.
// The atomic-write-then-rename idiom is grounded on the teacher's
// session/state.go Save; the JSONL shape and the rewrite journal's
// prepend/trim/skip-malformed behaviour are ported from the reference
// implementation's rewrite_log.rs.
package workinglog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
)

// MaxRewriteLogEvents is the default bound on rewrite_log; callers may
// pass a different limit sourced from config.
const MaxRewriteLogEvents = 200

// CheckpointKind is the Checkpoint sum type's tag (spec §3).
type CheckpointKind string

const (
	Human   CheckpointKind = "human"
	AiAgent CheckpointKind = "ai_agent"
	AiTab   CheckpointKind = "ai_tab"
)

// LineStats summarizes a checkpoint's (or a file's) line changes
// relative to the previous checkpoint.
type LineStats struct {
	Additions      int `json:"additions"`
	Deletions      int `json:"deletions"`
	AdditionsSloc  int `json:"additions_sloc"`
	DeletionsSloc  int `json:"deletions_sloc"`
}

// CheckpointEntry is one file's attribution state within a checkpoint.
type CheckpointEntry struct {
	FilePath     string           `json:"file_path"`
	Attributions attribution.List `json:"attributions"`
	LineStats
}

// Checkpoint is one append-only record of working-tree state (spec
// §3). A checkpoint must not mention files whose attribution it does
// not intend to change — append_checkpoint never synthesizes entries
// for untouched files.
type Checkpoint struct {
	Kind          CheckpointKind  `json:"kind"`
	Timestamp     time.Time       `json:"timestamp"`
	AgentID       string          `json:"agent_id,omitempty"`
	AgentMetadata json.RawMessage `json:"agent_metadata,omitempty"`
	LineStats     LineStats       `json:"line_stats"`
	Entries       []CheckpointEntry `json:"entries"`
}

// InitialAttributions seeds files that have no prior blame (spec §3).
type InitialAttributions struct {
	Files   map[string]attribution.List           `json:"files"`
	Prompts map[authormodel.AttributionID]authormodel.PromptRecord `json:"prompts"`
}

// WorkingLog is a handle on one HEAD's on-disk state. Obtaining a
// handle does no I/O (spec §4.4 for_base_commit).
type WorkingLog struct {
	dir string
}

// ForBaseCommit returns a handle keyed to headSHA under aiDir
// (<aiDir>/working_logs/<headSHA>).
func ForBaseCommit(aiDir, headSHA string) *WorkingLog {
	return &WorkingLog{dir: filepath.Join(aiDir, "working_logs", headSHA)}
}

func (w *WorkingLog) checkpointsPath() string { return filepath.Join(w.dir, "checkpoints.jsonl") }
func (w *WorkingLog) initialAttrPath() string { return filepath.Join(w.dir, "initial_attributions.json") }
func (w *WorkingLog) rewriteLogPath() string  { return filepath.Join(w.dir, "rewrite_log") }

// AppendCheckpoint fsync-safe appends cp to checkpoints.jsonl.
func (w *WorkingLog) AppendCheckpoint(cp Checkpoint) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating working log directory: %w", err)
	}

	line, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}

	f, err := os.OpenFile(w.checkpointsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening checkpoints.jsonl: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending checkpoint: %w", err)
	}
	return f.Sync()
}

// ReadAllCheckpoints returns every checkpoint in append order.
func (w *WorkingLog) ReadAllCheckpoints() ([]Checkpoint, error) {
	f, err := os.Open(w.checkpointsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening checkpoints.jsonl: %w", err)
	}
	defer f.Close()

	var checkpoints []Checkpoint
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal([]byte(line), &cp); err != nil {
			return nil, fmt.Errorf("parsing checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checkpoints.jsonl: %w", err)
	}
	return checkpoints, nil
}

// ReadInitialAttributions returns the empty value if none was ever
// written.
func (w *WorkingLog) ReadInitialAttributions() (InitialAttributions, error) {
	data, err := os.ReadFile(w.initialAttrPath())
	if err != nil {
		if os.IsNotExist(err) {
			return InitialAttributions{Files: map[string]attribution.List{}, Prompts: map[authormodel.AttributionID]authormodel.PromptRecord{}}, nil
		}
		return InitialAttributions{}, fmt.Errorf("reading initial_attributions.json: %w", err)
	}
	var ia InitialAttributions
	if err := json.Unmarshal(data, &ia); err != nil {
		return InitialAttributions{}, fmt.Errorf("parsing initial_attributions.json: %w", err)
	}
	if ia.Files == nil {
		ia.Files = map[string]attribution.List{}
	}
	if ia.Prompts == nil {
		ia.Prompts = map[authormodel.AttributionID]authormodel.PromptRecord{}
	}
	return ia, nil
}

// WriteInitialAttributions overwrites initial_attributions.json
// atomically. Callers must only do this before the referenced files
// first appear in a checkpoint (spec §4.4).
func (w *WorkingLog) WriteInitialAttributions(ia InitialAttributions) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating working log directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ia); err != nil {
		return fmt.Errorf("marshaling initial attributions: %w", err)
	}

	path := w.initialAttrPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing initial attributions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming initial attributions: %w", err)
	}
	return nil
}

// ResetWorkingLog deletes all state for this HEAD (used by `reset
// --hard` and similar destructive rewrite handlers).
func (w *WorkingLog) ResetWorkingLog() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("removing working log %s: %w", w.dir, err)
	}
	return nil
}

// DeleteWorkingLogForBaseCommit removes the on-disk state for a
// specific HEAD SHA, by constructing the handle for it first.
func DeleteWorkingLogForBaseCommit(aiDir, headSHA string) error {
	return ForBaseCommit(aiDir, headSHA).ResetWorkingLog()
}

// AppendRewriteEvent prepends ev to rewrite_log and trims to maxEvents
// (spec §4.4: newest-first, bounded, skip malformed on read).
func (w *WorkingLog) AppendRewriteEvent(ev RewriteEvent, maxEvents int) error {
	if maxEvents <= 0 {
		maxEvents = MaxRewriteLogEvents
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("creating working log directory: %w", err)
	}

	existing, err := w.ReadRewriteLog(maxEvents)
	if err != nil {
		return err
	}

	events := append([]RewriteEvent{ev}, existing...)
	if len(events) > maxEvents {
		events = events[:maxEvents]
	}

	var lines []string
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling rewrite event: %w", err)
		}
		lines = append(lines, string(data))
	}
	content := strings.Join(lines, "\n") + "\n"

	path := w.rewriteLogPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing rewrite log: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming rewrite log: %w", err)
	}
	return nil
}

// ReadRewriteLog returns the rewrite_log entries, newest-first,
// skipping any line that fails to parse (a forward-compatibility
// concession from the original rewrite_log.rs: old-format lines from a
// prior schema version are dropped rather than failing the read), and
// trimmed to maxEvents.
func (w *WorkingLog) ReadRewriteLog(maxEvents int) ([]RewriteEvent, error) {
	if maxEvents <= 0 {
		maxEvents = MaxRewriteLogEvents
	}
	data, err := os.ReadFile(w.rewriteLogPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rewrite log: %w", err)
	}

	var events []RewriteEvent
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ev RewriteEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if len(events) > maxEvents {
		events = events[:maxEvents]
	}
	return events, nil
}
