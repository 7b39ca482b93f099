package cli

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/diffmove"
	"github.com/git-ai/git-ai/internal/logging"
	"github.com/git-ai/git-ai/internal/workinglog"
)

// hookInput is the --hook-input JSON payload an external collaborator
// (the editor/agent integration) passes along with a checkpoint: the
// prompt's session identity and its transcript so far (spec §4.10).
// Parsing failures are a PresetError (spec §7): logged, falling
// through to an empty transcript and model "unknown" rather than
// losing the line attribution.
type hookInput struct {
	SessionID   string                `json:"session_id"`
	Model       string                `json:"model"`
	URL         string                `json:"url"`
	HumanAuthor string                `json:"human_author"`
	Transcript  []authormodel.Message `json:"transcript"`
}

// snapshotPath is where checkpoint.go caches the working-tree text it
// last diffed a file against. This is not part of the spec's
// WorkingLog schema (checkpoints.jsonl only ever stores attribution
// ranges, never raw text) — it is a private implementation cache this
// command uses to reconstruct apply_edit's old_lines input between
// invocations, since nothing else on disk retains a checkpoint's
// verbatim text.
func snapshotPath(aiDir, headSHA, relPath string) string {
	sum := sha1.Sum([]byte(relPath))
	return filepath.Join(aiDir, "working_logs", headSHA, "snapshots", hex.EncodeToString(sum[:]))
}

func newCheckpointCmd() *cobra.Command {
	var hookInputJSON string

	cmd := &cobra.Command{
		Use:   "checkpoint [tool] [pathspecs...]",
		Short: "Record a checkpoint of the current working-tree attribution",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := "human"
			pathspecs := args
			if len(args) > 0 && !strings.Contains(args[0], string(filepath.Separator)) && !isExistingPath(args[0]) {
				tool = args[0]
				pathspecs = args[1:]
			}

			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			return runCheckpoint(cmd.Context(), e, tool, hookInputJSON, pathspecs)
		},
	}
	cmd.Flags().StringVar(&hookInputJSON, "hook-input", "", "JSON payload describing the current prompt session")
	return cmd
}

func isExistingPath(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func runCheckpoint(ctx context.Context, e *env, tool, hookInputJSON string, pathspecs []string) error {
	headSHA, _, _, err := e.Repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}

	in := hookInput{Model: "unknown"}
	if hookInputJSON != "" {
		if err := json.Unmarshal([]byte(hookInputJSON), &in); err != nil {
			logging.Warn(ctx, "parsing --hook-input", "tool", tool, "error", err.Error())
			in = hookInput{Model: "unknown"}
		}
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}

	var kind workinglog.CheckpointKind
	var agentID string
	var rec *authormodel.PromptRecord
	if tool == "" || tool == "human" {
		kind = workinglog.Human
	} else {
		kind = workinglog.AiAgent
		agent := authormodel.AgentDescriptor{Tool: tool, SessionID: in.SessionID, Model: in.Model}
		id := authormodel.NewAttributionID(agent)
		agentID = string(id)
		rec = &authormodel.PromptRecord{
			ID: id, Agent: agent, HumanAuthor: in.HumanAuthor,
			Transcript: in.Transcript, URL: in.URL,
		}
	}

	files, err := checkpointFiles(ctx, e, pathspecs)
	if err != nil {
		return err
	}

	wlog := workinglog.ForBaseCommit(e.AIDir, headSHA)
	checkpoints, err := wlog.ReadAllCheckpoints()
	if err != nil {
		return err
	}
	initial, err := wlog.ReadInitialAttributions()
	if err != nil {
		return err
	}

	authorID := "human"
	if agentID != "" {
		authorID = agentID
	}

	var entries []workinglog.CheckpointEntry
	var total workinglog.LineStats
	for _, path := range files {
		entry, err := checkpointFile(e.AIDir, headSHA, path, authorID, checkpoints, initial)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		entries = append(entries, *entry)
		total.Additions += entry.Additions
		total.Deletions += entry.Deletions
		total.AdditionsSloc += entry.AdditionsSloc
		total.DeletionsSloc += entry.DeletionsSloc
	}

	var agentMetadata json.RawMessage
	if hookInputJSON != "" {
		agentMetadata = json.RawMessage(hookInputJSON)
	}

	cp := workinglog.Checkpoint{
		Kind: kind, Timestamp: time.Now().UTC(), AgentID: agentID,
		AgentMetadata: agentMetadata, LineStats: total, Entries: entries,
	}
	if err := wlog.AppendCheckpoint(cp); err != nil {
		return err
	}

	if rec != nil && e.PromptStore != nil {
		if err := e.PromptStore.UpsertTranscript(ctx, *rec); err != nil {
			logging.Warn(ctx, "upserting prompt transcript", "prompt_id", agentID, "error", err.Error())
		}
	}

	return nil
}

// checkpointFiles resolves the set of paths this checkpoint covers:
// the given pathspecs verbatim, or every non-ignored changed path from
// `git status --porcelain` when none were given.
func checkpointFiles(ctx context.Context, e *env, pathspecs []string) ([]string, error) {
	if len(pathspecs) > 0 {
		return pathspecs, nil
	}

	out, err := e.Repo.StatusPorcelain(ctx)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if arrow := strings.Index(path, " -> "); arrow >= 0 {
			path = path[arrow+4:]
		}
		if e.Ignore != nil && e.Ignore.Match(path) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// checkpointFile computes the new attribution.List for one file,
// seeding the apply_edit baseline from (in priority order) the cached
// text snapshot of the last checkpoint that touched this file, the
// file's initial_attributions entry, or an all-human range over HEAD's
// committed content.
func checkpointFile(aiDir, headSHA, path, authorID string, checkpoints []workinglog.Checkpoint, initial workinglog.InitialAttributions) (*workinglog.CheckpointEntry, error) {
	newContent, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	newLines := splitLines(string(newContent))

	var prevList attribution.List
	var oldLines []string

	snapPath := snapshotPath(aiDir, headSHA, path)
	snapData, err := os.ReadFile(snapPath)
	haveSnapshot := err == nil

	if haveSnapshot {
		oldLines = splitLines(string(snapData))
		prevList = lastEntryFor(checkpoints, path)
	} else if seed, ok := initial.Files[path]; ok {
		prevList = seed
		oldLines = newLines // initial_attributions is seeded before the file's first checkpoint diff; nothing to diff against yet.
	} else {
		oldLines = nil
		prevList = nil
	}

	newList := attribution.ApplyEdit(prevList, oldLines, newLines, authorID)
	if err := os.MkdirAll(filepath.Dir(snapPath), 0o750); err != nil {
		return nil, err
	}
	if err := os.WriteFile(snapPath, newContent, 0o600); err != nil {
		return nil, err
	}

	stats := lineStatsFor(oldLines, newLines)
	return &workinglog.CheckpointEntry{FilePath: path, Attributions: newList, LineStats: stats}, nil
}

// lastEntryFor returns the most recent checkpoint's attribution list
// for path, or nil if no prior checkpoint mentioned it.
func lastEntryFor(checkpoints []workinglog.Checkpoint, path string) attribution.List {
	for i := len(checkpoints) - 1; i >= 0; i-- {
		for _, e := range checkpoints[i].Entries {
			if e.FilePath == path {
				return e.Attributions
			}
		}
	}
	return nil
}

func lineStatsFor(oldLines, newLines []string) workinglog.LineStats {
	hunks := diffmove.DiffLines(joinLines(oldLines), joinLines(newLines))
	var stats workinglog.LineStats
	for _, h := range hunks {
		switch h.Kind {
		case diffmove.Add:
			stats.Additions++
			if strings.TrimSpace(h.Text) != "" {
				stats.AdditionsSloc++
			}
		case diffmove.Del:
			stats.Deletions++
			if strings.TrimSpace(h.Text) != "" {
				stats.DeletionsSloc++
			}
		}
	}
	return stats
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
