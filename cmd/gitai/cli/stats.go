package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-ai/git-ai/internal/gitcli"
	"github.com/git-ai/git-ai/internal/ignore"
)

type commitStats struct {
	CommitSHA           string         `json:"commit_sha"`
	HumanAdditions      int            `json:"human_additions"`
	AIAdditions         int            `json:"ai_additions"`
	AIAccepted          int            `json:"ai_accepted"`
	GitDiffAddedLines   int            `json:"git_diff_added_lines"`
	GitDiffDeletedLines int            `json:"git_diff_deleted_lines"`
	ToolModelBreakdown  map[string]int `json:"tool_model_breakdown"`
}

func newStatsCmd() *cobra.Command {
	var asJSON bool
	var ignorePatterns []string

	cmd := &cobra.Command{
		Use:   "stats [<commit-or-range>]",
		Short: "Print per-commit or range authorship stats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}

			commits, err := resolveRevOrRange(cmd.Context(), e, rev)
			if err != nil {
				return err
			}

			var all []commitStats
			for _, sha := range commits {
				cs, err := computeCommitStats(cmd.Context(), e, sha, ignorePatterns)
				if err != nil {
					return err
				}
				all = append(all, *cs)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}
			for _, cs := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  +%d human  +%d ai (%d accepted)  -%d\n",
					shortSHA(cs.CommitSHA), cs.HumanAdditions, cs.AIAdditions, cs.AIAccepted, cs.GitDiffDeletedLines)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	cmd.Flags().StringArrayVar(&ignorePatterns, "ignore", nil, "additional ignore pattern (repeatable)")
	return cmd
}

func shortSHA(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}

// resolveRevOrRange expands a single commit-ish or an A..B range
// (empty-tree SHA accepted as A, spec §6) into the ordered list of
// commit SHAs it covers.
func resolveRevOrRange(ctx context.Context, e *env, rev string) ([]string, error) {
	if idx := strings.Index(rev, ".."); idx >= 0 {
		from, to := rev[:idx], rev[idx+2:]
		if to == "" {
			to = "HEAD"
		}
		out, err := gitcli.Run(ctx, e.Repo.Root(), "rev-list", "--reverse", from+".."+to)
		if err != nil {
			return nil, err
		}
		return splitLines(out.Stdout), nil
	}

	out, err := gitcli.Run(ctx, e.Repo.Root(), "rev-parse", rev)
	if err != nil {
		return nil, err
	}
	return []string{strings.TrimSpace(out.Stdout)}, nil
}

func computeCommitStats(ctx context.Context, e *env, commitSHA string, extraIgnore []string) (*commitStats, error) {
	cs := &commitStats{CommitSHA: commitSHA, ToolModelBreakdown: map[string]int{}}

	c, err := e.Repo.CommitObject(commitSHA)
	if err != nil {
		return nil, err
	}

	parent := emptyTreeSHA
	if len(c.ParentHashes) > 0 {
		parent = c.ParentHashes[0].String()
	}

	out, err := gitcli.Run(ctx, e.Repo.Root(), "diff", "--numstat", parent, commitSHA)
	if err != nil {
		return nil, err
	}
	for _, line := range splitLines(out.Stdout) {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		path := fields[2]
		if isIgnoredForStats(e, path, extraIgnore) {
			continue
		}
		if added, err := strconv.Atoi(fields[0]); err == nil {
			cs.GitDiffAddedLines += added
		}
		if deleted, err := strconv.Atoi(fields[1]); err == nil {
			cs.GitDiffDeletedLines += deleted
		}
	}

	log, found, err := e.AuthStore.Load(ctx, commitSHA)
	if err != nil {
		return nil, err
	}
	if found {
		for _, fa := range log.Attestations {
			if isIgnoredForStats(e, fa.FilePath, extraIgnore) {
				continue
			}
			for _, entry := range fa.Entries {
				n := entry.EndLine - entry.StartLine + 1
				cs.AIAdditions += n
				cs.AIAccepted += n
				if rec, ok := log.Metadata.Prompts[entry.Hash]; ok {
					cs.ToolModelBreakdown[rec.Agent.Tool+"/"+rec.Agent.Model]++
				}
			}
		}
	}

	cs.HumanAdditions = cs.GitDiffAddedLines - cs.AIAccepted
	if cs.HumanAdditions < 0 {
		cs.HumanAdditions = 0
	}
	return cs, nil
}

func isIgnoredForStats(e *env, path string, extra []string) bool {
	if e.Ignore != nil && e.Ignore.Match(path) {
		return true
	}
	return len(extra) > 0 && ignore.Match(extra, path)
}

// emptyTreeSHA is git's well-known hash of the empty tree, accepted as
// the "A" side of a range and as a synthetic parent for a root commit.
const emptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
