package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-ai/git-ai/internal/workinglog"
)

type statusOut struct {
	HeadSHA         string                   `json:"head_sha"`
	CheckpointCount int                      `json:"checkpoint_count"`
	Uncommitted     workinglog.LineStats     `json:"uncommitted"`
	Checkpoints     []workinglog.Checkpoint  `json:"checkpoints,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoints since HEAD and current uncommitted stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			headSHA, _, _, err := e.Repo.Head()
			if err != nil {
				return err
			}

			wlog := workinglog.ForBaseCommit(e.AIDir, headSHA)
			checkpoints, err := wlog.ReadAllCheckpoints()
			if err != nil {
				return err
			}

			var total workinglog.LineStats
			for _, cp := range checkpoints {
				total.Additions += cp.LineStats.Additions
				total.Deletions += cp.LineStats.Deletions
				total.AdditionsSloc += cp.LineStats.AdditionsSloc
				total.DeletionsSloc += cp.LineStats.DeletionsSloc
			}

			out := statusOut{HeadSHA: headSHA, CheckpointCount: len(checkpoints), Uncommitted: total}
			if asJSON {
				out.Checkpoints = checkpoints
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "HEAD %s\n", shortSHA(headSHA))
			fmt.Fprintf(cmd.OutOrStdout(), "%d checkpoint(s) recorded\n", len(checkpoints))
			fmt.Fprintf(cmd.OutOrStdout(), "uncommitted: +%d -%d (sloc +%d -%d)\n",
				total.Additions, total.Deletions, total.AdditionsSloc, total.DeletionsSloc)
			for _, cp := range checkpoints {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-8s  +%d -%d\n",
					cp.Timestamp.Format("15:04:05"), cp.Kind, cp.LineStats.Additions, cp.LineStats.Deletions)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
