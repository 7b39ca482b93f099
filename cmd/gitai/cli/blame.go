package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/workinglog"
)

func newBlameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blame <path>",
		Short: "Render per-line attribution for a worktree file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			lines := splitLines(string(content))

			headSHA, _, _, err := e.Repo.Head()
			if err != nil {
				return err
			}

			wlog := workinglog.ForBaseCommit(e.AIDir, headSHA)
			checkpoints, err := wlog.ReadAllCheckpoints()
			if err != nil {
				return err
			}

			var list attribution.List
			fromAttestation := false
			if cp := lastEntryFor(checkpoints, path); cp != nil {
				list = cp
			} else {
				log, found, err := e.AuthStore.Load(cmd.Context(), headSHA)
				if err != nil {
					return err
				}
				if found {
					list = attestationListFor(log, path)
					fromAttestation = true
				}
			}

			for i, line := range lines {
				lineNo := i + 1
				authorID, ok := list.AuthorAt(lineNo)
				marker := "  "
				label := "no-data"
				switch {
				case ok && authorID == string(authormodel.Human):
					marker = "\U0001F464" // 👤
					label = "human"
				case ok:
					marker = "\U0001F916" // 🤖
					label = authorID
				case !ok && fromAttestation:
					// Human entries are never written to an
					// AuthorshipLog (spec §4.6 step 5); an uncovered
					// line here means human, not unknown.
					marker = "\U0001F464"
					label = "human"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%5d %s %-18s %s\n", lineNo, marker, label, line)
			}
			return nil
		},
	}
}

// attestationListFor converts one file's committed attestation
// entries back into an attribution.List, for files that have no
// in-progress checkpoint overriding them.
func attestationListFor(log *authormodel.AuthorshipLog, path string) attribution.List {
	for _, fa := range log.Attestations {
		if fa.FilePath != path {
			continue
		}
		var list attribution.List
		for _, e := range fa.Entries {
			list = append(list, attribution.LineAttribution{
				StartLine: e.StartLine, EndLine: e.EndLine, AuthorID: string(e.Hash),
			})
		}
		return list
	}
	return nil
}
