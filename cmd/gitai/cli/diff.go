package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/diffmove"
)

type diffLineOut struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Text     string `json:"text"`
	AuthorID string `json:"author_id,omitempty"`
	IsAI     bool   `json:"is_ai"`
	NoData   bool   `json:"no_data"`
}

func newDiffCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff <rev> [<rev>]",
		Short: "git-style diff with per-added-line attribution markers",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			from, to := args[0], ""
			if len(args) == 2 {
				to = args[1]
			} else {
				c, err := e.Repo.CommitObject(args[0])
				if err != nil {
					return err
				}
				to = from
				from = emptyTreeSHA
				if len(c.ParentHashes) > 0 {
					from = c.ParentHashes[0].String()
				}
			}

			pathsOut, err := e.Repo.DiffNameStatus(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			log, found, err := e.AuthStore.Load(cmd.Context(), to)
			if err != nil {
				return err
			}

			var lines []diffLineOut
			for _, statusLine := range splitLines(pathsOut) {
				fields := strings.Fields(statusLine)
				if len(fields) < 2 {
					continue
				}
				path := fields[len(fields)-1]
				if e.Ignore != nil && e.Ignore.Match(path) {
					continue
				}

				newContent, okNew, err := e.Repo.FileAtCommit(to, path)
				if err != nil {
					return err
				}
				if !okNew {
					continue
				}
				var oldContent []byte
				if from != emptyTreeSHA {
					oldContent, _, err = e.Repo.FileAtCommit(from, path)
					if err != nil {
						return err
					}
				}

				hunks := diffmove.DiffLines(joinLines(splitLines(string(oldContent))), joinLines(splitLines(string(newContent))))
				var list attribution.List
				if found {
					list = attestationListFor(log, path)
				}
				for _, h := range hunks {
					if h.Kind != diffmove.Add {
						continue
					}
					out := diffLineOut{File: path, Line: h.NewLineNo, Text: h.Text}
					if authorID, ok := list.AuthorAt(h.NewLineNo); ok {
						out.AuthorID = authorID
						out.IsAI = authorID != string(authormodel.Human)
					} else if found {
						out.AuthorID = string(authormodel.Human)
					} else {
						out.NoData = true
					}
					lines = append(lines, out)
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(lines)
			}
			for _, l := range lines {
				marker := "\U0001F464"
				if l.NoData {
					marker = "? "
				} else if l.IsAI {
					marker = "\U0001F916"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s:%d: +%s\n", marker, l.File, l.Line, l.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
