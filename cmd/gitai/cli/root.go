package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information, set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// NewRootCmd builds the gitai command tree (spec §6 CLI surface).
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitai",
		Short: "Per-line AI-vs-human authorship tracking for git",
		Long:  "gitai augments git with per-line AI-vs-human authorship tracking, surviving amends, rebases, cherry-picks, and squash merges.",
		// main.go handles error printing so it is not duplicated.
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCheckpointCmd())
	cmd.AddCommand(newInstallHooksCmd())
	cmd.AddCommand(newUninstallHooksCmd())
	cmd.AddCommand(newHooksGitCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newBlameCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("gitai %s (%s)\n", Version, Commit)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
