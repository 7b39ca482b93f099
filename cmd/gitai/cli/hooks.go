package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/git-ai/git-ai/internal/hooks"
	"github.com/git-ai/git-ai/internal/logging"
)

func newInstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-hooks",
		Short: "Install managed git hooks (hooks/both mode)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			bin, err := os.Executable()
			if err != nil {
				return err
			}

			mode := e.Config.HookMode
			if mode == "" {
				mode = "hooks"
			}
			if err := hooks.InstallHooks(cmd.Context(), e.Repo, e.AIDir, bin, mode); err != nil {
				return err
			}
			cmd.Println("Installed git-ai hooks.")
			return nil
		},
	}
}

func newUninstallHooksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall-hooks",
		Short: "Remove managed git hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := hooks.UninstallHooks(cmd.Context(), e.Repo, e.AIDir); err != nil {
				return err
			}
			cmd.Println("Removed git-ai hooks.")
			return nil
		},
	}
}

// hookContext logs a managed hook's invocation and completion, mirroring
// the teacher's gitHookContext (cli/hooks_git_cmd.go) generalized past a
// single fixed strategy.
type hookContext struct {
	name  string
	start time.Time
}

func newHookContext(name string) *hookContext {
	return &hookContext{name: name, start: time.Now()}
}

func (h *hookContext) logInvoked(attrs ...any) {
	logging.Debug(nil, h.name+" hook invoked", append([]any{slog.String("hook", h.name)}, attrs...)...)
}

func (h *hookContext) logCompleted(err error) {
	logging.LogDuration(nil, slog.LevelDebug, h.name+" hook completed", h.start,
		slog.String("hook", h.name), slog.Bool("success", err == nil))
}

// newHooksGitCmd builds the hidden subcommand tree the managed hook
// scripts written by InstallHooks shell out to (spec §4.8 hooks mode).
func newHooksGitCmd() *cobra.Command {
	root := &cobra.Command{
		Use:    "hooks",
		Hidden: true,
	}
	git := &cobra.Command{
		Use:    "git",
		Short:  "Git hook handlers",
		Long:   "Commands the managed hooks directory delegates to; not for direct use.",
		Hidden: true,
	}
	root.AddCommand(git)

	git.AddCommand(
		newHooksGitPrepareCommitMsgCmd(),
		newHooksGitPostCommitCmd(),
		newHooksGitPostCheckoutCmd(),
		newHooksGitPostMergeCmd(),
		newHooksGitPostRewriteCmd(),
		newHooksGitPrePushCmd(),
	)
	return root
}

func withHookEnv(cmd *cobra.Command, hookName string, fn func(e *env, h *hookContext) error) error {
	h := newHookContext(hookName)
	h.logInvoked()

	e, err := newEnv()
	if err != nil {
		h.logCompleted(err)
		// Spec §7: hooks never cause git itself to fail.
		logging.Warnf("%s hook: %v", hookName, err)
		return nil
	}
	defer e.Close()

	err = fn(e, h)
	h.logCompleted(err)
	if err != nil {
		logging.Warnf("%s hook: %v", hookName, err)
	}
	return nil
}

func newHooksGitPrepareCommitMsgCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare-commit-msg <msg-file> [source] [sha]",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source, sha string
			if len(args) > 1 {
				source = args[1]
			}
			if len(args) > 2 {
				sha = args[2]
			}
			return withHookEnv(cmd, "prepare-commit-msg", func(e *env, _ *hookContext) error {
				return e.Dispatcher.HandlePrepareCommitMsg(cmd.Context(), source, sha)
			})
		},
	}
}

func newHooksGitPostCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "post-commit",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHookEnv(cmd, "post-commit", func(e *env, _ *hookContext) error {
				return e.Dispatcher.HandlePostCommit(cmd.Context())
			})
		},
	}
}

func newHooksGitPostCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "post-checkout <old-head> <new-head> <is-branch-checkout>",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			branchCheckout := args[2] == "1"
			return withHookEnv(cmd, "post-checkout", func(e *env, _ *hookContext) error {
				return e.Dispatcher.HandlePostCheckout(cmd.Context(), args[0], args[1], branchCheckout)
			})
		},
	}
}

func newHooksGitPostMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "post-merge <is-squash>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isSquash := args[0] == "1"
			return withHookEnv(cmd, "post-merge", func(e *env, _ *hookContext) error {
				return e.Dispatcher.HandlePostMerge(cmd.Context(), isSquash)
			})
		},
	}
}

func newHooksGitPostRewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "post-rewrite <command>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHookEnv(cmd, "post-rewrite", func(e *env, _ *hookContext) error {
				return e.Dispatcher.HandlePostRewrite(cmd.Context(), args[0], cmd.InOrStdin())
			})
		},
	}
}

func newHooksGitPrePushCmd() *cobra.Command {
	return &cobra.Command{
		Use:  "pre-push <remote> <url>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHookEnv(cmd, "pre-push", func(e *env, _ *hookContext) error {
				return e.Dispatcher.HandlePrePush(cmd.Context(), args[0], cmd.InOrStdin())
			})
		},
	}
}
