// Package cli wires together the internal packages into the gitai
// command-line surface (spec §6). Grounded on the teacher's cli/root.go
// (SilenceErrors, hidden completion command, subcommand registration)
// and cli/hooks_git_cmd.go (the hidden `hooks git <verb>` subcommand
// tree the managed hook scripts shell out to).
package cli

import (
	"path/filepath"

	"github.com/git-ai/git-ai/internal/authorshiplog"
	"github.com/git-ai/git-ai/internal/commitpipeline"
	"github.com/git-ai/git-ai/internal/config"
	"github.com/git-ai/git-ai/internal/gitrepo"
	"github.com/git-ai/git-ai/internal/hooks"
	"github.com/git-ai/git-ai/internal/ignore"
	"github.com/git-ai/git-ai/internal/logging"
	"github.com/git-ai/git-ai/internal/paths"
	"github.com/git-ai/git-ai/internal/promptstore"
	"github.com/git-ai/git-ai/internal/rewrite"
)

// env bundles the constructed components every subcommand needs.
// Built fresh per invocation from the current working directory (spec
// §7 RepoNotFound is the only error that exits non-zero "at command
// entry").
type env struct {
	Repo        *gitrepo.Repo
	AIDir       string
	Config      *config.Config
	Ignore      *ignore.Matcher
	AuthStore   *authorshiplog.Store
	PromptStore *promptstore.Store
	Pipeline    *commitpipeline.Pipeline
	Engine      *rewrite.Engine
	Dispatcher  *hooks.Dispatcher
	closeLog    func()
}

func newEnv() (*env, error) {
	root, err := paths.RepoRoot()
	if err != nil {
		return nil, err
	}

	repo, err := gitrepo.Open(root)
	if err != nil {
		return nil, err
	}

	aiDir := filepath.Join(root, paths.AIDir)
	cfg, err := config.Load(aiDir)
	if err != nil {
		return nil, err
	}
	for _, key := range cfg.Unrecognized {
		logging.Warnf("unrecognized config key %q ignored", key)
	}

	closeLog := logging.Init(aiDir, "")

	matcher := ignore.Load(root, nil, cfg.Ignore)
	authStore := authorshiplog.New(repo)

	promptDB, err := promptstore.Open(filepath.Join(aiDir, paths.PromptsDBFile))
	if err != nil {
		logging.Warnf("opening prompt store: %v", err)
		promptDB = nil
	}

	pipeline := commitpipeline.New(repo, matcher, cfg, authStore, promptDB)
	engine := rewrite.New(repo, aiDir, authStore, pipeline, cfg)
	dispatcher := hooks.New(repo, aiDir, engine, cfg)

	return &env{
		Repo: repo, AIDir: aiDir, Config: cfg, Ignore: matcher,
		AuthStore: authStore, PromptStore: promptDB, Pipeline: pipeline,
		Engine: engine, Dispatcher: dispatcher, closeLog: closeLog,
	}, nil
}

func (e *env) Close() {
	if e.PromptStore != nil {
		_ = e.PromptStore.Close()
	}
	if e.closeLog != nil {
		e.closeLog()
	}
}

