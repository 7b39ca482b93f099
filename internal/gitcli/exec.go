package gitcli

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/git-ai/git-ai/internal/giterrors"
)

// Result is the captured outcome of running git.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes `git <args...>` in dir (empty means the current working
// directory), capturing stdout and stderr. Any non-zero exit is
// surfaced as a *giterrors.ExternalCommandFailed (spec §7).
func Run(ctx context.Context, dir string, args ...string) (Result, error) {
	return RunStdin(ctx, dir, nil, args...)
}

// RunStdin is Run with stdin content streamed to the child process.
func RunStdin(ctx context.Context, dir string, stdin io.Reader, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err == nil {
		return res, nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return res, &giterrors.ExternalCommandFailed{
			Argv:   append([]string{"git"}, args...),
			Stderr: err.Error(),
			Exit:   -1,
		}
	}

	res.ExitCode = exitErr.ExitCode()
	return res, &giterrors.ExternalCommandFailed{
		Argv:   append([]string{"git"}, args...),
		Stderr: strings.TrimRight(res.Stderr, "\n"),
		Exit:   res.ExitCode,
	}
}
