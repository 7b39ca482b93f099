// Package gitcli implements the git façade (spec §4.1 / C1): a parser
// for `git [globals…] [command] [command-args…]` invocations, a
// canonical re-emitter, and an exec wrapper used by every other
// component that needs to shell out to git.
//
// The parser's exact behavior (sticky -C/-c, long --flag[=value]
// forms, the --help/-h and --version/-v rewrite rules, and the
// unknown-top-level-option passthrough) is ported from the reference
// test table in the original Rust implementation
// (original_source/crates/git-ai/tests/git_cli_arg_parsing.rs), since
// spec §4.1 describes the contract but the original is the
// authoritative source for its many edge cases.
package gitcli

import "strings"

// ParsedInvocation is the result of parsing a git argv.
type ParsedInvocation struct {
	GlobalArgs     []string
	Command        *string
	CommandArgs    []string
	IsHelp         bool
	SawEndOfOpts   bool
}

// noValueGlobalFlags take no argument.
var noValueGlobalFlags = map[string]bool{
	"--paginate":           true,
	"-p":                   true,
	"--no-pager":           true,
	"-P":                   true,
	"--bare":                true,
	"--no-replace-objects": true,
	"--literal-pathspecs":  true,
	"--glob-pathspecs":     true,
	"--noglob-pathspecs":   true,
	"--icase-pathspecs":    true,
	"--no-optional-locks":  true,
	"--no-advice":          true,
	"--no-lazy-fetch":      true,
	"--html-path":          true,
	"--man-path":           true,
	"--info-path":          true,
}

// valueGlobalFlags take a value, either as "--flag=value" (one token)
// or "--flag value" (two tokens, greedily consuming the following
// token when present).
var valueGlobalFlags = map[string]bool{
	"--git-dir":      true,
	"--work-tree":    true,
	"--namespace":    true,
	"--list-cmds":    true,
	"--attr-source":  true,
	"--super-prefix": true,
	"--config-env":   true,
	"--exec-path":    true,
}

// Parse parses a git argv into globals, command, and command args,
// applying the --help/-h and --version/-v precommand rewrite rules.
func Parse(args []string) ParsedInvocation {
	var global []string
	i := 0
	for i < len(args) {
		tok := args[i]

		if tok == "--" {
			p := ParsedInvocation{GlobalArgs: global, SawEndOfOpts: true}
			if i+1 < len(args) {
				cmd := args[i+1]
				p.Command = &cmd
				p.CommandArgs = append([]string{}, args[i+2:]...)
			}
			p.IsHelp = computeIsHelp(p.Command, p.CommandArgs)
			return p
		}

		if tok == "--help" || tok == "-h" {
			cmd := "help"
			p := ParsedInvocation{
				GlobalArgs:  global,
				Command:     &cmd,
				CommandArgs: append([]string{}, args[i+1:]...),
			}
			p.IsHelp = true
			return p
		}

		if tok == "--version" || tok == "-v" {
			for j := i + 1; j < len(args); j++ {
				if args[j] == "--" {
					break
				}
				if args[j] == "--help" || args[j] == "-h" {
					cmd := "help"
					p := ParsedInvocation{
						GlobalArgs:  global,
						Command:     &cmd,
						CommandArgs: append([]string{}, args[j+1:]...),
					}
					p.IsHelp = true
					return p
				}
			}
			var rest []string
			for _, t := range args[i+1:] {
				if strings.HasPrefix(t, "-") {
					rest = append(rest, t)
				}
			}
			cmd := "version"
			return ParsedInvocation{GlobalArgs: global, Command: &cmd, CommandArgs: rest}
		}

		if consumed, next, ok := consumeGlobalAt(args, i); ok {
			global = append(global, consumed...)
			i = next
			continue
		}

		if strings.HasPrefix(tok, "-") {
			p := ParsedInvocation{
				CommandArgs: append([]string{}, args...),
			}
			p.IsHelp = computeIsHelp(nil, p.CommandArgs)
			return p
		}

		cmd := tok
		p := ParsedInvocation{
			GlobalArgs:  global,
			Command:     &cmd,
			CommandArgs: append([]string{}, args[i+1:]...),
		}
		p.IsHelp = computeIsHelp(p.Command, p.CommandArgs)
		return p
	}

	return ParsedInvocation{GlobalArgs: global}
}

func computeIsHelp(command *string, commandArgs []string) bool {
	if command != nil && (*command == "help" || isHelpToken(*command)) {
		return true
	}
	for _, a := range commandArgs {
		if isHelpToken(a) {
			return true
		}
	}
	return false
}

func isHelpToken(s string) bool { return s == "--help" || s == "-h" }

// consumeGlobalAt attempts to consume a recognised global option
// starting at args[i]. Returns the tokens consumed, the next index,
// and whether a flag was recognised.
func consumeGlobalAt(args []string, i int) ([]string, int, bool) {
	tok := args[i]

	switch {
	case tok == "-C":
		return consumeWithOptionalNext(args, i)
	case strings.HasPrefix(tok, "-C") && len(tok) > 2:
		return []string{tok}, i + 1, true
	case tok == "-c":
		return consumeWithOptionalNext(args, i)
	case strings.HasPrefix(tok, "-c") && len(tok) > 2:
		return []string{tok}, i + 1, true
	case noValueGlobalFlags[tok]:
		return []string{tok}, i + 1, true
	}

	name := tok
	if idx := strings.IndexByte(tok, '='); idx >= 0 {
		name = tok[:idx]
	}
	if valueGlobalFlags[name] {
		if strings.Contains(tok, "=") {
			return []string{tok}, i + 1, true
		}
		return consumeWithOptionalNext(args, i)
	}

	return nil, i, false
}

// consumeWithOptionalNext consumes args[i] and, if a following token
// exists, args[i+1] as its value.
func consumeWithOptionalNext(args []string, i int) ([]string, int, bool) {
	if i+1 < len(args) {
		return []string{args[i], args[i+1]}, i + 2, true
	}
	return []string{args[i]}, i + 1, true
}

// ToInvocation re-emits the parsed invocation as a canonical argv. It
// is a fixed point under re-parsing (spec §8): parsing the result
// yields the same ParsedInvocation, though not necessarily the
// original byte sequence (e.g. "--version" canonicalizes to
// "version").
func (p ParsedInvocation) ToInvocation() []string {
	out := append([]string{}, p.GlobalArgs...)
	if p.SawEndOfOpts {
		out = append(out, "--")
	}
	if p.Command != nil {
		out = append(out, *p.Command)
	}
	out = append(out, p.CommandArgs...)
	return out
}
