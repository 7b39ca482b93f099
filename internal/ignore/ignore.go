// Package ignore resolves the ignore-rule set described in spec §6:
// hard-coded defaults, positive linguist-generated patterns from
// .gitattributes, and caller-supplied extra patterns, merged and
// deduplicated with first-match-wins.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Defaults are the hard-coded default ignore patterns (spec §6.1).
var Defaults = []string{
	"*.lock",
	"Cargo.lock",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"Gemfile.lock",
	"poetry.lock",
	"composer.lock",
	"Pipfile.lock",
	"shrinkwrap.yaml",
	"*.generated.*",
	"*.min.js",
	"*.min.css",
	"*.map",
	"**/vendor/**",
	"**/node_modules/**",
	"**/__snapshots__/**",
	"**/*.snap",
	"**/*.snap.new",
}

// Matcher holds the merged, deduplicated pattern set for one
// repository and answers Match queries.
type Matcher struct {
	patterns []string
}

// Load builds a Matcher from the hard-coded defaults, the root
// .gitattributes linguist-generated directives (read from both the
// worktree and, if given, a second root such as a bare HEAD checkout),
// and caller-supplied extra patterns appended last.
func Load(worktreeRoot string, extraRoots []string, extra []string) *Matcher {
	seen := make(map[string]bool)
	var patterns []string

	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		patterns = append(patterns, p)
	}

	for _, p := range Defaults {
		add(p)
	}

	roots := append([]string{worktreeRoot}, extraRoots...)
	for _, root := range roots {
		for _, p := range linguistGeneratedPatterns(filepath.Join(root, ".gitattributes")) {
			add(p)
		}
	}

	for _, p := range extra {
		add(p)
	}

	return &Matcher{patterns: patterns}
}

// linguistGeneratedPatterns parses a .gitattributes file and returns
// the path patterns positively marked linguist-generated. Macro
// definitions ("[attr]name ...") are ignored; negative forms
// (-linguist-generated, !linguist-generated, linguist-generated=false
// or =0) are excluded.
func linguistGeneratedPatterns(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[attr]") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pattern := fields[0]
		for _, attr := range fields[1:] {
			switch {
			case attr == "linguist-generated":
				out = append(out, pattern)
			case attr == "-linguist-generated", attr == "!linguist-generated":
				// negative form: explicitly excluded, never included
			case attr == "linguist-generated=false", attr == "linguist-generated=0":
				// explicit false: excluded
			case attr == "linguist-generated=true", attr == "linguist-generated=1":
				out = append(out, pattern)
			}
		}
	}
	return out
}

// Match reports whether relPath (repo-relative, forward-slash
// separated) matches any pattern in the set. Invalid globs fall back
// to an exact match against the filename or the full path.
func Match(patterns []string, relPath string) bool {
	base := filepath.Base(relPath)
	for _, p := range patterns {
		if matchOne(p, relPath, base) {
			return true
		}
	}
	return false
}

// Match is the Matcher method form.
func (m *Matcher) Match(relPath string) bool {
	return Match(m.patterns, relPath)
}

// Patterns returns the merged, deduplicated pattern list.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

func matchOne(pattern, fullPath, base string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoubleStar(pattern, fullPath)
	}
	if ok, err := filepath.Match(pattern, base); err == nil && ok {
		return true
	}
	if ok, err := filepath.Match(pattern, fullPath); err == nil && ok {
		return true
	}
	if err := validateGlob(pattern); err != nil {
		return pattern == base || pattern == fullPath
	}
	return false
}

func validateGlob(pattern string) error {
	_, err := filepath.Match(pattern, "")
	return err
}

// matchDoubleStar implements a minimal "**" glob: "**/" matches any
// number of leading path segments (including none), and a trailing
// "/**" matches any number of trailing segments.
func matchDoubleStar(pattern, fullPath string) bool {
	segs := strings.Split(pattern, "/")
	pathSegs := strings.Split(fullPath, "/")
	return matchSegs(segs, pathSegs)
}

func matchSegs(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}
	if pat[0] == "**" {
		if len(pat) == 1 {
			return true
		}
		for i := 0; i <= len(path); i++ {
			if matchSegs(pat[1:], path[i:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], path[0])
	if err != nil || !ok {
		return false
	}
	return matchSegs(pat[1:], path[1:])
}
