// Package attribution implements the per-line authorship tracker
// (spec §4.5 / C5): an ordered, non-overlapping set of line ranges
// covering every line of a tracked file, each naming the author (a
// human name or an Attribution ID) that introduced it. The underlying
// line-matching is built on internal/diffmove; the range-collapsing
// idiom is grounded on the secondary example's
// internal/checkpoint/attribution.go (TransformAttribution) and
// internal/lineset (compact contiguous-range representation).
package attribution

import (
	"context"
	"fmt"

	"github.com/git-ai/git-ai/internal/diffmove"
	"github.com/git-ai/git-ai/internal/gitrepo"
)

// LineAttribution is one contiguous, inclusive, 1-based line range and
// the author responsible for it. Overrode names the author whose
// content on the same line this range replaced, when applicable.
type LineAttribution struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	AuthorID  string `json:"author_id"`
	Overrode  string `json:"overrode,omitempty"`
}

// List is a sorted, disjoint set of LineAttributions covering
// 1..line_count of one file.
type List []LineAttribution

// Validate checks the invariant every C5 operation must restore:
// ranges sorted, disjoint, start_line well-formed, and collectively
// covering exactly 1..lineCount (or empty when lineCount is 0).
func (l List) Validate(lineCount int) error {
	expected := 1
	for i, r := range l {
		if r.StartLine != expected {
			return fmt.Errorf("attribution range %d: expected start_line %d, got %d", i, expected, r.StartLine)
		}
		if r.EndLine < r.StartLine {
			return fmt.Errorf("attribution range %d: end_line %d before start_line %d", i, r.EndLine, r.StartLine)
		}
		expected = r.EndLine + 1
	}
	if expected-1 != lineCount {
		return fmt.Errorf("attribution ranges cover 1..%d, want 1..%d", expected-1, lineCount)
	}
	return nil
}

// AuthorAt returns the author of the given 1-based line, if covered.
func (l List) AuthorAt(line int) (string, bool) {
	for _, r := range l {
		if line >= r.StartLine && line <= r.EndLine {
			return r.AuthorID, true
		}
		if line < r.StartLine {
			break
		}
	}
	return "", false
}

// expand flattens the range list into a per-line author array indexed
// 0..lineCount-1, with "" for uncovered lines.
func (l List) expand(lineCount int) []string {
	authors := make([]string, lineCount)
	for _, r := range l {
		for i := r.StartLine; i <= r.EndLine && i <= lineCount; i++ {
			authors[i-1] = r.AuthorID
		}
	}
	return authors
}

// collapse groups consecutive lines sharing both author and overrode
// into single ranges, the inverse of expand.
func collapse(authors, overrides []string) List {
	var out List
	i := 0
	for i < len(authors) {
		if authors[i] == "" {
			i++
			continue
		}
		start := i
		for i+1 < len(authors) && authors[i+1] == authors[start] && overrides[i+1] == overrides[start] {
			i++
		}
		out = append(out, LineAttribution{
			StartLine: start + 1,
			EndLine:   i + 1,
			AuthorID:  authors[start],
			Overrode:  overrides[start],
		})
		i++
	}
	return out
}

// ApplyEdit produces the new range list for a file edited by editorID,
// given the line diff between oldLines and newLines and the prior
// attribution state (per spec §4.5 apply_edit). Added lines acquire
// author_id = editorID. Surviving lines retain their prior author.
// Deleted lines drop their entries. When editorID's change replaces a
// line previously authored by someone else at the same position, the
// new range carries overrode; a pure insertion next to a deletion does
// not.
func ApplyEdit(prev List, oldLines, newLines []string, editorID string) List {
	oldAuthors := prev.expand(len(oldLines))
	hunks := diffmove.DiffLines(joinLines(oldLines), joinLines(newLines))

	newAuthors := make([]string, len(newLines))
	newOverrides := make([]string, len(newLines))

	// Walk hunks grouping consecutive non-context runs into change
	// blocks, pairing deletions with insertions positionally within a
	// block to detect same-line replacement (TransformAttribution's
	// matched/unmatched idiom, applied at the hunk level instead of a
	// full LCS since DiffLines already aligns the common lines).
	i := 0
	for i < len(hunks) {
		h := hunks[i]
		if h.Kind == diffmove.Context {
			if h.NewLineNo >= 1 && h.NewLineNo <= len(newLines) && h.OldLineNo >= 1 && h.OldLineNo <= len(oldLines) {
				newAuthors[h.NewLineNo-1] = oldAuthors[h.OldLineNo-1]
			}
			i++
			continue
		}

		var dels, adds []diffmove.Hunk
		j := i
		for j < len(hunks) && hunks[j].Kind != diffmove.Context {
			if hunks[j].Kind == diffmove.Del {
				dels = append(dels, hunks[j])
			} else {
				adds = append(adds, hunks[j])
			}
			j++
		}

		paired := len(dels)
		if len(adds) < paired {
			paired = len(adds)
		}
		for k := 0; k < paired; k++ {
			addLine := adds[k].NewLineNo
			if addLine < 1 || addLine > len(newLines) {
				continue
			}
			prevAuthor := ""
			if dels[k].OldLineNo >= 1 && dels[k].OldLineNo <= len(oldLines) {
				prevAuthor = oldAuthors[dels[k].OldLineNo-1]
			}
			newAuthors[addLine-1] = editorID
			if prevAuthor != "" && prevAuthor != editorID {
				newOverrides[addLine-1] = prevAuthor
			}
		}
		for k := paired; k < len(adds); k++ {
			addLine := adds[k].NewLineNo
			if addLine >= 1 && addLine <= len(newLines) {
				newAuthors[addLine-1] = editorID
			}
		}

		i = j
	}

	for idx := range newAuthors {
		if newAuthors[idx] == "" {
			newAuthors[idx] = editorID
		}
	}

	return collapse(newAuthors, newOverrides)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	out := make([]byte, 0, len(lines)*32)
	for i, l := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, l...)
	}
	out = append(out, '\n')
	return string(out)
}

// ResolveAIAuthor consults the parent commit's AuthorshipLog to map a
// human-looking blame author back to the Attribution ID of the prompt
// that produced the line, when the line was in fact AI-authored. It
// returns ok=false for genuinely human lines.
type ResolveAIAuthor func(commitHash, authorName string) (attributionID string, ok bool)

// BlameSeed produces an initial range list from the source-control
// blame of path at commit (spec §4.5 blame_seed). Human authors
// collapse to their literal name; lines whose blamed commit previously
// recorded an AI attestation are mapped back to that prompt's
// Attribution ID via resolve.
func BlameSeed(ctx context.Context, repo *gitrepo.Repo, path, commit string, resolve ResolveAIAuthor) (List, error) {
	lines, err := repo.BlameFile(ctx, commit, path)
	if err != nil {
		return nil, err
	}

	authors := make([]string, len(lines))
	for i, bl := range lines {
		if resolve != nil {
			if id, ok := resolve(bl.CommitHash, bl.AuthorName); ok {
				authors[i] = id
				continue
			}
		}
		authors[i] = bl.AuthorName
	}

	overrides := make([]string, len(authors))
	return collapse(authors, overrides), nil
}

// MergeWithInitial merges a blame-derived seed with initial
// (checkpoint-staged but not yet committed) attributions: initial wins
// on any line it covers, blame fills the remaining gaps (spec §4.5
// merge_with_initial). This is how newly staged-but-unblamed content,
// e.g. after an amend, retains AI authorship.
func MergeWithInitial(seed, initial List, lineCount int) List {
	seedAuthors := seed.expand(lineCount)
	initialAuthors := initial.expand(lineCount)

	merged := make([]string, lineCount)
	overrides := make([]string, lineCount)
	for i := 0; i < lineCount; i++ {
		if initialAuthors[i] != "" {
			merged[i] = initialAuthors[i]
		} else {
			merged[i] = seedAuthors[i]
		}
	}
	return collapse(merged, overrides)
}
