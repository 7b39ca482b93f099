// Package diffmove implements the line diff and move detection
// component (spec §4.3 / C3). Line diffing is built on the teacher's
// DiffLinesToChars/DiffCharsToLines idiom (sergi/go-diff); move
// detection is a direct port of the reference implementation's
// contiguous-run matcher (original_source/crates/git-ai/src/
// authorship/move_detection.rs).
package diffmove

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// HunkKind classifies a line hunk.
type HunkKind int

const (
	Context HunkKind = iota
	Add
	Del
)

// Hunk is one line of a line-level diff between two file revisions.
type Hunk struct {
	OldLineNo int // 1-based; 0 if the line does not exist on the old side
	NewLineNo int // 1-based; 0 if the line does not exist on the new side
	Kind      HunkKind
	Text      string
}

// DiffLines produces a classical line-level diff between oldText and
// newText, using diffmatchpatch's line-to-chars/chars-to-lines trick
// (the teacher's diffLines idiom) so the underlying Myers diff
// operates on whole lines rather than characters.
func DiffLines(oldText, newText string) []Hunk {
	dmp := diffmatchpatch.New()
	c1, c2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var hunks []Hunk
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		lines := splitKeepLines(d.Text)
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				hunks = append(hunks, Hunk{OldLineNo: oldLine, NewLineNo: newLine, Kind: Context, Text: line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				hunks = append(hunks, Hunk{OldLineNo: oldLine, Kind: Del, Text: line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				hunks = append(hunks, Hunk{NewLineNo: newLine, Kind: Add, Text: line})
				newLine++
			}
		}
	}
	return hunks
}

// splitKeepLines splits text on "\n", keeping each line without its
// trailing newline, and drops the final empty element produced by a
// trailing newline (mirroring countLinesStr's line-counting rule).
func splitKeepLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
