package diffmove

import (
	"hash/fnv"
	"sort"
	"strings"
)

// InsertedLine is one inserted line considered as a move candidate.
type InsertedLine struct {
	Content            string
	NormalizedContent  string
	LineNumber         int
	InsertionIdx       int
}

// DeletedLine is one deleted line considered as a move candidate.
type DeletedLine struct {
	Content           string
	NormalizedContent string
	LineNumber        int
	DeletionIdx       int
}

// MoveMapping is a detected contiguous block move.
type MoveMapping struct {
	DeletionGroupIndex   int
	InsertionGroupIndex  int
	Deleted              []DeletedLine
	Inserted             []InsertedLine
}

// DetectMoves finds moved blocks of lines by matching contiguous runs
// of normalized content between deleted and inserted lines (spec
// §4.3). threshold is min_block: 0 disables move detection entirely,
// and is floored to 1 otherwise (a threshold of 1 matches single
// lines). Ported line-for-line from the reference implementation's
// detect_moves/build_groups/build_deletion_lookup.
func DetectMoves(inserted []InsertedLine, deleted []DeletedLine, threshold int) []MoveMapping {
	if threshold == 0 {
		return nil
	}
	if threshold < 1 {
		threshold = 1
	}

	sortAndNormalizeInserted(inserted)
	sortAndNormalizeDeleted(deleted)

	insertedGroups := buildInsertedGroups(inserted, threshold)
	deletedGroups := buildDeletedGroups(deleted, threshold)

	if len(insertedGroups) == 0 || len(deletedGroups) == 0 {
		return nil
	}

	lookup := buildDeletionLookup(deleted, deletedGroups)
	var mappings []MoveMapping

insertGroups:
	for insertGroupIdx, insertGroup := range insertedGroups {
		insertPos := 0
		for insertPos < len(insertGroup) {
			insertedIdx := insertGroup[insertPos]
			insertedLine := inserted[insertedIdx]
			h := hashNormalized(insertedLine.NormalizedContent)
			advanced := false

			for _, cand := range lookup[h] {
				deleteGroupIdx, deletePos := cand.groupIdx, cand.pos
				deleteGroup := deletedGroups[deleteGroupIdx]
				deleteIdx := deleteGroup[deletePos]
				deleteLine := deleted[deleteIdx]

				if insertedLine.NormalizedContent != deleteLine.NormalizedContent {
					continue
				}

				matchLen := 1
				insertIter := insertPos + 1
				deleteIter := deletePos + 1
				for insertIter < len(insertGroup) && deleteIter < len(deleteGroup) {
					ii := inserted[insertGroup[insertIter]]
					di := deleted[deleteGroup[deleteIter]]
					if ii.NormalizedContent != di.NormalizedContent {
						break
					}
					matchLen++
					insertIter++
					deleteIter++
				}

				if matchLen >= threshold {
					matchedInserted := make([]InsertedLine, matchLen)
					for i := 0; i < matchLen; i++ {
						matchedInserted[i] = inserted[insertGroup[insertPos+i]]
					}
					matchedDeleted := make([]DeletedLine, matchLen)
					for i := 0; i < matchLen; i++ {
						matchedDeleted[i] = deleted[deleteGroup[deletePos+i]]
					}

					mappings = append(mappings, MoveMapping{
						DeletionGroupIndex:  deleteGroupIdx,
						InsertionGroupIndex: insertGroupIdx,
						Deleted:             matchedDeleted,
						Inserted:            matchedInserted,
					})

					if insertIter >= len(insertGroup) {
						continue insertGroups
					}
					insertPos = insertIter
					advanced = true
					break
				}
			}

			if !advanced {
				insertPos++
			}
		}
	}

	return mappings
}

func sortAndNormalizeInserted(lines []InsertedLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNumber < lines[j].LineNumber })
	for i := range lines {
		lines[i].NormalizedContent = strings.TrimSpace(lines[i].Content)
	}
}

func sortAndNormalizeDeleted(lines []DeletedLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNumber < lines[j].LineNumber })
	for i := range lines {
		lines[i].NormalizedContent = strings.TrimSpace(lines[i].Content)
	}
}

// buildInsertedGroups groups consecutive line numbers (whitespace-only
// lines excluded from matching) into runs, discarding runs shorter
// than threshold.
func buildInsertedGroups(lines []InsertedLine, threshold int) [][]int {
	var groups [][]int
	var current []int
	lastNumber := -1
	haveLast := false

	for idx, line := range lines {
		if line.NormalizedContent == "" {
			continue
		}
		if haveLast && line.LineNumber == lastNumber+1 {
			current = append(current, idx)
		} else {
			if len(current) >= threshold {
				groups = append(groups, current)
			}
			current = []int{idx}
		}
		lastNumber = line.LineNumber
		haveLast = true
	}
	if len(current) >= threshold {
		groups = append(groups, current)
	}
	return groups
}

func buildDeletedGroups(lines []DeletedLine, threshold int) [][]int {
	var groups [][]int
	var current []int
	lastNumber := -1
	haveLast := false

	for idx, line := range lines {
		if line.NormalizedContent == "" {
			continue
		}
		if haveLast && line.LineNumber == lastNumber+1 {
			current = append(current, idx)
		} else {
			if len(current) >= threshold {
				groups = append(groups, current)
			}
			current = []int{idx}
		}
		lastNumber = line.LineNumber
		haveLast = true
	}
	if len(current) >= threshold {
		groups = append(groups, current)
	}
	return groups
}

type candidate struct {
	groupIdx int
	pos      int
}

func buildDeletionLookup(deleted []DeletedLine, deletedGroups [][]int) map[uint64][]candidate {
	lookup := make(map[uint64][]candidate)
	for groupIdx, group := range deletedGroups {
		for pos, lineIdx := range group {
			h := hashNormalized(deleted[lineIdx].NormalizedContent)
			lookup[h] = append(lookup[h], candidate{groupIdx: groupIdx, pos: pos})
		}
	}
	return lookup
}

func hashNormalized(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
