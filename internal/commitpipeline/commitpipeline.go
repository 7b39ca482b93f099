// Package commitpipeline implements the per-commit attribution
// algorithm (spec §4.6 / C6): for every changed, non-ignored file it
// combines move detection, the parent commit's AuthorshipLog, and the
// working log's checkpoint trail to attribute every inserted line,
// then emits a new AuthorshipLog and updates PromptRecord counters.
// Grounded on the teacher's strategy/manual_commit_attribution.go for
// the go-git tree-diffing and diffmatchpatch line-diff idiom, adapted
// from its percentage-heuristic model to the spec's per-line
// attestation model.
package commitpipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/git-ai/git-ai/internal/attribution"
	"github.com/git-ai/git-ai/internal/authormodel"
	"github.com/git-ai/git-ai/internal/authorshiplog"
	"github.com/git-ai/git-ai/internal/config"
	"github.com/git-ai/git-ai/internal/diffmove"
	"github.com/git-ai/git-ai/internal/gitrepo"
	"github.com/git-ai/git-ai/internal/ignore"
	"github.com/git-ai/git-ai/internal/promptstore"
	"github.com/git-ai/git-ai/internal/workinglog"
)

// Stats is the caller-facing summary of one commit's attribution (spec
// §4.6 "Stats output"), not part of the persisted AuthorshipLog.
type Stats struct {
	HumanAdditions      int
	MixedAdditions      int
	AIAdditions         int
	AIAccepted          int
	TotalAIAdditions    int
	TotalAIDeletions    int
	GitDiffAddedLines   int
	GitDiffDeletedLines int
	TimeWaitingForAI    time.Duration
	ToolModelBreakdown  map[string]int
}

// timeWaitingForAI sums the elapsed time between a human checkpoint and
// the next AI checkpoint that immediately follows it, across the whole
// working log — the interval during which the human was, in effect,
// waiting on the agent.
func timeWaitingForAI(checkpoints []workinglog.Checkpoint) time.Duration {
	var total time.Duration
	for i := 1; i < len(checkpoints); i++ {
		prev, cur := checkpoints[i-1], checkpoints[i]
		if prev.Kind == workinglog.Human && cur.Kind != workinglog.Human {
			if d := cur.Timestamp.Sub(prev.Timestamp); d > 0 {
				total += d
			}
		}
	}
	return total
}

// Pipeline runs the commit attribution algorithm against a repo.
type Pipeline struct {
	Repo            *gitrepo.Repo
	Ignore          *ignore.Matcher
	Config          *config.Config
	AuthorshipStore *authorshiplog.Store
	PromptStore     *promptstore.Store // nil-safe: counters are skipped when absent
}

// New constructs a Pipeline.
func New(repo *gitrepo.Repo, matcher *ignore.Matcher, cfg *config.Config, authStore *authorshiplog.Store, promptStore *promptstore.Store) *Pipeline {
	return &Pipeline{Repo: repo, Ignore: matcher, Config: cfg, AuthorshipStore: authStore, PromptStore: promptStore}
}

// ProcessCommit runs the spec §4.6 algorithm for a single new commit
// against its parent, using wlog for checkpoint-derived attribution.
// humanAuthorID is the Attribution-ID sentinel ("human") unless the
// commit has no human author recorded, which never happens in
// practice for git commits.
func (p *Pipeline) ProcessCommit(ctx context.Context, parentSHA, commitSHA string, wlog *workinglog.WorkingLog) (*Stats, error) {
	stats := &Stats{ToolModelBreakdown: map[string]int{}}

	changedFiles, err := p.changedFiles(ctx, parentSHA, commitSHA)
	if err != nil {
		return nil, err
	}

	parentLog, _, err := p.loadAuthorshipLog(ctx, parentSHA)
	if err != nil {
		return nil, err
	}

	checkpoints, err := wlog.ReadAllCheckpoints()
	if err != nil {
		return nil, fmt.Errorf("reading working log checkpoints: %w", err)
	}

	stats.TimeWaitingForAI = timeWaitingForAI(checkpoints)

	newLog := authormodel.New(commitSHA)

	for _, path := range changedFiles {
		if p.Ignore != nil && p.Ignore.Match(path) {
			continue
		}

		oldContent, _ := p.fileContent(parentSHA, path)
		newContent, _ := p.fileContent(commitSHA, path)
		if isBinary(oldContent) || isBinary(newContent) {
			continue
		}

		oldLines := splitLines(oldContent)
		newLines := splitLines(newContent)

		entry, fileStats := p.attributeFile(path, oldLines, newLines, parentLog, checkpoints, newLog)
		if entry != nil {
			newLog.Attestations = append(newLog.Attestations, *entry)
		}

		stats.GitDiffAddedLines += fileStats.added
		stats.GitDiffDeletedLines += fileStats.deleted
		stats.MixedAdditions += fileStats.mixedAdditions
		stats.AIAdditions += fileStats.aiAdditions
		stats.AIAccepted += fileStats.aiAccepted
	}

	// spec §4.6: human_additions = git_diff_added_lines - ai_accepted,
	// never negative.
	stats.HumanAdditions = stats.GitDiffAddedLines - stats.AIAccepted
	if stats.HumanAdditions < 0 {
		stats.HumanAdditions = 0
	}

	for id, rec := range newLog.Metadata.Prompts {
		stats.TotalAIAdditions += rec.Counters.TotalAdditions
		stats.TotalAIDeletions += rec.Counters.TotalDeletions
		key := rec.Agent.Tool + "/" + rec.Agent.Model
		stats.ToolModelBreakdown[key]++
		if p.PromptStore != nil {
			if err := p.PromptStore.AccumulateCounters(ctx, id, rec.Counters); err != nil {
				return nil, err
			}
		}
	}

	if p.AuthorshipStore != nil {
		if err := p.AuthorshipStore.Save(ctx, newLog); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

type fileStats struct {
	added, deleted                                int
	humanAdditions, mixedAdditions, aiAdditions    int
	aiAccepted                                     int
}

// attributeFile runs spec §4.6 steps 2-6 for a single file, returning
// the commit's FileAttestation for it (nil if every line is human) and
// accumulating into newLog.Metadata.Prompts.
func (p *Pipeline) attributeFile(path string, oldLines, newLines []string, parentLog *authormodel.AuthorshipLog, checkpoints []workinglog.Checkpoint, newLog *authormodel.AuthorshipLog) (*authormodel.FileAttestation, fileStats) {
	hunks := diffmove.DiffLines(joinLines(oldLines), joinLines(newLines))

	var inserted []diffmove.InsertedLine
	var deleted []diffmove.DeletedLine
	insIdx, delIdx := 0, 0
	for _, h := range hunks {
		switch h.Kind {
		case diffmove.Add:
			inserted = append(inserted, diffmove.InsertedLine{
				Content: h.Text, NormalizedContent: normalize(h.Text), LineNumber: h.NewLineNo, InsertionIdx: insIdx,
			})
			insIdx++
		case diffmove.Del:
			deleted = append(deleted, diffmove.DeletedLine{
				Content: h.Text, NormalizedContent: normalize(h.Text), LineNumber: h.OldLineNo, DeletionIdx: delIdx,
			})
			delIdx++
		}
	}

	stats := fileStats{added: len(inserted), deleted: len(deleted)}

	minBlock := 3
	if p.Config != nil {
		minBlock = p.Config.MoveDetectionMinBlock
	}
	moves := diffmove.DetectMoves(inserted, deleted, minBlock)

	moveAuthorForLine := make(map[int]string)
	parentAuthorAt := p.parentLineAuthorFunc(path, parentLog, len(oldLines))
	for _, m := range moves {
		n := len(m.Inserted)
		if len(m.Deleted) < n {
			n = len(m.Deleted)
		}
		for i := 0; i < n; i++ {
			moveAuthorForLine[m.Inserted[i].LineNumber] = parentAuthorAt(m.Deleted[i].LineNumber)
		}
	}

	checkpointAuthorAt, checkpointOverrodeAt := latestCheckpointAuthorFunc(path, checkpoints, len(newLines))

	newAuthors := make([]string, len(newLines))
	mixed := make([]bool, len(newLines))
	for i := range newAuthors {
		lineNo := i + 1
		switch {
		case moveAuthorForLine[lineNo] != "":
			newAuthors[i] = moveAuthorForLine[lineNo]
		case checkpointAuthorAt(lineNo) != "":
			newAuthors[i] = checkpointAuthorAt(lineNo)
			mixed[i] = checkpointOverrodeAt(lineNo) != ""
		default:
			newAuthors[i] = string(authormodel.Human)
		}
	}

	// ai_additions vs mixed_additions (DESIGN.md open-question decision):
	// a line survives as ai_additions only if its final overrode chain is
	// empty; any non-empty overrode chain reclassifies it as
	// mixed_additions. Both count toward ai_accepted.
	for i, a := range newAuthors {
		switch {
		case a == string(authormodel.Human):
			stats.humanAdditions++
		case mixed[i]:
			stats.mixedAdditions++
			stats.aiAccepted++
		default:
			stats.aiAdditions++
			stats.aiAccepted++
		}
	}

	entries := collapseAuthorRuns(newAuthors)
	if len(entries) == 0 {
		return nil, stats
	}

	for _, e := range entries {
		id := authormodel.AttributionID(e.Hash)
		if id.IsHuman() {
			continue
		}
		if _, ok := newLog.Metadata.Prompts[id]; !ok {
			if rec, ok := promptRecordFromCheckpoints(id, checkpoints); ok {
				newLog.Metadata.Prompts[id] = rec
			} else {
				newLog.Metadata.Prompts[id] = authormodel.PromptRecord{ID: id}
			}
		}
		rec := newLog.Metadata.Prompts[id]
		lines := e.EndLine - e.StartLine + 1
		rec.Counters.TotalAdditions += lines
		rec.Counters.AcceptedLines += lines
		newLog.Metadata.Prompts[id] = rec
	}

	return &authormodel.FileAttestation{FilePath: path, Entries: entries}, stats
}

// parentLineAuthorFunc returns a lookup from old-side line number to
// Attribution ID ("human" for gaps), built from the parent commit's
// AuthorshipLog attestation for path.
func (p *Pipeline) parentLineAuthorFunc(path string, parentLog *authormodel.AuthorshipLog, lineCount int) func(int) string {
	if parentLog == nil || lineCount == 0 {
		return func(int) string { return string(authormodel.Human) }
	}
	var entries []authormodel.AttestationEntry
	for _, fa := range parentLog.Attestations {
		if fa.FilePath == path {
			entries = fa.Entries
			break
		}
	}
	list := fillHumanGaps(entries, lineCount)
	return func(line int) string {
		author, ok := list.AuthorAt(line)
		if !ok {
			return string(authormodel.Human)
		}
		return author
	}
}

// latestCheckpointAuthorFunc returns lookups from new-side line number
// to Attribution ID and to its override chain, using the most recent
// checkpoint entry for path (spec §4.6 tie-break: latest checkpoint
// wins).
func latestCheckpointAuthorFunc(path string, checkpoints []workinglog.Checkpoint, lineCount int) (authorAt, overrodeAt func(int) string) {
	var latest *attribution.List
	for i := len(checkpoints) - 1; i >= 0; i-- {
		for _, e := range checkpoints[i].Entries {
			if e.FilePath == path {
				l := e.Attributions
				latest = &l
				break
			}
		}
		if latest != nil {
			break
		}
	}
	if latest == nil {
		none := func(int) string { return "" }
		return none, none
	}
	find := func(line int) (attribution.LineAttribution, bool) {
		if line < 1 || line > lineCount {
			return attribution.LineAttribution{}, false
		}
		for _, r := range *latest {
			if line >= r.StartLine && line <= r.EndLine {
				return r, true
			}
		}
		return attribution.LineAttribution{}, false
	}
	authorAt = func(line int) string {
		r, ok := find(line)
		if !ok {
			return ""
		}
		return r.AuthorID
	}
	overrodeAt = func(line int) string {
		r, ok := find(line)
		if !ok {
			return ""
		}
		return r.Overrode
	}
	return authorAt, overrodeAt
}

func promptRecordFromCheckpoints(id authormodel.AttributionID, checkpoints []workinglog.Checkpoint) (authormodel.PromptRecord, bool) {
	for i := len(checkpoints) - 1; i >= 0; i-- {
		if checkpoints[i].AgentID == string(id) {
			return authormodel.PromptRecord{ID: id, Agent: authormodel.AgentDescriptor{Tool: checkpoints[i].AgentID}}, true
		}
	}
	return authormodel.PromptRecord{}, false
}

// fillHumanGaps converts a sparse AI attestation list into a fully
// covering attribution.List by filling every uncovered line with the
// human sentinel (human is implicit and never attested directly).
func fillHumanGaps(entries []authormodel.AttestationEntry, lineCount int) attribution.List {
	covered := make([]string, lineCount)
	for _, e := range entries {
		for l := e.StartLine; l <= e.EndLine && l <= lineCount; l++ {
			if l >= 1 {
				covered[l-1] = string(e.Hash)
			}
		}
	}
	for i := range covered {
		if covered[i] == "" {
			covered[i] = string(authormodel.Human)
		}
	}
	return collapseAuthorList(covered)
}

func collapseAuthorList(authors []string) attribution.List {
	var list attribution.List
	start := 0
	for i := 1; i <= len(authors); i++ {
		if i == len(authors) || authors[i] != authors[start] {
			list = append(list, attribution.LineAttribution{StartLine: start + 1, EndLine: i, AuthorID: authors[start]})
			start = i
		}
	}
	return list
}

func collapseAuthorRuns(authors []string) []authormodel.AttestationEntry {
	var entries []authormodel.AttestationEntry
	start := 0
	for i := 1; i <= len(authors); i++ {
		if i == len(authors) || authors[i] != authors[start] {
			if authors[start] != string(authormodel.Human) {
				entries = append(entries, authormodel.AttestationEntry{
					Hash: authormodel.AttributionID(authors[start]), StartLine: start + 1, EndLine: i,
				})
			}
			start = i
		}
	}
	return entries
}

func (p *Pipeline) changedFiles(ctx context.Context, from, to string) ([]string, error) {
	out, err := p.Repo.DiffNameStatus(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..%s: %w", from, to, err)
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		paths = append(paths, fields[len(fields)-1])
	}
	sort.Strings(paths)
	return paths, nil
}

func (p *Pipeline) fileContent(commitSHA, path string) (string, bool) {
	data, ok, err := p.Repo.FileAtCommit(commitSHA, path)
	if err != nil || !ok {
		return "", false
	}
	return string(data), true
}

func (p *Pipeline) loadAuthorshipLog(ctx context.Context, sha string) (*authormodel.AuthorshipLog, bool, error) {
	if p.AuthorshipStore == nil || sha == "" {
		return nil, false, nil
	}
	return p.AuthorshipStore.Load(ctx, sha)
}

func isBinary(content string) bool { return strings.Contains(content, "\x00") }

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func normalize(s string) string { return strings.TrimSpace(s) }
