// Package authormodel holds the data types shared across the
// authorship-tracking pipeline (spec §3): Attribution IDs, prompt
// records, transcript messages, and the AuthorshipLog shape persisted
// by C9 and produced by C6/C7. Centralising these avoids a dependency
// cycle between internal/workinglog, internal/commitpipeline,
// internal/rewrite, internal/authorshiplog, and internal/promptstore,
// all of which need the same vocabulary.
package authormodel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// AttributionID names the author of a line: either the sentinel Human
// or a 16-hex-character content hash of a prompt's agent descriptor.
type AttributionID string

// Human is the sentinel Attribution ID for human-authored lines.
const Human AttributionID = "human"

// IsHuman reports whether id is the human sentinel.
func (id AttributionID) IsHuman() bool { return id == Human }

// IsLegacy reports whether id is a pre-upgrade 7-hex-character id that
// must be rehashed to 16 characters on next write (spec §9).
func (id AttributionID) IsLegacy() bool {
	return id != Human && len(id) == 7 && isHex(string(id))
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// AgentDescriptor identifies the tool, session, and model that
// produced a prompt.
type AgentDescriptor struct {
	Tool      string `json:"tool"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

// NewAttributionID derives the content-hash Attribution ID for an
// agent descriptor: the first 16 hex characters of the SHA-256 of its
// canonical JSON encoding.
func NewAttributionID(agent AgentDescriptor) AttributionID {
	data, _ := json.Marshal(agent)
	sum := sha256.Sum256(data)
	return AttributionID(hex.EncodeToString(sum[:])[:16])
}

// MessageKind is the transcript message sum type (spec §3).
type MessageKind string

const (
	MessageUser      MessageKind = "user"
	MessageAssistant MessageKind = "assistant"
	MessageThinking  MessageKind = "thinking"
	MessagePlan      MessageKind = "plan"
	MessageToolUse   MessageKind = "tool_use"
)

// Message is one transcript entry. ToolName/ToolInput are populated
// only for MessageToolUse. Tool results are never represented here —
// they are system output, not a message a human or model authored.
type Message struct {
	Kind      MessageKind     `json:"kind"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Text      string          `json:"text,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
}

// PromptCounters are the running totals reconciled at commit time
// (spec §3 PromptRecord, §4.6 step 6).
type PromptCounters struct {
	TotalAdditions  int `json:"total_additions"`
	TotalDeletions  int `json:"total_deletions"`
	AcceptedLines   int `json:"accepted_lines"`
	OverriddenLines int `json:"overridden_lines"`
}

// PromptRecord is the full record for one AI prompt, keyed by its
// Attribution ID.
type PromptRecord struct {
	ID          AttributionID   `json:"id"`
	Agent       AgentDescriptor `json:"agent"`
	HumanAuthor string          `json:"human_author,omitempty"`
	Transcript  []Message       `json:"transcript"`
	Counters    PromptCounters  `json:"counters"`
	URL         string          `json:"url,omitempty"`
}

// Validate checks the reconciliation invariant: accepted plus
// overridden lines can never exceed total additions.
func (p PromptRecord) Validate() error {
	if p.Counters.AcceptedLines+p.Counters.OverriddenLines > p.Counters.TotalAdditions {
		return fmt.Errorf("prompt %s: accepted(%d)+overridden(%d) exceeds total_additions(%d)",
			p.ID, p.Counters.AcceptedLines, p.Counters.OverriddenLines, p.Counters.TotalAdditions)
	}
	return nil
}

// AttestationEntry is one contiguous run of lines in a committed file
// attributed to a single Attribution ID.
type AttestationEntry struct {
	Hash      AttributionID `json:"hash"`
	StartLine int           `json:"start_line"`
	EndLine   int           `json:"end_line"`
}

// FileAttestation is the per-file attestation list for one commit.
type FileAttestation struct {
	FilePath string             `json:"file_path"`
	Entries  []AttestationEntry `json:"entries"`
}

// AuthorshipMetadata carries every PromptRecord referenced by the
// log's attestations.
type AuthorshipMetadata struct {
	Prompts map[AttributionID]PromptRecord `json:"prompts"`
}

// SchemaVersion is the current on-disk AuthorshipLog schema version.
const SchemaVersion = 1

// AuthorshipLog is the per-commit output attached to a commit SHA in
// the git-notes namespace (spec §3 AuthorshipLog, §4.6 step 7).
type AuthorshipLog struct {
	SchemaVersion int               `json:"schema_version"`
	CommitSHA     string            `json:"commit_sha"`
	Attestations  []FileAttestation `json:"attestations"`
	Metadata      AuthorshipMetadata `json:"metadata"`
}

// New creates an empty AuthorshipLog for commitSHA at the current
// schema version.
func New(commitSHA string) *AuthorshipLog {
	return &AuthorshipLog{
		SchemaVersion: SchemaVersion,
		CommitSHA:     commitSHA,
		Metadata:      AuthorshipMetadata{Prompts: map[AttributionID]PromptRecord{}},
	}
}

// Validate checks the AuthorshipLog invariant: every hash referenced
// by an attestation entry appears in metadata.prompts, and the human
// sentinel never appears in either (human is implicit; human-only
// files produce no attestation entry at all).
func (l *AuthorshipLog) Validate() error {
	for _, fa := range l.Attestations {
		for _, e := range fa.Entries {
			if e.Hash.IsHuman() {
				return fmt.Errorf("file %s: attestation entry references the human sentinel, which must not appear in a log", fa.FilePath)
			}
			if _, ok := l.Metadata.Prompts[e.Hash]; !ok {
				return fmt.Errorf("file %s: attestation references unknown prompt %s", fa.FilePath, e.Hash)
			}
			if e.EndLine < e.StartLine {
				return fmt.Errorf("file %s: entry end_line %d before start_line %d", fa.FilePath, e.EndLine, e.StartLine)
			}
		}
	}
	return nil
}

// Marshal serializes the log to its canonical on-disk JSON form.
func (l *AuthorshipLog) Marshal() ([]byte, error) {
	return json.Marshal(l)
}

// Unmarshal parses a log from its on-disk JSON form.
func Unmarshal(data []byte) (*AuthorshipLog, error) {
	var l AuthorshipLog
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing authorship log: %w", err)
	}
	if l.Metadata.Prompts == nil {
		l.Metadata.Prompts = map[AttributionID]PromptRecord{}
	}
	return &l, nil
}
