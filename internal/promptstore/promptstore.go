// Package promptstore implements the internal SQLite prompt database
// (spec §4.10 / C10): a `prompts` table keyed by Attribution ID with
// latest-write-wins transcript merge and accumulating commit counters,
// and a single-row `pointers` cursor for the `prompts next` CLI
// consumer. Schema and pure-Go-driver usage are grounded on
// JensRoland-blamebot's internal/index/index.go.
package promptstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/git-ai/git-ai/internal/authormodel"
)

// Store wraps the single SQLite connection backing the prompt
// database. The driver serialises writes internally; callers do not
// need an additional lock (spec §5).
type Store struct {
	db *sql.DB
}

// Open creates path's parent directory if needed and opens (creating
// on first use) the prompts database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating prompt store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening prompt store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS prompts (
			attribution_id   TEXT PRIMARY KEY,
			tool             TEXT NOT NULL,
			session_id       TEXT NOT NULL,
			model            TEXT NOT NULL,
			human_author     TEXT,
			url              TEXT,
			transcript       TEXT NOT NULL DEFAULT '[]',
			total_additions  INTEGER NOT NULL DEFAULT 0,
			total_deletions  INTEGER NOT NULL DEFAULT 0,
			accepted_lines   INTEGER NOT NULL DEFAULT 0,
			overridden_lines INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("creating prompts table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS pointers (
			id     INTEGER PRIMARY KEY CHECK (id = 1),
			cursor TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("creating pointers table: %w", err)
	}

	_, err = s.db.Exec(`INSERT OR IGNORE INTO pointers (id, cursor) VALUES (1, '')`)
	if err != nil {
		return fmt.Errorf("seeding pointers row: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// UpsertTranscript inserts or updates a prompts row for a checkpoint
// carrying an agent_id. The transcript replaces any existing one only
// when non-empty — a later, richer transcript always wins, but a
// later checkpoint racing with an empty transcript file never
// clobbers an earlier, populated one (spec §4.10 dedup rule).
func (s *Store) UpsertTranscript(ctx context.Context, rec authormodel.PromptRecord) error {
	transcript, err := json.Marshal(rec.Transcript)
	if err != nil {
		return fmt.Errorf("marshaling transcript for %s: %w", rec.ID, err)
	}

	existing, ok, err := s.get(ctx, rec.ID)
	if err != nil {
		return err
	}

	if ok && len(rec.Transcript) == 0 {
		transcript, err = json.Marshal(existing.Transcript)
		if err != nil {
			return fmt.Errorf("re-marshaling existing transcript for %s: %w", rec.ID, err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO prompts (attribution_id, tool, session_id, model, human_author, url, transcript)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(attribution_id) DO UPDATE SET
			tool = excluded.tool,
			session_id = excluded.session_id,
			model = excluded.model,
			human_author = excluded.human_author,
			url = excluded.url,
			transcript = excluded.transcript
	`, string(rec.ID), rec.Agent.Tool, rec.Agent.SessionID, rec.Agent.Model, rec.HumanAuthor, rec.URL, string(transcript))
	if err != nil {
		return fmt.Errorf("upserting prompt %s: %w", rec.ID, err)
	}
	return nil
}

// AccumulateCounters adds delta onto the stored counters for id,
// inserting a bare row first if no checkpoint has registered a
// transcript for it yet.
func (s *Store) AccumulateCounters(ctx context.Context, id authormodel.AttributionID, delta authormodel.PromptCounters) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompts (attribution_id, tool, session_id, model, total_additions, total_deletions, accepted_lines, overridden_lines)
		VALUES (?, '', '', '', ?, ?, ?, ?)
		ON CONFLICT(attribution_id) DO UPDATE SET
			total_additions  = total_additions  + excluded.total_additions,
			total_deletions  = total_deletions  + excluded.total_deletions,
			accepted_lines   = accepted_lines   + excluded.accepted_lines,
			overridden_lines = overridden_lines + excluded.overridden_lines
	`, string(id), delta.TotalAdditions, delta.TotalDeletions, delta.AcceptedLines, delta.OverriddenLines)
	if err != nil {
		return fmt.Errorf("accumulating counters for %s: %w", id, err)
	}
	return nil
}

// Get returns the stored prompt record for id.
func (s *Store) Get(ctx context.Context, id authormodel.AttributionID) (authormodel.PromptRecord, bool, error) {
	return s.get(ctx, id)
}

func (s *Store) get(ctx context.Context, id authormodel.AttributionID) (authormodel.PromptRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT attribution_id, tool, session_id, model, human_author, url, transcript,
		       total_additions, total_deletions, accepted_lines, overridden_lines
		FROM prompts WHERE attribution_id = ?
	`, string(id))

	var rec authormodel.PromptRecord
	var idStr, transcript string
	var humanAuthor, url sql.NullString
	err := row.Scan(&idStr, &rec.Agent.Tool, &rec.Agent.SessionID, &rec.Agent.Model,
		&humanAuthor, &url, &transcript,
		&rec.Counters.TotalAdditions, &rec.Counters.TotalDeletions,
		&rec.Counters.AcceptedLines, &rec.Counters.OverriddenLines)
	if err == sql.ErrNoRows {
		return authormodel.PromptRecord{}, false, nil
	}
	if err != nil {
		return authormodel.PromptRecord{}, false, fmt.Errorf("reading prompt %s: %w", id, err)
	}

	rec.ID = authormodel.AttributionID(idStr)
	rec.HumanAuthor = humanAuthor.String
	rec.URL = url.String
	if err := json.Unmarshal([]byte(transcript), &rec.Transcript); err != nil {
		return authormodel.PromptRecord{}, false, fmt.Errorf("parsing transcript for %s: %w", id, err)
	}
	return rec, true, nil
}

// Next advances the single-row iteration cursor past the given id
// (ordered by attribution_id) and returns the next record, or ok=false
// if the cursor has reached the end.
func (s *Store) Next(ctx context.Context) (authormodel.PromptRecord, bool, error) {
	var cursor string
	if err := s.db.QueryRowContext(ctx, `SELECT cursor FROM pointers WHERE id = 1`).Scan(&cursor); err != nil {
		return authormodel.PromptRecord{}, false, fmt.Errorf("reading cursor: %w", err)
	}

	var nextID string
	err := s.db.QueryRowContext(ctx, `
		SELECT attribution_id FROM prompts WHERE attribution_id > ? ORDER BY attribution_id ASC LIMIT 1
	`, cursor).Scan(&nextID)
	if err == sql.ErrNoRows {
		return authormodel.PromptRecord{}, false, nil
	}
	if err != nil {
		return authormodel.PromptRecord{}, false, fmt.Errorf("finding next prompt after cursor %q: %w", cursor, err)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE pointers SET cursor = ? WHERE id = 1`, nextID); err != nil {
		return authormodel.PromptRecord{}, false, fmt.Errorf("advancing cursor: %w", err)
	}

	rec, ok, err := s.get(ctx, authormodel.AttributionID(nextID))
	if err != nil || !ok {
		return authormodel.PromptRecord{}, false, err
	}
	return rec, true, nil
}

// ResetCursor rewinds the iteration cursor to the start.
func (s *Store) ResetCursor(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pointers SET cursor = '' WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("resetting cursor: %w", err)
	}
	return nil
}
