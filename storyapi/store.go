/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package storyapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrAlreadyVoted is returned when a voter rates the same sentence twice.
var ErrAlreadyVoted = errors.New("already voted on this sentence")

const schema = `
CREATE TABLE IF NOT EXISTS story (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sentence TEXT NOT NULL,
	added_date DATETIME DEFAULT CURRENT_TIMESTAMP,
	position INTEGER NOT NULL,
	source TEXT DEFAULT 'llm'
);

CREATE TABLE IF NOT EXISTS pending_sentences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL,
	submitter_id TEXT,
	submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	source TEXT DEFAULT 'llm',
	total_rating INTEGER DEFAULT 0,
	vote_count INTEGER DEFAULT 0,
	is_active BOOLEAN DEFAULT 1
);

CREATE TABLE IF NOT EXISTS votes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sentence_id INTEGER NOT NULL,
	voter_id TEXT NOT NULL,
	rating INTEGER NOT NULL,
	voted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (sentence_id) REFERENCES pending_sentences(id),
	UNIQUE(sentence_id, voter_id)
);
`

// Sentence is a candidate next sentence offered for voting.
type Sentence struct {
	ID            int64   `json:"id"`
	Text          string  `json:"text"`
	VotesCount    int     `json:"votes_count"`
	AverageRating float64 `json:"average_rating"`
}

// Winner is the sentence selected by a daily draw.
type Winner struct {
	Text   string
	Rating float64
	Votes  int
}

// Counts summarizes store state for the stats endpoint.
type Counts struct {
	StoryLength      int
	PendingSentences int
	VotesToday       int
}

// Store persists the story, the candidate pool, and votes in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and initializes) the story database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoryText returns the story so far as a single space-joined string.
func (s *Store) StoryText(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sentence FROM story ORDER BY position ASC`)
	if err != nil {
		return "", fmt.Errorf("querying story: %w", err)
	}
	defer rows.Close()

	var sentences []string
	for rows.Next() {
		var sentence string
		if err := rows.Scan(&sentence); err != nil {
			return "", fmt.Errorf("scanning sentence: %w", err)
		}
		sentences = append(sentences, sentence)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating story: %w", err)
	}
	return strings.Join(sentences, " "), nil
}

// AppendStory appends a sentence at the next position.
func (s *Store) AppendStory(ctx context.Context, sentence, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO story (sentence, position, source)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM story), ?)`,
		sentence, source)
	if err != nil {
		return fmt.Errorf("appending to story: %w", err)
	}
	return nil
}

// RandomPending returns a random active sentence the voter has not yet rated,
// or nil when every active sentence has been rated. The average rating is
// rounded to one decimal for display.
func (s *Store) RandomPending(ctx context.Context, voterID string) (*Sentence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, vote_count,
		       CASE WHEN vote_count > 0 THEN CAST(total_rating AS FLOAT) / vote_count ELSE 0 END
		FROM pending_sentences
		WHERE is_active = 1
		  AND id NOT IN (SELECT sentence_id FROM votes WHERE voter_id = ?)
		ORDER BY RANDOM()
		LIMIT 1`, voterID)

	var sentence Sentence
	if err := row.Scan(&sentence.ID, &sentence.Text, &sentence.VotesCount, &sentence.AverageRating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("picking pending sentence: %w", err)
	}
	sentence.AverageRating = math.Round(sentence.AverageRating*10) / 10
	return &sentence, nil
}

// VotedCount returns how many sentences the voter has rated.
func (s *Store) VotedCount(ctx context.Context, voterID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE voter_id = ?`, voterID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting votes: %w", err)
	}
	return count, nil
}

// CastVote records a rating for a sentence and folds it into the sentence
// totals. A voter gets one vote per sentence.
func (s *Store) CastVote(ctx context.Context, sentenceID int64, voterID string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be 1-5, got %d", rating)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM votes WHERE sentence_id = ? AND voter_id = ?`,
		sentenceID, voterID).Scan(&exists)
	switch {
	case err == nil:
		return ErrAlreadyVoted
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("checking prior vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO votes (sentence_id, voter_id, rating) VALUES (?, ?, ?)`,
		sentenceID, voterID, rating); err != nil {
		return fmt.Errorf("inserting vote: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pending_sentences SET total_rating = total_rating + ?, vote_count = vote_count + 1 WHERE id = ?`,
		rating, sentenceID); err != nil {
		return fmt.Errorf("updating sentence totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vote: %w", err)
	}
	return nil
}

// SubmitSentence adds a user-submitted sentence to the pool.
func (s *Store) SubmitSentence(ctx context.Context, text, submitterID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_sentences (text, submitter_id, source) VALUES (?, ?, 'user')`,
		text, submitterID)
	if err != nil {
		return 0, fmt.Errorf("inserting sentence: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting sentence id: %w", err)
	}
	return id, nil
}

// AddSentences adds generated sentences to the pool.
func (s *Store) AddSentences(ctx context.Context, texts []string, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, text := range texts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_sentences (text, source) VALUES (?, ?)`, text, source); err != nil {
			return fmt.Errorf("inserting sentence: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sentences: %w", err)
	}
	return nil
}

// PendingCount returns the number of active candidate sentences.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_sentences WHERE is_active = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting pending sentences: %w", err)
	}
	return count, nil
}

// Counts returns the stats counters.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM story`).Scan(&c.StoryLength); err != nil {
		return Counts{}, fmt.Errorf("counting story: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_sentences WHERE is_active = 1`).Scan(&c.PendingSentences); err != nil {
		return Counts{}, fmt.Errorf("counting pending sentences: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM votes WHERE DATE(voted_at) = DATE('now')`).Scan(&c.VotesToday); err != nil {
		return Counts{}, fmt.Errorf("counting today's votes: %w", err)
	}
	return c, nil
}

// SelectDailyWinner promotes the highest-rated active sentence with at least
// three votes into the story and retires it from the pool. Returns nil when
// no sentence qualifies.
func (s *Store) SelectDailyWinner(ctx context.Context) (*Winner, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, text, vote_count, CAST(total_rating AS FLOAT) / vote_count
		FROM pending_sentences
		WHERE is_active = 1 AND vote_count >= 3
		ORDER BY CAST(total_rating AS FLOAT) / vote_count DESC, vote_count DESC
		LIMIT 1`)

	var (
		id     int64
		winner Winner
	)
	if err := row.Scan(&id, &winner.Text, &winner.Votes, &winner.Rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("picking winner: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO story (sentence, position, source)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM story), 'voted')`,
		winner.Text); err != nil {
		return nil, fmt.Errorf("appending winner to story: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pending_sentences SET is_active = 0 WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("retiring winner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing winner: %w", err)
	}
	return &winner, nil
}

// PruneUnvoted deletes active sentences nobody has voted on, returning how
// many were removed.
func (s *Store) PruneUnvoted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_sentences WHERE is_active = 1 AND vote_count = 0`)
	if err != nil {
		return 0, fmt.Errorf("pruning sentences: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned sentences: %w", err)
	}
	return deleted, nil
}
