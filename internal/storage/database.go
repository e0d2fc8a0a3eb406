package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/leetrack/internal/domain"
	"github.com/conorfennell/leetrack/internal/schedule"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps the SQL database connection and owns the configured interval
// policy. All mutations are durable before the call returns.
type DB struct {
	conn   *sql.DB
	policy schedule.IntervalPolicy

	// now is the store's clock; swapped out in tests.
	now func() time.Time
}

// Open creates a new database connection, ensures the schema is up to date
// and binds the interval policy used by MarkSolved.
//
// Transactions take the write lock at BEGIN (_txlock=immediate) and writers
// wait on the busy timeout rather than failing mid-transaction on a lock
// upgrade, so concurrent mutations of the same row serialize instead of
// surfacing SQLITE_BUSY.
func Open(dsn string, policy schedule.IntervalPolicy) (*DB, error) {
	if !strings.Contains(dsn, "?") {
		dsn = "file:" + dsn + "?_txlock=immediate&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db, policy: policy, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// NormalizeURL trims surrounding whitespace from a source URL. Uniqueness
// on top of that is case-insensitive, enforced by the NOCASE collation on
// the source_url column.
func NormalizeURL(raw string) string {
	return strings.TrimSpace(raw)
}

// Create inserts a new question. The new row has no schedule: last_solved
// and next_review stay NULL, so the question is due immediately.
//
// Uniqueness of the normalized URL rests on the unique index alone: the
// insert is a single atomic statement, so of two concurrent creates with
// the same URL exactly one succeeds and the other observes the constraint
// violation as domain.ErrConflict.
func (db *DB) Create(ctx context.Context, title, sourceURL string, difficulty domain.Difficulty) (*domain.Question, error) {
	title = strings.TrimSpace(title)
	sourceURL = NormalizeURL(sourceURL)
	if title == "" || sourceURL == "" {
		return nil, fmt.Errorf("%w: title and sourceURL must be non-empty", domain.ErrInvalidArgument)
	}
	if _, ok := domain.ParseDifficulty(string(difficulty)); !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidArgument, difficulty)
	}

	createdAt := db.now().UTC()
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO questions (title, source_url, difficulty, solve_count, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, title, sourceURL, string(difficulty), createdAt)
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, domain.ErrConflict) {
			return nil, fmt.Errorf("question with URL %s: %w", sourceURL, domain.ErrConflict)
		}
		return nil, fmt.Errorf("failed to insert question %s: %w", sourceURL, classified)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get insert ID for question %s: %w", sourceURL, classify(err))
	}

	return &domain.Question{
		ID:         id,
		Title:      title,
		SourceURL:  sourceURL,
		Difficulty: difficulty,
		CreatedAt:  createdAt,
	}, nil
}

// ListFilter narrows and orders a List call.
type ListFilter struct {
	// DueOnly keeps only questions whose next review is at or before DueAt,
	// plus questions that have never been scheduled. It also switches the
	// ordering to next_review ascending so the most overdue come first.
	DueOnly bool
	DueAt   time.Time

	// TitleContains keeps questions whose title contains the substring,
	// case-insensitively.
	TitleContains string
}

// List returns all live questions matching the filter. Default order is
// created_at descending.
func (db *DB) List(ctx context.Context, filter ListFilter) ([]domain.Question, error) {
	query := `
		SELECT id, title, source_url, difficulty, last_solved, next_review, solve_count, created_at
		FROM questions
	`
	var conds []string
	var args []any

	if filter.DueOnly {
		dueAt := filter.DueAt
		if dueAt.IsZero() {
			dueAt = db.now()
		}
		conds = append(conds, `(next_review IS NULL OR next_review <= ?)`)
		args = append(args, dueAt.UTC())
	}
	if filter.TitleContains != "" {
		conds = append(conds, `instr(lower(title), lower(?)) > 0`)
		args = append(args, filter.TitleContains)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if filter.DueOnly {
		// SQLite sorts NULLs first in ascending order, which puts
		// never-scheduled questions ahead of the most overdue.
		query += " ORDER BY next_review ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", classify(err))
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", classify(err))
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question rows: %w", classify(err))
	}
	return questions, nil
}

// Find returns the question with the given ID, or domain.ErrNotFound.
func (db *DB) Find(ctx context.Context, id int64) (*domain.Question, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, title, source_url, difficulty, last_solved, next_review, solve_count, created_at
		FROM questions WHERE id = ?
	`, id)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find question %d: %w", id, classify(err))
	}
	return q, nil
}

// Delete permanently removes a question. Deleting an ID that has no live
// row, including a repeat of a successful delete, returns domain.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete question %d: %w", id, classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for question %d: %w", id, classify(err))
	}
	if affected == 0 {
		return fmt.Errorf("question %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkSolved records a solve: it sets last_solved to now, advances
// next_review by the configured policy's interval and increments the solve
// count, all in a single transaction, then returns the post-update image.
// weeks must be >= 1 even under policies that ignore it.
func (db *DB) MarkSolved(ctx context.Context, id int64, weeks int) (*domain.Question, error) {
	if weeks < 1 {
		return nil, fmt.Errorf("%w: interval weeks must be a positive integer, got %d", domain.ErrInvalidArgument, weeks)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin mark-solved transaction: %w", classify(err))
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, title, source_url, difficulty, last_solved, next_review, solve_count, created_at
		FROM questions WHERE id = ?
	`, id)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read question %d: %w", id, classify(err))
	}

	interval, err := db.policy.Interval(*q, weeks)
	if err != nil {
		return nil, fmt.Errorf("failed to compute interval for question %d: %w", id, err)
	}

	solvedAt := db.now().UTC()
	nextReview := schedule.NextReviewAt(solvedAt, interval)
	_, err = tx.ExecContext(ctx, `
		UPDATE questions
		SET last_solved = ?, next_review = ?, solve_count = solve_count + 1
		WHERE id = ?
	`, solvedAt, nextReview, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update question %d: %w", id, classify(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mark-solved for question %d: %w", id, classify(err))
	}

	q.LastSolvedAt = &solvedAt
	q.NextReviewAt = &nextReview
	q.SolveCount++
	return q, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s scanner) (*domain.Question, error) {
	var q domain.Question
	var difficulty string
	var lastSolved, nextReview sql.NullTime
	err := s.Scan(
		&q.ID,
		&q.Title,
		&q.SourceURL,
		&difficulty,
		&lastSolved,
		&nextReview,
		&q.SolveCount,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Difficulty = domain.Difficulty(difficulty)
	if lastSolved.Valid {
		t := lastSolved.Time
		q.LastSolvedAt = &t
	}
	if nextReview.Valid {
		t := nextReview.Time
		q.NextReviewAt = &t
	}
	return &q, nil
}

// classify maps driver errors onto the domain error taxonomy. Anything that
// is not a recognizable constraint or missing-row condition is treated as
// the storage backend being unavailable; the driver detail is preserved as
// text, not exposed verbatim to API callers.
func classify(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return domain.ErrConflict
	case strings.Contains(err.Error(), "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
}
