package summary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no summary has been archived.
var ErrNotFound = errors.New("summary not found")

// Archived is a stored summary.
type Archived struct {
	ID        int64
	ChildID   int64
	Month     string // YYYY-MM
	Content   string // raw Markdown as generated
	Model     string
	CreatedAt time.Time
}

// Archive persists successful summaries.
type Archive interface {
	Save(ctx context.Context, s Archived) error
	Latest(ctx context.Context, childID int64, month string) (*Archived, error)
}

// Repository is a database-backed Archive.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts a new summary.
func (r *Repository) Save(ctx context.Context, s Archived) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_summaries (child_id, month, content, model, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ChildID, s.Month, s.Content, s.Model, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save summary for child %d: %w", s.ChildID, err)
	}
	return nil
}

// Latest retrieves the most recent summary of a child's month.
func (r *Repository) Latest(ctx context.Context, childID int64, month string) (*Archived, error) {
	var s Archived
	err := r.db.QueryRowContext(ctx,
		`SELECT id, child_id, month, content, model, created_at FROM meal_summaries
		 WHERE child_id = ? AND month = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		childID, month).Scan(&s.ID, &s.ChildID, &s.Month, &s.Content, &s.Model, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary for child %d: %w", childID, err)
	}
	return &s, nil
}
