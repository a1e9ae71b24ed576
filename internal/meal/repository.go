package meal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Repository is a database-backed Store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `id, child_id, record_date, meal_type, description, created_at`

// slotOrderSQL sorts meal_type in breakfast, lunch, dinner order.
const slotOrderSQL = `CASE meal_type WHEN 'breakfast' THEN 1 WHEN 'lunch' THEN 2 WHEN 'dinner' THEN 3 END`

func (r *Repository) List(ctx context.Context, childID int64, from, to string) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM meal_records WHERE child_id = ?`
	args := []any{childID}
	if from != "" {
		query += ` AND record_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND record_date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY record_date ASC, ` + slotOrderSQL

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals for child %d: %w", childID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal record: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *Repository) Find(ctx context.Context, childID int64, date string, slot Slot) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM meal_records WHERE child_id = ? AND record_date = ? AND meal_type = ?`,
		childID, date, string(slot))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find meal: %w", err)
	}
	return e, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM meal_records WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("meal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal %d: %w", id, err)
	}
	return e, nil
}

func (r *Repository) Create(ctx context.Context, e Entry) (*Entry, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO meal_records (child_id, record_date, meal_type, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ChildID, e.Date, string(e.Slot), e.Description, e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert meal: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read meal id: %w", err)
	}
	return &e, nil
}

func (r *Repository) UpdateDescription(ctx context.Context, id int64, description string) (*Entry, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE meal_records SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update meal %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("meal %d: %w", id, ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM meal_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("meal %d: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e    Entry
		slot string
	)
	if err := s.Scan(&e.ID, &e.ChildID, &e.Date, &slot, &e.Description, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Slot = Slot(slot)
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
