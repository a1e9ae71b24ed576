// Package child stores the children whose meals are tracked.
package child

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no child exists for an id.
var ErrNotFound = errors.New("child not found")

// Gender values accepted by the children table.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Child is a child profile. Only ID and Name are needed by the calendar.
type Child struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	BirthDate string    `json:"birth_date,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Directory resolves a child identity.
type Directory interface {
	Get(ctx context.Context, id int64) (*Child, error)
}

// Repository is a database-backed repository for children.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a child and returns it with its assigned id.
func (r *Repository) Create(ctx context.Context, c Child) (*Child, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, fmt.Errorf("child name is required")
	}
	switch c.Gender {
	case "", GenderMale, GenderFemale, GenderOther:
	default:
		return nil, fmt.Errorf("invalid gender %q", c.Gender)
	}
	if c.BirthDate != "" {
		if _, err := time.Parse(time.DateOnly, c.BirthDate); err != nil {
			return nil, fmt.Errorf("invalid birth date %q: %w", c.BirthDate, err)
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO children (name, birth_date, gender, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, nullString(c.BirthDate), nullString(c.Gender), c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert child: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read child id: %w", err)
	}
	return &c, nil
}

// Get returns the child with the given id.
func (r *Repository) Get(ctx context.Context, id int64) (*Child, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, birth_date, gender, created_at FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("child %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child %d: %w", id, err)
	}
	return c, nil
}

// List returns every child ordered by id.
func (r *Repository) List(ctx context.Context) ([]Child, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, birth_date, gender, created_at FROM children ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var children []Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

// Delete removes a child. Its meal records go with it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete child %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("child %d: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChild(s scanner) (*Child, error) {
	var (
		c         Child
		birthDate sql.NullString
		gender    sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &birthDate, &gender, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.BirthDate = birthDate.String
	c.Gender = gender.String
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// StaticDirectory serves a fixed set of children, used in demo mode.
type StaticDirectory map[int64]Child

// Get implements Directory.
func (d StaticDirectory) Get(_ context.Context, id int64) (*Child, error) {
	c, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("child %d: %w", id, ErrNotFound)
	}
	return &c, nil
}
