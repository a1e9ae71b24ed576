package meal

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a meal record does not exist.
	ErrNotFound = errors.New("meal record not found")
	// ErrDuplicate is returned when a record already exists for (child, date, slot).
	ErrDuplicate = errors.New("meal record already exists for this date and meal type")
	// ErrInvalid marks input rejected before the store is touched.
	ErrInvalid = errors.New("invalid meal input")
)

// DateLayout is the key format for meal dates.
const DateLayout = time.DateOnly

// Entry is a persisted meal record.
type Entry struct {
	ID          int64     `json:"id"`
	ChildID     int64     `json:"child_id"`
	Date        string    `json:"record_date"`
	Slot        Slot      `json:"meal_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrInvalid)
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalid, s)
	}
	return d, nil
}

// DateKey formats t's calendar date as an index key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
