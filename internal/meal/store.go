package meal

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store is the authoritative per-child collection of meal entries.
type Store interface {
	// List returns a child's entries. Empty from/to bounds are open.
	List(ctx context.Context, childID int64, from, to string) ([]Entry, error)
	Find(ctx context.Context, childID int64, date string, slot Slot) (*Entry, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	Create(ctx context.Context, e Entry) (*Entry, error)
	UpdateDescription(ctx context.Context, id int64, description string) (*Entry, error)
	Delete(ctx context.Context, id int64) error
}

// MemoryStore is an in-process Store seeded with sample entries.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]Entry
	now     func() time.Time
}

// NewMemoryStore returns a store holding a copy of seed. Seed entries without
// an id are assigned one that no other seed entry claims; a seed that repeats
// a (child, date, slot) key keeps the later entry.
func NewMemoryStore(seed []Entry) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[int64]Entry, len(seed)),
		now:     func() time.Time { return time.Now().UTC() },
	}
	reserved := make(map[int64]bool, len(seed))
	for _, e := range seed {
		if e.ID != 0 {
			reserved[e.ID] = true
		}
	}
	var auto int64
	for _, e := range seed {
		if existing := s.findLocked(e.ChildID, e.Date, e.Slot); existing != nil {
			delete(s.entries, existing.ID)
		}
		if e.ID == 0 {
			for {
				auto++
				if _, taken := s.entries[auto]; !reserved[auto] && !taken {
					break
				}
			}
			e.ID = auto
		}
		if e.ID > s.nextID {
			s.nextID = e.ID
		}
		s.entries[e.ID] = e
	}
	return s
}

func (s *MemoryStore) List(_ context.Context, childID int64, from, to string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, e := range s.entries {
		if e.ChildID != childID {
			continue
		}
		if from != "" && e.Date < from {
			continue
		}
		if to != "" && e.Date > to {
			continue
		}
		out = append(out, e)
	}
	SortEntries(out)
	return out, nil
}

func (s *MemoryStore) Find(_ context.Context, childID int64, date string, slot Slot) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.findLocked(childID, date, slot); e != nil {
		return e, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("meal %d: %w", id, ErrNotFound)
	}
	return &e, nil
}

func (s *MemoryStore) Create(_ context.Context, e Entry) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(e.ChildID, e.Date, e.Slot) != nil {
		return nil, ErrDuplicate
	}
	s.nextID++
	e.ID = s.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.entries[e.ID] = e
	return &e, nil
}

func (s *MemoryStore) UpdateDescription(_ context.Context, id int64, description string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("meal %d: %w", id, ErrNotFound)
	}
	e.Description = description
	s.entries[id] = e
	return &e, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("meal %d: %w", id, ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) findLocked(childID int64, date string, slot Slot) *Entry {
	for _, e := range s.entries {
		if e.ChildID == childID && e.Date == date && e.Slot == slot {
			return &e
		}
	}
	return nil
}

// SortEntries orders entries by date, then slot in display order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].Slot.Order() < entries[j].Slot.Order()
	})
}
