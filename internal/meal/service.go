package meal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Service is the meal write path.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a Service over store.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Store returns the underlying entry collection.
func (s *Service) Store() Store {
	return s.store
}

// Index rebuilds the index of a child's entries between from and to.
func (s *Service) Index(ctx context.Context, childID int64, from, to string) (Index, error) {
	entries, err := s.store.List(ctx, childID, from, to)
	if err != nil {
		return nil, err
	}
	return BuildIndex(entries), nil
}

// SaveMeal records, replaces or clears the meal at (childID, date, slot) and
// returns the child's index rebuilt from the store.
//
// A description that is empty after trimming deletes the existing entry, or
// does nothing when there is none.
func (s *Service) SaveMeal(ctx context.Context, childID int64, date string, slot Slot, description string) (Index, error) {
	if childID <= 0 {
		return nil, fmt.Errorf("%w: child id is required", ErrInvalid)
	}
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: invalid meal type %q", ErrInvalid, slot)
	}

	description = strings.TrimSpace(description)
	if err := s.apply(ctx, childID, date, slot, description); err != nil {
		return nil, err
	}

	return s.Index(ctx, childID, "", "")
}

func (s *Service) apply(ctx context.Context, childID int64, date string, slot Slot, description string) error {
	existing, err := s.store.Find(ctx, childID, date, slot)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if description == "" {
		if existing == nil {
			return nil
		}
		if err := s.store.Delete(ctx, existing.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		s.logger.Debug("meal removed", zap.Int64("child_id", childID), zap.String("date", date), zap.String("slot", string(slot)))
		return nil
	}

	if existing != nil {
		_, err := s.store.UpdateDescription(ctx, existing.ID, description)
		return err
	}

	_, err = s.store.Create(ctx, Entry{ChildID: childID, Date: date, Slot: slot, Description: description})
	if !errors.Is(err, ErrDuplicate) {
		return err
	}

	// Another writer created the key between Find and Create; replace once.
	s.logger.Warn("meal create conflicted, retrying as replace",
		zap.Int64("child_id", childID), zap.String("date", date), zap.String("slot", string(slot)))
	existing, err = s.store.Find(ctx, childID, date, slot)
	if err != nil {
		return fmt.Errorf("failed to resolve duplicate meal: %w", err)
	}
	_, err = s.store.UpdateDescription(ctx, existing.ID, description)
	return err
}
