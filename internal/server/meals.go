package server

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"kids-meal-calendar/internal/meal"
)

// handleListMeals lists a child's meals, newest date first, optionally
// bounded by ?startDate and ?endDate (inclusive).
func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	from, err := optionalDate(r, "startDate")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := optionalDate(r, "endDate")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.app.Child(r.Context(), childID); err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.app.Meals().Store().List(r.Context(), childID, from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].Slot.Order() < entries[j].Slot.Order()
	})
	writeJSON(w, http.StatusOK, nonNil(entries))
}

// handleMealsByDate returns one day's meals in breakfast, lunch, dinner order.
func (s *Server) handleMealsByDate(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := meal.ParseDate(date); err != nil {
		s.writeError(w, r, err)
		return
	}

	entries, err := s.app.Meals().Store().List(r.Context(), childID, date, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	meal.SortEntries(entries)
	writeJSON(w, http.StatusOK, nonNil(entries))
}

type createMealRequest struct {
	Date        string `json:"record_date"`
	Slot        string `json:"meal_type"`
	Description string `json:"description"`
}

// handleCreateMeal adds a meal record. Unlike the calendar PUT it refuses
// to overwrite: an existing (date, slot) answers 409.
func (s *Server) handleCreateMeal(w http.ResponseWriter, r *http.Request) {
	childID, err := s.childID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := meal.ParseDate(req.Date); err != nil {
		s.writeError(w, r, err)
		return
	}
	slot, err := meal.ParseSlot(req.Slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		s.writeError(w, r, errDescriptionRequired)
		return
	}
	if _, err := s.app.Child(r.Context(), childID); err != nil {
		s.writeError(w, r, err)
		return
	}

	e, err := s.app.Meals().Store().Create(r.Context(), meal.Entry{
		ChildID:     childID,
		Date:        req.Date,
		Slot:        slot,
		Description: desc,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// handleUpdateMeal replaces the description of a meal record.
func (s *Server) handleUpdateMeal(w http.ResponseWriter, r *http.Request) {
	e, ok := s.ownedMeal(w, r)
	if !ok {
		return
	}
	var req saveMealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		s.writeError(w, r, errDescriptionRequired)
		return
	}

	updated, err := s.app.Meals().Store().UpdateDescription(r.Context(), e.ID, desc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	e, ok := s.ownedMeal(w, r)
	if !ok {
		return
	}
	if err := s.app.Meals().Store().Delete(r.Context(), e.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Meal record deleted successfully"})
}

// ownedMeal loads {mealID} and checks the caller may access its child.
// It writes the error response itself.
func (s *Server) ownedMeal(w http.ResponseWriter, r *http.Request) (*meal.Entry, bool) {
	id, err := pathID(r, "mealID")
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	e, err := s.app.Meals().Store().Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if err := s.authorize(r, e.ChildID); err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return e, true
}

func nonNil(entries []meal.Entry) []meal.Entry {
	if entries == nil {
		return []meal.Entry{}
	}
	return entries
}
