package calendar

import (
	"time"

	"kids-meal-calendar/internal/meal"
)

// SlotState is the display state of one meal slot in a cell.
type SlotState struct {
	Slot        meal.Slot `json:"slot"`
	Label       string    `json:"label"`
	Filled      bool      `json:"filled"`
	Description string    `json:"description,omitempty"`
	// Interactive is false for days outside the month; the UI disables editing.
	Interactive bool `json:"interactive"`
}

// Cell is the view model of one grid day.
type Cell struct {
	Date           string      `json:"date"`
	Day            int         `json:"day"`
	Weekday        string      `json:"weekday"`
	IsCurrentMonth bool        `json:"is_current_month"`
	IsToday        bool        `json:"is_today"`
	Slots          []SlotState `json:"slots"`
}

// Render produces one cell per grid day with the index's meals filled in.
// now is evaluated by the caller at render time.
func Render(grid Grid, index meal.Index, now time.Time, loc Locale) []Cell {
	today := CivilDate(now)

	cells := make([]Cell, 0, len(grid.Days))
	for _, d := range grid.Days {
		key := d.Key()
		cell := Cell{
			Date:           key,
			Day:            d.Date.Day(),
			Weekday:        loc.Weekday(d.Date.Weekday()),
			IsCurrentMonth: d.IsCurrentMonth,
			IsToday:        d.Date.Equal(today),
			Slots:          make([]SlotState, 0, len(meal.Slots)),
		}
		for _, slot := range meal.Slots {
			state := SlotState{
				Slot:        slot,
				Label:       loc.SlotLabel(slot),
				Interactive: d.IsCurrentMonth,
			}
			if desc, ok := index.Get(key, slot); ok {
				state.Filled = true
				state.Description = desc
			}
			cell.Slots = append(cell.Slots, state)
		}
		cells = append(cells, cell)
	}
	return cells
}
