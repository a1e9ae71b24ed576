package meal

import (
	"fmt"
	"strings"
)

// Slot is one of the three meal positions tracked per day.
type Slot string

const (
	Breakfast Slot = "breakfast"
	Lunch     Slot = "lunch"
	Dinner    Slot = "dinner"
)

// Slots lists every slot in display order.
var Slots = []Slot{Breakfast, Lunch, Dinner}

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToLower(strings.TrimSpace(s)))
	if !slot.Valid() {
		return "", fmt.Errorf("%w: invalid meal type %q", ErrInvalid, s)
	}
	return slot, nil
}

// Valid reports whether s is a known slot.
func (s Slot) Valid() bool {
	switch s {
	case Breakfast, Lunch, Dinner:
		return true
	}
	return false
}

// Order is the slot's position in display order, or -1.
func (s Slot) Order() int {
	for i, slot := range Slots {
		if slot == s {
			return i
		}
	}
	return -1
}
