package meal

// Index maps a date key (YYYY-MM-DD) to the descriptions recorded per slot.
// It is derived from the entry collection and never edited on its own.
type Index map[string]map[Slot]string

// BuildIndex groups entries by date then slot.
//
// The persistence layer allows one entry per (date, slot), but when the input
// repeats a key the entry appearing later in the slice wins.
func BuildIndex(entries []Entry) Index {
	idx := make(Index)
	for _, e := range entries {
		day, ok := idx[e.Date]
		if !ok {
			day = make(map[Slot]string, len(Slots))
			idx[e.Date] = day
		}
		day[e.Slot] = e.Description
	}
	return idx
}

// Get returns the description for (date, slot). ok is false when no meal is
// recorded, which is not the same as an empty description.
func (idx Index) Get(date string, slot Slot) (description string, ok bool) {
	day, found := idx[date]
	if !found {
		return "", false
	}
	description, ok = day[slot]
	return description, ok
}

// Len counts the (date, slot) pairs in the index.
func (idx Index) Len() int {
	n := 0
	for _, day := range idx {
		n += len(day)
	}
	return n
}
