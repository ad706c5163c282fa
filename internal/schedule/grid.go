package schedule

// Grid is the ordered set of bookable time-of-day labels for one working day.
// It is immutable, injected configuration shared by every doctor: the resolver
// iterates it and the booking engine validates slots against it. Tests inject
// smaller grids.
type Grid struct {
	slots []string
	index map[string]struct{}
}

// NewGrid builds a grid from ordered HH:MM labels.
func NewGrid(slots []string) Grid {
	g := Grid{
		slots: make([]string, len(slots)),
		index: make(map[string]struct{}, len(slots)),
	}
	copy(g.slots, slots)
	for _, s := range slots {
		g.index[s] = struct{}{}
	}
	return g
}

// DefaultGrid is the clinic working day: 30-minute slots from 09:00 to 16:30
// with the 13:00-14:00 lunch hour left out.
func DefaultGrid() Grid {
	return NewGrid([]string{
		"09:00", "09:30",
		"10:00", "10:30",
		"11:00", "11:30",
		"12:00", "12:30",
		"14:00", "14:30",
		"15:00", "15:30",
		"16:00", "16:30",
	})
}

// Slots returns the ordered labels. The returned slice is a copy.
func (g Grid) Slots() []string {
	out := make([]string, len(g.slots))
	copy(out, g.slots)
	return out
}

// Contains reports whether slot is a valid grid label.
func (g Grid) Contains(slot string) bool {
	_, ok := g.index[slot]
	return ok
}

// Len returns the number of slots in one day.
func (g Grid) Len() int {
	return len(g.slots)
}
