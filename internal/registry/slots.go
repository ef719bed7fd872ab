package registry

import "time"

// SlotGrid is the fixed daily grid of bookable times. Slots are a derived
// concept: only appointments are persisted.
type SlotGrid struct {
	WorkStart string // "15:04"
	WorkEnd   string // exclusive
	Step      time.Duration
}

// DefaultGrid matches the clinic's working day.
var DefaultGrid = SlotGrid{
	WorkStart: "08:00",
	WorkEnd:   "18:00",
	Step:      30 * time.Minute,
}

// Times returns every time-of-day in the grid, in order.
func (g SlotGrid) Times() []string {
	start, err := time.Parse(TimeLayout, g.WorkStart)
	if err != nil {
		return nil
	}
	end, err := time.Parse(TimeLayout, g.WorkEnd)
	if err != nil {
		return nil
	}

	var times []string
	for t := start; t.Before(end); t = t.Add(g.Step) {
		times = append(times, t.Format(TimeLayout))
	}
	return times
}

// FreeTimes returns the grid times not occupied by any of the given
// appointments. Status is irrelevant: a cancelled appointment still blocks
// its slot.
func (g SlotGrid) FreeTimes(appointments []Appointment) []string {
	taken := make(map[string]bool, len(appointments))
	for _, a := range appointments {
		taken[a.Time] = true
	}

	var free []string
	for _, t := range g.Times() {
		if !taken[t] {
			free = append(free, t)
		}
	}
	return free
}
