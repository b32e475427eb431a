package schedule

import (
	"time"

	"github.com/warp/care-hours/generic"
)

// SlotStatus is the "today" view state of a slot. It is derived on every
// call from the clock and the slot; nothing is stored.
type SlotStatus string

const (
	StatusPending    SlotStatus = "pending"
	StatusInProgress SlotStatus = "in_progress"
	StatusDone       SlotStatus = "done"
)

// StatusAt classifies slot on date relative to now. Times are read in now's
// location. An overnight slot ends on the following day. Invalid slots are
// reported as pending.
func StatusAt(now time.Time, date generic.Date, slot TimeSlot) SlotStatus {
	startMin, ok := clockMinutes(slot.Start)
	if !ok {
		return StatusPending
	}
	if _, ok := clockMinutes(slot.End); !ok {
		return StatusPending
	}
	loc := now.Location()
	start := date.At(startMin, loc)
	end := start.Add(time.Duration(DurationMinutes(slot.Start, slot.End)) * time.Minute)

	switch {
	case now.Before(start):
		return StatusPending
	case now.Before(end):
		return StatusInProgress
	default:
		return StatusDone
	}
}
