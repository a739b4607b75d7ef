package models

import "time"

// SlotStatus is the derived fullness state of a slot. It is never stored;
// it is always computed from the live registrations.
type SlotStatus string

const (
	SlotStatusFree SlotStatus = "FREE"
	SlotStatusSemi SlotStatus = "SEMI"
	SlotStatusFull SlotStatus = "FULL"
)

// SeminarSlot represents a bookable seminar session.
type SeminarSlot struct {
	ID        int64     `json:"id"`
	SlotDate  time.Time `json:"slotDate"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Building  string    `json:"building"`
	Room      string    `json:"room"`
	Capacity  int       `json:"capacity"`
}

// Occupancy is the weighted usage of a slot at a point in time.
type Occupancy struct {
	Weighted int        `json:"weighted"`
	Capacity int        `json:"capacity"`
	Status   SlotStatus `json:"status"`
}

// Remaining returns the unreserved weighted capacity.
func (o Occupancy) Remaining() int {
	r := o.Capacity - o.Weighted
	if r < 0 {
		return 0
	}
	return r
}
