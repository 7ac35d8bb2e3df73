package availability

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSlotTaken is returned when a reservation conflicts with an existing
	// slot on the same date. Never retried.
	ErrSlotTaken = errors.New("slot already reserved")

	// ErrUnavailable is returned when the backing store cannot be reached.
	// Callers must treat availability as unknown and refuse the reservation
	// rather than assume the slot is free.
	ErrUnavailable = errors.New("availability store unavailable")
)

// Slot is a taken interval on the studio calendar.
type Slot struct {
	Date     string        `json:"date"` // ISO-8601
	Start    int           `json:"start"` // minutes since midnight
	Duration time.Duration `json:"duration"`
	Ref      string        `json:"ref"` // booking reference holding the slot
}

// End returns the exclusive end of the slot in minutes since midnight.
func (s Slot) End() int {
	return s.Start + int(s.Duration.Minutes())
}

// Overlaps reports whether two slots on the same date intersect, using the
// half-open interval test start1 < end2 && start2 < end1.
func (s Slot) Overlaps(other Slot) bool {
	if s.Date != other.Date {
		return false
	}
	return s.Start < other.End() && other.Start < s.End()
}

// Store answers "is this slot free" and records holds. Reserve must be atomic
// with respect to IsAvailable for the same date under concurrent requests.
type Store interface {
	IsAvailable(ctx context.Context, date string, start int, duration time.Duration) (bool, error)
	Reserve(ctx context.Context, slot Slot) error
	Release(ctx context.Context, date, ref string) error
	TakenSlots(ctx context.Context, date string) ([]Slot, error)
}
