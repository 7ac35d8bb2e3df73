package availability

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process availability index. State is lost on restart;
// deployments that need holds to survive a restart use the Redis store.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string][]Slot
}

// NewMemoryStore creates an empty in-memory availability index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]Slot)}
}

// IsAvailable reports whether the interval is free on the given date.
func (s *MemoryStore) IsAvailable(ctx context.Context, date string, start int, duration time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	probe := Slot{Date: date, Start: start, Duration: duration}
	for _, taken := range s.slots[date] {
		if probe.Overlaps(taken) {
			return false, nil
		}
	}
	return true, nil
}

// Reserve records a hold, failing with ErrSlotTaken on any overlap. The check
// and the insert happen under one lock so concurrent requests for the same
// slot cannot both succeed. Re-reserving with the same ref is a no-op, which
// lets the webhook reconciler confirm a slot the checkout already held.
func (s *MemoryStore) Reserve(ctx context.Context, slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, taken := range s.slots[slot.Date] {
		if taken.Ref == slot.Ref {
			s.slots[slot.Date][i] = slot
			return nil
		}
		if slot.Overlaps(taken) {
			return ErrSlotTaken
		}
	}
	s.slots[slot.Date] = append(s.slots[slot.Date], slot)
	return nil
}

// Release frees the hold identified by ref on the given date.
func (s *MemoryStore) Release(ctx context.Context, date, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := s.slots[date]
	for i, slot := range taken {
		if slot.Ref == ref {
			s.slots[date] = append(taken[:i], taken[i+1:]...)
			return nil
		}
	}
	return nil
}

// TakenSlots lists the holds recorded for a date.
func (s *MemoryStore) TakenSlots(ctx context.Context, date string) ([]Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Slot, len(s.slots[date]))
	copy(out, s.slots[date])
	return out, nil
}
