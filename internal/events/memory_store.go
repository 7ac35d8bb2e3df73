package events

import (
	"context"
	"sync"
)

// MemoryProcessedStore is the volatile fallback used when no database is
// configured. Known limitation: redelivered webhooks after a restart will
// append duplicate ledger rows; production deployments set DATABASE_URL.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryProcessedStore creates an empty in-memory processed store.
func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]struct{})}
}

// AlreadyProcessed checks if this provider payment id was handled before.
func (s *MemoryProcessedStore) AlreadyProcessed(ctx context.Context, provider, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[provider+":"+paymentID]
	return ok, nil
}

// MarkProcessed records a payment id, returning false if it was already set.
func (s *MemoryProcessedStore) MarkProcessed(ctx context.Context, provider, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := provider + ":" + paymentID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}
