package payments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process IntentStore for local runs and tests.
// Intents do not survive a restart; production deployments use Repository.
type MemoryRepository struct {
	mu          sync.Mutex
	byRef       map[string]*Intent
	byPaymentID map[string]string // payment id -> external ref
}

// NewMemoryRepository creates an empty in-memory intent store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byRef:       make(map[string]*Intent),
		byPaymentID: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(_ context.Context, intent *Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.Status == "" {
		intent.Status = StatusPending
	}
	now := time.Now()
	intent.CreatedAt = now
	intent.UpdatedAt = now

	stored := *intent
	r.byRef[intent.ExternalRef] = &stored
	if intent.PaymentID != "" {
		r.byPaymentID[intent.PaymentID] = intent.ExternalRef
	}
	return nil
}

func (r *MemoryRepository) UpdateStatusByExternalRef(_ context.Context, externalRef, status, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	intent, ok := r.byRef[externalRef]
	if !ok {
		return ErrIntentNotFound
	}
	intent.Status = status
	intent.PaymentID = paymentID
	intent.UpdatedAt = time.Now()
	if paymentID != "" {
		r.byPaymentID[paymentID] = externalRef
	}
	return nil
}

func (r *MemoryRepository) GetByExternalRef(_ context.Context, externalRef string) (*Intent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	intent, ok := r.byRef[externalRef]
	if !ok {
		return nil, ErrIntentNotFound
	}
	copied := *intent
	return &copied, nil
}

func (r *MemoryRepository) GetByPaymentID(_ context.Context, paymentID string) (*Intent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.byPaymentID[paymentID]
	if !ok {
		return nil, ErrIntentNotFound
	}
	intent, ok := r.byRef[ref]
	if !ok {
		return nil, ErrIntentNotFound
	}
	copied := *intent
	return &copied, nil
}
