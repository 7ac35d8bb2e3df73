package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// rowQuerier is the slice of pgxpool the store needs; pgxmock satisfies it.
type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records payment identifiers that already produced a ledger
// row, so webhook redelivery never writes a second one.
type ProcessedStore struct {
	pool rowQuerier
}

// NewProcessedStore creates a Postgres-backed processed-payments store.
func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{pool: pool}
}

// NewProcessedStoreWithExec allows injecting a mock for tests.
func NewProcessedStoreWithExec(exec rowQuerier) *ProcessedStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &ProcessedStore{pool: exec}
}

// AlreadyProcessed checks if this provider payment id was handled before.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, paymentID string) (bool, error) {
	query := `SELECT 1 FROM processed_payments WHERE provider = $1 AND payment_id = $2`
	var exists int
	if err := s.pool.QueryRow(ctx, query, provider, paymentID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return true, nil
}

// MarkProcessed inserts a payment id for the provider, returning false if it
// already exists.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, paymentID string) (bool, error) {
	query := `
		INSERT INTO processed_payments (provider, payment_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, provider, paymentID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
