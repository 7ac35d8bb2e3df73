package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Intent lifecycle statuses. Approved, rejected and cancelled are terminal.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// ErrIntentNotFound is returned when no intent matches the lookup.
var ErrIntentNotFound = errors.New("payment intent not found")

// Intent is a persisted payment intent carrying the booking it pays for.
type Intent struct {
	ID               uuid.UUID
	PreferenceID     string
	ExternalRef      string
	Nome             string
	Telefone         string
	Servico          string
	PrecoCentavos    int64
	DepositoCentavos int64
	DataSessao       string // ISO-8601
	HorarioSessao    string
	Status           string
	PaymentID        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IntentStore persists payment intents and lifecycle transitions.
type IntentStore interface {
	Create(ctx context.Context, intent *Intent) error
	UpdateStatusByExternalRef(ctx context.Context, externalRef, status, paymentID string) error
	GetByExternalRef(ctx context.Context, externalRef string) (*Intent, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Intent, error)
}

// dbtx is the slice of pgxpool the repository needs; pgxmock satisfies it.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres-backed intent store.
type Repository struct {
	db dbtx
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock for tests.
func NewRepositoryWithDB(db dbtx) *Repository {
	if db == nil {
		panic("payments: db required")
	}
	return &Repository{db: db}
}

const insertIntentSQL = `
	INSERT INTO payment_intents (
		id, preference_id, external_ref, nome, telefone, servico,
		preco_total_centavos, deposito_centavos, data_sessao, horario_sessao, status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// Create persists a new intent in pending status.
func (r *Repository) Create(ctx context.Context, intent *Intent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	if intent.Status == "" {
		intent.Status = StatusPending
	}
	_, err := r.db.Exec(ctx, insertIntentSQL,
		intent.ID, intent.PreferenceID, intent.ExternalRef,
		intent.Nome, intent.Telefone, intent.Servico,
		intent.PrecoCentavos, intent.DepositoCentavos,
		intent.DataSessao, intent.HorarioSessao, intent.Status,
	)
	if err != nil {
		return fmt.Errorf("payments: insert intent: %w", err)
	}
	return nil
}

// UpdateStatusByExternalRef records the provider outcome for an intent.
func (r *Repository) UpdateStatusByExternalRef(ctx context.Context, externalRef, status, paymentID string) error {
	query := `
		UPDATE payment_intents
		SET status = $2, payment_id = $3, updated_at = now()
		WHERE external_ref = $1
	`
	ct, err := r.db.Exec(ctx, query, externalRef, status, paymentID)
	if err != nil {
		return fmt.Errorf("payments: update status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrIntentNotFound
	}
	return nil
}

const selectIntentSQL = `
	SELECT id, preference_id, external_ref, nome, telefone, servico,
	       preco_total_centavos, deposito_centavos, data_sessao, horario_sessao,
	       status, COALESCE(payment_id, ''), created_at, updated_at
	FROM payment_intents
`

// GetByExternalRef fetches an intent by our reference.
func (r *Repository) GetByExternalRef(ctx context.Context, externalRef string) (*Intent, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectIntentSQL+` WHERE external_ref = $1`, externalRef))
}

// GetByPaymentID fetches an intent by the provider payment identifier.
func (r *Repository) GetByPaymentID(ctx context.Context, paymentID string) (*Intent, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectIntentSQL+` WHERE payment_id = $1`, paymentID))
}

func (r *Repository) scanOne(row pgx.Row) (*Intent, error) {
	var intent Intent
	err := row.Scan(
		&intent.ID, &intent.PreferenceID, &intent.ExternalRef,
		&intent.Nome, &intent.Telefone, &intent.Servico,
		&intent.PrecoCentavos, &intent.DepositoCentavos,
		&intent.DataSessao, &intent.HorarioSessao,
		&intent.Status, &intent.PaymentID,
		&intent.CreatedAt, &intent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("payments: load intent: %w", err)
	}
	return &intent, nil
}
