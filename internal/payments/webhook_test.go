package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelielash/agenda-api/internal/availability"
	"github.com/atelielash/agenda-api/internal/booking"
	"github.com/atelielash/agenda-api/internal/events"
	"github.com/atelielash/agenda-api/internal/ledger"
	"github.com/atelielash/agenda-api/internal/mercadopago"
	"github.com/atelielash/agenda-api/internal/notify"
	"github.com/atelielash/agenda-api/internal/retry"
)

type recordingSink struct {
	mu       sync.Mutex
	rows     []ledger.Row
	failures int
}

func (s *recordingSink) Append(_ context.Context, row ledger.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("ledger: status 500")
	}
	s.rows = append(s.rows, row)
	return nil
}

type recordingEmail struct {
	messages []notify.EmailMessage
}

func (r *recordingEmail) Send(_ context.Context, msg notify.EmailMessage) error {
	r.messages = append(r.messages, msg)
	return nil
}

type webhookFixture struct {
	handler   *WebhookHandler
	provider  *stubProvider
	sink      *recordingSink
	slots     *availability.MemoryStore
	intents   *MemoryRepository
	processed *events.MemoryProcessedStore
	email     *recordingEmail
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		provider:  &stubProvider{payments: map[string]*mercadopago.Payment{}},
		sink:      &recordingSink{},
		slots:     availability.NewMemoryStore(),
		intents:   NewMemoryRepository(),
		processed: events.NewMemoryProcessedStore(),
		email:     &recordingEmail{},
	}
	f.handler = NewWebhookHandler(
		f.provider, f.processed, f.sink, f.slots, f.intents,
		booking.DefaultDurations(),
		WebhookConfig{
			WhatsAppNumber: "5511999990000",
			StaffEmail:     "studio@example.com",
			Retry:          retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
		},
		f.email, nil, nil,
	)
	return f
}

func approvedPayment(id string) *mercadopago.Payment {
	return &mercadopago.Payment{
		ID:                json.Number(id),
		Status:            mercadopago.StatusApproved,
		TransactionAmount: 39.00,
		ExternalReference: "ref-1",
		Metadata: map[string]any{
			"nome":                 "Ana",
			"telefone":             "5511988887777",
			"servico":              "volume brasileiro",
			"data_sessao":          "2025-10-15",
			"horario_sessao":       "14:00",
			"preco_total_centavos": "13000",
		},
	}
}

// The webhook body lies about the customer; everything in the ledger row must
// come from the re-fetched provider record.
const approvedEventBody = `{
	"action": "payment.updated",
	"type": "payment",
	"data": {"id": "777"},
	"nome": "Malory",
	"status": "approved"
}`

func postWebhook(h *WebhookHandler, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return rec
}

func TestWebhookApprovedPaymentWritesLedger(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.payments["777"] = approvedPayment("777")
	require.NoError(t, f.intents.Create(context.Background(), &Intent{ExternalRef: "ref-1"}))

	rec := postWebhook(f.handler, "/webhook", approvedEventBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, f.sink.rows, 1)
	row := f.sink.rows[0]
	assert.Equal(t, "Ana", row.Nome, "row fields come from the provider record, not the webhook body")
	assert.Equal(t, "R$ 130.00", row.PrecoTotal)
	assert.Equal(t, "R$ 39.00", row.Valor30)
	assert.Equal(t, "2025-10-15", row.DataSessao)
	assert.Equal(t, "14:00", row.HorarioSessao)
	assert.Equal(t, "Aprovado", row.Status)
	assert.Equal(t, "777", row.PagamentoID)
	assert.Equal(t, "ref-1", row.Referencia)

	seen, err := f.processed.AlreadyProcessed(context.Background(), ProviderName, "777")
	require.NoError(t, err)
	assert.True(t, seen)

	free, err := f.slots.IsAvailable(context.Background(), "2025-10-15", 14*60, 180*time.Minute)
	require.NoError(t, err)
	assert.False(t, free, "the confirmed slot must be held")

	intent, err := f.intents.GetByExternalRef(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, intent.Status)
	assert.Equal(t, "777", intent.PaymentID)

	require.Len(t, f.email.messages, 1)
	assert.Equal(t, "studio@example.com", f.email.messages[0].To)
}

func TestWebhookRedeliveryAppendsOnce(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.payments["777"] = approvedPayment("777")

	for i := 0; i < 3; i++ {
		rec := postWebhook(f.handler, "/webhook", approvedEventBody)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Len(t, f.sink.rows, 1, "redelivery must not append a second row")
}

func TestWebhookLedgerFailureForcesRedelivery(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.payments["777"] = approvedPayment("777")
	f.sink.failures = 10 // beyond the retry budget

	rec := postWebhook(f.handler, "/webhook", approvedEventBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	seen, err := f.processed.AlreadyProcessed(context.Background(), ProviderName, "777")
	require.NoError(t, err)
	assert.False(t, seen, "a payment must not be marked processed before its ledger row exists")

	// the provider redelivers once the ledger recovers
	f.sink.failures = 0
	rec = postWebhook(f.handler, "/webhook", approvedEventBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.sink.rows, 1)
}

func TestWebhookLedgerRetryWithinBudget(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.payments["777"] = approvedPayment("777")
	f.sink.failures = 1 // first attempt fails, the retry lands

	rec := postWebhook(f.handler, "/webhook", approvedEventBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.sink.rows, 1)
}

func TestWebhookRejectedPaymentReleasesHold(t *testing.T) {
	f := newWebhookFixture(t)
	payment := approvedPayment("777")
	payment.Status = mercadopago.StatusRejected
	f.provider.payments["777"] = payment

	require.NoError(t, f.slots.Reserve(context.Background(), availability.Slot{
		Date: "2025-10-15", Start: 14 * 60, Duration: 180 * time.Minute, Ref: "ref-1",
	}))
	require.NoError(t, f.intents.Create(context.Background(), &Intent{ExternalRef: "ref-1"}))

	rec := postWebhook(f.handler, "/webhook", approvedEventBody)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, f.sink.rows, "rejected payments never reach the ledger")

	free, err := f.slots.IsAvailable(context.Background(), "2025-10-15", 14*60, 180*time.Minute)
	require.NoError(t, err)
	assert.True(t, free, "the hold must be released")

	intent, err := f.intents.GetByExternalRef(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, intent.Status)
}

func TestWebhookPendingPaymentAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	payment := approvedPayment("777")
	payment.Status = mercadopago.StatusPending
	f.provider.payments["777"] = payment

	rec := postWebhook(f.handler, "/webhook", approvedEventBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.sink.rows)
}

func TestWebhookIgnoresNonPaymentNotifications(t *testing.T) {
	f := newWebhookFixture(t)

	rec := postWebhook(f.handler, "/webhook",
		`{"action": "merchant_order.updated", "type": "merchant_order", "data": {"id": "555"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.provider.fetchCalls, "non-payment ids must never be fetched as payments")

	rec = postWebhook(f.handler, "/webhook?topic=merchant_order&id=555", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.provider.fetchCalls)
}

func TestWebhookQueryParamFallback(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.payments["777"] = approvedPayment("777")

	rec := postWebhook(f.handler, "/webhook?topic=payment&id=777", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.sink.rows, 1)
}

func TestWebhookProviderFailureReturns500(t *testing.T) {
	f := newWebhookFixture(t)
	f.provider.paymentErr = errors.New("mercadopago: status 502")

	rec := postWebhook(f.handler, "/webhook", approvedEventBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 2, f.provider.fetchCalls, "the fetch is retried before giving up")
}

func TestWebhookEmptyNotificationAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)

	rec := postWebhook(f.handler, "/webhook", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.provider.fetchCalls)
}
