package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atelielash/agenda-api/internal/availability"
	"github.com/atelielash/agenda-api/internal/booking"
	"github.com/atelielash/agenda-api/internal/ledger"
	"github.com/atelielash/agenda-api/internal/mercadopago"
	"github.com/atelielash/agenda-api/internal/notify"
	"github.com/atelielash/agenda-api/internal/observability/metrics"
	"github.com/atelielash/agenda-api/internal/retry"
	"github.com/atelielash/agenda-api/pkg/logging"
)

// ProviderName keys processed-payment rows and log lines.
const ProviderName = "mercadopago"

// ProcessedTracker is the idempotency slice of the events store.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, paymentID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, paymentID string) (bool, error)
}

// intentStatusUpdater records provider outcomes on the local intent row.
type intentStatusUpdater interface {
	UpdateStatusByExternalRef(ctx context.Context, externalRef, status, paymentID string) error
}

// WebhookConfig carries the notification settings the reconciler needs.
type WebhookConfig struct {
	WhatsAppNumber string
	StaffEmail     string
	Retry          retry.Policy
}

// WebhookHandler reconciles provider notifications. Webhook bodies only carry
// a payment id; everything else is re-fetched from the provider before any
// state changes. A payment id is appended to the ledger at most once, and any
// failure before the append returns 500 so the provider redelivers.
type WebhookHandler struct {
	provider  paymentFetcher
	processed ProcessedTracker
	sink      ledger.Sink
	slots     availability.Store
	intents   intentStatusUpdater
	durations *booking.DurationTable
	cfg       WebhookConfig
	email     notify.EmailSender
	metrics   *metrics.PaymentMetrics
	logger    *logging.Logger
}

// NewWebhookHandler wires the reconciler. email may be nil.
func NewWebhookHandler(
	provider paymentFetcher,
	processed ProcessedTracker,
	sink ledger.Sink,
	slots availability.Store,
	intents intentStatusUpdater,
	durations *booking.DurationTable,
	cfg WebhookConfig,
	email notify.EmailSender,
	m *metrics.PaymentMetrics,
	logger *logging.Logger,
) *WebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &WebhookHandler{
		provider:  provider,
		processed: processed,
		sink:      sink,
		slots:     slots,
		intents:   intents,
		durations: durations,
		cfg:       cfg,
		email:     email,
		metrics:   m,
		logger:    logger,
	}
}

type webhookEvent struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// flexibleID absorbs the provider's habit of sending ids as either JSON
// strings or numbers depending on the notification format.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("payments: webhook id is neither string nor number")
	}
	*f = flexibleID(n.String())
	return nil
}

// Handle processes POST /webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	paymentID, isPayment := extractPaymentID(r)
	if !isPayment {
		// Merchant-order and test notifications carry ids that are not
		// payments; acknowledging stops redelivery.
		h.observe("ignored", start)
		writeOK(w)
		return
	}
	if paymentID == "" {
		h.observe("no_payment_id", start)
		writeOK(w)
		return
	}

	var payment *mercadopago.Payment
	err := h.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		payment, fetchErr = h.provider.GetPayment(ctx, paymentID)
		return fetchErr
	})
	if err != nil {
		h.logger.Error("payment fetch failed", "error", err, "payment_id", paymentID)
		h.observe("provider_error", start)
		http.Error(w, "provider unavailable", http.StatusInternalServerError)
		return
	}

	switch payment.Status {
	case mercadopago.StatusApproved:
		// fall through to reconciliation
	case mercadopago.StatusRejected, mercadopago.StatusCancelled:
		h.releaseHold(ctx, payment)
		h.recordOutcome(ctx, payment, payment.Status)
		h.logger.Info("payment not approved, hold released",
			"payment_id", paymentID, "status", payment.Status, "detail", payment.StatusDetail)
		h.observe("released", start)
		writeOK(w)
		return
	default:
		h.logger.Info("payment still pending", "payment_id", paymentID, "status", payment.Status)
		h.observe("pending", start)
		writeOK(w)
		return
	}

	done, err := h.processed.AlreadyProcessed(ctx, ProviderName, paymentID)
	if err != nil {
		h.logger.Error("processed lookup failed", "error", err, "payment_id", paymentID)
		h.observe("tracker_error", start)
		http.Error(w, "idempotency store unavailable", http.StatusInternalServerError)
		return
	}
	if done {
		h.logger.Info("duplicate webhook acknowledged", "payment_id", paymentID)
		h.observe("duplicate", start)
		writeOK(w)
		return
	}

	row := h.buildRow(payment)
	if err := h.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		return h.sink.Append(ctx, row)
	}); err != nil {
		// Not marked processed; the provider will redeliver and the append
		// will be retried with the same idempotent payment id.
		h.logger.Error("ledger append failed", "error", err, "payment_id", paymentID)
		h.metrics.ObserveLedgerAppend("error")
		h.observe("ledger_error", start)
		http.Error(w, "ledger unavailable", http.StatusInternalServerError)
		return
	}
	h.metrics.ObserveLedgerAppend("ok")

	if _, err := h.processed.MarkProcessed(ctx, ProviderName, paymentID); err != nil {
		// The ledger row exists; a redelivery would duplicate it only if this
		// write keeps failing, which the log line is for.
		h.logger.Error("mark processed failed", "error", err, "payment_id", paymentID)
	}

	h.confirmBooking(ctx, payment, row)
	h.recordOutcome(ctx, payment, StatusApproved)
	h.notifyStaff(ctx, payment, row)

	h.observe("ledger_written", start)
	writeOK(w)
}

// buildRow assembles the ledger entry from provider metadata. The webhook body
// contributes nothing here.
func (h *WebhookHandler) buildRow(payment *mercadopago.Payment) ledger.Row {
	precoTotal := payment.AmountCents()
	if raw := payment.MetaString("preco_total_centavos"); raw != "" {
		if cents, err := strconv.ParseInt(raw, 10, 64); err == nil && cents > 0 {
			precoTotal = cents
		}
	}
	return ledger.Row{
		Nome:          payment.MetaString("nome"),
		Telefone:      payment.MetaString("telefone"),
		Servico:       payment.MetaString("servico"),
		PrecoTotal:    booking.FormatAmountBRL(precoTotal),
		Valor30:       booking.FormatAmountBRL(payment.AmountCents()),
		DataSessao:    payment.MetaString("data_sessao"),
		HorarioSessao: payment.MetaString("horario_sessao"),
		Status:        "Aprovado",
		PagamentoID:   payment.ID.String(),
		Referencia:    payment.ExternalReference,
	}
}

// confirmBooking re-reserves the slot under the booking reference. The hold
// normally already exists from checkout; Reserve is idempotent per reference,
// so this also repairs holds lost to a volatile store restart.
func (h *WebhookHandler) confirmBooking(ctx context.Context, payment *mercadopago.Payment, row ledger.Row) {
	startMinutes, err := booking.ParseTimeSlot(row.HorarioSessao)
	if err != nil {
		h.logger.Warn("payment metadata has no usable time slot", "payment_id", payment.ID.String())
		return
	}
	date, err := booking.NormalizeDateISO(row.DataSessao)
	if err != nil {
		h.logger.Warn("payment metadata has no usable date", "payment_id", payment.ID.String())
		return
	}
	ref := payment.ExternalReference
	if ref == "" {
		ref = payment.ID.String()
	}
	slot := availability.Slot{
		Date:     date,
		Start:    startMinutes,
		Duration: h.durations.For(row.Servico),
		Ref:      ref,
	}
	if err := h.slots.Reserve(ctx, slot); err != nil {
		h.logger.Warn("slot confirmation failed", "error", err, "payment_id", payment.ID.String(), "date", date)
	}
}

// releaseHold frees the slot held at checkout for a rejected or cancelled
// payment.
func (h *WebhookHandler) releaseHold(ctx context.Context, payment *mercadopago.Payment) {
	if payment.ExternalReference == "" {
		return
	}
	date, err := booking.NormalizeDateISO(payment.MetaString("data_sessao"))
	if err != nil {
		return
	}
	if err := h.slots.Release(ctx, date, payment.ExternalReference); err != nil {
		h.logger.Warn("slot release failed", "error", err, "ref", payment.ExternalReference, "date", date)
	}
}

func (h *WebhookHandler) recordOutcome(ctx context.Context, payment *mercadopago.Payment, status string) {
	if payment.ExternalReference == "" || h.intents == nil {
		return
	}
	err := h.intents.UpdateStatusByExternalRef(ctx, payment.ExternalReference, status, payment.ID.String())
	if err != nil {
		h.logger.Warn("intent status update failed", "error", err, "ref", payment.ExternalReference)
	}
}

func (h *WebhookHandler) notifyStaff(ctx context.Context, payment *mercadopago.Payment, row ledger.Row) {
	dataBR := row.DataSessao
	if br, err := booking.FormatDateBR(row.DataSessao); err == nil {
		dataBR = br
	}
	info := notify.BookingInfo{
		Nome:          row.Nome,
		Servico:       row.Servico,
		DataBR:        dataBR,
		HorarioSessao: row.HorarioSessao,
		Valor:         row.Valor30,
	}

	link := notify.BuildWhatsAppLink(h.cfg.WhatsAppNumber, info)
	h.logger.Info("booking confirmed",
		"payment_id", payment.ID.String(),
		"ref", payment.ExternalReference,
		"whatsapp_link", link,
	)

	if h.email == nil || h.cfg.StaffEmail == "" {
		return
	}
	msg := notify.ConfirmationEmail(h.cfg.StaffEmail, info)
	if err := h.email.Send(ctx, msg); err != nil {
		h.logger.Warn("staff email failed", "error", err, "payment_id", payment.ID.String())
	}
}

func (h *WebhookHandler) observe(outcome string, start time.Time) {
	h.metrics.ObserveWebhook(outcome, time.Since(start).Seconds())
}

// extractPaymentID pulls the payment id from the JSON body, falling back to
// the query-parameter style of older notification formats. The second return
// is false for notifications about resources other than payments.
func extractPaymentID(r *http.Request) (string, bool) {
	var evt webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err == nil {
		if evt.Type == "payment" || strings.HasPrefix(evt.Action, "payment.") {
			return string(evt.Data.ID), true
		}
		if evt.Type != "" || evt.Action != "" {
			return "", false
		}
		if id := string(evt.Data.ID); id != "" {
			return id, true
		}
	}

	q := r.URL.Query()
	topic := q.Get("topic")
	if topic == "" {
		topic = q.Get("type")
	}
	if topic != "" && topic != "payment" {
		return "", false
	}
	id := q.Get("data.id")
	if id == "" {
		id = q.Get("id")
	}
	return id, true
}

func writeOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
