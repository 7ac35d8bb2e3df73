package payments

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/atelielash/agenda-api/internal/availability"
	"github.com/atelielash/agenda-api/internal/booking"
	"github.com/atelielash/agenda-api/internal/mercadopago"
	"github.com/atelielash/agenda-api/internal/observability/metrics"
	"github.com/atelielash/agenda-api/pkg/logging"
)

// preferenceCreator is the slice of the provider client checkout needs.
type preferenceCreator interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

// paymentFetcher re-fetches the authoritative payment record.
type paymentFetcher interface {
	GetPayment(ctx context.Context, id string) (*mercadopago.Payment, error)
}

// CheckoutConfig carries the static parts of preference creation.
type CheckoutConfig struct {
	DepositFraction float64
	SuccessURL      string
	FailureURL      string
	NotificationURL string
}

// CheckoutHandler serves POST /gerar-pagamento: it validates the booking,
// holds the slot, and creates the provider checkout for the deposit.
type CheckoutHandler struct {
	slots     availability.Store
	intents   IntentStore
	provider  preferenceCreator
	durations *booking.DurationTable
	cfg       CheckoutConfig
	metrics   *metrics.PaymentMetrics
	logger    *logging.Logger
}

// NewCheckoutHandler wires the checkout flow.
func NewCheckoutHandler(
	slots availability.Store,
	intents IntentStore,
	provider preferenceCreator,
	durations *booking.DurationTable,
	cfg CheckoutConfig,
	m *metrics.PaymentMetrics,
	logger *logging.Logger,
) *CheckoutHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DepositFraction <= 0 || cfg.DepositFraction > 1 {
		cfg.DepositFraction = 0.3
	}
	return &CheckoutHandler{
		slots:     slots,
		intents:   intents,
		provider:  provider,
		durations: durations,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
	}
}

type checkoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
	IntentID    string `json:"intentId"`
}

// CreateCheckout handles POST /gerar-pagamento.
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := booking.ParseRequest(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid booking payload")
		h.metrics.ObserveCheckout("bad_request")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		h.metrics.ObserveCheckout("bad_request")
		return
	}

	cents, err := booking.NormalizeAmount(req.PrecoTotal)
	if err != nil || cents <= 0 {
		respondError(w, http.StatusBadRequest, "precoTotal must be a positive amount")
		h.metrics.ObserveCheckout("bad_request")
		return
	}
	isoDate, err := booking.NormalizeDateISO(req.DataSessao)
	if err != nil {
		respondError(w, http.StatusBadRequest, "dataSessao must be YYYY-MM-DD or DD/MM/YYYY")
		h.metrics.ObserveCheckout("bad_request")
		return
	}
	startMinutes, err := booking.ParseTimeSlot(req.HorarioSessao)
	if err != nil {
		respondError(w, http.StatusBadRequest, "horarioSessao must be HH:MM")
		h.metrics.ObserveCheckout("bad_request")
		return
	}

	deposit := int64(math.Round(float64(cents) * h.cfg.DepositFraction))
	if deposit <= 0 {
		respondError(w, http.StatusBadRequest, "deposit rounds to zero")
		h.metrics.ObserveCheckout("bad_request")
		return
	}

	externalRef := uuid.NewString()
	slot := availability.Slot{
		Date:     isoDate,
		Start:    startMinutes,
		Duration: h.durations.For(req.Servico),
		Ref:      externalRef,
	}
	if err := h.slots.Reserve(ctx, slot); err != nil {
		if errors.Is(err, availability.ErrSlotTaken) {
			respondError(w, http.StatusBadRequest, "horario indisponivel")
			h.metrics.ObserveCheckout("conflict")
			return
		}
		h.logger.Error("slot reservation failed", "error", err, "date", isoDate)
		respondError(w, http.StatusServiceUnavailable, "availability unavailable")
		h.metrics.ObserveCheckout("availability_error")
		return
	}

	pref, err := h.provider.CreatePreference(ctx, mercadopago.PreferenceRequest{
		Title:             "Sinal - " + req.Servico,
		AmountCents:       deposit,
		ExternalReference: externalRef,
		Metadata: map[string]string{
			"nome":                 req.Nome,
			"telefone":             req.Telefone,
			"servico":              req.Servico,
			"data_sessao":          isoDate,
			"horario_sessao":       booking.FormatTimeSlot(startMinutes),
			"preco_total_centavos": strconv.FormatInt(cents, 10),
		},
		SuccessURL:      h.cfg.SuccessURL,
		FailureURL:      h.cfg.FailureURL,
		NotificationURL: h.cfg.NotificationURL,
	})
	if err != nil {
		// The hold must not outlive a checkout that was never created.
		if relErr := h.slots.Release(ctx, isoDate, externalRef); relErr != nil {
			h.logger.Error("failed to release slot after preference failure", "error", relErr, "ref", externalRef)
		}
		h.logger.Error("preference creation failed", "error", err, "ref", externalRef)
		respondError(w, http.StatusInternalServerError, "failed to create payment")
		h.metrics.ObserveCheckout("upstream_error")
		return
	}

	intent := &Intent{
		ID:               uuid.New(),
		PreferenceID:     pref.ID,
		ExternalRef:      externalRef,
		Nome:             req.Nome,
		Telefone:         req.Telefone,
		Servico:          req.Servico,
		PrecoCentavos:    cents,
		DepositoCentavos: deposit,
		DataSessao:       isoDate,
		HorarioSessao:    booking.FormatTimeSlot(startMinutes),
		Status:           StatusPending,
	}
	if err := h.intents.Create(ctx, intent); err != nil {
		// The checkout already exists at the provider and the booking data
		// travels in its metadata; losing the local row only degrades polling.
		h.logger.Error("intent persistence failed", "error", err, "ref", externalRef)
	}

	h.logger.Info("checkout created",
		"ref", externalRef,
		"preference_id", pref.ID,
		"servico", req.Servico,
		"data_sessao", isoDate,
		"deposito_centavos", deposit,
	)
	h.metrics.ObserveCheckout("created")
	respondJSON(w, http.StatusOK, checkoutResponse{
		RedirectURL: pref.InitPoint,
		IntentID:    intent.ID.String(),
	})
}

// intentGetter is the read slice of the intent store used for polling.
type intentGetter interface {
	GetByExternalRef(ctx context.Context, externalRef string) (*Intent, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*Intent, error)
}

// StatusHandler serves GET /status-pagamento?id=... for client-side polling.
// The id may be our external reference or the provider payment id; unknown
// ids fall through to a provider lookup.
type StatusHandler struct {
	intents  intentGetter
	provider paymentFetcher
	logger   *logging.Logger
}

// NewStatusHandler wires the polling endpoint.
func NewStatusHandler(intents intentGetter, provider paymentFetcher, logger *logging.Logger) *StatusHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatusHandler{intents: intents, provider: provider, logger: logger}
}

type statusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// GetStatus handles GET /status-pagamento.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.URL.Query().Get("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	if intent, err := h.intents.GetByPaymentID(ctx, id); err == nil {
		respondJSON(w, http.StatusOK, statusResponse{ID: id, Status: intent.Status})
		return
	}
	if intent, err := h.intents.GetByExternalRef(ctx, id); err == nil {
		respondJSON(w, http.StatusOK, statusResponse{ID: id, Status: intent.Status})
		return
	}

	payment, err := h.provider.GetPayment(ctx, id)
	if err != nil {
		h.logger.Warn("payment status lookup failed", "error", err, "id", id)
		respondError(w, http.StatusNotFound, "payment not found")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{ID: id, Status: payment.Status})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
