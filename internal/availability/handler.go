package availability

import (
	"encoding/json"
	"net/http"

	"github.com/atelielash/agenda-api/internal/booking"
	"github.com/atelielash/agenda-api/pkg/logging"
)

const slotStepMinutes = 30

// Handler serves the open-slots query for a calendar date.
type Handler struct {
	store       Store
	durations   *booking.DurationTable
	openingHour int
	closingHour int
	logger      *logging.Logger
}

type slotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// NewHandler creates a slots handler over the given store and opening hours.
func NewHandler(store Store, durations *booking.DurationTable, openingHour, closingHour int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:       store,
		durations:   durations,
		openingHour: openingHour,
		closingHour: closingHour,
		logger:      logger,
	}
}

// ListSlots handles GET /horarios-disponiveis?date=ISO[&servico=...].
// The optional servico parameter sizes the interval that must fit; without it
// the default service duration is used.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	date, err := booking.NormalizeDateISO(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD or DD/MM/YYYY", http.StatusBadRequest)
		return
	}
	duration := h.durations.For(r.URL.Query().Get("servico"))

	taken, err := h.store.TakenSlots(r.Context(), date)
	if err != nil {
		// Availability is unknown; refusing beats promising slots we cannot
		// verify.
		h.logger.Error("availability lookup failed", "error", err, "date", date)
		http.Error(w, "availability unavailable", http.StatusServiceUnavailable)
		return
	}

	opening := h.openingHour * 60
	closing := h.closingHour * 60
	var free []string
	for start := opening; start+int(duration.Minutes()) <= closing; start += slotStepMinutes {
		probe := Slot{Date: date, Start: start, Duration: duration}
		conflict := false
		for _, slot := range taken {
			if probe.Overlaps(slot) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, booking.FormatTimeSlot(start))
		}
	}
	if free == nil {
		free = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slotsResponse{Date: date, Slots: free})
}
