package availability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelielash/agenda-api/internal/booking"
)

func TestListSlotsExcludesTakenIntervals(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Reserve(ctx, Slot{
		Date: "2025-10-15", Start: 14 * 60, Duration: 180 * time.Minute, Ref: "ref-1",
	}))

	handler := NewHandler(store, booking.DefaultDurations(), 9, 19, nil)

	req := httptest.NewRequest(http.MethodGet, "/horarios-disponiveis?date=2025-10-15&servico=manutencao", nil)
	rr := httptest.NewRecorder()
	handler.ListSlots(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "2025-10-15", resp.Date)
	assert.Contains(t, resp.Slots, "09:00")
	// a 90m maintenance cannot start while 14:00-17:00 is held
	assert.NotContains(t, resp.Slots, "14:00")
	assert.NotContains(t, resp.Slots, "16:30")
	// but it fits right after the hold ends
	assert.Contains(t, resp.Slots, "17:00")
	// and cannot run past closing at 19:00
	assert.NotContains(t, resp.Slots, "18:00")
}

func TestListSlotsAcceptsBRDate(t *testing.T) {
	handler := NewHandler(NewMemoryStore(), booking.DefaultDurations(), 9, 19, nil)

	req := httptest.NewRequest(http.MethodGet, "/horarios-disponiveis?date=15%2F10%2F2025", nil)
	rr := httptest.NewRecorder()
	handler.ListSlots(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"date":"2025-10-15"`)
}

func TestListSlotsRejectsBadDate(t *testing.T) {
	handler := NewHandler(NewMemoryStore(), booking.DefaultDurations(), 9, 19, nil)

	req := httptest.NewRequest(http.MethodGet, "/horarios-disponiveis?date=amanha", nil)
	rr := httptest.NewRecorder()
	handler.ListSlots(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type failingStore struct{}

func (failingStore) IsAvailable(context.Context, string, int, time.Duration) (bool, error) {
	return false, ErrUnavailable
}
func (failingStore) Reserve(context.Context, Slot) error          { return ErrUnavailable }
func (failingStore) Release(context.Context, string, string) error { return ErrUnavailable }
func (failingStore) TakenSlots(context.Context, string) ([]Slot, error) {
	return nil, errors.New("boom")
}

func TestListSlotsReportsStoreOutage(t *testing.T) {
	handler := NewHandler(failingStore{}, booking.DefaultDurations(), 9, 19, nil)

	req := httptest.NewRequest(http.MethodGet, "/horarios-disponiveis?date=2025-10-15", nil)
	rr := httptest.NewRecorder()
	handler.ListSlots(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
