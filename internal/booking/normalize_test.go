package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		raw   string
		cents int64
	}{
		{"130", 13000},
		{"130,00", 13000},
		{"R$ 130", 13000},
		{"130.00", 13000},
		{"R$130,50", 13050},
		{"1.300,50", 130050},
		{"R$ 1.300", 130000},
		{"39,9", 3990},
		{" 85 ", 8500},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeAmount(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.cents, got)
		})
	}
}

func TestNormalizeAmountRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "R$", "1,2,3", "130,005"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NormalizeAmount(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparseableAmount))
		})
	}
}

func TestFormatAmountBRL(t *testing.T) {
	assert.Equal(t, "R$ 39.00", FormatAmountBRL(3900))
	assert.Equal(t, "R$ 130.05", FormatAmountBRL(13005))
	assert.Equal(t, "R$ 0.50", FormatAmountBRL(50))
}

func TestNormalizeDateISO(t *testing.T) {
	got, err := NormalizeDateISO("15/10/2025")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-15", got)

	got, err = NormalizeDateISO("2025-10-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-15", got)
}

func TestDateRoundTrip(t *testing.T) {
	iso, err := NormalizeDateISO("15/10/2025")
	require.NoError(t, err)
	br, err := FormatDateBR(iso)
	require.NoError(t, err)
	assert.Equal(t, "15/10/2025", br)
}

func TestNormalizeDateISONeverSwapsDayMonth(t *testing.T) {
	// 10/15 would only parse as MM/DD; it must be rejected, not reinterpreted.
	_, err := NormalizeDateISO("10/15/2025")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparseableDate))
}

func TestNormalizeDateISORejectsOtherFormats(t *testing.T) {
	for _, raw := range []string{"", "2025/10/15", "15-10-2025", "45939.5"} {
		_, err := NormalizeDateISO(raw)
		require.Error(t, err, "input %q", raw)
	}
}

func TestParseTimeSlot(t *testing.T) {
	got, err := ParseTimeSlot("14:00")
	require.NoError(t, err)
	assert.Equal(t, 14*60, got)

	got, err = ParseTimeSlot("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, got)

	_, err = ParseTimeSlot("25:00")
	require.Error(t, err)
	_, err = ParseTimeSlot("afternoon")
	require.Error(t, err)
}

func TestFormatTimeSlot(t *testing.T) {
	assert.Equal(t, "14:00", FormatTimeSlot(14*60))
	assert.Equal(t, "09:30", FormatTimeSlot(9*60+30))
}
