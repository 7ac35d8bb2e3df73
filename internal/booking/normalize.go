package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnparseableAmount is returned when a price string has no usable digits.
	// The original call sites coerced these to zero, which produced zero-value
	// deposits; rejecting the booking is the documented stricter choice.
	ErrUnparseableAmount = errors.New("unparseable amount")

	// ErrUnparseableDate is returned for dates that are neither ISO-8601 nor
	// DD/MM/YYYY. MM/DD input is never guessed.
	ErrUnparseableDate = errors.New("unparseable date")

	// ErrUnparseableTime is returned for time slots that are not HH:MM.
	ErrUnparseableTime = errors.New("unparseable time")
)

const (
	isoDate = "2006-01-02"
	brDate  = "02/01/2006"
)

// NormalizeAmount parses a free-form pt-BR price string into integer cents.
// Accepted forms include "130", "130,00", "R$ 130", "130.00" and "1.300,50".
// A comma, when present, is the decimal separator and dots are thousands
// separators; without a comma, a single dot followed by exactly two digits is
// treated as a decimal point.
func NormalizeAmount(raw string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableAmount, raw)
	}

	var intPart, decPart string
	switch {
	case strings.Contains(cleaned, ","):
		if strings.Count(cleaned, ",") > 1 {
			return 0, fmt.Errorf("%w: %q", ErrUnparseableAmount, raw)
		}
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		parts := strings.SplitN(cleaned, ",", 2)
		intPart, decPart = parts[0], parts[1]
	case strings.Count(cleaned, ".") == 1:
		parts := strings.SplitN(cleaned, ".", 2)
		if len(parts[1]) == 3 {
			// "1.300" is a thousands separator in pt-BR, not 1.3
			intPart = parts[0] + parts[1]
		} else {
			intPart, decPart = parts[0], parts[1]
		}
	default:
		intPart = strings.ReplaceAll(cleaned, ".", "")
	}

	if len(decPart) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableAmount, raw)
	}
	for len(decPart) < 2 {
		decPart += "0"
	}

	var units int64
	if intPart != "" {
		var err error
		units, err = strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseableAmount, raw)
		}
	}
	cents, err := strconv.ParseInt(decPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableAmount, raw)
	}
	return units*100 + cents, nil
}

// FormatAmountBRL renders cents the way the ledger sheet expects ("R$ 39.00").
func FormatAmountBRL(cents int64) string {
	return fmt.Sprintf("R$ %d.%02d", cents/100, cents%100)
}

// NormalizeDateISO converts a date string to ISO-8601. Only YYYY-MM-DD and
// DD/MM/YYYY are accepted.
func NormalizeDateISO(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(isoDate, raw); err == nil {
		return t.Format(isoDate), nil
	}
	if t, err := time.Parse(brDate, raw); err == nil {
		return t.Format(isoDate), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
}

// FormatDateBR converts an ISO date back to DD/MM/YYYY for client-facing text.
// Round-trips with NormalizeDateISO for well-formed input.
func FormatDateBR(iso string) (string, error) {
	t, err := time.Parse(isoDate, strings.TrimSpace(iso))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnparseableDate, iso)
	}
	return t.Format(brDate), nil
}

// ParseTimeSlot converts "HH:MM" into minutes since midnight.
func ParseTimeSlot(raw string) (int, error) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "h"))
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableTime, raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatTimeSlot renders minutes since midnight as "HH:MM".
func FormatTimeSlot(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
