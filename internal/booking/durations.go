package booking

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDuration is used for services missing from the table.
const DefaultDuration = 90 * time.Minute

// DurationTable maps a service name to the studio time it occupies.
type DurationTable struct {
	entries  map[string]time.Duration
	fallback time.Duration
}

// DefaultDurations returns the built-in lash-studio table: full application
// 180m, maintenance 90m, removal 60m.
func DefaultDurations() *DurationTable {
	return &DurationTable{
		entries: map[string]time.Duration{
			"volume brasileiro": 180 * time.Minute,
			"volume russo":      180 * time.Minute,
			"aplicacao":         180 * time.Minute,
			"manutencao":        90 * time.Minute,
			"remocao":           60 * time.Minute,
		},
		fallback: DefaultDuration,
	}
}

// ParseDurations builds a table from a "name=180m,other=90m" spec, merged over
// the defaults so env overrides only need to list what changed.
func ParseDurations(spec string) (*DurationTable, error) {
	table := DefaultDurations()
	if strings.TrimSpace(spec) == "" {
		return table, nil
	}
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("booking: invalid duration entry %q", pair)
		}
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("booking: invalid duration for %q: %w", name, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("booking: duration for %q must be positive", name)
		}
		table.entries[normalizeServiceKey(name)] = d
	}
	return table, nil
}

// For returns the duration for a service, falling back to the default.
func (t *DurationTable) For(service string) time.Duration {
	if t == nil {
		return DefaultDuration
	}
	if d, ok := t.entries[normalizeServiceKey(service)]; ok {
		return d
	}
	return t.fallback
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)

// normalizeServiceKey lowercases and strips pt-BR accents so "Manutenção"
// and "manutencao" resolve to the same entry.
func normalizeServiceKey(service string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(service)))
}
