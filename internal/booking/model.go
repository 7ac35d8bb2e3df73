package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrMissingField is returned when a required booking field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidPayload is returned when the request body is not valid JSON.
	ErrInvalidPayload = errors.New("invalid booking payload")
)

// Request is a normalized booking request. The corpus of client apps drifted
// on field names over time, so ParseRequest resolves every known alias here
// and the rest of the service only ever sees these canonical fields.
type Request struct {
	Nome          string
	Telefone      string
	Servico       string
	PrecoTotal    string
	DataSessao    string
	HorarioSessao string
}

type rawRequest struct {
	Nome     string `json:"nome"`
	Name     string `json:"name"`
	Telefone string `json:"telefone"`
	Contato  string `json:"contato"`
	Contact  string `json:"contact"`
	Phone    string `json:"phone"`

	Servico   string `json:"servico"`
	ServiceID string `json:"serviceId"`
	Service   string `json:"service"`

	PrecoTotal  any `json:"precoTotal"`
	Preco       any `json:"preco"`
	QuotedPrice any `json:"quotedPrice"`
	Valor       any `json:"valor"`

	DataSessao  string `json:"dataSessao"`
	Data        string `json:"data"`
	Date        string `json:"date"`
	DiaAgendado string `json:"diaagendado"`
	DiaAgendada string `json:"diaagendada"`

	HorarioSessao string `json:"horarioSessao"`
	Horario       string `json:"horario"`
	Time          string `json:"time"`
	HoraAgendada  string `json:"horaagendada"`
}

// ParseRequest decodes a booking payload, resolving field aliases.
func ParseRequest(r io.Reader) (*Request, error) {
	var raw rawRequest
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &Request{
		Nome:          firstNonEmpty(raw.Nome, raw.Name),
		Telefone:      firstNonEmpty(raw.Telefone, raw.Contato, raw.Contact, raw.Phone),
		Servico:       firstNonEmpty(raw.Servico, raw.ServiceID, raw.Service),
		PrecoTotal:    firstValue(raw.PrecoTotal, raw.Preco, raw.QuotedPrice, raw.Valor),
		DataSessao:    firstNonEmpty(raw.DataSessao, raw.Data, raw.Date, raw.DiaAgendado, raw.DiaAgendada),
		HorarioSessao: firstNonEmpty(raw.HorarioSessao, raw.Horario, raw.Time, raw.HoraAgendada),
	}, nil
}

// Validate checks that every required field is present.
func (r *Request) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"nome", r.Nome},
		{"telefone", r.Telefone},
		{"servico", r.Servico},
		{"precoTotal", r.PrecoTotal},
		{"dataSessao", r.DataSessao},
		{"horarioSessao", r.HorarioSessao},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// firstValue stringifies the first non-nil value. Prices arrive as JSON
// strings in some client variants and as numbers in others.
func firstValue(values ...any) string {
	for _, v := range values {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(t) != "" {
				return strings.TrimSpace(t)
			}
		case float64:
			if t == float64(int64(t)) {
				return fmt.Sprintf("%d", int64(t))
			}
			return fmt.Sprintf("%.2f", t)
		default:
			return fmt.Sprintf("%v", t)
		}
	}
	return ""
}
