package notify

import (
	"fmt"
	"net/url"
	"strings"
)

// BookingInfo carries the confirmed-booking fields the message templates use.
type BookingInfo struct {
	Nome          string
	Servico       string
	DataBR        string // DD/MM/YYYY
	HorarioSessao string
	Valor         string // formatted deposit, e.g. "R$ 39.00"
}

// BuildWhatsAppLink builds a wa.me deep link carrying the confirmation
// message. Pure string construction; nothing is sent — the staff member (or a
// separate dispatcher) follows the link.
func BuildWhatsAppLink(number string, info BookingInfo) string {
	msg := fmt.Sprintf(
		"Olá, %s! Seu horário de %s no dia %s às %s está confirmado. Sinal recebido: %s. Até lá! 🤍",
		info.Nome, info.Servico, info.DataBR, info.HorarioSessao, info.Valor,
	)
	return "https://wa.me/" + digitsOnly(number) + "?text=" + url.QueryEscape(msg)
}

func digitsOnly(number string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
}
