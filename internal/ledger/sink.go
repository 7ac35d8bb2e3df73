package ledger

import "context"

// Row is one appended ledger entry, written at most once per payment
// identifier. Field names match the columns the studio's sheet has used since
// the first version of the service.
type Row struct {
	Nome          string `json:"nome"`
	Telefone      string `json:"telefone"`
	Servico       string `json:"servico"`
	PrecoTotal    string `json:"precoTotal"`
	Valor30       string `json:"valor30"` // deposit actually charged, e.g. "R$ 39.00"
	DataSessao    string `json:"dataSessao"` // ISO-8601, never a serial date
	HorarioSessao string `json:"horarioSessao"`
	Status        string `json:"status"` // "Aprovado"
	PagamentoID   string `json:"pagamentoId"`
	Referencia    string `json:"referencia"`
}

// Sink appends rows to the spreadsheet-backed ledger.
type Sink interface {
	Append(ctx context.Context, row Row) error
}
