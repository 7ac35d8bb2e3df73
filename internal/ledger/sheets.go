package ledger

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"

	"github.com/atelielash/agenda-api/pkg/logging"
)

// SheetsSink appends rows straight to a spreadsheet through the Google Sheets
// API, for deployments with service-account credentials instead of an Apps
// Script web app.
type SheetsSink struct {
	service       *sheets.Service
	spreadsheetID string
	writeRange    string
	logger        *logging.Logger
}

// NewSheetsSink creates a sink appending to writeRange (e.g.
// "Agendamentos!A:J") of the given spreadsheet.
func NewSheetsSink(service *sheets.Service, spreadsheetID, writeRange string, logger *logging.Logger) *SheetsSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &SheetsSink{
		service:       service,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
		logger:        logger,
	}
}

// Append writes one row in the sheet's column order.
func (s *SheetsSink) Append(ctx context.Context, row Row) error {
	values := &sheets.ValueRange{
		Values: [][]any{{
			row.Nome,
			row.Telefone,
			row.Servico,
			row.PrecoTotal,
			row.Valor30,
			row.DataSessao,
			row.HorarioSessao,
			row.Status,
			row.PagamentoID,
			row.Referencia,
		}},
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, s.writeRange, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ledger: sheets append: %w", err)
	}

	s.logger.Info("ledger row appended",
		"pagamento_id", row.PagamentoID,
		"referencia", row.Referencia,
		"spreadsheet_id", s.spreadsheetID,
	)
	return nil
}
