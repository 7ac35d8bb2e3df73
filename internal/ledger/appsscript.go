package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atelielash/agenda-api/pkg/logging"
)

// AppsScriptSink posts rows to a Google Apps Script web app, the original
// ledger transport the studio still runs.
type AppsScriptSink struct {
	webAppURL  string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewAppsScriptSink creates a sink for the given exec URL.
func NewAppsScriptSink(webAppURL string, logger *logging.Logger) *AppsScriptSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppsScriptSink{
		webAppURL: webAppURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			// Apps Script redirects successful POSTs; following it would
			// replay the write as a GET.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Append posts one row as JSON. Apps Script replies with a redirect on
// success, so anything below 400 counts as accepted.
func (s *AppsScriptSink) Append(ctx context.Context, row Row) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("ledger: encode row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webAppURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: post row: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ledger: sink status %d: %s", resp.StatusCode, string(payload))
	}

	s.logger.Info("ledger row appended",
		"pagamento_id", row.PagamentoID,
		"referencia", row.Referencia,
	)
	return nil
}
